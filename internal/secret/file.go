package secret

import (
	"context"
	"fmt"
	"os"

	"recsync/internal/recsync"
)

// FileProvider reads the secret from a JSON file on disk.
type FileProvider struct {
	path string
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

func (p *FileProvider) GetSecret(_ context.Context) (*recsync.Secret, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, p.path)
		}
		return nil, fmt.Errorf("reading secret file: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("secret file %s: %w", p.path, err)
	}
	return s, nil
}

var _ recsync.SecretStore = (*FileProvider)(nil)

// EnvProvider reads the secret JSON from an environment variable.
type EnvProvider struct {
	name   string
	lookup func(string) (string, bool)
}

func NewEnvProvider(name string) *EnvProvider {
	return &EnvProvider{name: name, lookup: os.LookupEnv}
}

func (p *EnvProvider) GetSecret(_ context.Context) (*recsync.Secret, error) {
	value, ok := p.lookup(p.name)
	if !ok {
		return nil, fmt.Errorf("%w: $%s is not set", ErrSecretNotFound, p.name)
	}

	s, err := Parse([]byte(value))
	if err != nil {
		return nil, fmt.Errorf("$%s: %w", p.name, err)
	}
	return s, nil
}

var _ recsync.SecretStore = (*EnvProvider)(nil)
