package secret

import (
	"context"
	"fmt"
	"log/slog"

	"recsync/internal/config"
	"recsync/internal/recsync"
)

// NewFromConfig creates a SecretStore based on the secret config type.
func NewFromConfig(ctx context.Context, cfg config.SecretConfig, logger *slog.Logger) (recsync.SecretStore, error) {
	switch cfg.Type {
	case config.SecretTypeAWS:
		p, err := NewAWSProvider(ctx, cfg.Name, cfg.Region, cfg.Endpoint, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.SecretTypeFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file secret requires path to be set")
		}
		return NewFileProvider(cfg.Path), nil
	case config.SecretTypeEnv:
		name := cfg.EnvVar
		if name == "" {
			name = config.DefaultSecretEnvVar
		}
		return NewEnvProvider(name), nil
	default:
		return nil, fmt.Errorf("unknown secret type: %s", cfg.Type)
	}
}
