// Package secret loads the connection secret for a sync run from AWS
// Secrets Manager, a JSON file, or an environment variable.
package secret

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"recsync/internal/recsync"
)

var (
	// ErrSecretNotFound is returned when the named secret does not exist.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrSecretEmpty is returned when the secret exists but has no value.
	ErrSecretEmpty = errors.New("secret value is empty")

	// ErrAccessDenied is returned when the caller may not read the secret.
	ErrAccessDenied = errors.New("access denied to secret")

	// ErrInvalidSecret is returned when the secret value is not a usable
	// connection secret.
	ErrInvalidSecret = errors.New("invalid secret")
)

// Parse decodes and validates a JSON secret value. Error messages name the
// offending keys but never echo their values.
func Parse(data []byte) (*recsync.Secret, error) {
	if len(data) == 0 {
		return nil, ErrSecretEmpty
	}

	var s recsync.Secret
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrInvalidSecret)
	}

	if err := validation.ValidateStruct(&s,
		validation.Field(&s.EndpointURL, validation.Required, is.URL),
		validation.Field(&s.Username, validation.Required),
		validation.Field(&s.Password, validation.Required),
		validation.Field(&s.BasicAuthPassword, validation.When(s.BasicAuthUsername != "", validation.Required)),
		validation.Field(&s.StorageSecretKey, validation.When(s.StorageAccessKey != "", validation.Required)),
	); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSecret, err)
	}
	return &s, nil
}

// Static always returns the same secret.
type Static struct {
	secret *recsync.Secret
}

// NewStatic creates a Static provider for s.
func NewStatic(s *recsync.Secret) *Static {
	return &Static{secret: s}
}

func (p *Static) GetSecret(_ context.Context) (*recsync.Secret, error) {
	if p.secret == nil {
		return nil, ErrSecretEmpty
	}
	c := *p.secret
	return &c, nil
}

var _ recsync.SecretStore = (*Static)(nil)
