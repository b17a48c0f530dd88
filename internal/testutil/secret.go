package testutil

import (
	"context"

	"recsync/internal/recsync"
	"recsync/internal/secret"
)

// TestSecret returns a complete secret pointing at a fake endpoint.
func TestSecret() *recsync.Secret {
	return &recsync.Secret{
		EndpointURL: "https://example.cybozu.com",
		Username:    "sync-user",
		Password:    "sync-pass",
	}
}

// NewTestSecretStore returns a secret store holding TestSecret.
func NewTestSecretStore() recsync.SecretStore {
	return secret.NewStatic(TestSecret())
}

// FailingSecretStore fails every lookup with Err.
type FailingSecretStore struct {
	Err error
}

func (s FailingSecretStore) GetSecret(context.Context) (*recsync.Secret, error) {
	return nil, s.Err
}
