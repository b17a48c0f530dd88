package secret

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockManagerAPI implements ManagerAPI for testing
type mockManagerAPI struct {
	getSecretValueFunc func(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

func (m *mockManagerAPI) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	return m.getSecretValueFunc(ctx, params, optFns...)
}

func returning(out *secretsmanager.GetSecretValueOutput, err error) *mockManagerAPI {
	return &mockManagerAPI{
		getSecretValueFunc: func(context.Context, *secretsmanager.GetSecretValueInput, ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
			return out, err
		},
	}
}

func TestAWSProvider_GetSecret(t *testing.T) {
	t.Run("secret string", func(t *testing.T) {
		var gotID string
		api := &mockManagerAPI{
			getSecretValueFunc: func(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
				gotID = aws.ToString(params.SecretId)
				return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(validSecret)}, nil
			},
		}
		p := NewAWSProviderWithClient(api, "prod/kintone", nil)

		got, err := p.GetSecret(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "prod/kintone", gotID)
		assert.Equal(t, "sync-user", got.Username)
		assert.Equal(t, "AKIDEXAMPLE", got.StorageAccessKey)
	})

	t.Run("secret binary", func(t *testing.T) {
		p := NewAWSProviderWithClient(returning(&secretsmanager.GetSecretValueOutput{SecretBinary: []byte(validSecret)}, nil), "s", nil)

		got, err := p.GetSecret(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "https://example.cybozu.com", got.EndpointURL)
	})

	tests := []struct {
		name    string
		out     *secretsmanager.GetSecretValueOutput
		err     error
		wantErr error
	}{
		{
			name:    "not found",
			err:     &smithy.GenericAPIError{Code: ResourceNotFoundException, Message: "Secrets Manager can't find the specified secret."},
			wantErr: ErrSecretNotFound,
		},
		{
			name:    "access denied",
			err:     &smithy.GenericAPIError{Code: AccessDeniedException, Message: "not authorized"},
			wantErr: ErrAccessDenied,
		},
		{
			name:    "no value",
			out:     &secretsmanager.GetSecretValueOutput{},
			wantErr: ErrSecretEmpty,
		},
		{
			name:    "invalid value",
			out:     &secretsmanager.GetSecretValueOutput{SecretString: aws.String(`{"username":"u"}`)},
			wantErr: ErrInvalidSecret,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewAWSProviderWithClient(returning(tt.out, tt.err), "prod/kintone", nil)

			_, err := p.GetSecret(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), "prod/kintone")
		})
	}

	t.Run("other errors are wrapped", func(t *testing.T) {
		cause := errors.New("dial tcp: i/o timeout")
		p := NewAWSProviderWithClient(returning(nil, cause), "prod/kintone", nil)

		_, err := p.GetSecret(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
	})
}

func TestAWSProvider_LogsNameNotValue(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	p := NewAWSProviderWithClient(returning(&secretsmanager.GetSecretValueOutput{SecretString: aws.String(validSecret)}, nil), "prod/kintone", logger)

	_, err := p.GetSecret(context.Background())
	require.NoError(t, err)

	logs := buf.String()
	assert.Contains(t, logs, "prod/kintone")
	assert.NotContains(t, logs, "hunter2")
	assert.NotContains(t, logs, "storage-secret")
}

func TestNewAWSProvider_RequiresName(t *testing.T) {
	_, err := NewAWSProvider(context.Background(), "", "ap-northeast-1", "", nil)
	assert.Error(t, err)
}
