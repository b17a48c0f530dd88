package secret

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"

	"recsync/internal/recsync"
)

// AWS error codes mapped to package errors.
const (
	ResourceNotFoundException = "ResourceNotFoundException"
	AccessDeniedException     = "AccessDeniedException"
)

// ManagerAPI is the part of the Secrets Manager client used here.
type ManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSProvider reads the secret from AWS Secrets Manager. Only the secret
// name is ever logged.
type AWSProvider struct {
	api    ManagerAPI
	name   string
	logger *slog.Logger
}

// NewAWSProvider creates an AWSProvider using the default AWS credential
// chain. endpoint may be empty; it is set for LocalStack.
func NewAWSProvider(ctx context.Context, name, region, endpoint string, logger *slog.Logger) (*AWSProvider, error) {
	if name == "" {
		return nil, fmt.Errorf("secret name cannot be empty")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	api := secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewAWSProviderWithClient(api, name, logger), nil
}

// NewAWSProviderWithClient creates an AWSProvider over an existing client.
func NewAWSProviderWithClient(api ManagerAPI, name string, logger *slog.Logger) *AWSProvider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AWSProvider{api: api, name: name, logger: logger}
}

// GetSecret fetches and parses the secret.
func (p *AWSProvider) GetSecret(ctx context.Context) (*recsync.Secret, error) {
	p.logger.InfoContext(ctx, "retrieving secret", "secret_name", p.name)

	out, err := p.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.name),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case ResourceNotFoundException:
				return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, p.name)
			case AccessDeniedException:
				return nil, fmt.Errorf("%w: %s", ErrAccessDenied, p.name)
			}
		}
		p.logger.ErrorContext(ctx, "failed to retrieve secret", "secret_name", p.name, "error", err)
		return nil, fmt.Errorf("getting secret %s: %w", p.name, err)
	}

	var value []byte
	switch {
	case out.SecretString != nil:
		value = []byte(*out.SecretString)
	case out.SecretBinary != nil:
		value = out.SecretBinary
	}

	s, err := Parse(value)
	if err != nil {
		return nil, fmt.Errorf("secret %s: %w", p.name, err)
	}

	p.logger.InfoContext(ctx, "secret retrieved successfully", "secret_name", p.name)
	return s, nil
}

var _ recsync.SecretStore = (*AWSProvider)(nil)
