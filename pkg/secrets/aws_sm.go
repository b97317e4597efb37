package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

// SecretsManagerAPI is the subset of *secretsmanager.Client used by the provider.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretsManagerProvider implements Provider using AWS Secrets Manager.
type AWSSecretsManagerProvider struct {
	client SecretsManagerAPI
}

// NewAWSProvider creates a new AWS Secrets Manager provider for the given region.
func NewAWSProvider(ctx context.Context, region string) (*AWSSecretsManagerProvider, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewAWSProviderWithClient(secretsmanager.NewFromConfig(cfg)), nil
}

// NewAWSProviderWithClient wraps an existing Secrets Manager client.
func NewAWSProviderWithClient(client SecretsManagerAPI) *AWSSecretsManagerProvider {
	return &AWSSecretsManagerProvider{client: client}
}

// Name implements Provider.
func (p *AWSSecretsManagerProvider) Name() string { return "aws" }

// GetRecord fetches secret metadata from AWS Secrets Manager.
// The record UID is the secret ARN and the title is the secret name.
func (p *AWSSecretsManagerProvider) GetRecord(ctx context.Context, uid string) (*Record, error) {
	out, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(uid),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to fetch secret [%s]: %w", uid, ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to fetch secret [%s]: %w", uid, err)
	}

	rec := &Record{
		UID:   aws.ToString(out.ARN),
		Title: aws.ToString(out.Name),
		Type:  "aws_secret",
	}
	if rec.UID == "" {
		rec.UID = uid
	}
	return rec, nil
}
