package infrastructure

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// AWSOptions selects the region and an optional endpoint override (LocalStack)
type AWSOptions struct {
	Region   string
	Endpoint string
}

func loadAWSConfig(ctx context.Context, opts AWSOptions) (aws.Config, error) {
	var loaders []func(*config.LoadOptions) error
	if opts.Region != "" {
		loaders = append(loaders, config.WithRegion(opts.Region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, errors.Wrap(err, "failed to load AWS config")
	}
	return cfg, nil
}

// NewSNSPublisher builds an SNSEventPublisher from the default AWS credential chain
func NewSNSPublisher(ctx context.Context, opts AWSOptions, topicArn string, logger *zap.Logger) (*SNSEventPublisher, error) {
	if topicArn == "" {
		return nil, errors.New("sns topic arn is required")
	}

	cfg, err := loadAWSConfig(ctx, opts)
	if err != nil {
		return nil, err
	}

	client := sns.NewFromConfig(cfg, func(o *sns.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	return NewSNSEventPublisher(client, topicArn, logger), nil
}
