package infrastructure

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// NewSQSSubscriber builds an SQSEventSubscriber from the default AWS credential chain
func NewSQSSubscriber(ctx context.Context, opts AWSOptions, queueURL string, logger *zap.Logger, subscriberOpts ...SQSSubscriberOption) (*SQSEventSubscriber, error) {
	if queueURL == "" {
		return nil, errors.New("sqs queue url is required")
	}

	cfg, err := loadAWSConfig(ctx, opts)
	if err != nil {
		return nil, err
	}

	client := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	return NewSQSEventSubscriber(client, queueURL, logger, subscriberOpts...), nil
}
