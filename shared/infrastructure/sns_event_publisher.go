package infrastructure

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/draftea/booking-system/shared/events"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var _ events.Publisher = (*SNSEventPublisher)(nil)

const maxBatchSize = 10

// SNSAPI is the subset of the SNS client used by the publisher
type SNSAPI interface {
	PublishBatch(ctx context.Context, params *sns.PublishBatchInput, optFns ...func(*sns.Options)) (*sns.PublishBatchOutput, error)
}

// SNSEventPublisher publishes event envelopes to an SNS topic
type SNSEventPublisher struct {
	client   SNSAPI
	topicArn string
	fifo     bool
	logger   *zap.Logger
}

func NewSNSEventPublisher(client SNSAPI, topicArn string, logger *zap.Logger) *SNSEventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SNSEventPublisher{
		client:   client,
		topicArn: topicArn,
		fifo:     strings.HasSuffix(topicArn, ".fifo"),
		logger:   logger,
	}
}

// Publish publishes events to SNS in batches
func (p *SNSEventPublisher) Publish(ctx context.Context, evts ...*events.Event) error {
	if len(evts) == 0 {
		return nil
	}

	gr, ctx := errgroup.WithContext(ctx)

	for _, eventBatch := range splitToChunks(evts, maxBatchSize) {
		eventBatch := eventBatch
		gr.Go(func() error {
			return p.batchPublish(ctx, eventBatch)
		})
	}

	return gr.Wait()
}

func (p *SNSEventPublisher) batchPublish(ctx context.Context, batch []*events.Event) error {
	requests := make([]types.PublishBatchRequestEntry, len(batch))

	for i, event := range batch {
		body, err := event.ToJSON()
		if err != nil {
			return errors.Wrap(err, "failed to marshal event")
		}

		attrs := map[string]types.MessageAttributeValue{
			"topic": {
				DataType:    aws.String("String"),
				StringValue: aws.String(event.Topic.String()),
			},
		}

		for k, v := range event.Metadata {
			if isTransportKey(k) {
				continue
			}
			attrs[k] = types.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(v),
			}
		}

		entry := types.PublishBatchRequestEntry{
			Id:                aws.String(event.ID.String()),
			Message:           aws.String(string(body)),
			MessageAttributes: attrs,
		}

		// Content deduplication only exists on FIFO topics
		if p.fifo {
			dedupeID := event.ID.String()
			if key, ok := event.Metadata.Get(events.DeduplicationKey); ok {
				dedupeID = key
			}
			entry.MessageDeduplicationId = aws.String(dedupeID)
			entry.MessageGroupId = aws.String(event.AggregateID)
		}

		requests[i] = entry
	}

	res, err := p.client.PublishBatch(ctx, &sns.PublishBatchInput{
		TopicArn:                   aws.String(p.topicArn),
		PublishBatchRequestEntries: requests,
	})
	if err != nil {
		return errors.Wrap(err, "failed to publish batch to SNS")
	}

	if len(res.Failed) > 0 {
		for _, entry := range res.Failed {
			p.logger.Error("sns entry rejected",
				zap.String("entry_id", aws.ToString(entry.Id)),
				zap.String("code", aws.ToString(entry.Code)),
				zap.String("reason", aws.ToString(entry.Message)),
			)
		}
		return errors.Errorf("%d of %d events rejected by SNS", len(res.Failed), len(batch))
	}

	return nil
}

func isTransportKey(key string) bool {
	return key == SQSMessageIDKey || key == SQSReceiptHandleKey || key == events.AttemptKey
}

// splitToChunks splits slice into chunks of specified size
func splitToChunks[T any](slice []T, chunkSize int) [][]T {
	var chunks [][]T
	for i := 0; i < len(slice); i += chunkSize {
		end := i + chunkSize
		if end > len(slice) {
			end = len(slice)
		}
		chunks = append(chunks, slice[i:end])
	}
	return chunks
}
