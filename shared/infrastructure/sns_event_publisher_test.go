package infrastructure

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/draftea/booking-system/shared/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	mu      sync.Mutex
	inputs  []*sns.PublishBatchInput
	failIDs map[string]bool
}

func (f *fakeSNS) PublishBatch(_ context.Context, params *sns.PublishBatchInput, _ ...func(*sns.Options)) (*sns.PublishBatchOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, params)

	out := &sns.PublishBatchOutput{}
	for _, entry := range params.PublishBatchRequestEntries {
		if f.failIDs[aws.ToString(entry.Id)] {
			out.Failed = append(out.Failed, types.BatchResultErrorEntry{Id: entry.Id, Code: aws.String("InternalError")})
		}
	}
	return out, nil
}

func TestSNSEventPublisher_Publish_Batches(t *testing.T) {
	client := &fakeSNS{}
	publisher := NewSNSEventPublisher(client, "arn:aws:sns:us-east-1:000000000000:booking-events", nil)

	evts := make([]*events.Event, 0, 12)
	for i := 0; i < 12; i++ {
		evts = append(evts, newSagaEvent(t, fmt.Sprint(i)))
	}

	require.NoError(t, publisher.Publish(context.Background(), evts...))

	require.Len(t, client.inputs, 2)
	total := 0
	for _, input := range client.inputs {
		total += len(input.PublishBatchRequestEntries)
		for _, entry := range input.PublishBatchRequestEntries {
			assert.Nil(t, entry.MessageDeduplicationId)
			assert.Equal(t, events.BookingSagaRequestedEvent.String(), aws.ToString(entry.MessageAttributes["topic"].StringValue))

			decoded, err := events.FromJSON([]byte(aws.ToString(entry.Message)))
			require.NoError(t, err)
			assert.Equal(t, events.BookingSagaRequestedEvent, decoded.Topic)
		}
	}
	assert.Equal(t, 12, total)
}

func TestSNSEventPublisher_Publish_FIFODeduplication(t *testing.T) {
	client := &fakeSNS{}
	publisher := NewSNSEventPublisher(client, "arn:aws:sns:us-east-1:000000000000:booking-events.fifo", nil)

	event := newSagaEvent(t, "7").WithMetadata(events.DeduplicationKey, "booking-saga-7")
	require.NoError(t, publisher.Publish(context.Background(), event))

	entry := client.inputs[0].PublishBatchRequestEntries[0]
	assert.Equal(t, "booking-saga-7", aws.ToString(entry.MessageDeduplicationId))
	assert.Equal(t, "7", aws.ToString(entry.MessageGroupId))
}

func TestSNSEventPublisher_Publish_FailedEntries(t *testing.T) {
	event := newSagaEvent(t, "1")
	client := &fakeSNS{failIDs: map[string]bool{event.ID.String(): true}}
	publisher := NewSNSEventPublisher(client, "arn:aws:sns:us-east-1:000000000000:booking-events", nil)

	err := publisher.Publish(context.Background(), event)

	assert.Error(t, err)
}
