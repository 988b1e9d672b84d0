package infrastructure

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/draftea/booking-system/shared/events"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	mu         sync.Mutex
	deleted    []string
	visibility []int32
	receiveErr error
	attrErr    error
	messages   []types.Message
}

func (f *fakeSQS) ReceiveMessage(context.Context, *sqs.ReceiveMessageInput, ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.receiveErr != nil {
		return nil, f.receiveErr
	}
	out := &sqs.ReceiveMessageOutput{Messages: f.messages}
	f.messages = nil
	return out, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) ChangeMessageVisibility(_ context.Context, params *sqs.ChangeMessageVisibilityInput, _ ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visibility = append(f.visibility, params.VisibilityTimeout)
	return &sqs.ChangeMessageVisibilityOutput{}, nil
}

func (f *fakeSQS) GetQueueAttributes(context.Context, *sqs.GetQueueAttributesInput, ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error) {
	if f.attrErr != nil {
		return nil, f.attrErr
	}
	return &sqs.GetQueueAttributesOutput{}, nil
}

func (f *fakeSQS) deletedHandles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func sqsMessageFor(t *testing.T, event *events.Event, receiveCount string) types.Message {
	t.Helper()
	body, err := event.ToJSON()
	require.NoError(t, err)
	return types.Message{
		MessageId:     aws.String("msg-" + event.AggregateID),
		ReceiptHandle: aws.String("rh-" + event.AggregateID),
		Body:          aws.String(string(body)),
		Attributes: map[string]string{
			string(types.MessageSystemAttributeNameApproximateReceiveCount): receiveCount,
		},
	}
}

func TestDecodeSQSBody(t *testing.T) {
	event := newSagaEvent(t, "3")
	raw, err := event.ToJSON()
	require.NoError(t, err)

	decoded, err := decodeSQSBody(string(raw))
	require.NoError(t, err)
	assert.Equal(t, event.ID, decoded.ID)

	wrapped, err := json.Marshal(snsNotification{Type: "Notification", Message: string(raw)})
	require.NoError(t, err)

	decoded, err = decodeSQSBody(string(wrapped))
	require.NoError(t, err)
	assert.Equal(t, events.BookingSagaRequestedEvent, decoded.Topic)

	_, err = decodeSQSBody("not json")
	assert.Error(t, err)
}

func TestSQSEventSubscriber_Clean(t *testing.T) {
	event := newSagaEvent(t, "1")

	tests := []struct {
		name               string
		receiveCount       string
		handlerErr         error
		expectedDeleted    int
		expectedVisibility int
	}{
		{name: "success deletes", receiveCount: "1", expectedDeleted: 1},
		{name: "failure extends visibility", receiveCount: "2", handlerErr: errors.New("boom"), expectedVisibility: 1},
		{name: "failure at max receives deletes", receiveCount: "5", handlerErr: errors.New("boom"), expectedDeleted: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeSQS{}
			subscriber := NewSQSEventSubscriber(client, "http://localhost/queue", nil, WithMaxReceiveCount(5))

			err := subscriber.clean(context.Background(), &sqsMessage{
				Message: sqsMessageFor(t, event, tt.receiveCount),
				Event:   event,
				Err:     tt.handlerErr,
			})

			require.NoError(t, err)
			assert.Len(t, client.deleted, tt.expectedDeleted)
			assert.Len(t, client.visibility, tt.expectedVisibility)
		})
	}
}

func TestSQSEventSubscriber_Subscribe(t *testing.T) {
	event := newSagaEvent(t, "9")
	client := &fakeSQS{messages: []types.Message{sqsMessageFor(t, event, "1")}}
	subscriber := NewSQSEventSubscriber(client, "http://localhost/queue", nil,
		WithWorkers(1), WithReaders(1), WithWaitTime(0, 10*time.Millisecond))

	handled := make(chan *events.Event, 1)
	err := subscriber.Subscribe(context.Background(), events.EventHandlerFunc(func(ctx context.Context, e *events.Event) error {
		handled <- e
		return nil
	}))
	require.NoError(t, err)
	assert.ErrorIs(t, subscriber.Subscribe(context.Background(), nil), ErrSubscriberRunning)

	received := <-handled
	assert.Equal(t, event.ID, received.ID)
	attempt, _ := received.Metadata.Get(events.AttemptKey)
	assert.Equal(t, "1", attempt)

	assert.Eventually(t, func() bool { return len(client.deletedHandles()) == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, subscriber.Close())
}

func TestSQSEventSubscriber_ExtendsConfiguredVisibilityTimeout(t *testing.T) {
	event := newSagaEvent(t, "4")
	client := &fakeSQS{}
	subscriber := NewSQSEventSubscriber(client, "http://localhost/queue", nil, WithVisibilityTimeout(120))

	err := subscriber.clean(context.Background(), &sqsMessage{
		Message: sqsMessageFor(t, event, "1"),
		Event:   event,
		Err:     errors.New("store unavailable"),
	})

	require.NoError(t, err)
	assert.Equal(t, []int32{120}, client.visibility)
}

func TestSQSEventSubscriber_Check(t *testing.T) {
	client := &fakeSQS{}
	subscriber := NewSQSEventSubscriber(client, "http://localhost/queue", nil)

	assert.Equal(t, "sqs", subscriber.Name())
	assert.NoError(t, subscriber.Check(context.Background()))

	client.attrErr = errors.New("AWS.SimpleQueueService.NonExistentQueue")
	assert.Error(t, subscriber.Check(context.Background()))
}
