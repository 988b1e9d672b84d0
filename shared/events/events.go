package events

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/draftea/booking-system/shared/models"
)

var (
	ErrInvalidTopic    = errors.New("invalid topic")
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrInvalidReceiver = errors.New("receiver should be a pointer")
)

// Metadata keys understood by the broker transports
const (
	DeduplicationKey = "deduplication_key"
	AttemptKey       = "attempt"
)

// Topic represents an event topic with pattern matching support
type Topic string

func NewTopic(topic string) (Topic, error) {
	if topic == "" {
		return "", ErrInvalidTopic
	}
	return Topic(topic), nil
}

// Matches reports whether the topic matches a pattern. "*" matches one
// dot-separated segment, a leading or trailing "#" matches any suffix or prefix.
func (t Topic) Matches(pattern Topic) bool {
	topicStr := t.String()
	patternStr := pattern.String()

	if patternStr == "#" {
		return true
	}

	if strings.HasPrefix(patternStr, "#") {
		return strings.HasSuffix(topicStr, strings.TrimPrefix(patternStr, "#"))
	}

	if strings.HasSuffix(patternStr, "#") {
		return strings.HasPrefix(topicStr, strings.TrimSuffix(patternStr, "#"))
	}

	return matchPattern(strings.Split(patternStr, "."), strings.Split(topicStr, "."))
}

func (t Topic) String() string {
	return string(t)
}

func matchPattern(patternParts, topicParts []string) bool {
	if len(patternParts) != len(topicParts) {
		return false
	}

	if len(patternParts) == 0 {
		return true
	}

	if patternParts[0] == "*" || patternParts[0] == topicParts[0] {
		return matchPattern(patternParts[1:], topicParts[1:])
	}

	return false
}

// Metadata represents event metadata
type Metadata map[string]string

func (m Metadata) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m Metadata) Set(key string, value string) {
	m[key] = value
}

func (m Metadata) Clone() Metadata {
	clone := Metadata{}
	for k, v := range m {
		clone[k] = v
	}
	return clone
}

// Event is the envelope carried by every broker transport
type Event struct {
	ID          models.ID       `json:"id"`
	AggregateID string          `json:"aggregate_id"`
	Topic       Topic           `json:"topic"`
	Version     string          `json:"version"`
	Payload     json.RawMessage `json:"payload"`
	Metadata    Metadata        `json:"metadata"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Publisher publishes events
type Publisher interface {
	Publish(ctx context.Context, events ...*Event) error
}

// Subscriber subscribes to events
type Subscriber interface {
	Subscribe(ctx context.Context, handler EventHandler) error
	Close() error
}

// EventHandler handles domain events
type EventHandler interface {
	Handle(ctx context.Context, event *Event) error
}

// EventHandlerFunc adapts a function to EventHandler
type EventHandlerFunc func(ctx context.Context, event *Event) error

func (f EventHandlerFunc) Handle(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// NewEvent creates a new event, marshalling data as its payload
func NewEvent(aggregateID string, topic Topic, data interface{}) (*Event, error) {
	if topic == "" {
		return nil, ErrInvalidTopic
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}

	return &Event{
		ID:          models.GenerateUUID(),
		AggregateID: aggregateID,
		Topic:       topic,
		Version:     "1.0",
		Payload:     payload,
		Metadata:    make(Metadata),
		Timestamp:   time.Now().UTC(),
	}, nil
}

// WithMetadata adds metadata
func (e *Event) WithMetadata(key string, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(Metadata)
	}
	e.Metadata.Set(key, value)
	return e
}

// ToJSON converts event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON creates event from JSON
func FromJSON(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	if event.Topic == "" {
		return nil, ErrInvalidTopic
	}
	if event.Metadata == nil {
		event.Metadata = make(Metadata)
	}
	return &event, nil
}

// UnmarshalPayload unmarshals the event payload into the given pointer
func (e *Event) UnmarshalPayload(v interface{}) error {
	if reflect.ValueOf(v).Kind() != reflect.Ptr {
		return ErrInvalidReceiver
	}

	if len(e.Payload) == 0 {
		return ErrInvalidPayload
	}

	return json.Unmarshal(e.Payload, v)
}

// Clone creates a copy of the event
func (e *Event) Clone() *Event {
	clone := *e
	clone.Metadata = e.Metadata.Clone()
	return &clone
}

// Booking saga topics
const (
	BookingSagaRequestedEvent Topic = "booking.saga.requested"
	BookingConfirmedEvent     Topic = "booking.confirmed"
	BookingCancelledEvent     Topic = "booking.cancelled"
)
