// Package watermill bridges engine notifications onto a Watermill message
// publisher, so deliveries can ride any broker Watermill supports.
package watermill

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	authcore "github.com/rvasily/authcore"
)

const defaultTopic = "authcore.notifications"

// Sink publishes each notification as one JSON message.
type Sink struct {
	publisher message.Publisher
	topic     string
	onError   func(error)
}

// Option configures a [Sink].
type Option func(*Sink)

// WithTopic overrides the default topic.
func WithTopic(topic string) Option {
	return func(s *Sink) { s.topic = topic }
}

// WithErrorHandler installs a callback for publish failures. Without one,
// failures are silently dropped; notification delivery is fire-and-forget.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Sink) { s.onError = fn }
}

// NewSink wraps a Watermill publisher as an [authcore.NotificationSink].
func NewSink(publisher message.Publisher, opts ...Option) *Sink {
	s := &Sink{publisher: publisher, topic: defaultTopic}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type wirePayload struct {
	Kind      string            `json:"kind"`
	SubjectID string            `json:"subject_id"`
	At        int64             `json:"at"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// Deliver implements [authcore.NotificationSink].
func (s *Sink) Deliver(_ context.Context, n authcore.Notification) {
	payload, err := json.Marshal(wirePayload{
		Kind:      string(n.Kind),
		SubjectID: n.SubjectID,
		At:        n.At.Unix(),
		Meta:      n.Meta,
	})
	if err != nil {
		s.fail(err)
		return
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("kind", string(n.Kind))

	if err := s.publisher.Publish(s.topic, msg); err != nil {
		s.fail(err)
	}
}

func (s *Sink) fail(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}
