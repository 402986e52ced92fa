package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yurtlab/pjinventory/internal/equipment"
)

// Publisher is the part of Client the EventPublisher needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// EventPublisher publishes lifecycle events as JSON, one topic per
// projector or bulb serial. Events are not retained: the inventory database
// holds current state.
type EventPublisher struct {
	pub    Publisher
	topics Topics
	qos    byte
	now    func() time.Time
}

// NewEventPublisher returns an EventPublisher that sends through c.
func NewEventPublisher(c *Client) *EventPublisher {
	return NewEventPublisherWith(c, c.Topics(), c.QoS())
}

// NewEventPublisherWith returns an EventPublisher over any Publisher.
func NewEventPublisherWith(pub Publisher, topics Topics, qos byte) *EventPublisher {
	return &EventPublisher{
		pub:    pub,
		topics: topics,
		qos:    qos,
		now:    time.Now,
	}
}

// PublishEvent stamps the event with an id and timestamp when they are unset
// and publishes it on the topic for its kind and serial.
func (p *EventPublisher) PublishEvent(ctx context.Context, event equipment.Event) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	topic, err := p.topic(event)
	if err != nil {
		return err
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: encoding event: %w", ErrPublishFailed, err)
	}
	return p.pub.Publish(topic, payload, p.qos, false)
}

func (p *EventPublisher) topic(event equipment.Event) (string, error) {
	if event.Serial == "" {
		return "", fmt.Errorf("%w: missing serial", ErrInvalidEvent)
	}
	switch event.Kind {
	case equipment.EventProjector:
		return p.topics.ProjectorEvent(event.Serial), nil
	case equipment.EventBulb:
		return p.topics.BulbEvent(event.Serial), nil
	default:
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, event.Kind)
	}
}
