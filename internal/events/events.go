// Package events publishes catalog lifecycle events to a message broker.
// Publishing is best-effort: item operations never fail because a broker is
// unreachable.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shelfsnap/apiserver/config"
)

const (
	TypeItemCreated = "item.created"
	TypeItemDeleted = "item.deleted"

	itemChannel = "shelfsnap.items"
)

// ItemEvent is the payload published when a catalog item changes.
type ItemEvent struct {
	Type       string    `json:"type"`
	ItemID     string    `json:"itemId"`
	ImageCount int       `json:"imageCount,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Backend is a broker-agnostic publisher.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// Publisher wraps a backend with typed item events. A nil *Publisher is
// valid and publishes nothing.
type Publisher struct {
	backend Backend
}

// NewPublisher constructs a Publisher for the provided backend.
func NewPublisher(backend Backend) *Publisher {
	return &Publisher{backend: backend}
}

// NewFromConfig selects and constructs the configured broker backend. A
// "none" (or empty) driver yields a nil Publisher.
func NewFromConfig(ctx context.Context, cfg config.EventsConfig) (*Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "none":
		return nil, nil
	case "rabbitmq":
		backend, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return NewPublisher(backend), nil
	case "pubsub":
		backend, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return NewPublisher(backend), nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}

// PublishItemEvent publishes one item event on the items channel.
func (p *Publisher) PublishItemEvent(ctx context.Context, event ItemEvent) error {
	if p == nil {
		return nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.backend.Publish(ctx, itemChannel, data, map[string]string{"type": event.Type})
	return err
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.backend.Close()
}
