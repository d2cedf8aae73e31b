// Package pubsub fans build progress out to interested subscribers, such as
// browser clients following a rebuild over Server-Sent Events.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrClosed indicates use of a closed publisher.
var ErrClosed = errors.New("pubsub: publisher closed")

// TopicBuildStatus carries BuildStatus events.
const TopicBuildStatus = "build_status"

// Event is one published message.
type Event struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"` // e.g. "loading", "finalizing", "ready", "error"
	Data    json.RawMessage `json:"data"`
	Version int             `json:"version"` // per-topic sequence number
}

// Subscription receives the events of one topic.
type Subscription interface {
	Topic() string
	Events() <-chan Event
	Close() error
}

// Publisher manages subscriptions and event publishing.
type Publisher interface {
	// Subscribe creates a subscription. Cancelling ctx closes it.
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to every subscriber of topic without blocking.
	Publish(topic string, eventType string, data any) error

	Close() error
}

// BuildStatus reports the progress of one build run.
type BuildStatus struct {
	RunID   string `json:"runId"`
	State   string `json:"state"`
	Message string `json:"message"`
	Step    int    `json:"step"` // 1-based
	Total   int    `json:"total"`
}
