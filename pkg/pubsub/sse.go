package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/ritzau/distgraph/pkg/logging"
)

// TopicConfig configures buffering for a topic.
type TopicConfig struct {
	BufferSize int  // number of events kept for late subscribers
	ReplayAll  bool // replay the whole buffer instead of only the last event
}

// SSEPublisher is an in-memory Publisher whose events are written to
// clients with WriteSSE.
type SSEPublisher struct {
	mu          sync.Mutex
	subs        map[string]map[*sseSubscription]struct{}
	version     map[string]int
	eventBuffer map[string][]Event
	topicConfig map[string]TopicConfig
	closed      bool
}

// NewSSEPublisher creates a publisher.
func NewSSEPublisher() *SSEPublisher {
	return &SSEPublisher{
		subs:        make(map[string]map[*sseSubscription]struct{}),
		version:     make(map[string]int),
		eventBuffer: make(map[string][]Event),
		topicConfig: make(map[string]TopicConfig),
	}
}

// ConfigureTopic sets buffering for a topic.
func (p *SSEPublisher) ConfigureTopic(topic string, config TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topicConfig[topic] = config
}

// Subscribe creates a subscription and replays buffered events to it.
func (p *SSEPublisher) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}

	sub := &sseSubscription{
		topic:     topic,
		events:    make(chan Event, 100),
		publisher: p,
	}
	if p.subs[topic] == nil {
		p.subs[topic] = make(map[*sseSubscription]struct{})
	}
	p.subs[topic][sub] = struct{}{}

	replay := p.eventBuffer[topic]
	if !p.topicConfig[topic].ReplayAll && len(replay) > 1 {
		replay = replay[len(replay)-1:]
	}
	for _, event := range replay {
		sub.events <- event // fits: buffer sizes are far below channel capacity
	}
	if len(replay) > 0 {
		logging.Debug("replayed events to new subscriber", "topic", topic, "count", len(replay))
	}

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()

	return sub, nil
}

// Publish sends an event to all subscribers of a topic.
func (p *SSEPublisher) Publish(topic string, eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	p.version[topic]++
	event := Event{
		Topic:   topic,
		Type:    eventType,
		Data:    jsonData,
		Version: p.version[topic],
	}

	if size := p.topicConfig[topic].BufferSize; size > 0 {
		buffer := append(p.eventBuffer[topic], event)
		if len(buffer) > size {
			buffer = buffer[len(buffer)-size:]
		}
		p.eventBuffer[topic] = buffer
	}

	for sub := range p.subs[topic] {
		select {
		case sub.events <- event:
		default:
			logging.Warn("subscription channel full, dropping event", "topic", topic, "version", event.Version)
		}
	}
	return nil
}

// Close shuts down the publisher and closes every subscription channel.
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	for _, subs := range p.subs {
		for sub := range subs {
			sub.closeEvents()
		}
	}
	p.subs = make(map[string]map[*sseSubscription]struct{})
	return nil
}

// unsubscribe removes sub and closes its channel. Caller holds no locks.
func (p *SSEPublisher) unsubscribe(sub *sseSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if subs := p.subs[sub.topic]; subs != nil {
		if _, ok := subs[sub]; ok {
			delete(subs, sub)
			sub.closeEvents()
		}
		if len(subs) == 0 {
			delete(p.subs, sub.topic)
		}
	}
}

type sseSubscription struct {
	topic     string
	events    chan Event
	publisher *SSEPublisher
	once      sync.Once
	eventsOff sync.Once
}

func (s *sseSubscription) Topic() string { return s.topic }

func (s *sseSubscription) Events() <-chan Event { return s.events }

func (s *sseSubscription) Close() error {
	s.once.Do(func() { s.publisher.unsubscribe(s) })
	return nil
}

// closeEvents closes the channel once. Called with the publisher lock held.
func (s *sseSubscription) closeEvents() {
	s.eventsOff.Do(func() { close(s.events) })
}

// WriteSSE writes an event in Server-Sent Events framing: "data: {json}\n\n".
func WriteSSE(w io.Writer, event Event) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", jsonData)
	return err
}
