package pubsub

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/soundlytics/artistpulse/pkg/models"
)

// MemoryChannel is an in-process Channel used in tests and single-node runs.
type MemoryChannel struct {
	mu   sync.Mutex
	subs map[string][]*memorySubscription
}

// NewMemoryChannel creates an empty MemoryChannel.
func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{subs: make(map[string][]*memorySubscription)}
}

func (c *MemoryChannel) Publish(_ context.Context, jobID uuid.UUID, event models.ProgressEvent) error {
	c.mu.Lock()
	subs := make([]*memorySubscription, len(c.subs[Topic(jobID)]))
	copy(subs, c.subs[Topic(jobID)])
	c.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(event)
	}
	return nil
}

func (c *MemoryChannel) Subscribe(_ context.Context, jobID uuid.UUID) (Subscription, error) {
	sub := &memorySubscription{
		channel: c,
		topic:   Topic(jobID),
		events:  make(chan models.ProgressEvent, 64),
		quit:    make(chan struct{}),
	}
	c.mu.Lock()
	c.subs[sub.topic] = append(c.subs[sub.topic], sub)
	c.mu.Unlock()
	return sub, nil
}

func (c *MemoryChannel) remove(sub *memorySubscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	subs := c.subs[sub.topic]
	for i, s := range subs {
		if s == sub {
			c.subs[sub.topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(c.subs[sub.topic]) == 0 {
		delete(c.subs, sub.topic)
	}
}

type memorySubscription struct {
	channel *MemoryChannel
	topic   string
	events  chan models.ProgressEvent
	quit    chan struct{}
	once    sync.Once

	mu     sync.Mutex
	closed bool
}

func (s *memorySubscription) deliver(event models.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	// quit unblocks a full buffer with a stalled consumer, so Close can
	// always make progress while a Publish holds the lock.
	select {
	case s.events <- event:
	case <-s.quit:
	}
}

func (s *memorySubscription) Events() <-chan models.ProgressEvent {
	return s.events
}

func (s *memorySubscription) Close() error {
	s.channel.remove(s)
	// Signal quit before taking the lock; deliver may be blocked holding it.
	s.once.Do(func() { close(s.quit) })
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return nil
}
