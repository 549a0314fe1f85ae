package broker

import (
	"context"
	"sync"

	"github.com/harentsoaR/counsel-api/internal/models"
)

type subscriber struct {
	mu     sync.Mutex
	ch     chan models.Message
	closed bool
	done   chan struct{}
	once   sync.Once
}

// offer never blocks. It reports false when the buffer is full.
func (s *subscriber) offer(msg models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// MemoryBroker fans out inside one process.
type MemoryBroker struct {
	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[*subscriber]struct{})}
}

// Publish never waits on a reader. A subscriber whose buffer is full is
// dropped and its channel closed; it catches up from the stored history.
func (b *MemoryBroker) Publish(ctx context.Context, roomID string, msg models.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	targets := make([]*subscriber, 0, len(b.subs[roomID]))
	for sub := range b.subs[roomID] {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		if !sub.offer(msg) {
			b.unsubscribe(roomID, sub)
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, roomID string) (<-chan models.Message, func(), error) {
	sub := &subscriber{
		ch:   make(chan models.Message, subscriberBuffer),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	if b.subs[roomID] == nil {
		b.subs[roomID] = make(map[*subscriber]struct{})
	}
	b.subs[roomID][sub] = struct{}{}
	b.mu.Unlock()

	cancel := func() { b.unsubscribe(roomID, sub) }

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-sub.done:
		}
	}()

	return sub.ch, cancel, nil
}

func (b *MemoryBroker) unsubscribe(roomID string, sub *subscriber) {
	sub.once.Do(func() {
		close(sub.done)
		b.mu.Lock()
		delete(b.subs[roomID], sub)
		if len(b.subs[roomID]) == 0 {
			delete(b.subs, roomID)
		}
		b.mu.Unlock()
		sub.close()
	})
}
