package broker

import (
	"errors"
	"sync"
)

// Broker implements a fan-out message dispatcher. Every message published is
// delivered to each currently registered subscriber exactly once, in publish
// order. A slow or stuck subscriber never delays delivery to the others: each
// subscriber drains its own queue from a dedicated goroutine.
type Broker[T any] struct {
	mu          sync.Mutex
	subscribers map[string]*subscriber[T]
	closed      bool
}

type subscriber[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []T
	closed bool
	ch     chan T
	done   chan struct{}
}

func newSubscriber[T any](size int) *subscriber[T] {
	s := &subscriber[T]{
		ch:   make(chan T, size),
		done: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.drain()
	return s
}

func (s *subscriber[T]) drain() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			close(s.ch)
			return
		}
		t := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.ch <- t:
		case <-s.done:
			// Receiver is gone; drop the message and loop so the closed check
			// above shuts the channel down.
		}
	}
}

func (s *subscriber[T]) publish(t T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, t)
	s.cond.Signal()
}

func (s *subscriber[T]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	s.cond.Signal()
}

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subscribers: make(map[string]*subscriber[T]),
	}
}

// Subscribe registers a new subscriber with the given name and channel buffer
// size. It returns a receive-only channel that will receive published
// messages; the channel is closed on Unsubscribe or Close.
func (b *Broker[T]) Subscribe(name string, size int) <-chan T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if old, ok := b.subscribers[name]; ok {
		old.close()
	}

	s := newSubscriber[T](size)
	b.subscribers[name] = s
	return s.ch
}

// Unsubscribe removes the named subscriber and closes its channel.
func (b *Broker[T]) Unsubscribe(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.subscribers[name]; ok {
		s.close()
		delete(b.subscribers, name)
	}
}

// Publish enqueues the message for every registered subscriber.
func (b *Broker[T]) Publish(t T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.New("broker closed")
	}

	for _, s := range b.subscribers {
		s.publish(t)
	}

	return nil
}

// Close closes all subscriber channels, signaling that no more messages will
// be published. Undelivered queued messages are discarded.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.subscribers {
		s.close()
	}

	b.subscribers = make(map[string]*subscriber[T])
	b.closed = true
}
