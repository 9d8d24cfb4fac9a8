// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package event provides the bounded event queue carrying status and
// artifact updates from an executing agent to its consumers, with fan-out
// taps for secondary consumers such as push notification dispatchers.
package event

import (
	"context"
	"sync"

	a2a "github.com/go-a2a/a2a-core"
)

// DefaultMaxQueueSize is the default buffer size for event queues.
const DefaultMaxQueueSize = 1024

// EventQueue is a bounded FIFO queue of A2A events produced by exactly one
// agent executor invocation. Enqueue blocks when the buffer is full, giving
// natural flow control between a fast executor and a slow consumer. Taps
// receive every event enqueued after their creation, in enqueue order.
type EventQueue struct {
	mu       sync.RWMutex
	events   chan a2a.Event
	maxSize  int
	closed   bool
	done     chan struct{}
	once     sync.Once
	children []*EventQueue
}

// NewEventQueue creates an event queue with the given buffer size.
// A size of 0 selects DefaultMaxQueueSize.
func NewEventQueue(maxSize int) (*EventQueue, error) {
	if maxSize < 0 {
		return nil, ErrInvalidQueueSize
	}
	if maxSize == 0 {
		maxSize = DefaultMaxQueueSize
	}

	return &EventQueue{
		events:  make(chan a2a.Event, maxSize),
		maxSize: maxSize,
		done:    make(chan struct{}),
	}, nil
}

// Enqueue adds an event to the queue and to every tap, preserving order.
// It blocks while the buffer is full and returns ErrQueueClosed once the
// queue has been closed.
func (q *EventQueue) Enqueue(ctx context.Context, event a2a.Event) error {
	if event == nil {
		return ErrNilEvent
	}

	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	children := make([]*EventQueue, len(q.children))
	copy(children, q.children)
	q.mu.RUnlock()

	select {
	case q.events <- event:
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// Taps are fed synchronously so every consumer observes the same order.
	for _, child := range children {
		if err := child.Enqueue(ctx, event); err != nil && err != ErrQueueClosed {
			return err
		}
	}
	return nil
}

// Dequeue retrieves the next event in FIFO order. With noWait it returns
// ErrQueueEmpty immediately when no event is buffered; otherwise it blocks
// until an event arrives, the context is canceled, or the queue is closed.
// Events enqueued before closure are always delivered before ErrQueueClosed.
func (q *EventQueue) Dequeue(ctx context.Context, noWait bool) (a2a.Event, error) {
	if noWait {
		select {
		case event := <-q.events:
			return event, nil
		default:
			if q.IsClosed() {
				return nil, ErrQueueClosed
			}
			return nil, ErrQueueEmpty
		}
	}

	select {
	case event := <-q.events:
		return event, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.done:
		// Drain anything enqueued before the close.
		select {
		case event := <-q.events:
			return event, nil
		default:
			return nil, ErrQueueClosed
		}
	}
}

// Tap creates a child queue that receives every event enqueued after this
// call. The child has the same buffer size and is closed with its parent.
func (q *EventQueue) Tap() (*EventQueue, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrQueueClosed
	}

	child, err := NewEventQueue(q.maxSize)
	if err != nil {
		return nil, err
	}
	q.children = append(q.children, child)
	return child, nil
}

// Close marks the queue closed and propagates closure to all taps. Close is
// idempotent. Events already buffered remain dequeueable.
func (q *EventQueue) Close() error {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		children := q.children
		q.mu.Unlock()

		close(q.done)
		for _, child := range children {
			_ = child.Close()
		}
	})
	return nil
}

// IsClosed reports whether the queue has been closed.
func (q *EventQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Len returns the number of currently buffered events.
func (q *EventQueue) Len() int { return len(q.events) }

// Cap returns the buffer capacity.
func (q *EventQueue) Cap() int { return q.maxSize }
