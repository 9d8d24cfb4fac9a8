// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"errors"
	"sync"

	a2a "github.com/go-a2a/a2a-core"
)

// Consumer pulls events off an EventQueue until the stream ends. The stream
// ends at the first final event (see a2a.IsFinalEvent) or when the queue is
// closed and drained.
type Consumer struct {
	queue *EventQueue

	mu  sync.RWMutex
	err error
}

// NewConsumer creates a consumer for the given queue.
func NewConsumer(queue *EventQueue) *Consumer {
	return &Consumer{queue: queue}
}

// ConsumeOne attempts a single non-blocking dequeue.
func (c *Consumer) ConsumeOne(ctx context.Context) (a2a.Event, error) {
	return c.queue.Dequeue(ctx, true)
}

// ConsumeAll returns a channel yielding events in enqueue order. The channel
// is closed after the first final event, when the queue closes, or when the
// context is canceled. The final event closes the underlying queue so the
// producer cannot keep writing past the end of the stream.
func (c *Consumer) ConsumeAll(ctx context.Context) <-chan a2a.Event {
	events := make(chan a2a.Event)

	go func() {
		defer close(events)

		for {
			event, err := c.queue.Dequeue(ctx, false)
			if err != nil {
				if !errors.Is(err, ErrQueueClosed) && !errors.Is(err, context.Canceled) {
					c.setErr(err)
				}
				return
			}

			select {
			case events <- event:
			case <-ctx.Done():
				return
			}

			if a2a.IsFinalEvent(event) {
				_ = c.queue.Close()
				return
			}
		}
	}()

	return events
}

// SetExecutorError records a failure reported by the producing executor so
// the drain loop can surface it.
func (c *Consumer) SetExecutorError(err error) {
	c.setErr(err)
}

// Err returns the first error recorded during consumption, if any.
func (c *Consumer) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

func (c *Consumer) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}
