// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"fmt"
	"log/slog"

	a2a "github.com/go-a2a/a2a-core"
	"github.com/go-a2a/a2a-core/server/event"
)

// Aggregator drains an event consumer through a Manager and reduces the
// stream to the result of a message/send call: either a direct Message
// reply from the agent, or the final state of the task.
type Aggregator struct {
	manager *Manager
	logger  *slog.Logger
}

// NewAggregator creates an Aggregator over the given manager.
func NewAggregator(manager *Manager, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{manager: manager, logger: logger}
}

// Result is the outcome of a fully drained stream. Exactly one of Message
// or Task is set.
type Result struct {
	Message *a2a.Message
	Task    *a2a.Task
}

// ConsumeAll drains the consumer to completion, applying every event to the
// task. If the agent replies with a bare Message the message is returned
// immediately and the task record is left untouched. Otherwise the task in
// its final observed state is returned.
func (a *Aggregator) ConsumeAll(ctx context.Context, consumer *event.Consumer) (*Result, error) {
	for ev := range consumer.ConsumeAll(ctx) {
		if message, ok := ev.(*a2a.Message); ok {
			return &Result{Message: message}, nil
		}
		if err := a.manager.Process(ctx, ev); err != nil {
			return nil, err
		}
	}
	if err := consumer.Err(); err != nil {
		return nil, err
	}

	task, err := a.manager.Task(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregate task result: %w", err)
	}
	return &Result{Task: task}, nil
}

// ConsumeAndBreakOnInterrupt drains like ConsumeAll but returns as soon as
// the task enters an interrupted state (input-required or auth-required).
// Consumption then continues on a background goroutine so that late events
// from the executor still reach the store.
func (a *Aggregator) ConsumeAndBreakOnInterrupt(ctx context.Context, consumer *event.Consumer) (*Result, error) {
	events := consumer.ConsumeAll(ctx)
	for ev := range events {
		if message, ok := ev.(*a2a.Message); ok {
			return &Result{Message: message}, nil
		}
		if err := a.manager.Process(ctx, ev); err != nil {
			return nil, err
		}

		status, ok := ev.(*a2a.TaskStatusUpdateEvent)
		if ok && status.Status.State.Interrupted() {
			go a.continueConsuming(context.WithoutCancel(ctx), events)
			break
		}
	}
	if err := consumer.Err(); err != nil {
		return nil, err
	}

	task, err := a.manager.Task(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregate task result: %w", err)
	}
	return &Result{Task: task}, nil
}

// ConsumeAndEmit drains the consumer, applying each event to the task before
// forwarding it on the returned channel. The channel preserves queue order
// and is closed when the stream ends.
func (a *Aggregator) ConsumeAndEmit(ctx context.Context, consumer *event.Consumer) <-chan a2a.Event {
	out := make(chan a2a.Event)
	go func() {
		defer close(out)
		for ev := range consumer.ConsumeAll(ctx) {
			if _, ok := ev.(*a2a.Message); !ok {
				if err := a.manager.Process(ctx, ev); err != nil {
					a.logger.ErrorContext(ctx, "failed to apply event",
						"task_id", a.manager.TaskID(), "error", err)
					return
				}
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (a *Aggregator) continueConsuming(ctx context.Context, events <-chan a2a.Event) {
	for ev := range events {
		if _, ok := ev.(*a2a.Message); ok {
			continue
		}
		if err := a.manager.Process(ctx, ev); err != nil {
			a.logger.ErrorContext(ctx, "failed to apply event after interrupt",
				"task_id", a.manager.TaskID(), "error", err)
			return
		}
	}
}
