// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"errors"
	"testing"
	"time"

	a2a "github.com/go-a2a/a2a-core"
)

func TestConsumer_ConsumeAllStopsAtFinalEvent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	queue, err := NewEventQueue(8)
	if err != nil {
		t.Fatal(err)
	}

	events := []a2a.Event{
		a2a.NewStatusUpdateEvent("task-1", "ctx-1", a2a.TaskStateWorking, nil, false),
		a2a.NewArtifactUpdateEvent("task-1", "ctx-1", &a2a.Artifact{ArtifactID: "a-1"}, false, false),
		a2a.NewStatusUpdateEvent("task-1", "ctx-1", a2a.TaskStateCompleted, nil, true),
	}
	for _, ev := range events {
		if err := queue.Enqueue(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	consumer := NewConsumer(queue)
	var got []a2a.Event
	for ev := range consumer.ConsumeAll(ctx) {
		got = append(got, ev)
	}

	if len(got) != len(events) {
		t.Fatalf("consumed %d events, want %d", len(got), len(events))
	}
	if err := consumer.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
	if !queue.IsClosed() {
		t.Error("queue still open after final event")
	}
}

func TestConsumer_ConsumeAllEndsOnClosedQueue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	queue, err := NewEventQueue(8)
	if err != nil {
		t.Fatal(err)
	}
	if err := queue.Enqueue(ctx, a2a.NewStatusUpdateEvent("task-1", "ctx-1", a2a.TaskStateWorking, nil, false)); err != nil {
		t.Fatal(err)
	}
	if err := queue.Close(); err != nil {
		t.Fatal(err)
	}

	consumer := NewConsumer(queue)
	var count int
	for range consumer.ConsumeAll(ctx) {
		count++
	}
	if count != 1 {
		t.Errorf("consumed %d events, want 1", count)
	}
	if err := consumer.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

func TestConsumer_ConsumeAllContextCanceled(t *testing.T) {
	t.Parallel()

	queue, err := NewEventQueue(8)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	consumer := NewConsumer(queue)
	events := consumer.ConsumeAll(ctx)
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Error("received event after context cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after context cancellation")
	}
}

func TestConsumer_SetExecutorError(t *testing.T) {
	t.Parallel()

	queue, err := NewEventQueue(1)
	if err != nil {
		t.Fatal(err)
	}

	consumer := NewConsumer(queue)
	wantErr := errors.New("execution blew up")
	consumer.SetExecutorError(wantErr)

	if got := consumer.Err(); !errors.Is(got, wantErr) {
		t.Errorf("Err() = %v, want %v", got, wantErr)
	}
}

func TestConsumer_ConsumeOne(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	queue, err := NewEventQueue(8)
	if err != nil {
		t.Fatal(err)
	}

	consumer := NewConsumer(queue)
	if _, err := consumer.ConsumeOne(ctx); !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("ConsumeOne() on empty queue error = %v, want %v", err, ErrQueueEmpty)
	}

	want := a2a.NewStatusUpdateEvent("task-1", "ctx-1", a2a.TaskStateWorking, nil, false)
	if err := queue.Enqueue(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := consumer.ConsumeOne(ctx)
	if err != nil {
		t.Fatalf("ConsumeOne() error = %v", err)
	}
	if got != a2a.Event(want) {
		t.Errorf("ConsumeOne() = %v, want %v", got, want)
	}
}
