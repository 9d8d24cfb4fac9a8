// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import "errors"

var (
	// ErrQueueClosed is returned when enqueueing to, or dequeueing from, a
	// closed and drained queue.
	ErrQueueClosed = errors.New("event queue is closed")

	// ErrQueueEmpty is returned by a non-blocking dequeue on an empty queue.
	ErrQueueEmpty = errors.New("event queue is empty")

	// ErrInvalidQueueSize is returned when creating a queue with a negative
	// buffer size.
	ErrInvalidQueueSize = errors.New("queue size cannot be negative")

	// ErrNilEvent is returned when enqueueing a nil event.
	ErrNilEvent = errors.New("event cannot be nil")

	// ErrQueueNotFound is returned by the manager when no queue exists for
	// a task.
	ErrQueueNotFound = errors.New("no event queue for task")

	// ErrQueueExists is returned by the manager when a queue already exists
	// for a task.
	ErrQueueExists = errors.New("event queue already exists for task")
)
