// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package task implements task persistence and the task lifecycle state
// machine: stores, the per-task event applier, the result aggregator that
// drains event queues into task snapshots, the executor-side updater, and
// push notification dispatch.
package task

import (
	"context"

	a2a "github.com/go-a2a/a2a-core"
)

// Store defines task persistence. Implementations must provide single-key
// atomicity: no partially written task is ever visible to Get. Cross-task
// transactions are not required.
type Store interface {
	// Create persists a new task. It fails with TaskExistsError if a task
	// with the same ID is already stored.
	Create(ctx context.Context, task *a2a.Task) error

	// Get retrieves a task by ID. It fails with a2a.TaskNotFoundError if
	// the task does not exist.
	Get(ctx context.Context, taskID string) (*a2a.Task, error)

	// Save overwrites the stored task atomically, creating it if absent.
	Save(ctx context.Context, task *a2a.Task) error

	// Delete removes a task. It fails with a2a.TaskNotFoundError if the
	// task does not exist.
	Delete(ctx context.Context, taskID string) error

	// Contains reports whether a task with the given ID is stored.
	Contains(ctx context.Context, taskID string) (bool, error)

	// List retrieves tasks, optionally filtered by context ID, with
	// limit/offset paging. An empty contextID matches all tasks.
	List(ctx context.Context, contextID string, limit, offset int) ([]*a2a.Task, error)
}
