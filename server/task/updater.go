// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	a2a "github.com/go-a2a/a2a-core"
	"github.com/go-a2a/a2a-core/server/event"
)

// ErrTaskTerminal is returned by Updater methods invoked after a terminal
// update has already been emitted.
var ErrTaskTerminal = errors.New("task already reached a terminal state")

// Updater is the executor-side helper for publishing task lifecycle events.
// It stamps the correct task and context IDs, marks terminal transitions
// final, and refuses further updates once a terminal event has been
// emitted, so an executor cannot produce two terminal transitions.
type Updater struct {
	queue     *event.EventQueue
	taskID    string
	contextID string

	mu       sync.Mutex
	terminal bool
}

// NewUpdater creates an Updater publishing to queue for the given task.
func NewUpdater(queue *event.EventQueue, taskID, contextID string) (*Updater, error) {
	if queue == nil {
		return nil, fmt.Errorf("event queue cannot be nil")
	}
	if taskID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}
	if contextID == "" {
		return nil, fmt.Errorf("context ID cannot be empty")
	}
	return &Updater{queue: queue, taskID: taskID, contextID: contextID}, nil
}

// UpdateStatus publishes a status transition, optionally carrying a message.
// Terminal states are emitted with the final flag set.
func (u *Updater) UpdateStatus(ctx context.Context, state a2a.TaskState, message *a2a.Message) error {
	u.mu.Lock()
	if u.terminal {
		u.mu.Unlock()
		return ErrTaskTerminal
	}
	// Terminal and interrupted states both end the current stream, but only
	// terminal ones latch the updater shut: an interrupted task resumes with
	// a fresh execution.
	final := state.Terminal() || state.Interrupted()
	if state.Terminal() {
		u.terminal = true
	}
	u.mu.Unlock()

	if message != nil {
		message.TaskID = u.taskID
		message.ContextID = u.contextID
	}
	return u.queue.Enqueue(ctx, a2a.NewStatusUpdateEvent(u.taskID, u.contextID, state, message, final))
}

// StartWork transitions the task to working.
func (u *Updater) StartWork(ctx context.Context, message *a2a.Message) error {
	return u.UpdateStatus(ctx, a2a.TaskStateWorking, message)
}

// Complete transitions the task to completed.
func (u *Updater) Complete(ctx context.Context, message *a2a.Message) error {
	return u.UpdateStatus(ctx, a2a.TaskStateCompleted, message)
}

// Failed transitions the task to failed.
func (u *Updater) Failed(ctx context.Context, message *a2a.Message) error {
	return u.UpdateStatus(ctx, a2a.TaskStateFailed, message)
}

// Reject transitions the task to rejected.
func (u *Updater) Reject(ctx context.Context, message *a2a.Message) error {
	return u.UpdateStatus(ctx, a2a.TaskStateRejected, message)
}

// Cancel transitions the task to canceled.
func (u *Updater) Cancel(ctx context.Context, message *a2a.Message) error {
	return u.UpdateStatus(ctx, a2a.TaskStateCanceled, message)
}

// RequiresInput pauses the task for more input from the caller.
func (u *Updater) RequiresInput(ctx context.Context, message *a2a.Message) error {
	return u.UpdateStatus(ctx, a2a.TaskStateInputRequired, message)
}

// RequiresAuth pauses the task for out-of-band authentication.
func (u *Updater) RequiresAuth(ctx context.Context, message *a2a.Message) error {
	return u.UpdateStatus(ctx, a2a.TaskStateAuthRequired, message)
}

// AddArtifact publishes an artifact produced by the executor. A zero
// artifact ID is filled in with a generated one.
func (u *Updater) AddArtifact(ctx context.Context, artifact *a2a.Artifact) error {
	return u.emitArtifact(ctx, artifact, false, false)
}

// AppendArtifact publishes an incremental chunk for an existing artifact.
// lastChunk marks the artifact as complete.
func (u *Updater) AppendArtifact(ctx context.Context, artifact *a2a.Artifact, lastChunk bool) error {
	return u.emitArtifact(ctx, artifact, true, lastChunk)
}

func (u *Updater) emitArtifact(ctx context.Context, artifact *a2a.Artifact, append, lastChunk bool) error {
	if artifact == nil {
		return fmt.Errorf("artifact cannot be nil")
	}

	u.mu.Lock()
	if u.terminal {
		u.mu.Unlock()
		return ErrTaskTerminal
	}
	u.mu.Unlock()

	if artifact.ArtifactID == "" {
		artifact.ArtifactID = uuid.NewString()
	}
	return u.queue.Enqueue(ctx, a2a.NewArtifactUpdateEvent(u.taskID, u.contextID, artifact, append, lastChunk))
}

// TaskID returns the task ID the updater is bound to.
func (u *Updater) TaskID() string { return u.taskID }

// ContextID returns the context ID the updater is bound to.
func (u *Updater) ContextID() string { return u.contextID }

// NewAgentMessage builds an agent message pre-bound to the updater's task.
func (u *Updater) NewAgentMessage(parts []a2a.Part) *a2a.Message {
	return &a2a.Message{
		Kind:      a2a.EventKindMessage,
		Role:      a2a.RoleAgent,
		MessageID: uuid.NewString(),
		ContextID: u.contextID,
		TaskID:    u.taskID,
		Parts:     parts,
	}
}
