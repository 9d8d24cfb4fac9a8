// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"fmt"
	"time"
)

// Event kinds used as the JSON discriminator on event objects.
const (
	EventKindMessage        = "message"
	EventKindTask           = "task"
	EventKindStatusUpdate   = "status-update"
	EventKindArtifactUpdate = "artifact-update"
)

// Event is the unit flowing through an event queue from an executing agent
// to its consumers: a Message, a Task snapshot, a TaskStatusUpdateEvent or a
// TaskArtifactUpdateEvent.
type Event interface {
	// EventKind returns the discriminator for the event type.
	EventKind() string

	// EventTaskID returns the task the event belongs to, or the empty
	// string for messages not bound to a task.
	EventTaskID() string
}

var (
	_ Event = (*Message)(nil)
	_ Event = (*Task)(nil)
	_ Event = (*TaskStatusUpdateEvent)(nil)
	_ Event = (*TaskArtifactUpdateEvent)(nil)
)

// EventKind returns the message event discriminator.
func (m *Message) EventKind() string { return EventKindMessage }

// EventTaskID returns the task the message belongs to, if any.
func (m *Message) EventTaskID() string { return m.TaskID }

// EventKind returns the task event discriminator.
func (t *Task) EventKind() string { return EventKindTask }

// EventTaskID returns the task ID.
func (t *Task) EventTaskID() string { return t.ID }

// TaskStatusUpdateEvent signals a change of task status. Final marks the
// last event of the stream; it is the only mechanism that moves a task into
// a terminal state.
type TaskStatusUpdateEvent struct {
	Kind      string         `json:"kind"`
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	Final     bool           `json:"final"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

// EventKind returns the status update discriminator.
func (e *TaskStatusUpdateEvent) EventKind() string { return EventKindStatusUpdate }

// EventTaskID returns the task the update belongs to.
func (e *TaskStatusUpdateEvent) EventTaskID() string { return e.TaskID }

// Validate ensures the TaskStatusUpdateEvent is valid.
func (e *TaskStatusUpdateEvent) Validate() error {
	if e.TaskID == "" {
		return fmt.Errorf("status update task ID cannot be empty")
	}
	if err := e.Status.Validate(); err != nil {
		return fmt.Errorf("status update status is invalid: %w", err)
	}
	if e.Status.State.Terminal() && !e.Final {
		return fmt.Errorf("terminal state %q requires final=true", e.Status.State)
	}
	return nil
}

// TaskArtifactUpdateEvent carries a full or incremental artifact produced by
// the executor. Append appends the chunk's parts to an existing artifact
// with the same ID instead of replacing it; LastChunk marks the artifact as
// complete.
type TaskArtifactUpdateEvent struct {
	Kind      string         `json:"kind"`
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Artifact  *Artifact      `json:"artifact"`
	Append    bool           `json:"append,omitzero"`
	LastChunk bool           `json:"lastChunk,omitzero"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

// EventKind returns the artifact update discriminator.
func (e *TaskArtifactUpdateEvent) EventKind() string { return EventKindArtifactUpdate }

// EventTaskID returns the task the update belongs to.
func (e *TaskArtifactUpdateEvent) EventTaskID() string { return e.TaskID }

// Validate ensures the TaskArtifactUpdateEvent is valid.
func (e *TaskArtifactUpdateEvent) Validate() error {
	if e.TaskID == "" {
		return fmt.Errorf("artifact update task ID cannot be empty")
	}
	if e.Artifact == nil {
		return fmt.Errorf("artifact update artifact cannot be nil")
	}
	return e.Artifact.Validate()
}

// NewStatusUpdateEvent creates a status update for the given task.
func NewStatusUpdateEvent(taskID, contextID string, state TaskState, message *Message, final bool) *TaskStatusUpdateEvent {
	return &TaskStatusUpdateEvent{
		Kind:      EventKindStatusUpdate,
		TaskID:    taskID,
		ContextID: contextID,
		Status: TaskStatus{
			State:     state,
			Message:   message,
			Timestamp: time.Now().UTC(),
		},
		Final: final,
	}
}

// NewArtifactUpdateEvent creates an artifact update for the given task.
func NewArtifactUpdateEvent(taskID, contextID string, artifact *Artifact, append, lastChunk bool) *TaskArtifactUpdateEvent {
	return &TaskArtifactUpdateEvent{
		Kind:      EventKindArtifactUpdate,
		TaskID:    taskID,
		ContextID: contextID,
		Artifact:  artifact,
		Append:    append,
		LastChunk: lastChunk,
	}
}

// IsFinalEvent reports whether the event terminates its stream: a status
// update marked final, any message, or a task snapshot in a terminal or
// interrupted state.
func IsFinalEvent(event Event) bool {
	switch e := event.(type) {
	case *TaskStatusUpdateEvent:
		return e.Final
	case *Message:
		return true
	case *Task:
		return e.Status.State.Terminal() || e.Status.State.Interrupted()
	default:
		return false
	}
}
