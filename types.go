// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"fmt"
	"time"
)

// Message is one turn of dialogue between caller and agent. A message is
// immutable once emitted.
type Message struct {
	Kind      string         `json:"kind"`
	Role      Role           `json:"role"`
	MessageID string         `json:"messageId"`
	ContextID string         `json:"contextId,omitzero"`
	TaskID    string         `json:"taskId,omitzero"`
	Parts     []Part         `json:"parts"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the Message is valid.
func (m *Message) Validate() error {
	if m.Role != RoleUser && m.Role != RoleAgent {
		return fmt.Errorf("invalid message role: %q", m.Role)
	}
	if m.MessageID == "" {
		return fmt.Errorf("message ID cannot be empty")
	}
	if len(m.Parts) == 0 {
		return fmt.Errorf("message must contain at least one part")
	}
	for i, part := range m.Parts {
		if err := part.Validate(); err != nil {
			return fmt.Errorf("message part at index %d is invalid: %w", i, err)
		}
	}
	return nil
}

// TaskStatus is the current state of a task together with the last status
// message from the agent, if any.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitzero"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Validate ensures the TaskStatus is valid.
func (s *TaskStatus) Validate() error {
	switch s.State {
	case TaskStateSubmitted, TaskStateWorking, TaskStateInputRequired,
		TaskStateAuthRequired, TaskStateCompleted, TaskStateCanceled,
		TaskStateFailed, TaskStateRejected:
	default:
		return fmt.Errorf("invalid task state: %q", s.State)
	}
	if s.Message != nil {
		if err := s.Message.Validate(); err != nil {
			return fmt.Errorf("status message is invalid: %w", err)
		}
	}
	return nil
}

// Artifact is a named, durable output of a task, as opposed to a
// conversational message.
type Artifact struct {
	ArtifactID  string         `json:"artifactId"`
	Name        string         `json:"name,omitzero"`
	Description string         `json:"description,omitzero"`
	Parts       []Part         `json:"parts"`
	Extensions  []string       `json:"extensions,omitzero"`
	Metadata    map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the Artifact is valid.
func (a *Artifact) Validate() error {
	if a.ArtifactID == "" {
		return fmt.Errorf("artifact ID cannot be empty")
	}
	if len(a.Parts) == 0 {
		return fmt.Errorf("artifact must contain at least one part")
	}
	for i, part := range a.Parts {
		if err := part.Validate(); err != nil {
			return fmt.Errorf("artifact part at index %d is invalid: %w", i, err)
		}
	}
	return nil
}

// Task is the unit of work tracked by the lifecycle engine. ID and ContextID
// are immutable once set; Status, History and Artifacts are mutated only by
// the task manager in response to executor events.
type Task struct {
	Kind      string         `json:"kind"`
	ID        string         `json:"id"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	History   []*Message     `json:"history,omitzero"`
	Artifacts []*Artifact    `json:"artifacts,omitzero"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the Task is valid.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}
	if t.ContextID == "" {
		return fmt.Errorf("task context ID cannot be empty")
	}
	if err := t.Status.Validate(); err != nil {
		return fmt.Errorf("task status is invalid: %w", err)
	}
	for i, message := range t.History {
		if message == nil {
			return fmt.Errorf("history message at index %d cannot be nil", i)
		}
		if err := message.Validate(); err != nil {
			return fmt.Errorf("history message at index %d is invalid: %w", i, err)
		}
	}
	for i, artifact := range t.Artifacts {
		if artifact == nil {
			return fmt.Errorf("artifact at index %d cannot be nil", i)
		}
		if err := artifact.Validate(); err != nil {
			return fmt.Errorf("artifact at index %d is invalid: %w", i, err)
		}
	}
	return nil
}

// TruncatedHistory returns a shallow copy of the task with History limited
// to the most recent n messages. n < 0 keeps the full history, n == 0 drops
// it entirely.
func (t *Task) TruncatedHistory(n int) *Task {
	if n < 0 || len(t.History) <= n {
		return t
	}
	clone := *t
	if n == 0 {
		clone.History = nil
		return &clone
	}
	clone.History = t.History[len(t.History)-n:]
	return &clone
}

// PushNotificationConfig is a caller-supplied callback endpoint for
// out-of-band task updates.
type PushNotificationConfig struct {
	ID             string              `json:"id,omitzero"`
	URL            string              `json:"url"`
	Token          string              `json:"token,omitzero"`
	Authentication *AuthenticationInfo `json:"authentication,omitzero"`
}

// Validate ensures the PushNotificationConfig is valid.
func (c *PushNotificationConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("push notification URL cannot be empty")
	}
	return nil
}

// AuthenticationInfo describes how to authenticate against a push
// notification endpoint.
type AuthenticationInfo struct {
	Schemes     []string `json:"schemes"`
	Credentials string   `json:"credentials,omitzero"`
}

// TaskPushNotificationConfig associates a push notification endpoint with a
// task.
type TaskPushNotificationConfig struct {
	TaskID                 string                 `json:"taskId"`
	PushNotificationConfig PushNotificationConfig `json:"pushNotificationConfig"`
}

// Validate ensures the TaskPushNotificationConfig is valid.
func (c *TaskPushNotificationConfig) Validate() error {
	if c.TaskID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}
	return c.PushNotificationConfig.Validate()
}

// MessageSendParams is the parameter set for message/send and
// message/stream.
type MessageSendParams struct {
	Message       *Message                  `json:"message"`
	Configuration *MessageSendConfiguration `json:"configuration,omitzero"`
	Metadata      map[string]any            `json:"metadata,omitzero"`
}

// Validate ensures the MessageSendParams are valid.
func (p *MessageSendParams) Validate() error {
	if p.Message == nil {
		return fmt.Errorf("message cannot be nil")
	}
	return p.Message.Validate()
}

// MessageSendConfiguration carries caller preferences for a send request.
//
// Omitting the configuration entirely selects a blocking send. Supplying
// one opts into the wire default of Blocking=false, a non-blocking send
// that returns as soon as the task is underway — set Blocking explicitly
// when sending a configuration for other fields.
type MessageSendConfiguration struct {
	AcceptedOutputModes    []string                `json:"acceptedOutputModes,omitzero"`
	HistoryLength          *int                    `json:"historyLength,omitzero"`
	PushNotificationConfig *PushNotificationConfig `json:"pushNotificationConfig,omitzero"`
	Blocking               bool                    `json:"blocking,omitzero"`
}

// TaskQueryParams identifies a task for retrieval, optionally limiting the
// returned history.
type TaskQueryParams struct {
	ID            string         `json:"id"`
	HistoryLength *int           `json:"historyLength,omitzero"`
	Metadata      map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the TaskQueryParams are valid.
func (p *TaskQueryParams) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}
	return nil
}

// TaskIDParams identifies a task by ID.
type TaskIDParams struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the TaskIDParams are valid.
func (p *TaskIDParams) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}
	return nil
}
