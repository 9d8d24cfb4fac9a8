// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent_execution

import (
	"fmt"
	"time"

	a2a "github.com/go-a2a/a2a-core"
)

// RequestContext carries everything an executor needs about one request:
// the resolved task and context IDs, the incoming message, and the current
// task record when the request continues an existing task.
type RequestContext struct {
	// TaskID is the ID of the task this request operates on. Always set.
	TaskID string

	// ContextID groups related tasks. Always set.
	ContextID string

	// Message is the incoming user message. Nil for cancellation requests.
	Message *a2a.Message

	// Task is the current task record, nil when the request creates a new
	// task.
	Task *a2a.Task

	// Configuration is the caller's per-request configuration, if any.
	Configuration *a2a.MessageSendConfiguration

	// Metadata is the caller-supplied request metadata, if any.
	Metadata map[string]any

	// CreatedAt is when the request context was built.
	CreatedAt time.Time
}

// Validate checks that the request context is internally consistent.
func (r *RequestContext) Validate() error {
	if r.TaskID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}
	if r.ContextID == "" {
		return fmt.Errorf("context ID cannot be empty")
	}
	if r.Message != nil {
		if r.Message.TaskID != "" && r.Message.TaskID != r.TaskID {
			return fmt.Errorf("message task ID %q does not match request task ID %q", r.Message.TaskID, r.TaskID)
		}
		if r.Message.ContextID != "" && r.Message.ContextID != r.ContextID {
			return fmt.Errorf("message context ID %q does not match request context ID %q", r.Message.ContextID, r.ContextID)
		}
	}
	return nil
}

// UserInput concatenates the text parts of the incoming message, joined by
// delimiter. It returns "" when there is no message.
func (r *RequestContext) UserInput(delimiter string) string {
	if r.Message == nil {
		return ""
	}
	return a2a.MessageText(r.Message, delimiter)
}
