// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent_execution

import (
	"context"
	"time"

	"github.com/google/uuid"

	a2a "github.com/go-a2a/a2a-core"
)

// RequestContextBuilder assembles a RequestContext from message/send
// parameters, resolving task and context IDs against the referenced task
// when the message continues one.
type RequestContextBuilder struct{}

// NewRequestContextBuilder creates a RequestContextBuilder.
func NewRequestContextBuilder() *RequestContextBuilder {
	return &RequestContextBuilder{}
}

// Build resolves params against task (the existing task record, or nil for
// a fresh task) into a RequestContext. Task and context IDs missing from
// the message are taken from the existing task or generated. The message
// is stamped with the resolved IDs so downstream consumers see a coherent
// record.
//
// A message referencing a task already in a terminal state is rejected:
// terminal tasks are immutable and their IDs cannot be reused.
func (b *RequestContextBuilder) Build(ctx context.Context, params *a2a.MessageSendParams, task *a2a.Task) (*RequestContext, error) {
	if params == nil || params.Message == nil {
		return nil, a2a.InvalidRequestError{Reason: "message is required"}
	}
	if err := params.Message.Validate(); err != nil {
		return nil, a2a.InvalidRequestError{Reason: err.Error()}
	}

	message := params.Message

	taskID := message.TaskID
	contextID := message.ContextID
	if task != nil {
		if task.Status.State.Terminal() {
			return nil, a2a.InvalidRequestError{
				Reason: "task " + task.ID + " is in terminal state " + string(task.Status.State) + " and cannot accept new messages",
			}
		}
		taskID = task.ID
		if contextID == "" {
			contextID = task.ContextID
		} else if contextID != task.ContextID {
			return nil, a2a.InvalidRequestError{
				Reason: "message context ID does not match task context ID",
			}
		}
	}
	if taskID == "" {
		taskID = uuid.NewString()
	}
	if contextID == "" {
		contextID = uuid.NewString()
	}

	message.TaskID = taskID
	message.ContextID = contextID

	reqCtx := &RequestContext{
		TaskID:        taskID,
		ContextID:     contextID,
		Message:       message,
		Task:          task,
		Configuration: params.Configuration,
		Metadata:      params.Metadata,
		CreatedAt:     time.Now().UTC(),
	}
	if err := reqCtx.Validate(); err != nil {
		return nil, a2a.InvalidRequestError{Reason: err.Error()}
	}
	return reqCtx, nil
}

// BuildForCancel assembles the RequestContext passed to AgentExecutor.Cancel.
func (b *RequestContextBuilder) BuildForCancel(ctx context.Context, task *a2a.Task) *RequestContext {
	return &RequestContext{
		TaskID:    task.ID,
		ContextID: task.ContextID,
		Task:      task,
		CreatedAt: time.Now().UTC(),
	}
}
