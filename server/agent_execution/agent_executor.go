// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent_execution defines the contract between the request handler
// and agent implementations. An agent plugs in by implementing
// AgentExecutor; the handler owns task records, queues, and persistence,
// while the executor only produces events.
package agent_execution

import (
	"context"

	"github.com/go-a2a/a2a-core/server/event"
)

// AgentExecutor runs agent logic for incoming messages.
//
// Execute processes the request described by reqCtx and publishes resulting
// events to queue. It must eventually publish a terminating event: a bare
// message reply, a final status update, or a task snapshot in a terminal or
// interrupted state. Returning an error is equivalent to publishing a
// failed status.
//
// Cancel requests cooperative cancellation of ongoing work for the task in
// reqCtx. Implementations should publish a canceled status update on the
// queue once work has stopped. Cancel may be called concurrently with
// Execute.
type AgentExecutor interface {
	Execute(ctx context.Context, reqCtx *RequestContext, queue *event.EventQueue) error
	Cancel(ctx context.Context, reqCtx *RequestContext, queue *event.EventQueue) error
}
