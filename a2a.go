// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package a2a provides the core data model and task lifecycle contracts for
// the Agent-to-Agent (A2A) protocol: tasks, messages, artifacts, the events
// that flow between an executing agent and its consumers, and the protocol
// error taxonomy.
//
// The server-side lifecycle engine built on these types lives in the server
// package and its subpackages.
package a2a

// Version is the protocol version implemented by this module.
const Version = "0.3.0"

// TaskState represents the lifecycle state of a Task.
type TaskState string

const (
	// TaskStateSubmitted indicates the task has been received and recorded
	// but the agent has not started producing output yet.
	TaskStateSubmitted TaskState = "submitted"

	// TaskStateWorking indicates the agent is actively working on the task.
	TaskStateWorking TaskState = "working"

	// TaskStateInputRequired indicates the agent paused and is waiting for
	// another user message. The task remains addressable.
	TaskStateInputRequired TaskState = "input-required"

	// TaskStateAuthRequired indicates the agent paused and is waiting for
	// out-of-band authentication. The task remains addressable.
	TaskStateAuthRequired TaskState = "auth-required"

	// TaskStateCompleted indicates the task finished successfully.
	TaskStateCompleted TaskState = "completed"

	// TaskStateCanceled indicates the task was canceled before completion.
	TaskStateCanceled TaskState = "canceled"

	// TaskStateFailed indicates the task terminated with an error.
	TaskStateFailed TaskState = "failed"

	// TaskStateRejected indicates the agent refused the task.
	TaskStateRejected TaskState = "rejected"
)

// Terminal reports whether the state admits no further transitions.
// A task in a terminal state accepts no more events and its queue is closed.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateCanceled, TaskStateFailed, TaskStateRejected:
		return true
	default:
		return false
	}
}

// Interrupted reports whether the state pauses execution while keeping the
// task addressable for a follow-up message.
func (s TaskState) Interrupted() bool {
	return s == TaskStateInputRequired || s == TaskStateAuthRequired
}

// Role identifies the sender of a Message.
type Role string

const (
	// RoleUser marks messages originating from the remote caller.
	RoleUser Role = "user"

	// RoleAgent marks messages originating from the executing agent.
	RoleAgent Role = "agent"
)
