// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import "fmt"

// JSON-RPC error codes used by the A2A protocol.
const (
	ErrorCodeJSONParse                    = -32700
	ErrorCodeInvalidRequest               = -32600
	ErrorCodeMethodNotFound               = -32601
	ErrorCodeInvalidParams                = -32602
	ErrorCodeInternalError                = -32603
	ErrorCodeTaskNotFound                 = -32001
	ErrorCodeTaskNotCancelable            = -32002
	ErrorCodePushNotificationNotSupported = -32003
	ErrorCodeUnsupportedOperation         = -32004
	ErrorCodeContentTypeNotSupported      = -32005
)

// ProtocolError is an error that maps to a JSON-RPC error code on the wire.
type ProtocolError interface {
	error
	ErrorCode() int
}

// TaskNotFoundError indicates an operation referenced a task ID that does
// not exist.
type TaskNotFoundError struct {
	TaskID string
}

// Error implements the error interface.
func (e TaskNotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.TaskID)
}

// ErrorCode returns the JSON-RPC code for the error.
func (TaskNotFoundError) ErrorCode() int { return ErrorCodeTaskNotFound }

// TaskNotCancelableError indicates cancellation was requested for a task
// already in a terminal state.
type TaskNotCancelableError struct {
	TaskID string
	State  TaskState
}

// Error implements the error interface.
func (e TaskNotCancelableError) Error() string {
	return fmt.Sprintf("task %s cannot be canceled: already %s", e.TaskID, e.State)
}

// ErrorCode returns the JSON-RPC code for the error.
func (TaskNotCancelableError) ErrorCode() int { return ErrorCodeTaskNotCancelable }

// InvalidRequestError indicates malformed request parameters. No task state
// is created or modified.
type InvalidRequestError struct {
	Reason string
}

// Error implements the error interface.
func (e InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Reason)
}

// ErrorCode returns the JSON-RPC code for the error.
func (InvalidRequestError) ErrorCode() int { return ErrorCodeInvalidRequest }

// UnsupportedOperationError indicates the requested operation is not
// supported by this agent.
type UnsupportedOperationError struct {
	Operation string
}

// Error implements the error interface.
func (e UnsupportedOperationError) Error() string {
	return fmt.Sprintf("operation not supported: %s", e.Operation)
}

// ErrorCode returns the JSON-RPC code for the error.
func (UnsupportedOperationError) ErrorCode() int { return ErrorCodeUnsupportedOperation }

// PushNotificationNotSupportedError indicates push notifications are not
// configured on this server.
type PushNotificationNotSupportedError struct{}

// Error implements the error interface.
func (PushNotificationNotSupportedError) Error() string {
	return "push notifications are not supported"
}

// ErrorCode returns the JSON-RPC code for the error.
func (PushNotificationNotSupportedError) ErrorCode() int {
	return ErrorCodePushNotificationNotSupported
}

// InternalError wraps an unexpected server-side failure.
type InternalError struct {
	Err error
}

// Error implements the error interface.
func (e InternalError) Error() string {
	if e.Err == nil {
		return "internal error"
	}
	return fmt.Sprintf("internal error: %v", e.Err)
}

// Unwrap returns the wrapped error.
func (e InternalError) Unwrap() error { return e.Err }

// ErrorCode returns the JSON-RPC code for the error.
func (InternalError) ErrorCode() int { return ErrorCodeInternalError }
