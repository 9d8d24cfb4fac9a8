// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import "fmt"

// TaskExistsError indicates Create was called with an ID that is already
// present in the store.
type TaskExistsError struct {
	TaskID string
}

// Error implements the error interface.
func (e TaskExistsError) Error() string {
	return fmt.Sprintf("task already exists: %s", e.TaskID)
}

// TaskValidationError indicates a task failed validation before a store
// operation.
type TaskValidationError struct {
	TaskID string
	Err    error
}

// Error implements the error interface.
func (e TaskValidationError) Error() string {
	return fmt.Sprintf("task %s failed validation: %v", e.TaskID, e.Err)
}

// Unwrap returns the wrapped error.
func (e TaskValidationError) Unwrap() error { return e.Err }

// StoreError wraps a storage backend failure with the operation that caused
// it.
type StoreError struct {
	Op     string
	TaskID string
	Err    error
}

// Error implements the error interface.
func (e StoreError) Error() string {
	return fmt.Sprintf("task store %s %s: %v", e.Op, e.TaskID, e.Err)
}

// Unwrap returns the wrapped error.
func (e StoreError) Unwrap() error { return e.Err }
