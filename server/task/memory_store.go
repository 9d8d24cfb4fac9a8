// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	a2a "github.com/go-a2a/a2a-core"
)

// InMemoryStore is a map-backed Store guarded by a single RWMutex. Task data
// is lost when the process stops. Tasks are deep-copied on the way in and
// out so callers can never mutate stored state directly.
type InMemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*a2a.Task
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tasks: make(map[string]*a2a.Task),
	}
}

// Create persists a new task, failing if the ID is taken.
func (s *InMemoryStore) Create(ctx context.Context, task *a2a.Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if err := task.Validate(); err != nil {
		return TaskValidationError{TaskID: task.ID, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return TaskExistsError{TaskID: task.ID}
	}
	s.tasks[task.ID] = copyTask(task)
	return nil
}

// Get retrieves a deep copy of the stored task.
func (s *InMemoryStore) Get(ctx context.Context, taskID string) (*a2a.Task, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[taskID]
	if !exists {
		return nil, a2a.TaskNotFoundError{TaskID: taskID}
	}
	return copyTask(task), nil
}

// Save overwrites the stored task atomically.
func (s *InMemoryStore) Save(ctx context.Context, task *a2a.Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if err := task.Validate(); err != nil {
		return TaskValidationError{TaskID: task.ID, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[task.ID] = copyTask(task)
	return nil
}

// Delete removes a stored task.
func (s *InMemoryStore) Delete(ctx context.Context, taskID string) error {
	if taskID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[taskID]; !exists {
		return a2a.TaskNotFoundError{TaskID: taskID}
	}
	delete(s.tasks, taskID)
	return nil
}

// Contains reports whether a task with the given ID is stored.
func (s *InMemoryStore) Contains(ctx context.Context, taskID string) (bool, error) {
	if taskID == "" {
		return false, fmt.Errorf("task ID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.tasks[taskID]
	return exists, nil
}

// List retrieves tasks ordered by ID, optionally filtered by context.
func (s *InMemoryStore) List(ctx context.Context, contextID string, limit, offset int) ([]*a2a.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.tasks))
	for id, task := range s.tasks {
		if contextID != "" && task.ContextID != contextID {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if offset > len(ids) {
		offset = len(ids)
	}
	ids = ids[offset:]
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	tasks := make([]*a2a.Task, len(ids))
	for i, id := range ids {
		tasks[i] = copyTask(s.tasks[id])
	}
	return tasks, nil
}

// Len returns the number of stored tasks.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// copyTask deep-copies the mutable containers of a task. Messages, parts
// and artifact contents are immutable by convention, so sharing their
// pointers is safe; slices and metadata maps are not.
func copyTask(task *a2a.Task) *a2a.Task {
	if task == nil {
		return nil
	}

	clone := *task
	if task.History != nil {
		clone.History = make([]*a2a.Message, len(task.History))
		copy(clone.History, task.History)
	}
	if task.Artifacts != nil {
		clone.Artifacts = make([]*a2a.Artifact, len(task.Artifacts))
		for i, artifact := range task.Artifacts {
			if artifact == nil {
				continue
			}
			a := *artifact
			a.Parts = make([]a2a.Part, len(artifact.Parts))
			copy(a.Parts, artifact.Parts)
			clone.Artifacts[i] = &a
		}
	}
	if task.Metadata != nil {
		clone.Metadata = maps.Clone(task.Metadata)
	}
	return &clone
}
