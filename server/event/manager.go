// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"sync"
)

// Manager tracks the live main queue of every executing task so that
// cancellation, resubscription and push notification dispatch can attach to
// a task that is already running.
type Manager struct {
	mu      sync.Mutex
	queues  map[string]*EventQueue
	maxSize int
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithQueueSize sets the buffer size used for queues the manager creates.
func WithQueueSize(size int) ManagerOption {
	return func(m *Manager) {
		m.maxSize = size
	}
}

// NewManager creates an empty queue manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		queues: make(map[string]*EventQueue),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create registers a new main queue for the task. It fails with
// ErrQueueExists if the task already has a live queue.
func (m *Manager) Create(taskID string) (*EventQueue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if q, ok := m.queues[taskID]; ok && !q.IsClosed() {
		return nil, ErrQueueExists
	}

	queue, err := NewEventQueue(m.maxSize)
	if err != nil {
		return nil, err
	}
	m.queues[taskID] = queue
	return queue, nil
}

// Get returns the live queue for the task, or ErrQueueNotFound.
func (m *Manager) Get(taskID string) (*EventQueue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	queue, ok := m.queues[taskID]
	if !ok {
		return nil, ErrQueueNotFound
	}
	return queue, nil
}

// Tap attaches a child queue to the task's live queue.
func (m *Manager) Tap(taskID string) (*EventQueue, error) {
	queue, err := m.Get(taskID)
	if err != nil {
		return nil, err
	}
	return queue.Tap()
}

// Close closes and forgets the task's queue. Closing a task with no queue
// is a no-op.
func (m *Manager) Close(taskID string) error {
	m.mu.Lock()
	queue, ok := m.queues[taskID]
	delete(m.queues, taskID)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return queue.Close()
}
