// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	a2a "github.com/go-a2a/a2a-core"
)

// Manager owns the authoritative in-flight copy of one task while it
// executes. It applies events to the task record, enforces the lifecycle
// state machine, and persists exactly one Save per applied event.
//
// The state machine is monotonic: once a final status update lands the task
// is latched terminal, at most one terminal transition occurs, and any
// event arriving afterwards is a programming error in the executor — it is
// dropped and logged, never applied.
type Manager struct {
	taskID         string
	contextID      string
	store          Store
	initialMessage *a2a.Message
	statusListener func(ctx context.Context, task *a2a.Task)
	logger         *slog.Logger

	mu       sync.Mutex
	task     *a2a.Task
	terminal bool
}

// ManagerConfig holds the dependencies for a Manager.
type ManagerConfig struct {
	TaskID    string
	ContextID string
	Store     Store

	// InitialMessage, if set, seeds the history of a task created by the
	// first event, or is appended to the history of a resumed task.
	InitialMessage *a2a.Message

	// StatusListener, if set, receives a snapshot of the task after every
	// status change has been persisted. It is called synchronously from
	// Process and must not call back into the Manager.
	StatusListener func(ctx context.Context, task *a2a.Task)

	Logger *slog.Logger
}

// NewManager creates a Manager bound to one task ID.
func NewManager(config ManagerConfig) (*Manager, error) {
	if config.TaskID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}
	if config.ContextID == "" {
		return nil, fmt.Errorf("context ID cannot be empty")
	}
	if config.Store == nil {
		return nil, fmt.Errorf("task store cannot be nil")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		taskID:         config.TaskID,
		contextID:      config.ContextID,
		store:          config.Store,
		initialMessage: config.InitialMessage,
		statusListener: config.StatusListener,
		logger:         logger,
	}, nil
}

// TaskID returns the task ID the manager is bound to.
func (m *Manager) TaskID() string { return m.taskID }

// ContextID returns the context ID the manager is bound to.
func (m *Manager) ContextID() string { return m.contextID }

// Task returns the in-flight task, loading it from the store on first use.
// It returns a2a.TaskNotFoundError if the task has not been created yet.
func (m *Manager) Task(ctx context.Context) (*a2a.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.taskLocked(ctx)
}

func (m *Manager) taskLocked(ctx context.Context) (*a2a.Task, error) {
	if m.task != nil {
		return m.task, nil
	}

	task, err := m.store.Get(ctx, m.taskID)
	if err != nil {
		return nil, err
	}
	if m.initialMessage != nil {
		task.History = append(task.History, m.initialMessage)
	}
	m.task = task
	m.terminal = task.Status.State.Terminal()
	return task, nil
}

// Terminal reports whether the task has reached a terminal state.
func (m *Manager) Terminal() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.terminal
}

// Process applies one event to the task and persists the result. Events for
// other tasks and bare messages are ignored. Events arriving after the
// terminal transition are dropped and logged. Application is serialized: no
// two events mutate the task concurrently. After a status change is saved
// the status listener, if any, is invoked with a snapshot of the task, so
// listeners always observe state the store already reflects.
func (m *Manager) Process(ctx context.Context, event a2a.Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.EventTaskID() != m.taskID {
		return nil
	}

	m.mu.Lock()
	snapshot, err := m.processLocked(ctx, event)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	if snapshot != nil && m.statusListener != nil {
		m.statusListener(ctx, snapshot)
	}
	return nil
}

// processLocked applies the event and returns a snapshot of the task when
// its status changed, or nil when the event was dropped or only touched
// artifacts.
func (m *Manager) processLocked(ctx context.Context, event a2a.Event) (*a2a.Task, error) {
	if m.terminal {
		m.logger.WarnContext(ctx, "dropping event for terminal task",
			"task_id", m.taskID,
			"event_kind", event.EventKind())
		return nil, nil
	}

	task, err := m.ensureTaskLocked(ctx, event)
	if err != nil {
		return nil, err
	}

	statusChanged := false
	switch e := event.(type) {
	case *a2a.TaskStatusUpdateEvent:
		m.applyStatusLocked(task, e)
		statusChanged = true
	case *a2a.TaskArtifactUpdateEvent:
		applyArtifact(task, e)
	case *a2a.Task:
		// Full snapshot from the executor replaces the record.
		task = e
		m.task = e
		m.terminal = e.Status.State.Terminal()
		statusChanged = true
	case *a2a.Message:
		// Bare messages are replies to the caller, not task mutations.
		return nil, nil
	default:
		return nil, nil
	}

	if err := m.store.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("save task %s: %w", m.taskID, err)
	}
	if !statusChanged {
		return nil, nil
	}
	return copyTask(task), nil
}

// Fail forces the task into the failed state with the given message. It is
// used when the executor returns without emitting a terminal event, so a
// task is never left in submitted or working after execution ends. Failing
// an already terminal task is a no-op.
func (m *Manager) Fail(ctx context.Context, message string) error {
	event := a2a.NewStatusUpdateEvent(m.taskID, m.contextID, a2a.TaskStateFailed,
		a2a.NewAgentTextMessage(message, m.contextID, m.taskID), true)
	return m.Process(ctx, event)
}

func (m *Manager) ensureTaskLocked(ctx context.Context, event a2a.Event) (*a2a.Task, error) {
	task, err := m.taskLocked(ctx)
	if err == nil {
		return task, nil
	}

	var notFound a2a.TaskNotFoundError
	if !errors.As(err, &notFound) {
		return nil, fmt.Errorf("load task %s: %w", m.taskID, err)
	}

	task = &a2a.Task{
		Kind:      a2a.EventKindTask,
		ID:        m.taskID,
		ContextID: m.contextID,
		Status:    a2a.TaskStatus{State: a2a.TaskStateSubmitted, Timestamp: time.Now().UTC()},
	}
	if m.initialMessage != nil {
		task.History = append(task.History, m.initialMessage)
	}
	if snapshot, ok := event.(*a2a.Task); ok {
		task = snapshot
	}

	if err := m.store.Create(ctx, task); err != nil {
		var exists TaskExistsError
		if !errors.As(err, &exists) {
			return nil, fmt.Errorf("create task %s: %w", m.taskID, err)
		}
	}
	m.task = task
	return task, nil
}

func (m *Manager) applyStatusLocked(task *a2a.Task, event *a2a.TaskStatusUpdateEvent) {
	// Move the previous status message into history so it is not lost.
	if task.Status.Message != nil {
		task.History = append(task.History, task.Status.Message)
	}

	task.Status = event.Status
	if task.Status.Timestamp.IsZero() {
		task.Status.Timestamp = time.Now().UTC()
	}

	if event.Final || event.Status.State.Terminal() {
		m.terminal = true
	}
}

// applyArtifact merges an artifact update into the task. Without Append the
// artifact replaces any existing artifact with the same ID, or is added.
// With Append its parts are appended to the matching artifact's parts,
// supporting incremental artifact streaming.
func applyArtifact(task *a2a.Task, event *a2a.TaskArtifactUpdateEvent) {
	artifact := event.Artifact
	for i, existing := range task.Artifacts {
		if existing.ArtifactID != artifact.ArtifactID {
			continue
		}
		if event.Append {
			merged := *existing
			merged.Parts = append(append([]a2a.Part{}, existing.Parts...), artifact.Parts...)
			task.Artifacts[i] = &merged
		} else {
			task.Artifacts[i] = artifact
		}
		return
	}
	task.Artifacts = append(task.Artifacts, artifact)
}
