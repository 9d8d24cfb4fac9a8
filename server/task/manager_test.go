// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"sync"
	"testing"

	gocmp "github.com/google/go-cmp/cmp"

	a2a "github.com/go-a2a/a2a-core"
)

// spyStore counts Save calls so tests can assert on persistence behavior.
type spyStore struct {
	Store

	mu    sync.Mutex
	saves int
}

func newSpyStore() *spyStore {
	return &spyStore{Store: NewInMemoryStore()}
}

func (s *spyStore) Save(ctx context.Context, task *a2a.Task) error {
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	return s.Store.Save(ctx, task)
}

func (s *spyStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func newTestManager(t *testing.T, store Store, message *a2a.Message) *Manager {
	t.Helper()
	manager, err := NewManager(ManagerConfig{
		TaskID:         "task-1",
		ContextID:      "ctx-1",
		Store:          store,
		InitialMessage: message,
	})
	if err != nil {
		t.Fatal(err)
	}
	return manager
}

func TestManager_CreatesTaskOnFirstEvent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewInMemoryStore()
	message := a2a.NewUserTextMessage("hello", "ctx-1", "task-1")
	manager := newTestManager(t, store, message)

	working := a2a.NewStatusUpdateEvent("task-1", "ctx-1", a2a.TaskStateWorking, nil, false)
	if err := manager.Process(ctx, working); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	got, err := store.Get(ctx, "task-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status.State != a2a.TaskStateWorking {
		t.Errorf("state = %v, want %v", got.Status.State, a2a.TaskStateWorking)
	}
	if len(got.History) != 1 {
		t.Errorf("history length = %d, want 1", len(got.History))
	}
	if got.ContextID != "ctx-1" {
		t.Errorf("context ID = %v, want ctx-1", got.ContextID)
	}
}

func TestManager_OneSavePerEvent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newSpyStore()
	manager := newTestManager(t, store, a2a.NewUserTextMessage("hello", "ctx-1", "task-1"))

	artifact, err := a2a.NewTextArtifact("result", "partial", "")
	if err != nil {
		t.Fatal(err)
	}
	events := []a2a.Event{
		a2a.NewStatusUpdateEvent("task-1", "ctx-1", a2a.TaskStateWorking, nil, false),
		a2a.NewArtifactUpdateEvent("task-1", "ctx-1", artifact, false, false),
		a2a.NewStatusUpdateEvent("task-1", "ctx-1", a2a.TaskStateCompleted, nil, true),
	}
	for _, ev := range events {
		if err := manager.Process(ctx, ev); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
	}

	if got := store.Saves(); got != len(events) {
		t.Errorf("Save called %d times, want %d", got, len(events))
	}
}

func TestManager_DropsEventsAfterTerminal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newSpyStore()
	manager := newTestManager(t, store, a2a.NewUserTextMessage("hello", "ctx-1", "task-1"))

	completed := a2a.NewStatusUpdateEvent("task-1", "ctx-1", a2a.TaskStateCompleted, nil, true)
	if err := manager.Process(ctx, completed); err != nil {
		t.Fatal(err)
	}
	if !manager.Terminal() {
		t.Fatal("Terminal() = false after terminal event")
	}
	savesBefore := store.Saves()

	// A late status update must be dropped, not applied.
	late := a2a.NewStatusUpdateEvent("task-1", "ctx-1", a2a.TaskStateWorking, nil, false)
	if err := manager.Process(ctx, late); err != nil {
		t.Fatalf("Process() of late event error = %v", err)
	}
	if got := store.Saves(); got != savesBefore {
		t.Errorf("Save called %d times after terminal, want %d", got, savesBefore)
	}

	got, err := store.Get(ctx, "task-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status.State != a2a.TaskStateCompleted {
		t.Errorf("state = %v, want %v", got.Status.State, a2a.TaskStateCompleted)
	}
}

func TestManager_IgnoresOtherTasks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newSpyStore()
	manager := newTestManager(t, store, a2a.NewUserTextMessage("hello", "ctx-1", "task-1"))

	foreign := a2a.NewStatusUpdateEvent("task-2", "ctx-1", a2a.TaskStateWorking, nil, false)
	if err := manager.Process(ctx, foreign); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got := store.Saves(); got != 0 {
		t.Errorf("Save called %d times for foreign event, want 0", got)
	}
}

func TestManager_StatusMessageMovesToHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewInMemoryStore()
	manager := newTestManager(t, store, a2a.NewUserTextMessage("hello", "ctx-1", "task-1"))

	first := a2a.NewStatusUpdateEvent("task-1", "ctx-1", a2a.TaskStateWorking,
		a2a.NewAgentTextMessage("thinking", "ctx-1", "task-1"), false)
	if err := manager.Process(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := a2a.NewStatusUpdateEvent("task-1", "ctx-1", a2a.TaskStateCompleted,
		a2a.NewAgentTextMessage("done", "ctx-1", "task-1"), true)
	if err := manager.Process(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "task-1")
	if err != nil {
		t.Fatal(err)
	}
	// Initial user message plus the superseded working message.
	if len(got.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(got.History))
	}
	if text := a2a.MessageText(got.History[1], " "); text != "thinking" {
		t.Errorf("history[1] = %q, want %q", text, "thinking")
	}
	if text := a2a.MessageText(got.Status.Message, " "); text != "done" {
		t.Errorf("status message = %q, want %q", text, "done")
	}
}

func TestManager_ArtifactAppend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewInMemoryStore()
	manager := newTestManager(t, store, a2a.NewUserTextMessage("hello", "ctx-1", "task-1"))

	chunk1 := &a2a.Artifact{ArtifactID: "a-1", Parts: []a2a.Part{a2a.NewTextPart("hello ")}}
	chunk2 := &a2a.Artifact{ArtifactID: "a-1", Parts: []a2a.Part{a2a.NewTextPart("world")}}

	if err := manager.Process(ctx, a2a.NewArtifactUpdateEvent("task-1", "ctx-1", chunk1, false, false)); err != nil {
		t.Fatal(err)
	}
	if err := manager.Process(ctx, a2a.NewArtifactUpdateEvent("task-1", "ctx-1", chunk2, true, true)); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "task-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Artifacts) != 1 {
		t.Fatalf("artifact count = %d, want 1", len(got.Artifacts))
	}
	if text := a2a.ArtifactText(got.Artifacts[0], ""); text != "hello world" {
		t.Errorf("artifact text = %q, want %q", text, "hello world")
	}
}

func TestManager_ArtifactReplace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewInMemoryStore()
	manager := newTestManager(t, store, a2a.NewUserTextMessage("hello", "ctx-1", "task-1"))

	first := &a2a.Artifact{ArtifactID: "a-1", Parts: []a2a.Part{a2a.NewTextPart("draft")}}
	second := &a2a.Artifact{ArtifactID: "a-1", Parts: []a2a.Part{a2a.NewTextPart("final")}}

	if err := manager.Process(ctx, a2a.NewArtifactUpdateEvent("task-1", "ctx-1", first, false, false)); err != nil {
		t.Fatal(err)
	}
	if err := manager.Process(ctx, a2a.NewArtifactUpdateEvent("task-1", "ctx-1", second, false, true)); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "task-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Artifacts) != 1 {
		t.Fatalf("artifact count = %d, want 1", len(got.Artifacts))
	}
	if text := a2a.ArtifactText(got.Artifacts[0], ""); text != "final" {
		t.Errorf("artifact text = %q, want %q", text, "final")
	}
}

func TestManager_FailIsNoOpAfterTerminal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewInMemoryStore()
	manager := newTestManager(t, store, a2a.NewUserTextMessage("hello", "ctx-1", "task-1"))

	completed := a2a.NewStatusUpdateEvent("task-1", "ctx-1", a2a.TaskStateCompleted, nil, true)
	if err := manager.Process(ctx, completed); err != nil {
		t.Fatal(err)
	}
	if err := manager.Fail(ctx, "executor exited"); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}

	got, err := store.Get(ctx, "task-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status.State != a2a.TaskStateCompleted {
		t.Errorf("state = %v, want %v", got.Status.State, a2a.TaskStateCompleted)
	}
}

func TestManager_FailCreatesMissingTask(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewInMemoryStore()
	manager := newTestManager(t, store, a2a.NewUserTextMessage("hello", "ctx-1", "task-1"))

	if err := manager.Fail(ctx, "executor produced nothing"); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}

	got, err := store.Get(ctx, "task-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status.State != a2a.TaskStateFailed {
		t.Errorf("state = %v, want %v", got.Status.State, a2a.TaskStateFailed)
	}
}

func TestManager_ResumeAppendsMessage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewInMemoryStore()

	existing := newTestTask(t, "task-1", "ctx-1")
	existing.Status.State = a2a.TaskStateInputRequired
	if err := store.Create(ctx, existing); err != nil {
		t.Fatal(err)
	}

	followUp := a2a.NewUserTextMessage("more detail", "ctx-1", "task-1")
	manager := newTestManager(t, store, followUp)

	working := a2a.NewStatusUpdateEvent("task-1", "ctx-1", a2a.TaskStateWorking, nil, false)
	if err := manager.Process(ctx, working); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "task-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(got.History))
	}
	if text := a2a.MessageText(got.History[1], " "); text != "more detail" {
		t.Errorf("history[1] = %q, want %q", text, "more detail")
	}
	if got.Status.State != a2a.TaskStateWorking {
		t.Errorf("state = %v, want %v", got.Status.State, a2a.TaskStateWorking)
	}
}

func TestManager_StatusListener(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewInMemoryStore()

	var states []a2a.TaskState
	manager, err := NewManager(ManagerConfig{
		TaskID:    "task-1",
		ContextID: "ctx-1",
		Store:     store,
		StatusListener: func(ctx context.Context, task *a2a.Task) {
			// By the time the listener runs the store must already hold
			// the state the snapshot carries.
			stored, err := store.Get(ctx, task.ID)
			if err != nil {
				t.Errorf("Get() during listener: %v", err)
				return
			}
			if stored.Status.State != task.Status.State {
				t.Errorf("stored state = %v, snapshot state = %v", stored.Status.State, task.Status.State)
			}
			states = append(states, task.Status.State)
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	artifact, err := a2a.NewTextArtifact("result", "42", "")
	if err != nil {
		t.Fatal(err)
	}
	events := []a2a.Event{
		a2a.NewStatusUpdateEvent("task-1", "ctx-1", a2a.TaskStateWorking, nil, false),
		a2a.NewArtifactUpdateEvent("task-1", "ctx-1", artifact, false, true),
		a2a.NewStatusUpdateEvent("task-1", "ctx-1", a2a.TaskStateCompleted, nil, true),
		a2a.NewStatusUpdateEvent("task-1", "ctx-1", a2a.TaskStateWorking, nil, false),
	}
	for _, ev := range events {
		if err := manager.Process(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	// Artifact updates and post-terminal events never reach the listener.
	want := []a2a.TaskState{a2a.TaskStateWorking, a2a.TaskStateCompleted}
	if diff := gocmp.Diff(want, states); diff != "" {
		t.Errorf("listener states mismatch (-want +got):\n%s", diff)
	}
}
