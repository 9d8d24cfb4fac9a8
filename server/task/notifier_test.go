// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-json-experiment/json"

	a2a "github.com/go-a2a/a2a-core"
)

func TestPushNotifier_DeliversTaskSnapshot(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		received *a2a.Task
		token    string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var task a2a.Task
		if err := json.UnmarshalRead(r.Body, &task); err != nil {
			t.Errorf("failed to decode notification body: %v", err)
		}
		mu.Lock()
		received = &task
		token = r.Header.Get("X-A2A-Notification-Token")
		mu.Unlock()
	}))
	defer srv.Close()

	ctx := context.Background()
	store := NewInMemoryPushConfigStore()
	if _, err := store.Save(ctx, "task-1", &a2a.PushNotificationConfig{URL: srv.URL, Token: "secret"}); err != nil {
		t.Fatal(err)
	}
	notifier, err := NewPushNotifier(store)
	if err != nil {
		t.Fatal(err)
	}

	task := newTestTask(t, "task-1", "ctx-1")
	task.Status.State = a2a.TaskStateCompleted
	notifier.Notify(ctx, task)

	mu.Lock()
	defer mu.Unlock()
	if received == nil {
		t.Fatal("notification not delivered")
	}
	if received.ID != "task-1" {
		t.Errorf("delivered task ID = %v, want task-1", received.ID)
	}
	if received.Status.State != a2a.TaskStateCompleted {
		t.Errorf("delivered state = %v, want %v", received.Status.State, a2a.TaskStateCompleted)
	}
	if token != "secret" {
		t.Errorf("notification token = %q, want %q", token, "secret")
	}
}

func TestPushNotifier_RetriesOnFailure(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	store := NewInMemoryPushConfigStore()
	if _, err := store.Save(ctx, "task-1", &a2a.PushNotificationConfig{URL: srv.URL}); err != nil {
		t.Fatal(err)
	}
	notifier, err := NewPushNotifier(store,
		WithRetries(2),
		WithBackoff(time.Millisecond),
	)
	if err != nil {
		t.Fatal(err)
	}

	notifier.Notify(ctx, newTestTask(t, "task-1", "ctx-1"))

	if got := attempts.Load(); got != 2 {
		t.Errorf("delivery attempts = %d, want 2", got)
	}
}

func TestPushNotifier_BoundedRetries(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx := context.Background()
	store := NewInMemoryPushConfigStore()
	if _, err := store.Save(ctx, "task-1", &a2a.PushNotificationConfig{URL: srv.URL}); err != nil {
		t.Fatal(err)
	}
	notifier, err := NewPushNotifier(store,
		WithRetries(2),
		WithBackoff(time.Millisecond),
	)
	if err != nil {
		t.Fatal(err)
	}

	// A permanently failing endpoint is abandoned after the last retry.
	notifier.Notify(ctx, newTestTask(t, "task-1", "ctx-1"))

	if got := attempts.Load(); got != 3 {
		t.Errorf("delivery attempts = %d, want 3", got)
	}
}

func TestPushNotifier_BearerScheme(t *testing.T) {
	t.Parallel()

	var authHeader atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader.Store(r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	ctx := context.Background()
	store := NewInMemoryPushConfigStore()
	config := &a2a.PushNotificationConfig{
		URL: srv.URL,
		Authentication: &a2a.AuthenticationInfo{
			Schemes:     []string{"bearer"},
			Credentials: "tok-123",
		},
	}
	if _, err := store.Save(ctx, "task-1", config); err != nil {
		t.Fatal(err)
	}
	notifier, err := NewPushNotifier(store)
	if err != nil {
		t.Fatal(err)
	}

	notifier.Notify(ctx, newTestTask(t, "task-1", "ctx-1"))

	if got, _ := authHeader.Load().(string); got != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer tok-123")
	}
}

func TestPushNotifier_NoConfigsIsNoOp(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
	}))
	defer srv.Close()

	notifier, err := NewPushNotifier(NewInMemoryPushConfigStore())
	if err != nil {
		t.Fatal(err)
	}
	notifier.Notify(context.Background(), newTestTask(t, "task-1", "ctx-1"))

	if got := attempts.Load(); got != 0 {
		t.Errorf("delivery attempts = %d, want 0", got)
	}
}
