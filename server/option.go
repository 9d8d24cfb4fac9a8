// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"log/slog"

	"github.com/go-a2a/a2a-core/server/event"
	"github.com/go-a2a/a2a-core/server/task"
)

// Option configures a DefaultRequestHandler.
type Option func(*DefaultRequestHandler)

// WithTaskStore sets the task store. Defaults to an in-memory store.
func WithTaskStore(store task.Store) Option {
	return func(h *DefaultRequestHandler) {
		h.store = store
	}
}

// WithPushConfigStore sets the push notification config store. Passing nil
// disables push notification support entirely.
func WithPushConfigStore(store task.PushConfigStore) Option {
	return func(h *DefaultRequestHandler) {
		h.pushStore = store
	}
}

// WithPushNotifier sets the push notifier. Defaults to a notifier built
// from the push config store.
func WithPushNotifier(notifier *task.PushNotifier) Option {
	return func(h *DefaultRequestHandler) {
		h.notifier = notifier
	}
}

// WithQueueManager sets the event queue manager, controlling per-task queue
// capacity.
func WithQueueManager(manager *event.Manager) Option {
	return func(h *DefaultRequestHandler) {
		h.queueManager = manager
	}
}

// WithLogger sets the handler's logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(h *DefaultRequestHandler) {
		h.logger = logger
	}
}
