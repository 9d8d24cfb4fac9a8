// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	a2a "github.com/go-a2a/a2a-core"
)

// PushConfigStore persists push notification configurations per task.
//
// List returns all configurations for a task in insertion order; a task
// with no configurations yields an empty slice, not an error.
type PushConfigStore interface {
	// Save stores a configuration for a task, generating an ID when the
	// configuration has none. Saving a configuration with an existing ID
	// overwrites it.
	Save(ctx context.Context, taskID string, config *a2a.PushNotificationConfig) (*a2a.PushNotificationConfig, error)

	// Get retrieves one configuration by ID. An empty configID selects the
	// first configuration for the task.
	Get(ctx context.Context, taskID, configID string) (*a2a.PushNotificationConfig, error)

	// List returns all configurations for a task.
	List(ctx context.Context, taskID string) ([]*a2a.PushNotificationConfig, error)

	// Delete removes one configuration. Deleting an absent configuration
	// is a no-op.
	Delete(ctx context.Context, taskID, configID string) error
}

// PushConfigNotFoundError is returned when no push notification
// configuration matches the requested task and config IDs.
type PushConfigNotFoundError struct {
	TaskID   string
	ConfigID string
}

// Error implements the error interface.
func (e PushConfigNotFoundError) Error() string {
	return fmt.Sprintf("push notification config not found for task %s (config %q)", e.TaskID, e.ConfigID)
}

// InMemoryPushConfigStore is a PushConfigStore backed by process memory.
type InMemoryPushConfigStore struct {
	mu      sync.RWMutex
	configs map[string][]*a2a.PushNotificationConfig
}

var _ PushConfigStore = (*InMemoryPushConfigStore)(nil)

// NewInMemoryPushConfigStore creates an empty InMemoryPushConfigStore.
func NewInMemoryPushConfigStore() *InMemoryPushConfigStore {
	return &InMemoryPushConfigStore{
		configs: make(map[string][]*a2a.PushNotificationConfig),
	}
}

// Save implements PushConfigStore.
func (s *InMemoryPushConfigStore) Save(ctx context.Context, taskID string, config *a2a.PushNotificationConfig) (*a2a.PushNotificationConfig, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}
	if config == nil {
		return nil, fmt.Errorf("push notification config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid push notification config: %w", err)
	}

	stored := *config
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.configs[taskID] {
		if existing.ID == stored.ID {
			s.configs[taskID][i] = &stored
			return &stored, nil
		}
	}
	s.configs[taskID] = append(s.configs[taskID], &stored)
	return &stored, nil
}

// Get implements PushConfigStore.
func (s *InMemoryPushConfigStore) Get(ctx context.Context, taskID, configID string) (*a2a.PushNotificationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	configs := s.configs[taskID]
	if len(configs) == 0 {
		return nil, PushConfigNotFoundError{TaskID: taskID, ConfigID: configID}
	}
	if configID == "" {
		config := *configs[0]
		return &config, nil
	}
	for _, existing := range configs {
		if existing.ID == configID {
			config := *existing
			return &config, nil
		}
	}
	return nil, PushConfigNotFoundError{TaskID: taskID, ConfigID: configID}
}

// List implements PushConfigStore.
func (s *InMemoryPushConfigStore) List(ctx context.Context, taskID string) ([]*a2a.PushNotificationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	configs := make([]*a2a.PushNotificationConfig, 0, len(s.configs[taskID]))
	for _, existing := range s.configs[taskID] {
		config := *existing
		configs = append(configs, &config)
	}
	return configs, nil
}

// Delete implements PushConfigStore.
func (s *InMemoryPushConfigStore) Delete(ctx context.Context, taskID, configID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configs := s.configs[taskID]
	for i, existing := range configs {
		if existing.ID == configID {
			s.configs[taskID] = append(configs[:i:i], configs[i+1:]...)
			if len(s.configs[taskID]) == 0 {
				delete(s.configs, taskID)
			}
			return nil
		}
	}
	return nil
}
