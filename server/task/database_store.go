// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	a2a "github.com/go-a2a/a2a-core"
)

// DatabaseStore is a GORM-backed Store. The *gorm.DB handle, and therefore
// the choice of driver, is supplied by the caller.
type DatabaseStore struct {
	db *gorm.DB
}

var _ Store = (*DatabaseStore)(nil)

// NewDatabaseStore creates a DatabaseStore and migrates the tasks table.
func NewDatabaseStore(ctx context.Context, db *gorm.DB) (*DatabaseStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}
	if err := db.WithContext(ctx).AutoMigrate(&TaskModel{}); err != nil {
		return nil, StoreError{Op: "migrate", Err: err}
	}
	return &DatabaseStore{db: db}, nil
}

// Create persists a new task, failing if the ID is taken.
func (s *DatabaseStore) Create(ctx context.Context, task *a2a.Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if err := task.Validate(); err != nil {
		return TaskValidationError{TaskID: task.ID, Err: err}
	}

	if err := s.db.WithContext(ctx).Create(NewTaskModel(task)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return TaskExistsError{TaskID: task.ID}
		}
		return StoreError{Op: "create", TaskID: task.ID, Err: err}
	}
	return nil
}

// Get retrieves a task by ID.
func (s *DatabaseStore) Get(ctx context.Context, taskID string) (*a2a.Task, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}

	var model TaskModel
	if err := s.db.WithContext(ctx).Where("id = ?", taskID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, a2a.TaskNotFoundError{TaskID: taskID}
		}
		return nil, StoreError{Op: "get", TaskID: taskID, Err: err}
	}
	return model.Task(), nil
}

// Save overwrites the stored task, creating it if absent.
func (s *DatabaseStore) Save(ctx context.Context, task *a2a.Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if err := task.Validate(); err != nil {
		return TaskValidationError{TaskID: task.ID, Err: err}
	}

	if err := s.db.WithContext(ctx).Save(NewTaskModel(task)).Error; err != nil {
		return StoreError{Op: "save", TaskID: task.ID, Err: err}
	}
	return nil
}

// Delete removes a task.
func (s *DatabaseStore) Delete(ctx context.Context, taskID string) error {
	if taskID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}

	result := s.db.WithContext(ctx).Where("id = ?", taskID).Delete(&TaskModel{})
	if result.Error != nil {
		return StoreError{Op: "delete", TaskID: taskID, Err: result.Error}
	}
	if result.RowsAffected == 0 {
		return a2a.TaskNotFoundError{TaskID: taskID}
	}
	return nil
}

// Contains reports whether a task with the given ID is stored.
func (s *DatabaseStore) Contains(ctx context.Context, taskID string) (bool, error) {
	if taskID == "" {
		return false, fmt.Errorf("task ID cannot be empty")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&TaskModel{}).Where("id = ?", taskID).Count(&count).Error; err != nil {
		return false, StoreError{Op: "contains", TaskID: taskID, Err: err}
	}
	return count > 0, nil
}

// List retrieves tasks ordered by ID, optionally filtered by context.
func (s *DatabaseStore) List(ctx context.Context, contextID string, limit, offset int) ([]*a2a.Task, error) {
	db := s.db.WithContext(ctx).Model(&TaskModel{}).Order("id")
	if contextID != "" {
		db = db.Where("context_id = ?", contextID)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	if offset > 0 {
		db = db.Offset(offset)
	}

	var models []TaskModel
	if err := db.Find(&models).Error; err != nil {
		return nil, StoreError{Op: "list", Err: err}
	}

	tasks := make([]*a2a.Task, len(models))
	for i := range models {
		tasks[i] = models[i].Task()
	}
	return tasks, nil
}
