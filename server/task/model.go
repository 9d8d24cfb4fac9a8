// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"database/sql/driver"
	"fmt"

	"github.com/go-json-experiment/json"

	a2a "github.com/go-a2a/a2a-core"
)

// TaskStatusJSON stores a TaskStatus as a JSON database column.
type TaskStatusJSON struct {
	a2a.TaskStatus
}

// Value implements driver.Valuer.
func (s TaskStatusJSON) Value() (driver.Value, error) {
	return json.Marshal(s.TaskStatus)
}

// Scan implements sql.Scanner.
func (s *TaskStatusJSON) Scan(value any) error {
	data, err := columnBytes(value)
	if err != nil {
		return fmt.Errorf("scan task status: %w", err)
	}
	if data == nil {
		*s = TaskStatusJSON{}
		return nil
	}
	return json.Unmarshal(data, &s.TaskStatus)
}

// MessageSliceJSON stores a message slice as a JSON database column.
type MessageSliceJSON struct {
	Messages []*a2a.Message
}

// Value implements driver.Valuer.
func (m MessageSliceJSON) Value() (driver.Value, error) {
	if m.Messages == nil {
		return nil, nil
	}
	return json.Marshal(m.Messages)
}

// Scan implements sql.Scanner.
func (m *MessageSliceJSON) Scan(value any) error {
	data, err := columnBytes(value)
	if err != nil {
		return fmt.Errorf("scan message history: %w", err)
	}
	if data == nil {
		m.Messages = nil
		return nil
	}
	return json.Unmarshal(data, &m.Messages)
}

// ArtifactSliceJSON stores an artifact slice as a JSON database column.
type ArtifactSliceJSON struct {
	Artifacts []*a2a.Artifact
}

// Value implements driver.Valuer.
func (a ArtifactSliceJSON) Value() (driver.Value, error) {
	if a.Artifacts == nil {
		return nil, nil
	}
	return json.Marshal(a.Artifacts)
}

// Scan implements sql.Scanner.
func (a *ArtifactSliceJSON) Scan(value any) error {
	data, err := columnBytes(value)
	if err != nil {
		return fmt.Errorf("scan artifacts: %w", err)
	}
	if data == nil {
		a.Artifacts = nil
		return nil
	}
	return json.Unmarshal(data, &a.Artifacts)
}

// MetadataJSON stores a metadata map as a JSON database column.
type MetadataJSON struct {
	Metadata map[string]any
}

// Value implements driver.Valuer.
func (m MetadataJSON) Value() (driver.Value, error) {
	if m.Metadata == nil {
		return nil, nil
	}
	return json.Marshal(m.Metadata)
}

// Scan implements sql.Scanner.
func (m *MetadataJSON) Scan(value any) error {
	data, err := columnBytes(value)
	if err != nil {
		return fmt.Errorf("scan metadata: %w", err)
	}
	if data == nil {
		m.Metadata = nil
		return nil
	}
	return json.Unmarshal(data, &m.Metadata)
}

func columnBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported column type %T", value)
	}
}

// TaskModel is the GORM row shape for persisted tasks. Status, history,
// artifacts and metadata are stored as JSON columns so the record shape
// stays aligned with the wire shape.
type TaskModel struct {
	ID        string            `gorm:"primaryKey;size:36"`
	ContextID string            `gorm:"size:36;not null;index"`
	Status    TaskStatusJSON    `gorm:"type:json"`
	History   MessageSliceJSON  `gorm:"type:json"`
	Artifacts ArtifactSliceJSON `gorm:"type:json"`
	Metadata  MetadataJSON      `gorm:"type:json"`
}

// TableName returns the table name for TaskModel.
func (TaskModel) TableName() string { return "tasks" }

// NewTaskModel converts a task to its row shape.
func NewTaskModel(task *a2a.Task) *TaskModel {
	return &TaskModel{
		ID:        task.ID,
		ContextID: task.ContextID,
		Status:    TaskStatusJSON{TaskStatus: task.Status},
		History:   MessageSliceJSON{Messages: task.History},
		Artifacts: ArtifactSliceJSON{Artifacts: task.Artifacts},
		Metadata:  MetadataJSON{Metadata: task.Metadata},
	}
}

// Task converts the row back to the protocol shape.
func (m *TaskModel) Task() *a2a.Task {
	return &a2a.Task{
		Kind:      a2a.EventKindTask,
		ID:        m.ID,
		ContextID: m.ContextID,
		Status:    m.Status.TaskStatus,
		History:   m.History.Messages,
		Artifacts: m.Artifacts.Artifacts,
		Metadata:  m.Metadata.Metadata,
	}
}
