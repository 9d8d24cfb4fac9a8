// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewTask creates a Task in the submitted state from an inbound message.
// Missing task and context IDs are generated; the message is recorded as the
// first history entry.
func NewTask(message *Message) (*Task, error) {
	if message == nil {
		return nil, fmt.Errorf("message cannot be nil")
	}
	if err := message.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request message: %w", err)
	}

	taskID := message.TaskID
	if taskID == "" {
		taskID = uuid.New().String()
	}
	contextID := message.ContextID
	if contextID == "" {
		contextID = uuid.New().String()
	}

	return &Task{
		Kind:      EventKindTask,
		ID:        taskID,
		ContextID: contextID,
		Status:    TaskStatus{State: TaskStateSubmitted},
		History:   []*Message{message},
	}, nil
}

// NewUserTextMessage creates a user message containing a single text part.
func NewUserTextMessage(text, contextID, taskID string) *Message {
	return newTextMessage(RoleUser, text, contextID, taskID)
}

// NewAgentTextMessage creates an agent message containing a single text part.
func NewAgentTextMessage(text, contextID, taskID string) *Message {
	return newTextMessage(RoleAgent, text, contextID, taskID)
}

func newTextMessage(role Role, text, contextID, taskID string) *Message {
	return &Message{
		Kind:      EventKindMessage,
		Role:      role,
		MessageID: uuid.New().String(),
		ContextID: contextID,
		TaskID:    taskID,
		Parts:     []Part{NewTextPart(text)},
	}
}

// MessageText concatenates the text parts of a message, joined by delimiter.
// Non-text parts are skipped.
func MessageText(message *Message, delimiter string) string {
	if message == nil {
		return ""
	}
	var texts []string
	for _, part := range message.Parts {
		if tp, ok := part.Content().(*TextPart); ok {
			texts = append(texts, tp.Text)
		}
	}
	return strings.Join(texts, delimiter)
}

// ArtifactText concatenates the text parts of an artifact, joined by
// delimiter. Non-text parts are skipped.
func ArtifactText(artifact *Artifact, delimiter string) string {
	if artifact == nil {
		return ""
	}
	var texts []string
	for _, part := range artifact.Parts {
		if tp, ok := part.Content().(*TextPart); ok {
			texts = append(texts, tp.Text)
		}
	}
	return strings.Join(texts, delimiter)
}

// NewArtifact creates an Artifact from parts with a generated ID.
func NewArtifact(parts []Part, name, description string) (*Artifact, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("artifact must contain at least one part")
	}
	for i, part := range parts {
		if err := part.Validate(); err != nil {
			return nil, fmt.Errorf("part at index %d is invalid: %w", i, err)
		}
	}

	return &Artifact{
		ArtifactID:  uuid.New().String(),
		Name:        name,
		Description: description,
		Parts:       parts,
	}, nil
}

// NewTextArtifact creates an Artifact containing a single text part.
func NewTextArtifact(name, text, description string) (*Artifact, error) {
	if text == "" {
		return nil, fmt.Errorf("text content cannot be empty")
	}
	return NewArtifact([]Part{NewTextPart(text)}, name, description)
}

// NewDataArtifact creates an Artifact containing a single data part.
func NewDataArtifact(name string, data map[string]any, description string) (*Artifact, error) {
	if data == nil {
		return nil, fmt.Errorf("data content cannot be nil")
	}
	return NewArtifact([]Part{NewDataPart(data)}, name, description)
}

// NewFileArtifact creates an Artifact containing a single file part.
func NewFileArtifact(name string, file File, description string) (*Artifact, error) {
	if file == nil {
		return nil, fmt.Errorf("file content cannot be nil")
	}
	return NewArtifact([]Part{NewFilePart(file)}, name, description)
}
