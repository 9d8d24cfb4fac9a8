// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Part kinds used as the JSON discriminator.
const (
	PartKindText = "text"
	PartKindData = "data"
	PartKindFile = "file"
)

// PartContent is the closed set of content variants a Part can carry:
// TextPart, DataPart or FilePart. Code interpreting parts switches
// exhaustively over these three types.
type PartContent interface {
	// PartKind returns the discriminator for the variant.
	PartKind() string

	// Validate ensures the variant is in a valid state.
	Validate() error

	isPartContent()
}

// TextPart is a plain text segment within a message or artifact.
type TextPart struct {
	Kind     string         `json:"kind"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

func (TextPart) isPartContent() {}

// PartKind returns the part discriminator.
func (p *TextPart) PartKind() string { return PartKindText }

// Validate ensures the TextPart is valid.
func (p *TextPart) Validate() error {
	if p.Kind != PartKindText {
		return fmt.Errorf("text part kind must be %q, got %q", PartKindText, p.Kind)
	}
	return nil
}

// DataPart is a structured data segment within a message or artifact.
type DataPart struct {
	Kind     string         `json:"kind"`
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

func (DataPart) isPartContent() {}

// PartKind returns the part discriminator.
func (p *DataPart) PartKind() string { return PartKindData }

// Validate ensures the DataPart is valid.
func (p *DataPart) Validate() error {
	if p.Kind != PartKindData {
		return fmt.Errorf("data part kind must be %q, got %q", PartKindData, p.Kind)
	}
	if p.Data == nil {
		return fmt.Errorf("data part data cannot be nil")
	}
	return nil
}

// FilePart is a file segment within a message or artifact. The file is
// either referenced by URI or embedded as bytes.
type FilePart struct {
	Kind     string         `json:"kind"`
	File     File           `json:"file"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

func (FilePart) isPartContent() {}

// PartKind returns the part discriminator.
func (p *FilePart) PartKind() string { return PartKindFile }

// Validate ensures the FilePart is valid.
func (p *FilePart) Validate() error {
	if p.Kind != PartKindFile {
		return fmt.Errorf("file part kind must be %q, got %q", PartKindFile, p.Kind)
	}
	if p.File == nil {
		return fmt.Errorf("file part file cannot be nil")
	}
	return nil
}

// UnmarshalJSON selects the file variant by the presence of the bytes field.
func (p *FilePart) UnmarshalJSON(data []byte) error {
	var probe struct {
		Kind     string         `json:"kind"`
		File     jsontext.Value `json:"file"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("unmarshal file part: %w", err)
	}

	p.Kind = probe.Kind
	p.Metadata = probe.Metadata

	if len(probe.File) == 0 {
		return nil
	}

	var disc struct {
		Bytes []byte `json:"bytes"`
		URI   string `json:"uri"`
	}
	if err := json.Unmarshal(probe.File, &disc); err != nil {
		return fmt.Errorf("unmarshal file content: %w", err)
	}

	if disc.Bytes != nil {
		var f FileWithBytes
		if err := json.Unmarshal(probe.File, &f); err != nil {
			return fmt.Errorf("unmarshal file bytes: %w", err)
		}
		p.File = &f
		return nil
	}

	var f FileWithURI
	if err := json.Unmarshal(probe.File, &f); err != nil {
		return fmt.Errorf("unmarshal file URI: %w", err)
	}
	p.File = &f
	return nil
}

// File is the content of a FilePart, either referenced by URI or embedded.
type File interface {
	GetURI() string
	GetBytes() []byte
}

// FileBase holds fields common to both file variants.
type FileBase struct {
	Name     string `json:"name,omitzero"`
	MIMEType string `json:"mimeType,omitzero"`
}

// FileWithURI references file content by URI.
type FileWithURI struct {
	FileBase
	URI string `json:"uri"`
}

// GetURI returns the file URI.
func (f *FileWithURI) GetURI() string { return f.URI }

// GetBytes returns nil for URI-based files.
func (f *FileWithURI) GetBytes() []byte { return nil }

// FileWithBytes embeds file content directly.
type FileWithBytes struct {
	FileBase
	Bytes []byte `json:"bytes"`
}

// GetURI returns the empty string for byte-based files.
func (f *FileWithBytes) GetURI() string { return "" }

// GetBytes returns the embedded file content.
func (f *FileWithBytes) GetBytes() []byte { return f.Bytes }

// Part wraps a PartContent variant so containers of mixed parts serialize
// and deserialize through the kind discriminator.
type Part struct {
	content PartContent
}

// NewPart wraps a content variant in a Part.
func NewPart(content PartContent) Part {
	return Part{content: content}
}

// NewTextPart returns a Part carrying plain text.
func NewTextPart(text string) Part {
	return NewPart(&TextPart{Kind: PartKindText, Text: text})
}

// NewDataPart returns a Part carrying structured data.
func NewDataPart(data map[string]any) Part {
	return NewPart(&DataPart{Kind: PartKindData, Data: data})
}

// NewFilePart returns a Part carrying a file.
func NewFilePart(file File) Part {
	return NewPart(&FilePart{Kind: PartKindFile, File: file})
}

// Content returns the wrapped variant.
func (p Part) Content() PartContent { return p.content }

// Validate validates the wrapped variant.
func (p Part) Validate() error {
	if p.content == nil {
		return fmt.Errorf("part cannot be empty")
	}
	return p.content.Validate()
}

// MarshalJSON serializes the wrapped variant directly.
func (p Part) MarshalJSON() ([]byte, error) {
	if p.content == nil {
		return nil, fmt.Errorf("cannot marshal empty part")
	}
	return json.Marshal(p.content)
}

// UnmarshalJSON deserializes into the variant named by the kind field.
func (p *Part) UnmarshalJSON(data []byte) error {
	var disc struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &disc); err != nil {
		return fmt.Errorf("unmarshal part kind: %w", err)
	}

	switch disc.Kind {
	case PartKindText:
		var tp TextPart
		if err := json.Unmarshal(data, &tp); err != nil {
			return fmt.Errorf("unmarshal text part: %w", err)
		}
		p.content = &tp
	case PartKindData:
		var dp DataPart
		if err := json.Unmarshal(data, &dp); err != nil {
			return fmt.Errorf("unmarshal data part: %w", err)
		}
		p.content = &dp
	case PartKindFile:
		var fp FilePart
		if err := json.Unmarshal(data, &fp); err != nil {
			return fmt.Errorf("unmarshal file part: %w", err)
		}
		p.content = &fp
	default:
		return fmt.Errorf("unknown part kind: %q", disc.Kind)
	}

	return nil
}
