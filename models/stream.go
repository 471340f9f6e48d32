package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

type StreamPostRequest struct {
	// Content of the current message. Required, but may be empty.
	Content *string `json:"content"`

	// Files are accepted for compatibility and otherwise ignored.
	Files []FileAttachment `json:"files"`

	// History of previous turns, oldest first.
	History []HistoryTurn `json:"history"`
}

var ErrContentRequired = errors.New("content is required")

// UnmarshalJSON only binds keys that match exactly. Other keys, including
// differently cased ones, are ignored.
func (r *StreamPostRequest) UnmarshalJSON(data []byte) error {
	return decodeFields(data, map[string]any{
		"content": &r.Content,
		"files":   &r.Files,
		"history": &r.History,
	})
}

func (r StreamPostRequest) Validate() error {
	if r.Content == nil {
		return ErrContentRequired
	}
	for i, f := range r.Files {
		if err := f.validate(); err != nil {
			return fmt.Errorf("files[%d]: %w", i, err)
		}
	}
	return nil
}

type FileAttachment struct {
	Name    *string `json:"name"`
	Content *string `json:"content"`
	Type    *string `json:"type"`
}

func (f *FileAttachment) UnmarshalJSON(data []byte) error {
	return decodeFields(data, map[string]any{
		"name":    &f.Name,
		"content": &f.Content,
		"type":    &f.Type,
	})
}

func decodeFields(data []byte, fields map[string]any) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, v := range fields {
		value, ok := raw[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, v); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func (f FileAttachment) validate() error {
	if f.Name == nil {
		return errors.New("name is required")
	}
	if f.Content == nil {
		return errors.New("content is required")
	}
	if f.Type == nil {
		return errors.New("type is required")
	}
	return nil
}

// HistoryTurn is a previous message as sent by the frontend, e.g.
// {"sender": "user", "text": "Hi"}. The keys are not checked until the
// turn is converted into a model message.
type HistoryTurn map[string]any

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

func NewHistoryTurn(sender, text string) HistoryTurn {
	return HistoryTurn{
		"sender": sender,
		"text":   text,
	}
}

// StreamContent is written once per chunk received from the model.
type StreamContent struct {
	Content string `json:"content"`
}

const StreamEventTypeContext = "context"

// StreamContext is written once, after the final chunk.
type StreamContext struct {
	Type string            `json:"type"`
	Data StreamContextData `json:"data"`
}

type StreamContextData struct {
	Sources        []string `json:"sources" yaml:"sources"`
	AdditionalInfo string   `json:"additional_info" yaml:"additional_info"`
	Confidence     float64  `json:"confidence" yaml:"confidence"`
}

var DefaultStreamContextData = StreamContextData{
	Sources:        []string{"example.txt", "reference.md"},
	AdditionalInfo: "This response was generated using...",
	Confidence:     0.95,
}

// StreamEvent is a decoded SSE frame. Exactly one of Content or Context is set.
type StreamEvent struct {
	Content *StreamContent
	Context *StreamContextData
}

func (e *StreamEvent) UnmarshalJSON(data []byte) error {
	var peek struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &peek); err != nil {
		return err
	}
	if peek.Type == StreamEventTypeContext {
		var sc StreamContext
		if err := json.Unmarshal(data, &sc); err != nil {
			return err
		}
		e.Content, e.Context = nil, &sc.Data
		return nil
	}
	var content StreamContent
	if err := json.Unmarshal(data, &content); err != nil {
		return err
	}
	e.Content, e.Context = &content, nil
	return nil
}
