// Package llm defines the provider-agnostic chat message model and the
// streaming provider abstraction. All types here are shared between the
// conversation assembler, the provider adapters and the HTTP layer.
package llm

import (
	"encoding/json"
	"fmt"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Known reports whether the role is one of the recognized conversation roles.
func (r Role) Known() bool {
	return r == RoleUser || r == RoleAssistant || r == RoleSystem
}

// Content part types as they appear on the wire.
const (
	PartTypeText  = "text"
	PartTypeImage = "image_url"
)

// ImageDetailHigh is the fixed quality hint sent with every image part.
// It is not user-configurable.
const ImageDetailHigh = "high"

// ImageURL references an image by data-URI or remote URL.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// ContentPart is one element of an array-form message content.
// Exactly one of Text / ImageURL is meaningful, selected by Type.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// Content is the body of a message. On the wire it is either a plain JSON
// string or an ordered array of ContentPart; order is preserved because
// prompt assembly depends on it.
type Content struct {
	text    string
	parts   []ContentPart
	isParts bool
}

// TextContent builds a plain-string Content.
func TextContent(text string) Content {
	return Content{text: text}
}

// PartsContent builds an array-form Content.
func PartsContent(parts ...ContentPart) Content {
	return Content{parts: parts, isParts: true}
}

// IsParts reports whether the content was supplied as an array of parts.
func (c Content) IsParts() bool { return c.isParts }

// Text returns the plain-string form. Empty when the content is array-form.
func (c Content) Text() string { return c.text }

// Parts returns the array form in original order. Nil for plain strings.
func (c Content) Parts() []ContentPart { return c.parts }

// UnmarshalJSON accepts both wire shapes: a JSON string or an array of parts.
// Anything else is rejected.
func (c *Content) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = Content{text: s}
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err == nil {
		*c = Content{parts: parts, isParts: true}
		return nil
	}
	return fmt.Errorf("content must be a string or an array of parts")
}

// MarshalJSON reproduces the original wire shape (string or array).
func (c Content) MarshalJSON() ([]byte, error) {
	if c.isParts {
		return json.Marshal(c.parts)
	}
	return json.Marshal(c.text)
}

// Message represents a single turn in a conversation.
type Message struct {
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

// Validate checks the message shape: the role must be recognized and every
// content part must be a well-formed text or image_url variant.
func (m Message) Validate() error {
	if !m.Role.Known() {
		return fmt.Errorf("unknown role %q", m.Role)
	}
	if !m.Content.isParts {
		return nil
	}
	for _, p := range m.Content.parts {
		switch p.Type {
		case PartTypeText:
			// text may be empty
		case PartTypeImage:
			if p.ImageURL == nil || p.ImageURL.URL == "" {
				return fmt.Errorf("image_url part without url")
			}
		default:
			return fmt.Errorf("unknown content part type %q", p.Type)
		}
	}
	return nil
}

// StreamEventType discriminates the canonical stream events.
type StreamEventType string

const (
	StreamEventDelta StreamEventType = "delta"
	StreamEventDone  StreamEventType = "done"
	StreamEventError StreamEventType = "error"
)

// StreamEvent is the canonical form every adapter normalizes upstream chunks
// into. Done and Error are terminal: adapters emit exactly one of them per
// stream, as the last event before closing the channel.
type StreamEvent struct {
	Type StreamEventType
	Text string // delta text, set for StreamEventDelta
	Err  string // error message, set for StreamEventError
}

// StreamRequest carries everything an adapter needs to open one upstream
// streaming call.
type StreamRequest struct {
	Model    string
	Prompt   string
	ImageURL string // optional; data-URI or remote URL
	History  []Message
}
