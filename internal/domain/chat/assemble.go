// Package chat implements the relay pipeline between the HTTP layer and the
// provider adapters: conversation assembly, output buffering and the
// streaming service that ties them together per request.
package chat

import (
	"github.com/tabpilot/relay/internal/infra/llm"
)

// errInvalidMessages is the single deterministic message for every shape
// problem in the inbound conversation.
const errInvalidMessages = "Invalid messages format"

// Prompt is the assembled view of one request's conversation: the current
// turn's text and optional image, plus everything that came before it.
type Prompt struct {
	Text     string
	ImageURL string
	History  []llm.Message
}

// Assemble validates the raw turn list and derives the current turn and its
// history. The current turn is the LAST user message; history is every
// message strictly before it, in original order and unmodified, including
// interleaved system and assistant messages. Nothing is summarized or
// truncated here.
//
// Fails with *llm.ValidationError when turns is empty, no message has the
// user role, or any message fails the content-shape check.
func Assemble(turns []llm.Message) (Prompt, error) {
	if len(turns) == 0 {
		return Prompt{}, &llm.ValidationError{Message: errInvalidMessages}
	}

	lastUser := -1
	for i, m := range turns {
		if err := m.Validate(); err != nil {
			return Prompt{}, &llm.ValidationError{Message: errInvalidMessages}
		}
		if m.Role == llm.RoleUser {
			lastUser = i
		}
	}
	if lastUser < 0 {
		return Prompt{}, &llm.ValidationError{Message: errInvalidMessages}
	}

	p := Prompt{History: turns[:lastUser]}
	current := turns[lastUser].Content
	if !current.IsParts() {
		p.Text = current.Text()
		return p, nil
	}

	// Array-form content: first text part supplies the prompt text (empty
	// when there is none), first image part supplies the screenshot URL.
	var haveText, haveImage bool
	for _, part := range current.Parts() {
		switch part.Type {
		case llm.PartTypeText:
			if !haveText {
				p.Text = part.Text
				haveText = true
			}
		case llm.PartTypeImage:
			if !haveImage && part.ImageURL != nil {
				p.ImageURL = part.ImageURL.URL
				haveImage = true
			}
		}
	}
	return p, nil
}
