// Gemini adapter. Speaks the generateContent SSE protocol (alt=sse): each
// data payload is a JSON block with nested candidates, and the stream simply
// ends when generation is complete (no sentinel).
package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// GeminiProvider implements StreamingChatProvider against the Gemini
// generative-language API.
type GeminiProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiProvider constructs the adapter. Fails with *ConfigurationError
// when the API key is absent.
func NewGeminiProvider(apiKey, baseURL string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, &ConfigurationError{Provider: "gemini", Message: "API key is not set"}
	}
	return &GeminiProvider{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}, nil
}

// Name implements StreamingChatProvider.
func (p *GeminiProvider) Name() string { return "gemini" }

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerateRequest struct {
	Contents []geminiContent `json:"contents"`
}

// StreamChat implements StreamingChatProvider. When history exists the
// request is seeded with the remapped history followed by the current turn;
// an empty history degenerates to a one-shot single-content request. Either
// way the upstream call and chunk handling are identical, so the branch stays
// inside buildGeminiContents.
func (p *GeminiProvider) StreamChat(ctx context.Context, req StreamRequest) (<-chan StreamEvent, error) {
	contents, err := buildGeminiContents(req)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", p.baseURL, req.Model)
	header := http.Header{}
	header.Set("x-goog-api-key", p.apiKey)

	resp, err := doPostStream(ctx, p.httpClient, "gemini", url, geminiGenerateRequest{Contents: contents}, header)
	if err != nil {
		return nil, err
	}

	return streamEvents(ctx, resp.Body, normalizeGeminiChunk), nil
}

// buildGeminiContents assembles the contents array: remapped history (when
// present) followed by the current user turn with optional inline image.
func buildGeminiContents(req StreamRequest) ([]geminiContent, error) {
	var contents []geminiContent
	for _, msg := range req.History {
		contents = append(contents, geminiContent{
			Role:  geminiRole(msg.Role),
			Parts: []geminiPart{{Text: flattenContent(msg.Content)}},
		})
	}

	current := geminiContent{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}
	if req.ImageURL != "" {
		inline, err := decodeImageDataURI(req.ImageURL)
		if err != nil {
			return nil, err
		}
		current.Parts = append(current.Parts, geminiPart{InlineData: inline})
	}
	return append(contents, current), nil
}

// geminiRole remaps conversation roles onto the two roles Gemini recognizes:
// anything that is not the user speaks as the model.
func geminiRole(r Role) string {
	if r == RoleUser {
		return "user"
	}
	return "model"
}

// flattenContent reduces a message body to plain text for history seeding.
// Array-form content contributes the concatenation of its text parts; image
// references in history are not re-sent.
func flattenContent(c Content) string {
	if !c.IsParts() {
		return c.Text()
	}
	var b strings.Builder
	for _, p := range c.Parts() {
		if p.Type == PartTypeText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// decodeImageDataURI splits a data-URI of the form
// "data:<mime>;base64,<payload>" into inline data for the API. Any other
// shape, or an invalid base64 payload, fails with *ImageDecodeError.
func decodeImageDataURI(uri string) (*geminiInlineData, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, &ImageDecodeError{Message: "image is not a data-URI"}
	}
	mime, payload, ok := strings.Cut(rest, ";base64,")
	if !ok || mime == "" {
		return nil, &ImageDecodeError{Message: "data-URI is missing a base64 segment"}
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return nil, &ImageDecodeError{Message: "data-URI payload is not valid base64"}
	}
	return &geminiInlineData{MimeType: mime, Data: payload}, nil
}

type geminiStreamChunk struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// normalizeGeminiChunk extracts candidates[0].content.parts[0].text from one
// raw SSE payload. Chunks without that path (safety metadata, keepalives)
// yield no event. Malformed payloads get one repair attempt, then are
// absorbed with a log line.
func normalizeGeminiChunk(payload string) (StreamEvent, bool) {
	var chunk geminiStreamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(payload)
		if repairErr != nil || json.Unmarshal([]byte(repaired), &chunk) != nil {
			log.Printf("gemini: dropping unparseable chunk: %v", err)
			return StreamEvent{}, false
		}
	}
	if len(chunk.Candidates) == 0 || len(chunk.Candidates[0].Content.Parts) == 0 {
		return StreamEvent{}, false
	}
	text := chunk.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return StreamEvent{}, false
	}
	return StreamEvent{Type: StreamEventDelta, Text: text}, true
}
