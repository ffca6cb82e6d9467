// OpenAI adapter. Speaks the chat-completions SSE protocol: the request asks
// for a token-delta stream and each data payload carries a partial choice
// delta, terminated by the [DONE] sentinel.
package llm

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/kaptinlin/jsonrepair"
)

const openaiChatCompletionsPath = "/chat/completions"

// OpenAIProvider implements StreamingChatProvider against an OpenAI-shaped
// chat-completions API.
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	// no client timeout: a streaming response stays open for the whole
	// generation and must not be cut mid-stream.
	httpClient *http.Client
}

// NewOpenAIProvider constructs the adapter. Fails with *ConfigurationError
// when the API key is absent so misconfiguration surfaces before any partial
// response has been written.
func NewOpenAIProvider(apiKey, baseURL string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, &ConfigurationError{Provider: "openai", Message: "API key is not set"}
	}
	return &OpenAIProvider{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}, nil
}

// Name implements StreamingChatProvider.
func (p *OpenAIProvider) Name() string { return "openai" }

type openaiChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// StreamChat implements StreamingChatProvider. History messages map 1:1 to
// upstream role/content; the current turn is appended as plain text, or as a
// two-part text+image content array when an image is present.
func (p *OpenAIProvider) StreamChat(ctx context.Context, req StreamRequest) (<-chan StreamEvent, error) {
	messages := make([]Message, 0, len(req.History)+1)
	messages = append(messages, req.History...)
	messages = append(messages, openaiCurrentTurn(req))

	body := openaiChatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   true,
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := doPostStream(ctx, p.httpClient, "openai", p.baseURL+openaiChatCompletionsPath, body, header)
	if err != nil {
		return nil, err
	}

	return streamEvents(ctx, resp.Body, normalizeOpenAIChunk), nil
}

// openaiCurrentTurn builds the final user message from the prompt text and
// optional image. The image always carries the fixed "high" detail hint.
func openaiCurrentTurn(req StreamRequest) Message {
	if req.ImageURL == "" {
		return Message{Role: RoleUser, Content: TextContent(req.Prompt)}
	}
	return Message{
		Role: RoleUser,
		Content: PartsContent(
			ContentPart{Type: PartTypeText, Text: req.Prompt},
			ContentPart{Type: PartTypeImage, ImageURL: &ImageURL{URL: req.ImageURL, Detail: ImageDetailHigh}},
		),
	}
}

type openaiStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// normalizeOpenAIChunk extracts choices[0].delta.content from one raw SSE
// payload. Heartbeat or metadata chunks without that path yield no event.
// A malformed payload gets one repair attempt and is otherwise absorbed with
// a log line; a single bad chunk never aborts the stream.
func normalizeOpenAIChunk(payload string) (StreamEvent, bool) {
	var chunk openaiStreamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(payload)
		if repairErr != nil || json.Unmarshal([]byte(repaired), &chunk) != nil {
			log.Printf("openai: dropping unparseable chunk: %v", err)
			return StreamEvent{}, false
		}
	}
	if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
		return StreamEvent{}, false
	}
	return StreamEvent{Type: StreamEventDelta, Text: chunk.Choices[0].Delta.Content}, true
}
