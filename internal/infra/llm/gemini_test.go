package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewGeminiProviderRequiresKey(t *testing.T) {
	_, err := NewGeminiProvider("", "http://example.invalid")
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestGeminiRoleRemap(t *testing.T) {
	if geminiRole(RoleUser) != "user" {
		t.Fatal("user must stay user")
	}
	if geminiRole(RoleAssistant) != "model" {
		t.Fatal("assistant must remap to model")
	}
	if geminiRole(RoleSystem) != "model" {
		t.Fatal("system must remap to model")
	}
}

func TestDecodeImageDataURI(t *testing.T) {
	inline, err := decodeImageDataURI("data:image/png;base64,aGk=")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if inline.MimeType != "image/png" {
		t.Fatalf("unexpected mime type %q", inline.MimeType)
	}
	if inline.Data != "aGk=" {
		t.Fatalf("unexpected payload %q", inline.Data)
	}
}

func TestDecodeImageDataURIMalformed(t *testing.T) {
	cases := []string{
		"https://example.com/cat.png", // not a data-URI
		"data:image/png,aGk=",         // no base64 segment
		"data:;base64,aGk=",           // empty mime type
		"data:image/png;base64,!!!",   // invalid base64
	}
	for _, uri := range cases {
		_, err := decodeImageDataURI(uri)
		var derr *ImageDecodeError
		if !errors.As(err, &derr) {
			t.Fatalf("expected ImageDecodeError for %q, got %v", uri, err)
		}
	}
}

func TestBuildGeminiContentsWithHistory(t *testing.T) {
	history := []Message{
		{Role: RoleSystem, Content: TextContent("be brief")},
		{Role: RoleUser, Content: TextContent("hi")},
		{Role: RoleAssistant, Content: TextContent("hello")},
	}
	contents, err := buildGeminiContents(StreamRequest{Prompt: "2+2?", History: history})
	if err != nil {
		t.Fatalf("build contents: %v", err)
	}
	if len(contents) != 4 {
		t.Fatalf("expected history + current turn, got %d", len(contents))
	}
	roles := []string{"model", "user", "model", "user"}
	for i, want := range roles {
		if contents[i].Role != want {
			t.Fatalf("content %d: expected role %q, got %q", i, want, contents[i].Role)
		}
	}
	if contents[3].Parts[0].Text != "2+2?" {
		t.Fatalf("unexpected current turn: %+v", contents[3])
	}
}

func TestBuildGeminiContentsOneShot(t *testing.T) {
	contents, err := buildGeminiContents(StreamRequest{Prompt: "hola"})
	if err != nil {
		t.Fatalf("build contents: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected a single content for empty history, got %d", len(contents))
	}
}

func TestBuildGeminiContentsFlattensHistoryParts(t *testing.T) {
	history := []Message{{
		Role: RoleUser,
		Content: PartsContent(
			ContentPart{Type: PartTypeText, Text: "look at "},
			ContentPart{Type: PartTypeImage, ImageURL: &ImageURL{URL: "data:image/png;base64,aGk="}},
			ContentPart{Type: PartTypeText, Text: "this"},
		),
	}}
	contents, err := buildGeminiContents(StreamRequest{Prompt: "and?", History: history})
	if err != nil {
		t.Fatalf("build contents: %v", err)
	}
	if contents[0].Parts[0].Text != "look at this" {
		t.Fatalf("expected concatenated text parts, got %q", contents[0].Parts[0].Text)
	}
}

func TestNormalizeGeminiChunk(t *testing.T) {
	ev, ok := normalizeGeminiChunk(`{"candidates":[{"content":{"parts":[{"text":"Hola"}]}}]}`)
	if !ok || ev.Type != StreamEventDelta || ev.Text != "Hola" {
		t.Fatalf("unexpected event: %+v ok=%v", ev, ok)
	}

	// safety/metadata blocks without the text path are absorbed
	if _, ok := normalizeGeminiChunk(`{"candidates":[{"finishReason":"STOP"}]}`); ok {
		t.Fatal("expected metadata chunk to yield no event")
	}
	if _, ok := normalizeGeminiChunk(`{"usageMetadata":{"totalTokenCount":12}}`); ok {
		t.Fatal("expected usage chunk to yield no event")
	}
	if _, ok := normalizeGeminiChunk("not json"); ok {
		t.Fatal("expected malformed chunk to be absorbed")
	}
}

func TestGeminiStreamChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":streamGenerateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("alt") != "sse" {
			t.Errorf("expected alt=sse, got %q", r.URL.RawQuery)
		}
		if key := r.Header.Get("x-goog-api-key"); key != "test-key" {
			t.Errorf("unexpected api key header %q", key)
		}
		var req geminiGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "hola" {
			t.Errorf("unexpected contents: %+v", req.Contents)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"Buenas\"}]}}]}\n\n")
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"!\"}]}}]}\n\n")
	}))
	defer srv.Close()

	p, err := NewGeminiProvider("test-key", srv.URL)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	ch, err := p.StreamChat(context.Background(), StreamRequest{Model: "gemini-1.5-flash", Prompt: "hola"})
	if err != nil {
		t.Fatalf("stream chat: %v", err)
	}

	var events []StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}
	if len(events) != 3 {
		t.Fatalf("expected 2 deltas + done, got %+v", events)
	}
	if events[0].Text != "Buenas" || events[1].Text != "!" {
		t.Fatalf("unexpected deltas: %+v", events)
	}
	if events[2].Type != StreamEventDone {
		t.Fatalf("expected terminal Done, got %+v", events[2])
	}
}

func TestGeminiStreamChatBadImageFailsBeforeCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	p, _ := NewGeminiProvider("test-key", srv.URL)
	_, err := p.StreamChat(context.Background(), StreamRequest{
		Model:    "gemini-1.5-flash",
		Prompt:   "what is this?",
		ImageURL: "https://example.com/cat.png",
	})
	var derr *ImageDecodeError
	if !errors.As(err, &derr) {
		t.Fatalf("expected ImageDecodeError, got %v", err)
	}
	if called {
		t.Fatal("upstream must not be contacted when the image cannot be decoded")
	}
}
