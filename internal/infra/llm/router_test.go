package llm

import (
	"errors"
	"testing"
)

func testRouter() *Router {
	return NewRouter(map[string]Registration{
		"openai": {
			Default: "gpt-4o-mini",
			Models:  []string{"gpt-4o"},
			New: func() (StreamingChatProvider, error) {
				return NewOpenAIProvider("test-key", "http://example.invalid")
			},
		},
		"gemini": {
			Default: "gemini-1.5-flash",
			New: func() (StreamingChatProvider, error) {
				return nil, &ConfigurationError{Provider: "gemini", Message: "API key is not set"}
			},
		},
	}, "openai")
}

func TestRouterResolveDefaults(t *testing.T) {
	res, err := testRouter().Resolve("", "")
	if err != nil {
		t.Fatalf("resolve defaults: %v", err)
	}
	if res.Provider != "openai" {
		t.Fatalf("expected default provider openai, got %q", res.Provider)
	}
	if res.Model != "gpt-4o-mini" {
		t.Fatalf("expected default model, got %q", res.Model)
	}
}

func TestRouterResolveExplicitModel(t *testing.T) {
	res, err := testRouter().Resolve("openai", "gpt-4o")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Model != "gpt-4o" {
		t.Fatalf("expected gpt-4o, got %q", res.Model)
	}
}

func TestRouterUnknownProvider(t *testing.T) {
	_, err := testRouter().Resolve("claude", "")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Message != "Unknown provider: claude" {
		t.Fatalf("unexpected message: %q", verr.Message)
	}
}

func TestRouterUnknownModel(t *testing.T) {
	_, err := testRouter().Resolve("openai", "gpt-9000")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Message != "Unknown model: gpt-9000" {
		t.Fatalf("unexpected message: %q", verr.Message)
	}
}

func TestRouterFactorySurfacesConfigurationError(t *testing.T) {
	res, err := testRouter().Resolve("gemini", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	_, err = res.New()
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}
