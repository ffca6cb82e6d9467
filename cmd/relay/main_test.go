package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tabpilot/relay/internal/infra/config"
)

func TestRunVersionFlag(t *testing.T) {
	var out bytes.Buffer
	code := run([]string{"-version"}, &out)

	if code != 0 {
		t.Fatalf("exit code = %d; want 0", code)
	}
	if !strings.Contains(out.String(), "relay version") {
		t.Fatalf("output = %q; want version string", out.String())
	}
}

func TestRunUnknownFlag(t *testing.T) {
	var out bytes.Buffer
	if code := run([]string{"-bogus"}, &out); code != 2 {
		t.Fatalf("exit code = %d; want 2", code)
	}
}

func TestProviderRegistrations(t *testing.T) {
	cfg := config.Defaults()
	cfg.OpenAIAPIKey = "sk-test"
	regs := providerRegistrations(cfg)

	openai, ok := regs["openai"]
	if !ok {
		t.Fatal("missing openai registration")
	}
	if openai.Default != "gpt-4o-mini" {
		t.Fatalf("openai default = %q", openai.Default)
	}
	p, err := openai.New()
	if err != nil {
		t.Fatalf("openai factory error = %v", err)
	}
	if p.Name() != "openai" {
		t.Fatalf("provider name = %q", p.Name())
	}

	gemini, ok := regs["gemini"]
	if !ok {
		t.Fatal("missing gemini registration")
	}
	if gemini.Default != "gemini-1.5-flash" {
		t.Fatalf("gemini default = %q", gemini.Default)
	}
	// no key configured: construction must fail eagerly
	if _, err := gemini.New(); err == nil {
		t.Fatal("gemini factory should fail without an API key")
	}
}
