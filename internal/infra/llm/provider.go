package llm

import "context"

// StreamingChatProvider is the adapter boundary isolating one upstream
// provider's request/response shape from the rest of the pipeline.
// Adapters (OpenAI, Gemini) implement this interface so the relay is never
// coupled to a specific vendor.
type StreamingChatProvider interface {
	// Name returns the provider key ("openai", "gemini").
	Name() string

	// StreamChat opens one upstream streaming call and returns a channel of
	// canonical events: zero or more Delta events followed by exactly one
	// Done or Error event, then the channel is closed. Upstream chunk order
	// is preserved; nothing is reordered or reassembled.
	//
	// Errors detected before any chunk was received (bad request, upstream
	// rejection, malformed image data-URI) are returned directly. Once the
	// channel exists, failures surface as a terminal Error event instead.
	// The producer goroutine stops when ctx is cancelled.
	StreamChat(ctx context.Context, req StreamRequest) (<-chan StreamEvent, error)
}

// ProviderFactory constructs a provider instance. Construction fails with
// *ConfigurationError when the provider's credential is absent; the check is
// eager so misconfiguration surfaces before any partial response is emitted.
type ProviderFactory func() (StreamingChatProvider, error)
