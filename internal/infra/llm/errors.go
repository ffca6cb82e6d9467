package llm

import "fmt"

// ValidationError marks a request the relay rejects before contacting any
// upstream: malformed messages, unknown provider, unresolvable model.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConfigurationError marks a provider that cannot be constructed, typically
// because its credential is absent. Fatal for that provider until the process
// is restarted with the credential set.
type ConfigurationError struct {
	Provider string
	Message  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// ImageDecodeError marks a malformed image data-URI.
type ImageDecodeError struct {
	Message string
}

func (e *ImageDecodeError) Error() string { return e.Message }

// UpstreamError marks a provider API rejecting the call or dropping the
// connection. Status carries the upstream HTTP status when one was received.
type UpstreamError struct {
	Provider string
	Status   int
	Message  string
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s upstream status %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s upstream: %s", e.Provider, e.Message)
}
