package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxEventLineSize caps a single SSE line at 1 MB. bufio.Scanner's default
// 64 KiB limit is too small for long completion chunks.
const maxEventLineSize = 1 * 1024 * 1024

// maxErrorBodySize caps how much of a non-2xx upstream body is read into an
// error message.
const maxErrorBodySize int64 = 64 * 1024

// doPostStream sends a JSON POST and returns the response with the body left
// open for SSE reading. The caller owns closing the body. Non-2xx responses
// are drained, closed and converted to an *UpstreamError.
func doPostStream(ctx context.Context, client *http.Client, provider, url string, body any, header http.Header) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Provider: provider, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close() //nolint:errcheck
		errBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		if readErr != nil {
			return nil, &UpstreamError{Provider: provider, Status: resp.StatusCode, Message: "failed to read error body"}
		}
		return nil, &UpstreamError{Provider: provider, Status: resp.StatusCode, Message: strings.TrimSpace(string(errBody))}
	}

	return resp, nil
}

// sseScanner reads Server-Sent Events data payloads from a stream.
// It joins multi-line data fields, skips comments and non-data fields, and
// maps the OpenAI-style [DONE] sentinel to io.EOF.
type sseScanner struct {
	scanner *bufio.Scanner
}

func newSSEScanner(r io.Reader) *sseScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventLineSize)
	return &sseScanner{scanner: sc}
}

// Next returns the next event's data payload. io.EOF signals a finished
// stream, either by the [DONE] sentinel or by the connection closing.
func (s *sseScanner) Next() (string, error) {
	var data []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		// Blank line ends an event; flush accumulated data lines.
		if line == "" {
			if len(data) > 0 {
				return strings.Join(data, "\n"), nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		if rest, ok := strings.CutPrefix(line, "data:"); ok {
			payload := strings.TrimSpace(rest)
			if payload == "[DONE]" {
				return "", io.EOF
			}
			data = append(data, payload)
			continue
		}

		// event:, id: and retry: fields are irrelevant to the relay.
	}

	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("sse read: %w", err)
	}
	if len(data) > 0 {
		return strings.Join(data, "\n"), nil
	}
	return "", io.EOF
}

// streamEvents pumps SSE payloads from body through a per-adapter normalizer
// and yields canonical events on the returned channel. The producer emits
// exactly one terminal event (Done on EOF, Error on read failure), closes the
// channel and closes body. Cancelling ctx stops the pump.
func streamEvents(ctx context.Context, body io.ReadCloser, normalize func(payload string) (StreamEvent, bool)) <-chan StreamEvent {
	out := make(chan StreamEvent)
	go func() {
		defer close(out)
		defer body.Close() //nolint:errcheck

		sc := newSSEScanner(body)
		for {
			if ctx.Err() != nil {
				return
			}
			payload, err := sc.Next()
			if err == io.EOF {
				sendEvent(ctx, out, StreamEvent{Type: StreamEventDone})
				return
			}
			if err != nil {
				sendEvent(ctx, out, StreamEvent{Type: StreamEventError, Err: err.Error()})
				return
			}
			if ev, ok := normalize(payload); ok {
				if !sendEvent(ctx, out, ev) {
					return
				}
			}
		}
	}()
	return out
}

func sendEvent(ctx context.Context, out chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
