package chat

import (
	"context"

	"github.com/tabpilot/relay/internal/infra/llm"
)

// StreamChunk types.
const (
	ChunkContent = "content"
	ChunkDone    = "done"
	ChunkError   = "error"
)

// StreamChunk is one unit handed to the HTTP layer. Exactly one terminal
// chunk (done or error) is produced per stream, always last.
type StreamChunk struct {
	Type    string
	Content string // flushed text, set for content chunks
	Err     string // error message, set for error chunks

	// Terminal-chunk extras for programmatic callers: the resolved
	// provider/model and, on done, the accumulated full response text the
	// caller may append to its own history.
	Provider string
	Model    string
	FullText string
}

// ChatInput is the decoded inbound request.
type ChatInput struct {
	Messages []llm.Message
	Provider string // empty means the default provider
	Model    string // empty means the provider's default model
}

// Service wires one request through the pipeline: assemble, resolve, open
// the upstream stream, buffer deltas, emit chunks. Each request gets its own
// adapter instance and buffer; the only shared state is the read-only router.
type Service struct {
	router         *llm.Router
	flushThreshold int
}

// NewService creates the relay service.
func NewService(router *llm.Router, flushThreshold int) *Service {
	return &Service{router: router, flushThreshold: flushThreshold}
}

// Stream validates the input and opens the upstream call. Failures before
// any upstream chunk was received are returned directly, so the caller can
// still answer with a status-coded error. Once the channel is returned, the
// stream has started and all further failures arrive as an error chunk.
//
// The returned channel yields zero or more content chunks followed by
// exactly one terminal chunk, then closes. Cancelling ctx stops the
// pipeline, including the upstream pump.
func (s *Service) Stream(ctx context.Context, in ChatInput) (<-chan StreamChunk, error) {
	prompt, err := Assemble(in.Messages)
	if err != nil {
		return nil, err
	}

	res, err := s.router.Resolve(in.Provider, in.Model)
	if err != nil {
		return nil, err
	}

	provider, err := res.New()
	if err != nil {
		return nil, err
	}

	events, err := provider.StreamChat(ctx, llm.StreamRequest{
		Model:    res.Model,
		Prompt:   prompt.Text,
		ImageURL: prompt.ImageURL,
		History:  prompt.History,
	})
	if err != nil {
		return nil, err
	}

	out := make(chan StreamChunk)
	go s.pump(ctx, res, events, out)
	return out, nil
}

// pump moves canonical events into outbound chunks through the buffer.
func (s *Service) pump(ctx context.Context, res llm.Resolution, events <-chan llm.StreamEvent, out chan<- StreamChunk) {
	defer close(out)

	buf := NewBuffer(s.flushThreshold)
	for ev := range events {
		switch ev.Type {
		case llm.StreamEventDelta:
			if text, ok := buf.Feed(ev.Text); ok {
				if !send(ctx, out, StreamChunk{Type: ChunkContent, Content: text}) {
					return
				}
			}

		case llm.StreamEventError:
			// The error frame replaces any remaining content; buffered
			// leftovers are dropped.
			send(ctx, out, StreamChunk{Type: ChunkError, Err: ev.Err, Provider: res.Provider, Model: res.Model})
			return

		case llm.StreamEventDone:
			if text, ok := buf.FlushRemainder(); ok {
				if !send(ctx, out, StreamChunk{Type: ChunkContent, Content: text}) {
					return
				}
			}
			send(ctx, out, StreamChunk{
				Type:     ChunkDone,
				Provider: res.Provider,
				Model:    res.Model,
				FullText: buf.Total(),
			})
			return
		}
	}

	// The adapter contract guarantees a terminal event, but if the channel
	// closed without one, still terminate exactly once.
	if text, ok := buf.FlushRemainder(); ok {
		if !send(ctx, out, StreamChunk{Type: ChunkContent, Content: text}) {
			return
		}
	}
	send(ctx, out, StreamChunk{Type: ChunkDone, Provider: res.Provider, Model: res.Model, FullText: buf.Total()})
}

func send(ctx context.Context, out chan<- StreamChunk, c StreamChunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
