// Chat handler: the per-request orchestrator. Validates and opens the
// stream via the chat service, then relays chunks to the client as SSE
// frames. Once the first byte is on the wire, failures are reported in-band
// as an error frame instead of an HTTP status.
package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tabpilot/relay/internal/domain/chat"
	"github.com/tabpilot/relay/internal/domain/requestlog"
	"github.com/tabpilot/relay/internal/infra/eventbus"
	"github.com/tabpilot/relay/internal/infra/llm"
)

// ChatStreamService is the contract the handler needs from the relay
// service. chat.Service satisfies it.
type ChatStreamService interface {
	Stream(ctx context.Context, in chat.ChatInput) (<-chan chat.StreamChunk, error)
}

// ChatHandler serves POST /chat.
type ChatHandler struct {
	service ChatStreamService
	bus     eventbus.EventBus // nil disables request-outcome logging
}

// NewChatHandler creates the handler. bus may be nil.
func NewChatHandler(service ChatStreamService, bus eventbus.EventBus) *ChatHandler {
	return &ChatHandler{service: service, bus: bus}
}

type chatRequest struct {
	Messages []llm.Message `json:"messages"`
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
}

// wire frames
type contentFrame struct {
	Content string `json:"content"`
}

type errorFrame struct {
	Error string `json:"error"`
}

// Chat handles one relay request end to end.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	corsHeaders(w)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid messages format")
		h.publish(requestlog.Entry{
			Provider: req.Provider, Model: req.Model,
			Outcome: requestlog.OutcomeError, ErrorKind: requestlog.KindValidation,
			Duration: time.Since(start),
		})
		return
	}

	stream, err := h.service.Stream(r.Context(), chat.ChatInput{
		Messages: req.Messages,
		Provider: req.Provider,
		Model:    req.Model,
	})
	if err != nil {
		// pre-stream: nothing has been written yet, a status-coded JSON
		// error is still possible
		status, kind := classifyError(err)
		writeError(w, status, err.Error())
		h.publish(requestlog.Entry{
			Provider: req.Provider, Model: req.Model,
			Outcome: requestlog.OutcomeError, ErrorKind: kind,
			Duration: time.Since(start),
		})
		return
	}

	bw, flusher, err := prepareEventStream(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	entry := h.streamChunks(bw, flusher, stream)
	entry.Duration = time.Since(start)
	h.publish(entry)
}

// streamChunks relays chunks until the terminal one. A failed write means
// the client went away: the loop stops pulling and the request context
// cancellation tears down the upstream pump.
func (h *ChatHandler) streamChunks(bw *bufio.Writer, flusher http.Flusher, stream <-chan chat.StreamChunk) requestlog.Entry {
	for chunk := range stream {
		switch chunk.Type {
		case chat.ChunkContent:
			if !writeFrame(bw, flusher, contentFrame{Content: chunk.Content}) {
				return requestlog.Entry{Outcome: requestlog.OutcomeError, ErrorKind: requestlog.KindStream}
			}

		case chat.ChunkError:
			// in-band error frame; the stream closes with no [DONE] after it
			writeFrame(bw, flusher, errorFrame{Error: chunk.Err})
			return requestlog.Entry{
				Provider: chunk.Provider, Model: chunk.Model,
				Outcome: requestlog.OutcomeError, ErrorKind: requestlog.KindStream,
			}

		case chat.ChunkDone:
			writeSentinel(bw, flusher)
			return requestlog.Entry{
				Provider: chunk.Provider, Model: chunk.Model,
				Outcome: requestlog.OutcomeOK,
			}
		}
	}
	return requestlog.Entry{Outcome: requestlog.OutcomeError, ErrorKind: requestlog.KindStream}
}

func (h *ChatHandler) publish(entry requestlog.Entry) {
	if h.bus == nil {
		return
	}
	h.bus.Publish(requestlog.TopicChatCompleted, entry)
}

// classifyError maps the relay error taxonomy onto HTTP statuses and log
// kinds for pre-stream failures.
func classifyError(err error) (int, string) {
	var verr *llm.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, requestlog.KindValidation
	}
	var derr *llm.ImageDecodeError
	if errors.As(err, &derr) {
		return http.StatusBadRequest, requestlog.KindImageDecode
	}
	var cerr *llm.ConfigurationError
	if errors.As(err, &cerr) {
		return http.StatusInternalServerError, requestlog.KindConfiguration
	}
	var uerr *llm.UpstreamError
	if errors.As(err, &uerr) {
		return http.StatusBadGateway, requestlog.KindUpstream
	}
	return http.StatusInternalServerError, requestlog.KindStream
}

// prepareEventStream switches the response into SSE mode.
func prepareEventStream(w http.ResponseWriter) (*bufio.Writer, http.Flusher, error) {
	w.Header().Set(headerContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Flusher")
	}
	return bufio.NewWriter(w), flusher, nil
}

// writeFrame emits one data frame and reports whether the client is still
// connected.
func writeFrame(bw *bufio.Writer, flusher http.Flusher, payload any) bool {
	b, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	if _, err := fmt.Fprintf(bw, "data: %s\n\n", b); err != nil {
		return false
	}
	if err := bw.Flush(); err != nil {
		return false
	}
	flusher.Flush()
	return true
}

// writeSentinel emits the terminal [DONE] frame.
func writeSentinel(bw *bufio.Writer, flusher http.Flusher) {
	if _, err := fmt.Fprint(bw, "data: [DONE]\n\n"); err != nil {
		return
	}
	_ = bw.Flush()
	flusher.Flush()
}
