// Package requestlog persists one append-only row per relayed chat request:
// provider, model, outcome and duration. Message content is deliberately
// never stored; conversations live only for the span of their request.
package requestlog

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/tabpilot/relay/internal/infra/eventbus"
	"github.com/tabpilot/relay/pkg/uuid"
)

// TopicChatCompleted is the bus topic the chat handler publishes an Entry on
// after each request terminates.
const TopicChatCompleted = "chat.completed"

// Outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Error kinds, mirroring the relay's error taxonomy. "stream" marks
// failures that surfaced mid-stream as an in-band error frame.
const (
	KindValidation    = "validation"
	KindConfiguration = "configuration"
	KindImageDecode   = "image_decode"
	KindUpstream      = "upstream"
	KindStream        = "stream"
)

// Entry is one request outcome.
type Entry struct {
	ID        string
	Provider  string
	Model     string
	Outcome   string
	ErrorKind string
	Duration  time.Duration
	CreatedAt time.Time
}

// Service writes entries. All operations are append-only; there are no
// updates or deletes.
type Service struct {
	db *sql.DB
}

// NewService creates a request-log service over an already-migrated database.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Record inserts one entry. A zero ID or CreatedAt is filled in here.
func (s *Service) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewV7().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO request_log (id, provider, model, outcome, error_kind, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Provider, e.Model, e.Outcome, e.ErrorKind, e.Duration.Milliseconds(),
		e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("requestlog: insert: %w", err)
	}
	return nil
}

// Start consumes chat.completed events from the bus and records them until
// ctx is cancelled. Failures are logged and skipped; the log is best-effort
// and must never affect request handling.
func (s *Service) Start(ctx context.Context, bus eventbus.EventBus) {
	ch := bus.Subscribe(TopicChatCompleted)
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-ch:
			entry, ok := evt.Payload.(Entry)
			if !ok {
				continue
			}
			if err := s.Record(ctx, entry); err != nil {
				log.Printf("requestlog: %v", err)
			}
		}
	}
}
