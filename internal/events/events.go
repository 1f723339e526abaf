// Package events emits best-effort notifications about note mutations.
//
// Delivery is at-most-once and must never affect the outcome of the mutation
// that triggered it: every implementation swallows its own errors and logs
// them. The concrete sink is selected from configuration at process start.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/d-ashesss/nulland/internal/note"
)

// Action identifies the mutation a notification describes.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Sink receives notifications about successful note mutations.
// Notify must not block the request and must not fail it.
type Sink interface {
	Notify(ctx context.Context, action Action, n *note.Note)
}

// noteLog is the wire representation of a note in an emitted event.
// Unlike API responses it includes the owner, for downstream consumers.
type noteLog struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// envelope is the emitted message body.
type envelope struct {
	Action Action  `json:"action"`
	Note   noteLog `json:"note"`
}

func newEnvelope(action Action, n *note.Note) envelope {
	return envelope{
		Action: action,
		Note: noteLog{
			ID:        n.ID.String(),
			UserID:    n.OwnerID,
			Title:     n.Title,
			Content:   n.Content,
			CreatedAt: n.CreatedAt,
		},
	}
}

// NoopSink discards all notifications.
type NoopSink struct{}

func (NoopSink) Notify(context.Context, Action, *note.Note) {}

// LogSink writes each notification to the structured log.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Notify(_ context.Context, action Action, n *note.Note) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("note event",
		"action", string(action),
		"note_id", n.ID,
		"user_id", n.OwnerID,
	)
}
