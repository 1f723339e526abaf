package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/d-ashesss/nulland/internal/note"
)

func sampleNote() *note.Note {
	return &note.Note{
		ID:        uuid.MustParse("8d8e8f90-0000-4000-8000-000000000001"),
		OwnerID:   "user-1",
		Title:     "title",
		Content:   "content",
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEnvelopeShape(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(newEnvelope(ActionCreated, sampleNote()))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded struct {
		Action string `json:"action"`
		Note   struct {
			ID      string `json:"id"`
			UserID  string `json:"user_id"`
			Title   string `json:"title"`
			Content string `json:"content"`
		} `json:"note"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded.Action != "created" {
		t.Errorf("action = %q, want created", decoded.Action)
	}
	if decoded.Note.ID != "8d8e8f90-0000-4000-8000-000000000001" {
		t.Errorf("note.id = %q", decoded.Note.ID)
	}
	// Events carry the owner, unlike API responses
	if decoded.Note.UserID != "user-1" {
		t.Errorf("note.user_id = %q, want user-1", decoded.Note.UserID)
	}
}

func TestLogSink(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	sink := LogSink{Logger: logger}
	sink.Notify(context.Background(), ActionDeleted, sampleNote())

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["action"] != "deleted" {
		t.Errorf("logged action = %v, want deleted", entry["action"])
	}
	if entry["user_id"] != "user-1" {
		t.Errorf("logged user_id = %v", entry["user_id"])
	}
}

func TestLogSinkNilLogger(t *testing.T) {
	// Must not panic
	LogSink{}.Notify(context.Background(), ActionCreated, sampleNote())
}

func TestNoopSink(t *testing.T) {
	t.Parallel()
	// Must accept anything without side effects
	NoopSink{}.Notify(context.Background(), ActionUpdated, sampleNote())
}

func TestNewRedisSinkInvalidURL(t *testing.T) {
	t.Parallel()

	if _, err := NewRedisSink(context.Background(), "not-a-url", slog.New(slog.DiscardHandler)); err == nil {
		t.Error("NewRedisSink() = nil error for invalid URL")
	}
}

func TestNewRedisSinkUnreachable(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := NewRedisSink(ctx, "redis://127.0.0.1:1", slog.New(slog.DiscardHandler)); err == nil {
		t.Error("NewRedisSink() = nil error for unreachable server")
	}
}
