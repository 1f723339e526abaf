package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/d-ashesss/nulland/internal/auth"
	"github.com/d-ashesss/nulland/internal/events"
	"github.com/d-ashesss/nulland/internal/note"
)

// TokenVerifier validates a bearer token and produces the caller identity.
// Satisfied by *auth.Verifier; defined here so handlers can be tested with
// a stub (interfaces belong to the consumer, not the provider).
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Identity, error)
}

// NoteStore is the persistence surface the handlers rely on.
// Satisfied by *note.Store.
type NoteStore interface {
	Create(ctx context.Context, ownerID, title, content string) (*note.Note, error)
	ByOwner(ctx context.Context, ownerID string) ([]*note.Note, error)
	ByID(ctx context.Context, id uuid.UUID, ownerID string) (*note.Note, error)
	Update(ctx context.Context, id uuid.UUID, ownerID string, params note.UpdateParams) (*note.Note, error)
	Delete(ctx context.Context, id uuid.UUID, ownerID string) error
}

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger        *slog.Logger
	Verifier      TokenVerifier // Required
	Store         NoteStore     // Required
	Sink          events.Sink   // Optional: nil disables mutation events
	TokenEndpoint string        // Provider token endpoint; empty disables POST /token
	CORSOrigins   []string      // Allowed origins for CORS
	TrustProxy    bool          // Trust X-Real-IP/X-Forwarded-For headers (behind reverse proxy)
	RateBurst     int           // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	handler http.Handler
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Verifier == nil {
		return nil, errors.New("token verifier is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("note store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sink := cfg.Sink
	if sink == nil {
		sink = events.NoopSink{}
	}

	nh := &noteHandler{
		store:  cfg.Store,
		sink:   sink,
		logger: logger,
	}

	mux := http.NewServeMux()

	// Status probes
	mux.HandleFunc("GET /{$}", root)
	mux.HandleFunc("GET /health", health)

	// Notes CRUD — bearer auth enforced for the whole group
	requireAuth := authMiddleware(cfg.Verifier, logger)
	mux.Handle("POST /notes", requireAuth(http.HandlerFunc(nh.createNote)))
	mux.Handle("GET /notes", requireAuth(http.HandlerFunc(nh.listNotes)))
	mux.Handle("GET /notes/{id}", requireAuth(http.HandlerFunc(nh.getNote)))
	mux.Handle("PATCH /notes/{id}", requireAuth(http.HandlerFunc(nh.updateNote)))
	mux.Handle("DELETE /notes/{id}", requireAuth(http.HandlerFunc(nh.deleteNote)))

	// OAuth2 code exchange passthrough (only exists to support interactive
	// API clients; external callers are expected to obtain tokens directly)
	if cfg.TokenEndpoint != "" {
		th := newTokenHandler(cfg.TokenEndpoint, logger)
		mux.HandleFunc("POST /token", th.exchange)
	}

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	return &Server{handler: handler}, nil
}

// Handler returns the root HTTP handler with the full middleware stack.
func (s *Server) Handler() http.Handler {
	return s.handler
}
