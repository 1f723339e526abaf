package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/d-ashesss/nulland/internal/auth"
	"github.com/d-ashesss/nulland/internal/events"
	"github.com/d-ashesss/nulland/internal/note"
)

// maxBodySize caps note payloads. Content is unbounded by the schema but a
// request body has to end somewhere.
const maxBodySize = 1 << 20

// validate is shared across handlers; Validate instances cache struct
// metadata and are safe for concurrent use.
var validate = newValidator()

// newValidator builds a validator that reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// noteHandler holds dependencies for the note API endpoints.
type noteHandler struct {
	store  NoteStore
	sink   events.Sink
	logger *slog.Logger
}

// createNoteRequest is the request body for POST /notes.
// Content is a pointer so that "absent" fails validation while an
// explicitly empty string is accepted.
type createNoteRequest struct {
	Title   string  `json:"title" validate:"required,max=100"`
	Content *string `json:"content" validate:"required"`
}

// updateNoteRequest is the request body for PATCH /notes/{id}.
// Nil fields were omitted by the client and must not be touched.
type updateNoteRequest struct {
	Title   *string `json:"title" validate:"omitempty,min=1,max=100"`
	Content *string `json:"content"`
}

// noteItem is the JSON representation of a note. The owner is deliberately
// not exposed.
type noteItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// toNoteItem converts a note.Note to its JSON representation.
func toNoteItem(n *note.Note) noteItem {
	return noteItem{
		ID:        n.ID.String(),
		Title:     n.Title,
		Content:   n.Content,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// createNote handles POST /notes — creates a note owned by the caller.
func (h *noteHandler) createNote(w http.ResponseWriter, r *http.Request) {
	ident, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	var req createNoteRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, validationDetail(err), h.logger)
		return
	}

	n, err := h.store.Create(r.Context(), ident.ID, req.Title, *req.Content)
	if err != nil {
		h.logger.Error("creating note", "error", err, "user_id", ident.ID)
		writeError(w, http.StatusInternalServerError, "Internal Server Error", h.logger)
		return
	}

	h.notify(r.Context(), events.ActionCreated, n)
	writeJSON(w, http.StatusCreated, toNoteItem(n), h.logger)
}

// listNotes handles GET /notes — returns all notes owned by the caller.
func (h *noteHandler) listNotes(w http.ResponseWriter, r *http.Request) {
	ident, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	notes, err := h.store.ByOwner(r.Context(), ident.ID)
	if err != nil {
		h.logger.Error("listing notes", "error", err, "user_id", ident.ID)
		writeError(w, http.StatusInternalServerError, "Internal Server Error", h.logger)
		return
	}

	items := make([]noteItem, len(notes))
	for i, n := range notes {
		items[i] = toNoteItem(n)
	}
	writeJSON(w, http.StatusOK, items, h.logger)
}

// getNote handles GET /notes/{id} — returns a single note.
func (h *noteHandler) getNote(w http.ResponseWriter, r *http.Request) {
	ident, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}

	n, err := h.store.ByID(r.Context(), id, ident.ID)
	if err != nil {
		h.mapStoreError(w, err, "getting note", id)
		return
	}

	writeJSON(w, http.StatusOK, toNoteItem(n), h.logger)
}

// updateNote handles PATCH /notes/{id} — applies a partial update.
// Omitted fields keep their stored values.
func (h *noteHandler) updateNote(w http.ResponseWriter, r *http.Request) {
	ident, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}

	var req updateNoteRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, validationDetail(err), h.logger)
		return
	}

	n, err := h.store.Update(r.Context(), id, ident.ID, note.UpdateParams{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		h.mapStoreError(w, err, "updating note", id)
		return
	}

	h.notify(r.Context(), events.ActionUpdated, n)
	writeJSON(w, http.StatusOK, toNoteItem(n), h.logger)
}

// deleteNote handles DELETE /notes/{id} — permanently removes the note.
func (h *noteHandler) deleteNote(w http.ResponseWriter, r *http.Request) {
	ident, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}

	// Fetch before delete so the sink can report the removed note.
	n, err := h.store.ByID(r.Context(), id, ident.ID)
	if err != nil {
		h.mapStoreError(w, err, "getting note", id)
		return
	}

	if err := h.store.Delete(r.Context(), id, ident.ID); err != nil {
		h.mapStoreError(w, err, "deleting note", id)
		return
	}

	h.notify(r.Context(), events.ActionDeleted, n)
	w.WriteHeader(http.StatusNoContent)
}

// notify emits a mutation event, containing any sink panic. The mutation is
// already committed at this point; a broken sink must not turn it into an
// error response.
func (h *noteHandler) notify(ctx context.Context, action events.Action, n *note.Note) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("notification sink panicked",
				"panic", rec,
				"action", string(action),
				"note_id", n.ID,
			)
		}
	}()
	h.sink.Notify(ctx, action, n)
}

// requireIdentity retrieves the verified identity placed in the context by
// authMiddleware. Its absence means a route was wired without the
// middleware, which is a programming error, but the caller still gets a
// clean 401.
func (h *noteHandler) requireIdentity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	ident, ok := identityFromContext(r.Context())
	if !ok || ident.ID == "" {
		h.logger.Error("identity missing from request context", "path", r.URL.Path)
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "Not authenticated", h.logger)
		return nil, false
	}
	return ident, true
}

// noteID parses the {id} path value.
func (h *noteHandler) noteID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "note_id: must be a valid UUID", h.logger)
		return uuid.Nil, false
	}
	return id, true
}

// decodeBody decodes the JSON request body into dst. Returns false if a
// response has already been written.
func (h *noteHandler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", h.logger)
			return false
		}
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body", h.logger)
		return false
	}
	return true
}

// mapStoreError translates store errors into responses. ErrNotFound covers
// both absent and foreign notes — a 403 would reveal that a note with this
// id exists for another user.
func (h *noteHandler) mapStoreError(w http.ResponseWriter, err error, op string, id uuid.UUID) {
	if errors.Is(err, note.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Note not found", h.logger)
		return
	}
	h.logger.Error(op, "error", err, "id", id)
	writeError(w, http.StatusInternalServerError, "Internal Server Error", h.logger)
}

// validationDetail renders validator errors as a field-level detail string.
// Field values are never echoed back.
func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body"
	}

	details := make([]string, len(verrs))
	for i, fe := range verrs {
		switch fe.Tag() {
		case "required":
			details[i] = fmt.Sprintf("%s: field is required", fe.Field())
		case "max":
			details[i] = fmt.Sprintf("%s: must be at most %s characters", fe.Field(), fe.Param())
		case "min":
			details[i] = fmt.Sprintf("%s: must be at least %s characters", fe.Field(), fe.Param())
		default:
			details[i] = fmt.Sprintf("%s: invalid value", fe.Field())
		}
	}
	return strings.Join(details, "; ")
}
