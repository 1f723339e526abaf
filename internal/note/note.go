// Package note persists user-owned notes in PostgreSQL.
//
// Every read and mutation is scoped by both note id and owner id in a single
// round-trip. A note owned by someone else is indistinguishable from a note
// that does not exist: both surface as ErrNotFound.
package note

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no note matches the given id and owner.
var ErrNotFound = errors.New("note not found")

// Note is a single user-owned note.
type Note struct {
	ID        uuid.UUID
	OwnerID   string
	Title     string
	Content   string
	CreatedAt time.Time
}

// UpdateParams carries a partial update. Nil fields are left unchanged.
type UpdateParams struct {
	Title   *string
	Content *string
}
