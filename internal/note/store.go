package note

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// noteCols is the standard SELECT column list for scanning.
const noteCols = `id, user_id, title, content, created_at`

// Store manages note persistence with a PostgreSQL backend.
//
// Store is safe for concurrent use by multiple goroutines. Conflicting
// writes to the same row are serialized by the database, not in memory.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a note Store.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Create inserts a note for the given owner and returns it with the
// store-assigned creation timestamp.
func (s *Store) Create(ctx context.Context, ownerID, title, content string) (*Note, error) {
	n := &Note{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Title:   title,
		Content: content,
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO notes (id, user_id, title, content)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		n.ID, n.OwnerID, n.Title, n.Content,
	).Scan(&n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting note: %w", err)
	}

	s.logger.Debug("created note", "id", n.ID, "owner", n.OwnerID)
	return n, nil
}

// ByOwner returns all notes owned by the given user, oldest first.
// The id tie-break keeps the order deterministic when timestamps collide.
func (s *Store) ByOwner(ctx context.Context, ownerID string) ([]*Note, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+noteCols+` FROM notes
		 WHERE user_id = $1
		 ORDER BY created_at, id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()

	return scanNotes(rows)
}

// ByID returns the note with the given id if it is owned by the given user.
// Returns ErrNotFound both for absent notes and notes owned by someone else.
func (s *Store) ByID(ctx context.Context, id uuid.UUID, ownerID string) (*Note, error) {
	n := &Note{}
	err := s.pool.QueryRow(ctx,
		`SELECT `+noteCols+` FROM notes
		 WHERE id = $1 AND user_id = $2`,
		id, ownerID,
	).Scan(&n.ID, &n.OwnerID, &n.Title, &n.Content, &n.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting note %s: %w", id, err)
	}
	return n, nil
}

// Update applies a partial update as one conditional UPDATE filtered by both
// id and owner, closing the get-then-mutate race window. Nil params leave
// the stored value untouched. Returns the full updated note.
func (s *Store) Update(ctx context.Context, id uuid.UUID, ownerID string, params UpdateParams) (*Note, error) {
	n := &Note{}
	err := s.pool.QueryRow(ctx,
		`UPDATE notes
		 SET title = COALESCE($3, title), content = COALESCE($4, content)
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+noteCols,
		id, ownerID, params.Title, params.Content,
	).Scan(&n.ID, &n.OwnerID, &n.Title, &n.Content, &n.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating note %s: %w", id, err)
	}

	s.logger.Debug("updated note", "id", n.ID, "owner", n.OwnerID)
	return n, nil
}

// Delete permanently removes the note if it is owned by the given user.
// The affected-row count decides between success and ErrNotFound.
func (s *Store) Delete(ctx context.Context, id uuid.UUID, ownerID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM notes WHERE id = $1 AND user_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("deleting note %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted note", "id", id, "owner", ownerID)
	return nil
}

// scanNotes collects all rows into notes.
func scanNotes(rows pgx.Rows) ([]*Note, error) {
	notes := []*Note{}
	for rows.Next() {
		n := &Note{}
		if err := rows.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Content, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning note row: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading note rows: %w", err)
	}
	return notes, nil
}
