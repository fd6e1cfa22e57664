package draft

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/plumenet/plume/pkg/nostr"
)

// SQLStore implements Store on a local SQLite database.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore opens the database at path, creating it and running pending
// migrations as needed.
func NewSQLStore(path string) (*SQLStore, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return &SQLStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Save upserts a draft. Zero timestamps are stamped with the current time;
// CreatedAt of an existing row is preserved.
func (s *SQLStore) Save(ctx context.Context, draft *Draft) error {
	if draft.ID == "" {
		return ErrEmptyID
	}

	now := time.Now().UTC()
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}
	if draft.UpdatedAt.IsZero() {
		draft.UpdatedAt = now
	}

	refsJSON, err := marshalRefs(draft.References)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO drafts (id, content, kind, refs, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			kind = excluded.kind,
			refs = excluded.refs,
			updated_at = excluded.updated_at`,
		draft.ID, draft.Content, int(draft.Kind), refsJSON,
		draft.CreatedAt.Format(time.RFC3339), draft.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Get retrieves a draft by ID.
func (s *SQLStore) Get(ctx context.Context, id string) (*Draft, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	var draft Draft
	var kind int
	var refsJSON, createdAtStr, updatedAtStr string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, content, kind, refs, created_at, updated_at
		FROM drafts WHERE id = ?`, id).Scan(
		&draft.ID, &draft.Content, &kind, &refsJSON, &createdAtStr, &updatedAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	draft.Kind = nostr.Kind(kind)
	if err := json.Unmarshal([]byte(refsJSON), &draft.References); err != nil {
		return nil, err
	}
	if draft.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return nil, err
	}
	if draft.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return nil, err
	}

	return &draft, nil
}

// List retrieves summaries of all drafts, most recently updated first.
func (s *SQLStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, updated_at FROM drafts ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var id, content, updatedAtStr string
		if err := rows.Scan(&id, &content, &updatedAtStr); err != nil {
			return nil, err
		}
		updatedAt, err := time.Parse(time.RFC3339, updatedAtStr)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, Summary{
			ID:        id,
			Excerpt:   excerpt(content),
			UpdatedAt: updatedAt,
		})
	}

	return summaries, rows.Err()
}

// Delete removes a draft.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM drafts WHERE id = ?", id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func marshalRefs(refs []nostr.Reference) (string, error) {
	if len(refs) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(refs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
