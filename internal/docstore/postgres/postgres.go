// Package postgres backs the docstore contract with a single JSONB documents
// table, one logical collection per collection name.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"studwerk/internal/docstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection text NOT NULL,
	id text NOT NULL,
	data jsonb NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_collection_idx ON documents (collection);
CREATE UNIQUE INDEX IF NOT EXISTS documents_application_guard
	ON documents ((data->>'job_id'), (data->>'student_id'))
	WHERE collection = 'applications';
`

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the documents table and the unique application guard.
// Idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("docstore migrate: %w", err)
	}
	return nil
}

func (s *Store) Collection(name string) docstore.Collection {
	return &collection{q: s.db, name: name}
}

const txAttempts = 3

// RunTransaction runs fn at SERIALIZABLE isolation. Read-check-write
// sequences inside fn (the accept guard) stay correct under concurrent
// transactions: a conflicting interleaving aborts with a serialization
// failure instead of committing, and the transaction is retried.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	var err error
	for attempt := 0; attempt < txAttempts; attempt++ {
		err = s.runOnce(ctx, fn)
		if err == nil || !retryable(err) {
			return err
		}
	}
	return mapError(err)
}

func (s *Store) runOnce(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return mapError(err)
	}
	if err := fn(ctx, txView{tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return mapError(err)
	}
	return nil
}

// retryable reports whether the transaction aborted with a serialization
// failure (40001) or deadlock (40P01), both safe to rerun from scratch.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

type txView struct {
	tx *sql.Tx
}

func (t txView) Collection(name string) docstore.Collection {
	return &collection{q: t.tx, name: name}
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type collection struct {
	q    queryer
	name string
}

func (c *collection) Get(ctx context.Context, id string) (*docstore.Document, error) {
	row := c.q.QueryRowContext(ctx, `SELECT data FROM documents WHERE collection = $1 AND id = $2`, c.name, id)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, mapError(err)
	}
	data, err := decodeData(raw)
	if err != nil {
		return nil, err
	}
	return &docstore.Document{ID: id, Data: data}, nil
}

func (c *collection) Create(ctx context.Context, data map[string]any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	if _, err := c.q.ExecContext(ctx, `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)`, c.name, id, raw); err != nil {
		return "", mapError(err)
	}
	return id, nil
}

func (c *collection) Update(ctx context.Context, id string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	result, err := c.q.ExecContext(ctx, `UPDATE documents SET data = data || $3 WHERE collection = $1 AND id = $2`, c.name, id, raw)
	if err != nil {
		return mapError(err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (c *collection) Delete(ctx context.Context, id string) error {
	result, err := c.q.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, c.name, id)
	if err != nil {
		return mapError(err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (c *collection) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, data FROM documents WHERE collection = $1`)
	args := []any{c.name}
	for _, f := range q.Filters {
		args = append(args, f.Value)
		fmt.Fprintf(&sb, ` AND data->>%s = $%d`, quoteLiteral(f.Field), len(args))
	}
	if q.OrderBy != "" {
		direction := "ASC"
		if q.Desc {
			direction = "DESC"
		}
		fmt.Fprintf(&sb, ` ORDER BY data->>%s %s`, quoteLiteral(q.OrderBy), direction)
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}
	rows, err := c.q.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	var results []docstore.Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, mapError(err)
		}
		data, err := decodeData(raw)
		if err != nil {
			return nil, err
		}
		results = append(results, docstore.Document{ID: id, Data: data})
	}
	return results, rows.Err()
}

func decodeData(raw []byte) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("docstore: corrupt document payload: %w", err)
	}
	return data, nil
}

// quoteLiteral quotes a JSON field name for use as a SQL string literal.
// Field names come from repository code, never from user input.
func quoteLiteral(field string) string {
	return "'" + strings.ReplaceAll(field, "'", "''") + "'"
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return docstore.ErrConflict
		}
		// Class 40: a transaction that could not be serialized even after
		// retries lost a genuine race.
		if strings.HasPrefix(pgErr.Code, "40") {
			return fmt.Errorf("%w: %s", docstore.ErrConflict, pgErr.Message)
		}
		// Class 08: connection exceptions.
		if strings.HasPrefix(pgErr.Code, "08") {
			return fmt.Errorf("%w: %s", docstore.ErrUnavailable, pgErr.Message)
		}
	}
	return err
}
