package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// MaxRecent caps how many attempts Recent returns.
const MaxRecent = 500

// Store is the SQLite-backed attempt log.
type Store struct {
	db     *sql.DB
	writer *worker
}

// Open opens (creating if needed) the database at path and applies
// migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir audit dir: %w", err)
	}

	// WAL so /attempts.json reads do not block behind a write.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		path,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, writer: newWorker(db)}, nil
}

// Record appends an attempt.
func (s *Store) Record(ctx context.Context, a Attempt) error {
	var granted int
	if a.Granted {
		granted = 1
	}

	return s.writer.do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO attempts(id, at_ms, granted, code_length, reason)
VALUES (?, ?, ?, ?, ?);
`, a.ID, a.At.UTC().UnixMilli(), granted, a.Length, a.Reason); err != nil {
			return fmt.Errorf("record attempt: %w", err)
		}
		return nil
	})
}

// Recent returns up to limit attempts, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	if limit <= 0 || limit > MaxRecent {
		limit = MaxRecent
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, at_ms, granted, code_length, reason
FROM attempts
ORDER BY at_ms DESC, id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var (
			a       Attempt
			atMs    int64
			granted int
		)
		if err := rows.Scan(&a.ID, &atMs, &granted, &a.Length, &a.Reason); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.At = time.UnixMilli(atMs).UTC()
		a.Granted = granted == 1
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}

// Close stops the writer and closes the database.
func (s *Store) Close() error {
	s.writer.close()
	return s.db.Close()
}
