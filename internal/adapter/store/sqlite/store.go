// Package sqlite persists review pass history and rejection
// diagnostics. The rejection log is what answers "why did the bot not
// comment on line N" after the fact.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lutradev/lutra/internal/domain"
	"github.com/lutradev/lutra/internal/usecase/review"
)

// Store implements the review Store port using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the database at dbPath. Use ":memory:"
// for tests.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS passes (
		pass_id INTEGER PRIMARY KEY AUTOINCREMENT,
		pull_number INTEGER NOT NULL,
		head_sha TEXT NOT NULL,
		created INTEGER NOT NULL,
		deleted INTEGER NOT NULL,
		timestamp INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rejections (
		rejection_id INTEGER PRIMARY KEY AUTOINCREMENT,
		pass_id INTEGER NOT NULL,
		path TEXT NOT NULL,
		line INTEGER NOT NULL,
		comment_id INTEGER NOT NULL,
		reason TEXT NOT NULL,
		FOREIGN KEY (pass_id) REFERENCES passes(pass_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_passes_pull ON passes(pull_number, timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_rejections_pass ON rejections(pass_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordPass stores one review pass and its rejections atomically.
func (s *Store) RecordPass(ctx context.Context, pass review.PassRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO passes (pull_number, head_sha, created, deleted, timestamp) VALUES (?, ?, ?, ?, ?)`,
		pass.PullNumber, pass.HeadSHA, pass.Created, pass.Deleted, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert pass: %w", err)
	}

	passID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("pass id: %w", err)
	}

	for _, r := range pass.Rejections {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rejections (pass_id, path, line, comment_id, reason) VALUES (?, ?, ?, ?, ?)`,
			passID, r.Path, r.Line, r.ID, string(r.Reason),
		); err != nil {
			return fmt.Errorf("insert rejection: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit pass: %w", err)
	}
	return nil
}

// PassSummary is one stored pass.
type PassSummary struct {
	PassID     int64
	PullNumber int
	HeadSHA    string
	Created    int
	Deleted    int
	Timestamp  time.Time
}

// ListPasses returns the most recent passes for a pull request, newest
// first.
func (s *Store) ListPasses(ctx context.Context, pullNumber, limit int) ([]PassSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT pass_id, pull_number, head_sha, created, deleted, timestamp
		 FROM passes WHERE pull_number = ? ORDER BY timestamp DESC, pass_id DESC LIMIT ?`,
		pullNumber, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()

	var passes []PassSummary
	for rows.Next() {
		var p PassSummary
		var ts int64
		if err := rows.Scan(&p.PassID, &p.PullNumber, &p.HeadSHA, &p.Created, &p.Deleted, &ts); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		p.Timestamp = time.Unix(ts, 0)
		passes = append(passes, p)
	}
	return passes, rows.Err()
}

// GetRejections returns the rejections recorded for a pass.
func (s *Store) GetRejections(ctx context.Context, passID int64) ([]domain.Rejection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, line, comment_id, reason FROM rejections WHERE pass_id = ? ORDER BY rejection_id`,
		passID,
	)
	if err != nil {
		return nil, fmt.Errorf("query rejections: %w", err)
	}
	defer rows.Close()

	var rejections []domain.Rejection
	for rows.Next() {
		var r domain.Rejection
		var reason string
		if err := rows.Scan(&r.Path, &r.Line, &r.ID, &reason); err != nil {
			return nil, fmt.Errorf("scan rejection: %w", err)
		}
		r.Reason = domain.RejectionReason(reason)
		rejections = append(rejections, r)
	}
	return rejections, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
