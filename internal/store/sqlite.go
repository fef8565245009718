// Package store persists a tool-invocation audit trail in SQLite. Every
// tool call handled by the HTTP or stdio surface is recorded here so the
// admin dashboard can show traffic without tailing logs.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Invocation captures one tool call handled by a server surface.
type Invocation struct {
	ID         int64
	Surface    string
	ToolName   string
	Success    bool
	ErrorText  string
	DurationMS int64
	CreatedAt  time.Time
}

// Stats summarizes audit counters for admin dashboards.
type Stats struct {
	Total    int64
	Failed   int64
	HTTP     int64
	Stdio    int64
	TopTool  string
	TopCalls int64
}

// AuditLog is the persistence surface used by the servers and the admin TUI.
type AuditLog interface {
	Insert(ctx context.Context, rec Invocation) error
	Recent(ctx context.Context, limit int) ([]Invocation, error)
	Stats(ctx context.Context) (Stats, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// SQLiteAuditLog is a SQLite-backed audit log.
type SQLiteAuditLog struct {
	db     *sql.DB
	logger *log.Logger
}

// OpenSQLite opens and initializes the audit database at dbPath.
func OpenSQLite(ctx context.Context, dbPath string, logger *log.Logger) (*SQLiteAuditLog, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteAuditLog{db: db, logger: logger}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteAuditLog) init(ctx context.Context) error {
	for _, stmt := range splitSQLStatements(schemaSQL) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("run schema stmt: %w", err)
		}
	}
	return nil
}

func splitSQLStatements(s string) []string {
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p+";")
	}
	return out
}

// Insert stores one invocation event.
func (s *SQLiteAuditLog) Insert(ctx context.Context, rec Invocation) error {
	ts := rec.CreatedAt.UTC()
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	success := 0
	if rec.Success {
		success = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO invocations (
		surface, tool_name, success, error_text, duration_ms, created_at
	) VALUES (?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(rec.Surface),
		strings.TrimSpace(rec.ToolName),
		success,
		strings.TrimSpace(rec.ErrorText),
		rec.DurationMS,
		ts.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert invocation: %w", err)
	}
	return nil
}

// Recent returns the most recent invocations in newest-first order.
func (s *SQLiteAuditLog) Recent(ctx context.Context, limit int) ([]Invocation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, surface, tool_name, success, error_text, duration_ms, created_at
FROM invocations
ORDER BY created_at DESC, id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list invocations: %w", err)
	}
	defer rows.Close()

	items := make([]Invocation, 0, limit)
	for rows.Next() {
		var (
			row            Invocation
			successAsInt   int
			createdAtValue string
		)
		if err := rows.Scan(
			&row.ID,
			&row.Surface,
			&row.ToolName,
			&successAsInt,
			&row.ErrorText,
			&row.DurationMS,
			&createdAtValue,
		); err != nil {
			return nil, fmt.Errorf("scan invocation: %w", err)
		}
		row.Success = successAsInt == 1
		if ts, err := time.Parse(time.RFC3339Nano, createdAtValue); err == nil {
			row.CreatedAt = ts
		}
		items = append(items, row)
	}
	return items, rows.Err()
}

// Stats computes aggregate counters over the whole audit table.
func (s *SQLiteAuditLog) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM invocations`).Scan(&st.Total); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM invocations WHERE success = 0`).Scan(&st.Failed); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM invocations WHERE surface = 'http'`).Scan(&st.HTTP); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM invocations WHERE surface = 'stdio'`).Scan(&st.Stdio); err != nil {
		return st, err
	}
	err := s.db.QueryRowContext(ctx, `SELECT tool_name, count(*) AS n
FROM invocations
GROUP BY tool_name
ORDER BY n DESC
LIMIT 1`).Scan(&st.TopTool, &st.TopCalls)
	if err != nil && err != sql.ErrNoRows {
		return st, err
	}
	return st, nil
}

// Prune deletes invocation rows recorded before the given cutoff.
func (s *SQLiteAuditLog) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM invocations WHERE created_at < ?`,
		before.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune invocations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	return n, nil
}

func (s *SQLiteAuditLog) Close() error {
	return s.db.Close()
}
