package store

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func openTestLog(t *testing.T) *SQLiteAuditLog {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	s, err := OpenSQLite(context.Background(), dbPath, logger)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAuditLog_InsertAndRecent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestLog(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	events := []Invocation{
		{Surface: "http", ToolName: "weather", Success: true, DurationMS: 120, CreatedAt: base},
		{Surface: "http", ToolName: "calculator", Success: false, ErrorText: "invalid expression", CreatedAt: base.Add(time.Minute)},
		{Surface: "stdio", ToolName: "get_alerts", Success: true, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, ev := range events {
		if err := s.Insert(ctx, ev); err != nil {
			t.Fatalf("Insert(%q) error = %v", ev.ToolName, err)
		}
	}

	recent, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent(2) returned %d rows", len(recent))
	}
	if recent[0].ToolName != "get_alerts" || recent[1].ToolName != "calculator" {
		t.Fatalf("expected newest-first order, got %q then %q", recent[0].ToolName, recent[1].ToolName)
	}
	if recent[1].Success || recent[1].ErrorText != "invalid expression" {
		t.Fatalf("failure row not preserved: %+v", recent[1])
	}
	if !recent[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("created_at round trip lost: %v", recent[0].CreatedAt)
	}
}

func TestAuditLog_Stats(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestLog(t)

	for i := 0; i < 3; i++ {
		if err := s.Insert(ctx, Invocation{Surface: "http", ToolName: "weather", Success: true}); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
	if err := s.Insert(ctx, Invocation{Surface: "stdio", ToolName: "calculate", Success: false, ErrorText: "boom"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.Total != 4 || st.Failed != 1 || st.HTTP != 3 || st.Stdio != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if st.TopTool != "weather" || st.TopCalls != 3 {
		t.Fatalf("unexpected top tool: %+v", st)
	}
}

func TestAuditLog_StatsEmpty(t *testing.T) {
	t.Parallel()
	s := openTestLog(t)
	st, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() on empty db error = %v", err)
	}
	if st.Total != 0 || st.TopTool != "" {
		t.Fatalf("expected zero stats, got %+v", st)
	}
}

func TestAuditLog_Prune(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestLog(t)

	old := time.Now().UTC().Add(-48 * time.Hour)
	fresh := time.Now().UTC()
	if err := s.Insert(ctx, Invocation{Surface: "http", ToolName: "tasks_get", CreatedAt: old}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := s.Insert(ctx, Invocation{Surface: "http", ToolName: "tasks_get", CreatedAt: fresh}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	n, err := s.Prune(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("Prune() deleted %d rows, want 1", n)
	}

	recent, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 surviving row, got %d", len(recent))
	}
}
