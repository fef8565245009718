package tasks

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/xiy/toolbelt-mcp/internal/tools"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.json")
	return NewStore(path, log.NewWithOptions(io.Discard, log.Options{}))
}

func TestLifecycle(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)

	added, err := st.Add("Buy milk", "", nil, "")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if added.ID != 1 {
		t.Fatalf("expected first id 1, got %d", added.ID)
	}
	if added.Priority != "medium" {
		t.Fatalf("expected default priority medium, got %q", added.Priority)
	}
	if added.Completed {
		t.Fatal("new task should not be completed")
	}

	active, err := st.List("active")
	if err != nil {
		t.Fatalf("List(active) error = %v", err)
	}
	if len(active) != 1 || active[0].Title != "Buy milk" {
		t.Fatalf("expected Buy milk in active list, got %v", active)
	}

	updated, err := st.Update(added.ID, map[string]any{"completed": true})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !updated.Completed {
		t.Fatal("expected task to be completed after update")
	}

	completed, err := st.List("completed")
	if err != nil {
		t.Fatalf("List(completed) error = %v", err)
	}
	if len(completed) != 1 || completed[0].ID != added.ID {
		t.Fatalf("expected task %d in completed list, got %v", added.ID, completed)
	}

	if err := st.Delete(added.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	all, err := st.List("all")
	if err != nil {
		t.Fatalf("List(all) error = %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty store after delete, got %v", all)
	}
}

func TestAdd_IdsAreNotReused(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)

	first, _ := st.Add("one", "", nil, "low")
	second, _ := st.Add("two", "", nil, "high")
	if second.ID != first.ID+1 {
		t.Fatalf("expected sequential ids, got %d then %d", first.ID, second.ID)
	}
	if err := st.Delete(second.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	third, err := st.Add("three", "", nil, "")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if third.ID != second.ID+1 {
		t.Fatalf("expected id %d after delete, got %d", second.ID+1, third.ID)
	}
}

func TestAdd_InvalidDueDateDoesNotMutateStore(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)

	due := "not-a-date"
	_, err := st.Add("bad", "", &due, "")
	if err == nil {
		t.Fatal("expected due date validation error")
	}
	if tools.KindOf(err) != tools.KindValidation {
		t.Fatalf("expected validation kind, got %v", tools.KindOf(err))
	}
	if _, statErr := os.Stat(st.path); !os.IsNotExist(statErr) {
		t.Fatalf("expected no tasks file after failed add, stat err = %v", statErr)
	}
}

func TestAdd_BlankTitle(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)

	for _, title := range []string{"", "   ", "\t\n"} {
		if _, err := st.Add(title, "", nil, ""); tools.KindOf(err) != tools.KindValidation {
			t.Fatalf("Add(%q) kind = %v, want validation", title, tools.KindOf(err))
		}
	}
	all, err := st.List("all")
	if err != nil {
		t.Fatalf("List(all) error = %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("blank-title add must not persist, got %v", all)
	}
}

func TestAdd_InvalidPriority(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	if _, err := st.Add("x", "", nil, "urgent"); err == nil {
		t.Fatal("expected priority validation error")
	}
}

func TestList_InvalidFilter(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	if _, err := st.List("done"); err == nil {
		t.Fatal("expected filter validation error")
	}
}

func TestUpdate_IgnoresUnknownFieldsAndId(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)

	added, _ := st.Add("stable", "", nil, "")
	got, err := st.Update(added.ID, map[string]any{
		"id":       999,
		"color":    "blue",
		"priority": "not-a-priority", // update skips enum validation
		"title":    "renamed",
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.ID != added.ID {
		t.Fatalf("id changed: %d -> %d", added.ID, got.ID)
	}
	if got.Title != "renamed" {
		t.Fatalf("title = %q", got.Title)
	}
	if got.Priority != "not-a-priority" {
		t.Fatalf("expected raw priority overwrite, got %q", got.Priority)
	}
}

func TestUpdateDelete_NotFound(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)

	if _, err := st.Update(42, map[string]any{"title": "x"}); tools.KindOf(err) != tools.KindNotFound {
		t.Fatalf("expected not-found kind from Update, got %v", err)
	}
	if err := st.Delete(42); tools.KindOf(err) != tools.KindNotFound {
		t.Fatalf("expected not-found kind from Delete, got %v", err)
	}
}

func TestStore_DocumentShapeOnDisk(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)

	due := "2030-01-02"
	if _, err := st.Add("shaped", "desc", &due, "high"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	b, err := os.ReadFile(st.path)
	if err != nil {
		t.Fatalf("read tasks file: %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("tasks file is not valid JSON: %v", err)
	}
	if _, ok := doc["tasks"]; !ok {
		t.Fatalf("expected top-level tasks key, got keys %v", keys(doc))
	}
}

func keys(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
