// Package tasks implements the file-backed task store. The full task list is
// kept in one JSON document and rewritten on every mutation; a per-store
// mutex serializes the read-modify-write cycle.
package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/xiy/toolbelt-mcp/internal/tools"
)

// Task is the only durable record in the system.
type Task struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	CreatedAt   string  `json:"created_at"`
	DueDate     *string `json:"due_date"`
	Priority    string  `json:"priority"`
	Completed   bool    `json:"completed"`
}

type document struct {
	Tasks []Task `json:"tasks"`
}

// Store persists tasks as a single JSON document on disk.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *log.Logger
	now    func() time.Time
}

// NewStore creates a task store backed by the given file path. The file is
// created lazily on first write.
func NewStore(path string, logger *log.Logger) *Store {
	return &Store{path: path, logger: logger, now: time.Now}
}

// Add validates the input, assigns the next id and persists the new task.
func (s *Store) Add(title, description string, dueDate *string, priority string) (Task, error) {
	if strings.TrimSpace(title) == "" {
		return Task{}, tools.Validationf("task title is required")
	}
	if priority == "" {
		priority = "medium"
	}
	if dueDate != nil {
		if _, err := time.Parse("2006-01-02", *dueDate); err != nil {
			return Task{}, tools.Validationf("invalid due date format, use YYYY-MM-DD")
		}
	}
	switch priority {
	case "low", "medium", "high":
	default:
		return Task{}, tools.Validationf("invalid priority %q, use low, medium, or high", priority)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return Task{}, err
	}

	// Ids are never reused: the next id is one past the current maximum.
	id := 1
	for _, t := range doc.Tasks {
		if t.ID >= id {
			id = t.ID + 1
		}
	}

	task := Task{
		ID:          id,
		Title:       title,
		Description: description,
		CreatedAt:   s.now().Format("2006-01-02 15:04:05"),
		DueDate:     dueDate,
		Priority:    priority,
	}
	doc.Tasks = append(doc.Tasks, task)
	if err := s.save(doc); err != nil {
		return Task{}, err
	}
	return task, nil
}

// List returns tasks matching the filter: "", "all", "active" or "completed".
func (s *Store) List(filter string) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	switch filter {
	case "", "all":
		return doc.Tasks, nil
	case "active", "completed":
		wantCompleted := filter == "completed"
		out := make([]Task, 0, len(doc.Tasks))
		for _, t := range doc.Tasks {
			if t.Completed == wantCompleted {
				out = append(out, t)
			}
		}
		return out, nil
	default:
		return nil, tools.Validationf("invalid filter type %q, use all, active, or completed", filter)
	}
}

// Update overwrites known fields on the task with the given id. Unknown field
// names are ignored and the id itself is immutable. Values are applied as-is
// with no enum validation, matching the add/update asymmetry of the contract.
func (s *Store) Update(id int, updates map[string]any) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return Task{}, err
	}

	for i := range doc.Tasks {
		if doc.Tasks[i].ID != id {
			continue
		}
		applyUpdates(&doc.Tasks[i], updates)
		if err := s.save(doc); err != nil {
			return Task{}, err
		}
		return doc.Tasks[i], nil
	}
	return Task{}, tools.NotFoundf("task with id %d not found", id)
}

// Delete removes the task with the given id.
func (s *Store) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	for i := range doc.Tasks {
		if doc.Tasks[i].ID != id {
			continue
		}
		doc.Tasks = append(doc.Tasks[:i], doc.Tasks[i+1:]...)
		return s.save(doc)
	}
	return tools.NotFoundf("task with id %d not found", id)
}

func applyUpdates(t *Task, updates map[string]any) {
	for key, value := range updates {
		switch key {
		case "title":
			if v, ok := value.(string); ok {
				t.Title = v
			}
		case "description":
			if v, ok := value.(string); ok {
				t.Description = v
			}
		case "created_at":
			if v, ok := value.(string); ok {
				t.CreatedAt = v
			}
		case "due_date":
			if value == nil {
				t.DueDate = nil
			} else if v, ok := value.(string); ok {
				t.DueDate = &v
			}
		case "priority":
			if v, ok := value.(string); ok {
				t.Priority = v
			}
		case "completed":
			if v, ok := value.(bool); ok {
				t.Completed = v
			}
		}
	}
}

func (s *Store) load() (document, error) {
	doc := document{Tasks: []Task{}}
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return doc, fmt.Errorf("read tasks file: %w", err)
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		// A corrupt document starts fresh rather than wedging every operation.
		s.logger.Warn("tasks file is not valid JSON; starting empty", "path", s.path, "error", err)
		return document{Tasks: []Task{}}, nil
	}
	if doc.Tasks == nil {
		doc.Tasks = []Task{}
	}
	return doc, nil
}

func (s *Store) save(doc document) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create tasks dir: %w", err)
		}
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return fmt.Errorf("write tasks file: %w", err)
	}
	return nil
}
