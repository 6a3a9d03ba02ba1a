package entities

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrSubtaskNotFound  = errors.New("subtask not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrEventNotFound    = errors.New("event not found")
	ErrNoLinkedFile     = errors.New("no file is linked to the board")
	ErrInvalidDateKey   = errors.New("invalid date key")
	ErrInvalidRange     = errors.New("event start date is after end date")
)

// ExportVersion is the document format version written on every export.
const ExportVersion = "1.0"

// Built-in defaults used when local state is empty or corrupted.
const (
	DefaultAppName = "PlanBoard"
	DefaultAppIcon = "kanban"
)

// GroupMode selects which attribute maps a task to a timeline column.
type GroupMode string

const (
	GroupByCategory GroupMode = "category"
	GroupByAssignee GroupMode = "assignee"
)

func (g GroupMode) IsValid() bool {
	return g == GroupByCategory || g == GroupByAssignee
}

// Subtask is an ordered checklist entry owned by a Task. Ordering within
// the parent's slice is user-controlled and preserved by all task
// mutations that don't explicitly reorder it.
type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Assignee  string `json:"assignee,omitempty"`
}

// Task is a single-day entry on the board. Date is always one calendar
// day, never a range.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CategoryID  string    `json:"categoryId"`
	Date        string    `json:"date"` // canonical YYYY-MM-DD
	Subtasks    []Subtask `json:"subtasks"`
	Color       string    `json:"color,omitempty"`
	Assignee    string    `json:"assignee,omitempty"`
	// IsCompleted is the manual completion flag; it is meaningful only
	// when the task has no subtasks. With subtasks, completion is derived.
	IsCompleted bool `json:"isCompleted,omitempty"`
	IsDone      bool `json:"isDone,omitempty"`
}

// DisplayName resolves the name the task is grouped and labeled under in
// assignee mode. The first incomplete subtask with a non-blank assignee
// wins; otherwise the task's own assignee; otherwise "" (unassigned).
func (t *Task) DisplayName() string {
	for _, s := range t.Subtasks {
		if !s.Completed && strings.TrimSpace(s.Assignee) != "" {
			return s.Assignee
		}
	}
	if strings.TrimSpace(t.Assignee) != "" {
		return t.Assignee
	}
	return ""
}

// Completed reports whether the task counts as finished: all subtasks
// completed when subtasks exist, the manual flag otherwise.
func (t *Task) Completed() bool {
	if len(t.Subtasks) == 0 {
		return t.IsCompleted
	}
	for _, s := range t.Subtasks {
		if !s.Completed {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the task, including its subtask slice.
func (t Task) Clone() Task {
	c := t
	if t.Subtasks != nil {
		c.Subtasks = make([]Subtask, len(t.Subtasks))
		copy(c.Subtasks, t.Subtasks)
	}
	return c
}

// Duplicate clones the task under a fresh identity. Subtasks get new ids
// and completion state resets to incomplete.
func (t Task) Duplicate() Task {
	c := t.Clone()
	c.ID = uuid.NewString()
	for i := range c.Subtasks {
		c.Subtasks[i].ID = uuid.NewString()
	}
	c.IsCompleted = false
	c.IsDone = false
	return c
}

// Category groups tasks into a timeline column. Tasks reference it by id;
// deleting a category cascades to its tasks.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CalendarEvent is a date-range banner independent of tasks and
// categories. Invariant: StartDate <= EndDate on canonical date keys.
type CalendarEvent struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Color     string `json:"color"`
}

// Valid reports whether the event's range is well-formed. Lexicographic
// comparison equals chronological order on zero-padded YYYY-MM-DD keys.
func (e *CalendarEvent) Valid() bool {
	return e.StartDate != "" && e.EndDate != "" && e.StartDate <= e.EndDate
}

// Duplicate clones the event under a fresh identity.
func (e CalendarEvent) Duplicate() CalendarEvent {
	c := e
	c.ID = uuid.NewString()
	return c
}

// ExportMeta describes a persisted document.
type ExportMeta struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exportedAt"`
}

// NowMeta stamps a document with the current schema version and time.
func NowMeta() ExportMeta {
	return ExportMeta{Version: ExportVersion, ExportedAt: time.Now().UTC()}
}

// ExportData is the full persisted snapshot, the unit of save/load/import.
// Events is optional for backward compatibility with older documents.
type ExportData struct {
	Meta       ExportMeta      `json:"meta"`
	AppName    string          `json:"appName"`
	AppIcon    string          `json:"appIcon"`
	Categories []Category      `json:"categories"`
	Tasks      []Task          `json:"tasks"`
	Events     []CalendarEvent `json:"events,omitempty"`
}

// DefaultCategories seeds a fresh board.
func DefaultCategories() []Category {
	return []Category{
		{ID: uuid.NewString(), Name: "Category 1"},
		{ID: uuid.NewString(), Name: "Category 2"},
	}
}

// CloneTasks deep-copies a task slice.
func CloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}

// CloneCategories copies a category slice.
func CloneCategories(categories []Category) []Category {
	if categories == nil {
		return nil
	}
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// CloneEvents copies an event slice.
func CloneEvents(events []CalendarEvent) []CalendarEvent {
	if events == nil {
		return nil
	}
	out := make([]CalendarEvent, len(events))
	copy(out, events)
	return out
}
