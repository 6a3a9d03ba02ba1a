package timeline

import (
	"testing"

	"github.com/planboard/core/internal/domain/entities"
)

func TestColumns_CategoryModeUsesCategoriesVerbatim(t *testing.T) {
	categories := []entities.Category{
		{ID: "c2", Name: "Later"},
		{ID: "c1", Name: "Now"},
	}

	cols := Columns(entities.GroupByCategory, categories, nil)
	if len(cols) != 2 {
		t.Fatalf("got %d columns, want 2", len(cols))
	}
	// Category order is the user's order, not alphabetical.
	if cols[0].ID != "c2" || cols[1].ID != "c1" {
		t.Fatalf("columns = %+v", cols)
	}
}

func TestColumns_AssigneeModeDerivesDisplayNames(t *testing.T) {
	tasks := []entities.Task{
		{ID: "t1", Title: "a", Assignee: "Zoe"},
		{ID: "t2", Title: "b", Assignee: "Ada"},
		{ID: "t3", Title: "c", Assignee: "Zoe"},
		{ID: "t4", Title: "d"},
	}

	cols := Columns(entities.GroupByAssignee, nil, tasks)
	if len(cols) != 3 {
		t.Fatalf("got %d columns, want 3", len(cols))
	}
	if cols[0].ID != UnassignedColumnID {
		t.Fatalf("first column = %q, want unassigned", cols[0].ID)
	}
	if cols[1].Name != "Ada" || cols[2].Name != "Zoe" {
		t.Fatalf("columns = %+v, want Ada then Zoe", cols)
	}
}

func TestColumns_AssigneeModeUsesSubtaskDisplayName(t *testing.T) {
	// The first incomplete subtask with an assignee wins over the
	// task's own assignee.
	tasks := []entities.Task{
		{
			ID:       "t1",
			Assignee: "Fallback",
			Subtasks: []entities.Subtask{
				{ID: "s1", Title: "done part", Completed: true, Assignee: "Alice"},
				{ID: "s2", Title: "open part", Assignee: "Bob"},
			},
		},
	}

	cols := Columns(entities.GroupByAssignee, nil, tasks)
	if len(cols) != 2 {
		t.Fatalf("got %d columns, want 2", len(cols))
	}
	if cols[1].Name != "Bob" {
		t.Fatalf("column = %q, want Bob", cols[1].Name)
	}
}

func TestTaskColumnID(t *testing.T) {
	task := entities.Task{ID: "t1", CategoryID: "c1", Assignee: "Ada"}

	if got := TaskColumnID(entities.GroupByCategory, &task); got != "c1" {
		t.Fatalf("category column = %q, want c1", got)
	}
	if got := TaskColumnID(entities.GroupByAssignee, &task); got != "Ada" {
		t.Fatalf("assignee column = %q, want Ada", got)
	}

	blank := entities.Task{ID: "t2", CategoryID: "c1"}
	if got := TaskColumnID(entities.GroupByAssignee, &blank); got != UnassignedColumnID {
		t.Fatalf("assignee column = %q, want unassigned", got)
	}
}

func TestIncompleteCount(t *testing.T) {
	tasks := []entities.Task{
		{ID: "t1", CategoryID: "c1"},
		{ID: "t2", CategoryID: "c1", IsCompleted: true},
		{ID: "t3", CategoryID: "c1", Subtasks: []entities.Subtask{
			{ID: "s1", Completed: true},
		}},
		{ID: "t4", CategoryID: "c2"},
	}

	if got := IncompleteCount(entities.GroupByCategory, "c1", tasks); got != 1 {
		t.Fatalf("incomplete(c1) = %d, want 1", got)
	}
	if got := IncompleteCount(entities.GroupByCategory, "c2", tasks); got != 1 {
		t.Fatalf("incomplete(c2) = %d, want 1", got)
	}
}
