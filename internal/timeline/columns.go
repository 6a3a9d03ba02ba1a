package timeline

import (
	"sort"

	"github.com/planboard/core/internal/domain/entities"
)

// Reserved column identities.
const (
	// UnassignedColumnID is the sentinel column for tasks with no
	// resolved display name in assignee mode.
	UnassignedColumnID = "__unassigned__"
	// EventsColumnID routes drops to the event branch regardless of
	// grouping mode.
	EventsColumnID = "events-column"
)

// Column is one vertical track of the grid.
type Column struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Columns derives the column set for a grouping mode. Category mode uses
// the categories verbatim. Assignee mode derives the sorted distinct
// display names of the tasks, with the unassigned column first.
func Columns(mode entities.GroupMode, categories []entities.Category, tasks []entities.Task) []Column {
	if mode == entities.GroupByCategory {
		cols := make([]Column, len(categories))
		for i, c := range categories {
			cols[i] = Column{ID: c.ID, Name: c.Name}
		}
		return cols
	}

	seen := make(map[string]struct{})
	var names []string
	for i := range tasks {
		name := tasks[i].DisplayName()
		if name == "" {
			continue
		}
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	sort.Strings(names)

	cols := make([]Column, 0, len(names)+1)
	cols = append(cols, Column{ID: UnassignedColumnID, Name: "Unassigned"})
	for _, name := range names {
		cols = append(cols, Column{ID: name, Name: name})
	}
	return cols
}

// TaskColumnID maps a task to its column identity under a grouping mode.
func TaskColumnID(mode entities.GroupMode, task *entities.Task) string {
	if mode == entities.GroupByCategory {
		return task.CategoryID
	}
	if name := task.DisplayName(); name != "" {
		return name
	}
	return UnassignedColumnID
}

// IncompleteCount counts the unfinished tasks belonging to a column.
func IncompleteCount(mode entities.GroupMode, columnID string, tasks []entities.Task) int {
	n := 0
	for i := range tasks {
		if tasks[i].Completed() {
			continue
		}
		if TaskColumnID(mode, &tasks[i]) == columnID {
			n++
		}
	}
	return n
}
