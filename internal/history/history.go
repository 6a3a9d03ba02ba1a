// Package history keeps a bounded undo/redo history of full board
// snapshots. Snapshots are value copies, not diffs, so restoring one can
// never observe later mutations.
package history

import (
	"github.com/planboard/core/internal/domain/entities"
)

// DefaultLimit caps the undo stack; the oldest snapshot is evicted when
// a new edit overflows it.
const DefaultLimit = 50

// Snapshot is the undoable board triple.
type Snapshot struct {
	Tasks      []entities.Task
	Categories []entities.Category
	Events     []entities.CalendarEvent
}

// Clone deep-copies the snapshot.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Tasks:      entities.CloneTasks(s.Tasks),
		Categories: entities.CloneCategories(s.Categories),
		Events:     entities.CloneEvents(s.Events),
	}
}

// Manager holds the past and future stacks. It is not safe for
// concurrent use; the command layer serializes access.
type Manager struct {
	past   []Snapshot
	future []Snapshot
	limit  int
}

// NewManager creates a manager with the given undo depth; a
// non-positive limit falls back to DefaultLimit.
func NewManager(limit int) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Manager{limit: limit}
}

// Record pushes the pre-edit state onto the undo stack and clears the
// redo stack: redo history is invalid the moment the timeline diverges
// from it.
func (m *Manager) Record(current Snapshot) {
	m.past = append(m.past, current.Clone())
	if len(m.past) > m.limit {
		m.past = m.past[1:]
	}
	m.future = nil
}

// Undo pops the most recent past snapshot, stashing the current state at
// the front of the redo stack. Returns false when there is nothing to
// undo.
func (m *Manager) Undo(current Snapshot) (Snapshot, bool) {
	if len(m.past) == 0 {
		return Snapshot{}, false
	}
	previous := m.past[len(m.past)-1]
	m.past = m.past[:len(m.past)-1]
	m.future = append([]Snapshot{current.Clone()}, m.future...)
	return previous, true
}

// Redo shifts the first redo snapshot off, stashing the current state
// onto the undo stack. Returns false when there is nothing to redo.
func (m *Manager) Redo(current Snapshot) (Snapshot, bool) {
	if len(m.future) == 0 {
		return Snapshot{}, false
	}
	next := m.future[0]
	m.future = m.future[1:]
	m.past = append(m.past, current.Clone())
	return next, true
}

// CanUndo reports whether an undo snapshot exists.
func (m *Manager) CanUndo() bool { return len(m.past) > 0 }

// CanRedo reports whether a redo snapshot exists.
func (m *Manager) CanRedo() bool { return len(m.future) > 0 }

// Depth returns the current undo stack length.
func (m *Manager) Depth() int { return len(m.past) }
