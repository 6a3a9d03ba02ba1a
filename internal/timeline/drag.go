package timeline

import (
	"errors"
	"sync"

	"github.com/planboard/core/internal/domain/entities"
)

// DragKind identifies the gesture being dragged.
type DragKind string

const (
	DragTaskMove         DragKind = "task-move"
	DragEventMove        DragKind = "event-move"
	DragEventResizeStart DragKind = "event-resize-start"
	DragEventResizeEnd   DragKind = "event-resize-end"
)

func (k DragKind) IsValid() bool {
	switch k {
	case DragTaskMove, DragEventMove, DragEventResizeStart, DragEventResizeEnd:
		return true
	}
	return false
}

var (
	ErrInvalidGesture = errors.New("invalid drag gesture")
	ErrDragInFlight   = errors.New("another drag is already in flight")
)

// Gesture is the payload captured at drag-start. OriginDate is the date
// cell under the pointer when an event-move drag begins; it is not
// necessarily the event's start date.
type Gesture struct {
	Kind       DragKind `json:"kind"`
	TaskID     string   `json:"taskId,omitempty"`
	EventID    string   `json:"eventId,omitempty"`
	OriginDate string   `json:"originDate,omitempty"`
}

// MutationKind identifies what a resolved drop changes.
type MutationKind string

const (
	MutationMoveTask        MutationKind = "move-task"
	MutationRescheduleEvent MutationKind = "reschedule-event"
)

// Mutation is the domain change a drop resolves to. MoveTask carries the
// drop date and column identity; the command layer interprets ColumnID
// under the active grouping mode. RescheduleEvent carries the new range.
type Mutation struct {
	Kind MutationKind

	TaskID   string
	Date     string
	ColumnID string

	EventID   string
	StartDate string
	EndDate   string
}

// Resolver tracks the single in-flight drag gesture. Begin fills the
// slot, Drop or Cancel consumes it, so at most one mutation is pending
// per gesture.
type Resolver struct {
	mu      sync.Mutex
	current *Gesture
}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Begin records a new gesture. A second Begin before the first gesture
// is consumed is rejected.
func (r *Resolver) Begin(g Gesture) error {
	if !g.Kind.IsValid() {
		return ErrInvalidGesture
	}
	if g.Kind == DragTaskMove && g.TaskID == "" {
		return ErrInvalidGesture
	}
	if g.Kind != DragTaskMove && g.EventID == "" {
		return ErrInvalidGesture
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		return ErrDragInFlight
	}
	r.current = &g
	return nil
}

// Cancel clears the in-flight gesture, if any.
func (r *Resolver) Cancel() {
	r.mu.Lock()
	r.current = nil
	r.mu.Unlock()
}

// InFlight reports whether a gesture is pending.
func (r *Resolver) InFlight() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil
}

// Drop resolves the pending gesture against a (date, column) target and
// consumes it. The second return is false when the drop produces no
// mutation: no gesture in flight, a gesture/column mismatch, an unknown
// event, or a resize that would invert the event's range. All of those
// are silent rejections.
func (r *Resolver) Drop(dateStr, columnID string, events []entities.CalendarEvent) (Mutation, bool) {
	r.mu.Lock()
	g := r.current
	r.current = nil
	r.mu.Unlock()

	if g == nil || !ValidDateKey(dateStr) {
		return Mutation{}, false
	}

	// The events column routes to the event branch; every other column
	// identity is a task target.
	if columnID != EventsColumnID {
		if g.Kind != DragTaskMove {
			return Mutation{}, false
		}
		return Mutation{
			Kind:     MutationMoveTask,
			TaskID:   g.TaskID,
			Date:     dateStr,
			ColumnID: columnID,
		}, true
	}

	if g.Kind == DragTaskMove {
		return Mutation{}, false
	}
	ev := findEvent(events, g.EventID)
	if ev == nil || !ev.Valid() {
		return Mutation{}, false
	}

	switch g.Kind {
	case DragEventMove:
		return resolveEventMove(g, ev, dateStr)
	case DragEventResizeStart:
		if dateStr > ev.EndDate {
			return Mutation{}, false
		}
		return Mutation{
			Kind:      MutationRescheduleEvent,
			EventID:   ev.ID,
			StartDate: dateStr,
			EndDate:   ev.EndDate,
		}, true
	case DragEventResizeEnd:
		if dateStr < ev.StartDate {
			return Mutation{}, false
		}
		return Mutation{
			Kind:      MutationRescheduleEvent,
			EventID:   ev.ID,
			StartDate: ev.StartDate,
			EndDate:   dateStr,
		}, true
	}
	return Mutation{}, false
}

// resolveEventMove shifts the whole range, preserving the grab point:
// the pointer's day offset into the event at drag-start stays under the
// pointer at the drop cell instead of snapping the start there.
func resolveEventMove(g *Gesture, ev *entities.CalendarEvent, dateStr string) (Mutation, bool) {
	duration, err := DaysBetween(ev.StartDate, ev.EndDate)
	if err != nil {
		return Mutation{}, false
	}
	offset := 0
	if ValidDateKey(g.OriginDate) {
		offset, _ = DaysBetween(ev.StartDate, g.OriginDate)
	}
	newStart, err := AddDays(dateStr, -offset)
	if err != nil {
		return Mutation{}, false
	}
	newEnd, err := AddDays(newStart, duration)
	if err != nil {
		return Mutation{}, false
	}
	return Mutation{
		Kind:      MutationRescheduleEvent,
		EventID:   ev.ID,
		StartDate: newStart,
		EndDate:   newEnd,
	}, true
}

func findEvent(events []entities.CalendarEvent, id string) *entities.CalendarEvent {
	for i := range events {
		if events[i].ID == id {
			return &events[i]
		}
	}
	return nil
}
