package timeline

import (
	"errors"
	"testing"

	"github.com/planboard/core/internal/domain/entities"
)

func TestResolver_SingleGestureSlot(t *testing.T) {
	r := NewResolver()

	if err := r.Begin(Gesture{Kind: DragTaskMove, TaskID: "t1"}); err != nil {
		t.Fatalf("first Begin: %v", err)
	}
	if !r.InFlight() {
		t.Fatal("expected gesture in flight")
	}

	err := r.Begin(Gesture{Kind: DragTaskMove, TaskID: "t2"})
	if !errors.Is(err, ErrDragInFlight) {
		t.Fatalf("second Begin err = %v, want ErrDragInFlight", err)
	}

	// The original gesture survives the rejected second one.
	mut, ok := r.Drop("2024-06-10", "cat-1", nil)
	if !ok || mut.TaskID != "t1" {
		t.Fatalf("Drop = %+v ok=%v, want t1 move", mut, ok)
	}
}

func TestResolver_BeginValidation(t *testing.T) {
	r := NewResolver()

	if err := r.Begin(Gesture{Kind: DragKind("slide")}); !errors.Is(err, ErrInvalidGesture) {
		t.Fatalf("unknown kind err = %v, want ErrInvalidGesture", err)
	}
	if err := r.Begin(Gesture{Kind: DragTaskMove}); !errors.Is(err, ErrInvalidGesture) {
		t.Fatalf("task move without id err = %v, want ErrInvalidGesture", err)
	}
	if err := r.Begin(Gesture{Kind: DragEventMove}); !errors.Is(err, ErrInvalidGesture) {
		t.Fatalf("event move without id err = %v, want ErrInvalidGesture", err)
	}
	if r.InFlight() {
		t.Fatal("rejected gestures must not occupy the slot")
	}
}

func TestResolver_CancelClearsSlot(t *testing.T) {
	r := NewResolver()
	if err := r.Begin(Gesture{Kind: DragTaskMove, TaskID: "t1"}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	r.Cancel()
	if r.InFlight() {
		t.Fatal("gesture still in flight after Cancel")
	}
	if _, ok := r.Drop("2024-06-10", "cat-1", nil); ok {
		t.Fatal("Drop after Cancel produced a mutation")
	}
}

func TestResolver_DropConsumesGesture(t *testing.T) {
	r := NewResolver()
	if err := r.Begin(Gesture{Kind: DragTaskMove, TaskID: "t1"}); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if _, ok := r.Drop("2024-06-10", "cat-1", nil); !ok {
		t.Fatal("first Drop rejected")
	}
	if r.InFlight() {
		t.Fatal("gesture still in flight after Drop")
	}
	if _, ok := r.Drop("2024-06-11", "cat-1", nil); ok {
		t.Fatal("second Drop produced a mutation")
	}
}

func TestResolver_TaskDrop(t *testing.T) {
	r := NewResolver()
	if err := r.Begin(Gesture{Kind: DragTaskMove, TaskID: "t1"}); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	mut, ok := r.Drop("2024-06-10", "alice", nil)
	if !ok {
		t.Fatal("Drop rejected")
	}
	if mut.Kind != MutationMoveTask || mut.TaskID != "t1" || mut.Date != "2024-06-10" || mut.ColumnID != "alice" {
		t.Fatalf("mutation = %+v", mut)
	}
}

func TestResolver_TaskDropOnEventsColumnIgnored(t *testing.T) {
	r := NewResolver()
	if err := r.Begin(Gesture{Kind: DragTaskMove, TaskID: "t1"}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, ok := r.Drop("2024-06-10", EventsColumnID, nil); ok {
		t.Fatal("task drop on events column produced a mutation")
	}
}

func TestResolver_EventDropOnTaskColumnIgnored(t *testing.T) {
	events := []entities.CalendarEvent{ev("e1", "2024-06-05", "2024-06-08")}
	r := NewResolver()
	if err := r.Begin(Gesture{Kind: DragEventMove, EventID: "e1", OriginDate: "2024-06-05"}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, ok := r.Drop("2024-06-10", "cat-1", events); ok {
		t.Fatal("event drop on task column produced a mutation")
	}
}

func TestResolver_EventMovePreservesGrabOffset(t *testing.T) {
	// Event spans the 5th..8th; drag grabbed the 7th (offset 2). A drop
	// on the 12th puts the grabbed day under the pointer, so the event
	// becomes 10th..13th.
	events := []entities.CalendarEvent{ev("e1", "2024-06-05", "2024-06-08")}
	r := NewResolver()
	if err := r.Begin(Gesture{Kind: DragEventMove, EventID: "e1", OriginDate: "2024-06-07"}); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	mut, ok := r.Drop("2024-06-12", EventsColumnID, events)
	if !ok {
		t.Fatal("Drop rejected")
	}
	if mut.Kind != MutationRescheduleEvent || mut.EventID != "e1" {
		t.Fatalf("mutation = %+v", mut)
	}
	if mut.StartDate != "2024-06-10" || mut.EndDate != "2024-06-13" {
		t.Fatalf("range = %s..%s, want 2024-06-10..2024-06-13", mut.StartDate, mut.EndDate)
	}
}

func TestResolver_EventMoveWithoutOriginSnapsStart(t *testing.T) {
	events := []entities.CalendarEvent{ev("e1", "2024-06-05", "2024-06-08")}
	r := NewResolver()
	if err := r.Begin(Gesture{Kind: DragEventMove, EventID: "e1"}); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	mut, ok := r.Drop("2024-06-20", EventsColumnID, events)
	if !ok {
		t.Fatal("Drop rejected")
	}
	if mut.StartDate != "2024-06-20" || mut.EndDate != "2024-06-23" {
		t.Fatalf("range = %s..%s, want 2024-06-20..2024-06-23", mut.StartDate, mut.EndDate)
	}
}

func TestResolver_ResizeStart(t *testing.T) {
	events := []entities.CalendarEvent{ev("e1", "2024-06-05", "2024-06-08")}

	r := NewResolver()
	if err := r.Begin(Gesture{Kind: DragEventResizeStart, EventID: "e1"}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	mut, ok := r.Drop("2024-06-03", EventsColumnID, events)
	if !ok || mut.StartDate != "2024-06-03" || mut.EndDate != "2024-06-08" {
		t.Fatalf("mutation = %+v ok=%v", mut, ok)
	}

	// Dragging the start past the end would invert the range; the drop
	// is silently ignored.
	if err := r.Begin(Gesture{Kind: DragEventResizeStart, EventID: "e1"}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, ok := r.Drop("2024-06-09", EventsColumnID, events); ok {
		t.Fatal("inverting resize-start produced a mutation")
	}
}

func TestResolver_ResizeEnd(t *testing.T) {
	events := []entities.CalendarEvent{ev("e1", "2024-06-05", "2024-06-08")}

	r := NewResolver()
	if err := r.Begin(Gesture{Kind: DragEventResizeEnd, EventID: "e1"}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	mut, ok := r.Drop("2024-06-15", EventsColumnID, events)
	if !ok || mut.StartDate != "2024-06-05" || mut.EndDate != "2024-06-15" {
		t.Fatalf("mutation = %+v ok=%v", mut, ok)
	}

	if err := r.Begin(Gesture{Kind: DragEventResizeEnd, EventID: "e1"}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, ok := r.Drop("2024-06-04", EventsColumnID, events); ok {
		t.Fatal("inverting resize-end produced a mutation")
	}
}

func TestResolver_ResizeToSingleDay(t *testing.T) {
	events := []entities.CalendarEvent{ev("e1", "2024-06-05", "2024-06-08")}
	r := NewResolver()
	if err := r.Begin(Gesture{Kind: DragEventResizeStart, EventID: "e1"}); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	// Collapsing onto the end day is legal; start == end is a one-day
	// event, not an inversion.
	mut, ok := r.Drop("2024-06-08", EventsColumnID, events)
	if !ok || mut.StartDate != "2024-06-08" || mut.EndDate != "2024-06-08" {
		t.Fatalf("mutation = %+v ok=%v", mut, ok)
	}
}

func TestResolver_UnknownEventIgnored(t *testing.T) {
	r := NewResolver()
	if err := r.Begin(Gesture{Kind: DragEventMove, EventID: "ghost"}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, ok := r.Drop("2024-06-10", EventsColumnID, nil); ok {
		t.Fatal("drop of unknown event produced a mutation")
	}
}

func TestResolver_MalformedDropDateIgnored(t *testing.T) {
	r := NewResolver()
	if err := r.Begin(Gesture{Kind: DragTaskMove, TaskID: "t1"}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, ok := r.Drop("June 10", "cat-1", nil); ok {
		t.Fatal("malformed date produced a mutation")
	}
	if r.InFlight() {
		t.Fatal("slot not consumed by rejected drop")
	}
}
