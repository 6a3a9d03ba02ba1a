package services

import (
	"context"
	"errors"
	"testing"

	"github.com/planboard/core/internal/domain/entities"
	"github.com/planboard/core/internal/history"
	"github.com/planboard/core/internal/infrastructure/logger"
	"github.com/planboard/core/internal/infrastructure/metrics"
	"github.com/planboard/core/internal/ports"
	"github.com/planboard/core/internal/timeline"
)

func newTestBoard(t *testing.T) *BoardService {
	t.Helper()
	return NewBoardService(nil, history.NewManager(history.DefaultLimit), metrics.New(), logger.NewNop())
}

func mustCreateTask(t *testing.T, s *BoardService, title, categoryID, date string) *entities.Task {
	t.Helper()
	task, err := s.CreateTask(context.Background(), ports.CreateTaskRequest{
		Title:      title,
		CategoryID: categoryID,
		Date:       date,
	})
	if err != nil {
		t.Fatalf("CreateTask(%s): %v", title, err)
	}
	return task
}

func strptr(s string) *string { return &s }
func boolptr(b bool) *bool    { return &b }

func TestBoardService_Defaults(t *testing.T) {
	s := newTestBoard(t)

	if got := len(s.Categories()); got != 2 {
		t.Fatalf("default categories = %d, want 2", got)
	}
	name, icon := s.Settings()
	if name != entities.DefaultAppName || icon != entities.DefaultAppIcon {
		t.Fatalf("settings = %q/%q", name, icon)
	}
	if len(s.Tasks()) != 0 || len(s.Events()) != 0 {
		t.Fatal("fresh board is not empty")
	}
}

func TestBoardService_CreateTaskRequiresCategory(t *testing.T) {
	s := newTestBoard(t)

	_, err := s.CreateTask(context.Background(), ports.CreateTaskRequest{
		Title:      "orphan",
		CategoryID: "nope",
		Date:       "2024-06-01",
	})
	if !errors.Is(err, entities.ErrCategoryNotFound) {
		t.Fatalf("err = %v, want ErrCategoryNotFound", err)
	}
	if len(s.Tasks()) != 0 {
		t.Fatal("rejected create still added a task")
	}
	if s.CanUndo() {
		t.Fatal("rejected create recorded history")
	}
}

func TestBoardService_UpdateTaskManualFlagIgnoredWithSubtasks(t *testing.T) {
	s := newTestBoard(t)
	cat := s.Categories()[0]
	task := mustCreateTask(t, s, "plan", cat.ID, "2024-06-01")

	withSub, err := s.AddSubtask(context.Background(), task.ID, ports.CreateSubtaskRequest{Title: "part"})
	if err != nil {
		t.Fatalf("AddSubtask: %v", err)
	}

	updated, err := s.UpdateTask(context.Background(), withSub.ID, ports.UpdateTaskRequest{IsCompleted: boolptr(true)})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.IsCompleted {
		t.Fatal("manual completion flag set despite subtasks")
	}
}

func TestBoardService_DeleteCategoryCascades(t *testing.T) {
	s := newTestBoard(t)
	ctx := context.Background()
	keep := s.Categories()[0]
	doomed := s.Categories()[1]

	kept := mustCreateTask(t, s, "kept", keep.ID, "2024-06-01")
	mustCreateTask(t, s, "gone-1", doomed.ID, "2024-06-02")
	mustCreateTask(t, s, "gone-2", doomed.ID, "2024-06-03")

	if err := s.DeleteCategory(ctx, doomed.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}

	tasks := s.Tasks()
	if len(tasks) != 1 || tasks[0].ID != kept.ID {
		t.Fatalf("tasks after cascade = %+v", tasks)
	}
	if len(s.Categories()) != 1 {
		t.Fatalf("categories = %d, want 1", len(s.Categories()))
	}

	// The cascade is one history entry: a single undo brings back both
	// the category and its tasks.
	if !s.Undo(ctx) {
		t.Fatal("Undo failed")
	}
	if len(s.Tasks()) != 3 || len(s.Categories()) != 2 {
		t.Fatalf("after undo: %d tasks, %d categories", len(s.Tasks()), len(s.Categories()))
	}
}

func TestBoardService_MoveTaskAssigneeMode(t *testing.T) {
	s := newTestBoard(t)
	ctx := context.Background()
	cat := s.Categories()[0]
	task := mustCreateTask(t, s, "plan", cat.ID, "2024-06-01")

	moved, err := s.MoveTask(ctx, task.ID, entities.GroupByAssignee, ports.MoveTaskRequest{
		Date:     "2024-06-10",
		ColumnID: "Alice",
	})
	if err != nil {
		t.Fatalf("MoveTask: %v", err)
	}
	if moved.Date != "2024-06-10" || moved.Assignee != "Alice" {
		t.Fatalf("moved = date %q assignee %q", moved.Date, moved.Assignee)
	}
	if moved.CategoryID != cat.ID {
		t.Fatal("assignee-mode move touched the category")
	}

	// Dropping on the unassigned column clears the assignee.
	moved, err = s.MoveTask(ctx, task.ID, entities.GroupByAssignee, ports.MoveTaskRequest{
		Date:     "2024-06-11",
		ColumnID: timeline.UnassignedColumnID,
	})
	if err != nil {
		t.Fatalf("MoveTask: %v", err)
	}
	if moved.Assignee != "" {
		t.Fatalf("assignee = %q, want cleared", moved.Assignee)
	}
}

func TestBoardService_MoveTaskCategoryMode(t *testing.T) {
	s := newTestBoard(t)
	cats := s.Categories()
	task := mustCreateTask(t, s, "plan", cats[0].ID, "2024-06-01")

	moved, err := s.MoveTask(context.Background(), task.ID, entities.GroupByCategory, ports.MoveTaskRequest{
		Date:     "2024-06-05",
		ColumnID: cats[1].ID,
	})
	if err != nil {
		t.Fatalf("MoveTask: %v", err)
	}
	if moved.CategoryID != cats[1].ID || moved.Date != "2024-06-05" {
		t.Fatalf("moved = %+v", moved)
	}
}

func TestBoardService_ReorderSubtasks(t *testing.T) {
	s := newTestBoard(t)
	ctx := context.Background()
	cat := s.Categories()[0]
	task := mustCreateTask(t, s, "plan", cat.ID, "2024-06-01")

	for _, title := range []string{"a", "b", "c", "d"} {
		if _, err := s.AddSubtask(ctx, task.ID, ports.CreateSubtaskRequest{Title: title}); err != nil {
			t.Fatalf("AddSubtask(%s): %v", title, err)
		}
	}

	got, err := s.ReorderSubtasks(ctx, task.ID, ports.ReorderSubtasksRequest{FromIndex: 0, ToIndex: 2})
	if err != nil {
		t.Fatalf("ReorderSubtasks: %v", err)
	}

	want := []string{"b", "c", "a", "d"}
	for i, title := range want {
		if got.Subtasks[i].Title != title {
			t.Fatalf("subtasks[%d] = %q, want %q (full: %+v)", i, got.Subtasks[i].Title, title, got.Subtasks)
		}
	}

	if _, err := s.ReorderSubtasks(ctx, task.ID, ports.ReorderSubtasksRequest{FromIndex: 0, ToIndex: 9}); !errors.Is(err, entities.ErrSubtaskNotFound) {
		t.Fatalf("out-of-range err = %v, want ErrSubtaskNotFound", err)
	}
}

func TestBoardService_DuplicateTaskResetsCompletion(t *testing.T) {
	s := newTestBoard(t)
	ctx := context.Background()
	cat := s.Categories()[0]
	task := mustCreateTask(t, s, "plan", cat.ID, "2024-06-01")

	if _, err := s.UpdateTask(ctx, task.ID, ports.UpdateTaskRequest{IsCompleted: boolptr(true), IsDone: boolptr(true)}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	dup, err := s.DuplicateTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("DuplicateTask: %v", err)
	}
	if dup.ID == task.ID {
		t.Fatal("duplicate reused the source id")
	}
	if dup.IsCompleted || dup.IsDone {
		t.Fatal("duplicate kept completion state")
	}
	if len(s.Tasks()) != 2 {
		t.Fatalf("tasks = %d, want 2", len(s.Tasks()))
	}
}

func TestBoardService_EventRangeInvariant(t *testing.T) {
	s := newTestBoard(t)
	ctx := context.Background()

	_, err := s.CreateEvent(ctx, ports.CreateEventRequest{
		Title:     "backwards",
		StartDate: "2024-06-10",
		EndDate:   "2024-06-01",
	})
	if !errors.Is(err, entities.ErrInvalidRange) {
		t.Fatalf("create err = %v, want ErrInvalidRange", err)
	}

	event, err := s.CreateEvent(ctx, ports.CreateEventRequest{
		Title:     "trip",
		StartDate: "2024-06-01",
		EndDate:   "2024-06-05",
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	_, err = s.UpdateEvent(ctx, event.ID, ports.UpdateEventRequest{StartDate: strptr("2024-06-09")})
	if !errors.Is(err, entities.ErrInvalidRange) {
		t.Fatalf("update err = %v, want ErrInvalidRange", err)
	}

	// The rejected update left the event untouched.
	events := s.Events()
	if events[0].StartDate != "2024-06-01" {
		t.Fatalf("start = %q, want unchanged", events[0].StartDate)
	}
}

func TestBoardService_ResolveDropMovesTask(t *testing.T) {
	s := newTestBoard(t)
	ctx := context.Background()
	cat := s.Categories()[0]
	task := mustCreateTask(t, s, "plan", cat.ID, "2024-06-01")

	if err := s.Drags().Begin(timeline.Gesture{Kind: timeline.DragTaskMove, TaskID: task.ID}); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	mut, applied, err := s.ResolveDrop(ctx, "2024-06-10", "Alice", entities.GroupByAssignee)
	if err != nil {
		t.Fatalf("ResolveDrop: %v", err)
	}
	if !applied || mut == nil || mut.Kind != timeline.MutationMoveTask {
		t.Fatalf("applied=%v mut=%+v", applied, mut)
	}

	got := s.Tasks()[0]
	if got.Date != "2024-06-10" || got.Assignee != "Alice" {
		t.Fatalf("task after drop = date %q assignee %q", got.Date, got.Assignee)
	}
}

func TestBoardService_ResolveDropEventResizeRejectionIsSilent(t *testing.T) {
	s := newTestBoard(t)
	ctx := context.Background()

	event, err := s.CreateEvent(ctx, ports.CreateEventRequest{
		Title:     "trip",
		StartDate: "2024-06-05",
		EndDate:   "2024-06-08",
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	if err := s.Drags().Begin(timeline.Gesture{Kind: timeline.DragEventResizeStart, EventID: event.ID}); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	mut, applied, err := s.ResolveDrop(ctx, "2024-06-09", timeline.EventsColumnID, entities.GroupByCategory)
	if err != nil {
		t.Fatalf("ResolveDrop: %v", err)
	}
	if applied || mut != nil {
		t.Fatalf("inverting resize applied=%v mut=%+v", applied, mut)
	}
	if s.Drags().InFlight() {
		t.Fatal("gesture not consumed by rejected drop")
	}
	if s.Events()[0].StartDate != "2024-06-05" {
		t.Fatal("rejected resize changed the event")
	}
}

func TestBoardService_UndoRedo(t *testing.T) {
	s := newTestBoard(t)
	ctx := context.Background()
	cat := s.Categories()[0]

	mustCreateTask(t, s, "first", cat.ID, "2024-06-01")
	mustCreateTask(t, s, "second", cat.ID, "2024-06-02")

	if !s.Undo(ctx) {
		t.Fatal("Undo failed")
	}
	if len(s.Tasks()) != 1 || s.Tasks()[0].Title != "first" {
		t.Fatalf("after undo: %+v", s.Tasks())
	}

	if !s.Redo(ctx) {
		t.Fatal("Redo failed")
	}
	if len(s.Tasks()) != 2 {
		t.Fatalf("after redo: %d tasks", len(s.Tasks()))
	}

	// A new edit after undo clears the redo branch.
	if !s.Undo(ctx) {
		t.Fatal("Undo failed")
	}
	mustCreateTask(t, s, "fork", cat.ID, "2024-06-03")
	if s.CanRedo() {
		t.Fatal("redo available after diverging edit")
	}
}

func TestBoardService_ImportBypassesHistory(t *testing.T) {
	s := newTestBoard(t)
	ctx := context.Background()
	cat := s.Categories()[0]
	mustCreateTask(t, s, "pre-import", cat.ID, "2024-06-01")

	doc := entities.ExportData{
		Meta:       entities.NowMeta(),
		AppName:    "Imported Board",
		AppIcon:    "calendar",
		Categories: []entities.Category{{ID: "c-x", Name: "X"}},
		Tasks:      []entities.Task{{ID: "t-x", Title: "from file", CategoryID: "c-x", Date: "2024-07-01"}},
		Events:     []entities.CalendarEvent{},
	}

	undoDepthBefore := s.CanUndo()
	s.Import(ctx, doc)

	if len(s.Tasks()) != 1 || s.Tasks()[0].ID != "t-x" {
		t.Fatalf("tasks after import = %+v", s.Tasks())
	}
	name, icon := s.Settings()
	if name != "Imported Board" || icon != "calendar" {
		t.Fatalf("settings = %q/%q", name, icon)
	}
	// Import pushed nothing: undo availability is whatever it was.
	if s.CanUndo() != undoDepthBefore {
		t.Fatal("import changed the undo stack")
	}
}

func TestBoardService_ImportKeepsSettingsWhenDocumentOmitsThem(t *testing.T) {
	s := newTestBoard(t)
	s.Import(context.Background(), entities.ExportData{
		Categories: []entities.Category{},
		Tasks:      []entities.Task{},
		Events:     []entities.CalendarEvent{},
	})

	name, icon := s.Settings()
	if name != entities.DefaultAppName || icon != entities.DefaultAppIcon {
		t.Fatalf("settings = %q/%q, want defaults preserved", name, icon)
	}
}

func TestBoardService_SettingsBypassHistory(t *testing.T) {
	s := newTestBoard(t)
	s.UpdateSettings(context.Background(), ports.SettingsRequest{AppName: "Renamed", AppIcon: "star"})

	if s.CanUndo() {
		t.Fatal("settings change entered the undo history")
	}
	name, icon := s.Settings()
	if name != "Renamed" || icon != "star" {
		t.Fatalf("settings = %q/%q", name, icon)
	}
}

func TestBoardService_Reset(t *testing.T) {
	s := newTestBoard(t)
	ctx := context.Background()
	cat := s.Categories()[0]
	mustCreateTask(t, s, "doomed", cat.ID, "2024-06-01")
	s.UpdateSettings(ctx, ports.SettingsRequest{AppName: "Custom", AppIcon: "star"})

	s.Reset(ctx)

	if len(s.Tasks()) != 0 || len(s.Categories()) != 2 {
		t.Fatalf("after reset: %d tasks, %d categories", len(s.Tasks()), len(s.Categories()))
	}
	name, _ := s.Settings()
	if name != entities.DefaultAppName {
		t.Fatalf("app name = %q, want default", name)
	}
	if s.CanUndo() {
		t.Fatal("reset left history behind")
	}
}

func TestBoardService_ExportSnapshotIsolated(t *testing.T) {
	s := newTestBoard(t)
	cat := s.Categories()[0]
	mustCreateTask(t, s, "plan", cat.ID, "2024-06-01")

	doc := s.Export(entities.NowMeta)
	doc.Tasks[0].Title = "tampered"

	if s.Tasks()[0].Title != "plan" {
		t.Fatal("export shares backing arrays with live state")
	}
	if doc.Meta.Version != entities.ExportVersion {
		t.Fatalf("version = %q", doc.Meta.Version)
	}
}

func TestBoardService_ChangeHookFiresOnEditsOnly(t *testing.T) {
	s := newTestBoard(t)
	ctx := context.Background()

	var notified int
	s.SetOnChange(func(doc entities.ExportData) { notified++ })

	cat := s.Categories()[0]
	mustCreateTask(t, s, "plan", cat.ID, "2024-06-01")
	if notified != 1 {
		t.Fatalf("notifications after create = %d, want 1", notified)
	}

	// A rejected command must not fire the hook.
	if _, err := s.CreateTask(ctx, ports.CreateTaskRequest{Title: "x", CategoryID: "nope", Date: "2024-06-01"}); err == nil {
		t.Fatal("expected category error")
	}
	if notified != 1 {
		t.Fatalf("notifications after rejected create = %d, want 1", notified)
	}
}
