package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/planboard/core/internal/domain/entities"
	"github.com/planboard/core/internal/history"
	"github.com/planboard/core/internal/infrastructure/logger"
	"github.com/planboard/core/internal/infrastructure/metrics"
	"github.com/planboard/core/internal/ports"
	"github.com/planboard/core/internal/timeline"
)

// BoardService is the command layer: every operation produces a new
// in-memory state, records an undo snapshot, persists the local state
// keys best-effort, and hands the updated document to the change hook
// (auto-save). Persistence never rolls an in-memory edit back; a failed
// save is a "didn't stick" signal, not a transaction abort.
type BoardService struct {
	mu sync.Mutex

	tasks      []entities.Task
	categories []entities.Category
	events     []entities.CalendarEvent
	appName    string
	appIcon    string

	hist    *history.Manager
	state   ports.StateStore
	drags   *timeline.Resolver
	logger  *logger.Logger
	metrics *metrics.Metrics

	// onChange receives the updated document after every recorded edit;
	// the file service wires auto-save in here. Never blocks mutations.
	onChange func(entities.ExportData)
	// dirty marks that the current guarded section changed the board.
	dirty bool
}

// NewBoardService creates a board with built-in defaults. state may be
// nil when no durable local store is configured (tests, ephemeral runs).
func NewBoardService(state ports.StateStore, hist *history.Manager, m *metrics.Metrics, log *logger.Logger) *BoardService {
	return &BoardService{
		tasks:      []entities.Task{},
		categories: entities.DefaultCategories(),
		events:     []entities.CalendarEvent{},
		appName:    entities.DefaultAppName,
		appIcon:    entities.DefaultAppIcon,
		hist:       hist,
		state:      state,
		drags:      timeline.NewResolver(),
		logger:     log,
		metrics:    m,
	}
}

// SetOnChange installs the post-edit hook. Call before serving traffic.
func (s *BoardService) SetOnChange(fn func(entities.ExportData)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Drags exposes the drag resolver for the transport layer.
func (s *BoardService) Drags() *timeline.Resolver { return s.drags }

// LoadLocalState restores each state key independently; a missing or
// corrupted value for one key keeps that key's default without touching
// the others.
func (s *BoardService) LoadLocalState(ctx context.Context) {
	if s.state == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var tasks []entities.Task
	if err := s.state.Get(ctx, ports.StateKeyTasks, &tasks); err == nil {
		s.tasks = tasks
	} else {
		s.warnStateKey(ports.StateKeyTasks, err)
	}
	var categories []entities.Category
	if err := s.state.Get(ctx, ports.StateKeyCategories, &categories); err == nil {
		s.categories = categories
	} else {
		s.warnStateKey(ports.StateKeyCategories, err)
	}
	var events []entities.CalendarEvent
	if err := s.state.Get(ctx, ports.StateKeyEvents, &events); err == nil {
		s.events = events
	} else {
		s.warnStateKey(ports.StateKeyEvents, err)
	}
	var name string
	if err := s.state.Get(ctx, ports.StateKeyAppName, &name); err == nil && name != "" {
		s.appName = name
	}
	var icon string
	if err := s.state.Get(ctx, ports.StateKeyAppIcon, &icon); err == nil && icon != "" {
		s.appIcon = icon
	}
}

func (s *BoardService) warnStateKey(key string, err error) {
	if err == ports.ErrStateKeyNotFound {
		return
	}
	s.logger.Warnw("Local state key unreadable, using default", "key", key, "error", err)
}

// --- Accessors ---

// Tasks returns a deep copy of the current tasks.
func (s *BoardService) Tasks() []entities.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return entities.CloneTasks(s.tasks)
}

// Categories returns a copy of the current categories.
func (s *BoardService) Categories() []entities.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return entities.CloneCategories(s.categories)
}

// Events returns a copy of the current events.
func (s *BoardService) Events() []entities.CalendarEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return entities.CloneEvents(s.events)
}

// Settings returns the app display name and icon.
func (s *BoardService) Settings() (name, icon string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appName, s.appIcon
}

// CanUndo reports whether an undo snapshot exists.
func (s *BoardService) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanUndo()
}

// CanRedo reports whether a redo snapshot exists.
func (s *BoardService) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanRedo()
}

// --- Task commands ---

// CreateTask adds a task. The category must exist.
func (s *BoardService) CreateTask(ctx context.Context, req ports.CreateTaskRequest) (*entities.Task, error) {
	s.mu.Lock()
	defer s.unlockAndNotify()

	if s.findCategory(req.CategoryID) < 0 {
		return nil, entities.ErrCategoryNotFound
	}
	task := entities.Task{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Date:        req.Date,
		Subtasks:    withSubtaskIDs(req.Subtasks),
		Color:       req.Color,
		Assignee:    req.Assignee,
	}
	s.record("create-task")
	s.tasks = append(entities.CloneTasks(s.tasks), task)
	s.persist(ctx, ports.StateKeyTasks, s.tasks)

	s.logger.Infow("Task created", "task_id", task.ID, "title", task.Title)
	out := task.Clone()
	return &out, nil
}

// UpdateTask patches a task in place. Subtask order is preserved unless
// the request replaces the subtask slice.
func (s *BoardService) UpdateTask(ctx context.Context, id string, req ports.UpdateTaskRequest) (*entities.Task, error) {
	s.mu.Lock()
	defer s.unlockAndNotify()

	i := s.findTask(id)
	if i < 0 {
		return nil, entities.ErrTaskNotFound
	}
	if req.CategoryID != nil && s.findCategory(*req.CategoryID) < 0 {
		return nil, entities.ErrCategoryNotFound
	}

	s.record("update-task")
	tasks := entities.CloneTasks(s.tasks)
	t := &tasks[i]
	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.CategoryID != nil {
		t.CategoryID = *req.CategoryID
	}
	if req.Date != nil {
		t.Date = *req.Date
	}
	if req.Subtasks != nil {
		t.Subtasks = withSubtaskIDs(*req.Subtasks)
	}
	if req.Color != nil {
		t.Color = *req.Color
	}
	if req.Assignee != nil {
		t.Assignee = *req.Assignee
	}
	if req.IsCompleted != nil {
		// The manual flag only means something without subtasks.
		t.IsCompleted = *req.IsCompleted && len(t.Subtasks) == 0
	}
	if req.IsDone != nil {
		t.IsDone = *req.IsDone
	}
	s.tasks = tasks
	s.persist(ctx, ports.StateKeyTasks, s.tasks)

	out := t.Clone()
	return &out, nil
}

// DeleteTask removes a task.
func (s *BoardService) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.unlockAndNotify()

	i := s.findTask(id)
	if i < 0 {
		return entities.ErrTaskNotFound
	}
	s.record("delete-task")
	tasks := entities.CloneTasks(s.tasks)
	s.tasks = append(tasks[:i], tasks[i+1:]...)
	s.persist(ctx, ports.StateKeyTasks, s.tasks)
	return nil
}

// MoveTask drops a task onto a (date, column) cell under the given
// grouping mode: the date always moves; category mode rewrites the
// category, assignee mode rewrites the task's own assignee field (the
// unassigned column clears it).
func (s *BoardService) MoveTask(ctx context.Context, id string, mode entities.GroupMode, req ports.MoveTaskRequest) (*entities.Task, error) {
	s.mu.Lock()
	defer s.unlockAndNotify()

	i := s.findTask(id)
	if i < 0 {
		return nil, entities.ErrTaskNotFound
	}
	s.record("move-task")
	tasks := entities.CloneTasks(s.tasks)
	t := &tasks[i]
	t.Date = req.Date
	if mode == entities.GroupByCategory {
		t.CategoryID = req.ColumnID
	} else {
		if req.ColumnID == timeline.UnassignedColumnID {
			t.Assignee = ""
		} else {
			t.Assignee = req.ColumnID
		}
	}
	s.tasks = tasks
	s.persist(ctx, ports.StateKeyTasks, s.tasks)

	out := t.Clone()
	return &out, nil
}

// DuplicateTask clones a task under a new identity with completion reset.
func (s *BoardService) DuplicateTask(ctx context.Context, id string) (*entities.Task, error) {
	s.mu.Lock()
	defer s.unlockAndNotify()

	i := s.findTask(id)
	if i < 0 {
		return nil, entities.ErrTaskNotFound
	}
	s.record("duplicate-task")
	dup := s.tasks[i].Duplicate()
	s.tasks = append(entities.CloneTasks(s.tasks), dup)
	s.persist(ctx, ports.StateKeyTasks, s.tasks)

	out := dup.Clone()
	return &out, nil
}

// --- Subtask commands ---

// AddSubtask appends a checklist entry to a task.
func (s *BoardService) AddSubtask(ctx context.Context, taskID string, req ports.CreateSubtaskRequest) (*entities.Task, error) {
	s.mu.Lock()
	defer s.unlockAndNotify()

	i := s.findTask(taskID)
	if i < 0 {
		return nil, entities.ErrTaskNotFound
	}
	s.record("add-subtask")
	tasks := entities.CloneTasks(s.tasks)
	tasks[i].Subtasks = append(tasks[i].Subtasks, entities.Subtask{
		ID:       uuid.NewString(),
		Title:    req.Title,
		Assignee: req.Assignee,
	})
	s.tasks = tasks
	s.persist(ctx, ports.StateKeyTasks, s.tasks)

	out := tasks[i].Clone()
	return &out, nil
}

// UpdateSubtask patches a checklist entry.
func (s *BoardService) UpdateSubtask(ctx context.Context, taskID, subtaskID string, req ports.UpdateSubtaskRequest) (*entities.Task, error) {
	s.mu.Lock()
	defer s.unlockAndNotify()

	i := s.findTask(taskID)
	if i < 0 {
		return nil, entities.ErrTaskNotFound
	}
	j := findSubtask(s.tasks[i].Subtasks, subtaskID)
	if j < 0 {
		return nil, entities.ErrSubtaskNotFound
	}
	s.record("update-subtask")
	tasks := entities.CloneTasks(s.tasks)
	sub := &tasks[i].Subtasks[j]
	if req.Title != nil {
		sub.Title = *req.Title
	}
	if req.Completed != nil {
		sub.Completed = *req.Completed
	}
	if req.Assignee != nil {
		sub.Assignee = *req.Assignee
	}
	s.tasks = tasks
	s.persist(ctx, ports.StateKeyTasks, s.tasks)

	out := tasks[i].Clone()
	return &out, nil
}

// DeleteSubtask removes a checklist entry.
func (s *BoardService) DeleteSubtask(ctx context.Context, taskID, subtaskID string) (*entities.Task, error) {
	s.mu.Lock()
	defer s.unlockAndNotify()

	i := s.findTask(taskID)
	if i < 0 {
		return nil, entities.ErrTaskNotFound
	}
	j := findSubtask(s.tasks[i].Subtasks, subtaskID)
	if j < 0 {
		return nil, entities.ErrSubtaskNotFound
	}
	s.record("delete-subtask")
	tasks := entities.CloneTasks(s.tasks)
	subs := tasks[i].Subtasks
	tasks[i].Subtasks = append(subs[:j], subs[j+1:]...)
	s.tasks = tasks
	s.persist(ctx, ports.StateKeyTasks, s.tasks)

	out := tasks[i].Clone()
	return &out, nil
}

// ReorderSubtasks splices the entry at FromIndex out and reinserts it at
// ToIndex, preserving the order of everything else.
func (s *BoardService) ReorderSubtasks(ctx context.Context, taskID string, req ports.ReorderSubtasksRequest) (*entities.Task, error) {
	s.mu.Lock()
	defer s.unlockAndNotify()

	i := s.findTask(taskID)
	if i < 0 {
		return nil, entities.ErrTaskNotFound
	}
	n := len(s.tasks[i].Subtasks)
	if req.FromIndex < 0 || req.FromIndex >= n || req.ToIndex < 0 || req.ToIndex >= n {
		return nil, entities.ErrSubtaskNotFound
	}
	s.record("reorder-subtasks")
	tasks := entities.CloneTasks(s.tasks)
	subs := tasks[i].Subtasks
	moved := subs[req.FromIndex]
	subs = append(subs[:req.FromIndex], subs[req.FromIndex+1:]...)
	subs = append(subs[:req.ToIndex], append([]entities.Subtask{moved}, subs[req.ToIndex:]...)...)
	tasks[i].Subtasks = subs
	s.tasks = tasks
	s.persist(ctx, ports.StateKeyTasks, s.tasks)

	out := tasks[i].Clone()
	return &out, nil
}

// --- Category commands ---

// AddCategory creates a category.
func (s *BoardService) AddCategory(ctx context.Context, name string) (*entities.Category, error) {
	s.mu.Lock()
	defer s.unlockAndNotify()

	s.record("add-category")
	cat := entities.Category{ID: uuid.NewString(), Name: name}
	s.categories = append(entities.CloneCategories(s.categories), cat)
	s.persist(ctx, ports.StateKeyCategories, s.categories)
	return &cat, nil
}

// RenameCategory updates a category's name.
func (s *BoardService) RenameCategory(ctx context.Context, id, name string) (*entities.Category, error) {
	s.mu.Lock()
	defer s.unlockAndNotify()

	i := s.findCategory(id)
	if i < 0 {
		return nil, entities.ErrCategoryNotFound
	}
	s.record("rename-category")
	categories := entities.CloneCategories(s.categories)
	categories[i].Name = name
	s.categories = categories
	s.persist(ctx, ports.StateKeyCategories, s.categories)

	out := categories[i]
	return &out, nil
}

// DeleteCategory removes a category and cascades to every task that
// references it, in the same transaction (one undo entry).
func (s *BoardService) DeleteCategory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.unlockAndNotify()

	i := s.findCategory(id)
	if i < 0 {
		return entities.ErrCategoryNotFound
	}
	s.record("delete-category")
	categories := entities.CloneCategories(s.categories)
	s.categories = append(categories[:i], categories[i+1:]...)

	kept := make([]entities.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.CategoryID != id {
			kept = append(kept, t.Clone())
		}
	}
	s.tasks = kept

	s.persist(ctx, ports.StateKeyCategories, s.categories)
	s.persist(ctx, ports.StateKeyTasks, s.tasks)

	s.logger.Infow("Category deleted with cascade", "category_id", id, "tasks_left", len(s.tasks))
	return nil
}

// --- Event commands ---

// CreateEvent adds a date-range event. The range must not be inverted.
func (s *BoardService) CreateEvent(ctx context.Context, req ports.CreateEventRequest) (*entities.CalendarEvent, error) {
	if req.StartDate > req.EndDate {
		return nil, entities.ErrInvalidRange
	}
	s.mu.Lock()
	defer s.unlockAndNotify()

	s.record("create-event")
	ev := entities.CalendarEvent{
		ID:        uuid.NewString(),
		Title:     req.Title,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Color:     req.Color,
	}
	s.events = append(entities.CloneEvents(s.events), ev)
	s.persist(ctx, ports.StateKeyEvents, s.events)
	return &ev, nil
}

// UpdateEvent patches an event; a patch that would invert the range is
// rejected.
func (s *BoardService) UpdateEvent(ctx context.Context, id string, req ports.UpdateEventRequest) (*entities.CalendarEvent, error) {
	s.mu.Lock()
	defer s.unlockAndNotify()

	i := s.findEvent(id)
	if i < 0 {
		return nil, entities.ErrEventNotFound
	}
	next := s.events[i]
	if req.Title != nil {
		next.Title = *req.Title
	}
	if req.StartDate != nil {
		next.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		next.EndDate = *req.EndDate
	}
	if req.Color != nil {
		next.Color = *req.Color
	}
	if !next.Valid() {
		return nil, entities.ErrInvalidRange
	}
	s.record("update-event")
	events := entities.CloneEvents(s.events)
	events[i] = next
	s.events = events
	s.persist(ctx, ports.StateKeyEvents, s.events)
	return &next, nil
}

// RescheduleEvent replaces an event's date range; used by drag drops.
func (s *BoardService) RescheduleEvent(ctx context.Context, id, startDate, endDate string) (*entities.CalendarEvent, error) {
	if startDate > endDate {
		return nil, entities.ErrInvalidRange
	}
	s.mu.Lock()
	defer s.unlockAndNotify()

	i := s.findEvent(id)
	if i < 0 {
		return nil, entities.ErrEventNotFound
	}
	s.record("reschedule-event")
	events := entities.CloneEvents(s.events)
	events[i].StartDate = startDate
	events[i].EndDate = endDate
	s.events = events
	s.persist(ctx, ports.StateKeyEvents, s.events)

	out := events[i]
	return &out, nil
}

// DeleteEvent removes an event.
func (s *BoardService) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.unlockAndNotify()

	i := s.findEvent(id)
	if i < 0 {
		return entities.ErrEventNotFound
	}
	s.record("delete-event")
	events := entities.CloneEvents(s.events)
	s.events = append(events[:i], events[i+1:]...)
	s.persist(ctx, ports.StateKeyEvents, s.events)
	return nil
}

// DuplicateEvent clones an event under a new identity.
func (s *BoardService) DuplicateEvent(ctx context.Context, id string) (*entities.CalendarEvent, error) {
	s.mu.Lock()
	defer s.unlockAndNotify()

	i := s.findEvent(id)
	if i < 0 {
		return nil, entities.ErrEventNotFound
	}
	s.record("duplicate-event")
	dup := s.events[i].Duplicate()
	s.events = append(entities.CloneEvents(s.events), dup)
	s.persist(ctx, ports.StateKeyEvents, s.events)
	return &dup, nil
}

// --- Drag resolution ---

// ResolveDrop consumes the in-flight gesture against a drop target and
// applies the resulting mutation, if any. The second return is false
// for silent rejections.
func (s *BoardService) ResolveDrop(ctx context.Context, dateStr, columnID string, mode entities.GroupMode) (*timeline.Mutation, bool, error) {
	mut, ok := s.drags.Drop(dateStr, columnID, s.Events())
	if !ok {
		return nil, false, nil
	}
	switch mut.Kind {
	case timeline.MutationMoveTask:
		_, err := s.MoveTask(ctx, mut.TaskID, mode, ports.MoveTaskRequest{Date: mut.Date, ColumnID: mut.ColumnID})
		return &mut, err == nil, err
	case timeline.MutationRescheduleEvent:
		_, err := s.RescheduleEvent(ctx, mut.EventID, mut.StartDate, mut.EndDate)
		return &mut, err == nil, err
	}
	return nil, false, nil
}

// --- History ---

// Undo restores the most recent snapshot. Returns false when there is
// nothing to undo.
func (s *BoardService) Undo(ctx context.Context) bool {
	s.mu.Lock()
	defer s.unlockAndNotify()

	restored, ok := s.hist.Undo(s.currentSnapshot())
	if !ok {
		return false
	}
	s.applySnapshot(ctx, restored)
	s.metrics.HistoryTotal.WithLabelValues("undo").Inc()
	return true
}

// Redo reapplies the most recently undone snapshot. Returns false when
// there is nothing to redo.
func (s *BoardService) Redo(ctx context.Context) bool {
	s.mu.Lock()
	defer s.unlockAndNotify()

	restored, ok := s.hist.Redo(s.currentSnapshot())
	if !ok {
		return false
	}
	s.applySnapshot(ctx, restored)
	s.metrics.HistoryTotal.WithLabelValues("redo").Inc()
	return true
}

// --- Settings / import / export ---

// UpdateSettings sets the app display name and icon. Settings are not
// part of undo history.
func (s *BoardService) UpdateSettings(ctx context.Context, req ports.SettingsRequest) {
	s.mu.Lock()
	defer s.unlockAndNotify()

	s.appName = req.AppName
	s.appIcon = req.AppIcon
	s.persist(ctx, ports.StateKeyAppName, s.appName)
	s.persist(ctx, ports.StateKeyAppIcon, s.appIcon)
}

// Export builds the full persisted snapshot.
func (s *BoardService) Export(now func() entities.ExportMeta) entities.ExportData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exportLocked(now)
}

// Import replaces the whole in-memory state with a validated document.
// Imports and externally-triggered reloads bypass undo history: there is
// deliberately no undo entry back to the pre-import state.
func (s *BoardService) Import(ctx context.Context, doc entities.ExportData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.AppName != "" {
		s.appName = doc.AppName
	}
	if doc.AppIcon != "" {
		s.appIcon = doc.AppIcon
	}
	s.categories = entities.CloneCategories(doc.Categories)
	s.tasks = entities.CloneTasks(doc.Tasks)
	s.events = entities.CloneEvents(doc.Events)

	s.persist(ctx, ports.StateKeyTasks, s.tasks)
	s.persist(ctx, ports.StateKeyCategories, s.categories)
	s.persist(ctx, ports.StateKeyEvents, s.events)
	s.persist(ctx, ports.StateKeyAppName, s.appName)
	s.persist(ctx, ports.StateKeyAppIcon, s.appIcon)

	s.logger.Infow("Board replaced from document",
		"tasks", len(s.tasks), "categories", len(s.categories), "events", len(s.events))
}

// Reset restores built-in defaults for all data and settings. The reset
// itself is not undoable.
func (s *BoardService) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = []entities.Task{}
	s.categories = entities.DefaultCategories()
	s.events = []entities.CalendarEvent{}
	s.appName = entities.DefaultAppName
	s.appIcon = entities.DefaultAppIcon
	s.hist = history.NewManager(history.DefaultLimit)

	s.persist(ctx, ports.StateKeyTasks, s.tasks)
	s.persist(ctx, ports.StateKeyCategories, s.categories)
	s.persist(ctx, ports.StateKeyEvents, s.events)
	s.persist(ctx, ports.StateKeyAppName, s.appName)
	s.persist(ctx, ports.StateKeyAppIcon, s.appIcon)
}

// --- internals ---

func (s *BoardService) findTask(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *BoardService) findCategory(id string) int {
	for i := range s.categories {
		if s.categories[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *BoardService) findEvent(id string) int {
	for i := range s.events {
		if s.events[i].ID == id {
			return i
		}
	}
	return -1
}

func findSubtask(subs []entities.Subtask, id string) int {
	for i := range subs {
		if subs[i].ID == id {
			return i
		}
	}
	return -1
}

func withSubtaskIDs(subs []entities.Subtask) []entities.Subtask {
	out := make([]entities.Subtask, len(subs))
	copy(out, subs)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = uuid.NewString()
		}
	}
	return out
}

func (s *BoardService) currentSnapshot() history.Snapshot {
	return history.Snapshot{Tasks: s.tasks, Categories: s.categories, Events: s.events}
}

// record pushes the pre-edit snapshot and counts the mutation. Callers
// hold the lock and mutate immediately after.
func (s *BoardService) record(kind string) {
	s.hist.Record(s.currentSnapshot())
	s.metrics.MutationsTotal.WithLabelValues(kind).Inc()
	s.logger.LogMutation(kind)
	s.dirty = true
}

func (s *BoardService) applySnapshot(ctx context.Context, snap history.Snapshot) {
	s.dirty = true
	s.tasks = entities.CloneTasks(snap.Tasks)
	s.categories = entities.CloneCategories(snap.Categories)
	s.events = entities.CloneEvents(snap.Events)
	s.persist(ctx, ports.StateKeyTasks, s.tasks)
	s.persist(ctx, ports.StateKeyCategories, s.categories)
	s.persist(ctx, ports.StateKeyEvents, s.events)
}

// persist writes one local state key best-effort; failures are logged
// and never surface to the caller.
func (s *BoardService) persist(ctx context.Context, key string, value any) {
	if s.state == nil {
		return
	}
	if err := s.state.Set(ctx, key, value); err != nil {
		s.logger.Warnw("Local state write failed", "key", key, "error", err)
	}
}

func (s *BoardService) exportLocked(now func() entities.ExportMeta) entities.ExportData {
	return entities.ExportData{
		Meta:       now(),
		AppName:    s.appName,
		AppIcon:    s.appIcon,
		Categories: entities.CloneCategories(s.categories),
		Tasks:      entities.CloneTasks(s.tasks),
		Events:     entities.CloneEvents(s.events),
	}
}

// unlockAndNotify releases the state lock and, when the guarded section
// actually changed the board, hands the updated document to the change
// hook. The hook runs outside the lock so auto-save can never stall a
// mutation.
func (s *BoardService) unlockAndNotify() {
	fn := s.onChange
	changed := s.dirty
	s.dirty = false
	var doc entities.ExportData
	if fn != nil && changed {
		doc = s.exportLocked(entities.NowMeta)
	}
	s.mu.Unlock()
	if fn != nil && changed {
		fn(doc)
	}
}
