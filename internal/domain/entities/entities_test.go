package entities

import (
	"errors"
	"strings"
	"testing"
)

func TestTaskDisplayName_Precedence(t *testing.T) {
	task := Task{
		Assignee: "Owner",
		Subtasks: []Subtask{
			{ID: "s1", Title: "shipped", Completed: true, Assignee: "Alice"},
			{ID: "s2", Title: "open", Assignee: "Bob"},
			{ID: "s3", Title: "also open", Assignee: "Carol"},
		},
	}

	// First incomplete subtask with an assignee wins, not the first
	// subtask overall.
	if got := task.DisplayName(); got != "Bob" {
		t.Fatalf("DisplayName = %q, want Bob", got)
	}

	task.Subtasks[1].Completed = true
	if got := task.DisplayName(); got != "Carol" {
		t.Fatalf("DisplayName = %q, want Carol", got)
	}

	task.Subtasks[2].Completed = true
	if got := task.DisplayName(); got != "Owner" {
		t.Fatalf("DisplayName = %q, want task assignee Owner", got)
	}

	task.Assignee = "   "
	if got := task.DisplayName(); got != "" {
		t.Fatalf("DisplayName = %q, want unassigned", got)
	}
}

func TestTaskDisplayName_BlankSubtaskAssigneeSkipped(t *testing.T) {
	task := Task{
		Subtasks: []Subtask{
			{ID: "s1", Title: "open, nobody", Assignee: "  "},
			{ID: "s2", Title: "open, named", Assignee: "Dana"},
		},
	}
	if got := task.DisplayName(); got != "Dana" {
		t.Fatalf("DisplayName = %q, want Dana", got)
	}
}

func TestTaskCompleted(t *testing.T) {
	plain := Task{IsCompleted: true}
	if !plain.Completed() {
		t.Fatal("manual flag ignored without subtasks")
	}

	// With subtasks the manual flag is irrelevant; completion derives
	// from the checklist.
	withSubs := Task{
		IsCompleted: true,
		Subtasks:    []Subtask{{ID: "s1"}, {ID: "s2", Completed: true}},
	}
	if withSubs.Completed() {
		t.Fatal("task with open subtasks reported complete")
	}

	withSubs.Subtasks[0].Completed = true
	if !withSubs.Completed() {
		t.Fatal("task with all subtasks done reported incomplete")
	}
}

func TestTaskDuplicate(t *testing.T) {
	orig := Task{
		ID:          "t1",
		Title:       "Plan",
		IsCompleted: true,
		IsDone:      true,
		Subtasks:    []Subtask{{ID: "s1", Title: "a"}},
	}

	dup := orig.Duplicate()
	if dup.ID == orig.ID || dup.ID == "" {
		t.Fatalf("duplicate id = %q", dup.ID)
	}
	if dup.Subtasks[0].ID == orig.Subtasks[0].ID || dup.Subtasks[0].ID == "" {
		t.Fatalf("duplicate subtask id = %q", dup.Subtasks[0].ID)
	}
	if dup.IsCompleted || dup.IsDone {
		t.Fatal("duplicate kept completion flags")
	}
	if dup.Title != "Plan" || dup.Subtasks[0].Title != "a" {
		t.Fatal("duplicate lost content")
	}
}

func TestTaskClone_Isolated(t *testing.T) {
	orig := Task{ID: "t1", Subtasks: []Subtask{{ID: "s1", Title: "a"}}}
	c := orig.Clone()
	c.Subtasks[0].Title = "changed"
	if orig.Subtasks[0].Title != "a" {
		t.Fatal("clone shares subtask backing array")
	}
}

func TestCalendarEventValid(t *testing.T) {
	cases := []struct {
		start, end string
		want       bool
	}{
		{"2024-06-01", "2024-06-10", true},
		{"2024-06-01", "2024-06-01", true},
		{"2024-06-10", "2024-06-01", false},
		{"", "2024-06-01", false},
		{"2024-06-01", "", false},
	}
	for _, tc := range cases {
		e := CalendarEvent{ID: "e", StartDate: tc.start, EndDate: tc.end}
		if got := e.Valid(); got != tc.want {
			t.Fatalf("Valid(%q..%q) = %v, want %v", tc.start, tc.end, got, tc.want)
		}
	}
}

func TestParseDocument_MissingFields(t *testing.T) {
	_, err := ParseDocument([]byte(`{"appName":"My Board","tasks":[]}`))

	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(ve.Missing) != 1 || ve.Missing[0] != "categories" {
		t.Fatalf("missing = %v, want [categories]", ve.Missing)
	}
	if !strings.Contains(err.Error(), "categories") {
		t.Fatalf("error message %q does not name the field", err.Error())
	}

	_, err = ParseDocument([]byte(`{}`))
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(ve.Missing) != 2 {
		t.Fatalf("missing = %v, want both categories and tasks", ve.Missing)
	}
}

func TestParseDocument_EventsOptional(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"categories":[],"tasks":[]}`))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if doc.Events == nil || len(doc.Events) != 0 {
		t.Fatalf("events = %v, want empty slice", doc.Events)
	}
}

func TestParseDocument_EmptyArraysAccepted(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"appName":"B","appIcon":"i","categories":[],"tasks":[],"events":[]}`))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if doc.AppName != "B" || doc.AppIcon != "i" {
		t.Fatalf("settings = %q/%q", doc.AppName, doc.AppIcon)
	}
}

func TestEncodeDocument_RoundTrip(t *testing.T) {
	src := ExportData{
		Meta:       NowMeta(),
		AppName:    "Board",
		AppIcon:    "kanban",
		Categories: []Category{{ID: "c1", Name: "Work"}},
		Tasks:      []Task{{ID: "t1", Title: "Plan", CategoryID: "c1", Date: "2024-06-01"}},
		Events:     []CalendarEvent{{ID: "e1", Title: "Trip", StartDate: "2024-06-03", EndDate: "2024-06-05"}},
	}

	data, err := EncodeDocument(src)
	if err != nil {
		t.Fatalf("EncodeDocument: %v", err)
	}
	got, err := ParseDocument(data)
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if len(got.Tasks) != 1 || got.Tasks[0].ID != "t1" {
		t.Fatalf("tasks = %+v", got.Tasks)
	}
	if len(got.Events) != 1 || got.Events[0].StartDate != "2024-06-03" {
		t.Fatalf("events = %+v", got.Events)
	}
	if got.Meta.Version != ExportVersion {
		t.Fatalf("version = %q, want %q", got.Meta.Version, ExportVersion)
	}
}
