package ports

import (
	"errors"

	"github.com/planboard/core/internal/domain/entities"
)

// ErrStateKeyNotFound is returned by StateStore.Get for absent keys.
var ErrStateKeyNotFound = errors.New("state key not found")

// CreateTaskRequest creates a task on a single day.
type CreateTaskRequest struct {
	Title       string             `json:"title" validate:"required"`
	Description string             `json:"description"`
	CategoryID  string             `json:"categoryId" validate:"required"`
	Date        string             `json:"date" validate:"required,datekey"`
	Subtasks    []entities.Subtask `json:"subtasks"`
	Color       string             `json:"color"`
	Assignee    string             `json:"assignee"`
}

// UpdateTaskRequest patches a task; nil fields are left untouched.
type UpdateTaskRequest struct {
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	CategoryID  *string             `json:"categoryId"`
	Date        *string             `json:"date" validate:"omitempty,datekey"`
	Subtasks    *[]entities.Subtask `json:"subtasks"`
	Color       *string             `json:"color"`
	Assignee    *string             `json:"assignee"`
	IsCompleted *bool               `json:"isCompleted"`
	IsDone      *bool               `json:"isDone"`
}

// MoveTaskRequest is the drop of a task card onto a (date, column) cell.
type MoveTaskRequest struct {
	Date     string `json:"date" validate:"required,datekey"`
	ColumnID string `json:"columnId" validate:"required"`
}

// CreateSubtaskRequest appends a checklist entry to a task.
type CreateSubtaskRequest struct {
	Title    string `json:"title" validate:"required"`
	Assignee string `json:"assignee"`
}

// UpdateSubtaskRequest patches a checklist entry.
type UpdateSubtaskRequest struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
	Assignee  *string `json:"assignee"`
}

// ReorderSubtasksRequest splices a subtask from one position to another.
type ReorderSubtasksRequest struct {
	FromIndex int `json:"fromIndex" validate:"min=0"`
	ToIndex   int `json:"toIndex" validate:"min=0"`
}

// CreateEventRequest creates a date-range event.
type CreateEventRequest struct {
	Title     string `json:"title" validate:"required"`
	StartDate string `json:"startDate" validate:"required,datekey"`
	EndDate   string `json:"endDate" validate:"required,datekey"`
	Color     string `json:"color"`
}

// UpdateEventRequest patches an event; nil fields are left untouched.
type UpdateEventRequest struct {
	Title     *string `json:"title"`
	StartDate *string `json:"startDate" validate:"omitempty,datekey"`
	EndDate   *string `json:"endDate" validate:"omitempty,datekey"`
	Color     *string `json:"color"`
}

// SettingsRequest updates the app display name and icon.
type SettingsRequest struct {
	AppName string `json:"appName" validate:"required"`
	AppIcon string `json:"appIcon" validate:"required"`
}
