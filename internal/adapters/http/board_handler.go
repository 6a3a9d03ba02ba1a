package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/planboard/core/internal/application/services"
	"github.com/planboard/core/internal/domain/entities"
	"github.com/planboard/core/internal/infrastructure/logger"
	"github.com/planboard/core/internal/ports"
)

// BoardHandler handles board data requests: tasks, subtasks, categories,
// events, undo/redo and settings.
type BoardHandler struct {
	boardService  *services.BoardService
	layoutService *services.LayoutService
	fileService   *services.FileService
	logger        *logger.Logger
}

// NewBoardHandler creates a new board handler
func NewBoardHandler(boardService *services.BoardService, layoutService *services.LayoutService, fileService *services.FileService, logger *logger.Logger) *BoardHandler {
	return &BoardHandler{
		boardService:  boardService,
		layoutService: layoutService,
		fileService:   fileService,
		logger:        logger,
	}
}

// GetBoard returns the full board state
func (h *BoardHandler) GetBoard(c echo.Context) error {
	name, icon := h.boardService.Settings()
	return c.JSON(http.StatusOK, BoardResponse{
		AppName:    name,
		AppIcon:    icon,
		Categories: h.boardService.Categories(),
		Tasks:      h.boardService.Tasks(),
		Events:     h.boardService.Events(),
		CanUndo:    h.boardService.CanUndo(),
		CanRedo:    h.boardService.CanRedo(),
	})
}

// CreateTask handles task creation
func (h *BoardHandler) CreateTask(c echo.Context) error {
	var req ports.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.boardService.CreateTask(c.Request().Context(), req)
	if err != nil {
		h.logger.Errorw("Create task failed", "error", err)
		return domainError(err)
	}

	return c.JSON(http.StatusCreated, task)
}

// UpdateTask handles task updates
func (h *BoardHandler) UpdateTask(c echo.Context) error {
	var req ports.UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.boardService.UpdateTask(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		h.logger.Errorw("Update task failed", "error", err, "task_id", c.Param("id"))
		return domainError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// DeleteTask handles task deletion
func (h *BoardHandler) DeleteTask(c echo.Context) error {
	if err := h.boardService.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
		h.logger.Errorw("Delete task failed", "error", err, "task_id", c.Param("id"))
		return domainError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Task deleted"})
}

// MoveTask handles dropping a task card onto a (date, column) cell
func (h *BoardHandler) MoveTask(c echo.Context) error {
	var req ports.MoveTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.boardService.MoveTask(c.Request().Context(), c.Param("id"), h.layoutService.GroupMode(), req)
	if err != nil {
		h.logger.Errorw("Move task failed", "error", err, "task_id", c.Param("id"))
		return domainError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// DuplicateTask clones a task with completion state reset
func (h *BoardHandler) DuplicateTask(c echo.Context) error {
	task, err := h.boardService.DuplicateTask(c.Request().Context(), c.Param("id"))
	if err != nil {
		h.logger.Errorw("Duplicate task failed", "error", err, "task_id", c.Param("id"))
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, task)
}

// AddSubtask appends a checklist entry to a task
func (h *BoardHandler) AddSubtask(c echo.Context) error {
	var req ports.CreateSubtaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.boardService.AddSubtask(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		h.logger.Errorw("Add subtask failed", "error", err, "task_id", c.Param("id"))
		return domainError(err)
	}

	return c.JSON(http.StatusCreated, task)
}

// UpdateSubtask patches a checklist entry
func (h *BoardHandler) UpdateSubtask(c echo.Context) error {
	var req ports.UpdateSubtaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.boardService.UpdateSubtask(c.Request().Context(), c.Param("id"), c.Param("subtaskId"), req)
	if err != nil {
		h.logger.Errorw("Update subtask failed", "error", err, "task_id", c.Param("id"))
		return domainError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// DeleteSubtask removes a checklist entry
func (h *BoardHandler) DeleteSubtask(c echo.Context) error {
	task, err := h.boardService.DeleteSubtask(c.Request().Context(), c.Param("id"), c.Param("subtaskId"))
	if err != nil {
		h.logger.Errorw("Delete subtask failed", "error", err, "task_id", c.Param("id"))
		return domainError(err)
	}
	return c.JSON(http.StatusOK, task)
}

// ReorderSubtasks splices a subtask to a new position
func (h *BoardHandler) ReorderSubtasks(c echo.Context) error {
	var req ports.ReorderSubtasksRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.boardService.ReorderSubtasks(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		h.logger.Errorw("Reorder subtasks failed", "error", err, "task_id", c.Param("id"))
		return domainError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// AddCategory handles category creation
func (h *BoardHandler) AddCategory(c echo.Context) error {
	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	category, err := h.boardService.AddCategory(c.Request().Context(), req.Name)
	if err != nil {
		h.logger.Errorw("Add category failed", "error", err)
		return domainError(err)
	}

	return c.JSON(http.StatusCreated, category)
}

// RenameCategory handles category renames
func (h *BoardHandler) RenameCategory(c echo.Context) error {
	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	category, err := h.boardService.RenameCategory(c.Request().Context(), c.Param("id"), req.Name)
	if err != nil {
		h.logger.Errorw("Rename category failed", "error", err, "category_id", c.Param("id"))
		return domainError(err)
	}

	return c.JSON(http.StatusOK, category)
}

// DeleteCategory deletes a category and every task in it
func (h *BoardHandler) DeleteCategory(c echo.Context) error {
	if err := h.boardService.DeleteCategory(c.Request().Context(), c.Param("id")); err != nil {
		h.logger.Errorw("Delete category failed", "error", err, "category_id", c.Param("id"))
		return domainError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Category deleted"})
}

// CreateEvent handles event creation
func (h *BoardHandler) CreateEvent(c echo.Context) error {
	var req ports.CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	event, err := h.boardService.CreateEvent(c.Request().Context(), req)
	if err != nil {
		h.logger.Errorw("Create event failed", "error", err)
		return domainError(err)
	}

	return c.JSON(http.StatusCreated, event)
}

// UpdateEvent handles event updates
func (h *BoardHandler) UpdateEvent(c echo.Context) error {
	var req ports.UpdateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	event, err := h.boardService.UpdateEvent(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		h.logger.Errorw("Update event failed", "error", err, "event_id", c.Param("id"))
		return domainError(err)
	}

	return c.JSON(http.StatusOK, event)
}

// DeleteEvent handles event deletion
func (h *BoardHandler) DeleteEvent(c echo.Context) error {
	if err := h.boardService.DeleteEvent(c.Request().Context(), c.Param("id")); err != nil {
		h.logger.Errorw("Delete event failed", "error", err, "event_id", c.Param("id"))
		return domainError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Event deleted"})
}

// DuplicateEvent clones an event
func (h *BoardHandler) DuplicateEvent(c echo.Context) error {
	event, err := h.boardService.DuplicateEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		h.logger.Errorw("Duplicate event failed", "error", err, "event_id", c.Param("id"))
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, event)
}

// Undo restores the previous board state
func (h *BoardHandler) Undo(c echo.Context) error {
	applied := h.boardService.Undo(c.Request().Context())
	return c.JSON(http.StatusOK, HistoryResponse{
		Applied: applied,
		CanUndo: h.boardService.CanUndo(),
		CanRedo: h.boardService.CanRedo(),
	})
}

// Redo re-applies an undone board state
func (h *BoardHandler) Redo(c echo.Context) error {
	applied := h.boardService.Redo(c.Request().Context())
	return c.JSON(http.StatusOK, HistoryResponse{
		Applied: applied,
		CanUndo: h.boardService.CanUndo(),
		CanRedo: h.boardService.CanRedo(),
	})
}

// UpdateSettings updates the app name and icon
func (h *BoardHandler) UpdateSettings(c echo.Context) error {
	var req ports.SettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	h.boardService.UpdateSettings(c.Request().Context(), req)
	name, icon := h.boardService.Settings()
	return c.JSON(http.StatusOK, SettingsResponse{AppName: name, AppIcon: icon})
}

// Reset restores the built-in defaults, drops the history and
// detaches any linked file.
func (h *BoardHandler) Reset(c echo.Context) error {
	ctx := c.Request().Context()
	h.fileService.Unlink(ctx)
	h.boardService.Reset(ctx)
	return c.JSON(http.StatusOK, MessageResponse{Message: "Board reset"})
}

// domainError maps domain failures to HTTP status codes.
func domainError(err error) error {
	var (
		validation entities.ValidationError
		collision  *entities.CollisionError
		permission *entities.PermissionError
		notFound   *entities.SourceNotFoundError
	)
	switch {
	case errors.Is(err, entities.ErrTaskNotFound),
		errors.Is(err, entities.ErrSubtaskNotFound),
		errors.Is(err, entities.ErrCategoryNotFound),
		errors.Is(err, entities.ErrEventNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.As(err, &notFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, entities.ErrInvalidDateKey),
		errors.Is(err, entities.ErrInvalidRange),
		errors.As(err, &validation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.As(err, &collision):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.As(err, &permission):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, entities.ErrNoLinkedFile):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return err
	}
}

// Request/Response types

type CategoryRequest struct {
	Name string `json:"name" validate:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type BoardResponse struct {
	AppName    string                    `json:"appName"`
	AppIcon    string                    `json:"appIcon"`
	Categories []entities.Category       `json:"categories"`
	Tasks      []entities.Task           `json:"tasks"`
	Events     []entities.CalendarEvent  `json:"events"`
	CanUndo    bool                      `json:"canUndo"`
	CanRedo    bool                      `json:"canRedo"`
}

type HistoryResponse struct {
	Applied bool `json:"applied"`
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

type SettingsResponse struct {
	AppName string `json:"appName"`
	AppIcon string `json:"appIcon"`
}
