package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/planboard/core/internal/application/services"
	"github.com/planboard/core/internal/domain/entities"
	"github.com/planboard/core/internal/infrastructure/logger"
	"github.com/planboard/core/internal/timeline"
)

// LayoutHandler handles timeline geometry and drag gesture requests.
type LayoutHandler struct {
	boardService  *services.BoardService
	layoutService *services.LayoutService
	logger        *logger.Logger
}

// NewLayoutHandler creates a new layout handler
func NewLayoutHandler(boardService *services.BoardService, layoutService *services.LayoutService, logger *logger.Logger) *LayoutHandler {
	return &LayoutHandler{
		boardService:  boardService,
		layoutService: layoutService,
		logger:        logger,
	}
}

// GetLayout returns the computed grid: months, columns, event lanes
func (h *LayoutHandler) GetLayout(c echo.Context) error {
	layout, err := h.layoutService.Build(
		h.boardService.Categories(),
		h.boardService.Tasks(),
		h.boardService.Events(),
	)
	if err != nil {
		h.logger.Errorw("Layout build failed", "error", err)
		return domainError(err)
	}
	return c.JSON(http.StatusOK, layout)
}

// SetViewMode switches the month window width
func (h *LayoutHandler) SetViewMode(c echo.Context) error {
	var req ViewModeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	h.layoutService.SetViewMode(timeline.ViewMode(req.Mode))
	return h.GetLayout(c)
}

// SetCompact toggles compact rendering
func (h *LayoutHandler) SetCompact(c echo.Context) error {
	var req CompactRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	h.layoutService.SetCompact(req.Compact)
	return h.GetLayout(c)
}

// SetGroupMode switches between category and assignee grouping
func (h *LayoutHandler) SetGroupMode(c echo.Context) error {
	var req GroupModeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	h.layoutService.SetGroupMode(entities.GroupMode(req.Mode))
	return h.GetLayout(c)
}

// Navigate steps the anchor one month forward or back
func (h *LayoutHandler) Navigate(c echo.Context) error {
	var req NavigateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := h.layoutService.Navigate(req.Forward); err != nil {
		h.logger.Errorw("Month navigation failed", "error", err)
		return domainError(err)
	}
	return h.GetLayout(c)
}

// Today re-anchors the window on the current month
func (h *LayoutHandler) Today(c echo.Context) error {
	h.layoutService.GoToToday(timeNow())
	return h.GetLayout(c)
}

// BeginDrag opens a drag gesture; a second gesture is rejected until
// the first one drops or cancels
func (h *LayoutHandler) BeginDrag(c echo.Context) error {
	var req BeginDragRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	g := timeline.Gesture{
		Kind:       timeline.DragKind(req.Kind),
		TaskID:     req.TaskID,
		EventID:    req.EventID,
		OriginDate: req.OriginDate,
	}
	if err := h.boardService.Drags().Begin(g); err != nil {
		if errors.Is(err, timeline.ErrDragInFlight) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Drag started"})
}

// CancelDrag discards the in-flight gesture, if any
func (h *LayoutHandler) CancelDrag(c echo.Context) error {
	h.boardService.Drags().Cancel()
	return c.JSON(http.StatusOK, MessageResponse{Message: "Drag cancelled"})
}

// Drop resolves the in-flight gesture against a (date, column) cell.
// An ignored drop reports applied=false with no board change.
func (h *LayoutHandler) Drop(c echo.Context) error {
	var req DropRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	mut, applied, err := h.boardService.ResolveDrop(c.Request().Context(), req.Date, req.ColumnID, h.layoutService.GroupMode())
	if err != nil {
		h.logger.Errorw("Drop failed", "error", err)
		return domainError(err)
	}

	return c.JSON(http.StatusOK, DropResponse{Applied: applied, Mutation: mut})
}

// Request/Response types

type ViewModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=1month 3months 6months"`
}

type CompactRequest struct {
	Compact bool `json:"compact"`
}

type GroupModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=category assignee"`
}

type NavigateRequest struct {
	Forward bool `json:"forward"`
}

type BeginDragRequest struct {
	Kind       string `json:"kind" validate:"required,oneof=task-move event-move event-resize-start event-resize-end"`
	TaskID     string `json:"taskId"`
	EventID    string `json:"eventId"`
	OriginDate string `json:"originDate" validate:"omitempty,datekey"`
}

type DropRequest struct {
	Date     string `json:"date" validate:"required,datekey"`
	ColumnID string `json:"columnId" validate:"required"`
}

type DropResponse struct {
	Applied  bool               `json:"applied"`
	Mutation *timeline.Mutation `json:"mutation,omitempty"`
}
