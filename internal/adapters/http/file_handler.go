package http

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/planboard/core/internal/application/services"
	"github.com/planboard/core/internal/domain/entities"
	"github.com/planboard/core/internal/infrastructure/logger"
	"github.com/planboard/core/internal/ports"
)

// timeNow is stubbed in tests.
var timeNow = time.Now

// FileHandler handles linked-file requests: link, save, reload,
// export and import.
type FileHandler struct {
	boardService *services.BoardService
	fileService  *services.FileService
	open         services.HandleOpener
	create       services.HandleOpener
	logger       *logger.Logger
}

// NewFileHandler creates a new file handler. open resolves an existing
// file; create makes one if missing.
func NewFileHandler(boardService *services.BoardService, fileService *services.FileService, open, create services.HandleOpener, logger *logger.Logger) *FileHandler {
	return &FileHandler{
		boardService: boardService,
		fileService:  fileService,
		open:         open,
		create:       create,
		logger:       logger,
	}
}

// GetStatus reports the linked file and auto-save state
func (h *FileHandler) GetStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, FileStatusResponse{
		Linked:          h.fileService.Linked(),
		Name:            h.fileService.Name(),
		AutoSaveEnabled: h.fileService.AutoSaveEnabled(),
	})
}

// Link attaches a board file. Opening an existing file loads its
// content into the board; creating a new one writes the current board
// out instead.
func (h *FileHandler) Link(c echo.Context) error {
	var req LinkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()

	opener := h.open
	if req.Create {
		opener = h.create
	}
	handle, err := opener(req.Path)
	if err != nil {
		h.logger.Errorw("Open board file failed", "error", err, "path", req.Path)
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("cannot open %s", req.Path))
	}

	if err := h.fileService.Link(ctx, handle); err != nil {
		h.logger.Errorw("Link board file failed", "error", err, "path", req.Path)
		return domainError(err)
	}

	if req.Create {
		doc := h.boardService.Export(entities.NowMeta)
		if err := h.fileService.Save(ctx, doc, ports.SaveOptions{}); err != nil {
			h.logger.Errorw("Initial save failed", "error", err, "path", req.Path)
			return domainError(err)
		}
	} else {
		doc, err := h.fileService.Load(ctx)
		if err != nil {
			h.fileService.Unlink(ctx)
			h.logger.Errorw("Load board file failed", "error", err, "path", req.Path)
			return domainError(err)
		}
		h.boardService.Import(ctx, doc)
	}

	return h.GetStatus(c)
}

// Unlink detaches the current board file
func (h *FileHandler) Unlink(c echo.Context) error {
	h.fileService.Unlink(c.Request().Context())
	return c.JSON(http.StatusOK, MessageResponse{Message: "File unlinked"})
}

// Save writes the board to the linked file. A file changed on disk is
// reported as a conflict unless force is set.
func (h *FileHandler) Save(c echo.Context) error {
	var req SaveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	doc := h.boardService.Export(entities.NowMeta)
	if err := h.fileService.Save(c.Request().Context(), doc, ports.SaveOptions{CheckCollision: !req.Force}); err != nil {
		h.logger.Errorw("Save failed", "error", err)
		return domainError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Saved"})
}

// Reload re-reads the linked file and replaces the board content.
// Reloads never enter the undo history.
func (h *FileHandler) Reload(c echo.Context) error {
	ctx := c.Request().Context()
	doc, err := h.fileService.Load(ctx)
	if err != nil {
		h.logger.Errorw("Reload failed", "error", err)
		return domainError(err)
	}
	h.boardService.Import(ctx, doc)
	return c.JSON(http.StatusOK, MessageResponse{Message: "Reloaded"})
}

// Export returns the board as a download with the conventional
// timestamped filename
func (h *FileHandler) Export(c echo.Context) error {
	doc := h.boardService.Export(entities.NowMeta)
	data, err := entities.EncodeDocument(doc)
	if err != nil {
		return err
	}

	filename := services.ExportFilename(doc.AppName, timeNow())
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
}

// Import replaces the board with a document uploaded in the request
// body. A document missing required fields is rejected and the board
// keeps its current state.
func (h *FileHandler) Import(c echo.Context) error {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot read request body")
	}

	doc, err := entities.ParseDocument(data)
	if err != nil {
		h.logger.Errorw("Import rejected", "error", err)
		return domainError(err)
	}

	h.boardService.Import(c.Request().Context(), doc)
	return c.JSON(http.StatusOK, MessageResponse{Message: "Imported"})
}

// Request/Response types

type LinkRequest struct {
	Path   string `json:"path" validate:"required"`
	Create bool   `json:"create"`
}

type SaveRequest struct {
	Force bool `json:"force"`
}

type FileStatusResponse struct {
	Linked          bool   `json:"linked"`
	Name            string `json:"name"`
	AutoSaveEnabled bool   `json:"autoSaveEnabled"`
}
