package services

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"golang.org/x/time/rate"

	"github.com/planboard/core/internal/domain/entities"
	"github.com/planboard/core/internal/infrastructure/config"
	"github.com/planboard/core/internal/infrastructure/logger"
	"github.com/planboard/core/internal/infrastructure/metrics"
	"github.com/planboard/core/internal/ports"
)

// HandleOpener reopens a source handle by name, typically on startup to
// restore the previously linked board file.
type HandleOpener func(name string) (ports.SourceHandle, error)

// FileService owns the linked board file: save, load, collision
// detection against external writers, throttled auto-save, and the
// background reload poller. At most one file is linked at a time.
type FileService struct {
	mu     sync.Mutex
	handle ports.SourceHandle
	// lastKnownModified is the file's mod time as of our last read or
	// write. A newer time on disk means someone else wrote the file.
	lastKnownModified time.Time
	autoSaveEnabled   bool

	// saving suppresses the reload poller while a write is in flight,
	// so our own save is never mistaken for an external change.
	saving atomic.Bool

	// pending holds the newest document that arrived while the throttle
	// window was closed; flushTimer writes it out when the window opens.
	pending    *entities.ExportData
	flushTimer *time.Timer

	limiter  *rate.Limiter
	state    ports.StateStore
	logger   *logger.Logger
	metrics  *metrics.Metrics
	onReload func(entities.ExportData)
}

// NewFileService creates a file service with no linked file. state may
// be nil when no durable local store is configured.
func NewFileService(state ports.StateStore, cfg config.AutoSaveConfig, m *metrics.Metrics, log *logger.Logger) *FileService {
	minInterval := cfg.MinInterval
	if minInterval <= 0 {
		minInterval = 2 * time.Second
	}
	return &FileService{
		autoSaveEnabled: cfg.Enabled,
		limiter:         rate.NewLimiter(rate.Every(minInterval), 1),
		state:           state,
		logger:          log,
		metrics:         m,
	}
}

// SetOnReload installs the hook invoked when the poller picks up an
// external change. Call before StartAutoReload.
func (s *FileService) SetOnReload(fn func(entities.ExportData)) {
	s.mu.Lock()
	s.onReload = fn
	s.mu.Unlock()
}

// Linked reports whether a board file is currently linked.
func (s *FileService) Linked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil
}

// Name returns the linked file's name, or "" when nothing is linked.
func (s *FileService) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return ""
	}
	return s.handle.Name()
}

// AutoSaveEnabled reports whether auto-save is currently active.
// Collisions turn it off until the next explicit save succeeds.
func (s *FileService) AutoSaveEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoSaveEnabled
}

// Link attaches a board file and remembers it for the next startup.
func (s *FileService) Link(ctx context.Context, h ports.SourceHandle) error {
	mod, err := h.LastModified(ctx)
	if err != nil {
		return s.mapFileError(h.Name(), err)
	}

	s.mu.Lock()
	s.handle = h
	s.lastKnownModified = mod
	s.mu.Unlock()

	if s.state != nil {
		if err := s.state.Set(ctx, ports.StateKeyLastSource, h.Name()); err != nil {
			s.logger.Warnw("Failed to remember linked file", "file", h.Name(), "error", err)
		}
	}
	s.logger.Infow("Linked board file", "file", h.Name())
	return nil
}

// Unlink detaches the current file and forgets the stored reference.
func (s *FileService) Unlink(ctx context.Context) {
	s.mu.Lock()
	name := ""
	if s.handle != nil {
		name = s.handle.Name()
	}
	s.handle = nil
	s.lastKnownModified = time.Time{}
	s.mu.Unlock()

	if s.state != nil {
		if err := s.state.Delete(ctx, ports.StateKeyLastSource); err != nil {
			s.logger.Warnw("Failed to clear stored file reference", "error", err)
		}
	}
	if name != "" {
		s.logger.Infow("Unlinked board file", "file", name)
	}
}

// RestoreLast relinks the file remembered from the previous run. A
// missing or unreadable file clears the stored reference instead of
// failing startup.
func (s *FileService) RestoreLast(ctx context.Context, open HandleOpener) (entities.ExportData, bool, error) {
	if s.state == nil {
		return entities.ExportData{}, false, nil
	}

	var name string
	if err := s.state.Get(ctx, ports.StateKeyLastSource, &name); err != nil {
		if errors.Is(err, ports.ErrStateKeyNotFound) {
			return entities.ExportData{}, false, nil
		}
		return entities.ExportData{}, false, err
	}
	if name == "" {
		return entities.ExportData{}, false, nil
	}

	h, err := open(name)
	if err != nil {
		s.logger.Warnw("Previously linked file unavailable", "file", name, "error", err)
		if err := s.state.Delete(ctx, ports.StateKeyLastSource); err != nil {
			s.logger.Warnw("Failed to clear stored file reference", "error", err)
		}
		return entities.ExportData{}, false, nil
	}

	if err := s.Link(ctx, h); err != nil {
		return entities.ExportData{}, false, err
	}
	doc, err := s.Load(ctx)
	if err != nil {
		s.Unlink(ctx)
		return entities.ExportData{}, false, err
	}
	return doc, true, nil
}

// Load reads and parses the linked file, refreshing the known mod time.
func (s *FileService) Load(ctx context.Context) (entities.ExportData, error) {
	s.mu.Lock()
	h := s.handle
	s.mu.Unlock()
	if h == nil {
		return entities.ExportData{}, entities.ErrNoLinkedFile
	}

	data, err := h.Read(ctx)
	if err != nil {
		s.logger.LogFileOperation("load", h.Name(), err)
		return entities.ExportData{}, s.mapFileError(h.Name(), err)
	}
	doc, err := entities.ParseDocument(data)
	if err != nil {
		s.logger.LogFileOperation("load", h.Name(), err)
		return entities.ExportData{}, err
	}

	if mod, err := h.LastModified(ctx); err == nil {
		s.mu.Lock()
		s.lastKnownModified = mod
		s.mu.Unlock()
	}
	s.logger.LogFileOperation("load", h.Name(), nil)
	return doc, nil
}

// Save writes the document to the linked file. With opts.CheckCollision
// set, a file modified since our last read or write is left untouched
// and a CollisionError is returned; a non-zero opts.LastKnownModified
// overrides the tracked time as the comparison point. A successful save
// re-enables auto-save.
func (s *FileService) Save(ctx context.Context, doc entities.ExportData, opts ports.SaveOptions) error {
	s.mu.Lock()
	h := s.handle
	lastKnown := s.lastKnownModified
	s.mu.Unlock()
	if h == nil {
		return entities.ErrNoLinkedFile
	}
	if !opts.LastKnownModified.IsZero() {
		lastKnown = opts.LastKnownModified
	}

	s.saving.Store(true)
	defer s.saving.Store(false)

	if opts.CheckCollision {
		mod, err := h.LastModified(ctx)
		if err != nil {
			s.metrics.SavesTotal.WithLabelValues("error").Inc()
			return s.mapFileError(h.Name(), err)
		}
		if !lastKnown.IsZero() && mod.After(lastKnown) {
			s.mu.Lock()
			s.autoSaveEnabled = false
			s.mu.Unlock()
			s.metrics.SavesTotal.WithLabelValues("collision").Inc()
			s.logger.Warnw("Save blocked, file changed on disk",
				"file", h.Name(),
				"last_known", lastKnown,
				"actual", mod,
			)
			return &entities.CollisionError{Name: h.Name(), LastKnown: lastKnown, ActualModTime: mod}
		}
	}

	data, err := entities.EncodeDocument(doc)
	if err != nil {
		s.metrics.SavesTotal.WithLabelValues("error").Inc()
		return err
	}
	if err := h.Write(ctx, data); err != nil {
		s.metrics.SavesTotal.WithLabelValues("error").Inc()
		s.logger.LogFileOperation("save", h.Name(), err)
		return s.mapFileError(h.Name(), err)
	}

	mod, err := h.LastModified(ctx)
	if err != nil {
		mod = time.Now()
	}
	s.mu.Lock()
	s.lastKnownModified = mod
	s.autoSaveEnabled = true
	s.mu.Unlock()

	s.metrics.SavesTotal.WithLabelValues("ok").Inc()
	s.logger.LogFileOperation("save", h.Name(), nil)
	return nil
}

// AutoSave saves the document if auto-save is enabled. Bursts are
// coalesced, never dropped: while the throttle window is closed the
// newest document is held and flushed the moment the window reopens, so
// the last edit of a burst always reaches the file. A collision
// disables auto-save; every other failure is logged and retried on the
// next change.
func (s *FileService) AutoSave(ctx context.Context, doc entities.ExportData) {
	s.mu.Lock()
	enabled := s.autoSaveEnabled && s.handle != nil
	s.mu.Unlock()
	if !enabled {
		return
	}

	if s.limiter.Allow() {
		s.autoSave(ctx, doc)
		return
	}

	// Throttled. Remember the newest document; the first throttled edit
	// of the burst reserves the next slot and schedules the flush.
	s.mu.Lock()
	s.pending = &doc
	if s.flushTimer == nil {
		delay := s.limiter.Reserve().Delay()
		s.flushTimer = time.AfterFunc(delay, func() { s.flushPending(ctx) })
	}
	s.mu.Unlock()
}

// flushPending writes out the document held back by the throttle.
func (s *FileService) flushPending(ctx context.Context) {
	s.mu.Lock()
	doc := s.pending
	s.pending = nil
	s.flushTimer = nil
	enabled := s.autoSaveEnabled && s.handle != nil
	s.mu.Unlock()
	if doc == nil || !enabled {
		return
	}
	s.autoSave(ctx, *doc)
}

func (s *FileService) autoSave(ctx context.Context, doc entities.ExportData) {
	err := s.Save(ctx, doc, ports.SaveOptions{CheckCollision: true})
	if err == nil {
		return
	}
	var collision *entities.CollisionError
	if errors.As(err, &collision) {
		s.logger.Warnw("Auto-save disabled until next explicit save", "file", collision.Name)
		return
	}
	s.logger.Warnw("Auto-save failed", "error", err)
}

// StartAutoReload polls the linked file and feeds external changes to
// the reload hook. It returns immediately; polling stops when ctx is
// cancelled. Writes made through Save are never reported.
func (s *FileService) StartAutoReload(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.pollOnce(ctx)
			}
		}
	}()
}

func (s *FileService) pollOnce(ctx context.Context) {
	if s.saving.Load() {
		return
	}
	s.mu.Lock()
	h := s.handle
	lastKnown := s.lastKnownModified
	fn := s.onReload
	s.mu.Unlock()
	if h == nil || fn == nil {
		return
	}

	mod, err := h.LastModified(ctx)
	if err != nil || !mod.After(lastKnown) {
		return
	}

	doc, err := s.Load(ctx)
	if err != nil {
		s.logger.Warnw("Reload of changed file failed", "file", h.Name(), "error", err)
		return
	}

	s.metrics.ReloadsTotal.Inc()
	s.logger.Infow("Reloaded board file after external change", "file", h.Name())
	fn(doc)
}

// mapFileError classifies filesystem failures and drops the handle when
// the file is gone, so the next save does not keep hitting a dead path.
func (s *FileService) mapFileError(name string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.mu.Lock()
		s.handle = nil
		s.lastKnownModified = time.Time{}
		s.mu.Unlock()
		if s.state != nil {
			if derr := s.state.Delete(context.Background(), ports.StateKeyLastSource); derr != nil {
				s.logger.Warnw("Failed to clear stored file reference", "error", derr)
			}
		}
		return &entities.SourceNotFoundError{Name: name}
	case errors.Is(err, fs.ErrPermission):
		return &entities.PermissionError{Name: name, Err: err}
	default:
		return err
	}
}

// ExportFilename builds the suggested download name for a board export:
// the app name with filesystem-unsafe characters removed and runs of
// whitespace collapsed to single underscores, followed by a
// second-precision timestamp.
func ExportFilename(appName string, now time.Time) string {
	var b strings.Builder
	space := false
	for _, r := range appName {
		switch {
		case unicode.IsSpace(r):
			space = true
		case strings.ContainsRune(`\/:*?"<>|`, r):
			// dropped
		default:
			if space {
				b.WriteByte('_')
				space = false
			}
			b.WriteRune(r)
		}
	}
	if space {
		b.WriteByte('_')
	}
	name := b.String()
	if name == "" {
		name = "backup"
	}
	return name + "_" + now.Format("2006-01-02_15-04-05") + ".json"
}
