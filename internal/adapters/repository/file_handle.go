package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/planboard/core/internal/ports"
)

// FileHandle implements ports.SourceHandle over a plain file on disk.
// Writes go through a temp file plus rename so a crash mid-write never
// leaves a half-written board behind.
type FileHandle struct {
	path string
}

// OpenFileHandle resolves path and verifies the file exists.
func OpenFileHandle(path string) (*FileHandle, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path %q: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, err
	}
	return &FileHandle{path: abs}, nil
}

// CreateFileHandle resolves path and creates the file if it is missing.
func CreateFileHandle(path string) (*FileHandle, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path %q: %w", path, err)
	}
	f, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return &FileHandle{path: abs}, nil
}

func (h *FileHandle) Name() string { return h.path }

func (h *FileHandle) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(h.path)
}

func (h *FileHandle) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(h.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(h.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, h.path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func (h *FileHandle) LastModified(ctx context.Context) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(h.path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

var _ ports.SourceHandle = (*FileHandle)(nil)
