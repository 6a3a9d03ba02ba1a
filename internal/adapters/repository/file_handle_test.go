package repository

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestFileHandle_CreateWriteRead(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "board.json")

	h, err := CreateFileHandle(path)
	if err != nil {
		t.Fatalf("CreateFileHandle: %v", err)
	}

	payload := []byte(`{"tasks":[]}`)
	if err := h.Write(ctx, payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := h.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("read back %q", got)
	}

	if _, err := h.LastModified(ctx); err != nil {
		t.Fatalf("LastModified: %v", err)
	}

	// Write replaces atomically; no temp files are left behind.
	if err := h.Write(ctx, []byte(`{}`)); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("dir has %d entries, want only the board file", len(entries))
	}
}

func TestFileHandle_OpenMissing(t *testing.T) {
	_, err := OpenFileHandle(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestFileHandle_ReadHonorsContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	h, err := CreateFileHandle(path)
	if err != nil {
		t.Fatalf("CreateFileHandle: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Read(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
