package ports

import (
	"context"
	"time"
)

// SourceHandle is an opaque token for the file a board is linked to. It
// carries only the operations the core needs; concrete handle types are
// an adapter concern.
type SourceHandle interface {
	// Name identifies the source for messages and logs.
	Name() string
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	LastModified(ctx context.Context) (time.Time, error)
}

// SaveOptions controls collision checking on save. When CheckCollision
// is set, a source modified after the last known modification time
// fails with entities.CollisionError instead of being overwritten. A
// zero LastKnownModified means the caller's tracked time is used; a
// non-zero one overrides it.
type SaveOptions struct {
	CheckCollision    bool
	LastKnownModified time.Time
}

// Local state keys. Each key is read and written independently; a
// corrupted value for one key falls back to that key's default without
// affecting the others.
const (
	StateKeyTasks      = "board.tasks"
	StateKeyCategories = "board.categories"
	StateKeyEvents     = "board.events"
	StateKeyAppName    = "app.name"
	StateKeyAppIcon    = "app.icon"
	StateKeyLastSource = "file.last_path"
)

// StateStore is the durable key-value capability backing local board
// state and handle persistence across sessions, whatever medium the
// platform offers.
type StateStore interface {
	// Get unmarshals the value under key into dest. Missing keys return
	// ErrStateKeyNotFound.
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Close() error
}
