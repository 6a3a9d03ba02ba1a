package entities

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError rejects an import document that is missing required
// top-level arrays. Missing lists the absent field names.
type ValidationError struct {
	Missing []string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("document is missing required fields: %s", strings.Join(e.Missing, ", "))
}

// CollisionError signals that the backing file was modified externally
// after the board last read or wrote it.
type CollisionError struct {
	Name          string
	LastKnown     time.Time
	ActualModTime time.Time
}

func (e CollisionError) Error() string {
	return fmt.Sprintf("file %q changed externally (known %s, on disk %s)",
		e.Name, e.LastKnown.Format(time.RFC3339), e.ActualModTime.Format(time.RFC3339))
}

// PermissionError signals that the host environment denied write access
// to the backing file.
type PermissionError struct {
	Name string
	Err  error
}

func (e PermissionError) Error() string {
	return fmt.Sprintf("write access to %q denied: %v", e.Name, e.Err)
}

func (e PermissionError) Unwrap() error { return e.Err }

// SourceNotFoundError signals that a previously linked file is missing or
// moved. Callers clear the stored handle when they see it.
type SourceNotFoundError struct {
	Name string
}

func (e SourceNotFoundError) Error() string {
	return fmt.Sprintf("linked file %q is missing or moved", e.Name)
}
