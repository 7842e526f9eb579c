package internal

import (
	"context"
	"time"
)

// Backend is the adapter to one storage medium. Mode declares which of the
// two method sets below the backend implements; the declaration is checked
// against the implementation when the owning Handler is validated and on
// every call.
//
// Every FileItem passed to a backend has its filename and path resolved to
// their final, filter-applied values.
type Backend interface {
	Mode() Mode
}

// BlockingBackend is the blocking method set.
type BlockingBackend interface {
	Backend

	// Validate checks required configuration (credentials, directories).
	Validate(ctx context.Context) error

	// Exists reports whether the file exists.
	Exists(ctx context.Context, item FileItem) (bool, error)

	// Delete removes the file. Deleting a missing file is not an error.
	Delete(ctx context.Context, item FileItem) error

	// Save stores the file and returns the filename actually used.
	Save(ctx context.Context, item FileItem) (string, error)
}

// NonBlockingBackend is the non-blocking method set.
type NonBlockingBackend interface {
	Backend
	ValidateAsync(ctx context.Context) *Future[struct{}]
	ExistsAsync(ctx context.Context, item FileItem) *Future[bool]
	DeleteAsync(ctx context.Context, item FileItem) *Future[struct{}]
	SaveAsync(ctx context.Context, item FileItem) *Future[string]
}

// AsyncAdapter gives a BlockingBackend a non-blocking method set by running
// each call on its own goroutine. Backends that are safe for concurrent use
// embed it and declare ModeBoth.
type AsyncAdapter struct {
	B BlockingBackend
}

// ValidateAsync implements NonBlockingBackend.
func (a AsyncAdapter) ValidateAsync(ctx context.Context) *Future[struct{}] {
	return Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.B.Validate(ctx)
	})
}

// ExistsAsync implements NonBlockingBackend.
func (a AsyncAdapter) ExistsAsync(ctx context.Context, item FileItem) *Future[bool] {
	return Go(ctx, func(ctx context.Context) (bool, error) {
		return a.B.Exists(ctx, item)
	})
}

// DeleteAsync implements NonBlockingBackend.
func (a AsyncAdapter) DeleteAsync(ctx context.Context, item FileItem) *Future[struct{}] {
	return Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.B.Delete(ctx, item)
	})
}

// SaveAsync implements NonBlockingBackend.
func (a AsyncAdapter) SaveAsync(ctx context.Context, item FileItem) *Future[string] {
	return Go(ctx, func(ctx context.Context) (string, error) {
		return a.B.Save(ctx, item)
	})
}

// FileInfo describes a stored file. Times a backend cannot report are zero.
type FileInfo struct {
	ModTime      time.Time
	CreatedTime  time.Time
	AccessedTime time.Time
	Name         string
	Size         int64
}

// StatBackend is implemented by backends that can report file metadata.
// It is optional; handlers return ErrNotSupported without it.
type StatBackend interface {
	Stat(ctx context.Context, item FileItem) (FileInfo, error)
}
