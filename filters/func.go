package filters

import (
	"context"
	"strings"

	"github.com/dmitrymomot/filestorage"
)

// Func wraps fn as a filter usable in both call modes.
func Func(name string, fn func(ctx context.Context, item filestorage.FileItem) (filestorage.FileItem, error)) *filestorage.FilterFunc {
	return filestorage.NewFilterFunc(name, filestorage.ModeBoth, fn)
}

// BlockingFunc wraps fn as a filter that must not run in the non-blocking
// pipeline, for example one doing blocking I/O without its own goroutine.
func BlockingFunc(name string, fn func(ctx context.Context, item filestorage.FileItem) (filestorage.FileItem, error)) *filestorage.FilterFunc {
	return filestorage.NewFilterFunc(name, filestorage.ModeBlocking, fn)
}

// Lowercase lowercases the whole filename.
func Lowercase() *filestorage.FilterFunc {
	return Func("Lowercase", func(_ context.Context, item filestorage.FileItem) (filestorage.FileItem, error) {
		return item.WithFilename(strings.ToLower(item.Filename)), nil
	})
}
