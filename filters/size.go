package filters

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/filestorage"
)

// Size rejects files outside a byte range.
type Size struct {
	min int64
	max int64
}

// MaxSize returns a filter that rejects files larger than n bytes.
func MaxSize(n int64) *Size {
	return &Size{max: n}
}

// NotEmpty returns a filter that rejects empty files.
func NotEmpty() *Size {
	return &Size{min: 1}
}

// Mode implements filestorage.Filter.
func (s *Size) Mode() filestorage.Mode { return filestorage.ModeBoth }

// Validate implements filestorage.Filter.
func (s *Size) Validate(context.Context) error {
	if s.max < 0 || (s.max == 0 && s.min == 0) {
		return filestorage.NewConfigError(filestorage.ErrInvalidValue, "MaxSize must be positive, got %d", s.max)
	}
	return nil
}

// Call implements filestorage.Filter.
func (s *Size) Call(_ context.Context, item filestorage.FileItem) (filestorage.FileItem, error) {
	var size int64
	err := item.Use(func(r *filestorage.Reader) error {
		var err error
		size, err = r.Size()
		return err
	})
	if err != nil {
		return item, err
	}

	switch {
	case size < s.min:
		return item, filestorage.NewFileRejectedError(
			item.Filename,
			filestorage.ErrCodeEmptyFile,
			"file is empty",
			nil,
		)
	case s.max > 0 && size > s.max:
		return item, filestorage.NewFileRejectedError(
			item.Filename,
			filestorage.ErrCodeFileTooLarge,
			fmt.Sprintf("file size %d exceeds limit of %d bytes", size, s.max),
			map[string]any{
				"limit": s.max,
				"got":   size,
			},
		)
	}
	return item, nil
}

func (s *Size) String() string {
	if s.max > 0 {
		return fmt.Sprintf("MaxSize(%d)", s.max)
	}
	return "NotEmpty"
}
