package filters

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/dmitrymomot/filestorage"
)

// Extensions only lets through files whose extension is in the allowed set.
type Extensions struct {
	allowed []string
	invalid bool
}

// ValidateExtension returns a filter that rejects files whose extension is
// not listed. Matching ignores case and leading dots. An empty list allows
// every file.
func ValidateExtension(extensions ...string) *Extensions {
	e := &Extensions{allowed: make([]string, 0, len(extensions))}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.Trim(strings.TrimSpace(ext), "."))
		if ext == "" {
			e.invalid = true
			continue
		}
		if !slices.Contains(e.allowed, ext) {
			e.allowed = append(e.allowed, ext)
		}
	}
	return e
}

// Mode implements filestorage.Filter.
func (e *Extensions) Mode() filestorage.Mode { return filestorage.ModeBoth }

// Validate implements filestorage.Filter.
func (e *Extensions) Validate(context.Context) error {
	if e.invalid {
		return filestorage.NewConfigError(filestorage.ErrInvalidValue, "ValidateExtension got an empty extension")
	}
	return nil
}

// Allowed reports whether filename passes the filter.
func (e *Extensions) Allowed(filename string) bool {
	if len(e.allowed) == 0 {
		return true
	}
	ext := strings.ToLower(strings.Trim(path.Ext(filename), "."))
	return slices.Contains(e.allowed, ext)
}

// Call implements filestorage.Filter.
func (e *Extensions) Call(_ context.Context, item filestorage.FileItem) (filestorage.FileItem, error) {
	if e.Allowed(item.Filename) {
		return item, nil
	}
	return item, filestorage.NewFileRejectedError(
		item.Filename,
		filestorage.ErrCodeInvalidExtension,
		fmt.Sprintf("file extension of %q is not allowed", item.Filename),
		map[string]any{
			"extension": strings.TrimPrefix(path.Ext(item.Filename), "."),
			"allowed":   slices.Clone(e.allowed),
		},
	)
}

func (e *Extensions) String() string {
	return fmt.Sprintf("ValidateExtension(%s)", strings.Join(e.allowed, ", "))
}
