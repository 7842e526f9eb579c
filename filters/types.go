package filters

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrymomot/filestorage"
)

// Types only lets through files whose sniffed media type matches one of its
// patterns. Accepted items carry the detected type in MediaType.
type Types struct {
	patterns []string
}

// AllowedTypes returns a filter that detects the media type from the first
// bytes of the content. Patterns may use wildcards like "image/*".
func AllowedTypes(patterns ...string) *Types {
	return &Types{patterns: slices.Clone(patterns)}
}

// ImageOnly accepts image files only.
// Equivalent to AllowedTypes("image/*").
func ImageOnly() *Types {
	return AllowedTypes("image/*")
}

// DocumentsOnly accepts PDF, Word, Excel, PowerPoint, text, CSV and RTF files.
func DocumentsOnly() *Types {
	return AllowedTypes(
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"text/plain",
		"text/csv",
		"application/rtf",
	)
}

// Mode implements filestorage.Filter.
func (f *Types) Mode() filestorage.Mode { return filestorage.ModeBoth }

// Validate implements filestorage.Filter.
func (f *Types) Validate(context.Context) error {
	if len(f.patterns) == 0 {
		return filestorage.NewConfigError(filestorage.ErrInvalidValue, "AllowedTypes needs at least one media type")
	}
	for _, p := range f.patterns {
		if !strings.Contains(p, "/") {
			return filestorage.NewConfigError(filestorage.ErrInvalidValue, "AllowedTypes got %q, which is not a media type", p)
		}
	}
	return nil
}

// Call implements filestorage.Filter.
func (f *Types) Call(_ context.Context, item filestorage.FileItem) (filestorage.FileItem, error) {
	var mediaType string
	err := item.Use(func(r *filestorage.Reader) error {
		var err error
		mediaType, err = filestorage.DetectMediaType(r)
		return err
	})
	if err != nil {
		return item, err
	}

	// Sniffing cannot tell text formats apart.
	if mediaType == "text/plain" {
		if guess := filestorage.MediaTypeFromFilename(item.Filename); strings.HasPrefix(guess, "text/") {
			mediaType = guess
		}
	}

	if !filestorage.MatchMediaType(mediaType, f.patterns) {
		return item, filestorage.NewFileRejectedError(
			item.Filename,
			filestorage.ErrCodeInvalidType,
			fmt.Sprintf("file type %q is not allowed", mediaType),
			map[string]any{
				"type":    mediaType,
				"allowed": slices.Clone(f.patterns),
			},
		)
	}
	return item.WithMediaType(mediaType), nil
}

func (f *Types) String() string {
	return fmt.Sprintf("AllowedTypes(%s)", strings.Join(f.patterns, ", "))
}
