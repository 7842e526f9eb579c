package filters

import (
	"context"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/filestorage"
)

// NameGenerator returns the new base name for a file. It receives the
// original name without its extension.
type NameGenerator func(stem string) string

// RandomizeOption configures RandomizeFilename.
type RandomizeOption func(*Randomize)

// WithGenerator replaces the default random UUID generator.
func WithGenerator(gen NameGenerator) RandomizeOption {
	return func(r *Randomize) {
		r.gen = gen
	}
}

// WithTimeOrdered names files with UUIDv7 values, which sort by creation time.
func WithTimeOrdered() RandomizeOption {
	return WithGenerator(func(string) string {
		return uuid.Must(uuid.NewV7()).String()
	})
}

// Randomize replaces every filename with a generated one and keeps the
// extension, lowercased.
type Randomize struct {
	gen NameGenerator
}

// RandomizeFilename returns a filter that gives each file a random UUIDv4
// name: "Holiday.JPG" becomes "0b6c...e1.jpg".
func RandomizeFilename(opts ...RandomizeOption) *Randomize {
	r := &Randomize{
		gen: func(string) string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mode implements filestorage.Filter.
func (r *Randomize) Mode() filestorage.Mode { return filestorage.ModeBoth }

// Validate implements filestorage.Filter.
func (r *Randomize) Validate(context.Context) error {
	if r.gen == nil {
		return filestorage.NewConfigError(filestorage.ErrInvalidValue, "RandomizeFilename has no name generator")
	}
	return nil
}

// Call implements filestorage.Filter.
func (r *Randomize) Call(_ context.Context, item filestorage.FileItem) (filestorage.FileItem, error) {
	ext := path.Ext(item.Filename)
	stem := strings.TrimSuffix(item.Filename, ext)
	return item.WithFilename(r.gen(stem) + strings.ToLower(ext)), nil
}

func (r *Randomize) String() string { return "RandomizeFilename" }
