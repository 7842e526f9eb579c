package internal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"slices"
)

// Folder is a path-scoped view over the handler of a StorageContainer.
// It resolves the container's handler on every call, so it can be created
// before that handler is bound. Folders are values; Subfolder and Join
// return new folders.
type Folder struct {
	store *StorageContainer
	path  []string
}

// Subfolder returns a folder one level below f.
func (f *Folder) Subfolder(name string) *Folder {
	return f.Join(name)
}

// Join returns a folder below f at the given segments.
func (f *Folder) Join(segments ...string) *Folder {
	path := make([]string, 0, len(f.path)+len(segments))
	path = append(path, f.path...)
	path = append(path, segments...)
	return &Folder{store: f.store, path: path}
}

// Container returns the container the folder belongs to.
func (f *Folder) Container() *StorageContainer { return f.store }

// Equal reports whether both folders address the same container and path.
func (f *Folder) Equal(other *Folder) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f.store == other.store && slices.Equal(f.path, other.path)
}

func (f *Folder) String() string {
	return fmt.Sprintf("<Folder store%s path:%q>", f.store.Name(), f.path)
}

// Path implements StorageHandler. It is the folder path relative to the
// container's handler.
func (f *Folder) Path() []string { return slices.Clone(f.path) }

func (f *Folder) resolve() (target, error) {
	h, err := f.store.Handler()
	if err != nil {
		return target{}, err
	}
	t, err := h.resolve()
	if err != nil {
		return target{}, err
	}
	t.path = append(t.path, f.path...)
	return t, nil
}

// Mode implements StorageHandler. An unresolved folder supports no mode.
func (f *Folder) Mode() Mode {
	t, err := f.resolve()
	if err != nil {
		return 0
	}
	return t.h.Mode()
}

// BaseURL implements StorageHandler.
func (f *Folder) BaseURL() string {
	t, err := f.resolve()
	if err != nil {
		return ""
	}
	return t.h.BaseURL()
}

// Filters implements StorageHandler.
func (f *Folder) Filters() []Filter {
	t, err := f.resolve()
	if err != nil {
		return nil
	}
	return t.h.Filters()
}

// SanitizeFilename implements StorageHandler.
func (f *Folder) SanitizeFilename(filename string) string {
	return SanitizeFilename(filename)
}

// Validate implements StorageHandler. A folder carries no configuration of
// its own; it only checks that it resolves. The handler it resolves to is
// validated by the store it is bound to.
func (f *Folder) Validate(context.Context) error {
	_, err := f.resolve()
	return err
}

// ValidateAsync implements StorageHandler.
func (f *Folder) ValidateAsync(context.Context) *Future[struct{}] {
	_, err := f.resolve()
	return Resolved(struct{}{}, err)
}

// Exists implements StorageHandler.
func (f *Folder) Exists(ctx context.Context, filename string) (bool, error) {
	t, err := f.resolve()
	if err != nil {
		return false, err
	}
	return t.exists(ctx, filename)
}

// ExistsAsync implements StorageHandler.
func (f *Folder) ExistsAsync(ctx context.Context, filename string) *Future[bool] {
	t, err := f.resolve()
	if err != nil {
		return Failed[bool](err)
	}
	return t.existsAsync(ctx, filename)
}

// Delete implements StorageHandler.
func (f *Folder) Delete(ctx context.Context, filename string) error {
	t, err := f.resolve()
	if err != nil {
		return err
	}
	return t.delete(ctx, filename)
}

// DeleteAsync implements StorageHandler.
func (f *Folder) DeleteAsync(ctx context.Context, filename string) *Future[struct{}] {
	t, err := f.resolve()
	if err != nil {
		return Failed[struct{}](err)
	}
	return t.deleteAsync(ctx, filename)
}

// Stat implements StorageHandler.
func (f *Folder) Stat(ctx context.Context, filename string) (FileInfo, error) {
	t, err := f.resolve()
	if err != nil {
		return FileInfo{}, err
	}
	return t.stat(ctx, filename)
}

// StatAsync implements StorageHandler.
func (f *Folder) StatAsync(ctx context.Context, filename string) *Future[FileInfo] {
	t, err := f.resolve()
	if err != nil {
		return Failed[FileInfo](err)
	}
	return t.statAsync(ctx, filename)
}

// SaveFile implements StorageHandler.
func (f *Folder) SaveFile(ctx context.Context, filename string, data io.Reader) (string, error) {
	t, err := f.resolve()
	if err != nil {
		return "", err
	}
	return t.save(ctx, filename, data)
}

// SaveFileAsync implements StorageHandler.
func (f *Folder) SaveFileAsync(ctx context.Context, filename string, data io.Reader) *Future[string] {
	t, err := f.resolve()
	if err != nil {
		return Failed[string](err)
	}
	return t.saveAsync(ctx, filename, data)
}

// SaveData implements StorageHandler.
func (f *Folder) SaveData(ctx context.Context, filename string, data []byte) (string, error) {
	t, err := f.resolve()
	if err != nil {
		return "", err
	}
	return t.save(ctx, filename, bytes.NewReader(data))
}

// SaveDataAsync implements StorageHandler.
func (f *Folder) SaveDataAsync(ctx context.Context, filename string, data []byte) *Future[string] {
	t, err := f.resolve()
	if err != nil {
		return Failed[string](err)
	}
	return t.saveAsync(ctx, filename, bytes.NewReader(data))
}

// SaveField implements StorageHandler.
func (f *Folder) SaveField(ctx context.Context, field *multipart.FileHeader) (string, error) {
	t, err := f.resolve()
	if err != nil {
		return "", err
	}
	return t.saveField(ctx, field)
}

// SaveFieldAsync implements StorageHandler.
func (f *Folder) SaveFieldAsync(ctx context.Context, field *multipart.FileHeader) *Future[string] {
	t, err := f.resolve()
	if err != nil {
		return Failed[string](err)
	}
	return t.saveFieldAsync(ctx, field)
}

// URL implements StorageHandler.
func (f *Folder) URL(filename string) (string, error) {
	t, err := f.resolve()
	if err != nil {
		return "", err
	}
	return t.url(filename)
}
