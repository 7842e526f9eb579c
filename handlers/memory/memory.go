// Package memory provides an in-memory backend for tests and local development.
//
// The backend keeps every saved file in a map keyed by its slash-joined path
// and records the last save and delete so tests can assert on them:
//
//	backend := memory.New()
//	store := filestorage.New()
//	_ = store.SetHandler(filestorage.NewHandler(backend))
//	_ = store.FinalizeConfig(ctx)
//
//	name, _ := store.SaveData(ctx, "a.txt", []byte("hello"))
//	data, ok := backend.Contents(name)
package memory

import (
	"context"
	"io"
	"maps"
	"os"
	"sync"
	"time"

	"github.com/dmitrymomot/filestorage"
)

// File is a stored file with filesystem-like timestamps.
type File struct {
	AccessedTime time.Time
	CreatedTime  time.Time
	ModTime      time.Time
	Contents     []byte
}

// Backend stores files in memory. It is safe for concurrent use.
type Backend struct {
	filestorage.AsyncAdapter

	now        func() time.Time
	files      map[string]File
	lastSave   *filestorage.FileItem
	lastDelete *filestorage.FileItem
	mode       filestorage.Mode
	mu         sync.RWMutex
	validated  bool
}

// Option configures a Backend.
type Option func(*Backend)

// WithMode restricts the declared call mode. Default is ModeBoth.
// ModeBlocking makes the backend behave as a blocking-only backend,
// ModeNonBlocking as a non-blocking-only one.
func WithMode(m filestorage.Mode) Option {
	return func(b *Backend) {
		b.mode = m
	}
}

// WithClock sets the time source for file timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		if now != nil {
			b.now = now
		}
	}
}

// New returns an empty backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		files: make(map[string]File),
		mode:  filestorage.ModeBoth,
		now:   time.Now,
	}
	b.AsyncAdapter = filestorage.AsyncAdapter{B: b}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Mode implements filestorage.Backend.
func (b *Backend) Mode() filestorage.Mode { return b.mode }

func (b *Backend) String() string { return "memory.Backend" }

// Validate implements filestorage.BlockingBackend.
func (b *Backend) Validate(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.validated = true
	return nil
}

// Exists implements filestorage.BlockingBackend.
func (b *Backend) Exists(_ context.Context, item filestorage.FileItem) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.files[item.URLPath()]
	return ok, nil
}

// Delete implements filestorage.BlockingBackend.
func (b *Backend) Delete(_ context.Context, item filestorage.FileItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.files, item.URLPath())
	item = item.WithData(nil)
	b.lastDelete = &item
	return nil
}

// Save implements filestorage.BlockingBackend.
func (b *Backend) Save(_ context.Context, item filestorage.FileItem) (string, error) {
	var contents []byte
	err := item.Use(func(r *filestorage.Reader) error {
		var err error
		contents, err = io.ReadAll(r)
		return err
	})
	if err != nil {
		return "", err
	}

	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[item.URLPath()] = File{
		Contents:     contents,
		AccessedTime: now,
		CreatedTime:  now,
		ModTime:      now,
	}
	b.lastSave = &item
	return item.Filename, nil
}

// Stat implements filestorage.StatBackend.
func (b *Backend) Stat(_ context.Context, item filestorage.FileItem) (filestorage.FileInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	f, ok := b.files[item.URLPath()]
	if !ok {
		return filestorage.FileInfo{}, &os.PathError{Op: "stat", Path: item.URLPath(), Err: os.ErrNotExist}
	}
	return filestorage.FileInfo{
		Name:         item.Filename,
		Size:         int64(len(f.Contents)),
		ModTime:      f.ModTime,
		CreatedTime:  f.CreatedTime,
		AccessedTime: f.AccessedTime,
	}, nil
}

// Contents returns the stored data at the slash-joined path.
func (b *Backend) Contents(path string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	f, ok := b.files[path]
	return f.Contents, ok
}

// Files returns a snapshot of all stored files keyed by path.
func (b *Backend) Files() map[string]File {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Clone(b.files)
}

// LastSave returns the item of the most recent save.
func (b *Backend) LastSave() (filestorage.FileItem, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.lastSave == nil {
		return filestorage.FileItem{}, false
	}
	return *b.lastSave, true
}

// LastDelete returns the item of the most recent delete.
func (b *Backend) LastDelete() (filestorage.FileItem, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.lastDelete == nil {
		return filestorage.FileItem{}, false
	}
	return *b.lastDelete, true
}

// Validated reports whether Validate was called.
func (b *Backend) Validated() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.validated
}

var (
	_ filestorage.BlockingBackend    = (*Backend)(nil)
	_ filestorage.NonBlockingBackend = (*Backend)(nil)
	_ filestorage.StatBackend        = (*Backend)(nil)
)
