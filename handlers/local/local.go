// Package local provides a backend that stores files on the local filesystem.
//
// Files are written below Config.BasePath at the slash-joined path of the
// item. A file that already exists is never overwritten: the backend picks
// the first free name of the form "name-1.ext", "name-2.ext" and returns it.
//
//	backend, err := local.New(local.Config{BasePath: "/srv/uploads", AutoMakeDir: true})
//	if err != nil {
//	    return err
//	}
//	h := filestorage.NewHandler(backend, filestorage.WithBaseURL("https://example.com/uploads/"))
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dmitrymomot/filestorage"
)

// Sentinel errors.
var (
	ErrInvalidConfig = errors.New("local: invalid configuration")
	ErrUnsafePath    = errors.New("local: path escapes base directory")
	ErrNoData        = errors.New("local: no data to save")
	ErrInvalidName   = errors.New("local: invalid filename")
	ErrNoUniqueName  = errors.New("local: cannot find a unique filename")
)

// Default values.
const (
	DefaultDirPerm  fs.FileMode = 0o755
	DefaultFilePerm fs.FileMode = 0o644

	maxRenameAttempts = 1_000_000
)

// Config holds local storage configuration.
type Config struct {
	// BasePath is the directory files are stored under (required).
	BasePath string

	// AutoMakeDir creates BasePath on validation and folders on save.
	// Without it, BasePath must already exist.
	AutoMakeDir bool

	// DirPerm is the mode of created directories (default: 0755).
	DirPerm fs.FileMode

	// FilePerm is the mode of created files (default: 0644).
	FilePerm fs.FileMode
}

func (c *Config) applyDefaults() {
	if c.DirPerm == 0 {
		c.DirPerm = DefaultDirPerm
	}
	if c.FilePerm == 0 {
		c.FilePerm = DefaultFilePerm
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.BasePath) == "" {
		return fmt.Errorf("%w: base path is required", ErrInvalidConfig)
	}
	return nil
}

// Backend stores files on disk. It supports both call modes; non-blocking
// calls run the filesystem work on their own goroutine.
type Backend struct {
	filestorage.AsyncAdapter

	createdDirs map[string]struct{}
	cfg         Config
	mu          sync.Mutex
}

// New creates a Backend with the given configuration.
func New(cfg Config) (*Backend, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	b := &Backend{
		cfg:         cfg,
		createdDirs: make(map[string]struct{}),
	}
	b.AsyncAdapter = filestorage.AsyncAdapter{B: b}
	return b, nil
}

// Mode implements filestorage.Backend.
func (b *Backend) Mode() filestorage.Mode { return filestorage.ModeBoth }

func (b *Backend) String() string { return "local.Backend" }

// BasePath returns the configured base directory.
func (b *Backend) BasePath() string { return b.cfg.BasePath }

// LocalPath returns the absolute location of item on disk.
func (b *Backend) LocalPath(item filestorage.FileItem) (string, error) {
	rel := item.FSPath()
	if rel != "" && !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, item.URLPath())
	}
	return filepath.Join(b.cfg.BasePath, rel), nil
}

// Validate implements filestorage.BlockingBackend.
func (b *Backend) Validate(context.Context) error {
	if b.cfg.AutoMakeDir {
		if err := b.makeDir(b.cfg.BasePath); err != nil {
			return filestorage.NewConfigError(err, "Cannot create directory %q: %v", b.cfg.BasePath, err)
		}
		return nil
	}
	fi, err := os.Stat(b.cfg.BasePath)
	if err != nil || !fi.IsDir() {
		return filestorage.NewConfigError(ErrInvalidConfig, "Configured directory %q does not exist", b.cfg.BasePath)
	}
	return nil
}

// Exists implements filestorage.BlockingBackend.
func (b *Backend) Exists(_ context.Context, item filestorage.FileItem) (bool, error) {
	p, err := b.LocalPath(item)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Delete implements filestorage.BlockingBackend.
func (b *Backend) Delete(_ context.Context, item filestorage.FileItem) error {
	p, err := b.LocalPath(item)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Save implements filestorage.BlockingBackend.
func (b *Backend) Save(ctx context.Context, item filestorage.FileItem) (string, error) {
	switch item.Filename {
	case "", ".", "..":
		return "", fmt.Errorf("%w: %q", ErrInvalidName, item.Filename)
	}
	if !item.HasData() {
		return "", fmt.Errorf("%w: %q", ErrNoData, item.Filename)
	}
	p, err := b.LocalPath(item)
	if err != nil {
		return "", err
	}
	if b.cfg.AutoMakeDir {
		if err := b.makeDir(filepath.Dir(p)); err != nil {
			return "", err
		}
	}

	f, name, err := b.createUnique(ctx, p)
	if err != nil {
		return "", err
	}

	err = item.Use(func(r *filestorage.Reader) error {
		_, err := io.Copy(f, r)
		return err
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return name, nil
}

// createUnique creates the file at p, or at the first free "name-N.ext"
// next to it. It returns the open file and its base name.
func (b *Backend) createUnique(ctx context.Context, p string) (*os.File, string, error) {
	dir, base := filepath.Split(p)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	name := base
	for counter := 1; counter <= maxRenameAttempts; counter++ {
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, b.cfg.FilePerm)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", err
		}
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		name = fmt.Sprintf("%s-%d%s", stem, counter, ext)
	}
	return nil, "", fmt.Errorf("%w: %s", ErrNoUniqueName, base)
}

// makeDir creates dir once per backend.
func (b *Backend) makeDir(dir string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.createdDirs[dir]; ok {
		return nil
	}
	if err := os.MkdirAll(dir, b.cfg.DirPerm); err != nil {
		return err
	}
	b.createdDirs[dir] = struct{}{}
	return nil
}

// Stat implements filestorage.StatBackend.
func (b *Backend) Stat(_ context.Context, item filestorage.FileItem) (filestorage.FileInfo, error) {
	p, err := b.LocalPath(item)
	if err != nil {
		return filestorage.FileInfo{}, err
	}
	fi, err := os.Stat(p)
	if err != nil {
		return filestorage.FileInfo{}, err
	}
	info := filestorage.FileInfo{
		Name:    fi.Name(),
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
	}
	fillTimes(&info, fi)
	return info, nil
}

var (
	_ filestorage.BlockingBackend    = (*Backend)(nil)
	_ filestorage.NonBlockingBackend = (*Backend)(nil)
	_ filestorage.StatBackend        = (*Backend)(nil)
)
