package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/filestorage"
)

// DefaultMaxSize is the largest payload accepted when Config.MaxSize is zero.
const DefaultMaxSize = 32 << 20

const maxRenameAttempts = 10_000

const (
	queryTableExists = `SELECT to_regclass('filestorage_files') IS NOT NULL`
	queryExists      = `SELECT EXISTS (SELECT 1 FROM filestorage_files WHERE path = $1)`
	queryDelete      = `DELETE FROM filestorage_files WHERE path = $1`
	queryInsert      = `INSERT INTO filestorage_files (path, content_type, size, data, created_at, updated_at, accessed_at)
VALUES ($1, $2, $3, $4, $5, $5, $5)
ON CONFLICT (path) DO NOTHING`
	queryStat = `SELECT size, created_at, updated_at, accessed_at FROM filestorage_files WHERE path = $1`
	queryLoad = `UPDATE filestorage_files SET accessed_at = $2 WHERE path = $1 RETURNING data, content_type`
)

// DB is the subset of *pgxpool.Pool the backend uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Config holds PostgreSQL backend configuration.
type Config struct {
	// MaxSize is the largest payload accepted, in bytes (default: 32 MiB).
	MaxSize int64
}

// Backend stores files as rows of the filestorage_files table. A path that
// is taken makes Save pick "name-N.ext" instead of overwriting.
type Backend struct {
	filestorage.AsyncAdapter

	db  DB
	now func() time.Time
	cfg Config
}

// New creates a Backend over db. Run Migrate first to create the table.
func New(db DB, cfg Config) (*Backend, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	if cfg.MaxSize == 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	b := &Backend{db: db, cfg: cfg, now: time.Now}
	b.AsyncAdapter = filestorage.AsyncAdapter{B: b}
	return b, nil
}

// Mode implements filestorage.Backend.
func (b *Backend) Mode() filestorage.Mode { return filestorage.ModeBoth }

func (b *Backend) String() string { return "postgres.Backend" }

// Validate implements filestorage.BlockingBackend. It checks connectivity
// and that the files table exists.
func (b *Backend) Validate(ctx context.Context) error {
	if err := b.db.Ping(ctx); err != nil {
		return filestorage.NewConfigError(err, "PostgreSQL is not reachable: %v", err)
	}
	var exists bool
	if err := b.db.QueryRow(ctx, queryTableExists).Scan(&exists); err != nil {
		return filestorage.NewConfigError(err, "Checking the files table: %v", err)
	}
	if !exists {
		return filestorage.NewConfigError(ErrApplyMigrations, "Table filestorage_files does not exist, run postgres.Migrate")
	}
	return nil
}

// Exists implements filestorage.BlockingBackend.
func (b *Backend) Exists(ctx context.Context, item filestorage.FileItem) (bool, error) {
	var exists bool
	if err := b.db.QueryRow(ctx, queryExists, item.URLPath()).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Delete implements filestorage.BlockingBackend.
func (b *Backend) Delete(ctx context.Context, item filestorage.FileItem) error {
	_, err := b.db.Exec(ctx, queryDelete, item.URLPath())
	return err
}

// Save implements filestorage.BlockingBackend.
func (b *Backend) Save(ctx context.Context, item filestorage.FileItem) (string, error) {
	if !item.HasData() {
		return "", fmt.Errorf("%w: %q", ErrNoData, item.Filename)
	}

	var data []byte
	err := item.Use(func(r *filestorage.Reader) error {
		var err error
		data, err = io.ReadAll(io.LimitReader(r, b.cfg.MaxSize+1))
		return err
	})
	if err != nil {
		return "", err
	}
	if int64(len(data)) > b.cfg.MaxSize {
		return "", fmt.Errorf("%w: %q is larger than %d bytes", ErrFileTooLarge, item.Filename, b.cfg.MaxSize)
	}

	contentType := item.ContentType()
	if contentType == "" {
		contentType = filestorage.MediaTypeOctetStream
	}

	ext := path.Ext(item.Filename)
	stem := strings.TrimSuffix(item.Filename, ext)
	now := b.now()

	candidate := item
	for counter := 1; counter <= maxRenameAttempts; counter++ {
		tag, err := b.db.Exec(ctx, queryInsert, candidate.URLPath(), contentType, len(data), data, now)
		if err != nil {
			return "", err
		}
		if tag.RowsAffected() == 1 {
			return candidate.Filename, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate = item.WithFilename(fmt.Sprintf("%s-%d%s", stem, counter, ext))
	}
	return "", fmt.Errorf("%w: %s", ErrNoUniqueName, item.Filename)
}

// Stat implements filestorage.StatBackend.
func (b *Backend) Stat(ctx context.Context, item filestorage.FileItem) (filestorage.FileInfo, error) {
	info := filestorage.FileInfo{Name: item.Filename}
	err := b.db.QueryRow(ctx, queryStat, item.URLPath()).
		Scan(&info.Size, &info.CreatedTime, &info.ModTime, &info.AccessedTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return filestorage.FileInfo{}, fmt.Errorf("%w: %s", ErrNotFound, item.URLPath())
	}
	if err != nil {
		return filestorage.FileInfo{}, err
	}
	return info, nil
}

// Load returns the content and media type of a stored file and bumps its
// access time.
func (b *Backend) Load(ctx context.Context, item filestorage.FileItem) (io.ReadSeeker, string, error) {
	var (
		data        []byte
		contentType string
	)
	err := b.db.QueryRow(ctx, queryLoad, item.URLPath(), b.now()).Scan(&data, &contentType)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, item.URLPath())
	}
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), contentType, nil
}

// Healthcheck returns a closure that checks database connectivity.
func (b *Backend) Healthcheck() func(context.Context) error {
	return b.db.Ping
}

var (
	_ filestorage.BlockingBackend    = (*Backend)(nil)
	_ filestorage.NonBlockingBackend = (*Backend)(nil)
	_ filestorage.StatBackend        = (*Backend)(nil)
)
