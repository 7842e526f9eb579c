package redis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/filestorage"
)

// Default values.
const (
	DefaultKeyPrefix = "filestorage:"
	DefaultMaxSize   = 16 << 20

	maxRenameAttempts = 10_000
)

// Hash fields of a stored file.
const (
	fieldData    = "data"
	fieldType    = "type"
	fieldSize    = "size"
	fieldModTime = "mtime"
)

// Config holds Redis backend configuration.
type Config struct {
	// KeyPrefix is prepended to every key (default: "filestorage:").
	KeyPrefix string

	// TTL expires stored files after the given duration. Zero keeps them.
	TTL time.Duration

	// MaxSize is the largest payload accepted, in bytes (default: 16 MiB).
	MaxSize int64
}

func (c *Config) applyDefaults() {
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	if c.MaxSize == 0 {
		c.MaxSize = DefaultMaxSize
	}
}

// Backend stores each file as a Redis hash holding the payload, the media
// type, the size and the modification time. Like the local backend it never
// overwrites: a taken key makes it pick "name-N.ext" instead.
type Backend struct {
	filestorage.AsyncAdapter

	client redis.UniversalClient
	now    func() time.Time
	cfg    Config
}

// New creates a Backend over client.
func New(client redis.UniversalClient, cfg Config) (*Backend, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	cfg.applyDefaults()
	b := &Backend{
		client: client,
		cfg:    cfg,
		now:    time.Now,
	}
	b.AsyncAdapter = filestorage.AsyncAdapter{B: b}
	return b, nil
}

// Mode implements filestorage.Backend.
func (b *Backend) Mode() filestorage.Mode { return filestorage.ModeBoth }

func (b *Backend) String() string { return "redis.Backend" }

// Key returns the Redis key item is stored under.
func (b *Backend) Key(item filestorage.FileItem) string {
	return b.cfg.KeyPrefix + item.URLPath()
}

// Validate implements filestorage.BlockingBackend.
func (b *Backend) Validate(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return filestorage.NewConfigError(err, "Redis server is not reachable: %v", err)
	}
	return nil
}

// Exists implements filestorage.BlockingBackend.
func (b *Backend) Exists(ctx context.Context, item filestorage.FileItem) (bool, error) {
	n, err := b.client.Exists(ctx, b.Key(item)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete implements filestorage.BlockingBackend.
func (b *Backend) Delete(ctx context.Context, item filestorage.FileItem) error {
	return b.client.Del(ctx, b.Key(item)).Err()
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

	item, err = b.claim(ctx, item, data)
	if err != nil {
		return "", err
	}

	contentType := item.ContentType()
	if contentType == "" {
		contentType = filestorage.MediaTypeOctetStream
	}
	key := b.Key(item)
	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldType, contentType,
			fieldSize, len(data),
			fieldModTime, b.now().UnixNano(),
		)
		if b.cfg.TTL > 0 {
			pipe.Expire(ctx, key, b.cfg.TTL)
		}
		return nil
	})
	if err != nil {
		_ = b.client.Del(ctx, key).Err()
		return "", err
	}
	return item.Filename, nil
}

// claim writes data under the first free name and returns the item renamed
// to it. HSETNX makes the claim atomic across concurrent savers.
func (b *Backend) claim(ctx context.Context, item filestorage.FileItem, data []byte) (filestorage.FileItem, error) {
	ext := path.Ext(item.Filename)
	stem := strings.TrimSuffix(item.Filename, ext)

	candidate := item
	for counter := 1; counter <= maxRenameAttempts; counter++ {
		ok, err := b.client.HSetNX(ctx, b.Key(candidate), fieldData, data).Result()
		if err != nil {
			return item, err
		}
		if ok {
			return candidate, nil
		}
		if err := ctx.Err(); err != nil {
			return item, err
		}
		candidate = item.WithFilename(fmt.Sprintf("%s-%d%s", stem, counter, ext))
	}
	return item, fmt.Errorf("%w: %s", ErrNoUniqueName, item.Filename)
}

// Stat implements filestorage.StatBackend. Redis keeps no access or
// creation time; both report the modification time.
func (b *Backend) Stat(ctx context.Context, item filestorage.FileItem) (filestorage.FileInfo, error) {
	vals, err := b.client.HMGet(ctx, b.Key(item), fieldSize, fieldModTime).Result()
	if err != nil {
		return filestorage.FileInfo{}, err
	}
	if len(vals) != 2 || vals[0] == nil {
		return filestorage.FileInfo{}, fmt.Errorf("%w: %s", ErrNotFound, item.URLPath())
	}

	size, err := strconv.ParseInt(fmt.Sprint(vals[0]), 10, 64)
	if err != nil {
		return filestorage.FileInfo{}, fmt.Errorf("redis: malformed size of %s: %w", item.URLPath(), err)
	}
	info := filestorage.FileInfo{Name: item.Filename, Size: size}
	if vals[1] != nil {
		nanos, err := strconv.ParseInt(fmt.Sprint(vals[1]), 10, 64)
		if err != nil {
			return filestorage.FileInfo{}, fmt.Errorf("redis: malformed mtime of %s: %w", item.URLPath(), err)
		}
		info.ModTime = time.Unix(0, nanos)
		info.AccessedTime = info.ModTime
		info.CreatedTime = info.ModTime
	}
	return info, nil
}

// Load returns the content and media type of a stored file.
func (b *Backend) Load(ctx context.Context, item filestorage.FileItem) (io.ReadSeeker, string, error) {
	vals, err := b.client.HMGet(ctx, b.Key(item), fieldData, fieldType).Result()
	if err != nil {
		return nil, "", err
	}
	if len(vals) != 2 || vals[0] == nil {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, item.URLPath())
	}
	contentType, _ := vals[1].(string)
	data, ok := vals[0].(string)
	if !ok {
		return nil, "", errors.New("redis: unexpected payload type")
	}
	return bytes.NewReader([]byte(data)), contentType, nil
}

// Healthcheck returns a closure that checks Redis connectivity, suitable
// for health endpoints.
func (b *Backend) Healthcheck() func(context.Context) error {
	return func(ctx context.Context) error {
		return b.client.Ping(ctx).Err()
	}
}

// Close closes the underlying client.
func (b *Backend) Close() error {
	return b.client.Close()
}

var (
	_ filestorage.BlockingBackend    = (*Backend)(nil)
	_ filestorage.NonBlockingBackend = (*Backend)(nil)
	_ filestorage.StatBackend        = (*Backend)(nil)
)
