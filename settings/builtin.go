package settings

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/filestorage"
	"github.com/dmitrymomot/filestorage/filters"
	"github.com/dmitrymomot/filestorage/handlers/local"
	"github.com/dmitrymomot/filestorage/handlers/memory"
	"github.com/dmitrymomot/filestorage/handlers/postgres"
	"github.com/dmitrymomot/filestorage/handlers/redis"
	"github.com/dmitrymomot/filestorage/handlers/s3"
)

// DefaultRegistry returns a registry with every built-in handler and filter.
//
// Handlers: memory, local, s3, redis, postgres, plus the aliases
// DummyHandler (blocking memory), AsyncDummyHandler (non-blocking memory),
// LocalFileHandler, AsyncLocalFileHandler and S3Handler.
//
// Filters: randomize_filename, validate_extension, allowed_types,
// image_only, documents_only, max_size, not_empty, lowercase, plus the
// aliases RandomizeFilename and ValidateExtension.
func DefaultRegistry(opts ...RegistryOption) *Registry {
	r := NewRegistry(opts...)

	r.RegisterHandler("memory", memoryHandler(filestorage.ModeBoth))
	r.RegisterHandler("DummyHandler", memoryHandler(filestorage.ModeBlocking))
	r.RegisterHandler("AsyncDummyHandler", memoryHandler(filestorage.ModeNonBlocking))
	r.RegisterHandler("local", localHandler)
	r.RegisterHandler("LocalFileHandler", localHandler)
	r.RegisterHandler("AsyncLocalFileHandler", localHandler)
	r.RegisterHandler("s3", s3Handler)
	r.RegisterHandler("S3Handler", s3Handler)
	r.RegisterHandler("redis", redisHandler)
	r.RegisterHandler("postgres", postgresHandler)

	r.RegisterFilter("randomize_filename", randomizeFilter)
	r.RegisterFilter("RandomizeFilename", randomizeFilter)
	r.RegisterFilter("validate_extension", extensionFilter)
	r.RegisterFilter("ValidateExtension", extensionFilter)
	r.RegisterFilter("allowed_types", typesFilter)
	r.RegisterFilter("image_only", func(*Args) (filestorage.Filter, error) { return filters.ImageOnly(), nil })
	r.RegisterFilter("documents_only", func(*Args) (filestorage.Filter, error) { return filters.DocumentsOnly(), nil })
	r.RegisterFilter("max_size", maxSizeFilter)
	r.RegisterFilter("not_empty", func(*Args) (filestorage.Filter, error) { return filters.NotEmpty(), nil })
	r.RegisterFilter("lowercase", func(*Args) (filestorage.Filter, error) { return filters.Lowercase(), nil })

	return r
}

// parseMode accepts "blocking", "non_blocking" and "both".
func parseMode(args *Args, name string, def filestorage.Mode) (filestorage.Mode, error) {
	s, err := args.String(name, "")
	if err != nil || s == "" {
		return def, err
	}
	switch strings.ToLower(strings.ReplaceAll(s, "-", "_")) {
	case "blocking", "sync":
		return filestorage.ModeBlocking, nil
	case "non_blocking", "nonblocking", "async":
		return filestorage.ModeNonBlocking, nil
	case "both":
		return filestorage.ModeBoth, nil
	}
	return 0, args.errorf(name, "expected blocking, non_blocking or both, got %q", s)
}

func memoryHandler(def filestorage.Mode) HandlerFactory {
	return func(_ context.Context, args *Args) (filestorage.Backend, error) {
		mode, err := parseMode(args, "mode", def)
		if err != nil {
			return nil, err
		}
		return memory.New(memory.WithMode(mode)), nil
	}
}

func localHandler(_ context.Context, args *Args) (filestorage.Backend, error) {
	basePath, err := args.RequireString("base_path")
	if err != nil {
		return nil, err
	}
	autoMakeDir, err := args.Bool("auto_make_dir", false)
	if err != nil {
		return nil, err
	}
	return local.New(local.Config{BasePath: basePath, AutoMakeDir: autoMakeDir})
}

func s3Handler(_ context.Context, args *Args) (filestorage.Backend, error) {
	var (
		cfg s3.Config
		err error
	)
	if cfg.Bucket, err = args.RequireString("bucket_name"); err != nil {
		return nil, err
	}
	if cfg.AccessKey, err = args.String("aws_access_key_id", ""); err != nil {
		return nil, err
	}
	if cfg.SecretKey, err = args.String("aws_secret_access_key", ""); err != nil {
		return nil, err
	}
	if cfg.SessionToken, err = args.String("aws_session_token", ""); err != nil {
		return nil, err
	}
	if cfg.Region, err = args.String("region_name", ""); err != nil {
		return nil, err
	}
	if cfg.Endpoint, err = args.String("host_url", ""); err != nil {
		return nil, err
	}
	acl, err := args.String("acl", "")
	if err != nil {
		return nil, err
	}
	cfg.ACL = s3.ACL(acl)

	style, err := args.String("addressing_style", "")
	if err != nil {
		return nil, err
	}
	switch style {
	case "", "auto", "virtual":
	case "path":
		cfg.PathStyle = true
	default:
		return nil, args.errorf("addressing_style", "expected auto, virtual or path, got %q", style)
	}

	if cfg.ConnectTimeout, err = args.Duration("connect_timeout", 0); err != nil {
		return nil, err
	}
	if cfg.ReadTimeout, err = args.Duration("read_timeout", 0); err != nil {
		return nil, err
	}
	if cfg.KeepAliveTimeout, err = args.Duration("keepalive_timeout", 0); err != nil {
		return nil, err
	}
	retries, err := args.Int("num_retries", s3.DefaultMaxAttempts)
	if err != nil {
		return nil, err
	}
	cfg.MaxAttempts = max(retries, 1)

	return s3.New(cfg)
}

func redisHandler(ctx context.Context, args *Args) (filestorage.Backend, error) {
	url, err := args.RequireString("url")
	if err != nil {
		return nil, err
	}
	var cfg redis.Config
	if cfg.KeyPrefix, err = args.String("key_prefix", ""); err != nil {
		return nil, err
	}
	if cfg.TTL, err = args.Duration("ttl", 0); err != nil {
		return nil, err
	}
	if cfg.MaxSize, err = args.Int64("max_size", 0); err != nil {
		return nil, err
	}
	poolSize, err := args.Int("pool_size", 10)
	if err != nil {
		return nil, err
	}

	client, err := redis.Open(ctx, url, redis.WithPoolSize(poolSize))
	if err != nil {
		return nil, err
	}
	return redis.New(client, cfg)
}

// ownedPostgres closes the pool it was built with.
type ownedPostgres struct {
	*postgres.Backend
	pool *pgxpool.Pool
}

func (o ownedPostgres) Close() error {
	o.pool.Close()
	return nil
}

func postgresHandler(ctx context.Context, args *Args) (filestorage.Backend, error) {
	url, err := args.RequireString("url")
	if err != nil {
		return nil, err
	}
	migrate, err := args.Bool("migrate", false)
	if err != nil {
		return nil, err
	}
	maxSize, err := args.Int64("max_size", 0)
	if err != nil {
		return nil, err
	}

	pool, err := postgres.Connect(ctx, postgres.ConnConfig{ConnectionString: url})
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := postgres.Migrate(ctx, pool, nil); err != nil {
			pool.Close()
			return nil, err
		}
	}
	b, err := postgres.New(pool, postgres.Config{MaxSize: maxSize})
	if err != nil {
		pool.Close()
		return nil, err
	}
	return ownedPostgres{Backend: b, pool: pool}, nil
}

func randomizeFilter(args *Args) (filestorage.Filter, error) {
	ordered, err := args.Bool("time_ordered", false)
	if err != nil {
		return nil, err
	}
	if ordered {
		return filters.RandomizeFilename(filters.WithTimeOrdered()), nil
	}
	return filters.RandomizeFilename(), nil
}

func extensionFilter(args *Args) (filestorage.Filter, error) {
	if !args.Has("extensions") {
		return nil, args.Missing("extensions")
	}
	exts, err := args.Strings("extensions")
	if err != nil {
		return nil, err
	}
	return filters.ValidateExtension(exts...), nil
}

func typesFilter(args *Args) (filestorage.Filter, error) {
	types, err := args.Strings("types")
	if err != nil {
		return nil, err
	}
	if len(types) == 0 {
		return nil, args.Missing("types")
	}
	return filters.AllowedTypes(types...), nil
}

func maxSizeFilter(args *Args) (filestorage.Filter, error) {
	if !args.Has("limit") {
		return nil, args.Missing("limit")
	}
	limit, err := args.Int64("limit", 0)
	if err != nil {
		return nil, err
	}
	return filters.MaxSize(limit), nil
}
