package health

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/filestorage"
)

const (
	defaultTimeout = 5 * time.Second

	// StatusHealthy indicates all checks passed.
	StatusHealthy = "healthy"
	// StatusUnhealthy indicates one or more checks failed.
	StatusUnhealthy = "unhealthy"

	// probeName is looked up by the generic store check.
	probeName = ".healthcheck"
)

// CheckFunc is a single readiness check. Backends that hold a connection
// expose one through Healthcheck().
type CheckFunc func(ctx context.Context) error

// Checks is a map of named health check functions.
type Checks map[string]CheckFunc

// Response represents a health check response.
type Response struct {
	Checks map[string]Check `json:"checks,omitempty"`
	Status string           `json:"status"`
}

// Check represents the status of a single health check.
type Check struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type config struct {
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures health check behavior.
type Option func(*config)

// WithTimeout sets the timeout for all checks.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger for failed checks.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		timeout: defaultTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

type healthchecker interface {
	Healthcheck() func(context.Context) error
}

// FromContainer returns one check per bound store in the tree rooted at
// store, keyed by store name ("store", "store['avatars']", ...). Unset and
// disabled stores are skipped.
//
// A backend with a Healthcheck method is checked with it. Other stores
// look up a probe file, which proves the backend answers without writing.
func FromContainer(store *filestorage.StorageContainer) Checks {
	checks := Checks{}
	collect(store, checks)
	return checks
}

func collect(store *filestorage.StorageContainer, checks Checks) {
	if store.HandlerState() == filestorage.HandlerBound {
		checks["store"+store.Name()] = storeCheck(store)
	}
	for _, key := range store.Keys() {
		if child, err := store.Store(key); err == nil {
			collect(child, checks)
		}
	}
}

func storeCheck(store *filestorage.StorageContainer) CheckFunc {
	return func(ctx context.Context) error {
		sh, err := store.Handler()
		if err != nil {
			return err
		}
		if h, ok := sh.(*filestorage.Handler); ok {
			if hc, ok := h.Backend().(healthchecker); ok {
				return hc.Healthcheck()(ctx)
			}
		}
		if sh.Mode().Blocking() {
			_, err = store.Exists(ctx, probeName)
			return err
		}
		_, err = store.ExistsAsync(ctx, probeName).Await(ctx)
		return err
	}
}

// Run executes all checks concurrently and aggregates the result.
func Run(ctx context.Context, checks Checks, opts ...Option) *Response {
	return runChecks(ctx, checks, newConfig(opts...))
}

func runChecks(ctx context.Context, checks Checks, cfg *config) *Response {
	if len(checks) == 0 {
		return &Response{Status: StatusHealthy}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		g       errgroup.Group
		results = make(map[string]Check, len(checks))
		status  = StatusHealthy
	)

	for name, check := range checks {
		g.Go(func() error {
			result := Check{Status: StatusHealthy}
			if err := check(ctx); err != nil {
				if ctx.Err() != nil {
					err = ErrCheckTimeout
				}
				result = Check{Status: StatusUnhealthy, Error: err.Error()}
				cfg.logger.WarnContext(ctx, "health check failed",
					slog.String("check", name),
					slog.String("error", err.Error()),
				)
			}

			mu.Lock()
			defer mu.Unlock()
			results[name] = result
			if result.Status == StatusUnhealthy {
				status = StatusUnhealthy
			}
			return nil
		})
	}
	_ = g.Wait()

	return &Response{Status: status, Checks: results}
}
