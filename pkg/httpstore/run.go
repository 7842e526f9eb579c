package httpstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrymomot/filestorage"
)

const (
	defaultAddress           = ":8080"
	defaultShutdownTimeout   = 30 * time.Second
	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultMaxHeaderBytes    = 1 << 20
)

// RunConfig configures Run.
type RunConfig struct {
	Logger  *slog.Logger
	Address string
	// ShutdownHooks run after the server stops accepting requests.
	ShutdownHooks   []func(context.Context) error
	ShutdownTimeout time.Duration
}

// Run serves handler until ctx is canceled or the process receives SIGINT
// or SIGTERM, then shuts down gracefully and runs the shutdown hooks.
func Run(ctx context.Context, handler http.Handler, cfg RunConfig) error {
	if cfg.Address == "" {
		cfg.Address = defaultAddress
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ln, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", slog.String("address", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	var errs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	for _, hook := range cfg.ShutdownHooks {
		if err := hook(shutdownCtx); err != nil {
			errs = append(errs, err)
			log.Error("shutdown hook failed", slog.Any("error", err))
		}
	}
	return errors.Join(errs...)
}

// CloseBackends returns a shutdown hook closing every backend in the tree
// that implements io.Closer, such as redis and postgres connections.
func CloseBackends(store *filestorage.StorageContainer) func(context.Context) error {
	return func(context.Context) error {
		var errs []error
		walk(store, func(c *filestorage.StorageContainer) {
			sh, err := c.Handler()
			if err != nil {
				return
			}
			h, ok := sh.(*filestorage.Handler)
			if !ok {
				return
			}
			if closer, ok := h.Backend().(io.Closer); ok {
				errs = append(errs, closer.Close())
			}
		})
		return errors.Join(errs...)
	}
}

func walk(store *filestorage.StorageContainer, fn func(*filestorage.StorageContainer)) {
	fn(store)
	for _, key := range store.Keys() {
		if child, err := store.Store(key); err == nil {
			walk(child, fn)
		}
	}
}
