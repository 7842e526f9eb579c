package settings

import (
	"context"
	"errors"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrymomot/filestorage"
)

// HandlerFactory builds a backend from its settings. Arguments common to
// every handler (base_url, path, allow_sync_methods, filters) are consumed
// by the registry before the factory runs.
type HandlerFactory func(ctx context.Context, args *Args) (filestorage.Backend, error)

// FilterFactory builds a filter from its settings.
type FilterFactory func(args *Args) (filestorage.Filter, error)

// Common handler settings.
const (
	ArgBaseURL          = "base_url"
	ArgPath             = "path"
	ArgAllowSyncMethods = "allow_sync_methods"
	ArgFilters          = "filters"
)

// Registry maps names used in settings to handler and filter factories.
// It is safe for concurrent use.
type Registry struct {
	handlers    map[string]HandlerFactory
	filters     map[string]FilterFactory
	handlerOpts []filestorage.HandlerOption
	mu          sync.RWMutex
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithHandlerOptions adds options applied to every handler the registry
// builds, after the ones derived from settings. Use it for loggers and
// observers.
func WithHandlerOptions(opts ...filestorage.HandlerOption) RegistryOption {
	return func(r *Registry) {
		r.handlerOpts = append(r.handlerOpts, opts...)
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		handlers: map[string]HandlerFactory{},
		filters:  map[string]FilterFactory{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterHandler adds or replaces a handler factory.
func (r *Registry) RegisterHandler(name string, f HandlerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = f
}

// RegisterFilter adds or replaces a filter factory.
func (r *Registry) RegisterFilter(name string, f FilterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[name] = f
}

// HandlerNames returns the registered handler names, sorted.
func (r *Registry) HandlerNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.handlers))
}

// FilterNames returns the registered filter names, sorted.
func (r *Registry) FilterNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.filters))
}

// lookup finds name, falling back to its last dotted segment so that fully
// qualified names like "filestorage.handlers.DummyHandler" resolve.
func lookup[F any](m map[string]F, name string) (F, bool) {
	name = strings.TrimSpace(name)
	if f, ok := m[name]; ok {
		return f, true
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		f, ok := m[name[i+1:]]
		return f, ok
	}
	var zero F
	return zero, false
}

// BuildHandler creates a Handler from cfg. Unknown arguments are config
// errors that name the closest known argument.
func (r *Registry) BuildHandler(ctx context.Context, cfg *HandlerConfig) (*filestorage.Handler, error) {
	r.mu.RLock()
	factory, ok := lookup(r.handlers, cfg.Type)
	r.mu.RUnlock()
	if !ok {
		return nil, unknownTypeError("handler", cfg.Key, cfg.Type, r.HandlerNames())
	}

	args := NewArgs(cfg.Key, cfg.Args)
	opts, err := commonHandlerOptions(args)
	if err != nil {
		return nil, err
	}

	filters := make([]filestorage.Filter, 0, len(cfg.Filters))
	for _, fc := range cfg.Filters {
		f, err := r.BuildFilter(fc)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	opts = append(opts, filestorage.WithFilters(filters...))

	backend, err := factory(ctx, args)
	if err != nil {
		return nil, wrapFactoryError(cfg.Key, err)
	}
	if err := checkUnused(args, ArgFilters); err != nil {
		if c, ok := backend.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, err
	}

	opts = append(opts, r.handlerOpts...)
	return filestorage.NewHandler(backend, opts...), nil
}

// BuildFilter creates a Filter from cfg.
func (r *Registry) BuildFilter(cfg FilterConfig) (filestorage.Filter, error) {
	r.mu.RLock()
	factory, ok := lookup(r.filters, cfg.Type)
	r.mu.RUnlock()
	if !ok {
		return nil, unknownTypeError("filter", cfg.Key, cfg.Type, r.FilterNames())
	}

	args := NewArgs(cfg.Key, cfg.Args)
	f, err := factory(args)
	if err != nil {
		return nil, wrapFactoryError(cfg.Key, err)
	}
	if err := checkUnused(args); err != nil {
		return nil, err
	}
	return f, nil
}

func commonHandlerOptions(args *Args) ([]filestorage.HandlerOption, error) {
	var opts []filestorage.HandlerOption

	baseURL, err := args.String(ArgBaseURL, "")
	if err != nil {
		return nil, err
	}
	if baseURL != "" {
		opts = append(opts, filestorage.WithBaseURL(baseURL))
	}

	path, err := args.Strings(ArgPath)
	if err != nil {
		return nil, err
	}
	if len(path) > 0 {
		opts = append(opts, filestorage.WithPath(path...))
	}

	if args.Has(ArgAllowSyncMethods) {
		allow, err := args.Bool(ArgAllowSyncMethods, true)
		if err != nil {
			return nil, err
		}
		opts = append(opts, filestorage.WithAllowSyncMethods(allow))
	}
	return opts, nil
}

// checkUnused rejects arguments no getter read. extra names are offered as
// suggestions alongside the ones the factory asked for.
func checkUnused(args *Args, extra ...string) error {
	unused := args.Unused()
	if len(unused) == 0 {
		return nil
	}
	known := append(args.Known(), extra...)
	return unknownKeyError(args.Key()+"."+unused[0], unused[0], known)
}

func wrapFactoryError(key string, err error) error {
	var cfgErr *filestorage.ConfigError
	if errors.As(err, &cfgErr) {
		return err
	}
	return filestorage.NewConfigError(err, "Bad settings for %s: %v", key, err)
}
