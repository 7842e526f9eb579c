package internal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/url"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/filestorage/pkg/logger"
)

// Operation names reported to observers and logs.
const (
	OpSave     = "save"
	OpExists   = "exists"
	OpDelete   = "delete"
	OpStat     = "stat"
	OpValidate = "validate"
)

// StorageHandler is the surface shared by Handler, Folder and StorageContainer.
// Each method has a blocking form and a non-blocking form returning a Future.
// Calling a form the handler does not support fails with a ConfigError
// before any backend I/O happens.
type StorageHandler interface {
	// Mode reports which method sets may be used.
	Mode() Mode
	BaseURL() string
	Path() []string
	Filters() []Filter

	Validate(ctx context.Context) error
	ValidateAsync(ctx context.Context) *Future[struct{}]

	Exists(ctx context.Context, filename string) (bool, error)
	ExistsAsync(ctx context.Context, filename string) *Future[bool]
	Delete(ctx context.Context, filename string) error
	DeleteAsync(ctx context.Context, filename string) *Future[struct{}]
	Stat(ctx context.Context, filename string) (FileInfo, error)
	StatAsync(ctx context.Context, filename string) *Future[FileInfo]

	// SaveFile sanitises filename, runs the filter chain and stores data.
	// It returns the filename actually stored.
	SaveFile(ctx context.Context, filename string, data io.Reader) (string, error)
	SaveFileAsync(ctx context.Context, filename string, data io.Reader) *Future[string]
	SaveData(ctx context.Context, filename string, data []byte) (string, error)
	SaveDataAsync(ctx context.Context, filename string, data []byte) *Future[string]
	SaveField(ctx context.Context, field *multipart.FileHeader) (string, error)
	SaveFieldAsync(ctx context.Context, field *multipart.FileHeader) *Future[string]

	// URL joins the base URL with the file path. Without a base URL only the
	// relative path is returned.
	URL(filename string) (string, error)
	SanitizeFilename(filename string) string

	// resolve returns the Handler serving the call and the full folder path.
	resolve() (target, error)
}

// Observer receives one event per completed handler operation.
type Observer interface {
	ObserveOperation(ctx context.Context, handler, op string, d time.Duration, err error)
}

// Handler binds a Backend to a base URL, a path prefix and a filter chain.
type Handler struct {
	backend  Backend
	blocking BlockingBackend    // nil when the backend lacks the blocking set
	async    NonBlockingBackend // nil when the backend lacks the non-blocking set
	logger   *slog.Logger
	observer Observer
	name     string
	baseURL  string
	path     []string
	filters  []Filter

	allowSync bool
}

// NewHandler wraps backend with the given options.
func NewHandler(backend Backend, opts ...HandlerOption) *Handler {
	h := &Handler{
		backend:   backend,
		logger:    logger.NewNope(),
		allowSync: true,
	}
	h.blocking, _ = backend.(BlockingBackend)
	h.async, _ = backend.(NonBlockingBackend)
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Backend returns the wrapped backend.
func (h *Handler) Backend() Backend { return h.backend }

// Name returns the handler name, usually the key of the store it is bound to.
func (h *Handler) Name() string { return h.name }

// setName injects the container key unless a name was configured.
func (h *Handler) setName(name string) {
	if h.name == "" {
		h.name = name
	}
}

// AllowSyncMethods reports whether blocking calls are accepted on a
// non-blocking backend.
func (h *Handler) AllowSyncMethods() bool { return h.allowSync }

// BaseURL implements StorageHandler.
func (h *Handler) BaseURL() string { return h.baseURL }

// Path implements StorageHandler.
func (h *Handler) Path() []string { return slices.Clone(h.path) }

// Filters implements StorageHandler.
func (h *Handler) Filters() []Filter { return slices.Clone(h.filters) }

// Mode implements StorageHandler. A handler over a blocking-only backend is
// blocking. A handler over a non-blocking backend is non-blocking and also
// blocking unless sync methods were disallowed.
func (h *Handler) Mode() Mode {
	if h.backend == nil {
		return 0
	}
	bm := h.backend.Mode()
	if !bm.NonBlocking() {
		return bm
	}
	if h.allowSync {
		return ModeBoth
	}
	return ModeNonBlocking
}

func (h *Handler) String() string {
	return fmt.Sprintf("<%s(%q)>", backendName(h.backend), h.name)
}

func backendName(b Backend) string {
	if b == nil {
		return "nil"
	}
	if s, ok := b.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", b)
}

// SanitizeFilename implements StorageHandler.
func (h *Handler) SanitizeFilename(filename string) string {
	return SanitizeFilename(filename)
}

func (h *Handler) resolve() (target, error) {
	return h.target(), nil
}

func (h *Handler) target() target {
	return target{h: h, path: slices.Clone(h.path)}
}

// checkBackend verifies the declared mode against the implemented method sets.
func (h *Handler) checkBackend() error {
	if h.backend == nil {
		return configError(ErrInvalidValue, "", "Handler %q has no backend", h.name)
	}
	bm := h.backend.Mode()
	switch {
	case bm == 0:
		return configError(ErrInvalidValue, "", "%s declares no call mode", h)
	case bm.Blocking() && h.blocking == nil:
		return configError(ErrInvalidValue, "", "%s declares blocking mode but does not implement it", h)
	case bm.NonBlocking() && h.async == nil:
		return configError(ErrInvalidValue, "", "%s declares non-blocking mode but does not implement it", h)
	}
	return nil
}

func (h *Handler) checkBaseURL() error {
	if h.baseURL == "" {
		return nil
	}
	if _, err := url.Parse(h.baseURL); err != nil {
		return configError(ErrInvalidValue, "", "Invalid base URL %q for %s: %v", h.baseURL, h, err)
	}
	return nil
}

// checkFilters rejects nil filters and, for a non-blocking handler, filters
// that would have to block the non-blocking pipeline.
func (h *Handler) checkFilters() error {
	nonBlocking := h.Mode().NonBlocking()
	for i, f := range h.filters {
		if f == nil {
			return configError(ErrInvalidValue, "", "Filter #%d of %s is nil", i, h)
		}
		if nonBlocking && !h.allowSync && !f.Mode().NonBlocking() {
			return configError(ErrModeMismatch, "",
				"Filter %s cannot be used in non-blocking storage handler %s", filterName(f), h)
		}
	}
	return nil
}

func (h *Handler) requireBlocking(op string) error {
	if err := h.checkBackend(); err != nil {
		return err
	}
	if !h.Mode().Blocking() {
		return configError(ErrModeMismatch, "", "Sync %s method not allowed on %s", op, h)
	}
	return nil
}

func (h *Handler) requireNonBlocking(op string) error {
	if err := h.checkBackend(); err != nil {
		return err
	}
	if !h.Mode().NonBlocking() {
		return configError(ErrModeMismatch, "", "Async %s method not supported by %s", op, h)
	}
	return nil
}

// useBlockingSet reports whether blocking calls go straight to the blocking
// method set instead of awaiting the non-blocking one.
func (h *Handler) useBlockingSet() bool {
	return h.backend.Mode().Blocking()
}

// track starts timing op and returns the function that reports its outcome.
func (h *Handler) track(ctx context.Context, op string, item FileItem) func(*error) {
	start := time.Now()
	return func(errp *error) {
		var err error
		if errp != nil {
			err = *errp
		}
		d := time.Since(start)
		if h.observer != nil {
			h.observer.ObserveOperation(ctx, h.name, op, d, err)
		}
		attrs := []slog.Attr{
			slog.String("handler", h.String()),
			slog.String("op", op),
			slog.Duration("duration", d),
		}
		if item.Filename != "" {
			attrs = append(attrs, slog.String("file", item.URLPath()))
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		h.logger.LogAttrs(ctx, slog.LevelDebug, "filestorage operation", attrs...)
	}
}

// Validate implements StorageHandler. Filters are validated first, then the
// backend. A handler that refuses blocking calls can only be validated with
// ValidateAsync.
func (h *Handler) Validate(ctx context.Context) (err error) {
	defer h.track(ctx, OpValidate, FileItem{})(&err)

	if err := h.checkBackend(); err != nil {
		return err
	}
	if !h.Mode().Blocking() {
		return configError(ErrModeMismatch, "",
			"%s refuses blocking calls. Must use FinalizeConfigAsync instead.", h)
	}
	if err := h.checkBaseURL(); err != nil {
		return err
	}
	if err := h.checkFilters(); err != nil {
		return err
	}
	for _, f := range h.filters {
		if err := f.Validate(ctx); err != nil {
			return err
		}
	}
	if h.useBlockingSet() {
		return h.blocking.Validate(ctx)
	}
	return h.async.ValidateAsync(ctx).Err(ctx)
}

// ValidateAsync implements StorageHandler. Filter and backend validations run
// concurrently and the first failure is returned. Unlike the storage
// operations it is available on every handler, so an application can
// finalize a mixed tree without blocking.
func (h *Handler) ValidateAsync(ctx context.Context) *Future[struct{}] {
	if err := h.checkBackend(); err != nil {
		return Failed[struct{}](err)
	}
	if err := h.checkBaseURL(); err != nil {
		return Failed[struct{}](err)
	}
	if err := h.checkFilters(); err != nil {
		return Failed[struct{}](err)
	}

	return Go(ctx, func(ctx context.Context) (_ struct{}, err error) {
		defer h.track(ctx, OpValidate, FileItem{})(&err)

		g, gctx := errgroup.WithContext(ctx)
		for _, f := range h.filters {
			g.Go(func() error {
				return f.Validate(gctx)
			})
		}
		g.Go(func() error {
			if h.backend.Mode().NonBlocking() {
				return h.async.ValidateAsync(gctx).Err(gctx)
			}
			return h.blocking.Validate(gctx)
		})
		return struct{}{}, g.Wait()
	})
}

// Exists implements StorageHandler.
func (h *Handler) Exists(ctx context.Context, filename string) (bool, error) {
	return h.target().exists(ctx, filename)
}

// ExistsAsync implements StorageHandler.
func (h *Handler) ExistsAsync(ctx context.Context, filename string) *Future[bool] {
	return h.target().existsAsync(ctx, filename)
}

// Delete implements StorageHandler.
func (h *Handler) Delete(ctx context.Context, filename string) error {
	return h.target().delete(ctx, filename)
}

// DeleteAsync implements StorageHandler.
func (h *Handler) DeleteAsync(ctx context.Context, filename string) *Future[struct{}] {
	return h.target().deleteAsync(ctx, filename)
}

// Stat implements StorageHandler.
func (h *Handler) Stat(ctx context.Context, filename string) (FileInfo, error) {
	return h.target().stat(ctx, filename)
}

// StatAsync implements StorageHandler.
func (h *Handler) StatAsync(ctx context.Context, filename string) *Future[FileInfo] {
	return h.target().statAsync(ctx, filename)
}

// SaveFile implements StorageHandler.
func (h *Handler) SaveFile(ctx context.Context, filename string, data io.Reader) (string, error) {
	return h.target().save(ctx, filename, data)
}

// SaveFileAsync implements StorageHandler.
func (h *Handler) SaveFileAsync(ctx context.Context, filename string, data io.Reader) *Future[string] {
	return h.target().saveAsync(ctx, filename, data)
}

// SaveData implements StorageHandler.
func (h *Handler) SaveData(ctx context.Context, filename string, data []byte) (string, error) {
	return h.target().save(ctx, filename, bytes.NewReader(data))
}

// SaveDataAsync implements StorageHandler.
func (h *Handler) SaveDataAsync(ctx context.Context, filename string, data []byte) *Future[string] {
	return h.target().saveAsync(ctx, filename, bytes.NewReader(data))
}

// SaveField implements StorageHandler.
func (h *Handler) SaveField(ctx context.Context, field *multipart.FileHeader) (string, error) {
	return h.target().saveField(ctx, field)
}

// SaveFieldAsync implements StorageHandler.
func (h *Handler) SaveFieldAsync(ctx context.Context, field *multipart.FileHeader) *Future[string] {
	return h.target().saveFieldAsync(ctx, field)
}

// URL implements StorageHandler.
func (h *Handler) URL(filename string) (string, error) {
	return h.target().url(filename)
}

// target is a resolved operation: the Handler whose backend and filters
// serve it and the full folder path of the file.
type target struct {
	h    *Handler
	path []string
}

func (t target) item(filename string) FileItem {
	return NewFileItem(filename, t.path, nil)
}

func (t target) exists(ctx context.Context, filename string) (found bool, err error) {
	h := t.h
	if err := h.requireBlocking(OpExists); err != nil {
		return false, err
	}
	item := t.item(filename)
	defer h.track(ctx, OpExists, item)(&err)

	if h.useBlockingSet() {
		return h.blocking.Exists(ctx, item)
	}
	return h.async.ExistsAsync(ctx, item).Await(ctx)
}

func (t target) existsAsync(ctx context.Context, filename string) *Future[bool] {
	h := t.h
	if err := h.requireNonBlocking(OpExists); err != nil {
		return Failed[bool](err)
	}
	item := t.item(filename)
	return observed(ctx, h, OpExists, item, h.async.ExistsAsync(ctx, item))
}

func (t target) delete(ctx context.Context, filename string) (err error) {
	h := t.h
	if err := h.requireBlocking(OpDelete); err != nil {
		return err
	}
	item := t.item(filename)
	defer h.track(ctx, OpDelete, item)(&err)

	if h.useBlockingSet() {
		return h.blocking.Delete(ctx, item)
	}
	return h.async.DeleteAsync(ctx, item).Err(ctx)
}

func (t target) deleteAsync(ctx context.Context, filename string) *Future[struct{}] {
	h := t.h
	if err := h.requireNonBlocking(OpDelete); err != nil {
		return Failed[struct{}](err)
	}
	item := t.item(filename)
	return observed(ctx, h, OpDelete, item, h.async.DeleteAsync(ctx, item))
}

func (t target) stat(ctx context.Context, filename string) (info FileInfo, err error) {
	h := t.h
	if err := h.requireBlocking(OpStat); err != nil {
		return FileInfo{}, err
	}
	return t.statItem(ctx, t.item(filename))
}

func (t target) statAsync(ctx context.Context, filename string) *Future[FileInfo] {
	h := t.h
	if err := h.requireNonBlocking(OpStat); err != nil {
		return Failed[FileInfo](err)
	}
	item := t.item(filename)
	return Go(ctx, func(ctx context.Context) (FileInfo, error) {
		return t.statItem(ctx, item)
	})
}

func (t target) statItem(ctx context.Context, item FileItem) (info FileInfo, err error) {
	h := t.h
	sb, ok := h.backend.(StatBackend)
	if !ok {
		return FileInfo{}, fmt.Errorf("%w: stat on %s", ErrNotSupported, h)
	}
	defer h.track(ctx, OpStat, item)(&err)

	info, err = sb.Stat(ctx, item)
	if err != nil {
		return FileInfo{}, err
	}
	if info.Name == "" {
		info.Name = item.Filename
	}
	return info, nil
}

// newItem builds the item to save. Readers that cannot seek are buffered.
// A filename with nothing left after sanitising is rejected.
func (t target) newItem(filename string, data io.Reader) (FileItem, error) {
	name := SanitizeFilename(filename)
	if name == "" {
		return FileItem{}, NewFileRejectedError(filename, ErrCodeNotAllowed,
			"filename is empty after sanitising", nil)
	}

	rs, ok := data.(io.ReadSeeker)
	if !ok {
		if data == nil {
			data = bytes.NewReader(nil)
		}
		buf, err := io.ReadAll(data)
		if err != nil {
			return FileItem{}, err
		}
		rs = bytes.NewReader(buf)
	}
	return NewFileItem(name, t.path, rs), nil
}

func (t target) save(ctx context.Context, filename string, data io.Reader) (stored string, err error) {
	h := t.h
	if err := h.requireBlocking(OpSave); err != nil {
		return "", err
	}
	item, err := t.newItem(filename, data)
	if err != nil {
		return "", err
	}
	defer h.track(ctx, OpSave, item)(&err)

	for _, f := range h.filters {
		if item, err = callFilter(ctx, f, item); err != nil {
			return "", err
		}
	}

	if h.useBlockingSet() {
		stored, err = h.blocking.Save(ctx, item)
	} else {
		stored, err = h.async.SaveAsync(ctx, item).Await(ctx)
	}
	if err != nil {
		return "", err
	}
	if stored == "" {
		stored = item.Filename
	}
	return stored, nil
}

func (t target) saveAsync(ctx context.Context, filename string, data io.Reader) *Future[string] {
	h := t.h
	if err := h.requireNonBlocking(OpSave); err != nil {
		return Failed[string](err)
	}

	return Go(ctx, func(ctx context.Context) (stored string, err error) {
		item, err := t.newItem(filename, data)
		if err != nil {
			return "", err
		}
		defer h.track(ctx, OpSave, item)(&err)

		for _, f := range h.filters {
			if item, err = callFilterAsync(ctx, f, item, h.allowSync); err != nil {
				return "", err
			}
		}

		stored, err = h.async.SaveAsync(ctx, item).Await(ctx)
		if err != nil {
			return "", err
		}
		if stored == "" {
			stored = item.Filename
		}
		return stored, nil
	})
}

func (t target) saveField(ctx context.Context, field *multipart.FileHeader) (string, error) {
	if err := t.h.requireBlocking(OpSave); err != nil {
		return "", err
	}
	file, filename, err := openField(field)
	if err != nil {
		return "", err
	}
	defer file.Close()

	return t.save(ctx, filename, file)
}

func (t target) saveFieldAsync(ctx context.Context, field *multipart.FileHeader) *Future[string] {
	if err := t.h.requireNonBlocking(OpSave); err != nil {
		return Failed[string](err)
	}
	file, filename, err := openField(field)
	if err != nil {
		return Failed[string](err)
	}

	return Go(ctx, func(ctx context.Context) (string, error) {
		defer file.Close()
		return t.saveAsync(ctx, filename, file).Await(ctx)
	})
}

// openField opens an uploaded form file. A field without a filename is
// stored as "file". Empty uploads pass; the NotEmpty filter rejects them.
func openField(field *multipart.FileHeader) (multipart.File, string, error) {
	if field == nil {
		return nil, "", ErrEmptyField
	}
	file, err := field.Open()
	if err != nil {
		return nil, "", err
	}
	filename := field.Filename
	if filename == "" {
		filename = "file"
	}
	return file, filename, nil
}

func (t target) url(filename string) (string, error) {
	ref := &url.URL{Path: t.item(filename).URLPath()}
	if t.h.baseURL == "" {
		return ref.String(), nil
	}
	base, err := url.Parse(t.h.baseURL)
	if err != nil {
		return "", configError(ErrInvalidValue, "", "Invalid base URL %q for %s: %v", t.h.baseURL, t.h, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// observed reports the outcome of a backend future to the handler's
// observer and logger.
func observed[T any](ctx context.Context, h *Handler, op string, item FileItem, f *Future[T]) *Future[T] {
	done := h.track(ctx, op, item)
	return Go(ctx, func(ctx context.Context) (T, error) {
		val, err := f.Await(ctx)
		done(&err)
		return val, err
	})
}
