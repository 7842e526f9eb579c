package filestorage

import (
	"context"
	"io"
	"log/slog"

	"github.com/dmitrymomot/filestorage/internal"
)

// Type aliases - public API
type (
	// StorageContainer is a node of the store tree.
	// Children are created lazily and handlers are bound late.
	StorageContainer = internal.StorageContainer

	// StorageHandler is the surface shared by handlers, folders and containers.
	StorageHandler = internal.StorageHandler

	// Handler binds a Backend to a base URL, a path prefix and filters.
	Handler = internal.Handler

	// HandlerOption configures a Handler.
	HandlerOption = internal.HandlerOption

	// HandlerState tells apart unset, disabled and bound stores.
	HandlerState = internal.HandlerState

	// Folder is a path-scoped view over a container's handler.
	Folder = internal.Folder

	// Backend is the adapter to one storage medium.
	Backend = internal.Backend

	// BlockingBackend is the blocking method set of a backend.
	BlockingBackend = internal.BlockingBackend

	// NonBlockingBackend is the non-blocking method set of a backend.
	NonBlockingBackend = internal.NonBlockingBackend

	// StatBackend is implemented by backends that report file metadata.
	StatBackend = internal.StatBackend

	// AsyncAdapter derives the non-blocking method set from a blocking backend.
	AsyncAdapter = internal.AsyncAdapter

	// FileInfo describes a stored file.
	FileInfo = internal.FileInfo

	// Filter transforms or validates a file before it is stored.
	Filter = internal.Filter

	// AsyncFilter is a Filter with a native non-blocking form.
	AsyncFilter = internal.AsyncFilter

	// FilterFunc adapts a function into a Filter.
	FilterFunc = internal.FilterFunc

	// FileItem describes one file in transit.
	FileItem = internal.FileItem

	// Reader is the scoped stream over a FileItem's content.
	Reader = internal.Reader

	// Mode is the capability tag selecting blocking or non-blocking calls.
	Mode = internal.Mode

	// Observer receives one event per completed handler operation.
	Observer = internal.Observer

	// ConfigError describes a configuration problem.
	ConfigError = internal.ConfigError

	// FileRejectedError is returned when a file fails a content policy.
	FileRejectedError = internal.FileRejectedError
)

// Future is the result of a non-blocking call.
type Future[T any] = internal.Future[T]

// Call modes.
const (
	ModeBlocking    = internal.ModeBlocking
	ModeNonBlocking = internal.ModeNonBlocking
	ModeBoth        = internal.ModeBoth
)

// Handler states.
const (
	HandlerUnset    = internal.HandlerUnset
	HandlerDisabled = internal.HandlerDisabled
	HandlerBound    = internal.HandlerBound
)

// Operation names reported to observers.
const (
	OpSave     = internal.OpSave
	OpExists   = internal.OpExists
	OpDelete   = internal.OpDelete
	OpStat     = internal.OpStat
	OpValidate = internal.OpValidate
)

// MediaTypeOctetStream is the fallback media type for unknown content.
const MediaTypeOctetStream = internal.MediaTypeOctetStream

// Error codes carried by FileRejectedError.
const (
	ErrCodeNotAllowed       = internal.ErrCodeNotAllowed
	ErrCodeInvalidExtension = internal.ErrCodeInvalidExtension
	ErrCodeInvalidType      = internal.ErrCodeInvalidType
	ErrCodeFileTooLarge     = internal.ErrCodeFileTooLarge
	ErrCodeEmptyFile        = internal.ErrCodeEmptyFile
)

// Errors for checking return values.
var (
	ErrConfig              = internal.ErrConfig
	ErrNoHandler           = internal.ErrNoHandler
	ErrStoreDisabled       = internal.ErrStoreDisabled
	ErrFinalized           = internal.ErrFinalized
	ErrModeMismatch        = internal.ErrModeMismatch
	ErrInvalidValue        = internal.ErrInvalidValue
	ErrFileNotAllowed      = internal.ErrFileNotAllowed
	ErrExtensionNotAllowed = internal.ErrExtensionNotAllowed
	ErrEmptyField          = internal.ErrEmptyField
	ErrNotSupported        = internal.ErrNotSupported
)

// Constructors

// New returns an empty root container. Create one per application, or one
// per test for isolation; there is no global instance.
//
// Example:
//
//	store := filestorage.New()
//	avatars := store.MustStore("avatars") // safe before configuration
//
//	_ = store.SetHandler(filestorage.NewHandler(memory.New()))
//	_ = avatars.SetHandler(store.Join("avatars"))
//	if err := store.FinalizeConfig(ctx); err != nil {
//	    log.Fatal(err)
//	}
func New() *StorageContainer {
	return internal.New()
}

// NewHandler wraps a backend into a Handler.
//
// Example:
//
//	h := filestorage.NewHandler(backend,
//	    filestorage.WithBaseURL("https://cdn.example.com/"),
//	    filestorage.WithFilters(filters.RandomizeFilename()),
//	)
func NewHandler(backend Backend, opts ...HandlerOption) *Handler {
	return internal.NewHandler(backend, opts...)
}

// NewFileItem returns a FileItem with its own copy of path.
func NewFileItem(filename string, path []string, data io.ReadSeeker) FileItem {
	return internal.NewFileItem(filename, path, data)
}

// NewFilterFunc returns a Filter backed by fn.
func NewFilterFunc(name string, mode Mode, fn func(ctx context.Context, item FileItem) (FileItem, error)) *FilterFunc {
	return internal.NewFilterFunc(name, mode, fn)
}

// NewConfigError returns a ConfigError wrapping cause.
// Backends and filters use it to report validation failures.
func NewConfigError(cause error, format string, args ...any) error {
	return internal.NewConfigError(cause, format, args...)
}

// NewFileRejectedError returns a FileRejectedError.
func NewFileRejectedError(filename, code, message string, details map[string]any) *FileRejectedError {
	return internal.NewFileRejectedError(filename, code, message, details)
}

// Handler options

// WithBaseURL sets the URL prefix used by URL.
func WithBaseURL(baseURL string) HandlerOption {
	return internal.WithBaseURL(baseURL)
}

// WithPath sets the folder segments every file of the handler is stored under.
func WithPath(segments ...string) HandlerOption {
	return internal.WithPath(segments...)
}

// WithFilters appends filters to the chain. They run in the given order.
func WithFilters(filters ...Filter) HandlerOption {
	return internal.WithFilters(filters...)
}

// WithAllowSyncMethods controls whether a handler over a non-blocking backend
// also accepts blocking calls. Defaults to true.
func WithAllowSyncMethods(allow bool) HandlerOption {
	return internal.WithAllowSyncMethods(allow)
}

// WithLogger sets the logger for operation debug logs.
func WithLogger(l *slog.Logger) HandlerOption {
	return internal.WithLogger(l)
}

// WithName sets the handler name. Containers inject their key when unset.
func WithName(name string) HandlerOption {
	return internal.WithName(name)
}

// WithObserver registers an observer notified after every operation.
func WithObserver(o Observer) HandlerOption {
	return internal.WithObserver(o)
}

// Helpers

// SanitizeFilename makes a filename safe for filesystem and URL use.
func SanitizeFilename(filename string) string {
	return internal.SanitizeFilename(filename)
}

// Resolved returns a completed Future.
func Resolved[T any](val T, err error) *Future[T] {
	return internal.Resolved(val, err)
}

// Failed returns a completed Future carrying err.
func Failed[T any](err error) *Future[T] {
	return internal.Failed[T](err)
}

// Go runs fn on a new goroutine and returns a Future for its result.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	return internal.Go(ctx, fn)
}

// Then chains fn after f.
func Then[T, U any](ctx context.Context, f *Future[T], fn func(ctx context.Context, val T) (U, error)) *Future[U] {
	return internal.Then(ctx, f, fn)
}

// Media type helpers

// MediaTypeFromFilename guesses a media type from the filename extension.
func MediaTypeFromFilename(filename string) string {
	return internal.MediaTypeFromFilename(filename)
}

// DetectMediaType sniffs the media type of r and rewinds it.
func DetectMediaType(r io.ReadSeeker) (string, error) {
	return internal.DetectMediaType(r)
}

// ExtFromMediaType returns the preferred extension, with dot, for mediaType.
func ExtFromMediaType(mediaType string) string {
	return internal.ExtFromMediaType(mediaType)
}

// NormalizeMediaType lowercases mediaType and strips its parameters.
func NormalizeMediaType(mediaType string) string {
	return internal.NormalizeMediaType(mediaType)
}

// MatchMediaType reports whether mediaType matches any pattern.
// Patterns may end in "/*" to match a whole type.
func MatchMediaType(mediaType string, patterns []string) bool {
	return internal.MatchMediaType(mediaType, patterns)
}
