package internal

import (
	"log/slog"
	"slices"
)

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithBaseURL sets the URL prefix used by URL.
// Example: WithBaseURL("https://cdn.example.com/static/")
func WithBaseURL(baseURL string) HandlerOption {
	return func(h *Handler) {
		h.baseURL = baseURL
	}
}

// WithPath sets the folder segments every file of the handler is stored under.
func WithPath(segments ...string) HandlerOption {
	return func(h *Handler) {
		h.path = slices.Clone(segments)
	}
}

// WithFilters appends filters to the chain. They run in the given order.
func WithFilters(filters ...Filter) HandlerOption {
	return func(h *Handler) {
		h.filters = append(h.filters, filters...)
	}
}

// WithAllowSyncMethods controls whether a handler with a non-blocking
// backend also accepts blocking calls. Default is true.
// Blocking calls on such a handler wait for the non-blocking operation.
func WithAllowSyncMethods(allow bool) HandlerOption {
	return func(h *Handler) {
		h.allowSync = allow
	}
}

// WithLogger sets the logger for operation debug logs.
func WithLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithName sets the handler name. Containers inject their key when unset.
func WithName(name string) HandlerOption {
	return func(h *Handler) {
		h.name = name
	}
}

// WithObserver registers an observer notified after every operation.
func WithObserver(o Observer) HandlerOption {
	return func(h *Handler) {
		h.observer = o
	}
}
