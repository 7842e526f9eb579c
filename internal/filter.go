package internal

import (
	"context"
	"fmt"
)

// Filter is a single transform or validation step applied to a FileItem
// before it reaches the backend. Filters hold configuration only.
type Filter interface {
	// Mode reports whether the filter is safe to run in the non-blocking pipeline.
	Mode() Mode

	// Validate checks the filter configuration once, during finalize.
	Validate(ctx context.Context) error

	// Call applies the filter. Returning an error aborts the save.
	Call(ctx context.Context, item FileItem) (FileItem, error)
}

// AsyncFilter is implemented by filters with a native non-blocking form.
// Filters that only implement Filter but declare ModeNonBlocking are run on
// their own goroutine.
type AsyncFilter interface {
	Filter
	CallAsync(ctx context.Context, item FileItem) *Future[FileItem]
}

// FilterFunc adapts a plain function into a Filter.
type FilterFunc struct {
	fn   func(ctx context.Context, item FileItem) (FileItem, error)
	name string
	mode Mode
}

// NewFilterFunc returns a Filter backed by fn.
func NewFilterFunc(name string, mode Mode, fn func(ctx context.Context, item FileItem) (FileItem, error)) *FilterFunc {
	return &FilterFunc{name: name, mode: mode, fn: fn}
}

// Mode implements Filter.
func (f *FilterFunc) Mode() Mode { return f.mode }

// Validate implements Filter.
func (f *FilterFunc) Validate(context.Context) error {
	if f.fn == nil {
		return configError(ErrInvalidValue, "", "Filter %s has no function", f)
	}
	return nil
}

// Call implements Filter.
func (f *FilterFunc) Call(ctx context.Context, item FileItem) (FileItem, error) {
	return f.fn(ctx, item)
}

func (f *FilterFunc) String() string {
	if f.name == "" {
		return "FilterFunc"
	}
	return f.name
}

// filterName is used in error messages.
func filterName(f Filter) string {
	if s, ok := f.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", f)
}

// callFilterAsync runs f in the non-blocking pipeline. Filters that do not
// support non-blocking use are called inline when allowInline is set.
func callFilterAsync(ctx context.Context, f Filter, item FileItem, allowInline bool) (FileItem, error) {
	if !f.Mode().NonBlocking() {
		if !allowInline {
			return item, configError(ErrModeMismatch, "",
				"The %s filter cannot be used asynchronously", filterName(f))
		}
		return f.Call(ctx, item)
	}
	if af, ok := f.(AsyncFilter); ok {
		return af.CallAsync(ctx, item).Await(ctx)
	}
	return Go(ctx, func(ctx context.Context) (FileItem, error) {
		return f.Call(ctx, item)
	}).Await(ctx)
}

// callFilter runs f in the blocking pipeline.
func callFilter(ctx context.Context, f Filter, item FileItem) (FileItem, error) {
	if !f.Mode().Blocking() {
		if af, ok := f.(AsyncFilter); ok {
			return af.CallAsync(ctx, item).Await(ctx)
		}
	}
	return f.Call(ctx, item)
}
