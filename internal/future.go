package internal

import (
	"context"
	"fmt"
)

// Future is the result of a non-blocking operation.
// The value becomes available once Done is closed.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go runs fn on a new goroutine and returns a Future for its result.
// A panic inside fn is converted into an error on the Future.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("filestorage: panic in non-blocking call: %v", r)
			}
		}()
		f.val, f.err = fn(ctx)
	}()
	return f
}

// Resolved returns a Future that is already complete.
func Resolved[T any](val T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), val: val, err: err}
	close(f.done)
	return f
}

// Failed returns a completed Future carrying err.
func Failed[T any](err error) *Future[T] {
	var zero T
	return Resolved(zero, err)
}

// Done is closed when the result is ready.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is ready or ctx is done.
// Cancelling ctx stops the wait, not the underlying operation.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Err waits for completion and returns only the error.
func (f *Future[T]) Err(ctx context.Context) error {
	_, err := f.Await(ctx)
	return err
}

// Then chains fn after f on a new goroutine.
func Then[T, U any](ctx context.Context, f *Future[T], fn func(ctx context.Context, val T) (U, error)) *Future[U] {
	return Go(ctx, func(ctx context.Context) (U, error) {
		val, err := f.Await(ctx)
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(ctx, val)
	})
}
