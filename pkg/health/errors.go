package health

import "errors"

var (
	// ErrCheckFailed is returned by Err when one or more checks fail.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout replaces the error of a check that ran out of time.
	ErrCheckTimeout = errors.New("health: check timeout")
)

// Err returns ErrCheckFailed for an unhealthy response.
func (r *Response) Err() error {
	if r.Status == StatusUnhealthy {
		return ErrCheckFailed
	}
	return nil
}
