package redis

import "errors"

var (
	ErrEmptyConnectionURL = errors.New("redis: empty connection URL")
	ErrFailedToParseURL   = errors.New("redis: failed to parse connection URL")
	ErrConnectionFailed   = errors.New("redis: failed to establish connection")
	ErrNilClient          = errors.New("redis: nil client")
	ErrNoData             = errors.New("redis: no data to save")
	ErrFileTooLarge       = errors.New("redis: file exceeds the size limit")
	ErrNoUniqueName       = errors.New("redis: cannot find a unique filename")
	ErrNotFound           = errors.New("redis: file not found")
)
