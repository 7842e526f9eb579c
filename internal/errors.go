package internal

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrConfig is matched by every configuration error.
	ErrConfig = errors.New("filestorage: configuration error")

	// Configuration error causes.
	ErrNoHandler     = errors.New("filestorage: no handler provided")
	ErrStoreDisabled = errors.New("filestorage: store is disabled")
	ErrFinalized     = errors.New("filestorage: store already finalized")
	ErrModeMismatch  = errors.New("filestorage: call mode not supported")
	ErrInvalidValue  = errors.New("filestorage: invalid configuration value")

	// File policy errors.
	ErrFileNotAllowed      = errors.New("filestorage: file not allowed")
	ErrExtensionNotAllowed = errors.New("filestorage: file extension not allowed")

	// Input errors.
	ErrEmptyField = errors.New("filestorage: no file data in the field")

	// ErrNotSupported is returned when a backend lacks an optional operation.
	ErrNotSupported = errors.New("filestorage: operation not supported by backend")
)

// ConfigError describes a use-before-ready, use-after-finalize, mode mismatch
// or failed validation. It always matches ErrConfig.
type ConfigError struct {
	Err   error  // Cause, one of the sentinels above or a validation failure
	Store string // Container lineage, e.g. "['a']['b']"
	Msg   string // Human-readable message
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return e.Msg
}

// Unwrap returns the cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is reports ErrConfig for every ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// configError builds a ConfigError with a formatted message.
func configError(cause error, store, format string, args ...any) *ConfigError {
	return &ConfigError{
		Err:   cause,
		Store: store,
		Msg:   fmt.Sprintf(format, args...),
	}
}

// NewConfigError returns a ConfigError for use by backends, filters and adapters.
func NewConfigError(cause error, format string, args ...any) error {
	return configError(cause, "", format, args...)
}

// Error codes for FileRejectedError.
const (
	ErrCodeNotAllowed       = "not_allowed"
	ErrCodeInvalidExtension = "invalid_extension"
	ErrCodeInvalidType      = "invalid_type"
	ErrCodeFileTooLarge     = "file_too_large"
	ErrCodeEmptyFile        = "empty_file"
)

// FileRejectedError is returned when a file fails a content policy.
// It matches ErrFileNotAllowed, and ErrExtensionNotAllowed when Code is
// ErrCodeInvalidExtension.
type FileRejectedError struct {
	Details  map[string]any // Error-specific data
	Filename string         // Name of the rejected file
	Code     string         // Error code, e.g. "invalid_extension"
	Message  string         // Human-readable message
}

// Error implements the error interface.
func (e *FileRejectedError) Error() string {
	return e.Message
}

// Is matches the file policy sentinels.
func (e *FileRejectedError) Is(target error) bool {
	switch target {
	case ErrFileNotAllowed:
		return true
	case ErrExtensionNotAllowed:
		return e.Code == ErrCodeInvalidExtension
	}
	return false
}

// NewFileRejectedError builds a FileRejectedError.
func NewFileRejectedError(filename, code, message string, details map[string]any) *FileRejectedError {
	if details == nil {
		details = map[string]any{}
	}
	return &FileRejectedError{
		Filename: filename,
		Code:     code,
		Message:  message,
		Details:  details,
	}
}
