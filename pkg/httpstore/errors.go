package httpstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/filestorage"
)

// Sentinel errors for request problems detected by the server itself.
var (
	ErrBadRequest   = errors.New("httpstore: bad request")
	ErrNotFound     = errors.New("httpstore: file not found")
	ErrUnknownStore = errors.New("httpstore: unknown store")
)

func errBadRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

func errNotFound(name string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, name)
}

func errUnknownStore(lineage string) error {
	return fmt.Errorf("%w: %s", ErrUnknownStore, lineage)
}

// ErrorResponse is the JSON body of a failed request.
type ErrorResponse struct {
	Details map[string]any `json:"details,omitempty"`
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
}

// statusFor maps storage errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, filestorage.ErrEmptyField):
		return http.StatusBadRequest
	case errors.Is(err, filestorage.ErrFileNotAllowed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownStore), errors.Is(err, fs.ErrNotExist),
		errors.Is(err, filestorage.ErrNoHandler), errors.Is(err, filestorage.ErrStoreDisabled):
		return http.StatusNotFound
	case errors.Is(err, filestorage.ErrNotSupported):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error()}

	var rej *filestorage.FileRejectedError
	if errors.As(err, &rej) {
		resp.Code = rej.Code
		resp.Error = rej.Message
		resp.Details = rej.Details
	}
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "storage request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		// Backend and configuration errors stay in the log.
		resp = ErrorResponse{Error: http.StatusText(status)}
	}
	writeJSON(w, status, resp)
}
