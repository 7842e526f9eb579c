package httpstore

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/filestorage/pkg/logger"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID reuses the incoming X-Request-ID or generates a time-ordered
// UUID, echoes it in the response and attaches it to the request context
// as a log attribute, so storage operation logs carry it too.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = newRequestID()
			}
			w.Header().Set(RequestIDHeader, id)
			ctx := logger.WithAttrs(r.Context(), slog.String("request_id", id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newRequestID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
