package httpstore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/filestorage"
	"github.com/dmitrymomot/filestorage/pkg/health"
	"github.com/dmitrymomot/filestorage/pkg/logger"
)

const (
	// RootStore addresses the root container in URLs.
	RootStore = "_"

	defaultFieldName = "file"
	defaultMaxMemory = 32 << 20
)

// Server exposes a finalized container tree over HTTP.
type Server struct {
	store     *filestorage.StorageContainer
	logger    *slog.Logger
	metrics   http.Handler
	healthOpt []health.Option
	fieldName string
	maxMemory int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for failed requests.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithFieldName sets the multipart field uploads are read from.
// Default is "file".
func WithFieldName(name string) Option {
	return func(s *Server) {
		if name != "" {
			s.fieldName = name
		}
	}
}

// WithMaxMemory sets how much of a multipart upload is kept in memory
// before spilling to temporary files.
func WithMaxMemory(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxMemory = n
		}
	}
}

// WithHealthOptions configures the readiness probe.
func WithHealthOptions(opts ...health.Option) Option {
	return func(s *Server) {
		s.healthOpt = append(s.healthOpt, opts...)
	}
}

// New returns a server for store.
func New(store *filestorage.StorageContainer, opts ...Option) *Server {
	s := &Server{
		store:     store,
		logger:    logger.NewNope(),
		fieldName: defaultFieldName,
		maxMemory: defaultMaxMemory,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the HTTP handler:
//
//	GET    /health/live
//	GET    /health/ready
//	GET    /metrics                    (WithMetrics only)
//	POST   /stores/{store}/files       multipart upload
//	GET    /stores/{store}/files/{name} stat and URL
//	HEAD   /stores/{store}/files/{name} existence
//	DELETE /stores/{store}/files/{name}
//
// {store} is a dotted lineage such as "avatars.small", or "_" for the root
// container. An optional ?folder=a/b query scopes the file operations.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID(), AccessLog(s.logger))

	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler(health.FromContainer(s.store),
		append([]health.Option{health.WithLogger(s.logger)}, s.healthOpt...)...))
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/stores/{store}/files", func(r chi.Router) {
		r.Post("/", s.upload)
		r.Get("/{name}", s.stat)
		r.Head("/{name}", s.exists)
		r.Delete("/{name}", s.delete)
	})
	return r
}

// Stored is the response to an upload or stat request.
type Stored struct {
	ModTime *time.Time `json:"mod_time,omitempty"`
	Name    string     `json:"name"`
	URL     string     `json:"url"`
	Size    int64      `json:"size,omitempty"`
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	folder, err := s.folder(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := r.ParseMultipartForm(s.maxMemory); err != nil {
		s.fail(w, r, errBadRequest("expected a multipart form: %v", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File[s.fieldName]
	if len(files) == 0 {
		s.fail(w, r, errBadRequest("missing form field %q", s.fieldName))
		return
	}

	ctx := r.Context()
	var name string
	if folder.Mode().Blocking() {
		name, err = folder.SaveField(ctx, files[0])
	} else {
		name, err = folder.SaveFieldAsync(ctx, files[0]).Await(ctx)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	url, err := folder.URL(name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Stored{Name: name, URL: url})
}

func (s *Server) stat(w http.ResponseWriter, r *http.Request) {
	folder, err := s.folder(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	name := chi.URLParam(r, "name")
	ctx := r.Context()

	found, err := exists(ctx, folder, name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !found {
		s.fail(w, r, errNotFound(name))
		return
	}

	url, err := folder.URL(name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := Stored{Name: name, URL: url}

	var info filestorage.FileInfo
	if folder.Mode().Blocking() {
		info, err = folder.Stat(ctx, name)
	} else {
		info, err = folder.StatAsync(ctx, name).Await(ctx)
	}
	switch {
	case err == nil:
		resp.Size = info.Size
		if !info.ModTime.IsZero() {
			resp.ModTime = &info.ModTime
		}
	case errors.Is(err, filestorage.ErrNotSupported):
	default:
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) exists(w http.ResponseWriter, r *http.Request) {
	folder, err := s.folder(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	found, err := exists(r.Context(), folder, chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	folder, err := s.folder(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	if folder.Mode().Blocking() {
		err = folder.Delete(ctx, name)
	} else {
		err = folder.DeleteAsync(ctx, name).Err(ctx)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func exists(ctx context.Context, folder *filestorage.Folder, name string) (bool, error) {
	if folder.Mode().Blocking() {
		return folder.Exists(ctx, name)
	}
	return folder.ExistsAsync(ctx, name).Await(ctx)
}

// folder resolves the {store} parameter and the folder query. Missing
// stores are never created.
func (s *Server) folder(r *http.Request) (*filestorage.Folder, error) {
	lineage := chi.URLParam(r, "store")
	store := s.store
	if lineage != RootStore {
		for key := range strings.SplitSeq(lineage, ".") {
			if !slices.Contains(store.Keys(), key) {
				return nil, errUnknownStore(lineage)
			}
			child, err := store.Store(key)
			if err != nil {
				return nil, err
			}
			store = child
		}
	}

	var segments []string
	for seg := range strings.SplitSeq(r.URL.Query().Get("folder"), "/") {
		if seg = strings.TrimSpace(seg); seg != "" {
			segments = append(segments, seg)
		}
	}
	return store.Join(segments...), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
