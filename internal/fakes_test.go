package internal

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeBackend is a blocking in-memory backend that records every call.
type fakeBackend struct {
	files       map[string][]byte
	validateErr error
	calls       []string
	mu          sync.Mutex
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{files: make(map[string][]byte)}
}

func (b *fakeBackend) Mode() Mode { return ModeBlocking }

func (b *fakeBackend) record(call string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
}

func (b *fakeBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *fakeBackend) Validate(context.Context) error {
	b.record(OpValidate)
	return b.validateErr
}

func (b *fakeBackend) Exists(_ context.Context, item FileItem) (bool, error) {
	b.record(OpExists)
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.files[item.URLPath()]
	return ok, nil
}

func (b *fakeBackend) Delete(_ context.Context, item FileItem) error {
	b.record(OpDelete)
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.files, item.URLPath())
	return nil
}

func (b *fakeBackend) Save(_ context.Context, item FileItem) (string, error) {
	b.record(OpSave)
	var data []byte
	err := item.Use(func(r *Reader) error {
		var err error
		data, err = io.ReadAll(r)
		return err
	})
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[item.URLPath()] = data
	return item.Filename, nil
}

func (b *fakeBackend) Stat(_ context.Context, item FileItem) (FileInfo, error) {
	b.record(OpStat)
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.files[item.URLPath()]
	if !ok {
		return FileInfo{}, io.ErrUnexpectedEOF
	}
	return FileInfo{Size: int64(len(data)), ModTime: time.Unix(0, 0)}, nil
}

func (b *fakeBackend) get(key string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.files[key]
	return data, ok
}

// fakeBothBackend supports both method sets.
type fakeBothBackend struct {
	*fakeBackend
	AsyncAdapter
}

func newFakeBothBackend() *fakeBothBackend {
	inner := newFakeBackend()
	return &fakeBothBackend{fakeBackend: inner, AsyncAdapter: AsyncAdapter{B: inner}}
}

func (b *fakeBothBackend) Mode() Mode { return ModeBoth }

// fakeAsyncBackend implements only the non-blocking method set.
type fakeAsyncBackend struct {
	inner *fakeBackend
}

func newFakeAsyncBackend() *fakeAsyncBackend {
	return &fakeAsyncBackend{inner: newFakeBackend()}
}

func (b *fakeAsyncBackend) Mode() Mode { return ModeNonBlocking }

func (b *fakeAsyncBackend) ValidateAsync(ctx context.Context) *Future[struct{}] {
	return AsyncAdapter{B: b.inner}.ValidateAsync(ctx)
}

func (b *fakeAsyncBackend) ExistsAsync(ctx context.Context, item FileItem) *Future[bool] {
	return AsyncAdapter{B: b.inner}.ExistsAsync(ctx, item)
}

func (b *fakeAsyncBackend) DeleteAsync(ctx context.Context, item FileItem) *Future[struct{}] {
	return AsyncAdapter{B: b.inner}.DeleteAsync(ctx, item)
}

func (b *fakeAsyncBackend) SaveAsync(ctx context.Context, item FileItem) *Future[string] {
	return AsyncAdapter{B: b.inner}.SaveAsync(ctx, item)
}

// renameFilter appends suffix to the filename.
func renameFilter(suffix string, mode Mode) *FilterFunc {
	return NewFilterFunc("rename"+suffix, mode, func(_ context.Context, item FileItem) (FileItem, error) {
		return item.WithFilename(item.Filename + suffix), nil
	})
}

type observation struct {
	err     error
	handler string
	op      string
}

type recordingObserver struct {
	events []observation
	mu     sync.Mutex
}

func (o *recordingObserver) ObserveOperation(_ context.Context, handler, op string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, observation{handler: handler, op: op, err: err})
}

func (o *recordingObserver) Events() []observation {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]observation(nil), o.events...)
}

// newFileHeader builds a multipart file header the way net/http would.
func newFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", "application/octet-stream")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	files := form.File["file"]
	require.Len(t, files, 1)
	return files[0]
}
