package internal

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandler_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := newFakeBackend()
	h := NewHandler(backend)

	name, err := h.SaveData(ctx, "a.txt", []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, "a.txt", name)

	data, ok := backend.get("a.txt")
	require.True(t, ok)
	require.Equal(t, []byte("hello"), data)

	exists, err := h.Exists(ctx, "a.txt")
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, h.Delete(ctx, "a.txt"))

	exists, err = h.Exists(ctx, "a.txt")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestHandler_AsyncRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := NewHandler(newFakeBothBackend())
	require.Equal(t, ModeBoth, h.Mode())

	name, err := h.SaveDataAsync(ctx, "a.txt", []byte("hello")).Await(ctx)
	require.NoError(t, err)
	require.Equal(t, "a.txt", name)

	exists, err := h.ExistsAsync(ctx, "a.txt").Await(ctx)
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, h.DeleteAsync(ctx, "a.txt").Err(ctx))

	exists, err = h.ExistsAsync(ctx, "a.txt").Await(ctx)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestHandler_SavePath(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := newFakeBackend()
	h := NewHandler(backend, WithPath("uploads", "2024"))

	_, err := h.SaveData(ctx, "a.txt", []byte("x"))
	require.NoError(t, err)

	_, ok := backend.get("uploads/2024/a.txt")
	require.True(t, ok)
}

func TestHandler_SaveSanitizesFilename(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := newFakeBackend()
	h := NewHandler(backend)

	name, err := h.SaveData(ctx, "../my report.txt", []byte("x"))
	require.NoError(t, err)
	require.Equal(t, "_my_report.txt", name)
}

func TestHandler_SaveRejectsEmptyFilename(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tests := []struct {
		name     string
		filename string
	}{
		{name: "empty", filename: ""},
		{name: "single dot", filename: "."},
		{name: "only dots", filename: "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			backend := newFakeBothBackend()
			called := false
			h := NewHandler(backend, WithPath("a", "b"), WithFilters(
				NewFilterFunc("spy", ModeBoth, func(_ context.Context, item FileItem) (FileItem, error) {
					called = true
					return item, nil
				}),
			))

			_, err := h.SaveData(ctx, tt.filename, []byte("x"))
			require.ErrorIs(t, err, ErrFileNotAllowed)
			var rejected *FileRejectedError
			require.ErrorAs(t, err, &rejected)
			require.Equal(t, ErrCodeNotAllowed, rejected.Code)

			_, err = h.SaveDataAsync(ctx, tt.filename, []byte("x")).Await(ctx)
			require.ErrorIs(t, err, ErrFileNotAllowed)

			require.False(t, called)
			require.Empty(t, backend.Calls())
		})
	}
}

func TestHandler_SaveNonSeekableReader(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := newFakeBackend()
	h := NewHandler(backend)

	r := io.MultiReader(strings.NewReader("hel"), strings.NewReader("lo"))
	_, err := h.SaveFile(ctx, "a.txt", r)
	require.NoError(t, err)

	data, _ := backend.get("a.txt")
	require.Equal(t, []byte("hello"), data)
}

func TestHandler_FiltersApplyInOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("blocking", func(t *testing.T) {
		t.Parallel()
		backend := newFakeBackend()
		h := NewHandler(backend, WithFilters(renameFilter("_1", ModeBlocking), renameFilter("_2", ModeBlocking)))

		name, err := h.SaveData(ctx, "a.txt", []byte("x"))
		require.NoError(t, err)
		require.Equal(t, "a.txt_1_2", name)
		_, ok := backend.get("a.txt_1_2")
		require.True(t, ok)
	})

	t.Run("non-blocking", func(t *testing.T) {
		t.Parallel()
		h := NewHandler(newFakeBothBackend(),
			WithFilters(renameFilter("_1", ModeBoth), renameFilter("_2", ModeBlocking)))

		name, err := h.SaveDataAsync(ctx, "a.txt", []byte("x")).Await(ctx)
		require.NoError(t, err)
		require.Equal(t, "a.txt_1_2", name)
	})
}

func TestHandler_FilterRejectionAbortsSave(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := newFakeBackend()
	reject := NewFilterFunc("reject", ModeBoth, func(_ context.Context, item FileItem) (FileItem, error) {
		return item, NewFileRejectedError(item.Filename, ErrCodeNotAllowed, "nope", nil)
	})
	after := renameFilter("_never", ModeBoth)
	h := NewHandler(backend, WithFilters(reject, after))

	_, err := h.SaveData(ctx, "a.txt", []byte("x"))
	require.ErrorIs(t, err, ErrFileNotAllowed)
	require.NotContains(t, backend.Calls(), OpSave)

	exists, err := h.Exists(ctx, "a.txt")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestHandler_ModeMismatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("blocking save on async-only handler", func(t *testing.T) {
		t.Parallel()
		backend := newFakeAsyncBackend()
		h := NewHandler(backend, WithAllowSyncMethods(false))
		require.Equal(t, ModeNonBlocking, h.Mode())

		_, err := h.SaveFile(ctx, "a.txt", strings.NewReader("x"))
		require.ErrorIs(t, err, ErrConfig)
		require.ErrorIs(t, err, ErrModeMismatch)
		require.Empty(t, backend.inner.Calls())

		_, err = h.Exists(ctx, "a.txt")
		require.ErrorIs(t, err, ErrModeMismatch)
		require.ErrorIs(t, h.Delete(ctx, "a.txt"), ErrModeMismatch)
		require.Empty(t, backend.inner.Calls())
	})

	t.Run("async save on blocking-only handler", func(t *testing.T) {
		t.Parallel()
		backend := newFakeBackend()
		h := NewHandler(backend)
		require.Equal(t, ModeBlocking, h.Mode())

		f := h.SaveDataAsync(ctx, "a.txt", []byte("x"))
		select {
		case <-f.Done():
		default:
			t.Fatal("mode mismatch must be reported without waiting")
		}
		require.ErrorIs(t, f.Err(ctx), ErrModeMismatch)
		require.ErrorIs(t, h.ExistsAsync(ctx, "a.txt").Err(ctx), ErrModeMismatch)
		require.ErrorIs(t, h.DeleteAsync(ctx, "a.txt").Err(ctx), ErrModeMismatch)
		require.Empty(t, backend.Calls())
	})

	t.Run("blocking calls await a non-blocking backend", func(t *testing.T) {
		t.Parallel()
		backend := newFakeAsyncBackend()
		h := NewHandler(backend)
		require.Equal(t, ModeBoth, h.Mode())

		name, err := h.SaveData(ctx, "a.txt", []byte("x"))
		require.NoError(t, err)
		require.Equal(t, "a.txt", name)
		exists, err := h.Exists(ctx, "a.txt")
		require.NoError(t, err)
		require.True(t, exists)
	})
}

func TestHandler_URL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		baseURL  string
		path     []string
		filename string
		want     string
	}{
		{"no base url", "", nil, "a.txt", "a.txt"},
		{"no base url with path", "", []string{"x", "y"}, "a.txt", "x/y/a.txt"},
		{"base with trailing slash", "https://cdn.example.com/static/", []string{"x"}, "a.txt", "https://cdn.example.com/static/x/a.txt"},
		{"base without trailing slash", "https://cdn.example.com/static", nil, "a.txt", "https://cdn.example.com/a.txt"},
		{"relative base", "/media/", nil, "a.txt", "/media/a.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := NewHandler(newFakeBackend(), WithBaseURL(tt.baseURL), WithPath(tt.path...))
			got, err := h.URL(tt.filename)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestHandler_Validate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		backend := newFakeBackend()
		h := NewHandler(backend, WithFilters(renameFilter("_1", ModeBlocking)))
		require.NoError(t, h.Validate(ctx))
		require.NoError(t, h.ValidateAsync(ctx).Err(ctx))
		require.Equal(t, []string{OpValidate, OpValidate}, backend.Calls())
	})

	t.Run("backend failure", func(t *testing.T) {
		t.Parallel()
		backend := newFakeBackend()
		backend.validateErr = errors.New("no credentials")
		h := NewHandler(backend)
		require.EqualError(t, h.Validate(ctx), "no credentials")
		require.EqualError(t, h.ValidateAsync(ctx).Err(ctx), "no credentials")
	})

	t.Run("filter failure", func(t *testing.T) {
		t.Parallel()
		h := NewHandler(newFakeBackend(), WithFilters(&FilterFunc{name: "empty", mode: ModeBoth}))
		require.ErrorIs(t, h.Validate(ctx), ErrConfig)
	})

	t.Run("nil filter", func(t *testing.T) {
		t.Parallel()
		h := NewHandler(newFakeBackend(), WithFilters(nil))
		require.ErrorIs(t, h.Validate(ctx), ErrInvalidValue)
	})

	t.Run("blocking filter in strict non-blocking handler", func(t *testing.T) {
		t.Parallel()
		h := NewHandler(newFakeAsyncBackend(),
			WithAllowSyncMethods(false),
			WithFilters(renameFilter("_1", ModeBlocking)))
		err := h.ValidateAsync(ctx).Err(ctx)
		require.ErrorIs(t, err, ErrModeMismatch)
		require.Contains(t, err.Error(), "rename_1")
	})

	t.Run("blocking filter allowed inline", func(t *testing.T) {
		t.Parallel()
		h := NewHandler(newFakeAsyncBackend(), WithFilters(renameFilter("_1", ModeBlocking)))
		require.NoError(t, h.ValidateAsync(ctx).Err(ctx))
		require.NoError(t, h.Validate(ctx))
	})

	t.Run("strict non-blocking handler refuses blocking validation", func(t *testing.T) {
		t.Parallel()
		h := NewHandler(newFakeAsyncBackend(), WithAllowSyncMethods(false))
		require.ErrorIs(t, h.Validate(ctx), ErrModeMismatch)
		require.NoError(t, h.ValidateAsync(ctx).Err(ctx))
	})

	t.Run("invalid base url", func(t *testing.T) {
		t.Parallel()
		h := NewHandler(newFakeBackend(), WithBaseURL("http://[::1"))
		require.ErrorIs(t, h.Validate(ctx), ErrInvalidValue)
	})

	t.Run("nil backend", func(t *testing.T) {
		t.Parallel()
		h := NewHandler(nil)
		require.ErrorIs(t, h.Validate(ctx), ErrConfig)
		_, err := h.SaveData(ctx, "a.txt", nil)
		require.ErrorIs(t, err, ErrConfig)
	})
}

func TestHandler_SaveField(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("stores the upload", func(t *testing.T) {
		t.Parallel()
		backend := newFakeBackend()
		h := NewHandler(backend)

		name, err := h.SaveField(ctx, newFileHeader(t, "photo.png", []byte("png")))
		require.NoError(t, err)
		require.Equal(t, "photo.png", name)
		data, _ := backend.get("photo.png")
		require.Equal(t, []byte("png"), data)
	})

	t.Run("missing filename", func(t *testing.T) {
		t.Parallel()
		h := NewHandler(newFakeBothBackend())
		fh := newFileHeader(t, "x.bin", []byte("data"))
		fh.Filename = ""

		name, err := h.SaveFieldAsync(ctx, fh).Await(ctx)
		require.NoError(t, err)
		require.Equal(t, "file", name)
	})

	t.Run("missing field", func(t *testing.T) {
		t.Parallel()
		h := NewHandler(newFakeBackend())
		_, err := h.SaveField(ctx, nil)
		require.ErrorIs(t, err, ErrEmptyField)
	})

	t.Run("empty upload is stored", func(t *testing.T) {
		t.Parallel()
		backend := newFakeBackend()
		h := NewHandler(backend)

		name, err := h.SaveField(ctx, newFileHeader(t, "empty.txt", nil))
		require.NoError(t, err)
		require.Equal(t, "empty.txt", name)
		data, ok := backend.get("empty.txt")
		require.True(t, ok)
		require.Empty(t, data)
	})
}

func TestHandler_Stat(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	h := NewHandler(newFakeBackend())
	_, err := h.SaveData(ctx, "a.txt", []byte("hello"))
	require.NoError(t, err)

	info, err := h.Stat(ctx, "a.txt")
	require.NoError(t, err)
	require.Equal(t, "a.txt", info.Name)
	require.Equal(t, int64(5), info.Size)

	async := NewHandler(newFakeAsyncBackend())
	_, err = async.StatAsync(ctx, "a.txt").Await(ctx)
	require.ErrorIs(t, err, ErrNotSupported)
}

func TestHandler_Observer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	obs := &recordingObserver{}
	h := NewHandler(newFakeBackend(), WithName("avatars"), WithObserver(obs))

	_, err := h.SaveData(ctx, "a.txt", []byte("x"))
	require.NoError(t, err)
	_, err = h.Exists(ctx, "a.txt")
	require.NoError(t, err)

	events := obs.Events()
	require.Len(t, events, 2)
	require.Equal(t, "avatars", events[0].handler)
	require.Equal(t, OpSave, events[0].op)
	require.Equal(t, OpExists, events[1].op)
}

func TestHandler_String(t *testing.T) {
	t.Parallel()

	h := NewHandler(newFakeBackend(), WithName("avatars"))
	require.Equal(t, `<*internal.fakeBackend("avatars")>`, h.String())
}
