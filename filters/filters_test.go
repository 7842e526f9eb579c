package filters_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/filestorage"
	"github.com/dmitrymomot/filestorage/filters"
	"github.com/dmitrymomot/filestorage/handlers/memory"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func item(filename string, data []byte) filestorage.FileItem {
	return filestorage.NewFileItem(filename, []string{"uploads"}, nil).WithBytes(data)
}

func TestRandomizeFilename(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	uuidRe := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

	t.Run("default generator keeps lowercased extension", func(t *testing.T) {
		t.Parallel()
		f := filters.RandomizeFilename()
		require.NoError(t, f.Validate(ctx))

		got, err := f.Call(ctx, item("Holiday.JPG", []byte("x")))
		require.NoError(t, err)
		require.Regexp(t, uuidRe, got.Filename)
		require.Equal(t, ".jpg", got.Filename[len(got.Filename)-4:])
		require.Equal(t, []string{"uploads"}, got.Path)
	})

	t.Run("no extension", func(t *testing.T) {
		t.Parallel()
		got, err := filters.RandomizeFilename().Call(ctx, item("README", nil))
		require.NoError(t, err)
		require.Len(t, got.Filename, 36)
	})

	t.Run("custom generator receives the stem", func(t *testing.T) {
		t.Parallel()
		f := filters.RandomizeFilename(filters.WithGenerator(func(stem string) string {
			return "x-" + stem
		}))
		got, err := f.Call(ctx, item("report.PDF", nil))
		require.NoError(t, err)
		require.Equal(t, "x-report.pdf", got.Filename)
	})

	t.Run("time ordered", func(t *testing.T) {
		t.Parallel()
		f := filters.RandomizeFilename(filters.WithTimeOrdered())
		got, err := f.Call(ctx, item("a.png", nil))
		require.NoError(t, err)
		require.Regexp(t, uuidRe, got.Filename)
		require.Equal(t, byte('7'), got.Filename[14])
	})

	t.Run("nil generator fails validation", func(t *testing.T) {
		t.Parallel()
		err := filters.RandomizeFilename(filters.WithGenerator(nil)).Validate(ctx)
		require.ErrorIs(t, err, filestorage.ErrConfig)
	})
}

func TestValidateExtension(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tests := []struct {
		name     string
		allowed  []string
		filename string
		wantErr  bool
	}{
		{name: "listed", allowed: []string{"txt", "html"}, filename: "file.txt"},
		{name: "case insensitive", allowed: []string{"PNG"}, filename: "photo.Png"},
		{name: "leading dot ignored", allowed: []string{".jpg"}, filename: "a.jpg"},
		{name: "empty list allows all", allowed: nil, filename: "anything.exe"},
		{name: "not listed", allowed: []string{"png", "jpg"}, filename: "file.txt", wantErr: true},
		{name: "no extension", allowed: []string{"png"}, filename: "file", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := item(tt.filename, []byte("content"))
			got, err := filters.ValidateExtension(tt.allowed...).Call(ctx, in)
			if tt.wantErr {
				require.ErrorIs(t, err, filestorage.ErrExtensionNotAllowed)
				require.ErrorIs(t, err, filestorage.ErrFileNotAllowed)
				var rejected *filestorage.FileRejectedError
				require.True(t, errors.As(err, &rejected))
				require.Equal(t, tt.filename, rejected.Filename)
				return
			}
			require.NoError(t, err)
			require.True(t, in.Equal(got))
		})
	}

	t.Run("empty entry fails validation", func(t *testing.T) {
		t.Parallel()
		err := filters.ValidateExtension("png", "").Validate(ctx)
		require.ErrorIs(t, err, filestorage.ErrConfig)
	})
}

func TestValidateExtension_NothingStored(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := memory.New()
	h := filestorage.NewHandler(backend, filestorage.WithFilters(filters.ValidateExtension("png")))
	require.NoError(t, h.Validate(ctx))

	_, err := h.SaveData(ctx, "doc.txt", []byte("text"))
	require.ErrorIs(t, err, filestorage.ErrExtensionNotAllowed)
	require.Empty(t, backend.Files())

	_, err = h.SaveDataAsync(ctx, "doc.txt", []byte("text")).Await(ctx)
	require.ErrorIs(t, err, filestorage.ErrExtensionNotAllowed)
	require.Empty(t, backend.Files())
}

func TestAllowedTypes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("image accepted and typed", func(t *testing.T) {
		t.Parallel()
		got, err := filters.ImageOnly().Call(ctx, item("avatar.bin", pngHeader))
		require.NoError(t, err)
		require.Equal(t, "image/png", got.MediaType)
		require.Equal(t, "image/png", got.ContentType())
	})

	t.Run("renamed text rejected", func(t *testing.T) {
		t.Parallel()
		_, err := filters.ImageOnly().Call(ctx, item("fake.png", []byte("just some text")))
		require.ErrorIs(t, err, filestorage.ErrFileNotAllowed)
		require.NotErrorIs(t, err, filestorage.ErrExtensionNotAllowed)

		var rejected *filestorage.FileRejectedError
		require.True(t, errors.As(err, &rejected))
		require.Equal(t, filestorage.ErrCodeInvalidType, rejected.Code)
		require.Equal(t, "text/plain", rejected.Details["type"])
	})

	t.Run("csv refined from filename", func(t *testing.T) {
		t.Parallel()
		got, err := filters.DocumentsOnly().Call(ctx, item("q1.csv", []byte("a,b\n1,2\n")))
		require.NoError(t, err)
		require.Equal(t, "text/csv", got.MediaType)
	})

	t.Run("stream rewound after sniffing", func(t *testing.T) {
		t.Parallel()
		in := item("a.png", pngHeader)
		_, err := filters.ImageOnly().Call(ctx, in)
		require.NoError(t, err)
		pos, err := in.Data.Seek(0, 1)
		require.NoError(t, err)
		require.Zero(t, pos)
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()
		require.ErrorIs(t, filters.AllowedTypes().Validate(ctx), filestorage.ErrConfig)
		require.ErrorIs(t, filters.AllowedTypes("image").Validate(ctx), filestorage.ErrConfig)
		require.NoError(t, filters.DocumentsOnly().Validate(ctx))
	})
}

func TestSize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tests := []struct {
		name     string
		filter   *filters.Size
		data     []byte
		wantCode string
	}{
		{name: "under limit", filter: filters.MaxSize(4), data: []byte("abc")},
		{name: "at limit", filter: filters.MaxSize(4), data: []byte("abcd")},
		{name: "over limit", filter: filters.MaxSize(4), data: []byte("abcde"), wantCode: filestorage.ErrCodeFileTooLarge},
		{name: "not empty", filter: filters.NotEmpty(), data: []byte("a")},
		{name: "empty", filter: filters.NotEmpty(), data: nil, wantCode: filestorage.ErrCodeEmptyFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.NoError(t, tt.filter.Validate(ctx))
			_, err := tt.filter.Call(ctx, item("a.bin", tt.data))
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			var rejected *filestorage.FileRejectedError
			require.True(t, errors.As(err, &rejected))
			require.Equal(t, tt.wantCode, rejected.Code)
		})
	}

	require.ErrorIs(t, filters.MaxSize(0).Validate(ctx), filestorage.ErrConfig)
	require.ErrorIs(t, filters.MaxSize(-1).Validate(ctx), filestorage.ErrConfig)
}

func TestFuncAndLowercase(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	got, err := filters.Lowercase().Call(ctx, item("MiXeD.TXT", nil))
	require.NoError(t, err)
	require.Equal(t, "mixed.txt", got.Filename)

	blocking := filters.BlockingFunc("stamp", func(_ context.Context, it filestorage.FileItem) (filestorage.FileItem, error) {
		return it.WithFilename("stamped-" + it.Filename), nil
	})
	require.Equal(t, filestorage.ModeBlocking, blocking.Mode())

	backend := memory.New()
	strict := filestorage.NewHandler(backend,
		filestorage.WithAllowSyncMethods(false),
		filestorage.WithFilters(blocking),
	)
	require.ErrorIs(t, strict.ValidateAsync(ctx).Err(ctx), filestorage.ErrConfig)

	relaxed := filestorage.NewHandler(backend, filestorage.WithFilters(blocking, filters.Lowercase()))
	name, err := relaxed.SaveDataAsync(ctx, "A.txt", []byte("x")).Await(ctx)
	require.NoError(t, err)
	require.Equal(t, "stamped-a.txt", name)
}
