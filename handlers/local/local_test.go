package local_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/filestorage"
	"github.com/dmitrymomot/filestorage/handlers/local"
)

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := local.New(local.Config{})
	require.ErrorIs(t, err, local.ErrInvalidConfig)

	b, err := local.New(local.Config{BasePath: t.TempDir()})
	require.NoError(t, err)
	require.Equal(t, filestorage.ModeBoth, b.Mode())
}

func TestBackend_Validate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("missing directory", func(t *testing.T) {
		t.Parallel()
		b, err := local.New(local.Config{BasePath: filepath.Join(t.TempDir(), "missing")})
		require.NoError(t, err)
		err = b.Validate(ctx)
		require.ErrorIs(t, err, filestorage.ErrConfig)
		require.Contains(t, err.Error(), "does not exist")
	})

	t.Run("auto make dir", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "a", "b")
		b, err := local.New(local.Config{BasePath: dir, AutoMakeDir: true})
		require.NoError(t, err)
		require.NoError(t, b.Validate(ctx))
		fi, err := os.Stat(dir)
		require.NoError(t, err)
		require.True(t, fi.IsDir())
	})
}

func TestBackend_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	b, err := local.New(local.Config{BasePath: dir, AutoMakeDir: true})
	require.NoError(t, err)

	store := filestorage.New()
	require.NoError(t, store.SetHandler(filestorage.NewHandler(b)))
	require.NoError(t, store.FinalizeConfig(ctx))

	folder := store.Join("docs", "2024")
	name, err := folder.SaveData(ctx, "a.txt", []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, "a.txt", name)

	data, err := os.ReadFile(filepath.Join(dir, "docs", "2024", "a.txt"))
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)

	exists, err := folder.Exists(ctx, "a.txt")
	require.NoError(t, err)
	require.True(t, exists)

	info, err := folder.Stat(ctx, "a.txt")
	require.NoError(t, err)
	require.Equal(t, int64(5), info.Size)
	require.False(t, info.ModTime.IsZero())

	require.NoError(t, folder.Delete(ctx, "a.txt"))
	exists, err = folder.Exists(ctx, "a.txt")
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, folder.Delete(ctx, "a.txt"))
}

func TestBackend_UniqueNames(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	b, err := local.New(local.Config{BasePath: dir})
	require.NoError(t, err)
	h := filestorage.NewHandler(b)

	names := make([]string, 0, 3)
	for range 3 {
		name, err := h.SaveData(ctx, "photo.png", []byte("x"))
		require.NoError(t, err)
		names = append(names, name)
	}
	require.Equal(t, []string{"photo.png", "photo-1.png", "photo-2.png"}, names)
}

func TestBackend_AsyncSave(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	b, err := local.New(local.Config{BasePath: dir})
	require.NoError(t, err)
	h := filestorage.NewHandler(b, filestorage.WithAllowSyncMethods(false))
	require.NoError(t, h.ValidateAsync(ctx).Err(ctx))

	name, err := h.SaveDataAsync(ctx, "a.txt", []byte("async")).Await(ctx)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	require.Equal(t, []byte("async"), data)

	_, err = h.SaveData(ctx, "b.txt", []byte("x"))
	require.ErrorIs(t, err, filestorage.ErrModeMismatch)
}

func TestBackend_UnsafePath(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b, err := local.New(local.Config{BasePath: t.TempDir()})
	require.NoError(t, err)
	h := filestorage.NewHandler(b, filestorage.WithPath("..", "escape"))

	_, err = h.SaveData(ctx, "a.txt", []byte("x"))
	require.ErrorIs(t, err, local.ErrUnsafePath)
}

func TestBackend_EmptyFilename(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	b, err := local.New(local.Config{BasePath: dir, AutoMakeDir: true})
	require.NoError(t, err)

	store := filestorage.New()
	require.NoError(t, store.SetHandler(filestorage.NewHandler(b)))
	require.NoError(t, store.FinalizeConfig(ctx))
	folder := store.Join("a", "b")

	for _, name := range []string{"...", ".", ""} {
		_, err := folder.SaveData(ctx, name, []byte("x"))
		require.ErrorIs(t, err, filestorage.ErrFileNotAllowed, "filename %q", name)
	}
	_, err = os.Stat(filepath.Join(dir, "a", "b"))
	require.ErrorIs(t, err, os.ErrNotExist)

	name, err := folder.SaveData(ctx, "real.txt", []byte("x"))
	require.NoError(t, err)
	require.Equal(t, "real.txt", name)
	fi, err := os.Stat(filepath.Join(dir, "a", "b"))
	require.NoError(t, err)
	require.True(t, fi.IsDir())

	for _, name := range []string{"", ".", ".."} {
		item := filestorage.NewFileItem(name, []string{"a"}, nil).WithBytes([]byte("x"))
		_, err := b.Save(ctx, item)
		require.ErrorIs(t, err, local.ErrInvalidName, "filename %q", name)
	}
}
