package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/filestorage"
)

type fakeRow struct {
	err  error
	vals []any
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.vals) {
		return fmt.Errorf("scan: want %d values, got %d", len(r.vals), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *bool:
			*p = r.vals[i].(bool)
		case *int64:
			*p = r.vals[i].(int64)
		case *string:
			*p = r.vals[i].(string)
		case *[]byte:
			*p = r.vals[i].([]byte)
		case *time.Time:
			*p = r.vals[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

type fakeFile struct {
	contentType string
	data        []byte
	created     time.Time
	accessed    time.Time
}

// fakeDB interprets the backend's queries against a map.
type fakeDB struct {
	mu      sync.Mutex
	files   map[string]fakeFile
	noTable bool
	pingErr error
}

func newFakeDB() *fakeDB {
	return &fakeDB{files: make(map[string]fakeFile)}
}

func (f *fakeDB) Ping(context.Context) error { return f.pingErr }

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch sql {
	case queryDelete:
		key := args[0].(string)
		if _, ok := f.files[key]; !ok {
			return pgconn.NewCommandTag("DELETE 0"), nil
		}
		delete(f.files, key)
		return pgconn.NewCommandTag("DELETE 1"), nil
	case queryInsert:
		key := args[0].(string)
		if _, ok := f.files[key]; ok {
			return pgconn.NewCommandTag("INSERT 0 0"), nil
		}
		f.files[key] = fakeFile{
			contentType: args[1].(string),
			data:        args[3].([]byte),
			created:     args[4].(time.Time),
			accessed:    args[4].(time.Time),
		}
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return pgconn.CommandTag{}, fmt.Errorf("unexpected exec: %s", sql)
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch sql {
	case queryTableExists:
		return fakeRow{vals: []any{!f.noTable}}
	case queryExists:
		_, ok := f.files[args[0].(string)]
		return fakeRow{vals: []any{ok}}
	case queryStat:
		file, ok := f.files[args[0].(string)]
		if !ok {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{vals: []any{int64(len(file.data)), file.created, file.created, file.accessed}}
	case queryLoad:
		key := args[0].(string)
		file, ok := f.files[key]
		if !ok {
			return fakeRow{err: pgx.ErrNoRows}
		}
		file.accessed = args[1].(time.Time)
		f.files[key] = file
		return fakeRow{vals: []any{file.data, file.contentType}}
	}
	return fakeRow{err: fmt.Errorf("unexpected query: %s", sql)}
}

func newTestBackend(t *testing.T, db *fakeDB, cfg Config) *Backend {
	t.Helper()
	b, err := New(db, cfg)
	require.NoError(t, err)
	b.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return b
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{})
	require.ErrorIs(t, err, ErrNilDB)

	b, err := New(newFakeDB(), Config{})
	require.NoError(t, err)
	require.Equal(t, int64(DefaultMaxSize), b.cfg.MaxSize)
	require.Equal(t, filestorage.ModeBoth, b.Mode())
}

func TestBackend_Validate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tests := []struct {
		name    string
		db      *fakeDB
		wantErr bool
	}{
		{name: "ok", db: newFakeDB()},
		{name: "unreachable", db: &fakeDB{pingErr: errors.New("refused")}, wantErr: true},
		{name: "missing table", db: &fakeDB{noTable: true}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := newTestBackend(t, tt.db, Config{}).Validate(ctx)
			if tt.wantErr {
				require.ErrorIs(t, err, filestorage.ErrConfig)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestBackend_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newFakeDB()
	b := newTestBackend(t, db, Config{})

	store := filestorage.New()
	require.NoError(t, store.SetHandler(filestorage.NewHandler(b)))
	require.NoError(t, store.FinalizeConfig(ctx))

	folder := store.Join("reports")
	name, err := folder.SaveData(ctx, "q1.csv", []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	require.Equal(t, "q1.csv", name)

	name, err = folder.SaveData(ctx, "q1.csv", []byte("other"))
	require.NoError(t, err)
	require.Equal(t, "q1-1.csv", name)

	exists, err := folder.Exists(ctx, "q1.csv")
	require.NoError(t, err)
	require.True(t, exists)

	info, err := folder.Stat(ctx, "q1.csv")
	require.NoError(t, err)
	require.Equal(t, int64(8), info.Size)
	require.Equal(t, 2024, info.CreatedTime.Year())

	r, contentType, err := b.Load(ctx, filestorage.NewFileItem("q1.csv", []string{"reports"}, nil))
	require.NoError(t, err)
	require.Equal(t, "text/csv", contentType)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "a,b\n1,2\n", string(data))

	require.NoError(t, folder.Delete(ctx, "q1.csv"))
	exists, err = folder.Exists(ctx, "q1.csv")
	require.NoError(t, err)
	require.False(t, exists)

	_, err = folder.Stat(ctx, "q1.csv")
	require.ErrorIs(t, err, ErrNotFound)
	_, _, err = b.Load(ctx, filestorage.NewFileItem("q1.csv", []string{"reports"}, nil))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBackend_SaveLimits(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := newTestBackend(t, newFakeDB(), Config{MaxSize: 4})

	_, err := b.Save(ctx, filestorage.NewFileItem("a.bin", nil, nil))
	require.ErrorIs(t, err, ErrNoData)

	_, err = b.Save(ctx, filestorage.NewFileItem("a.bin", nil, nil).WithBytes([]byte("12345")))
	require.ErrorIs(t, err, ErrFileTooLarge)

	name, err := b.Save(ctx, filestorage.NewFileItem("a.bin", nil, nil).WithBytes([]byte("1234")))
	require.NoError(t, err)
	require.Equal(t, "a.bin", name)
}

func TestConnect_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := Connect(ctx, ConnConfig{})
	require.ErrorIs(t, err, ErrEmptyConnectionString)

	_, err = Connect(ctx, ConnConfig{ConnectionString: "postgres://%zz"})
	require.ErrorIs(t, err, ErrFailedToParseConfig)
}
