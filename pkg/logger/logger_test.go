package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/filestorage/pkg/logger"
)

type tenantKey struct{}

func TestNew_ContextAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tenant := func(ctx context.Context) (slog.Attr, bool) {
		v, ok := ctx.Value(tenantKey{}).(string)
		return slog.String("tenant", v), ok
	}
	log := logger.New(logger.Config{Output: &buf, Level: slog.LevelDebug}, tenant, nil)

	ctx := logger.WithAttrs(context.Background(), slog.String("request_id", "r1"))
	ctx = logger.WithAttrs(ctx, slog.String("store", "avatars"))
	ctx = context.WithValue(ctx, tenantKey{}, "acme")
	log.DebugContext(ctx, "saved", slog.Int("size", 3))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "saved", rec["msg"])
	require.Equal(t, "r1", rec["request_id"])
	require.Equal(t, "avatars", rec["store"])
	require.Equal(t, "acme", rec["tenant"])
	require.InDelta(t, 3, rec["size"], 0)
}

func TestNew_TextAndLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.Config{Output: &buf, Format: logger.FormatText, Level: slog.LevelWarn})
	log.Info("hidden")
	require.Empty(t, buf.String())

	log.With("a", 1).WithGroup("g").Warn("shown", "b", 2)
	require.Contains(t, buf.String(), "msg=shown")
	require.Contains(t, buf.String(), "a=1")
	require.Contains(t, buf.String(), "g.b=2")
}

func TestAttrs_Empty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	require.Equal(t, ctx, logger.WithAttrs(ctx))
	require.Empty(t, logger.Attrs(ctx))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: " warn ", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := logger.ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNewNope(t *testing.T) {
	t.Parallel()
	require.False(t, logger.NewNope().Enabled(context.Background(), slog.LevelError))
}
