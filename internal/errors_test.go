package internal_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/filestorage/internal"
)

func TestSentinelErrors(t *testing.T) {
	t.Parallel()

	sentinels := []error{
		internal.ErrConfig,
		internal.ErrNoHandler,
		internal.ErrStoreDisabled,
		internal.ErrFinalized,
		internal.ErrModeMismatch,
		internal.ErrInvalidValue,
		internal.ErrFileNotAllowed,
		internal.ErrExtensionNotAllowed,
		internal.ErrEmptyField,
		internal.ErrNotSupported,
	}

	seen := make(map[string]bool)
	for _, err := range sentinels {
		msg := err.Error()
		require.False(t, seen[msg], "duplicate error message: %s", msg)
		seen[msg] = true
	}
}

func TestConfigError(t *testing.T) {
	t.Parallel()

	t.Run("matches ErrConfig and cause", func(t *testing.T) {
		t.Parallel()
		err := internal.NewConfigError(internal.ErrNoHandler, "No handler provided for store%s", "['a']")
		require.ErrorIs(t, err, internal.ErrConfig)
		require.ErrorIs(t, err, internal.ErrNoHandler)
		require.NotErrorIs(t, err, internal.ErrFinalized)
		require.Equal(t, "No handler provided for store['a']", err.Error())
	})

	t.Run("wrapped", func(t *testing.T) {
		t.Parallel()
		err := fmt.Errorf("startup: %w", internal.NewConfigError(internal.ErrFinalized, "locked"))
		require.ErrorIs(t, err, internal.ErrConfig)

		var cerr *internal.ConfigError
		require.True(t, errors.As(err, &cerr))
		require.Equal(t, "locked", cerr.Msg)
	})
}

func TestFileRejectedError(t *testing.T) {
	t.Parallel()

	t.Run("extension rejection", func(t *testing.T) {
		t.Parallel()
		err := internal.NewFileRejectedError("doc.txt", internal.ErrCodeInvalidExtension, "nope", nil)
		require.ErrorIs(t, err, internal.ErrFileNotAllowed)
		require.ErrorIs(t, err, internal.ErrExtensionNotAllowed)
		require.NotErrorIs(t, err, internal.ErrConfig)
		require.NotNil(t, err.Details)
	})

	t.Run("generic rejection", func(t *testing.T) {
		t.Parallel()
		err := internal.NewFileRejectedError("big.bin", internal.ErrCodeFileTooLarge, "too big", map[string]any{"limit": 10})
		require.ErrorIs(t, err, internal.ErrFileNotAllowed)
		require.NotErrorIs(t, err, internal.ErrExtensionNotAllowed)
		require.Equal(t, 10, err.Details["limit"])
	})
}
