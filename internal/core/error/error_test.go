package errx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	t.Run("message only", func(t *testing.T) {
		err := New(nil, http.StatusNotFound, "gone")
		assert.Equal(t, "gone", err.Error())
	})

	t.Run("wraps the cause", func(t *testing.T) {
		cause := errors.New("socket closed")
		err := New(cause, http.StatusBadGateway, "backend failed")
		assert.Equal(t, "backend failed: socket closed", err.Error())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("sentinels match by status and message", func(t *testing.T) {
		wrapped := fmt.Errorf("search: %w", ErrCityRequired)
		assert.ErrorIs(t, wrapped, ErrCityRequired)

		same := New(nil, http.StatusNotFound, NotFoundMessage)
		assert.ErrorIs(t, same, ErrNotFound)
		assert.NotErrorIs(t, same, ErrCityRequired)
	})

	t.Run("as extracts the app error", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(nil, http.StatusUnprocessableEntity, "bad input"))
		var appErr *AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusUnprocessableEntity, appErr.Status)
	})
}

func TestWrapRedis(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, WrapRedis(nil))
	})

	t.Run("redis nil is not found", func(t *testing.T) {
		err := WrapRedis(redis.Nil)
		var appErr *AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusNotFound, appErr.Status)
	})

	t.Run("other failures are bad gateway", func(t *testing.T) {
		err := WrapRedis(errors.New("connection refused"))
		var appErr *AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusBadGateway, appErr.Status)
	})
}
