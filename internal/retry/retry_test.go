package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{Name: "test", AttemptTimeout: 50 * time.Millisecond, Retries: 1, Wait: time.Millisecond}
}

func TestDo(t *testing.T) {
	t.Run("returns first success", func(t *testing.T) {
		calls := 0
		v, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (string, error) {
			calls++
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries once then succeeds", func(t *testing.T) {
		calls := 0
		v, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
			calls++
			if calls == 1 {
				return 0, errors.New("transient")
			}
			return 7, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, v)
		assert.Equal(t, 2, calls)
	})

	t.Run("gives up after a single retry", func(t *testing.T) {
		calls := 0
		_, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("down")
		})
		require.Error(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		calls := 0
		_, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
			calls++
			return 0, Permanent(errors.New("bad request"))
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("applies per-attempt timeout", func(t *testing.T) {
		calls := 0
		_, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
			calls++
			<-ctx.Done()
			return 0, ctx.Err()
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 2, calls)
	})
}
