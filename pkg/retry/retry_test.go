package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopworks/e-shop/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxAttempts int) retry.RetryConfig {
	return retry.RetryConfig{
		MaxAttempts: maxAttempts,
		Backoff:     retry.ConstantBackoff(time.Millisecond),
	}
}

func TestDoWithResult(t *testing.T) {

	t.Run("FirstAttemptSucceeds", func(t *testing.T) {
		calls := 0
		got, err := retry.DoWithResult(t.Context(), fastConfig(3),
			func() (int, error) {
				calls++
				return 42, nil
			})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, 1, calls)
	})

	t.Run("RecoversWithinLimit", func(t *testing.T) {
		calls := 0
		got, err := retry.DoWithResult(t.Context(), fastConfig(3),
			func() (string, error) {
				calls++
				if calls < 3 {
					return "", errors.New("not yet")
				}
				return "done", nil
			})
		require.NoError(t, err)
		assert.Equal(t, "done", got)
		assert.Equal(t, 3, calls)
	})

	t.Run("ExhaustedAttempts", func(t *testing.T) {
		wantErr := errors.New("always failing")
		calls := 0
		_, err := retry.DoWithResult(t.Context(), fastConfig(3),
			func() (int, error) {
				calls++
				return 0, wantErr
			})
		require.Error(t, err)
		assert.ErrorIs(t, err, wantErr)
		assert.Equal(t, 3, calls)
	})

	t.Run("NonRetryableErrorStops", func(t *testing.T) {
		wantErr := errors.New("bad credentials")
		cfg := fastConfig(5)
		cfg.ShouldRetry = func(err error) bool {
			return !errors.Is(err, wantErr)
		}

		calls := 0
		_, err := retry.DoWithResult(t.Context(), cfg,
			func() (int, error) {
				calls++
				return 0, wantErr
			})
		require.Error(t, err)
		assert.ErrorIs(t, err, wantErr)
		assert.Equal(t, 1, calls)
	})

	t.Run("CanceledBeforeStart", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		calls := 0
		_, err := retry.DoWithResult(ctx, fastConfig(3),
			func() (int, error) {
				calls++
				return 0, nil
			})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, calls)
	})

	t.Run("CanceledDuringBackoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())

		attemptErr := errors.New("transient")
		cfg := retry.RetryConfig{
			MaxAttempts: 3,
			Backoff:     retry.ConstantBackoff(time.Minute),
		}

		done := make(chan error, 1)
		go func() {
			_, err := retry.DoWithResult(ctx, cfg, func() (int, error) {
				return 0, attemptErr
			})
			done <- err
		}()

		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
			assert.ErrorIs(t, err, attemptErr)
		case <-time.After(time.Second):
			t.Fatal("retry did not stop on cancellation")
		}
	})
}

func TestDo(t *testing.T) {
	calls := 0
	err := retry.Do(t.Context(), fastConfig(2), func() error {
		calls++
		if calls == 1 {
			return errors.New("once")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
