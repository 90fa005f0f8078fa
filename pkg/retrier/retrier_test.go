package retrier

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetrier(opts ...Option) *Retrier {
	base := []Option{
		WithInitialInterval(time.Millisecond),
		WithMaxInterval(5 * time.Millisecond),
		WithJitter(0),
	}
	return New(append(base, opts...)...)
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := fastRetrier().Do(context.Background(), func(_ context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoExhaustsRetryBudget(t *testing.T) {
	attempts := 0
	err := fastRetrier(WithMaxRetries(2)).Do(context.Background(), func(_ context.Context) error {
		attempts++
		return errors.New("still down")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "retries exhausted after 3 attempts")
	assert.Contains(t, err.Error(), "still down")
}

func TestDoStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	r := New(WithInitialInterval(time.Minute), WithJitter(0))
	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Do(ctx, func(_ context.Context) error {
			attempts++
			return errors.New("down")
		})
	}()

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, attempts)
	case <-time.After(5 * time.Second):
		t.Fatal("retrier did not honor cancellation")
	}
}

func TestDoNotifiesOnEachFailure(t *testing.T) {
	var notified []int
	_ = fastRetrier(
		WithMaxRetries(2),
		WithNotify(func(attempt int, err error) {
			notified = append(notified, attempt)
		}),
	).Do(context.Background(), func(_ context.Context) error {
		return errors.New("down")
	})

	assert.Equal(t, []int{0, 1, 2}, notified)
}

func TestDoWithDataReturnsValue(t *testing.T) {
	attempts := 0
	price, err := DoWithData(fastRetrier(), context.Background(), func(_ context.Context) (float64, error) {
		attempts++
		if attempts < 2 {
			return 0, errors.New("transient")
		}
		return 42.5, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42.5, price)
}
