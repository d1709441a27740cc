package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "solrexport/pkg/errors"
	"solrexport/pkg/logger"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		Initial: 100 * time.Millisecond,
		Max:     time.Second,
		Factor:  2,
	}

	tests := []struct {
		attempt     int
		expected    time.Duration
		description string
	}{
		{0, 0, "No attempt yet"},
		{1, 100 * time.Millisecond, "First attempt"},
		{2, 200 * time.Millisecond, "Second attempt"},
		{3, 400 * time.Millisecond, "Third attempt"},
		{4, 800 * time.Millisecond, "Fourth attempt"},
		{5, 1 * time.Second, "Fifth attempt (capped at max)"},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			assert.Equal(t, test.expected, backoff.NextDelay(test.attempt))
		})
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	backoff := &ExponentialBackoff{
		Initial: 100 * time.Millisecond,
		Max:     time.Second,
		Factor:  2,
		Jitter:  0.3,
	}

	for i := 0; i < 50; i++ {
		delay := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, delay, 140*time.Millisecond)
		assert.LessOrEqual(t, delay, 260*time.Millisecond)
	}
}

func TestConstantBackoff(t *testing.T) {
	b := &ConstantBackoff{Delay: 10 * time.Second}
	assert.Equal(t, time.Duration(0), b.NextDelay(0))
	assert.Equal(t, 10*time.Second, b.NextDelay(1))
	assert.Equal(t, 10*time.Second, b.NextDelay(100))
}

func TestRetryWithSuccess(t *testing.T) {
	attempts := 0
	var retried []int

	cfg := FixedDelayConfig(context.Background(), time.Millisecond, 0, logger.NewTestLogger())
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		retried = append(retried, attempt)
		assert.Equal(t, time.Millisecond, delay)
	}

	err := Do(func() error {
		attempts++
		if attempts < 3 {
			return errs.New(errs.ErrorTypeNetwork, 0, nil, "connection refused")
		}
		return nil
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetryUnboundedKeepsGoing(t *testing.T) {
	attempts := 0
	cfg := FixedDelayConfig(context.Background(), 0, 0, nil)

	err := Do(func() error {
		attempts++
		if attempts < 250 {
			return errs.New(errs.ErrorTypeAuth, 401, nil, "unauthorized")
		}
		return nil
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, 250, attempts)
}

func TestRetryWithMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	cause := errs.New(errs.ErrorTypeServerError, 503, nil, "unavailable")

	cfg := FixedDelayConfig(context.Background(), time.Millisecond, 3, logger.NewTestLogger())
	err := Do(func() error {
		attempts++
		return cause
	}, cfg)

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.ErrorIs(t, err, cause)
}

func TestRetryWithNonRetryableError(t *testing.T) {
	attempts := 0
	cfg := DefaultConfig()
	cfg.Backoff = &ConstantBackoff{Delay: time.Millisecond}
	cfg.Logger = logger.NewTestLogger()

	err := Do(func() error {
		attempts++
		return errs.New(errs.ErrorTypeAuth, 401, nil, "unauthorized")
	}, cfg)

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	cfg := FixedDelayConfig(ctx, time.Hour, 0, logger.NewTestLogger())
	cfg.OnRetry = func(int, error, time.Duration) { cancel() }

	start := time.Now()
	err := Do(func() error {
		attempts++
		return errors.New("boom")
	}, cfg)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
	assert.Less(t, time.Since(start), time.Minute)
}

func TestRetryStopsOnCanceledOperation(t *testing.T) {
	attempts := 0
	cfg := FixedDelayConfig(context.Background(), time.Millisecond, 0, nil)

	err := Do(func() error {
		attempts++
		return context.Canceled
	}, cfg)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.True(t, DefaultRetryIf(errors.New("unknown")))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeRateLimit, 429, nil, "slow down")))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeNotFound, 404, nil, "gone")))
	assert.False(t, DefaultRetryIf(context.DeadlineExceeded))
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	cfg := FixedDelayConfig(context.Background(), time.Millisecond, 5, nil)

	result, err := DoWithResult(func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("temporary")
		}
		return "ok", nil
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, attempts)
}

func TestWait(t *testing.T) {
	require.NoError(t, Wait(context.Background(), 0))
	require.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, Wait(ctx, 0), context.Canceled)
}
