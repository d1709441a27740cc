package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "solrexport/pkg/errors"
	"solrexport/pkg/logger"
)

// ErrAttemptsExhausted is wrapped into the error returned once MaxAttempts is used up
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Operation is one try of something that may fail transiently
type Operation func() error

// OperationWithResult is an Operation that also yields a value
type OperationWithResult[T any] func() (T, error)

// Config controls how Do repeats an operation.
// A zero MaxAttempts retries until RetryIf says no or Context is done.
type Config struct {
	MaxAttempts int
	Backoff     BackoffStrategy
	RetryIf     func(error) bool
	// OnRetry runs after a retryable failure, before the pause
	OnRetry func(attempt int, err error, delay time.Duration)
	Context context.Context
	Logger  logger.Logger
}

// DefaultConfig makes three attempts with exponential backoff
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.GetLogger(),
	}
}

// FixedDelayConfig retries every failure except cancellation after delay,
// up to maxAttempts (0 means forever)
func FixedDelayConfig(ctx context.Context, delay time.Duration, maxAttempts int, log logger.Logger) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     &ConstantBackoff{Delay: delay},
		RetryIf:     RetryUnlessCanceled,
		Context:     ctx,
		Logger:      log,
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// DefaultRetryIf retries classified errors whose type is retryable and any
// unclassified error that is not a context error
func DefaultRetryIf(err error) bool {
	if err == nil || isContextErr(err) {
		return false
	}
	var e *errs.Error
	if errors.As(err, &e) {
		return errs.IsRetryable(e.Type)
	}
	return true
}

// RetryUnlessCanceled retries everything but context cancellation
func RetryUnlessCanceled(err error) bool {
	return err != nil && !isContextErr(err)
}

type runner struct {
	*Config
	ctx     context.Context
	retryIf func(error) bool
}

func newRunner(cfg *Config) runner {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	r := runner{Config: cfg, ctx: cfg.Context, retryIf: cfg.RetryIf}
	if r.ctx == nil {
		r.ctx = context.Background()
	}
	if r.retryIf == nil {
		r.retryIf = DefaultRetryIf
	}
	return r
}

func (r runner) log(fn func(logger.Logger)) {
	if r.Logger != nil {
		fn(r.Logger)
	}
}

func (r runner) delay(attempt int) time.Duration {
	if r.Backoff == nil {
		return 0
	}
	return r.Backoff.NextDelay(attempt)
}

// Do runs op until it succeeds, fails with a non-retryable error, runs out
// of attempts or the context ends
func Do(op Operation, cfg *Config) error {
	r := newRunner(cfg)

	for attempt := 1; ; attempt++ {
		if err := r.ctx.Err(); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}

		err := op()
		if err == nil {
			if attempt > 1 {
				r.log(func(l logger.Logger) {
					l.InfoWithFields("operation succeeded after retry", map[string]interface{}{"attempt": attempt})
				})
			}
			return nil
		}

		if !r.retryIf(err) {
			r.log(func(l logger.Logger) { l.WithError(err).Debug("error is not retryable") })
			return err
		}

		if r.MaxAttempts > 0 && attempt >= r.MaxAttempts {
			r.log(func(l logger.Logger) {
				l.WithError(err).ErrorWithFields("giving up", map[string]interface{}{"attempts": attempt})
			})
			return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempt, err)
		}

		pause := r.delay(attempt)
		if r.OnRetry != nil {
			r.OnRetry(attempt, err, pause)
		}
		r.log(func(l logger.Logger) {
			l.WithError(err).DebugWithFields("retrying", map[string]interface{}{
				"attempt":      attempt,
				"max_attempts": r.MaxAttempts,
				"delay":        pause,
			})
		})

		if werr := Wait(r.ctx, pause); werr != nil {
			return fmt.Errorf("retry cancelled after %d attempts: %w", attempt, werr)
		}
	}
}

// DoWithResult is Do for operations that produce a value
func DoWithResult[T any](op OperationWithResult[T], cfg *Config) (T, error) {
	var out T
	err := Do(func() error {
		v, err := op()
		if err == nil {
			out = v
		}
		return err
	}, cfg)
	return out, err
}
