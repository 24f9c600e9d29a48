package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Config struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     bool // incremental backoff: attempt * Delay
}

// abortError wraps an error that must not be retried (quota exhaustion,
// malformed payloads). Do retries transient failures only.
type abortError struct {
	err error
}

func (a abortError) Error() string { return a.err.Error() }
func (a abortError) Unwrap() error { return a.err }

// Abort marks err as permanent so Do returns it immediately.
func Abort(err error) error {
	if err == nil {
		return nil
	}
	return abortError{err: err}
}

// Do runs fn up to MaxAttempts times with a fixed or incremental delay
// between attempts. A context cancellation or an Abort-wrapped error stops
// the loop right away.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var abort abortError
		if errors.As(err, &abort) {
			return abort.err
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := cfg.Delay
		if cfg.Backoff {
			delay = time.Duration(attempt) * cfg.Delay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}
