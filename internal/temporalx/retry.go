package temporalx

import (
	"context"
	"fmt"
	"time"
)

// Backoff doubles from Base on every attempt, capped at Max.
type Backoff struct {
	Base time.Duration `env:"BASE" envDefault:"250ms"`
	Max  time.Duration `env:"MAX" envDefault:"5s"`
}

func (b Backoff) Delay(attempt int) time.Duration {
	base, max := b.Base, b.Max
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	if max < base {
		max = base
	}
	d := base
	for i := 1; i < attempt && d < max; i++ {
		d *= 2
	}
	return min(d, max)
}

// Retry calls fn until it succeeds, returns an error retryable rejects, ctx
// ends or maxWait has passed. A nil retryable retries every error.
func Retry(ctx context.Context, maxWait time.Duration, b Backoff, fn func(attempt int) error, retryable func(error) bool) error {
	deadline := time.Now().Add(maxWait)
	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}
		t := time.NewTimer(b.Delay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%w: %w", ctx.Err(), err)
		case <-t.C:
		}
	}
}
