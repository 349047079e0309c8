package retry

import (
	"context"
	"time"
)

type Policy struct {
	Attempts int
	Backoff  time.Duration // multiplied by the attempt number
}

// Do calls fn until it succeeds, returns an error retryable rejects, or the
// attempts run out. The last error is returned.
func Do(ctx context.Context, p Policy, retryable func(error) bool, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(ctx); err == nil || !retryable(err) {
			return err
		}
		if i == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Backoff * time.Duration(i)):
		}
	}
	return err
}
