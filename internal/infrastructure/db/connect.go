package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultConnectAttempts = 4
	DefaultConnectBackoff  = time.Second
)

// Retry runs connect until it succeeds or attempts are used up, sleeping
// backoff between tries. It is meant for startup only; request paths never
// retry.
func Retry(ctx context.Context, logger zerolog.Logger, name string, attempts int, backoff time.Duration, connect func(context.Context) error) error {
	if attempts <= 0 {
		attempts = DefaultConnectAttempts
	}
	if backoff < 0 {
		backoff = DefaultConnectBackoff
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = connect(ctx); err == nil {
			return nil
		}
		logger.Warn().Err(err).Str("store", name).Int("attempt", attempt).Int("max_attempts", attempts).Msg("store connection failed")
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", name, ctx.Err())
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("%s: giving up after %d attempts: %w", name, attempts, err)
}
