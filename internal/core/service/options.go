package service

import (
	"time"

	"github.com/99minutos/user-directory/internal/core/ports"
)

const defaultMaxAttempts = 5

type options struct {
	metrics     ports.DirectoryMetrics
	clock       func() time.Time
	maxAttempts int
}

// Option tunes a service at construction time.
type Option func(*options)

// WithMetrics routes service observations to m.
func WithMetrics(m ports.DirectoryMetrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithMaxAttempts bounds how many times a compare-and-swap write is retried
// after a conflict before domain.ErrConflict is returned.
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		metrics:     ports.NopMetrics{},
		clock:       time.Now,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// stamp returns a nanosecond timestamp strictly greater than prev.
func (o options) stamp(prev int64) int64 {
	return max(o.clock().UnixNano(), prev+1)
}
