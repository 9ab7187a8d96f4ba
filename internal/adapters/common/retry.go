package common

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"net"
	"strings"
	"time"
)

// RetryConfig bounds RetryWithBackoff: at most MaxAttempts calls, with
// pauses growing from InitialDelay by Multiplier up to MaxDelay.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig suits index fetches: 3 attempts, 500ms base, 5s cap.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// delayFor computes the pause after the given 1-based attempt. Jitter
// spreads concurrent adapters over [0.75d, 1.25d) of the nominal delay.
func (cfg RetryConfig) delayFor(attempt int) time.Duration {
	nominal := float64(cfg.InitialDelay)
	for i := 1; i < attempt; i++ {
		nominal *= cfg.Multiplier
	}
	if limit := float64(cfg.MaxDelay); nominal > limit {
		nominal = limit
	}
	jittered := time.Duration(nominal * (0.75 + rand.Float64()*0.5))
	if jittered > cfg.MaxDelay {
		jittered = cfg.MaxDelay
	}
	return jittered
}

// RetryWithBackoff calls fn until it succeeds, the error is permanent, the
// attempts run out, or ctx ends. The last error comes back unwrapped so the
// caller can classify it.
func RetryWithBackoff(ctx context.Context, cfg RetryConfig, fn func() error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; ; attempt++ {
		err := fn()
		switch {
		case err == nil:
			return nil
		case !IsTransientError(err):
			return err
		case attempt >= attempts:
			return err
		}
		if waitErr := sleepContext(ctx, cfg.delayFor(attempt)); waitErr != nil {
			return waitErr
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var transientFragments = []string{
	"timeout",
	"deadline exceeded",
	"connection reset",
	"connection refused",
	"tls",
	"eof",
}

// IsTransientError reports whether a retry has a chance of succeeding:
// timeouts, dropped connections, truncated bodies, handshake failures.
// Anything else, an HTTP 4xx above all, is treated as permanent.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}
	text := strings.ToLower(err.Error())
	for _, fragment := range transientFragments {
		if strings.Contains(text, fragment) {
			return true
		}
	}
	return false
}
