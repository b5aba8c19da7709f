package adjudicate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Class buckets a failed attempt for backoff purposes.
type Class int

const (
	// ClassOther covers permanent service errors and unparseable replies.
	ClassOther Class = iota
	// ClassTimeout covers per-call deadline expiry.
	ClassTimeout
	// ClassRateLimit covers endpoint throttling.
	ClassRateLimit
)

// Classify inspects an error's text to decide the retry class. The endpoint
// does not expose structured error codes through every transport layer, so
// text matching is the contract here.
func Classify(err error) Class {
	if err == nil {
		return ClassOther
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "rate limit") || strings.Contains(msg, "429") {
		return ClassRateLimit
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") {
		return ClassTimeout
	}
	return ClassOther
}

// Policy is the retry policy for adjudication calls: a bounded attempt
// budget with class-specific backoff. It is independent of the transport so
// it can be exercised without network access.
type Policy struct {
	MaxRetries int

	// Rate-limit backoff grows linearly with the attempt index, capped.
	RateLimitUnit time.Duration
	RateLimitCap  time.Duration
	// Timeouts get a short fixed delay, other failures a minimal one.
	TimeoutDelay time.Duration
	OtherDelay   time.Duration
}

// DefaultPolicy returns the production backoff constants.
func DefaultPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries:    maxRetries,
		RateLimitUnit: 5 * time.Second,
		RateLimitCap:  60 * time.Second,
		TimeoutDelay:  2 * time.Second,
		OtherDelay:    1 * time.Second,
	}
}

// Backoff returns the delay before retrying after the given attempt
// (0-based) failed with the given class.
func (p Policy) Backoff(class Class, attempt int) time.Duration {
	switch class {
	case ClassRateLimit:
		d := p.RateLimitUnit * time.Duration(attempt+1)
		if d > p.RateLimitCap {
			return p.RateLimitCap
		}
		return d
	case ClassTimeout:
		return p.TimeoutDelay
	default:
		return p.OtherDelay
	}
}

// Do runs fn up to MaxRetries+1 times, sleeping the class-specific backoff
// between attempts. On exhaustion it returns the last observed error,
// prefixed with the attempt count. Cancelling ctx aborts the wait.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxRetries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt+1 < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Backoff(Classify(lastErr), attempt)):
			}
		}
	}

	return fmt.Errorf("API call failed after %d attempts: %w", attempts, lastErr)
}
