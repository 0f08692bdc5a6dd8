// Package retry provides the linear backoff strategy used for event
// publication. Failed publishes are retried with a delay that grows by a
// fixed step per attempt rather than exponentially: transient broker
// failures usually clear within a few seconds, and a linear schedule keeps
// the worst-case wait for a bounded attempt budget predictable.
package retry

import (
	"fmt"
	"strings"
	"time"
)

// Strategy defines the retry behavior for failed event publications.
//
// The retry schedule follows: delay = min(BaseDelay * attempt, MaxDelay)
//
// Example with defaults (1s base, 30s max, 5 attempts):
//
//	After attempt 1: 1s
//	After attempt 2: 2s
//	After attempt 3: 3s
//	After attempt 4: 4s
type Strategy struct {
	MaxAttempts int           // Maximum publish attempts before giving up
	BaseDelay   time.Duration // Backoff step; attempt n waits n * BaseDelay
	MaxDelay    time.Duration // Cap on a single backoff wait (0 = uncapped)
}

// DefaultStrategy returns the production default: 5 attempts with a one
// second backoff step capped at 30 seconds.
func DefaultStrategy() Strategy {
	return Strategy{
		MaxAttempts: 5,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Delay calculates the backoff wait after the given attempt number
// (1-based). The wait grows linearly with the attempt number and is capped
// at MaxDelay when one is configured.
func (s Strategy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return s.BaseDelay
	}

	delay := time.Duration(attempt) * s.BaseDelay

	if s.MaxDelay > 0 && delay > s.MaxDelay {
		return s.MaxDelay
	}
	return delay
}

// IsRetryable checks if another publish attempt is allowed.
// Returns true while the attempt count is below the maximum.
func (s Strategy) IsRetryable(attemptCount int) bool {
	return attemptCount < s.MaxAttempts
}

// Schedule returns a human-readable description of the retry schedule.
// Useful for logs and operational documentation.
//
// Example output:
//
//	Retry Schedule:
//	  Attempt 1, then wait 1s
//	  Attempt 2, then wait 2s
//	  ...
//	  Attempt 5: give up
func (s Strategy) Schedule() string {
	var b strings.Builder
	b.WriteString("Retry Schedule:\n")
	for i := 1; i <= s.MaxAttempts; i++ {
		if i == s.MaxAttempts {
			fmt.Fprintf(&b, "  Attempt %d: give up\n", i)
			continue
		}
		fmt.Fprintf(&b, "  Attempt %d, then wait %v\n", i, s.Delay(i))
	}
	return b.String()
}
