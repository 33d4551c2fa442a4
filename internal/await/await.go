// Package await implements the generic completion-polling protocol used for
// Genie exchanges: a unit of work has already been submitted, and its status
// is re-checked on a fixed interval until it completes, fails, or the
// attempt budget runs out.
package await

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Outcome is the tagged result of a wait. Callers switch on it instead of
// inspecting error types.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeTimedOut  Outcome = "timed_out"
)

var (
	// ErrFailed is returned when the backend reports explicit failure.
	ErrFailed = errors.New("Genie failed to return a response")
	// ErrTimedOut is returned when the attempt budget is exhausted.
	ErrTimedOut = errors.New("Genie did not return a response")
)

const (
	DefaultAttempts = 20
	DefaultInterval = 5 * time.Second
)

type Config struct {
	// Attempts is the maximum number of status checks (default 20).
	Attempts int
	// Interval is the pause between checks while running (default 5s).
	Interval time.Duration
	// Sleep overrides the context-aware sleep, for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

type CheckFunc func(ctx context.Context) (Status, error)

// Wait polls check until it reports a terminal status or the attempt budget
// is exhausted. A FAILED status aborts immediately with no further sleeps.
// The returned error is non-nil exactly when the outcome is not completed.
func Wait(ctx context.Context, cfg Config, check CheckFunc) (Outcome, error) {
	if ctx == nil {
		return OutcomeFailed, fmt.Errorf("context is required")
	}
	if check == nil {
		return OutcomeFailed, fmt.Errorf("check func is required")
	}
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepWithContext
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, interval); err != nil {
				return OutcomeFailed, err
			}
		}
		status, err := check(ctx)
		if err != nil {
			return OutcomeFailed, err
		}
		switch status {
		case StatusCompleted:
			return OutcomeCompleted, nil
		case StatusFailed:
			return OutcomeFailed, ErrFailed
		case StatusRunning:
			// next attempt
		default:
			return OutcomeFailed, fmt.Errorf("unknown poll status: %s", status)
		}
	}
	return OutcomeTimedOut, ErrTimedOut
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
