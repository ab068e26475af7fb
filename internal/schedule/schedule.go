// Package schedule registers one-shot clock-out jobs. Two backends exist: the
// host OS job scheduler (at on POSIX, schtasks on Windows) and the remote
// AWS-hosted autoclocker service. Rejections are never swallowed; they come
// back as *ScheduleError.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Scheduler registers a single future clock-out. Scheduling again before the
// job fires is resolved by the caller cancelling the previous job.
type Scheduler interface {
	// ScheduleOnce registers a clock-out at the given instant and returns
	// a backend-specific job reference.
	ScheduleOnce(ctx context.Context, at time.Time) (jobID string, err error)
	// Cancel removes a previously scheduled job.
	Cancel(ctx context.Context, jobID string) error
}

// ErrCancelUnsupported is returned by backends that cannot remove a job once
// registered.
var ErrCancelUnsupported = errors.New("backend does not support cancelling jobs")

// ScheduleError reports a scheduler backend rejecting a registration or
// cancellation.
type ScheduleError struct {
	Backend string
	Output  string
	Err     error
}

func (e *ScheduleError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("scheduler %s: %v: %s", e.Backend, e.Err, e.Output)
	}
	return fmt.Sprintf("scheduler %s: %v", e.Backend, e.Err)
}

func (e *ScheduleError) Unwrap() error {
	return e.Err
}
