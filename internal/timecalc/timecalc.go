// Package timecalc computes the optimal clock-out time for a day of shift
// intervals. It is pure time arithmetic: the caller supplies the intervals,
// the paid-time settings, and the current time.
package timecalc

import (
	"errors"
	"fmt"
	"time"
)

// Interval is one worked shift today. An open interval (currently clocked in)
// has a nil End.
type Interval struct {
	Start time.Time
	End   *time.Time
}

// Open reports whether the interval has no recorded end yet.
func (iv Interval) Open() bool {
	return iv.End == nil
}

// Duration returns the closed length of the interval, or the time elapsed up
// to now for an open interval.
func (iv Interval) Duration(now time.Time) time.Duration {
	if iv.End != nil {
		return iv.End.Sub(iv.Start)
	}
	return now.Sub(iv.Start)
}

// Settings are the paid-time parameters for a day.
type Settings struct {
	// WorkHours is the desired total paid time for the day.
	WorkHours time.Duration
	// Resolution is the smallest increment of time counted for pay.
	// Clock-out targets are rounded up to a multiple of it.
	Resolution time.Duration
}

// SettingsError reports an unusable paid-time setting.
type SettingsError struct {
	Field   string
	Message string
}

func (e *SettingsError) Error() string {
	return fmt.Sprintf("invalid setting: %s - %s", e.Field, e.Message)
}

// Validate checks that the settings are usable for a calculation.
func (s Settings) Validate() error {
	if s.WorkHours <= 0 {
		return &SettingsError{Field: "WorkHours", Message: "work hours must be positive"}
	}
	if s.Resolution <= 0 {
		return &SettingsError{Field: "HoursResolution", Message: "resolution must be positive"}
	}
	return nil
}

// InvalidStateError reports inconsistent shift data, such as two
// simultaneously open intervals.
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string {
	return "invalid shift data: " + e.Reason
}

// ErrNoOpenInterval is returned when a live clock-out target is requested but
// no shift is in progress.
var ErrNoOpenInterval = errors.New("not clocked in: no open shift")

// checkIntervals validates the ordering rules and returns the open interval,
// if any. At most one interval may be open and it must be the last.
func checkIntervals(intervals []Interval) (*Interval, error) {
	var open *Interval
	for i := range intervals {
		iv := &intervals[i]
		if iv.End != nil && iv.End.Before(iv.Start) {
			return nil, &InvalidStateError{Reason: fmt.Sprintf(
				"shift %d ends at %s before it starts at %s",
				i+1, iv.End.Format("15:04"), iv.Start.Format("15:04"))}
		}
		if !iv.Open() {
			continue
		}
		if open != nil {
			return nil, &InvalidStateError{Reason: "more than one shift is still open"}
		}
		if i != len(intervals)-1 {
			return nil, &InvalidStateError{Reason: "an open shift precedes a closed one"}
		}
		open = iv
	}
	return open, nil
}

// Accrued sums the worked time across all intervals. Time elapsed on an open
// interval counts up to now.
func Accrued(intervals []Interval, now time.Time) time.Duration {
	var total time.Duration
	for _, iv := range intervals {
		total += iv.Duration(now)
	}
	return total
}

// RoundUp rounds t up to the next multiple of res, measured from local
// midnight. An already-aligned instant is returned unchanged.
func RoundUp(t time.Time, res time.Duration) time.Time {
	if res <= 0 {
		return t
	}
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := t.Sub(midnight)
	if rem := offset % res; rem != 0 {
		offset += res - rem
	}
	return midnight.Add(offset)
}

// NextBoundary returns the first resolution boundary strictly after now.
func NextBoundary(now time.Time, res time.Duration) time.Time {
	next := RoundUp(now, res)
	if !next.After(now) {
		next = next.Add(res)
	}
	return next
}

// TargetClockOut computes the wall-clock instant at which cumulative worked
// time reaches s.WorkHours, rounded up to the next s.Resolution boundary so
// the logged total never falls short of a full paid increment.
//
// The intervals must be in chronological order with at most one open interval,
// which must be the last. ErrNoOpenInterval is returned when no shift is in
// progress, since a clock-out needs an active shift.
func TargetClockOut(intervals []Interval, s Settings, now time.Time) (time.Time, error) {
	if err := s.Validate(); err != nil {
		return time.Time{}, err
	}
	open, err := checkIntervals(intervals)
	if err != nil {
		return time.Time{}, err
	}
	if open == nil {
		return time.Time{}, ErrNoOpenInterval
	}
	if Accrued(intervals, now) >= s.WorkHours {
		// Enough time already logged, e.g. resuming after lunch with a
		// long morning. Clock out at the next paid increment.
		return RoundUp(now, s.Resolution), nil
	}
	var closed time.Duration
	for _, iv := range intervals {
		if !iv.Open() {
			closed += iv.Duration(now)
		}
	}
	target := open.Start.Add(s.WorkHours - closed)
	return RoundUp(target, s.Resolution), nil
}
