package timecalc

import "time"

// Row is one line of the day's clock table. A projected row belongs to the
// open shift: its End is the computed clock-out target rather than a recorded
// punch.
type Row struct {
	Start     time.Time
	End       time.Time
	Duration  time.Duration
	Projected bool
}

// Timesheet summarizes a day of shifts for display.
type Timesheet struct {
	Rows      []Row
	Total     time.Duration // worked so far, open shift counted up to now
	Remaining time.Duration // until WorkHours is reached; negative once past it
	ClockedIn bool
	Target    time.Time // clock-out target, valid only when ClockedIn
}

// BuildTimesheet derives the day's clock table and summary. Unlike
// TargetClockOut it does not require an open shift, so it can render the view
// after the user has clocked out for the day.
func BuildTimesheet(intervals []Interval, s Settings, now time.Time) (*Timesheet, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	open, err := checkIntervals(intervals)
	if err != nil {
		return nil, err
	}

	ts := &Timesheet{
		Total:     Accrued(intervals, now),
		ClockedIn: open != nil,
	}
	ts.Remaining = s.WorkHours - ts.Total

	if open != nil {
		ts.Target, err = TargetClockOut(intervals, s, now)
		if err != nil {
			return nil, err
		}
	}

	for _, iv := range intervals {
		row := Row{Start: iv.Start}
		if iv.End != nil {
			row.End = *iv.End
			row.Duration = iv.End.Sub(iv.Start)
		} else {
			row.End = ts.Target
			row.Duration = ts.Target.Sub(iv.Start)
			row.Projected = true
		}
		ts.Rows = append(ts.Rows, row)
	}
	return ts, nil
}
