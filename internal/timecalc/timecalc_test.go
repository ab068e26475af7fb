package timecalc

import (
	"errors"
	"testing"
	"time"
)

var defaultSettings = Settings{
	WorkHours:  8 * time.Hour,
	Resolution: 15 * time.Minute,
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 4, hour, minute, 0, 0, time.UTC)
}

func closed(start, end time.Time) Interval {
	return Interval{Start: start, End: &end}
}

func TestRoundUp(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		res      time.Duration
		expected time.Time
	}{
		{"rounds up within hour", at(9, 7), 15 * time.Minute, at(9, 15)},
		{"rounds up to next hour", at(9, 50), 15 * time.Minute, at(10, 0)},
		{"aligned time unchanged", at(9, 45), 15 * time.Minute, at(9, 45)},
		{"on the hour unchanged", at(17, 0), 15 * time.Minute, at(17, 0)},
		{"one minute past boundary", at(17, 1), 15 * time.Minute, at(17, 15)},
		{"odd resolution", at(9, 30), 7 * time.Minute, at(9, 34)},
		{"sub-minute offset rounds", at(9, 15).Add(30 * time.Second), 15 * time.Minute, at(9, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RoundUp(tt.input, tt.res)
			if !result.Equal(tt.expected) {
				t.Errorf("RoundUp(%v, %v) = %v, want %v", tt.input, tt.res, result, tt.expected)
			}
		})
	}
}

func TestRoundUpIdempotent(t *testing.T) {
	for _, res := range []time.Duration{time.Minute, 6 * time.Minute, 15 * time.Minute, time.Hour} {
		once := RoundUp(at(13, 37), res)
		twice := RoundUp(once, res)
		if !twice.Equal(once) {
			t.Errorf("RoundUp not idempotent for res %v: %v then %v", res, once, twice)
		}
	}
}

func TestNextBoundary(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		expected time.Time
	}{
		{"mid interval", at(9, 7), at(9, 15)},
		{"on boundary advances", at(9, 15), at(9, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NextBoundary(tt.now, 15*time.Minute)
			if !result.Equal(tt.expected) {
				t.Errorf("NextBoundary(%v) = %v, want %v", tt.now, result, tt.expected)
			}
		})
	}
}

func TestTargetClockOutSingleShift(t *testing.T) {
	// One open shift starting at 09:00, no prior time: target is
	// ceil(09:00+8h, 15min) = 17:00.
	intervals := []Interval{{Start: at(9, 0)}}
	target, err := TargetClockOut(intervals, defaultSettings, at(12, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !target.Equal(at(17, 0)) {
		t.Errorf("target = %v, want %v", target, at(17, 0))
	}
}

func TestTargetClockOutUnalignedStart(t *testing.T) {
	// Starting at 08:52 the raw target is 16:52, which rounds up to 17:00.
	intervals := []Interval{{Start: at(8, 52)}}
	target, err := TargetClockOut(intervals, defaultSettings, at(9, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !target.Equal(at(17, 0)) {
		t.Errorf("target = %v, want %v", target, at(17, 0))
	}
}

func TestTargetClockOutAfterLunch(t *testing.T) {
	// 3.5h accrued in the morning, back at 13:00: remaining 4.5h puts the
	// target at ceil(13:00+4h30, 15min) = 17:30.
	intervals := []Interval{
		closed(at(8, 30), at(12, 0)),
		{Start: at(13, 0)},
	}
	target, err := TargetClockOut(intervals, defaultSettings, at(13, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !target.Equal(at(17, 30)) {
		t.Errorf("target = %v, want %v", target, at(17, 30))
	}
}

func TestTargetClockOutAlreadyComplete(t *testing.T) {
	// 8h already logged before the current shift: clock out now, rounded up
	// to the next paid increment.
	intervals := []Interval{
		closed(at(6, 0), at(14, 0)),
		{Start: at(15, 0)},
	}
	now := at(15, 7)
	target, err := TargetClockOut(intervals, defaultSettings, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !target.Equal(at(15, 15)) {
		t.Errorf("target = %v, want %v", target, at(15, 15))
	}
}

func TestTargetClockOutExactlyComplete(t *testing.T) {
	// Open shift has just reached the full day on an aligned boundary: the
	// target is now itself.
	intervals := []Interval{{Start: at(9, 0)}}
	now := at(17, 0)
	target, err := TargetClockOut(intervals, defaultSettings, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !target.Equal(now) {
		t.Errorf("target = %v, want %v", target, now)
	}
}

func TestTargetClockOutNoOpenShift(t *testing.T) {
	intervals := []Interval{closed(at(9, 0), at(12, 0))}
	_, err := TargetClockOut(intervals, defaultSettings, at(13, 0))
	if !errors.Is(err, ErrNoOpenInterval) {
		t.Errorf("err = %v, want ErrNoOpenInterval", err)
	}
}

func TestTargetClockOutInvalidState(t *testing.T) {
	tests := []struct {
		name      string
		intervals []Interval
	}{
		{"two open shifts", []Interval{{Start: at(9, 0)}, {Start: at(10, 0)}}},
		{"open shift before closed", []Interval{{Start: at(9, 0)}, closed(at(10, 0), at(11, 0))}},
		{"shift ends before start", []Interval{closed(at(12, 0), at(9, 0)), {Start: at(13, 0)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TargetClockOut(tt.intervals, defaultSettings, at(14, 0))
			var stateErr *InvalidStateError
			if !errors.As(err, &stateErr) {
				t.Errorf("err = %v, want *InvalidStateError", err)
			}
		})
	}
}

func TestTargetClockOutBadSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
	}{
		{"zero work hours", Settings{WorkHours: 0, Resolution: 15 * time.Minute}},
		{"negative work hours", Settings{WorkHours: -time.Hour, Resolution: 15 * time.Minute}},
		{"zero resolution", Settings{WorkHours: 8 * time.Hour, Resolution: 0}},
		{"negative resolution", Settings{WorkHours: 8 * time.Hour, Resolution: -time.Minute}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TargetClockOut([]Interval{{Start: at(9, 0)}}, tt.settings, at(10, 0))
			var settingsErr *SettingsError
			if !errors.As(err, &settingsErr) {
				t.Errorf("err = %v, want *SettingsError", err)
			}
		})
	}
}

func TestAccrued(t *testing.T) {
	intervals := []Interval{
		closed(at(9, 0), at(12, 0)),
		{Start: at(13, 0)},
	}
	got := Accrued(intervals, at(14, 30))
	want := 4*time.Hour + 30*time.Minute
	if got != want {
		t.Errorf("Accrued = %v, want %v", got, want)
	}
}

func TestBuildTimesheetClockedIn(t *testing.T) {
	intervals := []Interval{
		closed(at(9, 0), at(12, 0)),
		{Start: at(13, 0)},
	}
	ts, err := BuildTimesheet(intervals, defaultSettings, at(14, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !ts.ClockedIn {
		t.Error("ClockedIn = false, want true")
	}
	if len(ts.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(ts.Rows))
	}
	if ts.Rows[0].Projected {
		t.Error("closed row marked projected")
	}
	if !ts.Rows[1].Projected {
		t.Error("open row not marked projected")
	}
	if !ts.Target.Equal(at(18, 0)) {
		t.Errorf("Target = %v, want %v", ts.Target, at(18, 0))
	}
	if !ts.Rows[1].End.Equal(ts.Target) {
		t.Errorf("projected row End = %v, want target %v", ts.Rows[1].End, ts.Target)
	}
	if ts.Total != 4*time.Hour {
		t.Errorf("Total = %v, want 4h", ts.Total)
	}
	if ts.Remaining != 4*time.Hour {
		t.Errorf("Remaining = %v, want 4h", ts.Remaining)
	}
}

func TestBuildTimesheetClockedOut(t *testing.T) {
	intervals := []Interval{closed(at(9, 0), at(17, 0))}
	ts, err := BuildTimesheet(intervals, defaultSettings, at(18, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts.ClockedIn {
		t.Error("ClockedIn = true, want false")
	}
	if !ts.Target.IsZero() {
		t.Errorf("Target = %v, want zero", ts.Target)
	}
	if ts.Remaining != 0 {
		t.Errorf("Remaining = %v, want 0", ts.Remaining)
	}
}

func TestBuildTimesheetEmptyDay(t *testing.T) {
	ts, err := BuildTimesheet(nil, defaultSettings, at(8, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts.ClockedIn || len(ts.Rows) != 0 {
		t.Errorf("empty day: ClockedIn=%v rows=%d", ts.ClockedIn, len(ts.Rows))
	}
	if ts.Remaining != defaultSettings.WorkHours {
		t.Errorf("Remaining = %v, want full day", ts.Remaining)
	}
}
