// Package report renders the day's timesheet for the terminal.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/luejerry/autoclocker/internal/timecalc"
)

const clockLayout = "03:04 PM"

// Hours converts a duration to payroll-style decimal hours with two places.
func Hours(d time.Duration) decimal.Decimal {
	return decimal.NewFromFloat(d.Hours()).Round(2)
}

// ClockTable writes the day's punches as a text table. Projected rows (the
// shift still in progress, ending at the computed target) are parenthesized.
//
//	Clocked in   Clocked out   Hours
//	08:05 AM     12:00 PM       3.92
//	01:00 PM     (05:15 PM)   (4.25)
//	                            8.17
func ClockTable(w io.Writer, ts *timecalc.Timesheet) {
	if len(ts.Rows) == 0 {
		fmt.Fprintln(w, "You have not clocked in today.")
		return
	}

	const format = "%-12s %-12s %6s\n"
	fmt.Fprintln(w)
	fmt.Fprintf(w, format, "Clocked in", "Clocked out", "Hours")

	var total time.Duration
	for _, row := range ts.Rows {
		total += row.Duration
		end := row.End.Format(clockLayout)
		hours := Hours(row.Duration).StringFixed(2)
		if row.Projected {
			end = "(" + end + ")"
			hours = "(" + hours + ")"
		}
		fmt.Fprintf(w, format, row.Start.Format(clockLayout), end, hours)
	}
	fmt.Fprintf(w, format, "", "", Hours(total).StringFixed(2))
}

// Summary writes the remaining-hours line and, when a shift is in progress,
// the recommended clock-out time.
func Summary(w io.Writer, ts *timecalc.Timesheet) {
	remaining := Hours(ts.Remaining)
	if ts.ClockedIn {
		fmt.Fprintf(w, "You have %s hours remaining. You should clock out at %s.\n",
			remaining.StringFixed(2), ts.Target.Format(clockLayout))
		return
	}
	fmt.Fprintf(w, "You have %s hours remaining. You are not clocked in.\n",
		remaining.StringFixed(2))
}
