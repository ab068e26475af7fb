package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luejerry/autoclocker/internal/portal"
	"github.com/luejerry/autoclocker/internal/report"
	"github.com/luejerry/autoclocker/internal/timecalc"
)

// runInteractive is the no-arguments entry point: show today's timesheet and
// accept clock commands until the user exits.
func runInteractive(cmd *cobra.Command) error {
	ctx := cmd.Context()

	fmt.Printf("You are working %s hours today.\n",
		report.Hours(cfg.Settings().WorkHours).StringFixed(2))

	creds, release, err := ensureCredentials()
	if err != nil {
		return err
	}
	defer release()

	sess, err := client.Login(ctx, creds.User, string(creds.Password))
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		day, err := client.FetchToday(ctx, sess)
		if errors.Is(err, portal.ErrSessionExpired) {
			fmt.Println("Session expired, reauthenticating...")
			sess, err = client.Login(ctx, creds.User, string(creds.Password))
			if err != nil {
				return err
			}
			day, err = client.FetchToday(ctx, sess)
		}
		if err != nil {
			return err
		}

		ts, err := timecalc.BuildTimesheet(day.Intervals, cfg.Settings(), day.ServerNow)
		if err != nil {
			return err
		}
		fmt.Printf("Current server time: %s\n", day.ServerNow.Format("03:04 PM"))
		report.ClockTable(os.Stdout, ts)
		fmt.Println()
		report.Summary(os.Stdout, ts)

		fmt.Print(`Type "in" to clock in, "out" to clock out, "auto" to schedule the clock-out, "next" to clock out at the next increment, "r" to refresh, or anything else to exit: `)
		line, readErr := reader.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return readErr
		}

		switch strings.TrimSpace(line) {
		case "in":
			if ts.ClockedIn {
				fmt.Println("Cannot clock in: you are already clocked in.")
				break
			}
			if err := client.ClockIn(ctx, sess); err != nil {
				return err
			}
			fmt.Println("You have clocked in.")
			recordRun("in", ts, "")
		case "out":
			if !ts.ClockedIn {
				fmt.Println("Cannot clock out: you are not clocked in.")
				break
			}
			if err := client.ClockOut(ctx, sess); err != nil {
				return err
			}
			fmt.Println("You have clocked out.")
			recordRun("out", ts, "")
		case "auto":
			if !ts.ClockedIn {
				fmt.Println("Cannot schedule a clock-out: you have not clocked in.")
				break
			}
			if err := scheduleClockOut(ctx, ts.Target, cfg.RemoteConfigured(), ts); err != nil {
				return err
			}
		case "next":
			if !ts.ClockedIn {
				fmt.Println("Cannot schedule a clock-out: you have not clocked in.")
				break
			}
			next := nextIncrement(day.ServerNow)
			if err := scheduleClockOut(ctx, next, cfg.RemoteConfigured(), ts); err != nil {
				return err
			}
		case "r":
			sess, err = client.Login(ctx, creds.User, string(creds.Password))
			if err != nil {
				return err
			}
		default:
			return nil
		}

		if readErr == io.EOF {
			return nil
		}
	}
}
