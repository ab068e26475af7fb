package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/luejerry/autoclocker/internal/config"
	"github.com/luejerry/autoclocker/internal/credstore"
	"github.com/luejerry/autoclocker/internal/portal"
	"github.com/luejerry/autoclocker/internal/report"
	"github.com/luejerry/autoclocker/internal/schedule"
	"github.com/luejerry/autoclocker/internal/storage"
	"github.com/luejerry/autoclocker/internal/timecalc"
)

var inCmd = &cobra.Command{
	Use:   "in",
	Short: "Clock in noninteractively",
	Long:  `Clock in on the portal using stored credentials, then print today's timesheet.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClockAction(cmd.Context(), "in")
	},
}

var outCmd = &cobra.Command{
	Use:   "out",
	Short: "Clock out noninteractively",
	Long:  `Clock out on the portal using stored credentials, then print today's timesheet.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClockAction(cmd.Context(), "out")
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"st", "today"},
	Short:   "Show today's timesheet",
	Long:    `Fetch today's shifts from the portal and print the clock table and summary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		creds, release, err := ensureCredentials()
		if err != nil {
			return err
		}
		defer release()

		sess, err := client.Login(ctx, creds.User, string(creds.Password))
		if err != nil {
			return err
		}
		ts, _, err := fetchTimesheet(ctx, sess)
		if err != nil {
			return err
		}
		report.ClockTable(os.Stdout, ts)
		fmt.Println()
		report.Summary(os.Stdout, ts)
		recordRun("status", ts, "")
		return nil
	},
}

var scheduleCmd = &cobra.Command{
	Use:     "schedule",
	Aliases: []string{"auto"},
	Short:   "Schedule an automatic clock-out",
	Long: `Compute the clock-out target from today's shifts and register a one-shot
job to perform the clock-out at that time. The job runs on the host scheduler
(at on POSIX, Task Scheduler on Windows) unless --remote selects the AWS
autoclocker service.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		remote, _ := cmd.Flags().GetBool("remote")
		next, _ := cmd.Flags().GetBool("next")

		creds, release, err := ensureCredentials()
		if err != nil {
			return err
		}
		defer release()

		sess, err := client.Login(ctx, creds.User, string(creds.Password))
		if err != nil {
			return err
		}
		ts, day, err := fetchTimesheet(ctx, sess)
		if err != nil {
			return err
		}
		report.ClockTable(os.Stdout, ts)
		fmt.Println()
		report.Summary(os.Stdout, ts)

		if !ts.ClockedIn {
			return errors.New("cannot schedule a clock-out: you are not clocked in")
		}
		target := ts.Target
		if next {
			target = nextIncrement(day.ServerNow)
		}
		return scheduleClockOut(ctx, target, remote, ts)
	},
}

var savecredsCmd = &cobra.Command{
	Use:   "savecreds",
	Short: "Store portal credentials",
	Long: `Store portal credentials for noninteractive use. Local credentials are
encrypted under a passphrase. With --remote, credentials are saved with the
AWS autoclocker service instead and the returned key is kept in config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, _ := cmd.Flags().GetBool("remote")

		creds, err := credstore.PromptLogin()
		if err != nil {
			return err
		}
		defer creds.Zero()

		if remote {
			return saveRemoteCreds(cmd.Context(), creds)
		}
		return saveLocalCreds(creds)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent runs",
	Long:  `List recent clock actions and scheduled jobs recorded locally.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := db.RecentRuns(limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No recorded runs.")
			return nil
		}
		for _, run := range runs {
			line := fmt.Sprintf("%s  %-8s %5.2fh",
				run.Timestamp.Format("Jan 02 15:04"), run.Action, run.AccruedHours)
			if run.Target != nil {
				line += "  target " + run.Target.Format("03:04 PM")
			}
			if run.Detail != "" {
				line += "  " + run.Detail
			}
			fmt.Println(line)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Long:  `Display the effective configuration settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Portal: %s\n", cfg.PortalURL)
		fmt.Printf("Work hours: %g | Resolution: %g min\n", cfg.WorkHours, cfg.HoursResolution)
		fmt.Printf("Database: %s | Credentials: %s\n", cfg.DatabasePath, cfg.CredentialsPath)
		if cfg.RemoteConfigured() {
			fmt.Printf("Remote service: %s (%s)\n", cfg.AWSHost, cfg.AWSRegion)
		} else {
			fmt.Println("Remote service: not configured")
		}
		return nil
	},
}

// runClockAction performs a single noninteractive clock-in or clock-out with
// stored credentials, the entry point used by scheduled jobs.
func runClockAction(ctx context.Context, action string) error {
	creds, release, err := acquireStored()
	if err != nil {
		return err
	}
	defer release()

	sess, err := client.Login(ctx, creds.User, string(creds.Password))
	if err != nil {
		return err
	}

	if action == "in" {
		err = client.ClockIn(ctx, sess)
	} else {
		err = client.ClockOut(ctx, sess)
	}
	if err != nil {
		return err
	}
	fmt.Printf("You have clocked %s.\n", action)

	ts, _, err := fetchTimesheet(ctx, sess)
	if err != nil {
		return err
	}
	report.ClockTable(os.Stdout, ts)
	fmt.Println()
	report.Summary(os.Stdout, ts)
	recordRun(action, ts, "")
	return nil
}

// stdinInteractive reports whether a passphrase prompt is possible.
// Replaceable in tests.
var stdinInteractive = credstore.Interactive

// acquireStored loads stored credentials for noninteractive use. The
// passphrase comes from AUTOCLOCKER_PASSPHRASE, or a prompt when a terminal
// is attached.
func acquireStored() (credstore.Credentials, func(), error) {
	if !store.Exists() {
		return credstore.Credentials{}, nil, credstore.ErrNoCredentials
	}
	if pass := os.Getenv("AUTOCLOCKER_PASSPHRASE"); pass != "" {
		return store.Acquire([]byte(pass))
	}
	if !stdinInteractive() {
		return credstore.Credentials{}, nil,
			fmt.Errorf("%w: set AUTOCLOCKER_PASSPHRASE for noninteractive use", credstore.ErrNoPassphrase)
	}
	pass, err := credstore.PromptSecret("Credential passphrase: ")
	if err != nil {
		return credstore.Credentials{}, nil, err
	}
	defer zeroBytes(pass)
	return store.Acquire(pass)
}

// ensureCredentials returns credentials for an interactive run: the stored
// set when present, otherwise a login prompt with an offer to save.
func ensureCredentials() (credstore.Credentials, func(), error) {
	if store.Exists() {
		pass, err := credstore.PromptSecret("Credential passphrase: ")
		if err != nil {
			return credstore.Credentials{}, nil, err
		}
		defer zeroBytes(pass)
		return store.Acquire(pass)
	}

	creds, err := credstore.PromptLogin()
	if err != nil {
		return credstore.Credentials{}, nil, err
	}
	if promptYesNo("Save credentials (encrypted) for later use?") {
		if err := saveLocalCreds(creds); err != nil {
			return credstore.Credentials{}, nil, err
		}
	}
	return creds, creds.Zero, nil
}

func saveLocalCreds(creds credstore.Credentials) error {
	pass, err := credstore.PromptSecret("New credential passphrase: ")
	if err != nil {
		return err
	}
	defer zeroBytes(pass)
	confirm, err := credstore.PromptSecret("Confirm passphrase: ")
	if err != nil {
		return err
	}
	defer zeroBytes(confirm)
	if string(pass) != string(confirm) {
		return errors.New("passphrases do not match")
	}
	if err := store.Save(creds, pass); err != nil {
		return err
	}
	fmt.Printf("Credentials saved to %s.\n", cfg.CredentialsPath)
	return nil
}

func saveRemoteCreds(ctx context.Context, creds credstore.Credentials) error {
	remote, err := schedule.NewRemote(ctx, cfg, logger)
	if err != nil {
		return err
	}
	key, err := remote.SaveCreds(ctx, creds.User, creds.Password)
	if err != nil {
		return err
	}
	cfg.UserID = creds.User
	cfg.SchedulerKey = key
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving service key to config: %w", err)
	}
	fmt.Printf("Saved key for user %s with the autoclocker service.\n", creds.User)
	return nil
}

// readYesNo asks a yes/no question and reads one line from r. Only "y" or
// "yes" (any case) counts as yes.
func readYesNo(r io.Reader, prompt string) bool {
	fmt.Print(prompt + " [y/N]: ")
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func promptYesNo(prompt string) bool {
	return readYesNo(os.Stdin, prompt)
}

// nextIncrement is the first paid increment boundary strictly after the
// server's current time.
func nextIncrement(serverNow time.Time) time.Time {
	return timecalc.NextBoundary(serverNow, cfg.Settings().Resolution)
}

// fetchTimesheet fetches today's shifts and builds the timesheet against the
// server's clock.
func fetchTimesheet(ctx context.Context, sess *portal.Session) (*timecalc.Timesheet, *portal.Day, error) {
	day, err := client.FetchToday(ctx, sess)
	if err != nil {
		return nil, nil, err
	}
	ts, err := timecalc.BuildTimesheet(day.Intervals, cfg.Settings(), day.ServerNow)
	if err != nil {
		return nil, nil, err
	}
	return ts, day, nil
}

// scheduleClockOut registers the one-shot job and records it. A previously
// registered local job is cancelled first so only one clock-out is pending.
func scheduleClockOut(ctx context.Context, target time.Time, remote bool, ts *timecalc.Timesheet) error {
	var sched schedule.Scheduler
	var err error
	backend := "local"
	if remote {
		backend = "remote"
		sched, err = schedule.NewRemote(ctx, cfg, logger)
	} else {
		sched, err = schedule.NewLocal(logger)
	}
	if err != nil {
		return err
	}

	supersedePriorJob(ctx, sched, backend)

	ref, err := sched.ScheduleOnce(ctx, target)
	if err != nil {
		return err
	}
	if _, err := db.RecordJob(&storage.Job{
		RegisteredAt: time.Now(),
		Target:       target,
		Backend:      backend,
		JobRef:       ref,
	}); err != nil {
		logger.Warn().Err(err).Msg("could not record scheduled job")
	}
	recordRun("schedule", ts, backend+" job "+ref)
	fmt.Printf("Automatic clock-out scheduled for %s.\n", target.Format("03:04 PM"))
	return nil
}

// supersedePriorJob cancels a still-pending local job and marks any prior
// registration superseded, so only one clock-out is pending at a time.
func supersedePriorJob(ctx context.Context, sched schedule.Scheduler, backend string) {
	prior, err := db.ActiveJob()
	if err != nil {
		logger.Warn().Err(err).Msg("could not check for a previous job")
		return
	}
	if prior == nil {
		return
	}
	if prior.Backend == "local" && backend == "local" && prior.Target.After(time.Now()) {
		if err := sched.Cancel(ctx, prior.JobRef); err != nil {
			logger.Warn().Err(err).Str("jobRef", prior.JobRef).Msg("could not cancel previous job")
		}
	}
	// Remote jobs are overwritten per-user by the service itself.
	if err := db.MarkJobCancelled(prior.ID); err != nil {
		logger.Warn().Err(err).Msg("could not mark previous job cancelled")
	}
}

func recordRun(action string, ts *timecalc.Timesheet, detail string) {
	run := &storage.Run{Timestamp: time.Now(), Action: action, Detail: detail}
	if ts != nil {
		run.AccruedHours, _ = report.Hours(ts.Total).Float64()
		if ts.ClockedIn {
			target := ts.Target
			run.Target = &target
		}
	}
	if _, err := db.RecordRun(run); err != nil {
		logger.Warn().Err(err).Msg("could not record run")
	}
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func init() {
	scheduleCmd.Flags().Bool("remote", false, "Use the AWS autoclocker service")
	scheduleCmd.Flags().Bool("next", false, "Clock out at the next paid increment instead of the computed target")

	savecredsCmd.Flags().Bool("remote", false, "Save credentials with the AWS autoclocker service")

	historyCmd.Flags().IntP("limit", "n", 10, "Number of runs to show")
}
