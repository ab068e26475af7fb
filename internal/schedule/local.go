package schedule

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const windowsTaskName = "AutoclockerClockOut"

// Local schedules the clock-out with the host's native one-shot job facility.
// The registered job re-runs this binary with the "out" subcommand at the
// target time.
type Local struct {
	command string
	log     zerolog.Logger

	// run is swapped out in tests.
	run func(ctx context.Context, stdin string, name string, args ...string) (string, error)
}

// NewLocal builds a Local scheduler that re-invokes the current executable.
func NewLocal(log zerolog.Logger) (*Local, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating executable for scheduled job: %w", err)
	}
	return &Local{
		command: exe + " out",
		log:     log,
		run:     runCommand,
	}, nil
}

func runCommand(ctx context.Context, stdin string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func (l *Local) ScheduleOnce(ctx context.Context, at time.Time) (string, error) {
	if !at.After(time.Now()) {
		return "", &ScheduleError{Backend: backendName(), Err: errors.New("target time is in the past")}
	}
	if runtime.GOOS == "windows" {
		return l.scheduleWindows(ctx, at)
	}
	return l.schedulePosix(ctx, at)
}

func (l *Local) Cancel(ctx context.Context, jobID string) error {
	var out string
	var err error
	if runtime.GOOS == "windows" {
		out, err = l.run(ctx, "", "schtasks", "/Delete", "/TN", jobID, "/F")
	} else {
		out, err = l.run(ctx, "", "atrm", jobID)
	}
	if err != nil {
		return &ScheduleError{Backend: backendName(), Output: strings.TrimSpace(out), Err: err}
	}
	l.log.Debug().Str("jobID", jobID).Msg("cancelled scheduled clock-out")
	return nil
}

func (l *Local) schedulePosix(ctx context.Context, at time.Time) (string, error) {
	// `at HH:mm today` runs the command from stdin at the given
	// machine-local time.
	out, err := l.run(ctx, l.command, "at", at.Format("15:04"), "today")
	if err != nil {
		return "", &ScheduleError{Backend: "at", Output: strings.TrimSpace(out), Err: err}
	}
	jobID, err := parseAtJobID(out)
	if err != nil {
		return "", &ScheduleError{Backend: "at", Output: strings.TrimSpace(out), Err: err}
	}
	l.log.Debug().Str("jobID", jobID).Time("at", at).Msg("registered atjob")
	return jobID, nil
}

func (l *Local) scheduleWindows(ctx context.Context, at time.Time) (string, error) {
	out, err := l.run(ctx, "", "schtasks", "/Create", "/F",
		"/SC", "ONCE",
		"/TN", windowsTaskName,
		"/ST", at.Format("15:04"),
		"/TR", l.command)
	if err != nil {
		return "", &ScheduleError{Backend: "schtasks", Output: strings.TrimSpace(out), Err: err}
	}
	l.log.Debug().Str("task", windowsTaskName).Time("at", at).Msg("registered scheduled task")
	return windowsTaskName, nil
}

var atJobPattern = regexp.MustCompile(`(?m)^job (\d+)\b`)

// parseAtJobID extracts the job number from at's stderr/stdout chatter, e.g.
//
//	warning: commands will be executed using /bin/sh
//	job 42 at Mon Mar  4 17:00:00 2024
func parseAtJobID(output string) (string, error) {
	match := atJobPattern.FindStringSubmatch(output)
	if match == nil {
		return "", errors.New("job id not found in at output")
	}
	return match[1], nil
}

func backendName() string {
	if runtime.GOOS == "windows" {
		return "schtasks"
	}
	return "at"
}
