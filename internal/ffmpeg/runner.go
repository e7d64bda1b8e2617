package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"clipforge/internal/conversion"
	"clipforge/pkg/logger"
)

const (
	maxTailLines = 40
	maxTailBytes = 2048
)

// ProgressSink receives progress observations while the process is running.
type ProgressSink func(Progress)

// Outcome describes a finished execution.
type Outcome struct {
	ExitCode int
	Duration time.Duration
}

// Runner launches one external conversion process, drains its diagnostic
// stream line by line and classifies the terminal result. Draining is
// synchronous with the subprocess, so a fast producer blocks on the pipe
// instead of deadlocking the runner.
type Runner struct {
	logger    logger.Logger
	killGrace time.Duration
}

func NewRunner(log logger.Logger, killGrace time.Duration) *Runner {
	if killGrace <= 0 {
		killGrace = 5 * time.Second
	}
	return &Runner{logger: log, killGrace: killGrace}
}

// Run executes args and forwards parsed progress to sink while the process is
// still running. On non-zero exit it returns a ProcessError carrying a bounded
// tail of the diagnostic output; if ctx is cancelled the subprocess gets
// SIGTERM, then SIGKILL after the grace period, and a CancelledError is
// returned.
func (r *Runner) Run(ctx context.Context, args []string, clipDuration float64, parser LineParser, sink ProgressSink) (Outcome, error) {
	if len(args) == 0 {
		return Outcome{}, errors.New("runner: empty command")
	}
	r.logger.Infof("running command: %s", strings.Join(args, " "))

	start := time.Now()
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = r.killGrace

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Outcome{}, errors.Wrap(err, "runner: stderr pipe")
	}
	if err := cmd.Start(); err != nil {
		return Outcome{}, errors.Wrapf(err, "runner: start %s", args[0])
	}

	var tail []string
	scanner := bufio.NewScanner(stderr)
	scanner.Split(scanStatusLines)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		tail = append(tail, line)
		if len(tail) > maxTailLines {
			tail = tail[1:]
		}
		if parser != nil && sink != nil && clipDuration > 0 {
			if p, ok := parser.Parse(line, clipDuration, time.Since(start)); ok {
				sink(p)
			}
		}
	}

	waitErr := cmd.Wait()
	outcome := Outcome{
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}

	if ctx.Err() != nil {
		return outcome, &conversion.CancelledError{Err: ctx.Err()}
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return outcome, &conversion.ProcessError{
				ExitCode: outcome.ExitCode,
				Tail:     truncateTail(tail),
			}
		}
		return outcome, errors.Wrap(waitErr, "runner: wait")
	}
	return outcome, nil
}

// scanStatusLines splits on \n and also on bare \r, which ffmpeg uses to
// redraw its status line. Plain ScanLines would hold progress back until the
// process exits.
func scanStatusLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func truncateTail(lines []string) string {
	s := strings.Join(lines, "\n")
	if len(s) > maxTailBytes {
		s = s[len(s)-maxTailBytes:]
	}
	return s
}
