package ffmpeg

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"clipforge/internal/conversion"
	"clipforge/pkg/logger"
)

func newTestRunner() *Runner {
	return NewRunner(logger.NewNopLogger(), time.Second)
}

func TestRunnerStreamsProgressWhileRunning(t *testing.T) {
	r := newTestRunner()

	var observed []Progress
	sink := func(p Progress) { observed = append(observed, p) }

	args := []string{"/bin/sh", "-c",
		`printf 'frame=1 time=00:00:01.00 x\nframe=2 time=00:00:02.00 x\n' 1>&2`}
	outcome, err := r.Run(context.Background(), args, 4.0, NewProgressParser(), sink)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", outcome.ExitCode)
	}
	if len(observed) != 2 {
		t.Fatalf("got %d progress observations, want 2", len(observed))
	}
	if observed[0].Percent != 25.0 || observed[1].Percent != 50.0 {
		t.Errorf("percents = %v, %v, want 25, 50", observed[0].Percent, observed[1].Percent)
	}
}

func TestRunnerSplitsCarriageReturnStatusLines(t *testing.T) {
	r := newTestRunner()

	var observed []Progress
	args := []string{"/bin/sh", "-c",
		`printf 'time=00:00:01.00 x\rtime=00:00:03.00 x\r' 1>&2`}
	if _, err := r.Run(context.Background(), args, 4.0, NewProgressParser(), func(p Progress) {
		observed = append(observed, p)
	}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(observed) != 2 {
		t.Fatalf("got %d observations from \\r separated output, want 2", len(observed))
	}
}

func TestRunnerReportsProcessErrorWithTail(t *testing.T) {
	r := newTestRunner()

	args := []string{"/bin/sh", "-c", `echo "something went wrong" 1>&2; exit 3`}
	outcome, err := r.Run(context.Background(), args, 0, nil, nil)
	if err == nil {
		t.Fatal("expected an error for exit code 3")
	}
	var pe *conversion.ProcessError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %T, want *conversion.ProcessError", err)
	}
	if pe.ExitCode != 3 || outcome.ExitCode != 3 {
		t.Errorf("exit codes = %d/%d, want 3", pe.ExitCode, outcome.ExitCode)
	}
	if !strings.Contains(pe.Tail, "something went wrong") {
		t.Errorf("tail %q missing diagnostic output", pe.Tail)
	}
}

func TestRunnerTailIsBounded(t *testing.T) {
	r := newTestRunner()

	args := []string{"/bin/sh", "-c", `i=0; while [ $i -lt 500 ]; do echo "line $i padding padding padding" 1>&2; i=$((i+1)); done; exit 1`}
	_, err := r.Run(context.Background(), args, 0, nil, nil)
	var pe *conversion.ProcessError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %T, want *conversion.ProcessError", err)
	}
	if len(pe.Tail) > maxTailBytes {
		t.Errorf("tail length %d exceeds bound %d", len(pe.Tail), maxTailBytes)
	}
	if !strings.Contains(pe.Tail, "line 499") {
		t.Error("tail should keep the most recent output")
	}
}

func TestRunnerCancellationKillsProcess(t *testing.T) {
	r := newTestRunner()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx, []string{"/bin/sh", "-c", "sleep 30"}, 0, nil, nil)
	if !conversion.IsCancelled(err) {
		t.Fatalf("error = %v, want CancelledError", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("cancellation took %v, process was not terminated promptly", elapsed)
	}
}

func TestRunnerStartFailure(t *testing.T) {
	r := newTestRunner()
	if _, err := r.Run(context.Background(), []string{"/no/such/binary-xyz"}, 0, nil, nil); err == nil {
		t.Fatal("expected an error for a missing binary")
	}
}
