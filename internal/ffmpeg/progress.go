package ffmpeg

import (
	"strconv"
	"strings"
	"time"
)

// Progress is one observation derived from a diagnostic line.
type Progress struct {
	Percent    float64
	EstSeconds *float64
}

// LineParser extracts progress from one diagnostic line of a running
// conversion. Lines without a recognizable marker return ok=false and are
// ignored by the runner. Strategies may supply their own parser; the
// clamp/ETA arithmetic in computeProgress is shared.
type LineParser interface {
	Parse(line string, clipDuration float64, elapsedWall time.Duration) (Progress, bool)
}

// timeMarkerParser understands ffmpeg's stderr status lines, which carry an
// elapsed output marker of the form "time=HH:MM:SS.ms".
type timeMarkerParser struct{}

func NewProgressParser() LineParser {
	return timeMarkerParser{}
}

func (timeMarkerParser) Parse(line string, clipDuration float64, elapsedWall time.Duration) (Progress, bool) {
	idx := strings.Index(line, "time=")
	if idx < 0 {
		return Progress{}, false
	}
	marker := line[idx+len("time="):]
	if sp := strings.IndexAny(marker, " \t"); sp >= 0 {
		marker = marker[:sp]
	}
	elapsed, err := parseClock(marker)
	if err != nil {
		return Progress{}, false
	}
	return computeProgress(elapsed, clipDuration, elapsedWall), true
}

// parseClock converts an HH:MM:SS.ms clock string to seconds.
func parseClock(s string) (float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, strconv.ErrSyntax
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, err
	}
	return float64(h)*3600 + float64(m)*60 + sec, nil
}

// computeProgress applies the shared percent clamp and ETA estimate. The ETA
// extrapolates wall-clock time spent so far across the remaining percentage
// and is nil until any progress has been made.
func computeProgress(elapsedOutput, clipDuration float64, elapsedWall time.Duration) Progress {
	var pct float64
	if clipDuration > 0 {
		pct = elapsedOutput / clipDuration * 100.0
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	p := Progress{Percent: pct}
	if pct > 0 && pct < 100 {
		est := elapsedWall.Seconds() / pct * (100.0 - pct)
		if est < 0 {
			est = 0
		}
		p.EstSeconds = &est
	}
	return p
}
