package ffmpeg

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFormat is returned by NewStrategy for unregistered output formats.
var ErrUnknownFormat = errors.New("unknown output format")

// Params are the per-file inputs a strategy turns into command lines.
type Params struct {
	InputPath  string
	OutputPath string
	Scale      string // "original" or a WIDTH:-1 spec
	FPS        int
	StartSec   float64
	EndSec     float64
}

// ClipDuration returns the selected duration with a small floor so progress
// math stays defined.
func (p Params) ClipDuration() float64 {
	d := p.EndSec - p.StartSec
	if d < 0.01 {
		return 0.01
	}
	return d
}

// Command is one pass of a conversion. At most one pass of a strategy tracks
// progress; CleanupPath, if set, is removed after the whole sequence ran.
type Command struct {
	Args          []string
	TrackProgress bool
	CleanupPath   string
}

// Strategy describes how to transform one input into one output. The
// orchestrator depends only on this interface; adding an output format means
// adding an implementation, not touching the orchestrator.
type Strategy interface {
	OutputExtension() string
	Description() string
	BuildCommands(p Params) []Command
}

// NewStrategy resolves a requested output format to a concrete strategy.
// An empty format defaults to GIF.
func NewStrategy(format, ffmpegPath string, singlePassMaxSeconds float64) (Strategy, error) {
	switch format {
	case "", "gif":
		return &GifStrategy{FFmpegPath: ffmpegPath, SinglePassMaxSeconds: singlePassMaxSeconds}, nil
	case "mp4":
		return &Mp4Strategy{FFmpegPath: ffmpegPath}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// GifStrategy converts a clip to an animated GIF using the
// palettegen/paletteuse filter chain. Clips longer than SinglePassMaxSeconds
// are done in two passes with a subsampled palette, which keeps palette
// generation memory bounded.
type GifStrategy struct {
	FFmpegPath           string
	SinglePassMaxSeconds float64
}

func (s *GifStrategy) OutputExtension() string { return ".gif" }

func (s *GifStrategy) Description() string { return "GIF conversion" }

func (s *GifStrategy) BuildCommands(p Params) []Command {
	if p.ClipDuration() <= s.SinglePassMaxSeconds {
		return []Command{{Args: s.singlePass(p), TrackProgress: true}}
	}

	palettePath := p.OutputPath + ".palette.png"
	return []Command{
		{Args: s.paletteGen(p, palettePath)},
		{Args: s.paletteUse(p, palettePath), TrackProgress: true, CleanupPath: palettePath},
	}
}

func (s *GifStrategy) singlePass(p Params) []string {
	filters := []string{fmt.Sprintf("fps=%d", p.FPS)}
	if p.Scale != "original" {
		filters = append(filters, fmt.Sprintf("scale=%s:flags=lanczos", p.Scale))
	}
	filters = append(filters, "split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse")

	return []string{
		s.FFmpegPath,
		"-y",
		"-ss", formatSeconds(p.StartSec),
		"-i", p.InputPath,
		"-to", formatSeconds(p.EndSec),
		"-vf", strings.Join(filters, ","),
		"-loop", "0",
		p.OutputPath,
	}
}

// paletteGen samples the clip at 1 fps to build a global palette.
func (s *GifStrategy) paletteGen(p Params, palettePath string) []string {
	return []string{
		s.FFmpegPath,
		"-y",
		"-ss", formatSeconds(p.StartSec),
		"-i", p.InputPath,
		"-to", formatSeconds(p.EndSec),
		"-vf", "fps=1,palettegen",
		palettePath,
	}
}

func (s *GifStrategy) paletteUse(p Params, palettePath string) []string {
	filters := []string{fmt.Sprintf("fps=%d", p.FPS)}
	if p.Scale != "original" {
		filters = append(filters, fmt.Sprintf("scale=%s:flags=lanczos", p.Scale))
	}
	filters = append(filters, "paletteuse")

	return []string{
		s.FFmpegPath,
		"-y",
		"-ss", formatSeconds(p.StartSec),
		"-i", p.InputPath,
		"-i", palettePath,
		"-to", formatSeconds(p.EndSec),
		"-lavfi", strings.Join(filters, ","),
		"-loop", "0",
		p.OutputPath,
	}
}

// Mp4Strategy re-encodes the selected clip as H.264/AAC mp4.
type Mp4Strategy struct {
	FFmpegPath string
}

func (s *Mp4Strategy) OutputExtension() string { return ".mp4" }

func (s *Mp4Strategy) Description() string { return "MP4 clip" }

func (s *Mp4Strategy) BuildCommands(p Params) []Command {
	args := []string{
		s.FFmpegPath,
		"-y",
		"-ss", formatSeconds(p.StartSec),
		"-i", p.InputPath,
		"-to", formatSeconds(p.EndSec),
	}
	var filters []string
	if p.FPS > 0 {
		filters = append(filters, fmt.Sprintf("fps=%d", p.FPS))
	}
	if p.Scale != "original" {
		filters = append(filters, fmt.Sprintf("scale=%s:flags=lanczos", p.Scale))
	}
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "fast",
		"-movflags", "+faststart",
		"-c:a", "aac",
		"-b:a", "128k",
		p.OutputPath,
	)
	return []Command{{Args: args, TrackProgress: true}}
}

func formatSeconds(sec float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", sec), "0"), ".")
}
