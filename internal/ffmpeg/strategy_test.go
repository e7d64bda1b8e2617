package ffmpeg

import (
	"errors"
	"strings"
	"testing"
)

func TestNewStrategy(t *testing.T) {
	cases := []struct {
		format  string
		wantExt string
		wantErr bool
	}{
		{"", ".gif", false},
		{"gif", ".gif", false},
		{"mp4", ".mp4", false},
		{"avi", "", true},
	}
	for _, c := range cases {
		s, err := NewStrategy(c.format, "ffmpeg", 30)
		if c.wantErr {
			if !errors.Is(err, ErrUnknownFormat) {
				t.Errorf("NewStrategy(%q): error = %v, want ErrUnknownFormat", c.format, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("NewStrategy(%q): %v", c.format, err)
			continue
		}
		if s.OutputExtension() != c.wantExt {
			t.Errorf("NewStrategy(%q).OutputExtension() = %q, want %q", c.format, s.OutputExtension(), c.wantExt)
		}
	}
}

func TestGifStrategySinglePass(t *testing.T) {
	s := &GifStrategy{FFmpegPath: "ffmpeg", SinglePassMaxSeconds: 30}
	cmds := s.BuildCommands(Params{
		InputPath:  "/work/0_in.mp4",
		OutputPath: "/work/0_in.gif",
		Scale:      "480:-1",
		FPS:        12,
		StartSec:   1.5,
		EndSec:     11.5,
	})

	if len(cmds) != 1 {
		t.Fatalf("expected a single pass for a 10s clip, got %d", len(cmds))
	}
	if !cmds[0].TrackProgress {
		t.Error("the conversion pass should track progress")
	}

	joined := strings.Join(cmds[0].Args, " ")
	for _, want := range []string{
		"-ss 1.5",
		"-to 11.5",
		"fps=12",
		"scale=480:-1:flags=lanczos",
		"palettegen",
		"paletteuse",
		"/work/0_in.gif",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("command %q missing %q", joined, want)
		}
	}
}

func TestGifStrategyOriginalScaleSkipsScaleFilter(t *testing.T) {
	s := &GifStrategy{FFmpegPath: "ffmpeg", SinglePassMaxSeconds: 30}
	cmds := s.BuildCommands(Params{
		InputPath:  "in.mp4",
		OutputPath: "out.gif",
		Scale:      "original",
		FPS:        10,
		StartSec:   0,
		EndSec:     5,
	})
	if strings.Contains(strings.Join(cmds[0].Args, " "), "scale=") {
		t.Error("original scale should not add a scale filter")
	}
}

func TestGifStrategyTwoPassForLongClips(t *testing.T) {
	s := &GifStrategy{FFmpegPath: "ffmpeg", SinglePassMaxSeconds: 30}
	cmds := s.BuildCommands(Params{
		InputPath:  "in.mp4",
		OutputPath: "out.gif",
		Scale:      "original",
		FPS:        10,
		StartSec:   0,
		EndSec:     120,
	})

	if len(cmds) != 2 {
		t.Fatalf("expected two passes for a 120s clip, got %d", len(cmds))
	}
	if cmds[0].TrackProgress {
		t.Error("palette generation pass should not track progress")
	}
	if !strings.Contains(strings.Join(cmds[0].Args, " "), "fps=1,palettegen") {
		t.Error("first pass should generate a subsampled palette")
	}
	if !cmds[1].TrackProgress {
		t.Error("conversion pass should track progress")
	}
	if cmds[1].CleanupPath == "" {
		t.Error("conversion pass should schedule palette cleanup")
	}
	if !strings.Contains(strings.Join(cmds[1].Args, " "), cmds[1].CleanupPath) {
		t.Error("conversion pass should consume the generated palette")
	}
}

func TestMp4StrategyBuildsSingleTrackedPass(t *testing.T) {
	s := &Mp4Strategy{FFmpegPath: "ffmpeg"}
	cmds := s.BuildCommands(Params{
		InputPath:  "in.mov",
		OutputPath: "out.mp4",
		Scale:      "720:-1",
		FPS:        20,
		StartSec:   0,
		EndSec:     8,
	})
	if len(cmds) != 1 || !cmds[0].TrackProgress {
		t.Fatalf("expected one tracked pass, got %+v", cmds)
	}
	joined := strings.Join(cmds[0].Args, " ")
	for _, want := range []string{"libx264", "aac", "scale=720:-1", "out.mp4"} {
		if !strings.Contains(joined, want) {
			t.Errorf("command %q missing %q", joined, want)
		}
	}
}

func TestParamsClipDurationFloor(t *testing.T) {
	p := Params{StartSec: 5, EndSec: 5}
	if p.ClipDuration() != 0.01 {
		t.Errorf("ClipDuration() = %v, want floor 0.01", p.ClipDuration())
	}
}
