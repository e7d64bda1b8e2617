package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAndParseConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  appVersion: 1.0.0
  port: :8080
  mode: Development
logger:
  development: true
  encoding: console
  level: info
converter:
  maxConcurrentProcesses: 2
  jobTTLSeconds: 600
  workspaceBaseDir: /var/lib/clipforge
  ffmpegPath: /usr/bin/ffmpeg
  singlePassMaxSeconds: 20
  killGraceSeconds: 3
  maxCPUUsage: 85
  sweepSchedule: "@every 5m"
`)

	v, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	cfg, err := ParseConfig(v)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}

	if cfg.Server.Port != ":8080" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.Converter.MaxConcurrentProcesses != 2 {
		t.Errorf("maxConcurrentProcesses = %d", cfg.Converter.MaxConcurrentProcesses)
	}
	if got := cfg.Converter.JobTTL(); got != 10*time.Minute {
		t.Errorf("JobTTL = %v, want 10m", got)
	}
	if got := cfg.Converter.KillGrace(); got != 3*time.Second {
		t.Errorf("KillGrace = %v, want 3s", got)
	}
	if cfg.Converter.SinglePassMaxSeconds != 20 {
		t.Errorf("singlePassMaxSeconds = %v", cfg.Converter.SinglePassMaxSeconds)
	}
	if cfg.Converter.SweepSchedule != "@every 5m" {
		t.Errorf("sweepSchedule = %q", cfg.Converter.SweepSchedule)
	}
}

func TestParseConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: :8080
converter:
  jobTTLSeconds: 3600
`)

	v, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	cfg, err := ParseConfig(v)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}

	if cfg.Converter.MaxConcurrentProcesses != 4 {
		t.Errorf("default maxConcurrentProcesses = %d, want 4", cfg.Converter.MaxConcurrentProcesses)
	}
	if cfg.Converter.WorkspaceBaseDir != "tmp" {
		t.Errorf("default workspaceBaseDir = %q, want tmp", cfg.Converter.WorkspaceBaseDir)
	}
	if cfg.Converter.FFmpegPath != "ffmpeg" {
		t.Errorf("default ffmpegPath = %q, want ffmpeg", cfg.Converter.FFmpegPath)
	}
	if cfg.Converter.SinglePassMaxSeconds != 30 {
		t.Errorf("default singlePassMaxSeconds = %v, want 30", cfg.Converter.SinglePassMaxSeconds)
	}
	if got := cfg.Converter.KillGrace(); got != 5*time.Second {
		t.Errorf("default KillGrace = %v, want 5s", got)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Fatal("LoadConfig succeeded on a missing file")
	}
}
