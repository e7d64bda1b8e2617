package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Logger    Logger
	Converter ConverterConfig
}

type ServerConfig struct {
	AppVersion string
	Port       string
	Mode       string
}

type Logger struct {
	Development bool
	Encoding    string
	Level       string
	File        string
}

type ConverterConfig struct {
	MaxConcurrentProcesses int
	JobTTLSeconds          int
	WorkspaceBaseDir       string
	FFmpegPath             string
	SinglePassMaxSeconds   float64
	KillGraceSeconds       int
	FileTimeoutSeconds     int
	MaxCPUUsage            float64
	SweepSchedule          string
}

// JobTTL returns the configured job time-to-live as a duration.
func (c ConverterConfig) JobTTL() time.Duration {
	return time.Duration(c.JobTTLSeconds) * time.Second
}

func (c ConverterConfig) KillGrace() time.Duration {
	if c.KillGraceSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.KillGraceSeconds) * time.Second
}

func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.AddConfigPath(".")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFound) {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	if c.Converter.MaxConcurrentProcesses < 1 {
		c.Converter.MaxConcurrentProcesses = 4
	}
	if c.Converter.WorkspaceBaseDir == "" {
		c.Converter.WorkspaceBaseDir = "tmp"
	}
	if c.Converter.FFmpegPath == "" {
		c.Converter.FFmpegPath = "ffmpeg"
	}
	if c.Converter.SinglePassMaxSeconds <= 0 {
		c.Converter.SinglePassMaxSeconds = 30
	}
	return &c, nil
}
