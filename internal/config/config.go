package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/mrcyclo/nestopia/internal/audio"
	"github.com/mrcyclo/nestopia/internal/core"
	"github.com/mrcyclo/nestopia/internal/drift"
	"github.com/mrcyclo/nestopia/internal/resample"
	"github.com/mrcyclo/nestopia/internal/ringbuffer"
)

// Output backends.
const (
	BackendOto  = "oto"
	BackendNull = "null"
)

// Config is the nestaudio configuration.
type Config struct {
	// Control API listen address
	ListenAddr string `yaml:"listen_addr"`

	// Optional bearer token for mutating API calls
	APIToken string `yaml:"api_token,omitempty"`

	Audio   AudioConfig   `yaml:"audio"`
	Capture CaptureConfig `yaml:"capture"`
	Core    CoreConfig    `yaml:"core"`
}

// AudioConfig controls the output engine.
type AudioConfig struct {
	Backend       string `yaml:"backend"`
	Quality       string `yaml:"quality"`
	Mute          bool   `yaml:"mute"`
	BufferSamples int    `yaml:"buffer_samples"`
	Setpoint      int    `yaml:"setpoint_frames"`
	PeriodFrames  int    `yaml:"period_frames"`
}

// CaptureConfig selects the microphone input. An empty Device disables capture;
// "-" reads s16le mono from stdin.
type CaptureConfig struct {
	Format string `yaml:"format,omitempty"`
	Device string `yaml:"device,omitempty"`
}

// CoreConfig shapes the demo tone core.
type CoreConfig struct {
	Rate       int     `yaml:"rate"`
	Channels   int     `yaml:"channels"`
	FrameRate  float64 `yaml:"frame_rate"`
	ToneHz     float64 `yaml:"tone_hz"`
	AudioInput bool    `yaml:"audio_input"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddr: ":9090",
		Audio: AudioConfig{
			Backend:       BackendOto,
			Quality:       resample.SincFastest.String(),
			BufferSamples: ringbuffer.DefaultCapacity,
			Setpoint:      drift.DefaultSetpoint,
			PeriodFrames:  512,
		},
		Core: CoreConfig{
			Rate:      48000,
			Channels:  1,
			FrameRate: core.NTSCFrameRate,
			ToneHz:    audio.ToneFrequency,
		},
	}
}

// LoadConfig reads path over the defaults, then applies environment
// overrides and validates. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.ListenAddr = getEnv("NESTAUDIO_LISTEN_ADDR", c.ListenAddr)
	c.APIToken = getEnv("NESTAUDIO_API_TOKEN", c.APIToken)
	c.Audio.Backend = getEnv("NESTAUDIO_BACKEND", c.Audio.Backend)
	c.Audio.Quality = getEnv("NESTAUDIO_QUALITY", c.Audio.Quality)
	c.Audio.Mute = getEnvBool("NESTAUDIO_MUTE", c.Audio.Mute)
	c.Audio.BufferSamples = getEnvInt("NESTAUDIO_BUFFER_SAMPLES", c.Audio.BufferSamples)
	c.Capture.Device = getEnv("NESTAUDIO_CAPTURE_DEVICE", c.Capture.Device)
	c.Capture.Format = getEnv("NESTAUDIO_CAPTURE_FORMAT", c.Capture.Format)
}

// Validate checks that the configuration can start an engine.
func (c *Config) Validate() error {
	if c.Audio.Backend != BackendOto && c.Audio.Backend != BackendNull {
		return fmt.Errorf("invalid backend %q", c.Audio.Backend)
	}
	if _, err := c.QualityLevel(); err != nil {
		return err
	}
	if c.Audio.BufferSamples < 2 {
		return fmt.Errorf("buffer_samples must be at least 2, got %d", c.Audio.BufferSamples)
	}
	if c.Core.Rate <= 0 || c.Core.Channels < 1 || c.Core.FrameRate <= 0 {
		return fmt.Errorf("invalid core layout: rate=%d channels=%d frame_rate=%v",
			c.Core.Rate, c.Core.Channels, c.Core.FrameRate)
	}
	return nil
}

// QualityLevel resolves the configured converter quality.
func (c *Config) QualityLevel() (resample.Quality, error) {
	return resample.ParseQuality(c.Audio.Quality)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
