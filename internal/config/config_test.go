package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mrcyclo/nestopia/internal/resample"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := DefaultConfig()
	if cfg.ListenAddr != def.ListenAddr || cfg.Audio != def.Audio || cfg.Core != def.Core {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	q, err := cfg.QualityLevel()
	if err != nil || q != resample.SincFastest {
		t.Errorf("expected sinc-fastest, got %v, %v", q, err)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nestaudio.yaml")
	data := []byte(`
listen_addr: ":7070"
audio:
  backend: "null"
  quality: "4"
  mute: true
capture:
  format: pulse
  device: default
core:
  audio_input: true
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":7070" || cfg.Audio.Backend != BackendNull || !cfg.Audio.Mute {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if q, _ := cfg.QualityLevel(); q != resample.Linear {
		t.Errorf("expected linear, got %v", q)
	}
	if cfg.Audio.BufferSamples != DefaultConfig().Audio.BufferSamples {
		t.Errorf("unset key should keep default, got %d", cfg.Audio.BufferSamples)
	}
	if cfg.Capture.Device != "default" || !cfg.Core.AudioInput {
		t.Errorf("capture settings not applied: %+v %+v", cfg.Capture, cfg.Core)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("NESTAUDIO_LISTEN_ADDR", ":6060")
	t.Setenv("NESTAUDIO_MUTE", "true")
	t.Setenv("NESTAUDIO_BUFFER_SAMPLES", "4096")
	t.Setenv("NESTAUDIO_QUALITY", "zero-order-hold")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":6060" || !cfg.Audio.Mute || cfg.Audio.BufferSamples != 4096 {
		t.Errorf("env not applied: %+v", cfg)
	}
	if q, _ := cfg.QualityLevel(); q != resample.ZeroOrderHold {
		t.Errorf("expected zero-order-hold, got %v", q)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"backend", func(c *Config) { c.Audio.Backend = "alsa" }},
		{"quality", func(c *Config) { c.Audio.Quality = "cubic" }},
		{"buffer", func(c *Config) { c.Audio.BufferSamples = 1 }},
		{"rate", func(c *Config) { c.Core.Rate = 0 }},
		{"channels", func(c *Config) { c.Core.Channels = 0 }},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.modify(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}

	cfg := DefaultConfig()
	cfg.Audio.Quality = "9"
	if err := cfg.Validate(); !errors.Is(err, resample.ErrInvalidQuality) {
		t.Errorf("expected ErrInvalidQuality, got %v", err)
	}
}

func TestBadFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("audio: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error")
	}
}
