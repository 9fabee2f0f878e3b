// Package config loads brain's YAML configuration and applies BRAIN_*
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all brain configuration.
type Config struct {
	Visual  VisualConfig  `yaml:"visual"`
	Audio   AudioConfig   `yaml:"audio"`
	Motion  MotionConfig  `yaml:"motion"`
	Control ControlConfig `yaml:"control"`
	Relay   RelayConfig   `yaml:"relay"`
	Logging LoggingConfig `yaml:"logging"`
}

// VisualConfig configures the render engine.
type VisualConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Renderer string `yaml:"renderer"` // auto, shader (GPU required), fallback
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	// Threshold of the rolling average frame time before warning.
	SlowFrameThreshold string `yaml:"slow_frame_threshold"`
	SampleWindow       int    `yaml:"sample_window"`
}

// AudioConfig configures audio reactivity and cues.
type AudioConfig struct {
	Reactive  bool    `yaml:"reactive"`
	Cues      bool    `yaml:"cues"`
	CueVolume float64 `yaml:"cue_volume"`
	Gain      float64 `yaml:"gain"`
	Smoothing float64 `yaml:"smoothing"`
}

// MotionConfig configures the reduced-motion preference.
type MotionConfig struct {
	Reduced bool `yaml:"reduced"`
	// PreferenceFile, when set, is watched for "reduce" / "no-preference".
	PreferenceFile string `yaml:"preference_file"`
}

type ControlConfig struct {
	Addr string `yaml:"addr"` // empty disables the HTTP control surface
}

type RelayConfig struct {
	RedisAddr string `yaml:"redis_addr"` // empty disables the relay
	Channel   string `yaml:"channel"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	// File receives the logs instead of stderr when set.
	File string `yaml:"file,omitempty"`
}

const (
	RendererAuto     = "auto"
	RendererShader   = "shader"
	RendererFallback = "fallback"
)

var ErrInvalid = errors.New("invalid config")

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Visual: VisualConfig{
			Enabled:            true,
			Renderer:           RendererAuto,
			Width:              960,
			Height:             540,
			SlowFrameThreshold: "50ms",
			SampleWindow:       60,
		},
		Audio: AudioConfig{
			Reactive:  false,
			Cues:      false,
			CueVolume: 0.6,
			Gain:      4.0,
			Smoothing: 0.8,
		},
		Relay: RelayConfig{
			Channel: "brain:events",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// Environment overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func envBool(name string, dst *bool) error {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalid, name, v)
	}
	*dst = b
	return nil
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	for name, dst := range map[string]*bool{
		"BRAIN_VISUAL_ENABLED": &c.Visual.Enabled,
		"BRAIN_AUDIO_REACTIVE": &c.Audio.Reactive,
		"BRAIN_AUDIO_CUES":     &c.Audio.Cues,
		"BRAIN_REDUCED_MOTION": &c.Motion.Reduced,
	} {
		if err := envBool(name, dst); err != nil {
			return err
		}
	}
	envString("BRAIN_RENDERER", &c.Visual.Renderer)
	envString("BRAIN_CONTROL_ADDR", &c.Control.Addr)
	envString("BRAIN_REDIS_ADDR", &c.Relay.RedisAddr)
	envString("BRAIN_LOG_LEVEL", &c.Logging.Level)
	return nil
}

// Validate checks values that would otherwise fail later at mount.
func (c *Config) Validate() error {
	c.Visual.Renderer = strings.ToLower(strings.TrimSpace(c.Visual.Renderer))
	switch c.Visual.Renderer {
	case "":
		c.Visual.Renderer = RendererAuto
	case RendererAuto, RendererShader, RendererFallback:
	default:
		return fmt.Errorf("%w: visual.renderer %q (want auto, shader or fallback)", ErrInvalid, c.Visual.Renderer)
	}
	if c.Visual.Width < 0 || c.Visual.Height < 0 {
		return fmt.Errorf("%w: negative visual size", ErrInvalid)
	}
	if c.Audio.Smoothing < 0 || c.Audio.Smoothing >= 1 {
		return fmt.Errorf("%w: audio.smoothing %v outside [0,1)", ErrInvalid, c.Audio.Smoothing)
	}
	if c.Audio.Gain < 0 {
		return fmt.Errorf("%w: negative audio.gain", ErrInvalid)
	}
	if c.Relay.RedisAddr != "" && c.Relay.Channel == "" {
		return fmt.Errorf("%w: relay.channel is required with relay.redis_addr", ErrInvalid)
	}
	return nil
}

// GetSlowFrameThreshold returns the slow-frame threshold as a duration.
func (c *Config) GetSlowFrameThreshold() time.Duration {
	d, err := time.ParseDuration(c.Visual.SlowFrameThreshold)
	if err != nil || d <= 0 {
		return 50 * time.Millisecond
	}
	return d
}
