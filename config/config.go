package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"go-welte/expression"
	"go-welte/rollfile"
)

// OutputConfig defines what is written next to the velocities
type OutputConfig struct {
	PanBass              uint8 `json:"panBass"`
	PanTreble            uint8 `json:"panTreble"`
	DropExpressionTracks bool  `json:"dropExpressionTracks,omitempty"`
}

// RollConfig defines how scans are prepared before expression
type RollConfig struct {
	Tempo          float64 `json:"tempo,omitempty"` // 0 keeps the file resolution
	HoleCorrection bool    `json:"holeCorrection,omitempty"`
	PunchDiameter  float64 `json:"punchDiameter"`
	PunchFraction  float64 `json:"punchFraction"`
}

// UIConfig stores CLI preferences
type UIConfig struct {
	Palette    string `json:"palette,omitempty"` // GIMP .gpl file, built-in if empty
	LogLevel   string `json:"logLevel,omitempty"`
	OutputPort string `json:"outputPort,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Expression expression.Config `json:"expression"`
	Output     OutputConfig      `json:"output"`
	Roll       RollConfig        `json:"roll"`
	UI         UIConfig          `json:"ui,omitempty"`
}

// DefaultConfig returns a config with Red Welte defaults
func DefaultConfig() *Config {
	opts := rollfile.DefaultOptions()
	out := rollfile.DefaultOutput()
	return &Config{
		Expression: expression.DefaultConfig(),
		Output: OutputConfig{
			PanBass:   out.PanBass,
			PanTreble: out.PanTreble,
		},
		Roll: RollConfig{
			PunchDiameter: opts.PunchDiameter,
			PunchFraction: opts.PunchFraction,
		},
		UI: UIConfig{
			LogLevel: "info",
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-welte"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads a config file over the defaults; a missing file yields defaults
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrap(err, "read config")
	}

	// fields absent from the file keep their defaults
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path, creating its directory
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create config dir")
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return errors.Wrap(os.WriteFile(path, data, 0644), "write config")
}

// Validate checks the settings the expression core cannot use
func (c *Config) Validate() error {
	if err := c.Expression.Validate(); err != nil {
		return errors.Wrap(err, "expression")
	}
	if c.Output.PanBass > 127 || c.Output.PanTreble > 127 {
		return errors.New("pan values must be within 0-127")
	}
	if c.Roll.Tempo < 0 {
		return errors.Errorf("roll tempo %.3f is negative", c.Roll.Tempo)
	}
	return nil
}

// RollOptions converts the roll settings for the reader
func (c *Config) RollOptions() rollfile.Options {
	return rollfile.Options{
		RollTempo:            c.Roll.Tempo,
		HoleCorrection:       c.Roll.HoleCorrection,
		PunchDiameter:        c.Roll.PunchDiameter,
		PunchFraction:        c.Roll.PunchFraction,
		DropExpressionTracks: c.Output.DropExpressionTracks,
	}
}

// RollOutput converts the output settings for the writer
func (c *Config) RollOutput() rollfile.Output {
	return rollfile.Output{
		PanBass:           c.Output.PanBass,
		PanTreble:         c.Output.PanTreble,
		PedalEngageValue:  c.Expression.PedalEngageValue,
		PedalReleaseValue: c.Expression.PedalReleaseValue,
	}
}
