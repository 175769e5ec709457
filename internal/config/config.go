// Package config loads and validates the bitload YAML configuration file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file consulted when -config is not given.
const DefaultPath = "bitload.yaml"

// Default values for runner configuration.
const (
	// DefaultTimeout of zero means no deadline: a hung toolchain
	// invocation blocks until it exits.
	DefaultTimeout   = time.Duration(0)
	DefaultMaxOutput = 1 << 20 // 1 MB
)

// Config holds the parsed bitload configuration.
type Config struct {
	// TmpDir is the working directory for the generated script and
	// the captured toolchain output.
	TmpDir string `yaml:"tmp_dir"`

	// Vivado is the path of the vendor toolchain executable.
	Vivado string `yaml:"vivado"`

	// PCIDevice is the vendor:device hex pair of the FPGA card.
	// Required only when a hot reset is requested.
	PCIDevice string `yaml:"pci_device"`

	// RawScript is the programming script as a single block of text,
	// one TCL statement per line.
	RawScript string `yaml:"programming_script"`

	RawTimeout   string `yaml:"timeout"`    // e.g. "5m", "30s"
	RawMaxOutput int    `yaml:"max_output"` // bytes
}

// Timeout returns the configured toolchain timeout, or zero for none.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured output capture cap or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// Script returns the programming script as ordered lines. A trailing
// newline in the block scalar does not produce a final empty line.
func (c *Config) Script() []string {
	raw := strings.ReplaceAll(c.RawScript, "\r\n", "\n")
	raw = strings.TrimRight(raw, "\n")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}

// MissingKeyError reports a required configuration key that is unset.
type MissingKeyError struct {
	Key  string // literal YAML key
	Role string // what the key is for
}

func (e MissingKeyError) Error() string {
	return fmt.Sprintf("config key %q (%s) is not set", e.Key, e.Role)
}

// Validate checks that every key required for this run is present.
// pci_device is only required when a hot reset was requested.
func (c *Config) Validate(hotReset bool) error {
	if c.TmpDir == "" {
		return MissingKeyError{Key: "tmp_dir", Role: "temp directory"}
	}
	if c.Vivado == "" {
		return MissingKeyError{Key: "vivado", Role: "toolchain executable"}
	}
	if len(c.Script()) == 0 {
		return MissingKeyError{Key: "programming_script", Role: "programming script"}
	}
	if hotReset && c.PCIDevice == "" {
		return MissingKeyError{Key: "pci_device", Role: "PCI device identifier"}
	}
	return nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
