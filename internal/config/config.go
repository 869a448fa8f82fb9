// Package config carries the runtime configuration of an audit run.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// DefaultTimeoutSec bounds each npm audit invocation.
const DefaultTimeoutSec = 60

// Config is the runtime configuration of a scan, sourced from flags, the
// environment (AUDITSWEEP_ prefix) and an optional .auditsweep config file.
type Config struct {
	Start        string `json:"start" mapstructure:"start"`
	CheckFile    string `json:"checkFile" mapstructure:"check-file"`
	OutDir       string `json:"outDir" mapstructure:"out"`
	TimeoutSec   int    `json:"timeoutSec" mapstructure:"timeout"`
	Top          int    `json:"top" mapstructure:"top"`
	IncludeVenvs bool   `json:"includeVenvs" mapstructure:"include-venvs"`
}

// Parse unmarshals the bound viper state into a Config and applies
// defaults for anything left unset.
func Parse() (Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "could not parse configuration")
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Start == "" {
		c.Start = "."
	}
	if c.OutDir == "" {
		c.OutDir = "."
	}
	if c.TimeoutSec <= 0 {
		c.TimeoutSec = DefaultTimeoutSec
	}
	if c.Top < 0 {
		c.Top = 0
	}
}

// ResolveStart absolutizes the start folder and verifies it exists and is
// a directory.
func (c Config) ResolveStart() (string, error) {
	abs, err := filepath.Abs(c.Start)
	if err != nil {
		return "", errors.Wrapf(err, "could not resolve start folder %s", c.Start)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", errors.Errorf("start folder does not exist: %s", abs)
	}
	return abs, nil
}
