// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package config loads diskerase settings from defaults, a YAML file and DISKERASE_* variables.
package config

import (
	"os"
	"os/user"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// EnvPrefix of the environment overrides.
const EnvPrefix = "DISKERASE"

// Config holds the settings.
type Config struct {
	LogDir   string `mapstructure:"log_dir"`
	Diskutil string `mapstructure:"diskutil"`
	Smartctl string `mapstructure:"smartctl"`
	Debug    bool   `mapstructure:"debug"`
}

// Paths are the locations the defaults derive from.
type Paths struct {
	// Home of the invoking user.
	Home string
	// ConfigDir holds config.yaml.
	ConfigDir string
}

// DefaultPaths resolves the home of the user who invoked the tool, following sudo.
func DefaultPaths(getenv func(string) string, lookup func(string) (*user.User, error)) (Paths, error) {
	home := ""

	if name := getenv("SUDO_USER"); name != "" && name != "root" {
		u, err := lookup(name)
		if err != nil {
			return Paths{}, errors.Wrapf(err, "failed to look up sudo user %q", name)
		}

		home = u.HomeDir
	}

	if home == "" {
		var err error

		if home, err = os.UserHomeDir(); err != nil {
			return Paths{}, errors.Wrap(err, "failed to find home directory")
		}
	}

	configHome := getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(home, ".config")
	}

	return Paths{
		Home:      home,
		ConfigDir: filepath.Join(configHome, "diskerase"),
	}, nil
}

// Load reads the configuration.
//
// A missing config file is not an error.
func Load(paths Paths) (Config, error) {
	v := viper.New()

	v.SetDefault("log_dir", filepath.Join(paths.Home, "Library", "Logs", "diskerase"))
	v.SetDefault("diskutil", "diskutil")
	v.SetDefault("smartctl", "smartctl")
	v.SetDefault("debug", false)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(paths.ConfigDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError

		if !errors.As(err, &notFound) {
			return Config{}, errors.Wrap(err, "failed to read config")
		}
	}

	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode config")
	}

	return cfg, nil
}
