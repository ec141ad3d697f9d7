// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Recall RecallFileConfig `toml:"recall"`
	OddOne OddOneFileConfig `toml:"oddone"`
	Stats  StatsFileConfig  `toml:"stats"`
}

// RecallFileConfig maps settings for the object-location game.
type RecallFileConfig struct {
	Rounds   *int     `toml:"rounds"`
	MinItems *int     `toml:"min-items"`
	MaxItems *int     `toml:"max-items"`
	GridCols *int     `toml:"grid-cols"`
	GridRows *int     `toml:"grid-rows"`
	Bias     *float64 `toml:"bias"`
	Catalog  *string  `toml:"catalog"`
}

// OddOneFileConfig maps settings for the odd-one-out game.
type OddOneFileConfig struct {
	Rounds  *int     `toml:"rounds"`
	Bias    *float64 `toml:"bias"`
	Catalog *string  `toml:"catalog"`
}

// StatsFileConfig maps stats-related settings.
type StatsFileConfig struct {
	CurveWindow *int `toml:"curve-window"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
