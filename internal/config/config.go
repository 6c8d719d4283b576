// Package config holds the environment run configuration loaded from
// yaml. Missing file means defaults; a present file is validated.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Level                 string `yaml:"level"`
	Seed                  int64  `yaml:"seed"`
	Render                bool   `yaml:"render"`
	ReverseTeamProcessing bool   `yaml:"reverse_team_processing"`

	DataDir        string `yaml:"data_dir"`
	LogEpisodes    bool   `yaml:"log_episodes"`
	IndexEpisodes  bool   `yaml:"index_episodes"`
	TrackerEnabled bool   `yaml:"tracker_enabled"`

	ListenAddr string `yaml:"listen_addr"`
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Level:       "11_vs_11_deterministic",
		Seed:        42,
		DataDir:     "data",
		LogEpisodes: true,
		ListenAddr:  ":8765",
	}
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.Level = strings.TrimSpace(c.Level)
	if c.Level == "" {
		c.Level = "11_vs_11_deterministic"
	}
	c.DataDir = strings.TrimSpace(c.DataDir)
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		c.ListenAddr = ":8765"
	}
}

func (c Config) Validate() error {
	if c.Seed < 0 {
		return fmt.Errorf("seed must be >= 0")
	}
	if c.IndexEpisodes && !c.LogEpisodes {
		return fmt.Errorf("index_episodes requires log_episodes")
	}
	return nil
}
