// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"optionscout/internal/risk"
	"optionscout/internal/scoring"
	"optionscout/internal/synth"
)

// App captures process-wide runtime settings such as name, environment,
// listen addresses, and logging level.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	APIAddr     string `yaml:"api_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Ranker tunes how factor scores combine into a composite signal.
type Ranker struct {
	Weights    scoring.Weights `yaml:"weights"`
	Deadband   float64         `yaml:"deadband"`
	VolPenalty float64         `yaml:"vol_penalty"`
}

// Ledger configures where paper-trade history is persisted.
type Ledger struct {
	HistoryPath string `yaml:"history_path"`
	SQLitePath  string `yaml:"sqlite_path"`
}

// Feed selects the market data provider.
type Feed struct {
	Provider string `yaml:"provider"`
	URL      string `yaml:"url"`
}

// Schedule holds the cron expressions driving the scan/mark/report jobs.
type Schedule struct {
	Scan   string `yaml:"scan"`
	Tick   string `yaml:"tick"`
	Report string `yaml:"report"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App       App            `yaml:"app"`
	Watchlist []string       `yaml:"watchlist"`
	Scoring   scoring.Config `yaml:"scoring"`
	Ranker    Ranker         `yaml:"ranker"`
	Synth     synth.Config   `yaml:"synth"`
	Risk      risk.Limits    `yaml:"risk"`
	Ledger    Ledger         `yaml:"ledger"`
	Feed      Feed           `yaml:"feed"`
	Schedule  Schedule       `yaml:"schedule"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
