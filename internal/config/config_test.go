package config

import (
	"path/filepath"
	"testing"
)

func TestLoadTestdataConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Name != "optionscout" {
		t.Fatalf("app name = %q", cfg.App.Name)
	}
	if cfg.App.APIAddr != ":8080" || cfg.App.MetricsAddr != ":9100" {
		t.Fatalf("addrs wrong: api=%q metrics=%q", cfg.App.APIAddr, cfg.App.MetricsAddr)
	}
	if len(cfg.Watchlist) != 3 || cfg.Watchlist[0] != "NVDA" {
		t.Fatalf("watchlist = %v", cfg.Watchlist)
	}
	if cfg.Scoring.TrendLongWindow != 50 {
		t.Fatalf("trend long window = %d", cfg.Scoring.TrendLongWindow)
	}
	if cfg.Ranker.Weights.Trend != 0.5 || cfg.Ranker.Deadband != 0.15 {
		t.Fatalf("ranker = %+v", cfg.Ranker)
	}
	if cfg.Synth.MaxDTE != 45 || cfg.Synth.RiskBudget != 500 {
		t.Fatalf("synth = %+v", cfg.Synth)
	}
	if cfg.Risk.MaxPremiumPerTrade != 1500 || cfg.Risk.MaxOpenPositions != 8 {
		t.Fatalf("risk = %+v", cfg.Risk)
	}
	if cfg.Ledger.SQLitePath != "data/history.db" {
		t.Fatalf("sqlite path = %q", cfg.Ledger.SQLitePath)
	}
	if cfg.Feed.Provider != "stub" {
		t.Fatalf("feed provider = %q", cfg.Feed.Provider)
	}
	if cfg.Schedule.Scan == "" || cfg.Schedule.Report == "" {
		t.Fatalf("schedule incomplete: %+v", cfg.Schedule)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join("testdata", "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if back.App.Name != cfg.App.Name || back.Synth.MaxDTE != cfg.Synth.MaxDTE {
		t.Fatalf("round trip drifted: %+v", back)
	}
}

func TestSaveNilConfig(t *testing.T) {
	if err := Save(filepath.Join(t.TempDir(), "config.yaml"), nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
