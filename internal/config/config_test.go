package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Level != "11_vs_11_deterministic" {
		t.Fatalf("level = %q", cfg.Level)
	}
	if cfg.Seed != 42 || cfg.DataDir != "data" || cfg.ListenAddr != ":8765" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if !cfg.LogEpisodes {
		t.Fatal("episode logging should default on")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	doc := `
level: empty_goal
seed: 7
render: true
reverse_team_processing: true
data_dir: /tmp/pitch
listen_addr: ":9000"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Level != "empty_goal" || cfg.Seed != 7 || !cfg.Render || !cfg.ReverseTeamProcessing {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.DataDir != "/tmp/pitch" || cfg.ListenAddr != ":9000" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	doc := `
log_episodes: false
index_episodes: true
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}
