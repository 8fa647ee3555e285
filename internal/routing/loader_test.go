package routing

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
defaults:
  confidence_threshold: 85
  timeout_seconds: 180
  model: sonnet

agents:
  architect:
    name: "@architect"
    topics:
      - architecture
      - authentication
    model: opus
  testing:
    topics:
      - testing

overrides:
  security:
    agent: architect
    confidence_threshold: 95
  legal:
    agent: human
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Defaults.ConfidenceThreshold != 85 {
		t.Errorf("expected threshold 85, got %d", cfg.Defaults.ConfidenceThreshold)
	}

	// Agent without explicit name gets "@id"; without model gets the default.
	testing_, ok := cfg.Agents["testing"]
	if !ok {
		t.Fatal("agent testing missing")
	}
	if testing_.Name != "@testing" {
		t.Errorf("expected @testing, got %s", testing_.Name)
	}
	if testing_.Model != "sonnet" {
		t.Errorf("expected default model, got %s", testing_.Model)
	}
	if testing_.TimeoutSeconds != 180 {
		t.Errorf("expected default timeout 180, got %d", testing_.TimeoutSeconds)
	}
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	sec, ok := cfg.Overrides["security"]
	if !ok {
		t.Fatal("security override missing")
	}
	if sec.Agent != "architect" {
		t.Errorf("expected architect, got %s", sec.Agent)
	}
	if sec.ConfidenceThreshold == nil || *sec.ConfidenceThreshold != 95 {
		t.Errorf("expected threshold 95, got %v", sec.ConfidenceThreshold)
	}

	legal := cfg.Overrides["legal"]
	if legal.Agent != HumanAgent {
		t.Errorf("expected human, got %s", legal.Agent)
	}
}

func TestParseEmptyConfigUsesBuiltinDefaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Defaults.ConfidenceThreshold != DefaultConfidenceThreshold {
		t.Errorf("expected %d, got %d", DefaultConfidenceThreshold, cfg.Defaults.ConfidenceThreshold)
	}
	if cfg.Defaults.Model != DefaultModel {
		t.Errorf("expected %s, got %s", DefaultModel, cfg.Defaults.Model)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routing.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if len(cfg.Agents) != 2 {
		t.Errorf("expected 2 agents, got %d", len(cfg.Agents))
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file should error")
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte(":\n  - not yaml")); err == nil {
		t.Error("invalid YAML should error")
	}
}
