package routing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default values applied when the config file omits the defaults section.
const (
	DefaultConfidenceThreshold = 80
	DefaultTimeoutSeconds      = 120
	DefaultModel               = "sonnet"
)

// rawConfig mirrors the YAML layout of the routing file:
//
//	defaults:
//	  confidence_threshold: 80
//	  timeout_seconds: 120
//	  model: sonnet
//	agents:
//	  architect:
//	    name: "@architect"
//	    topics: [architecture, authentication]
//	    model: opus
//	overrides:
//	  security:
//	    agent: architect
//	    confidence_threshold: 95
type rawConfig struct {
	Defaults struct {
		ConfidenceThreshold *int   `yaml:"confidence_threshold"`
		TimeoutSeconds      *int   `yaml:"timeout_seconds"`
		Model               string `yaml:"model"`
	} `yaml:"defaults"`
	Agents map[string]struct {
		Name           string   `yaml:"name"`
		Topics         []string `yaml:"topics"`
		Model          string   `yaml:"model"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
	} `yaml:"agents"`
	Overrides map[string]struct {
		Agent               string `yaml:"agent"`
		ConfidenceThreshold *int   `yaml:"confidence_threshold"`
		Model               string `yaml:"model"`
	} `yaml:"overrides"`
}

// LoadFile loads a routing config from a YAML file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read routing config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse loads a routing config from YAML bytes and applies defaults.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse routing config: %w", err)
	}

	cfg := &Config{
		Defaults: Defaults{
			ConfidenceThreshold: DefaultConfidenceThreshold,
			TimeoutSeconds:      DefaultTimeoutSeconds,
			Model:               DefaultModel,
		},
		Agents:    make(map[string]AgentDefinition, len(raw.Agents)),
		Overrides: make(map[string]Override, len(raw.Overrides)),
	}

	if raw.Defaults.ConfidenceThreshold != nil {
		cfg.Defaults.ConfidenceThreshold = *raw.Defaults.ConfidenceThreshold
	}
	if raw.Defaults.TimeoutSeconds != nil {
		cfg.Defaults.TimeoutSeconds = *raw.Defaults.TimeoutSeconds
	}
	if raw.Defaults.Model != "" {
		cfg.Defaults.Model = raw.Defaults.Model
	}

	for id, a := range raw.Agents {
		name := a.Name
		if name == "" {
			name = "@" + id
		}
		model := a.Model
		if model == "" {
			model = cfg.Defaults.Model
		}
		timeout := a.TimeoutSeconds
		if timeout <= 0 {
			timeout = cfg.Defaults.TimeoutSeconds
		}
		cfg.Agents[id] = AgentDefinition{
			ID:             id,
			Name:           name,
			Topics:         a.Topics,
			Model:          model,
			TimeoutSeconds: timeout,
		}
	}

	for topic, ov := range raw.Overrides {
		agent := ov.Agent
		if agent == "" {
			agent = HumanAgent
		}
		cfg.Overrides[topic] = Override{
			Agent:               agent,
			ConfidenceThreshold: ov.ConfidenceThreshold,
			Model:               ov.Model,
		}
	}

	return cfg, nil
}
