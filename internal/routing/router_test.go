package routing

import (
	"reflect"
	"testing"
)

func testConfig() *Config {
	threshold95 := 95
	return &Config{
		Defaults: Defaults{ConfidenceThreshold: 80, TimeoutSeconds: 120, Model: "sonnet"},
		Agents: map[string]AgentDefinition{
			"architect": {
				ID:             "architect",
				Name:           "@architect",
				Topics:         []string{"architecture", "authentication", "database"},
				Model:          "opus",
				TimeoutSeconds: 300,
			},
			"product": {
				ID:     "product",
				Name:   "@product",
				Topics: []string{"requirements", "ux"},
				Model:  "sonnet",
			},
		},
		Overrides: map[string]Override{
			"security": {Agent: "architect", ConfidenceThreshold: &threshold95},
			"legal":    {Agent: HumanAgent},
		},
	}
}

func TestNilRouter(t *testing.T) {
	r := NewRouter(nil)

	if agent := r.ResolveAgent("architecture"); agent != HumanAgent {
		t.Errorf("nil router should resolve to human, got %s", agent)
	}
	if r.KnownTopic("architecture") {
		t.Error("nil router should know no topics")
	}
	if topics := r.KnownTopics(); topics != nil {
		t.Errorf("nil router KnownTopics should return nil, got %v", topics)
	}
}

func TestResolveAgentByTopic(t *testing.T) {
	r := NewRouter(testConfig())

	tests := []struct {
		topic string
		want  string
	}{
		{"architecture", "architect"},
		{"authentication", "architect"},
		{"requirements", "product"},
		{"security", "architect"}, // via override
		{"legal", HumanAgent},     // override to human sentinel
		{"unknown-topic", HumanAgent},
	}

	for _, tt := range tests {
		if got := r.ResolveAgent(tt.topic); got != tt.want {
			t.Errorf("ResolveAgent(%q) = %s, want %s", tt.topic, got, tt.want)
		}
	}
}

func TestOverrideWinsOverAgentTopics(t *testing.T) {
	cfg := testConfig()
	cfg.Overrides["architecture"] = Override{Agent: "product"}
	r := NewRouter(cfg)

	if got := r.ResolveAgent("architecture"); got != "product" {
		t.Errorf("override should win over agent topic list, got %s", got)
	}
}

func TestThresholdForTopic(t *testing.T) {
	r := NewRouter(testConfig())

	threshold, source := r.ThresholdForTopic("architecture")
	if threshold != 80 || source != SourceDefault {
		t.Errorf("expected (80, default), got (%d, %s)", threshold, source)
	}

	threshold, source = r.ThresholdForTopic("security")
	if threshold != 95 || source != SourceOverride {
		t.Errorf("expected (95, topic_override), got (%d, %s)", threshold, source)
	}
}

func TestOverrideThresholdEqualToDefaultStillReportsOverride(t *testing.T) {
	cfg := testConfig()
	eighty := 80
	cfg.Overrides["database"] = Override{Agent: "architect", ConfidenceThreshold: &eighty}
	r := NewRouter(cfg)

	threshold, source := r.ThresholdForTopic("database")
	if threshold != 80 || source != SourceOverride {
		t.Errorf("expected (80, topic_override), got (%d, %s)", threshold, source)
	}
}

func TestKnownTopicsSortedUnion(t *testing.T) {
	r := NewRouter(testConfig())

	want := []string{"architecture", "authentication", "database", "legal", "requirements", "security", "ux"}
	if got := r.KnownTopics(); !reflect.DeepEqual(got, want) {
		t.Errorf("KnownTopics = %v, want %v", got, want)
	}
}

func TestModelAndTimeoutFallbacks(t *testing.T) {
	r := NewRouter(testConfig())

	if model := r.ModelForAgent("architect"); model != "opus" {
		t.Errorf("expected opus, got %s", model)
	}
	if model := r.ModelForAgent("nonexistent"); model != "sonnet" {
		t.Errorf("expected default model sonnet, got %s", model)
	}
	if timeout := r.TimeoutForAgent("architect"); timeout != 300 {
		t.Errorf("expected 300, got %d", timeout)
	}
	if timeout := r.TimeoutForAgent("product"); timeout != 120 {
		t.Errorf("expected default timeout 120, got %d", timeout)
	}
}

func TestAgentName(t *testing.T) {
	r := NewRouter(testConfig())

	if name := r.AgentName("architect"); name != "@architect" {
		t.Errorf("expected @architect, got %s", name)
	}
	if name := r.AgentName(HumanAgent); name != HumanAgent {
		t.Errorf("human sentinel should echo its ID, got %s", name)
	}
}
