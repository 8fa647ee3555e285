package routing

// AgentDefinition describes one expert agent and the topics it covers.
type AgentDefinition struct {
	ID             string   `json:"id" yaml:"id" mapstructure:"id"`
	Name           string   `json:"name" yaml:"name" mapstructure:"name"`
	Topics         []string `json:"topics" yaml:"topics" mapstructure:"topics"`
	Model          string   `json:"model" yaml:"model" mapstructure:"model"`
	TimeoutSeconds int      `json:"timeout_seconds" yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// Override pins a topic to a specific agent, optionally tightening the
// confidence threshold. Overrides win over agent topic lists. Model is loaded
// from the config but not consulted: ModelForAgent uses only the agent's
// model or the default.
type Override struct {
	Agent               string `json:"agent" yaml:"agent" mapstructure:"agent"`
	ConfidenceThreshold *int   `json:"confidence_threshold,omitempty" yaml:"confidence_threshold,omitempty" mapstructure:"confidence_threshold"`
	Model               string `json:"model,omitempty" yaml:"model,omitempty" mapstructure:"model"`
}

// Defaults holds the process-wide fallbacks applied when neither an agent
// definition nor an override specifies a value.
type Defaults struct {
	ConfidenceThreshold int    `json:"confidence_threshold" yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	TimeoutSeconds      int    `json:"timeout_seconds" yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	Model               string `json:"model" yaml:"model" mapstructure:"model"`
}

// Config is the full topic-routing policy, loaded once at process start and
// immutable between reloads.
type Config struct {
	Defaults  Defaults                   `json:"defaults" yaml:"defaults" mapstructure:"defaults"`
	Agents    map[string]AgentDefinition `json:"agents" yaml:"agents" mapstructure:"agents"`
	Overrides map[string]Override        `json:"overrides,omitempty" yaml:"overrides,omitempty" mapstructure:"overrides"`
}

// HumanAgent is the sentinel agent ID that short-circuits dispatch and routes
// the question directly to a human reviewer.
const HumanAgent = "human"

// ThresholdSource identifies where a confidence threshold came from.
type ThresholdSource string

const (
	// SourceOverride means the threshold came from a topic override.
	SourceOverride ThresholdSource = "topic_override"
	// SourceDefault means the threshold came from the process defaults.
	SourceDefault ThresholdSource = "default"
)
