package routing

import "sort"

// Router resolves topics to expert agents and thresholds.
type Router struct {
	config *Config
}

// NewRouter creates a router. Nil-safe: a nil config resolves every topic to
// the human sentinel with default thresholds of zero value.
func NewRouter(config *Config) *Router {
	return &Router{config: config}
}

// ResolveAgent returns the agent ID for a topic.
// Resolution order: topic override, then the first agent (in sorted ID order,
// for determinism) whose topic list contains it, then the human sentinel.
func (r *Router) ResolveAgent(topic string) string {
	if r.config == nil {
		return HumanAgent
	}
	if ov, ok := r.config.Overrides[topic]; ok && ov.Agent != "" {
		return ov.Agent
	}
	for _, agentID := range r.agentIDs() {
		for _, t := range r.config.Agents[agentID].Topics {
			if t == topic {
				return agentID
			}
		}
	}
	return HumanAgent
}

// KnownTopic reports whether any agent or override covers the topic.
func (r *Router) KnownTopic(topic string) bool {
	if r.config == nil {
		return false
	}
	if _, ok := r.config.Overrides[topic]; ok {
		return true
	}
	for _, agent := range r.config.Agents {
		for _, t := range agent.Topics {
			if t == topic {
				return true
			}
		}
	}
	return false
}

// KnownTopics returns the sorted union of agent topics and override topics.
func (r *Router) KnownTopics() []string {
	if r.config == nil {
		return nil
	}
	seen := make(map[string]bool)
	for _, agent := range r.config.Agents {
		for _, t := range agent.Topics {
			seen[t] = true
		}
	}
	for topic := range r.config.Overrides {
		seen[topic] = true
	}
	topics := make([]string, 0, len(seen))
	for t := range seen {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// ThresholdForTopic returns the confidence threshold for a topic and which
// layer it came from. Override thresholds win even when equal to the default.
func (r *Router) ThresholdForTopic(topic string) (int, ThresholdSource) {
	if r.config == nil {
		return 0, SourceDefault
	}
	if ov, ok := r.config.Overrides[topic]; ok && ov.ConfidenceThreshold != nil {
		return *ov.ConfidenceThreshold, SourceOverride
	}
	return r.config.Defaults.ConfidenceThreshold, SourceDefault
}

// ModelForAgent returns the model for an agent, falling back to defaults.
func (r *Router) ModelForAgent(agentID string) string {
	if r.config == nil {
		return ""
	}
	if agent, ok := r.config.Agents[agentID]; ok && agent.Model != "" {
		return agent.Model
	}
	return r.config.Defaults.Model
}

// TimeoutForAgent returns the dispatch timeout in seconds for an agent,
// falling back to defaults.
func (r *Router) TimeoutForAgent(agentID string) int {
	if r.config == nil {
		return 0
	}
	if agent, ok := r.config.Agents[agentID]; ok && agent.TimeoutSeconds > 0 {
		return agent.TimeoutSeconds
	}
	return r.config.Defaults.TimeoutSeconds
}

// AgentName returns the display name for an agent, or the ID itself when the
// agent is not configured (covers the human sentinel).
func (r *Router) AgentName(agentID string) string {
	if r.config != nil {
		if agent, ok := r.config.Agents[agentID]; ok && agent.Name != "" {
			return agent.Name
		}
	}
	return agentID
}

// agentIDs returns configured agent IDs in sorted order.
func (r *Router) agentIDs() []string {
	ids := make([]string, 0, len(r.config.Agents))
	for id := range r.config.Agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
