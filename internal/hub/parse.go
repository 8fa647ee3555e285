package hub

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/farmer1st/farmer-code/internal/fault"
)

// minRationaleLength discourages empty justifications: agents must explain
// their answers in at least this many characters.
const minRationaleLength = 20

// rawAnswer is the JSON shape agents are instructed to emit.
type rawAnswer struct {
	Answer             string   `json:"answer"`
	Rationale          string   `json:"rationale"`
	Confidence         *float64 `json:"confidence"`
	UncertaintyReasons []string `json:"uncertainty_reasons"`
}

// fencedBlockPattern matches a fenced code block, optionally tagged json.
var fencedBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ParseAnswer extracts a structured answer from free-form agent output.
// Accepted forms, in order: the whole output as a bare JSON object, a JSON
// object inside a fenced code block, and the first balanced {...} span.
func ParseAnswer(output string) (*Answer, error) {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return nil, fault.New(fault.AgentResponseInvalid, "agent returned empty output")
	}

	candidates := []string{trimmed}
	if match := fencedBlockPattern.FindStringSubmatch(trimmed); match != nil {
		candidates = append(candidates, match[1])
	}
	if span := firstObjectSpan(trimmed); span != "" {
		candidates = append(candidates, span)
	}

	var raw *rawAnswer
	for _, candidate := range candidates {
		var attempt rawAnswer
		if err := json.Unmarshal([]byte(candidate), &attempt); err == nil && attempt.Answer != "" {
			raw = &attempt
			break
		}
	}
	if raw == nil {
		return nil, fault.New(fault.AgentResponseInvalid,
			"no parsable answer object in agent output (%d bytes)", len(output))
	}

	if len(strings.TrimSpace(raw.Rationale)) < minRationaleLength {
		return nil, fault.New(fault.AgentResponseInvalid,
			"rationale must be at least %d characters", minRationaleLength)
	}

	confidence := 0
	if raw.Confidence != nil {
		confidence = clampConfidence(int(*raw.Confidence))
	}

	return &Answer{
		Text:               raw.Answer,
		Rationale:          raw.Rationale,
		Confidence:         confidence,
		UncertaintyReasons: raw.UncertaintyReasons,
	}, nil
}

// firstObjectSpan returns the first balanced {...} span in s, respecting
// strings and escapes, or "" when none closes.
func firstObjectSpan(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '{':
			depth++
		case !inString && c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// clampConfidence forces confidence into [0,100].
func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
