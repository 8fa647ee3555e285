// Package audit provides the append-only Q&A audit log. Records are written
// as JSONL, one file per feature, synchronously at the end of each exchange
// so query APIs observe every write.
package audit

import (
	"regexp"
	"time"
)

// Status marks how an exchange ended.
type Status string

const (
	// StatusResolved means the answer met its confidence threshold.
	StatusResolved Status = "resolved"
	// StatusEscalated means the exchange was handed to a human reviewer.
	StatusEscalated Status = "escalated"
)

// Record is one audited Q&A exchange. Field names and formats are part of the
// on-disk contract consumed by downstream analysis tooling.
type Record struct {
	ID           string                 `json:"id"`
	Timestamp    time.Time              `json:"timestamp"`
	FeatureID    string                 `json:"feature_id"`
	Topic        string                 `json:"topic"`
	Question     string                 `json:"question"`
	Answer       string                 `json:"answer"`
	Confidence   int                    `json:"confidence"`
	Status       Status                 `json:"status"`
	DurationMS   int64                  `json:"duration_ms"`
	SessionID    string                 `json:"session_id,omitempty"`
	EscalationID string                 `json:"escalation_id,omitempty"`
	ParentID     string                 `json:"parent_id,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// featureIDPattern is the partition key format: zero-padded three-digit
// counter plus a lowercase hyphenated slug.
var featureIDPattern = regexp.MustCompile(`^\d{3}-[a-z0-9-]+$`)

// ValidFeatureID reports whether id is a legal audit partition key.
func ValidFeatureID(id string) bool {
	return featureIDPattern.MatchString(id)
}
