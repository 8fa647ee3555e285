// Package hub is the central coordination layer for expert questions: it
// routes topics to agents, validates answer confidence against per-topic
// thresholds, maintains multi-turn sessions, and tracks human escalations.
package hub

import "time"

// Question is one routed expert question.
type Question struct {
	ID              string `json:"id"`
	Topic           string `json:"topic"`
	Text            string `json:"text"`
	Context         string `json:"context,omitempty"`
	FeatureID       string `json:"feature_id"`
	SuggestedTarget string `json:"suggested_target,omitempty"`
}

// Answer is a parsed agent (or human) response to a question.
type Answer struct {
	QuestionID         string   `json:"question_id"`
	AnsweredBy         string   `json:"answered_by"`
	Text               string   `json:"text"`
	Rationale          string   `json:"rationale"`
	Confidence         int      `json:"confidence"`
	UncertaintyReasons []string `json:"uncertainty_reasons,omitempty"`
	ModelUsed          string   `json:"model_used"`
	DurationSeconds    float64  `json:"duration_seconds"`
}

// ResponseStatus marks how an AskExpert call concluded.
type ResponseStatus string

const (
	// StatusResolved means the answer met its confidence threshold.
	StatusResolved ResponseStatus = "resolved"
	// StatusPendingHuman means a human must resolve the opened escalation.
	StatusPendingHuman ResponseStatus = "pending_human"
)

// Response is the outcome of an AskExpert call.
type Response struct {
	Answer             string
	Rationale          string
	Confidence         int
	UncertaintyReasons []string
	SessionID          string
	Status             ResponseStatus
	// EscalationID is set when Status is StatusPendingHuman.
	EscalationID string
	// RecordID is the audit record written for this exchange.
	RecordID string
	// ThresholdUsed is the confidence gate applied to the answer.
	ThresholdUsed int
}

// MessageRole identifies who produced a session message.
type MessageRole string

const (
	// RoleUser is the asking side of the conversation.
	RoleUser MessageRole = "user"
	// RoleAssistant is the expert agent.
	RoleAssistant MessageRole = "assistant"
	// RoleHuman is a human reviewer resolving an escalation.
	RoleHuman MessageRole = "human"
)

// Message is one entry in a session's conversation.
type Message struct {
	Role      MessageRole            `json:"role"`
	Content   string                 `json:"content"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// SessionStatus marks whether a session accepts messages.
type SessionStatus string

const (
	// SessionActive accepts messages.
	SessionActive SessionStatus = "active"
	// SessionClosed rejects further messages.
	SessionClosed SessionStatus = "closed"
)

// Session is an ordered conversation with one expert agent for one feature.
type Session struct {
	ID        string        `json:"id"`
	AgentID   string        `json:"agent_id"`
	FeatureID string        `json:"feature_id"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Messages  []Message     `json:"messages"`
}

// EscalationStatus marks whether an escalation awaits a human.
type EscalationStatus string

const (
	// EscalationPending awaits a human response.
	EscalationPending EscalationStatus = "pending"
	// EscalationResolved rejects further responses.
	EscalationResolved EscalationStatus = "resolved"
)

// HumanAction is what a reviewer did with an escalation.
type HumanAction string

const (
	// ActionConfirm accepts the tentative answer verbatim.
	ActionConfirm HumanAction = "confirm"
	// ActionCorrect replaces the answer with the human's text.
	ActionCorrect HumanAction = "correct"
	// ActionAddContext adds context and requests a re-route.
	ActionAddContext HumanAction = "add_context"
)

// Escalation is a pending request for human review of a low-confidence answer.
type Escalation struct {
	ID              string           `json:"id"`
	Question        Question         `json:"question"`
	TentativeAnswer Answer           `json:"tentative_answer"`
	ThresholdUsed   int              `json:"threshold_used"`
	Status          EscalationStatus `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	SessionID       string           `json:"session_id,omitempty"`
	// RecordID is the audit record of the escalated exchange; re-routed
	// follow-ups link back to it via parent_id.
	RecordID     string      `json:"record_id,omitempty"`
	Responder    string      `json:"responder,omitempty"`
	HumanAction  HumanAction `json:"human_action,omitempty"`
	HumanPayload string      `json:"human_payload,omitempty"`
}

// Resolution is the outcome of resolving an escalation.
type Resolution struct {
	EscalationResolved bool
	ActionTaken        HumanAction
	FinalAnswer        *Answer
	// NeedsReroute signals the caller to re-issue AskExpert with
	// UpdatedQuestion, passing ParentRecordID to chain the audit records.
	NeedsReroute    bool
	UpdatedQuestion *Question
	ParentRecordID  string
}
