// Package fault defines the typed error taxonomy shared by the orchestrator,
// the agent hub, and the external adapters. Every user-visible failure carries
// a machine-readable Kind and a human-legible message; causes are wrapped and
// remain reachable through errors.Is / errors.As.
package fault

import (
	"errors"
	"fmt"
)

// Kind discriminates error categories. The set is closed: adapters map their
// failures onto one of these kinds or wrap them under an existing kind.
type Kind string

const (
	// WorkflowNotFound is returned when a workflow ID resolves to nothing.
	WorkflowNotFound Kind = "WORKFLOW_NOT_FOUND"
	// InvalidStateTransition is returned for a trigger the transition table
	// does not permit from the workflow's current status.
	InvalidStateTransition Kind = "INVALID_STATE_TRANSITION"
	// InvalidWorkflowType is returned for an unrecognized workflow type.
	InvalidWorkflowType Kind = "INVALID_WORKFLOW_TYPE"
	// UnknownTopic is returned when a question names a topic no agent covers.
	UnknownTopic Kind = "UNKNOWN_TOPIC"
	// SessionNotFound is returned for an unknown session ID.
	SessionNotFound Kind = "SESSION_NOT_FOUND"
	// SessionClosed is returned when appending to a closed session.
	SessionClosed Kind = "SESSION_CLOSED"
	// EscalationNotFound is returned for an unknown escalation ID.
	EscalationNotFound Kind = "ESCALATION_NOT_FOUND"
	// EscalationAlreadyResolved is returned when responding to a resolved escalation.
	EscalationAlreadyResolved Kind = "ESCALATION_ALREADY_RESOLVED"
	// AgentUnavailable covers dispatch transport failures.
	AgentUnavailable Kind = "AGENT_UNAVAILABLE"
	// AgentTimeout is returned when a runner exceeds its deadline.
	AgentTimeout Kind = "AGENT_TIMEOUT"
	// AgentResponseInvalid is returned when an agent's output cannot be parsed.
	AgentResponseInvalid Kind = "AGENT_RESPONSE_INVALID"
	// PollTimeout is returned when a signal poll elapses without detection.
	PollTimeout Kind = "POLL_TIMEOUT"
	// RateLimitExceeded carries the board's wait hint for backoff.
	RateLimitExceeded Kind = "RATE_LIMIT_EXCEEDED"
	// PersistenceCorrupted is fatal for the affected workflow.
	PersistenceCorrupted Kind = "PERSISTENCE_CORRUPTED"
)

// Error is the concrete error type for all taxonomy failures.
type Error struct {
	Kind    Kind
	Message string
	// WaitSeconds is the backoff hint for RateLimitExceeded, zero otherwise.
	WaitSeconds int
	// Topics lists the recognized topics for UnknownTopic, nil otherwise.
	Topics []string
	cause  error
}

// New creates an Error with the given kind and formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error with the given kind wrapping a cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches two Errors by Kind, so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// IsKind reports whether err is (or wraps) a fault of the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	return fe.Kind == kind
}

// KindOf returns the kind of err, or the empty string for foreign errors.
func KindOf(err error) Kind {
	var fe *Error
	if !errors.As(err, &fe) {
		return ""
	}
	return fe.Kind
}
