package hub

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/farmer1st/farmer-code/internal/clockutil"
	"github.com/farmer1st/farmer-code/internal/fault"
)

// additionalContextHeader delimits human-supplied context appended to a
// question on an add_context resolution. The wording is part of the agent
// prompt contract.
const additionalContextHeader = "Additional context from human:"

// EscalationStore tracks pending and resolved escalations in memory.
type EscalationStore struct {
	mu          sync.Mutex
	escalations map[string]*Escalation
	clock       clockutil.Clock
}

// NewEscalationStore creates an empty escalation store.
func NewEscalationStore(clock clockutil.Clock) *EscalationStore {
	return &EscalationStore{
		escalations: make(map[string]*Escalation),
		clock:       clock,
	}
}

// Create opens a pending escalation for a low-confidence exchange.
func (s *EscalationStore) Create(question Question, tentative Answer, threshold int, sessionID, recordID string) *Escalation {
	s.mu.Lock()
	defer s.mu.Unlock()

	escalation := &Escalation{
		ID:              uuid.NewString(),
		Question:        question,
		TentativeAnswer: tentative,
		ThresholdUsed:   threshold,
		Status:          EscalationPending,
		CreatedAt:       s.clock.Now(),
		SessionID:       sessionID,
		RecordID:        recordID,
	}
	s.escalations[escalation.ID] = escalation
	return copyEscalation(escalation)
}

// Get returns an escalation by ID.
func (s *EscalationStore) Get(id string) (*Escalation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	escalation, ok := s.escalations[id]
	if !ok {
		return nil, fault.New(fault.EscalationNotFound, "escalation %s not found", id)
	}
	return copyEscalation(escalation), nil
}

// Resolve applies a human action to a pending escalation. Once resolved, an
// escalation rejects further responses.
func (s *EscalationStore) Resolve(id string, action HumanAction, responder, payload string) (*Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	escalation, ok := s.escalations[id]
	if !ok {
		return nil, fault.New(fault.EscalationNotFound, "escalation %s not found", id)
	}
	if escalation.Status == EscalationResolved {
		return nil, fault.New(fault.EscalationAlreadyResolved, "escalation %s is already resolved", id)
	}

	var resolution *Resolution
	switch action {
	case ActionConfirm:
		final := escalation.TentativeAnswer
		resolution = &Resolution{
			EscalationResolved: true,
			ActionTaken:        ActionConfirm,
			FinalAnswer:        &final,
		}
	case ActionCorrect:
		text := payload
		if text == "" {
			text = escalation.TentativeAnswer.Text
		}
		final := Answer{
			QuestionID: escalation.Question.ID,
			AnsweredBy: atPrefixed(responder),
			Text:       text,
			Rationale: "Human-corrected answer replacing original from " +
				escalation.TentativeAnswer.AnsweredBy + ". Human review required due to low confidence.",
			Confidence: 100,
			ModelUsed:  "human",
		}
		resolution = &Resolution{
			EscalationResolved: true,
			ActionTaken:        ActionCorrect,
			FinalAnswer:        &final,
		}
	case ActionAddContext:
		context := escalation.Question.Context
		if context != "" {
			context = context + "\n\n" + additionalContextHeader + "\n" + payload
		} else {
			context = additionalContextHeader + "\n" + payload
		}
		updated := escalation.Question
		updated.ID = uuid.NewString()
		updated.Context = context
		resolution = &Resolution{
			EscalationResolved: true,
			ActionTaken:        ActionAddContext,
			NeedsReroute:       true,
			UpdatedQuestion:    &updated,
			ParentRecordID:     escalation.RecordID,
		}
	default:
		return nil, fmt.Errorf("unknown human action %q", action)
	}

	escalation.Status = EscalationResolved
	escalation.Responder = responder
	escalation.HumanAction = action
	escalation.HumanPayload = payload
	return resolution, nil
}

// atPrefixed ensures a responder handle carries exactly one leading @.
func atPrefixed(responder string) string {
	if responder == "" {
		return responder
	}
	return "@" + strings.TrimPrefix(responder, "@")
}

func copyEscalation(e *Escalation) *Escalation {
	copied := *e
	return &copied
}
