package hub

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/farmer1st/farmer-code/internal/agentrunner"
	"github.com/farmer1st/farmer-code/internal/audit"
	"github.com/farmer1st/farmer-code/internal/clockutil"
	"github.com/farmer1st/farmer-code/internal/fault"
	"github.com/farmer1st/farmer-code/internal/routing"
)

// defaultFeatureID partitions exchanges that arrive without a feature.
const defaultFeatureID = "000-default"

// Hub routes expert questions, validates confidence, and tracks escalations.
// It is safe for concurrent use. Each session-store operation runs under the
// store's lock, but whole AskExpert calls are not serialized: concurrent calls
// on the same session may interleave their user and assistant messages.
type Hub struct {
	router      *routing.Router
	runner      agentrunner.Runner
	sessions    *SessionStore
	escalations *EscalationStore
	sink        *audit.Sink
	clock       clockutil.Clock
	logger      *log.Logger
}

// New creates a Hub. sink may be nil to disable auditing (tests only);
// logger may be nil for silence.
func New(router *routing.Router, runner agentrunner.Runner, sink *audit.Sink, clock clockutil.Clock, logger *log.Logger) *Hub {
	return &Hub{
		router:      router,
		runner:      runner,
		sessions:    NewSessionStore(clock),
		escalations: NewEscalationStore(clock),
		sink:        sink,
		clock:       clock,
		logger:      logger,
	}
}

// AskRequest carries one AskExpert call.
type AskRequest struct {
	Topic     string
	Question  string
	Context   string
	FeatureID string
	// SessionID reuses an existing live session when set.
	SessionID string
	// ParentRecordID links this exchange's audit record to an earlier one,
	// used when re-issuing a question after an add_context resolution.
	ParentRecordID string
}

// AskExpert routes a question to the topic's expert agent, gates the answer
// on the topic's confidence threshold, and opens an escalation when the
// answer falls short. The audit record is written before return.
func (h *Hub) AskExpert(ctx context.Context, req AskRequest) (*Response, error) {
	if !h.router.KnownTopic(req.Topic) {
		fe := fault.New(fault.UnknownTopic, "unknown topic %q", req.Topic)
		fe.Topics = h.router.KnownTopics()
		return nil, fe
	}

	featureID := req.FeatureID
	if featureID == "" {
		featureID = defaultFeatureID
	}

	agentID := h.router.ResolveAgent(req.Topic)

	sessionID := req.SessionID
	if sessionID == "" || !h.sessions.Exists(sessionID) {
		sessionID = h.sessions.Create(agentID, featureID).ID
	}

	question := Question{
		ID:        uuid.NewString(),
		Topic:     req.Topic,
		Text:      req.Question,
		Context:   req.Context,
		FeatureID: featureID,
	}

	// The human sentinel short-circuits dispatch entirely.
	if agentID == routing.HumanAgent {
		return h.routeToHuman(question, sessionID)
	}

	start := h.clock.Now()
	answer, err := h.dispatch(ctx, question, agentID, sessionID)
	if err != nil {
		return nil, err
	}
	duration := h.clock.Now().Sub(start)
	answer.DurationSeconds = duration.Seconds()

	if _, err := h.sessions.AddMessage(sessionID, RoleUser, question.Text, messageMeta(map[string]interface{}{
		"topic":   question.Topic,
		"context": question.Context,
	})); err != nil {
		return nil, err
	}
	if _, err := h.sessions.AddMessage(sessionID, RoleAssistant, answer.Text, map[string]interface{}{
		"confidence": answer.Confidence,
		"rationale":  answer.Rationale,
		"model":      answer.ModelUsed,
	}); err != nil {
		return nil, err
	}

	threshold, source := h.router.ThresholdForTopic(question.Topic)

	record := audit.Record{
		ID:         uuid.NewString(),
		Timestamp:  h.clock.Now(),
		FeatureID:  featureID,
		Topic:      question.Topic,
		Question:   question.Text,
		Answer:     answer.Text,
		Confidence: answer.Confidence,
		DurationMS: duration.Milliseconds(),
		SessionID:  sessionID,
		ParentID:   req.ParentRecordID,
		Metadata: map[string]interface{}{
			"answered_by":      answer.AnsweredBy,
			"model":            answer.ModelUsed,
			"threshold_source": string(source),
		},
	}

	if answer.Confidence >= threshold {
		record.Status = audit.StatusResolved
		if err := h.writeAudit(record); err != nil {
			return nil, err
		}
		h.logf("resolved %s question for %s (confidence %d >= %d)",
			question.Topic, featureID, answer.Confidence, threshold)
		return &Response{
			Answer:             answer.Text,
			Rationale:          answer.Rationale,
			Confidence:         answer.Confidence,
			UncertaintyReasons: answer.UncertaintyReasons,
			SessionID:          sessionID,
			Status:             StatusResolved,
			RecordID:           record.ID,
			ThresholdUsed:      threshold,
		}, nil
	}

	// Low confidence: the escalation and its audit record are created
	// together so neither can be observed without the other.
	record.Status = audit.StatusEscalated
	escalation := h.escalations.Create(question, *answer, threshold, sessionID, record.ID)
	record.EscalationID = escalation.ID
	if err := h.writeAudit(record); err != nil {
		return nil, err
	}
	h.logf("escalated %s question for %s (confidence %d < %d, escalation %s)",
		question.Topic, featureID, answer.Confidence, threshold, escalation.ID)

	return &Response{
		Answer:             answer.Text,
		Rationale:          answer.Rationale,
		Confidence:         answer.Confidence,
		UncertaintyReasons: answer.UncertaintyReasons,
		SessionID:          sessionID,
		Status:             StatusPendingHuman,
		EscalationID:       escalation.ID,
		RecordID:           record.ID,
		ThresholdUsed:      threshold,
	}, nil
}

// routeToHuman handles the human sentinel: no agent is invoked; a pending
// escalation and its audit record are created immediately.
func (h *Hub) routeToHuman(question Question, sessionID string) (*Response, error) {
	threshold, _ := h.router.ThresholdForTopic(question.Topic)

	record := audit.Record{
		ID:         uuid.NewString(),
		Timestamp:  h.clock.Now(),
		FeatureID:  question.FeatureID,
		Topic:      question.Topic,
		Question:   question.Text,
		Answer:     "",
		Confidence: 0,
		Status:     audit.StatusEscalated,
		SessionID:  sessionID,
		Metadata:   map[string]interface{}{"routed_to": routing.HumanAgent},
	}

	tentative := Answer{
		QuestionID:         question.ID,
		AnsweredBy:         routing.HumanAgent,
		Rationale:          "Question requires direct human input",
		UncertaintyReasons: []string{"Question routed directly to human"},
	}
	escalation := h.escalations.Create(question, tentative, threshold, sessionID, record.ID)
	record.EscalationID = escalation.ID
	if err := h.writeAudit(record); err != nil {
		return nil, err
	}

	if _, err := h.sessions.AddMessage(sessionID, RoleUser, question.Text, messageMeta(map[string]interface{}{
		"topic":   question.Topic,
		"context": question.Context,
	})); err != nil {
		return nil, err
	}

	h.logf("routed %s question for %s directly to human (escalation %s)",
		question.Topic, question.FeatureID, escalation.ID)

	return &Response{
		Rationale:          tentative.Rationale,
		UncertaintyReasons: tentative.UncertaintyReasons,
		SessionID:          sessionID,
		Status:             StatusPendingHuman,
		EscalationID:       escalation.ID,
		RecordID:           record.ID,
		ThresholdUsed:      threshold,
	}, nil
}

// dispatch invokes the runner for a question and parses the answer.
func (h *Hub) dispatch(ctx context.Context, question Question, agentID, sessionID string) (*Answer, error) {
	timeout := time.Duration(h.router.TimeoutForAgent(agentID)) * time.Second

	result, err := h.runner.Dispatch(ctx, agentrunner.Request{
		AgentID:      agentID,
		SystemPrompt: h.systemPrompt(agentID),
		UserPrompt:   h.userPrompt(question, sessionID),
		Model:        h.router.ModelForAgent(agentID),
		Timeout:      timeout,
	})
	if err != nil {
		return nil, err
	}

	answer, err := ParseAnswer(result.Output)
	if err != nil {
		return nil, err
	}
	answer.QuestionID = question.ID
	answer.AnsweredBy = agentID
	answer.ModelUsed = h.router.ModelForAgent(agentID)
	return answer, nil
}

// systemPrompt is the standing instruction set for expert agents, including
// the JSON response contract ParseAnswer expects.
func (h *Hub) systemPrompt(agentID string) string {
	return fmt.Sprintf(`You are %s, an expert consultant answering domain questions.
Respond with a single JSON object:
{"answer": "<your answer>", "rationale": "<why, at least 20 characters>", "confidence": <0-100>, "uncertainty_reasons": ["<reason>", ...]}`,
		h.router.AgentName(agentID))
}

// userPrompt folds the session history and question context into the prompt
// so multi-turn sessions carry their conversation forward.
func (h *Hub) userPrompt(question Question, sessionID string) string {
	var b strings.Builder

	if session, err := h.sessions.Get(sessionID); err == nil && len(session.Messages) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, msg := range session.Messages {
			fmt.Fprintf(&b, "[%s] %s\n", msg.Role, msg.Content)
		}
		b.WriteString("\n")
	}

	if question.Context != "" {
		fmt.Fprintf(&b, "Context:\n%s\n\n", question.Context)
	}
	fmt.Fprintf(&b, "Question (%s):\n%s\n", question.Topic, question.Text)
	return b.String()
}

// GetSession returns a session by ID.
func (h *Hub) GetSession(id string) (*Session, error) {
	return h.sessions.Get(id)
}

// CloseSession closes a session; further messages are rejected.
func (h *Hub) CloseSession(id string) error {
	return h.sessions.Close(id)
}

// SessionsByFeature lists sessions for a feature, oldest first.
func (h *Hub) SessionsByFeature(featureID string) []*Session {
	return h.sessions.ByFeature(featureID)
}

// CheckEscalation returns an escalation by ID.
func (h *Hub) CheckEscalation(id string) (*Escalation, error) {
	return h.escalations.Get(id)
}

// ResolveEscalation applies a human action to a pending escalation and
// appends the human's message to the owning session.
func (h *Hub) ResolveEscalation(id string, action HumanAction, responder, payload string) (*Resolution, error) {
	escalation, err := h.escalations.Get(id)
	if err != nil {
		return nil, err
	}

	resolution, err := h.escalations.Resolve(id, action, responder, payload)
	if err != nil {
		return nil, err
	}

	if escalation.SessionID != "" {
		content := ""
		switch action {
		case ActionConfirm:
			content = "Confirmed the tentative answer"
		case ActionCorrect:
			content = "Corrected answer: " + payload
		case ActionAddContext:
			content = "Added context: " + payload
		}
		// Best-effort: a closed session must not block the resolution.
		if _, err := h.sessions.AddMessage(escalation.SessionID, RoleHuman, content, map[string]interface{}{
			"responder":     responder,
			"action":        string(action),
			"escalation_id": id,
		}); err != nil {
			h.logf("could not append human message to session %s: %v", escalation.SessionID, err)
		}
	}

	h.logf("escalation %s resolved with %s by %s", id, action, responder)
	return resolution, nil
}

// AuditTrail returns the audit records for a feature in insertion order.
func (h *Hub) AuditTrail(featureID string) ([]audit.Record, error) {
	if h.sink == nil {
		return nil, nil
	}
	return h.sink.List(featureID)
}

// AuditChain walks a record's parent links and returns the chain from the
// root exchange to the given record.
func (h *Hub) AuditChain(recordID, featureID string) ([]audit.Record, error) {
	if h.sink == nil {
		return nil, nil
	}
	return h.sink.Chain(recordID, featureID)
}

func (h *Hub) writeAudit(record audit.Record) error {
	if h.sink == nil {
		return nil
	}
	if err := h.sink.Write(record); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	return nil
}

// messageMeta drops empty values so message metadata stays compact.
func messageMeta(meta map[string]interface{}) map[string]interface{} {
	for key, value := range meta {
		if s, ok := value.(string); ok && s == "" {
			delete(meta, key)
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func (h *Hub) logf(format string, args ...interface{}) {
	if h.logger != nil {
		h.logger.Printf(format, args...)
	}
}
