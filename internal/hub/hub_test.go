package hub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/farmer1st/farmer-code/internal/agentrunner"
	"github.com/farmer1st/farmer-code/internal/audit"
	"github.com/farmer1st/farmer-code/internal/clockutil"
	"github.com/farmer1st/farmer-code/internal/fault"
	"github.com/farmer1st/farmer-code/internal/routing"
)

// agentJSON builds a well-formed agent response payload.
func agentJSON(answer string, confidence int) string {
	return fmt.Sprintf(`{"answer": %q, "rationale": "Grounded in the project constraints and prior art.", "confidence": %d}`, answer, confidence)
}

func newTestHub(t *testing.T, runner agentrunner.Runner) *Hub {
	t.Helper()

	threshold95 := 95
	config := &routing.Config{
		Defaults: routing.Defaults{ConfidenceThreshold: 80, TimeoutSeconds: 120, Model: "sonnet"},
		Agents: map[string]routing.AgentDefinition{
			"architect": {
				ID:     "architect",
				Name:   "@architect",
				Topics: []string{"architecture", "authentication", "database"},
				Model:  "opus",
			},
		},
		Overrides: map[string]routing.Override{
			"security": {Agent: "architect", ConfidenceThreshold: &threshold95},
			"legal":    {Agent: routing.HumanAgent},
		},
	}

	sink, err := audit.NewSink(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	clock := clockutil.NewFake(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	return New(routing.NewRouter(config), runner, sink, clock, nil)
}

func TestHighConfidenceRoute(t *testing.T) {
	runner := agentrunner.NewFake(agentrunner.FakeResponse{Output: agentJSON("Use OAuth2 with PKCE", 92)})
	h := newTestHub(t, runner)

	resp, err := h.AskExpert(context.Background(), AskRequest{
		Topic:     "authentication",
		Question:  "Which auth scheme should we use?",
		FeatureID: "001-add-auth",
	})
	if err != nil {
		t.Fatalf("AskExpert failed: %v", err)
	}

	if resp.Status != StatusResolved {
		t.Errorf("expected resolved, got %s", resp.Status)
	}
	if resp.EscalationID != "" {
		t.Errorf("resolved response should carry no escalation, got %s", resp.EscalationID)
	}
	if resp.Confidence != 92 {
		t.Errorf("expected confidence 92, got %d", resp.Confidence)
	}

	records, err := h.AuditTrail("001-add-auth")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(records))
	}
	if records[0].Status != audit.StatusResolved {
		t.Errorf("audit status should be resolved, got %s", records[0].Status)
	}
	if records[0].SessionID == "" {
		t.Error("audit record should reference the session")
	}

	// The dispatched request went to the architect with its model.
	reqs := runner.Requests()
	if len(reqs) != 1 || reqs[0].AgentID != "architect" || reqs[0].Model != "opus" {
		t.Errorf("unexpected dispatch: %+v", reqs)
	}
}

func TestLowConfidenceEscalationWithConfirm(t *testing.T) {
	runner := agentrunner.NewFake(agentrunner.FakeResponse{Output: agentJSON("bcrypt", 65)})
	h := newTestHub(t, runner)

	resp, err := h.AskExpert(context.Background(), AskRequest{
		Topic:     "authentication",
		Question:  "Which password hash?",
		FeatureID: "001-add-auth",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != StatusPendingHuman {
		t.Fatalf("expected pending_human, got %s", resp.Status)
	}
	if resp.EscalationID == "" {
		t.Fatal("escalated response must carry an escalation id")
	}

	resolution, err := h.ResolveEscalation(resp.EscalationID, ActionConfirm, "@x", "")
	if err != nil {
		t.Fatalf("ResolveEscalation failed: %v", err)
	}
	if !resolution.EscalationResolved {
		t.Error("confirm should resolve")
	}
	if resolution.FinalAnswer.Text != "bcrypt" {
		t.Error("final answer should equal tentative")
	}

	escalation, err := h.CheckEscalation(resp.EscalationID)
	if err != nil {
		t.Fatal(err)
	}
	if escalation.Status != EscalationResolved {
		t.Error("escalation should be resolved")
	}
}

func TestLowConfidenceEscalationWithCorrect(t *testing.T) {
	runner := agentrunner.NewFake(agentrunner.FakeResponse{Output: agentJSON("bcrypt", 60)})
	h := newTestHub(t, runner)

	resp, err := h.AskExpert(context.Background(), AskRequest{
		Topic:     "authentication",
		Question:  "Which password hash?",
		FeatureID: "001-add-auth",
	})
	if err != nil {
		t.Fatal(err)
	}

	resolution, err := h.ResolveEscalation(resp.EscalationID, ActionCorrect, "@x", "Use Argon2id")
	if err != nil {
		t.Fatal(err)
	}
	final := resolution.FinalAnswer
	if final.Text != "Use Argon2id" || final.Confidence != 100 || final.ModelUsed != "human" {
		t.Errorf("correct semantics broken: %+v", final)
	}

	session, err := h.GetSession(resp.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	var humanMessages []Message
	for _, msg := range session.Messages {
		if msg.Role == RoleHuman {
			humanMessages = append(humanMessages, msg)
		}
	}
	if len(humanMessages) != 1 {
		t.Fatalf("expected 1 human message, got %d", len(humanMessages))
	}
	if humanMessages[0].Metadata["action"] != "correct" {
		t.Errorf("human message should record the action, got %v", humanMessages[0].Metadata)
	}
}

func TestAddContextReroute(t *testing.T) {
	runner := agentrunner.NewFake(
		agentrunner.FakeResponse{Output: agentJSON("bcrypt", 60)},
		agentrunner.FakeResponse{Output: agentJSON("Argon2id", 90)},
	)
	h := newTestHub(t, runner)

	first, err := h.AskExpert(context.Background(), AskRequest{
		Topic:     "authentication",
		Question:  "Which password hash?",
		Context:   "Greenfield service",
		FeatureID: "001-add-auth",
	})
	if err != nil {
		t.Fatal(err)
	}

	resolution, err := h.ResolveEscalation(first.EscalationID, ActionAddContext, "@x", "FIPS compliance required")
	if err != nil {
		t.Fatal(err)
	}
	if !resolution.NeedsReroute {
		t.Fatal("expected needs_reroute")
	}
	updated := resolution.UpdatedQuestion

	second, err := h.AskExpert(context.Background(), AskRequest{
		Topic:          updated.Topic,
		Question:       updated.Text,
		Context:        updated.Context,
		FeatureID:      updated.FeatureID,
		SessionID:      first.SessionID,
		ParentRecordID: resolution.ParentRecordID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if second.Status != StatusResolved {
		t.Errorf("rerouted answer should resolve, got %s", second.Status)
	}

	records, err := h.AuditTrail("001-add-auth")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 audit records, got %d", len(records))
	}
	if records[1].ParentID != records[0].ID {
		t.Error("rerouted record should link its parent")
	}

	chain, err := h.AuditChain(records[1].ID, "001-add-auth")
	if err != nil {
		t.Fatal(err)
	}
	if len(chain) != 2 || chain[0].ID != records[0].ID {
		t.Error("chain should walk back to the original escalated record")
	}

	// The rerouted dispatch saw the human context block.
	reqs := runner.Requests()
	if len(reqs) != 2 {
		t.Fatalf("expected 2 dispatches, got %d", len(reqs))
	}
	if !contains(reqs[1].UserPrompt, "Additional context from human:") {
		t.Error("rerouted prompt should include the human context")
	}
}

func TestTopicThresholdOverride(t *testing.T) {
	runner := agentrunner.NewFake(agentrunner.FakeResponse{Output: agentJSON("rotate keys quarterly", 90)})
	h := newTestHub(t, runner)

	resp, err := h.AskExpert(context.Background(), AskRequest{
		Topic:     "security",
		Question:  "Key rotation policy?",
		FeatureID: "001-add-auth",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != StatusPendingHuman {
		t.Errorf("90 < override 95 should escalate, got %s", resp.Status)
	}
	escalation, err := h.CheckEscalation(resp.EscalationID)
	if err != nil {
		t.Fatal(err)
	}
	if escalation.ThresholdUsed != 95 {
		t.Errorf("escalation should record the override threshold 95, got %d", escalation.ThresholdUsed)
	}
}

func TestConfidenceExactlyAtThreshold(t *testing.T) {
	runner := agentrunner.NewFake(agentrunner.FakeResponse{Output: agentJSON("yes", 80)})
	h := newTestHub(t, runner)

	resp, err := h.AskExpert(context.Background(), AskRequest{
		Topic:     "architecture",
		Question:  "Monolith first?",
		FeatureID: "002-service-split",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != StatusResolved {
		t.Errorf("confidence == threshold must resolve, got %s", resp.Status)
	}
}

func TestConfidenceOneBelowThreshold(t *testing.T) {
	runner := agentrunner.NewFake(agentrunner.FakeResponse{Output: agentJSON("yes", 79)})
	h := newTestHub(t, runner)

	resp, err := h.AskExpert(context.Background(), AskRequest{
		Topic:     "architecture",
		Question:  "Monolith first?",
		FeatureID: "002-service-split",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != StatusPendingHuman {
		t.Errorf("confidence one below threshold must escalate, got %s", resp.Status)
	}
	if resp.EscalationID == "" {
		t.Error("escalated response must carry an escalation id")
	}
}

func TestUnknownTopicCarriesKnownTopics(t *testing.T) {
	runner := agentrunner.NewFake()
	h := newTestHub(t, runner)

	_, err := h.AskExpert(context.Background(), AskRequest{Topic: "astrology", Question: "?"})
	if !fault.IsKind(err, fault.UnknownTopic) {
		t.Fatalf("expected UNKNOWN_TOPIC, got %v", err)
	}
	var fe *fault.Error
	if !asFault(err, &fe) || len(fe.Topics) == 0 {
		t.Error("UNKNOWN_TOPIC should report the recognized topics")
	}
	if len(runner.Requests()) != 0 {
		t.Error("no dispatch should happen for unknown topics")
	}
}

func TestHumanSentinelShortCircuits(t *testing.T) {
	runner := agentrunner.NewFake()
	h := newTestHub(t, runner)

	resp, err := h.AskExpert(context.Background(), AskRequest{
		Topic:     "legal",
		Question:  "License for the SDK?",
		FeatureID: "003-sdk-release",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != StatusPendingHuman {
		t.Errorf("human-routed topic should be pending_human, got %s", resp.Status)
	}
	if resp.EscalationID == "" {
		t.Error("human routing should open an escalation")
	}
	if len(runner.Requests()) != 0 {
		t.Error("the human sentinel must not invoke the runner")
	}

	// The escalation is live and resolvable like any other.
	if _, err := h.ResolveEscalation(resp.EscalationID, ActionCorrect, "@counsel", "Apache-2.0"); err != nil {
		t.Errorf("human escalation should be resolvable: %v", err)
	}
}

func TestSessionReuseAcrossTurns(t *testing.T) {
	runner := agentrunner.NewFake(
		agentrunner.FakeResponse{Output: agentJSON("first answer", 90)},
		agentrunner.FakeResponse{Output: agentJSON("second answer", 90)},
	)
	h := newTestHub(t, runner)

	first, err := h.AskExpert(context.Background(), AskRequest{
		Topic: "architecture", Question: "First question", FeatureID: "004-x",
	})
	if err != nil {
		t.Fatal(err)
	}

	second, err := h.AskExpert(context.Background(), AskRequest{
		Topic: "architecture", Question: "Second question", FeatureID: "004-x", SessionID: first.SessionID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if second.SessionID != first.SessionID {
		t.Error("live session should be reused")
	}

	session, _ := h.GetSession(first.SessionID)
	if len(session.Messages) != 4 {
		t.Errorf("expected 4 messages after two turns, got %d", len(session.Messages))
	}

	// The second dispatch carried the first turn as conversation history.
	reqs := runner.Requests()
	if !contains(reqs[1].UserPrompt, "First question") {
		t.Error("session history should be folded into the next prompt")
	}
}

func TestDispatchErrorSurfacesWithoutAudit(t *testing.T) {
	runner := agentrunner.NewFake(agentrunner.FakeResponse{
		Err: fault.New(fault.AgentUnavailable, "runner crashed"),
	})
	h := newTestHub(t, runner)

	_, err := h.AskExpert(context.Background(), AskRequest{
		Topic: "architecture", Question: "?", FeatureID: "005-y",
	})
	if !fault.IsKind(err, fault.AgentUnavailable) {
		t.Fatalf("expected AGENT_UNAVAILABLE, got %v", err)
	}

	records, _ := h.AuditTrail("005-y")
	if len(records) != 0 {
		t.Error("failed dispatches must not write audit records")
	}
}

func TestFormatEscalationComment(t *testing.T) {
	runner := agentrunner.NewFake(agentrunner.FakeResponse{Output: agentJSON("bcrypt", 60)})
	h := newTestHub(t, runner)

	resp, err := h.AskExpert(context.Background(), AskRequest{
		Topic: "authentication", Question: "Which hash?", FeatureID: "001-add-auth",
	})
	if err != nil {
		t.Fatal(err)
	}
	escalation, _ := h.CheckEscalation(resp.EscalationID)

	comment := FormatEscalationComment(escalation)
	for _, want := range []string{"Human Review Required", "`authentication`", "60%", "80%", "/confirm", "/correct", "/context"} {
		if !contains(comment, want) {
			t.Errorf("escalation comment missing %q", want)
		}
	}
}

func contains(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}

func asFault(err error, target **fault.Error) bool {
	return errors.As(err, target)
}
