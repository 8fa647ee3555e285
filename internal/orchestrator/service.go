// Package orchestrator is the service facade: it wires the workflow engine,
// phase executor, agent hub, signal poller, and issue board together and
// keeps ticket labels in sync with workflow state.
package orchestrator

import (
	"context"
	"log"

	"github.com/farmer1st/farmer-code/internal/board"
	"github.com/farmer1st/farmer-code/internal/cloudlog"
	"github.com/farmer1st/farmer-code/internal/hub"
	"github.com/farmer1st/farmer-code/internal/phase"
	"github.com/farmer1st/farmer-code/internal/poller"
	"github.com/farmer1st/farmer-code/internal/workflow"
)

// Service coordinates workflow orchestration end to end.
type Service struct {
	engine      *workflow.Engine
	executor    *phase.Executor
	hub         *hub.Hub
	poller      *poller.Poller
	board       board.IssueBoard
	logger      *log.Logger
	cloudLogger cloudlog.Writer
}

// New creates a service. hub, logger, and cloudLogger may be nil.
func New(engine *workflow.Engine, executor *phase.Executor, h *hub.Hub, p *poller.Poller, b board.IssueBoard, logger *log.Logger, cloudLogger cloudlog.Writer) *Service {
	return &Service{
		engine:      engine,
		executor:    executor,
		hub:         h,
		poller:      p,
		board:       b,
		logger:      logger,
		cloudLogger: cloudLogger,
	}
}

// Hub exposes the agent hub for expert-question traffic.
func (s *Service) Hub() *hub.Hub {
	return s.hub
}

// CreateWorkflow creates and starts a workflow.
func (s *Service) CreateWorkflow(workflowType workflow.Type, description string, context map[string]interface{}) (*workflow.Workflow, error) {
	w, err := s.engine.Create(workflowType, description, context)
	if err != nil {
		return nil, err
	}
	s.logInfo("workflow %s created for feature %s", w.ID, w.FeatureID)
	return w, nil
}

// GetWorkflow returns a workflow by ID.
func (s *Service) GetWorkflow(id string) (*workflow.Workflow, error) {
	return s.engine.Get(id)
}

// AdvanceWorkflow applies a trigger and re-synchronizes ticket labels.
func (s *Service) AdvanceWorkflow(ctx context.Context, id string, trigger workflow.Trigger, payload map[string]interface{}) (*workflow.Workflow, error) {
	w, err := s.engine.Advance(id, trigger, payload)
	if err != nil {
		return nil, err
	}
	s.syncLabels(ctx, w)
	return w, nil
}

// RunPhase executes the workflow's current phase through its approval gate,
// resuming from persisted progress, and re-synchronizes ticket labels.
func (s *Service) RunPhase(ctx context.Context, id string) (*workflow.Workflow, error) {
	w, err := s.executor.RunPhase(ctx, id)
	if err != nil {
		// The executor persisted partial progress; labels still reflect a
		// live workflow, so only report.
		s.logError("phase execution for workflow %s failed: %v", id, err)
		return nil, err
	}
	s.syncLabels(ctx, w)
	s.logInfo("workflow %s now %s (%s)", w.ID, w.Status, w.CurrentPhase)
	return w, nil
}

// PostEscalationComment renders a pending escalation onto the workflow's
// ticket so reviewers can answer with /confirm, /correct, or /context.
func (s *Service) PostEscalationComment(ctx context.Context, workflowID, escalationID string) error {
	w, err := s.engine.Get(workflowID)
	if err != nil {
		return err
	}
	escalation, err := s.hub.CheckEscalation(escalationID)
	if err != nil {
		return err
	}

	comment := hub.FormatEscalationComment(escalation)
	if _, err := s.board.AddComment(ctx, w.IssueNumber, comment); err != nil {
		return err
	}
	s.logInfo("posted escalation %s on issue #%d", escalationID, w.IssueNumber)
	return nil
}

// Poll watches the workflow's ticket for a signal.
func (s *Service) Poll(ctx context.Context, workflowID string, signal poller.SignalType, req poller.Request) (*poller.Result, error) {
	w, err := s.engine.Get(workflowID)
	if err != nil {
		return nil, err
	}
	req.IssueNumber = w.IssueNumber
	req.Signal = signal
	return s.poller.Poll(ctx, req)
}

// syncLabels replaces the ticket's status:* label with the current one.
// Best-effort: label drift must never fail an orchestration step.
func (s *Service) syncLabels(ctx context.Context, w *workflow.Workflow) {
	if w.IssueNumber == 0 {
		return
	}

	var stale []string
	for _, status := range []workflow.Status{
		workflow.StatusPending,
		workflow.StatusInProgress,
		workflow.StatusWaitingApproval,
		workflow.StatusCompleted,
		workflow.StatusFailed,
	} {
		if status != w.Status {
			stale = append(stale, board.StatusLabel(string(status)))
		}
	}
	if err := s.board.RemoveLabels(ctx, w.IssueNumber, stale); err != nil {
		s.logWarning("failed to remove stale labels on issue #%d: %v", w.IssueNumber, err)
	}
	if err := s.board.AddLabels(ctx, w.IssueNumber, []string{board.StatusLabel(string(w.Status))}); err != nil {
		s.logWarning("failed to apply status label on issue #%d: %v", w.IssueNumber, err)
	}
}
