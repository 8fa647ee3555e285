// Package phase executes the ordered step lists that make up workflow
// phases, under direction of the workflow engine. Steps are idempotent and
// individually persisted, so a restarted process resumes a phase from its
// first incomplete step.
package phase

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/farmer1st/farmer-code/internal/agentrunner"
	"github.com/farmer1st/farmer-code/internal/board"
	"github.com/farmer1st/farmer-code/internal/poller"
	"github.com/farmer1st/farmer-code/internal/workflow"
	"github.com/farmer1st/farmer-code/internal/workspace"
)

// Step names. All but StepAwaitApproval are persisted in
// phase_steps_completed; the approval wait is tracked by the waiting_approval
// status and FlagApprovalSeen instead.
const (
	StepIssue         = "issue"
	StepBranch        = "branch"
	StepWorktree      = "worktree"
	StepPlans         = "plans"
	StepDispatch      = "dispatch"
	StepAwaitAgent    = "await_agent"
	StepAwaitApproval = "await_approval"
)

// Fine-grained suspension flags recorded alongside the step ledger.
const (
	FlagAgentCompleteSeen = "agent_complete_seen"
	FlagApprovalSeen      = "approval_seen"
)

// Config bounds the executor's polling.
type Config struct {
	PollTimeout  time.Duration
	PollInterval time.Duration
}

// Executor runs phases. All state changes flow through the workflow engine,
// which stays the sole writer of workflow state.
type Executor struct {
	engine    *workflow.Engine
	board     board.IssueBoard
	workspace workspace.Manager
	runner    agentrunner.Runner
	poller    *poller.Poller
	config    Config
	logger    *log.Logger
}

// New creates an executor. logger may be nil for silence.
func New(engine *workflow.Engine, b board.IssueBoard, ws workspace.Manager, runner agentrunner.Runner, p *poller.Poller, config Config, logger *log.Logger) *Executor {
	if config.PollTimeout <= 0 {
		config.PollTimeout = time.Hour
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 30 * time.Second
	}
	return &Executor{
		engine:    engine,
		board:     b,
		workspace: ws,
		runner:    runner,
		poller:    p,
		config:    config,
		logger:    logger,
	}
}

// step is one idempotent unit of phase work.
type step struct {
	name string
	run  func(ctx context.Context, w *workflow.Workflow) error
}

// workSteps returns the work portion of the current phase for a workflow.
// Setup-then-agent types run setup in phase 1 and the agent in phase 2;
// single-phase types run ticket setup plus the agent in their only phase.
func (e *Executor) workSteps(w *workflow.Workflow) []step {
	phaseNum := workflow.PhaseNumber(w.CurrentPhase)

	switch w.Type {
	case workflow.TypeSpecify, workflow.TypePlan:
		if phaseNum == 1 {
			return e.setupSteps()
		}
		return e.agentSteps()
	default:
		// tasks / implement: one phase that needs a ticket for its signals.
		return append([]step{e.issueStep()}, e.agentSteps()...)
	}
}

// RunPhase executes the current phase of a workflow to its approval gate and
// through it. Completed steps are skipped; the first failing step persists
// its error and leaves the workflow in_progress for a later retry.
func (e *Executor) RunPhase(ctx context.Context, workflowID string) (*workflow.Workflow, error) {
	w, err := e.engine.Get(workflowID)
	if err != nil {
		return nil, err
	}

	if w.Status == workflow.StatusInProgress {
		for _, s := range e.workSteps(w) {
			if w.StepDone(s.name) {
				e.logf("workflow %s: skipping completed step %s", w.ID, s.name)
				continue
			}
			e.logf("workflow %s: running step %s", w.ID, s.name)
			if err := s.run(ctx, w); err != nil {
				if _, recErr := e.engine.RecordStepFailure(w.ID, s.name, err); recErr != nil {
					return nil, recErr
				}
				return nil, fmt.Errorf("step %s failed: %w", s.name, err)
			}
			if w, err = e.engine.RecordStepCompletion(w.ID, s.name); err != nil {
				return nil, err
			}
		}

		// Phase work done: open the approval gate.
		w, err = e.engine.Advance(w.ID, workflow.TriggerAgentComplete, nil)
		if err != nil {
			return nil, err
		}
	}

	if w.Status == workflow.StatusWaitingApproval {
		return e.awaitApproval(ctx, w)
	}
	return w, nil
}

// awaitApproval blocks on the HUMAN_APPROVAL signal and passes the gate.
func (e *Executor) awaitApproval(ctx context.Context, w *workflow.Workflow) (*workflow.Workflow, error) {
	result, err := e.poller.Poll(ctx, poller.Request{
		IssueNumber:    w.IssueNumber,
		Signal:         poller.HumanApproval,
		Timeout:        e.config.PollTimeout,
		Interval:       e.config.PollInterval,
		RaiseOnTimeout: true,
	})
	if err != nil {
		return nil, err
	}
	if result.Cancelled {
		return w, nil
	}

	if _, err := e.engine.Update(w.ID, func(w *workflow.Workflow) error {
		if w.Flags == nil {
			w.Flags = make(map[string]bool)
		}
		w.Flags[FlagApprovalSeen] = true
		return nil
	}); err != nil {
		return nil, err
	}

	approved, err := e.engine.Advance(w.ID, workflow.TriggerHumanApproved, map[string]interface{}{
		"approved_by": result.Author,
		"comment_id":  result.CommentID,
		"phase":       w.CurrentPhase,
	})
	if err != nil {
		return nil, err
	}

	// A completed workflow pushes its artifact tree. Best-effort: the
	// workflow is already terminal, so a push failure only logs.
	if approved.Status == workflow.StatusCompleted && approved.WorktreePath != "" {
		message := fmt.Sprintf("Add %s artifacts for %s", approved.Type, approved.FeatureID)
		if err := e.workspace.CommitAndPush(ctx, approved.WorktreePath, message); err != nil {
			e.logf("workflow %s: failed to push artifacts: %v", approved.ID, err)
		}
	}
	return approved, nil
}

func (e *Executor) logf(format string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}
