package phase

import (
	"context"
	"fmt"
	"time"

	"github.com/farmer1st/farmer-code/internal/agentrunner"
	"github.com/farmer1st/farmer-code/internal/poller"
	"github.com/farmer1st/farmer-code/internal/workflow"
)

// agentSteps is the agent-phase composition: dispatch the workflow's agent,
// then block on its completion signal. The approval gate follows in the
// executor once agent_complete moves the workflow to waiting_approval.
func (e *Executor) agentSteps() []step {
	return []step{
		{name: StepDispatch, run: e.runDispatch},
		{name: StepAwaitAgent, run: e.runAwaitAgent},
	}
}

func (e *Executor) runDispatch(ctx context.Context, w *workflow.Workflow) error {
	_, err := e.runner.Dispatch(ctx, agentrunner.Request{
		AgentID:      string(w.Type),
		SystemPrompt: e.dispatchSystemPrompt(w),
		UserPrompt:   e.dispatchPrompt(w),
		Timeout:      e.config.PollTimeout,
	})
	if err != nil {
		return err
	}
	e.logf("workflow %s: dispatched %s agent for %s", w.ID, w.Type, w.CurrentPhase)
	return nil
}

// runAwaitAgent blocks on the AGENT_COMPLETE signal and records the
// fine-grained flag so a restart inside phase 2 resumes past the wait.
func (e *Executor) runAwaitAgent(ctx context.Context, w *workflow.Workflow) error {
	if w.Flags[FlagAgentCompleteSeen] {
		return nil
	}

	result, err := e.poller.Poll(ctx, poller.Request{
		IssueNumber:    w.IssueNumber,
		Signal:         poller.AgentComplete,
		Timeout:        e.config.PollTimeout,
		Interval:       e.config.PollInterval,
		RaiseOnTimeout: true,
	})
	if err != nil {
		return err
	}
	if result.Cancelled {
		return ctx.Err()
	}

	_, err = e.engine.Update(w.ID, func(w *workflow.Workflow) error {
		if w.Flags == nil {
			w.Flags = make(map[string]bool)
		}
		w.Flags[FlagAgentCompleteSeen] = true
		return nil
	})
	if err != nil {
		return err
	}
	if w.Flags == nil {
		w.Flags = make(map[string]bool)
	}
	w.Flags[FlagAgentCompleteSeen] = true
	return nil
}

// dispatchSystemPrompt is the standing instruction for workflow agents,
// including the completion-signal contract the poller watches for.
func (e *Executor) dispatchSystemPrompt(w *workflow.Workflow) string {
	return fmt.Sprintf(`You are the %s workflow agent. Work inside the feature worktree.
When your work is complete, post a comment containing ✅ on issue #%d.`,
		w.Type, w.IssueNumber)
}

// dispatchPrompt carries the feature context for the current phase.
func (e *Executor) dispatchPrompt(w *workflow.Workflow) string {
	return fmt.Sprintf(`Execute the %s workflow (%s) for feature %s.

## Feature Description

%s

## Workspace

- Branch: %s
- Worktree: %s
- Issue: #%d
- Started: %s`,
		w.Type, w.CurrentPhase, w.FeatureID,
		w.FeatureDescription,
		w.BranchName, w.WorktreePath, w.IssueNumber,
		w.CreatedAt.Format(time.RFC3339))
}
