package phase

import (
	"context"
	"fmt"

	"github.com/farmer1st/farmer-code/internal/board"
	"github.com/farmer1st/farmer-code/internal/workflow"
)

// setupSteps is the phase-1 composition for setup-then-agent workflows:
// ticket, branch, worktree, artifact tree.
func (e *Executor) setupSteps() []step {
	return []step{
		e.issueStep(),
		{name: StepBranch, run: e.runBranch},
		{name: StepWorktree, run: e.runWorktree},
		{name: StepPlans, run: e.runPlans},
	}
}

// issueStep opens the feature's ticket and records its number.
func (e *Executor) issueStep() step {
	return step{name: StepIssue, run: e.runIssue}
}

func (e *Executor) runIssue(ctx context.Context, w *workflow.Workflow) error {
	// Re-running after a crash between side effect and record would open a
	// duplicate ticket; the recorded number guards the common resume path.
	if w.IssueNumber != 0 {
		return nil
	}

	title := fmt.Sprintf("[%s] %s", w.Type, w.FeatureDescription)
	body := fmt.Sprintf("Feature: `%s`\n\n%s\n\nWorkflow: `%s`", w.FeatureID, w.FeatureDescription, w.ID)
	issue, err := e.board.CreateIssue(ctx, title, body, []string{board.StatusLabel(string(w.Status))})
	if err != nil {
		return err
	}

	_, err = e.engine.Update(w.ID, func(w *workflow.Workflow) error {
		w.IssueNumber = issue.Number
		return nil
	})
	if err != nil {
		return err
	}
	w.IssueNumber = issue.Number
	e.logf("workflow %s: opened issue #%d", w.ID, issue.Number)
	return nil
}

func (e *Executor) runBranch(ctx context.Context, w *workflow.Workflow) error {
	if err := e.workspace.CreateBranch(ctx, w.FeatureID); err != nil {
		return err
	}
	_, err := e.engine.Update(w.ID, func(w *workflow.Workflow) error {
		w.BranchName = w.FeatureID
		return nil
	})
	if err != nil {
		return err
	}
	w.BranchName = w.FeatureID
	return nil
}

func (e *Executor) runWorktree(ctx context.Context, w *workflow.Workflow) error {
	worktree, err := e.workspace.CreateWorktree(ctx, w.FeatureID)
	if err != nil {
		return err
	}
	_, err = e.engine.Update(w.ID, func(w *workflow.Workflow) error {
		w.WorktreePath = worktree.Path
		return nil
	})
	if err != nil {
		return err
	}
	w.WorktreePath = worktree.Path
	return nil
}

func (e *Executor) runPlans(ctx context.Context, w *workflow.Workflow) error {
	if _, err := e.workspace.InitArtifactTree(ctx, w.WorktreePath, w.FeatureID); err != nil {
		return err
	}
	return nil
}
