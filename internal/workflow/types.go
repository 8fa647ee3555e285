// Package workflow owns the durable workflow state machine: statuses,
// triggers, the transition table, persistence, and the engine that advances
// workflows through their phases.
package workflow

import (
	"fmt"
	"time"
)

// Status is the authoritative workflow state.
type Status string

const (
	// StatusPending exists only between creation and the automatic start.
	StatusPending Status = "pending"
	// StatusInProgress means a phase is executing or awaiting rework.
	StatusInProgress Status = "in_progress"
	// StatusWaitingApproval means a phase finished and a human gate is open.
	StatusWaitingApproval Status = "waiting_approval"
	// StatusCompleted is terminal.
	StatusCompleted Status = "completed"
	// StatusFailed is terminal.
	StatusFailed Status = "failed"
)

// Type selects the phase plan for a workflow.
type Type string

const (
	// TypeSpecify produces a feature specification (two phases).
	TypeSpecify Type = "specify"
	// TypePlan produces an implementation plan (two phases).
	TypePlan Type = "plan"
	// TypeTasks produces a task breakdown (one phase).
	TypeTasks Type = "tasks"
	// TypeImplement executes the implementation (one phase).
	TypeImplement Type = "implement"
)

// ValidType reports whether t is a recognized workflow type.
func ValidType(t Type) bool {
	switch t {
	case TypeSpecify, TypePlan, TypeTasks, TypeImplement:
		return true
	}
	return false
}

// PhaseCount returns how many phases a workflow type runs. The last
// human_approved in the final phase completes the workflow.
func PhaseCount(t Type) int {
	switch t {
	case TypeSpecify, TypePlan:
		return 2
	default:
		return 1
	}
}

// Trigger names an event that can advance a workflow.
type Trigger string

const (
	// TriggerStart moves a fresh workflow into its first phase.
	TriggerStart Trigger = "start"
	// TriggerAgentComplete closes a phase and opens the approval gate.
	TriggerAgentComplete Trigger = "agent_complete"
	// TriggerHumanApproved passes the gate: next phase or completion.
	TriggerHumanApproved Trigger = "human_approved"
	// TriggerHumanRejected re-enters the current phase for rework.
	TriggerHumanRejected Trigger = "human_rejected"
	// TriggerError fails the workflow.
	TriggerError Trigger = "error"
)

// transitions is the permitted (status, trigger) → targets table. The
// human_approved targets are disambiguated by the phase count at runtime.
var transitions = map[Status]map[Trigger][]Status{
	StatusPending: {
		TriggerStart: {StatusInProgress},
	},
	StatusInProgress: {
		TriggerAgentComplete: {StatusWaitingApproval},
		TriggerError:         {StatusFailed},
	},
	StatusWaitingApproval: {
		TriggerHumanApproved: {StatusInProgress, StatusCompleted},
		TriggerHumanRejected: {StatusInProgress},
		TriggerError:         {StatusFailed},
	},
	// Terminal states permit nothing.
	StatusCompleted: {},
	StatusFailed:    {},
}

// allowedTransition reports whether from may move to target via trigger.
func allowedTransition(from Status, trigger Trigger, target Status) bool {
	for _, allowed := range transitions[from][trigger] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Workflow is one feature's run through the multi-phase pipeline.
type Workflow struct {
	ID                 string                 `json:"id"`
	Type               Type                   `json:"workflow_type"`
	FeatureID          string                 `json:"feature_id"`
	FeatureDescription string                 `json:"feature_description"`
	Context            map[string]interface{} `json:"context,omitempty"`

	Status       Status `json:"status"`
	CurrentPhase string `json:"current_phase"`
	// StepsCompleted is the ordered set of finished step names within the
	// current phase; resumed phases skip these.
	StepsCompleted []string `json:"phase_steps_completed"`
	// Flags records fine-grained suspension points inside a step (e.g.
	// agent completion seen but approval still pending).
	Flags map[string]bool `json:"phase_flags,omitempty"`

	// Artifacts recorded by phase steps.
	IssueNumber  int    `json:"issue_number,omitempty"`
	BranchName   string `json:"branch_name,omitempty"`
	WorktreePath string `json:"worktree_path,omitempty"`

	Result map[string]interface{} `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	History []History `json:"history"`
}

// History is one immutable transition record.
type History struct {
	ID         string                 `json:"id"`
	WorkflowID string                 `json:"workflow_id"`
	FromStatus Status                 `json:"from_status"`
	ToStatus   Status                 `json:"to_status"`
	Trigger    Trigger                `json:"trigger"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// StepDone reports whether a step already completed in the current phase.
func (w *Workflow) StepDone(step string) bool {
	for _, s := range w.StepsCompleted {
		if s == step {
			return true
		}
	}
	return false
}

// PhaseNumber parses "phase_N" into N; unknown formats count as phase 1.
func PhaseNumber(phase string) int {
	var n int
	if _, err := fmt.Sscanf(phase, "phase_%d", &n); err != nil || n < 1 {
		return 1
	}
	return n
}

// PhaseName renders phase N as "phase_N".
func PhaseName(n int) string {
	return fmt.Sprintf("phase_%d", n)
}
