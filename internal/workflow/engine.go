package workflow

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/farmer1st/farmer-code/internal/clockutil"
	"github.com/farmer1st/farmer-code/internal/fault"
)

// Engine is the sole writer of workflows and their history. Advance calls
// are serialized per workflow; different workflows advance in parallel.
type Engine struct {
	store  *Store
	clock  clockutil.Clock
	logger *log.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewEngine creates an engine over a store. logger may be nil for silence.
func NewEngine(store *Store, clock clockutil.Clock, logger *log.Logger) *Engine {
	return &Engine{
		store:  store,
		clock:  clock,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Create validates the type, derives the feature ID, persists the workflow
// in pending, and immediately applies the start trigger so the returned
// workflow is in_progress on phase_1.
func (e *Engine) Create(workflowType Type, description string, context map[string]interface{}) (*Workflow, error) {
	if !ValidType(workflowType) {
		return nil, fault.New(fault.InvalidWorkflowType, "invalid workflow type %q", workflowType)
	}

	existing, err := e.store.List()
	if err != nil {
		return nil, err
	}
	featureIDs := make([]string, 0, len(existing))
	for _, w := range existing {
		featureIDs = append(featureIDs, w.FeatureID)
	}

	now := e.clock.Now()
	w := &Workflow{
		ID:                 uuid.NewString(),
		Type:               workflowType,
		FeatureID:          GenerateFeatureID(description, featureIDs),
		FeatureDescription: description,
		Context:            context,
		Status:             StatusPending,
		CurrentPhase:       PhaseName(1),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := e.store.Save(w); err != nil {
		return nil, err
	}

	if err := e.transition(w, TriggerStart, nil); err != nil {
		return nil, err
	}
	if err := e.store.Save(w); err != nil {
		return nil, err
	}

	e.logf("created workflow %s (%s) for feature %s", w.ID, w.Type, w.FeatureID)
	return copyWorkflow(w), nil
}

// Get returns a workflow by ID.
func (e *Engine) Get(id string) (*Workflow, error) {
	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	w, err := e.store.Load(id)
	if err != nil {
		return nil, err
	}
	return copyWorkflow(w), nil
}

// Advance applies a trigger to a workflow and persists the transition.
// payload lands in the history metadata; on completion it becomes the
// workflow result, on error its "error" value becomes the workflow error.
func (e *Engine) Advance(id string, trigger Trigger, payload map[string]interface{}) (*Workflow, error) {
	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	w, err := e.store.Load(id)
	if err != nil {
		return nil, err
	}

	if err := e.transition(w, trigger, payload); err != nil {
		return nil, err
	}
	if err := e.store.Save(w); err != nil {
		return nil, err
	}
	return copyWorkflow(w), nil
}

// Update runs a mutation on a workflow under its lock and persists the
// result. The phase executor records step completions and artifacts through
// this so the engine stays the only writer of workflow state.
func (e *Engine) Update(id string, mutate func(*Workflow) error) (*Workflow, error) {
	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	w, err := e.store.Load(id)
	if err != nil {
		return nil, err
	}
	if err := mutate(w); err != nil {
		return nil, err
	}
	w.UpdatedAt = e.clock.Now()
	if err := e.store.Save(w); err != nil {
		return nil, err
	}
	return copyWorkflow(w), nil
}

// RecordStepCompletion appends a finished step to the current phase and
// persists before the executor starts the next step.
func (e *Engine) RecordStepCompletion(id, step string) (*Workflow, error) {
	return e.Update(id, func(w *Workflow) error {
		if !w.StepDone(step) {
			w.StepsCompleted = append(w.StepsCompleted, step)
		}
		return nil
	})
}

// RecordStepFailure appends an error history entry for a failed step without
// changing the workflow status, preserving partial phase progress.
func (e *Engine) RecordStepFailure(id, step string, stepErr error) (*Workflow, error) {
	return e.Update(id, func(w *Workflow) error {
		w.History = append(w.History, History{
			ID:         uuid.NewString(),
			WorkflowID: w.ID,
			FromStatus: w.Status,
			ToStatus:   w.Status,
			Trigger:    TriggerError,
			Timestamp:  e.clock.Now(),
			Metadata: map[string]interface{}{
				"step":  step,
				"error": stepErr.Error(),
			},
		})
		return nil
	})
}

// transition validates and applies one trigger in place. Callers persist.
func (e *Engine) transition(w *Workflow, trigger Trigger, payload map[string]interface{}) error {
	target, err := e.targetStatus(w, trigger)
	if err != nil {
		return err
	}

	now := e.clock.Now()
	w.History = append(w.History, History{
		ID:         uuid.NewString(),
		WorkflowID: w.ID,
		FromStatus: w.Status,
		ToStatus:   target,
		Trigger:    trigger,
		Timestamp:  now,
		Metadata:   payload,
	})

	from := w.Status
	w.Status = target
	w.UpdatedAt = now

	// Passing the approval gate into the next phase advances the phase and
	// resets the per-phase step ledger; rework re-runs the current phase
	// from a clean ledger.
	if from == StatusWaitingApproval && target == StatusInProgress {
		if trigger == TriggerHumanApproved {
			w.CurrentPhase = PhaseName(PhaseNumber(w.CurrentPhase) + 1)
		}
		w.StepsCompleted = nil
		w.Flags = nil
	}

	if target == StatusCompleted {
		completedAt := now
		w.CompletedAt = &completedAt
		if payload != nil {
			w.Result = payload
		}
	}

	if target == StatusFailed {
		w.Error = "unknown error"
		if payload != nil {
			if msg, ok := payload["error"].(string); ok && msg != "" {
				w.Error = msg
			}
		}
	}

	e.logf("workflow %s: %s -> %s via %s", w.ID, from, target, trigger)
	return nil
}

// targetStatus resolves the trigger to a destination, applying the
// phase-count rule for human_approved.
func (e *Engine) targetStatus(w *Workflow, trigger Trigger) (Status, error) {
	allowed := transitions[w.Status][trigger]
	if len(allowed) == 0 {
		return "", fault.New(fault.InvalidStateTransition,
			"cannot apply trigger %q to workflow %s in status %s", trigger, w.ID, w.Status)
	}

	if trigger == TriggerHumanApproved {
		if PhaseNumber(w.CurrentPhase) >= PhaseCount(w.Type) {
			return StatusCompleted, nil
		}
		return StatusInProgress, nil
	}
	if trigger == TriggerHumanRejected {
		return StatusInProgress, nil
	}
	return allowed[0], nil
}

// lockFor returns the per-workflow mutex, creating it on first use.
func (e *Engine) lockFor(id string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	lock, ok := e.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[id] = lock
	}
	return lock
}

func (e *Engine) logf(format string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}

// copyWorkflow returns a defensive copy so callers see only committed state.
func copyWorkflow(w *Workflow) *Workflow {
	copied := *w
	copied.StepsCompleted = append([]string(nil), w.StepsCompleted...)
	copied.History = append([]History(nil), w.History...)
	if w.Flags != nil {
		copied.Flags = make(map[string]bool, len(w.Flags))
		for k, v := range w.Flags {
			copied.Flags[k] = v
		}
	}
	return &copied
}
