package tripgraph

import (
	"fmt"
	"sync"
	"time"
)

// SlotStatus represents the possible states of a Slot.
// Transitions are monotonic: PENDING -> DISPATCHED -> {FILLED, FAILED},
// with the shortcut PENDING -> FILLED used by fact-store resync and
// PENDING -> FAILED used by the pre-dispatch sanity guard.
type SlotStatus string

const (
	// SlotPending indicates the Slot is waiting to be dispatched.
	SlotPending SlotStatus = "PENDING"
	// SlotDispatched indicates the Slot has been handed to its worker.
	SlotDispatched SlotStatus = "DISPATCHED"
	// SlotFilled indicates the Slot's target fact has been produced.
	SlotFilled SlotStatus = "FILLED"
	// SlotFailed indicates the Slot's worker could not produce the fact.
	SlotFailed SlotStatus = "FAILED"
)

// terminalStatus reports whether a status ends a Slot's lifecycle.
func terminalStatus(s SlotStatus) bool {
	return s == SlotFilled || s == SlotFailed
}

// Slot is one unit of required fact-fetching work in a FetchPlan.
type Slot struct {
	ID           string   `json:"id"`
	TargetField  string   `json:"target_field"`
	Description  string   `json:"description"`
	Owner        string   `json:"owner"` // worker identifier responsible for TargetField
	Dependencies []string `json:"dependencies"`

	// Internal state, mutated only by the scheduler.
	status SlotStatus
	value  Value
	// unusable marks a FILLED Slot whose worker reported success but whose
	// fact could not be extracted from the store. Dependents must not build
	// on such a value.
	unusable bool

	// Bookkeeping for diagnostics.
	DispatchTime time.Time `json:"-"`
	SettleTime   time.Time `json:"-"`
}

// Status returns the Slot's current status.
func (s *Slot) Status() SlotStatus { return s.status }

// Value returns the produced fact, nil unless the Slot is FILLED or FAILED
// (FAILED Slots carry a short diagnostic Scalar).
func (s *Slot) Value() Value { return s.value }

// Unusable reports whether a FILLED Slot carries the acquired-but-unusable
// sentinel instead of a real fact value.
func (s *Slot) Unusable() bool { return s.unusable }

// setStatus applies a status transition, enforcing monotonicity. A transition
// out of a terminal status or back to PENDING is ignored.
func (s *Slot) setStatus(next SlotStatus, v Value, unusable bool) bool {
	if terminalStatus(s.status) || next == SlotPending {
		return false
	}
	if s.status == SlotDispatched && next == SlotDispatched {
		return false
	}
	s.status = next
	now := time.Now()
	if next == SlotDispatched {
		s.DispatchTime = now
	}
	if terminalStatus(next) {
		s.value = v
		s.unusable = unusable
		s.SettleTime = now
	}
	return true
}

// FetchPlan is the per-turn DAG of Slots, ordered as emitted by the planner.
// Plan order is the tie-break rule for Slot selection.
type FetchPlan struct {
	Slots   []*Slot
	slotMap map[string]*Slot

	mu sync.RWMutex
}

// SlotSpec is the serializable description of one Slot, as produced by the
// plan generator or a plan file.
type SlotSpec struct {
	ID           string   `json:"id" yaml:"id"`
	TargetField  string   `json:"target_field" yaml:"target_field"`
	Description  string   `json:"description" yaml:"description"`
	Owner        string   `json:"owner" yaml:"owner"`
	Dependencies []string `json:"dependencies" yaml:"dependencies"`
}

// PlanDraft is the planner's raw output: an ordered list of Slot specs that
// has not yet passed structural validation.
type PlanDraft struct {
	Slots []SlotSpec `json:"slots"`
}

// NewFetchPlan validates a draft and builds the executable plan. The planner
// is untrusted structured input: duplicate IDs, empty IDs, missing owners or
// target fields, and dependencies on Slots absent from the same plan are
// rejected here, before any execution starts. Cycles are deliberately NOT
// rejected here; the scheduler's deadlock detection guarantees termination
// even for a cyclic plan that slips through generator-side validation.
func NewFetchPlan(specs []SlotSpec) (*FetchPlan, error) {
	plan := &FetchPlan{
		Slots:   make([]*Slot, 0, len(specs)),
		slotMap: make(map[string]*Slot, len(specs)),
	}
	for _, spec := range specs {
		if spec.ID == "" {
			return nil, NewPlanValidationError("slot with empty id", nil)
		}
		if _, dup := plan.slotMap[spec.ID]; dup {
			return nil, NewPlanValidationError(fmt.Sprintf("duplicate slot id '%s'", spec.ID), nil)
		}
		if spec.TargetField == "" {
			return nil, NewPlanValidationError(fmt.Sprintf("slot '%s' has no target field", spec.ID), nil)
		}
		if spec.Owner == "" {
			return nil, NewPlanValidationError(fmt.Sprintf("slot '%s' has no owner worker", spec.ID), nil)
		}
		slot := &Slot{
			ID:           spec.ID,
			TargetField:  spec.TargetField,
			Description:  spec.Description,
			Owner:        spec.Owner,
			Dependencies: append([]string(nil), spec.Dependencies...),
			status:       SlotPending,
		}
		plan.Slots = append(plan.Slots, slot)
		plan.slotMap[spec.ID] = slot
	}
	for _, slot := range plan.Slots {
		for _, dep := range slot.Dependencies {
			if _, ok := plan.slotMap[dep]; !ok {
				return nil, NewPlanValidationError(fmt.Sprintf(
					"slot '%s' depends on missing slot '%s'", slot.ID, dep), nil)
			}
		}
	}
	return plan, nil
}

// Get returns the Slot with the given ID.
func (p *FetchPlan) Get(id string) (*Slot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.slotMap[id]
	return s, ok
}

// Len returns the number of Slots in the plan.
func (p *FetchPlan) Len() int { return len(p.Slots) }

// MarkDispatched transitions a Slot to DISPATCHED. Scheduler use only.
func (p *FetchPlan) MarkDispatched(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.slotMap[id]
	if !ok {
		return false
	}
	return s.setStatus(SlotDispatched, nil, false)
}

// MarkFilled transitions a Slot to FILLED with its produced value.
func (p *FetchPlan) MarkFilled(id string, v Value, unusable bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.slotMap[id]
	if !ok {
		return false
	}
	return s.setStatus(SlotFilled, v, unusable)
}

// MarkFailed transitions a Slot to FAILED with a short diagnostic.
func (p *FetchPlan) MarkFailed(id string, diagnostic string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.slotMap[id]
	if !ok {
		return false
	}
	return s.setStatus(SlotFailed, Scalar(diagnostic), false)
}

// CountByStatus tallies Slots per status, used for completion and deadlock
// decisions and for terminal reporting.
func (p *FetchPlan) CountByStatus() map[SlotStatus]int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	counts := make(map[SlotStatus]int, 4)
	for _, s := range p.Slots {
		counts[s.status]++
	}
	return counts
}

// Summary renders a compact per-Slot status line, used in logs and handed
// to synthesis alongside the fact snapshot.
func (p *FetchPlan) Summary() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.Slots) == 0 {
		return "(empty plan)"
	}
	out := ""
	for _, s := range p.Slots {
		dep := ""
		if len(s.Dependencies) > 0 {
			dep = fmt.Sprintf(" <- %v", s.Dependencies)
		}
		out += fmt.Sprintf("[%s] %s: %s%s\n", s.status, s.ID, s.TargetField, dep)
	}
	return out
}

// TerminalReason classifies why a turn stopped gathering facts and moved on
// to synthesis.
type TerminalReason string

const (
	// ReasonComplete means no Slot remains PENDING or DISPATCHED.
	ReasonComplete TerminalReason = "COMPLETE"
	// ReasonDeadlock means pending Slots remain but none can ever run.
	ReasonDeadlock TerminalReason = "DEADLOCK"
	// ReasonIterationCap means the per-turn dispatch budget was exhausted.
	ReasonIterationCap TerminalReason = "ITERATION_CAP"
	// ReasonNoRunnableSlot means no Slot was dispatchable this round; it also
	// covers the repeated-failure circuit-breaker trip, with the detail string
	// naming the tripped worker.
	ReasonNoRunnableSlot TerminalReason = "NO_RUNNABLE_SLOT"
)

// PlannerInput contains the information the plan generator needs to emit a
// FetchPlan for one user turn.
type PlannerInput struct {
	Question     string                            `json:"question"`
	WorkerSchema map[string]map[string]interface{} `json:"worker_schema"`
	KnownFields  []string                          `json:"known_fields,omitempty"` // fact-store keys already populated
	CurrentDate  string                            `json:"current_date,omitempty"`
}

// WorkerRequest is the hydrated instruction handed to a worker for one Slot.
type WorkerRequest struct {
	SlotID      string `json:"slot_id"`
	TargetField string `json:"target_field"`
	Instruction string `json:"instruction"`
}

// WorkerStatus is the success/failure signal a worker must return.
type WorkerStatus string

const (
	WorkerSuccess WorkerStatus = "SUCCESS"
	WorkerFailure WorkerStatus = "FAILURE"
)

// WorkerResult is a worker's report for one WorkerRequest. The fact itself is
// written to the session's FactStore by the worker; the result carries only
// the signal and diagnostics.
type WorkerResult struct {
	Status          WorkerStatus `json:"status"`
	Diagnostic      string       `json:"diagnostic,omitempty"`
	SuggestedWorker string       `json:"suggested_worker,omitempty"`
}

// SynthesisInput is the terminal hand-off to the response-composition stage.
// Synthesis must tolerate partial data: every reason other than COMPLETE
// still carries whatever facts were gathered.
type SynthesisInput struct {
	Question    string           `json:"question"`
	Reason      TerminalReason   `json:"reason"`
	Detail      string           `json:"detail,omitempty"`
	Facts       map[string]Value `json:"facts"`
	PlanSummary string           `json:"plan_summary"`
}
