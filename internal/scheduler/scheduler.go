package scheduler

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/fairwaylabs/tripgraph"
)

// DefaultMaxIterations bounds how many dispatch decisions one turn may make.
// Real trip plans settle in well under ten calls; a turn that reaches the
// bound is looping, not working.
const DefaultMaxIterations = 10

const diagnosticLimit = 160

// Scheduler makes single-dispatch decisions over a fetch plan. It holds no
// per-turn state of its own; everything mutable lives in the Turn, so one
// Scheduler can serve many concurrent turns.
type Scheduler struct {
	maxIterations int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMaxIterations overrides the per-turn dispatch budget.
func WithMaxIterations(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxIterations = n
		}
	}
}

// New creates a Scheduler with the given options applied.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{maxIterations: DefaultMaxIterations}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Turn carries the mutable state of one gathering loop: the plan being
// executed, the dispatch counter, and the most recent worker outcome waiting
// to be absorbed.
type Turn struct {
	Plan       *tripgraph.FetchPlan
	Iterations int

	last *Outcome
}

// Outcome records what happened to the most recently dispatched slot.
type Outcome struct {
	SlotID      string
	WorkerID    string
	TargetField string
	Result      *tripgraph.WorkerResult
}

// NewTurn starts a gathering loop over the given plan.
func NewTurn(plan *tripgraph.FetchPlan) *Turn {
	return &Turn{Plan: plan}
}

// Observe hands a worker's result back to the turn. The next call to Next
// absorbs it into the plan before deciding anything else.
func (t *Turn) Observe(slotID, workerID, targetField string, result *tripgraph.WorkerResult) {
	t.last = &Outcome{SlotID: slotID, WorkerID: workerID, TargetField: targetField, Result: result}
}

// DecisionKind discriminates the two things Next can tell the caller to do.
type DecisionKind int

const (
	// DecisionDispatch instructs the caller to invoke one worker.
	DecisionDispatch DecisionKind = iota
	// DecisionFinish ends the gathering loop with a terminal reason.
	DecisionFinish
)

// Decision is the scheduler's verdict for one step of the gathering loop.
type Decision struct {
	Kind DecisionKind

	// Dispatch fields.
	Slot     *tripgraph.Slot
	WorkerID string
	Request  tripgraph.WorkerRequest

	// Finish fields.
	Reason tripgraph.TerminalReason
	Detail string
}

// Next runs one scheduling step: absorb the last worker outcome, resync
// pending slots against the fact store, then either pick exactly one slot to
// dispatch or declare the turn finished. The decision is a pure function of
// plan state, fact state, and the last outcome; no hidden history feeds it.
func (s *Scheduler) Next(turn *Turn, facts *tripgraph.FactStore) Decision {
	plan := turn.Plan

	s.absorb(turn, facts)
	s.resync(plan, facts)

	if d, done := s.checkSettled(plan); done {
		return d
	}

	if turn.Iterations >= s.maxIterations {
		return Decision{
			Kind:   DecisionFinish,
			Reason: tripgraph.ReasonIterationCap,
			Detail: fmt.Sprintf("dispatch budget of %d exhausted; %s", s.maxIterations, plan.Summary()),
		}
	}

	for _, slot := range plan.Slots {
		if slot.Status() != tripgraph.SlotPending || !s.eligible(slot, plan) {
			continue
		}

		if d, tripped := s.checkRepeatedFailure(turn, slot); tripped {
			return d
		}

		instruction, abort := hydrate(slot, plan)
		if abort != nil {
			// Fail the slot without spending a worker call, then keep
			// scanning: another candidate may still be dispatchable.
			log.Printf("scheduler: %v", tripgraph.NewHydrationError(slot.ID, errors.New(abort.diagnostic())))
			plan.MarkFailed(slot.ID, abort.diagnostic())
			continue
		}

		plan.MarkDispatched(slot.ID)
		turn.Iterations++
		return Decision{
			Kind:     DecisionDispatch,
			Slot:     slot,
			WorkerID: slot.Owner,
			Request: tripgraph.WorkerRequest{
				SlotID:      slot.ID,
				TargetField: slot.TargetField,
				Instruction: instruction,
			},
		}
	}

	// Hydration aborts above may have settled the rest of the plan.
	if d, done := s.checkSettled(plan); done {
		return d
	}
	return Decision{
		Kind:   DecisionFinish,
		Reason: tripgraph.ReasonNoRunnableSlot,
		Detail: "no slot could be dispatched; " + plan.Summary(),
	}
}

// absorb folds the last observed worker outcome into the plan. Safe to call
// when the outcome was already absorbed: a settled slot is left alone.
func (s *Scheduler) absorb(turn *Turn, facts *tripgraph.FactStore) {
	if turn.last == nil {
		return
	}
	out := turn.last
	slot, ok := turn.Plan.Get(out.SlotID)
	if !ok || slot.Status() != tripgraph.SlotDispatched {
		return
	}

	if out.Result == nil || out.Result.Status == tripgraph.WorkerFailure {
		diag := "worker reported failure"
		if out.Result != nil && out.Result.Diagnostic != "" {
			diag = clip(out.Result.Diagnostic, diagnosticLimit)
		}
		log.Printf("scheduler: slot %s failed: %s", slot.ID, diag)
		turn.Plan.MarkFailed(slot.ID, diag)
		return
	}

	// The worker succeeded: the fact store, not the result payload, is the
	// source of truth for what was actually gathered.
	if v, ok := ExtractField(facts, slot.TargetField); ok {
		turn.Plan.MarkFilled(slot.ID, v, false)
		return
	}
	// Success signal but nothing usable landed in the store. The slot is
	// done, but downstream must not build on it.
	turn.Plan.MarkFilled(slot.ID,
		tripgraph.Scalar(fmt.Sprintf("no usable value for %q after fetch", slot.TargetField)), true)
}

// resync fills pending slots whose facts already exist in the store, so a
// fact learned earlier in the session is never fetched twice.
func (s *Scheduler) resync(plan *tripgraph.FetchPlan, facts *tripgraph.FactStore) {
	for _, slot := range plan.Slots {
		if slot.Status() != tripgraph.SlotPending {
			continue
		}
		if v, ok := ExtractField(facts, slot.TargetField); ok {
			log.Printf("scheduler: slot %s resolved from fact store (field %q)", slot.ID, slot.TargetField)
			plan.MarkFilled(slot.ID, v, false)
		}
	}
}

// checkSettled reports completion or deadlock. Completion means no work is
// pending or in flight, regardless of how individual slots fared; deadlock
// means pending work exists but none of it can ever run.
func (s *Scheduler) checkSettled(plan *tripgraph.FetchPlan) (Decision, bool) {
	counts := plan.CountByStatus()
	pending := counts[tripgraph.SlotPending]
	dispatched := counts[tripgraph.SlotDispatched]

	if pending == 0 && dispatched == 0 {
		return Decision{
			Kind:   DecisionFinish,
			Reason: tripgraph.ReasonComplete,
			Detail: plan.Summary(),
		}, true
	}
	if pending > 0 && dispatched == 0 && !s.anyEligible(plan) {
		return Decision{
			Kind:   DecisionFinish,
			Reason: tripgraph.ReasonDeadlock,
			Detail: "pending slots remain but none can run: " + s.blockedSummary(plan),
		}, true
	}
	return Decision{}, false
}

// checkRepeatedFailure trips the breaker when the slot about to be dispatched
// would send the same worker after the same field that just failed. Retrying
// an identical call immediately after a failure only burns budget.
func (s *Scheduler) checkRepeatedFailure(turn *Turn, slot *tripgraph.Slot) (Decision, bool) {
	out := turn.last
	if out == nil || out.Result == nil || out.Result.Status != tripgraph.WorkerFailure {
		return Decision{}, false
	}
	if slot.Owner != out.WorkerID || slot.TargetField != out.TargetField {
		return Decision{}, false
	}
	detail := fmt.Sprintf("worker %q failed fetching %q and would be re-dispatched for the same field", out.WorkerID, out.TargetField)
	if out.Result.SuggestedWorker != "" {
		detail += fmt.Sprintf("; worker suggested routing to %q instead", out.Result.SuggestedWorker)
	}
	return Decision{
		Kind:   DecisionFinish,
		Reason: tripgraph.ReasonNoRunnableSlot,
		Detail: detail,
	}, true
}

// eligible reports whether every dependency of the slot has settled as
// FILLED. A FAILED dependency permanently blocks its dependents.
func (s *Scheduler) eligible(slot *tripgraph.Slot, plan *tripgraph.FetchPlan) bool {
	for _, depID := range slot.Dependencies {
		dep, ok := plan.Get(depID)
		if !ok || dep.Status() != tripgraph.SlotFilled {
			return false
		}
	}
	return true
}

func (s *Scheduler) anyEligible(plan *tripgraph.FetchPlan) bool {
	for _, slot := range plan.Slots {
		if slot.Status() == tripgraph.SlotPending && s.eligible(slot, plan) {
			return true
		}
	}
	return false
}

// blockedSummary names each stuck pending slot and the dependency blocking
// it, for the terminal detail string.
func (s *Scheduler) blockedSummary(plan *tripgraph.FetchPlan) string {
	var parts []string
	for _, slot := range plan.Slots {
		if slot.Status() != tripgraph.SlotPending {
			continue
		}
		for _, depID := range slot.Dependencies {
			dep, ok := plan.Get(depID)
			if !ok {
				continue
			}
			if dep.Status() != tripgraph.SlotFilled {
				parts = append(parts, fmt.Sprintf("%s waits on %s (%s)", slot.ID, depID, dep.Status()))
				break
			}
		}
	}
	if len(parts) == 0 {
		return plan.Summary()
	}
	return strings.Join(parts, "; ")
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// DispatchLatency is a helper for callers that want to log how long a worker
// took for a slot once both timestamps are set.
func DispatchLatency(slot *tripgraph.Slot) (time.Duration, bool) {
	if slot.DispatchTime.IsZero() || slot.SettleTime.IsZero() {
		return 0, false
	}
	return slot.SettleTime.Sub(slot.DispatchTime), true
}
