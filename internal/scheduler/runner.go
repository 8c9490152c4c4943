package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/fairwaylabs/tripgraph"
)

// DefaultWorkerTimeout bounds a single worker fetch.
const DefaultWorkerTimeout = 30 * time.Second

// Runner drives a Scheduler through a complete gathering loop, invoking
// workers as the scheduler dispatches them. It implements
// tripgraph.Gatherer.
type Runner struct {
	scheduler     *Scheduler
	workerTimeout time.Duration
	metrics       *RunnerMetrics
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerMaxIterations overrides the per-turn dispatch budget.
func WithRunnerMaxIterations(n int) RunnerOption {
	return func(r *Runner) {
		r.scheduler = New(WithMaxIterations(n))
	}
}

// WithWorkerTimeout bounds how long one worker fetch may run.
func WithWorkerTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.workerTimeout = d
		}
	}
}

// NewRunner creates a Runner with the given options applied.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		scheduler:     New(),
		workerTimeout: DefaultWorkerTimeout,
		metrics:       newRunnerMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Metrics returns a snapshot of gathering statistics accumulated across all
// turns served by this Runner.
func (r *Runner) Metrics() RunnerMetrics {
	return r.metrics.Copy()
}

// ExecuteGathering loops Next over the plan until the scheduler declares the
// turn finished. Worker invocation errors become slot failures, never loop
// aborts: the scheduler decides what a failure means for the rest of the
// plan. Only context cancellation stops the loop early.
func (r *Runner) ExecuteGathering(ctx context.Context, plan *tripgraph.FetchPlan, facts *tripgraph.FactStore, workers map[string]tripgraph.Worker) (*tripgraph.GatherReport, error) {
	turn := NewTurn(plan)
	var outcomes []tripgraph.GatherOutcome

	for {
		if err := ctx.Err(); err != nil {
			return nil, tripgraph.NewCancelledError("gathering", err)
		}

		decision := r.scheduler.Next(turn, facts)
		if decision.Kind == DecisionFinish {
			return &tripgraph.GatherReport{
				Reason:     decision.Reason,
				Detail:     decision.Detail,
				Iterations: turn.Iterations,
				Outcomes:   outcomes,
			}, nil
		}

		slot := decision.Slot
		result, elapsed := r.invoke(ctx, workers, decision, facts)
		r.metrics.record(decision.WorkerID, result.Status == tripgraph.WorkerSuccess, elapsed)
		turn.Observe(slot.ID, decision.WorkerID, slot.TargetField, result)

		outcomes = append(outcomes, tripgraph.GatherOutcome{
			SlotID:      slot.ID,
			Worker:      decision.WorkerID,
			TargetField: slot.TargetField,
			Status:      result.Status,
			Diagnostic:  result.Diagnostic,
			Elapsed:     elapsed,
		})
	}
}

// invoke runs one worker fetch under the per-fetch timeout. Missing workers
// and fetch errors are folded into a failure result for the scheduler to
// absorb.
func (r *Runner) invoke(ctx context.Context, workers map[string]tripgraph.Worker, decision Decision, facts *tripgraph.FactStore) (*tripgraph.WorkerResult, time.Duration) {
	start := time.Now()

	worker, ok := workers[decision.WorkerID]
	if !ok {
		return &tripgraph.WorkerResult{
			Status:     tripgraph.WorkerFailure,
			Diagnostic: tripgraph.NewWorkerNotFoundError("gathering", decision.WorkerID).Error(),
		}, time.Since(start)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.workerTimeout)
	defer cancel()

	result, err := worker.Fetch(fetchCtx, decision.Request, facts)
	if err != nil {
		return &tripgraph.WorkerResult{
			Status:     tripgraph.WorkerFailure,
			Diagnostic: tripgraph.NewWorkerFetchError("gathering", decision.WorkerID, err).Error(),
		}, time.Since(start)
	}
	if result == nil {
		return &tripgraph.WorkerResult{
			Status:     tripgraph.WorkerFailure,
			Diagnostic: tripgraph.NewInternalError("gathering", fmt.Sprintf("worker %q returned no result", decision.WorkerID), nil).Error(),
		}, time.Since(start)
	}
	return result, time.Since(start)
}
