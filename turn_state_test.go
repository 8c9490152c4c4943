package tripgraph

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type dummyPlanner struct{}

func (d *dummyPlanner) GeneratePlan(ctx context.Context, input PlannerInput) (*FetchPlan, error) {
	return NewFetchPlan([]SlotSpec{
		{ID: "s1", TargetField: "lodging_name", Description: "look up lodging", Owner: "lodging"},
	})
}

type dummyGatherer struct{}

func (d *dummyGatherer) ExecuteGathering(ctx context.Context, plan *FetchPlan, facts *FactStore, workers map[string]Worker) (*GatherReport, error) {
	facts.Put("lodging_bookings", RecordList{
		{"id": Scalar("b1"), "name": Scalar("Seaside Inn")},
	})
	for _, slot := range plan.Slots {
		plan.MarkDispatched(slot.ID)
		plan.MarkFilled(slot.ID, Scalar("Seaside Inn"), false)
	}
	return &GatherReport{Reason: ReasonComplete, Iterations: plan.Len()}, nil
}

type dummySynthesizer struct{}

func (d *dummySynthesizer) Compose(ctx context.Context, input SynthesisInput) (string, error) {
	return fmt.Sprintf("answer (%s, %d facts)", input.Reason, len(input.Facts)), nil
}

type dummyCache struct{}

func (d *dummyCache) Get(ctx context.Context, key string) (interface{}, error) {
	return nil, errors.New("not found")
}
func (d *dummyCache) Set(ctx context.Context, key string, value interface{}) error { return nil }

// dummyWorkerForStateMachine implements the Worker interface for use in the
// state machine tests.
type dummyWorkerForStateMachine struct{}

func (d *dummyWorkerForStateMachine) Fetch(ctx context.Context, req WorkerRequest, facts *FactStore) (*WorkerResult, error) {
	return &WorkerResult{Status: WorkerSuccess}, nil
}
func (d *dummyWorkerForStateMachine) Schema() map[string]interface{} {
	return map[string]interface{}{"description": "dummy"}
}
func (d *dummyWorkerForStateMachine) Name() string { return "lodging" }

func testEngine() *Engine {
	return &Engine{
		planner:     &dummyPlanner{},
		gatherer:    &dummyGatherer{},
		synthesizer: &dummySynthesizer{},
		cache:       &dummyCache{},
		workers:     map[string]Worker{"lodging": &dummyWorkerForStateMachine{}},
		config:      Config{MaxIterations: 10, WorkerTimeout: time.Second},
		asyncTurns:  make(map[string]*TurnContext),
	}
}

func TestStateMachine_Execute_Success(t *testing.T) {
	e := testEngine()
	stateMachine := e.createStateMachine()
	tCtx := NewTurnContext(NewSession("trip-1", "Jordan Lee"), "where am I staying?")
	final, err := stateMachine.Execute(context.Background(), tCtx)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if final == "" {
		t.Error("expected non-empty final answer")
	}
	if tCtx.State() != StateComplete {
		t.Errorf("expected complete state, got %s", tCtx.State())
	}
}

func TestStateMachine_Execute_ErrorTransition(t *testing.T) {
	e := testEngine()
	stateMachine := e.createStateMachine()
	tCtx := NewTurnContext(NewSession("", ""), "test question")
	// Simulate error state
	tCtx.SetError(errors.New("fail"), "planning")
	final, err := stateMachine.Execute(context.Background(), tCtx)
	if err == nil {
		t.Error("expected error for error state, got nil")
	}
	if final != "" {
		t.Errorf("expected empty final answer, got %v", final)
	}
}

func TestStateMachine_Execute_Cancellation(t *testing.T) {
	e := testEngine()
	stateMachine := e.createStateMachine()
	tCtx := NewTurnContext(NewSession("", ""), "test question")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := stateMachine.Execute(ctx, tCtx)
	if err == nil {
		t.Error("expected cancellation error, got nil")
	}
	if tCtx.State() != StateCancelled {
		t.Errorf("expected cancelled state, got %s", tCtx.State())
	}
}

type failingPlanner struct{}

func (f *failingPlanner) GeneratePlan(ctx context.Context, input PlannerInput) (*FetchPlan, error) {
	return nil, errors.New("model unavailable")
}

func TestStateMachine_Execute_PlanningFailure(t *testing.T) {
	e := testEngine()
	e.planner = &failingPlanner{}
	stateMachine := e.createStateMachine()
	tCtx := NewTurnContext(NewSession("", ""), "test question")
	_, err := stateMachine.Execute(context.Background(), tCtx)
	if err == nil {
		t.Fatal("expected planning failure to surface")
	}
	if tCtx.ErrorStage != string(StatePlanning) {
		t.Errorf("expected error stage %q, got %q", StatePlanning, tCtx.ErrorStage)
	}
}

type partialGatherer struct{}

func (p *partialGatherer) ExecuteGathering(ctx context.Context, plan *FetchPlan, facts *FactStore, workers map[string]Worker) (*GatherReport, error) {
	return &GatherReport{
		Reason: ReasonDeadlock,
		Detail: "slot s1 blocked on failed dependency",
	}, nil
}

func TestStateMachine_SynthesisRunsOnPartialData(t *testing.T) {
	e := testEngine()
	e.gatherer = &partialGatherer{}
	stateMachine := e.createStateMachine()
	tCtx := NewTurnContext(NewSession("", ""), "test question")
	final, err := stateMachine.Execute(context.Background(), tCtx)
	if err != nil {
		t.Fatalf("a deadlocked gather must still reach synthesis, got error: %v", err)
	}
	if final == "" {
		t.Error("expected an answer composed from partial data")
	}
	if tCtx.Report.Reason != ReasonDeadlock {
		t.Errorf("report should carry the terminal reason, got %s", tCtx.Report.Reason)
	}
}

func TestTurnContext_StateDurations(t *testing.T) {
	tCtx := NewTurnContext(NewSession("", ""), "q")
	tCtx.StateStartTimes[StateInit] = time.Now().Add(-time.Second)
	if d := tCtx.GetStateDuration(StateInit); d < time.Second {
		t.Errorf("expected at least 1s in init, got %v", d)
	}
	tCtx.Complete()
	if tCtx.GetTotalDuration() <= 0 {
		t.Error("total duration should be positive after completion")
	}
}

func TestTurnContext_PushPopState(t *testing.T) {
	tCtx := NewTurnContext(NewSession("", ""), "q")
	tCtx.PushState(StatePlanning)
	if tCtx.State() != StatePlanning {
		t.Fatalf("expected planning, got %s", tCtx.State())
	}
	tCtx.PushState(StateGathering)
	tCtx.PopState()
	if tCtx.State() != StatePlanning {
		t.Errorf("pop should restore planning, got %s", tCtx.State())
	}
}

func TestTurnContext_ConcurrentStatusReads(t *testing.T) {
	e := testEngine()
	stateMachine := e.createStateMachine()
	tCtx := NewTurnContext(NewSession("", ""), "test question")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			state := tCtx.State()
			if lastErr, stage := tCtx.LastFailure(); lastErr != nil && stage == "" {
				t.Error("a recorded failure must carry its stage")
			}
			tCtx.GetStateDuration(state)
			tCtx.GetTotalDuration()
			if tCtx.IsTerminal() {
				return
			}
		}
	}()

	if _, err := stateMachine.Execute(context.Background(), tCtx); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("status reader never observed a terminal state")
	}
}
