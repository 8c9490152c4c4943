package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fairwaylabs/tripgraph"
)

// fakeWorker answers every fetch with a canned function.
type fakeWorker struct {
	name  string
	fetch func(ctx context.Context, req tripgraph.WorkerRequest, facts *tripgraph.FactStore) (*tripgraph.WorkerResult, error)
}

func (w *fakeWorker) Name() string                    { return w.name }
func (w *fakeWorker) Schema() map[string]interface{}  { return map[string]interface{}{"description": w.name} }
func (w *fakeWorker) Fetch(ctx context.Context, req tripgraph.WorkerRequest, facts *tripgraph.FactStore) (*tripgraph.WorkerResult, error) {
	return w.fetch(ctx, req, facts)
}

func TestRunnerCompletesLinearPlan(t *testing.T) {
	plan := mustPlan(t, []tripgraph.SlotSpec{
		{ID: "s1", TargetField: "lodging_name", Description: "look up lodging", Owner: "lodging"},
		{ID: "s2", TargetField: "reviews", Description: "find reviews for ${lodging_name}", Owner: "web_search", Dependencies: []string{"s1"}},
	})
	facts := tripgraph.NewFactStore()

	workers := map[string]tripgraph.Worker{
		"lodging": &fakeWorker{name: "lodging", fetch: func(_ context.Context, _ tripgraph.WorkerRequest, f *tripgraph.FactStore) (*tripgraph.WorkerResult, error) {
			f.Put(KeyLodgingBookings, tripgraph.RecordList{
				{"id": tripgraph.Scalar("b1"), "name": tripgraph.Scalar("Seaside Inn")},
			})
			return success(), nil
		}},
		"web_search": &fakeWorker{name: "web_search", fetch: func(_ context.Context, req tripgraph.WorkerRequest, f *tripgraph.FactStore) (*tripgraph.WorkerResult, error) {
			if !strings.Contains(req.Instruction, "Seaside Inn") {
				t.Errorf("dependent instruction missing lodging name: %q", req.Instruction)
			}
			f.Put(KeySearchFindings, tripgraph.ScalarList{tripgraph.Scalar("glowing reviews")})
			return success(), nil
		}},
	}

	r := NewRunner()
	report, err := r.ExecuteGathering(context.Background(), plan, facts, workers)
	if err != nil {
		t.Fatalf("ExecuteGathering failed: %v", err)
	}
	if report.Reason != tripgraph.ReasonComplete {
		t.Fatalf("expected COMPLETE, got %s (%s)", report.Reason, report.Detail)
	}
	if report.Iterations != 2 {
		t.Errorf("expected 2 dispatches, got %d", report.Iterations)
	}
	if len(report.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(report.Outcomes))
	}
	if report.Outcomes[0].SlotID != "s1" || report.Outcomes[1].SlotID != "s2" {
		t.Errorf("outcomes out of order: %+v", report.Outcomes)
	}

	metrics := r.Metrics()
	if metrics.FetchesDispatched != 2 || metrics.FetchesSuccessful != 2 {
		t.Errorf("unexpected metrics: %+v", &metrics)
	}
	if metrics.FetchesByWorker["lodging"] != 1 || metrics.FetchesByWorker["web_search"] != 1 {
		t.Errorf("per-worker counts wrong: %v", metrics.FetchesByWorker)
	}

	s1, _ := plan.Get("s1")
	if _, ok := DispatchLatency(s1); !ok {
		t.Error("settled slot should report a dispatch latency")
	}
}

func TestRunnerMissingWorkerBecomesSlotFailure(t *testing.T) {
	plan := mustPlan(t, []tripgraph.SlotSpec{
		{ID: "s1", TargetField: "lodging_name", Description: "look up lodging", Owner: "nobody"},
	})
	facts := tripgraph.NewFactStore()

	report, err := NewRunner().ExecuteGathering(context.Background(), plan, facts, map[string]tripgraph.Worker{})
	if err != nil {
		t.Fatalf("ExecuteGathering failed: %v", err)
	}
	if report.Reason != tripgraph.ReasonComplete {
		t.Fatalf("a single failed slot still settles the plan, got %s", report.Reason)
	}
	if len(report.Outcomes) != 1 || report.Outcomes[0].Status != tripgraph.WorkerFailure {
		t.Fatalf("expected one failure outcome, got %+v", report.Outcomes)
	}
	if !strings.Contains(report.Outcomes[0].Diagnostic, "worker 'nobody' not found") {
		t.Errorf("diagnostic should name the missing worker, got %q", report.Outcomes[0].Diagnostic)
	}
	if !strings.Contains(report.Outcomes[0].Diagnostic, tripgraph.ErrCodeWorkerNotFound) {
		t.Errorf("diagnostic should carry the error code, got %q", report.Outcomes[0].Diagnostic)
	}
	s1, _ := plan.Get("s1")
	if s1.Status() != tripgraph.SlotFailed {
		t.Errorf("slot should be FAILED, got %s", s1.Status())
	}
}

func TestRunnerWorkerErrorBecomesSlotFailure(t *testing.T) {
	plan := mustPlan(t, []tripgraph.SlotSpec{
		{ID: "s1", TargetField: "lodging_name", Description: "look up lodging", Owner: "lodging"},
	})
	workers := map[string]tripgraph.Worker{
		"lodging": &fakeWorker{name: "lodging", fetch: func(context.Context, tripgraph.WorkerRequest, *tripgraph.FactStore) (*tripgraph.WorkerResult, error) {
			return nil, errors.New("backend unavailable")
		}},
	}

	report, err := NewRunner().ExecuteGathering(context.Background(), plan, tripgraph.NewFactStore(), workers)
	if err != nil {
		t.Fatalf("ExecuteGathering failed: %v", err)
	}
	if report.Outcomes[0].Status != tripgraph.WorkerFailure || !strings.Contains(report.Outcomes[0].Diagnostic, "backend unavailable") {
		t.Errorf("worker error should surface as failure diagnostic, got %+v", report.Outcomes[0])
	}
	if !strings.Contains(report.Outcomes[0].Diagnostic, tripgraph.ErrCodeWorkerFetch) {
		t.Errorf("diagnostic should carry the fetch error code, got %q", report.Outcomes[0].Diagnostic)
	}
}

func TestRunnerNilResultBecomesSlotFailure(t *testing.T) {
	plan := mustPlan(t, []tripgraph.SlotSpec{
		{ID: "s1", TargetField: "lodging_name", Description: "look up lodging", Owner: "lodging"},
	})
	workers := map[string]tripgraph.Worker{
		"lodging": &fakeWorker{name: "lodging", fetch: func(context.Context, tripgraph.WorkerRequest, *tripgraph.FactStore) (*tripgraph.WorkerResult, error) {
			return nil, nil
		}},
	}

	report, err := NewRunner().ExecuteGathering(context.Background(), plan, tripgraph.NewFactStore(), workers)
	if err != nil {
		t.Fatalf("ExecuteGathering failed: %v", err)
	}
	if report.Outcomes[0].Status != tripgraph.WorkerFailure {
		t.Fatalf("nil result should fail the slot, got %+v", report.Outcomes[0])
	}
	if !strings.Contains(report.Outcomes[0].Diagnostic, "returned no result") {
		t.Errorf("diagnostic should explain the nil result, got %q", report.Outcomes[0].Diagnostic)
	}
}

func TestRunnerHonorsContextCancellation(t *testing.T) {
	plan := mustPlan(t, []tripgraph.SlotSpec{
		{ID: "s1", TargetField: "lodging_name", Description: "look up lodging", Owner: "lodging"},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner().ExecuteGathering(ctx, plan, tripgraph.NewFactStore(), nil)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	var tgErr *tripgraph.TripGraphError
	if !errors.As(err, &tgErr) {
		t.Errorf("expected a TripGraphError, got %T", err)
	}
}

func TestRunnerWorkerTimeout(t *testing.T) {
	plan := mustPlan(t, []tripgraph.SlotSpec{
		{ID: "s1", TargetField: "lodging_name", Description: "look up lodging", Owner: "lodging"},
	})
	workers := map[string]tripgraph.Worker{
		"lodging": &fakeWorker{name: "lodging", fetch: func(ctx context.Context, _ tripgraph.WorkerRequest, _ *tripgraph.FactStore) (*tripgraph.WorkerResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}},
	}

	r := NewRunner(WithWorkerTimeout(10 * time.Millisecond))
	report, err := r.ExecuteGathering(context.Background(), plan, tripgraph.NewFactStore(), workers)
	if err != nil {
		t.Fatalf("ExecuteGathering failed: %v", err)
	}
	if report.Outcomes[0].Status != tripgraph.WorkerFailure {
		t.Errorf("timed-out fetch should fail the slot, got %+v", report.Outcomes[0])
	}
}
