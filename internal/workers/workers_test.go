package workers

import (
	"context"
	"strings"
	"testing"

	"github.com/fairwaylabs/tripgraph"
	"github.com/fairwaylabs/tripgraph/internal/scheduler"
)

func TestSetupWorkersRoster(t *testing.T) {
	roster := SetupWorkers(SampleDataset())
	for _, name := range []string{"lodging", "course", "transport", "itinerary", "profile", "weather", "web_search"} {
		w, ok := roster[name]
		if !ok {
			t.Errorf("missing worker %q", name)
			continue
		}
		if w.Name() != name {
			t.Errorf("worker %q reports name %q", name, w.Name())
		}
		if w.Schema()["description"] == nil {
			t.Errorf("worker %q has no schema description", name)
		}
	}
}

func TestLodgingWorkerServesBookings(t *testing.T) {
	w := NewLodgingWorker(SampleDataset())
	facts := tripgraph.NewFactStore()

	res, err := w.Fetch(context.Background(), tripgraph.WorkerRequest{
		SlotID:      "s1",
		TargetField: "lodging_name",
		Instruction: "look up the lodging booking",
	}, facts)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.Status != tripgraph.WorkerSuccess {
		t.Fatalf("expected SUCCESS, got %s (%s)", res.Status, res.Diagnostic)
	}

	v, ok := scheduler.ExtractField(facts, "lodging_name")
	if !ok || v.String() != "Seaside Inn" {
		t.Errorf("lodging_name not extractable after fetch: %v %v", v, ok)
	}
}

func TestLodgingWorkerFailsFastOnReviews(t *testing.T) {
	w := NewLodgingWorker(SampleDataset())
	facts := tripgraph.NewFactStore()

	res, err := w.Fetch(context.Background(), tripgraph.WorkerRequest{
		SlotID:      "s1",
		TargetField: "reviews",
		Instruction: "find reviews for the hotel",
	}, facts)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.Status != tripgraph.WorkerFailure {
		t.Fatalf("expected FAILURE for out-of-scope instruction, got %s", res.Status)
	}
	if res.SuggestedWorker != "web_search" {
		t.Errorf("expected web_search suggestion, got %q", res.SuggestedWorker)
	}
	if facts.Len() != 0 {
		t.Error("refused instruction must not write facts")
	}
}

func TestWeatherWorkerParsesPlace(t *testing.T) {
	w := NewWeatherWorker()
	facts := tripgraph.NewFactStore()

	res, err := w.Fetch(context.Background(), tripgraph.WorkerRequest{
		SlotID:      "s1",
		TargetField: "weather_forecast",
		Instruction: "weather forecast for Harbor Point",
	}, facts)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.Status != tripgraph.WorkerSuccess {
		t.Fatalf("expected SUCCESS, got %s (%s)", res.Status, res.Diagnostic)
	}
	v, ok := scheduler.ExtractField(facts, "weather_forecast")
	if !ok || !strings.Contains(v.String(), "Harbor Point") {
		t.Errorf("forecast should mention the place: %v %v", v, ok)
	}
}

func TestWeatherWorkerFailsWithoutPlace(t *testing.T) {
	w := NewWeatherWorker()
	res, err := w.Fetch(context.Background(), tripgraph.WorkerRequest{
		SlotID:      "s1",
		TargetField: "weather_forecast",
		Instruction: "weather",
	}, tripgraph.NewFactStore())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.Status != tripgraph.WorkerFailure {
		t.Errorf("expected FAILURE without a place, got %s", res.Status)
	}
}

func TestWebSearchWorkerWritesFindings(t *testing.T) {
	w := NewWebSearchWorker()
	facts := tripgraph.NewFactStore()

	res, err := w.Fetch(context.Background(), tripgraph.WorkerRequest{
		SlotID:      "s2",
		TargetField: "reviews",
		Instruction: `reviews and reputation for "Seaside Inn"`,
	}, facts)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.Status != tripgraph.WorkerSuccess {
		t.Fatalf("expected SUCCESS, got %s", res.Status)
	}
	v, ok := facts.Get(scheduler.KeySearchFindings)
	if !ok {
		t.Fatal("search findings not written")
	}
	list, ok := v.(tripgraph.ScalarList)
	if !ok || len(list) == 0 {
		t.Fatalf("expected non-empty scalar list, got %T", v)
	}
	if !strings.Contains(list[0].String(), "Seaside Inn") {
		t.Errorf("finding should mention the query subject: %q", list[0])
	}
}

func TestWebSearchFindingsAppendWithoutDuplicates(t *testing.T) {
	w := NewWebSearchWorker()
	facts := tripgraph.NewFactStore()
	req := tripgraph.WorkerRequest{SlotID: "s2", TargetField: "reviews", Instruction: "reviews for Dunes Links"}

	if _, err := w.Fetch(context.Background(), req, facts); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Fetch(context.Background(), req, facts); err != nil {
		t.Fatal(err)
	}

	v, _ := facts.Get(scheduler.KeySearchFindings)
	list := v.(tripgraph.ScalarList)
	if len(list) != 2 {
		t.Errorf("identical findings should not duplicate, got %d entries", len(list))
	}
}

func TestProfileWorkerEmptyDataFails(t *testing.T) {
	w := NewProfileWorker(&Dataset{})
	res, err := w.Fetch(context.Background(), tripgraph.WorkerRequest{
		SlotID:      "s1",
		TargetField: "traveler_name",
		Instruction: "look up the traveler profile",
	}, tripgraph.NewFactStore())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.Status != tripgraph.WorkerFailure {
		t.Errorf("expected FAILURE with empty dataset, got %s", res.Status)
	}
}
