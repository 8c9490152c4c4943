package workers

import (
	"context"
	"log"

	"github.com/fairwaylabs/tripgraph"
	"github.com/fairwaylabs/tripgraph/internal/scheduler"
)

// ProfileWorker serves the traveler's profile.
type ProfileWorker struct {
	data *Dataset
}

func NewProfileWorker(data *Dataset) *ProfileWorker {
	return &ProfileWorker{data: data}
}

func (w *ProfileWorker) Name() string { return "profile" }

func (w *ProfileWorker) Schema() map[string]interface{} {
	return map[string]interface{}{
		"description":     "Fetches the traveler profile: name and golf handicap.",
		"fields":          []string{"traveler_name", "handicap"},
		"external_fields": []string{"reviews", "weather_forecast"},
	}
}

var profileBoundary = []boundaryRule{
	{"review", "web_search"},
	{"weather", "weather"},
}

func (w *ProfileWorker) Fetch(ctx context.Context, req tripgraph.WorkerRequest, facts *tripgraph.FactStore) (*tripgraph.WorkerResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if res, out := checkBoundary(req.Instruction, profileBoundary); out {
		log.Printf("worker profile: refusing slot %s: %s", req.SlotID, res.Diagnostic)
		return res, nil
	}
	if len(w.data.Traveler) == 0 {
		return failureResult("no traveler profile on file"), nil
	}
	facts.Put(scheduler.KeyTraveler, w.data.Traveler)
	log.Printf("worker profile: slot %s served traveler profile", req.SlotID)
	return successResult(), nil
}
