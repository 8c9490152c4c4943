package workers

import (
	"context"
	"log"

	"github.com/fairwaylabs/tripgraph"
	"github.com/fairwaylabs/tripgraph/internal/scheduler"
)

// ItineraryWorker serves the trip's event schedule.
type ItineraryWorker struct {
	data *Dataset
}

func NewItineraryWorker(data *Dataset) *ItineraryWorker {
	return &ItineraryWorker{data: data}
}

func (w *ItineraryWorker) Name() string { return "itinerary" }

func (w *ItineraryWorker) Schema() map[string]interface{} {
	return map[string]interface{}{
		"description":     "Fetches the trip itinerary: scheduled events, their locations and dates.",
		"fields":          []string{"location", "event_date"},
		"external_fields": []string{"weather_forecast", "tips"},
	}
}

var itineraryBoundary = []boundaryRule{
	{"weather", "weather"},
	{"forecast", "weather"},
	{"tips", "web_search"},
}

func (w *ItineraryWorker) Fetch(ctx context.Context, req tripgraph.WorkerRequest, facts *tripgraph.FactStore) (*tripgraph.WorkerResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if res, out := checkBoundary(req.Instruction, itineraryBoundary); out {
		log.Printf("worker itinerary: refusing slot %s: %s", req.SlotID, res.Diagnostic)
		return res, nil
	}
	if len(w.data.Events) == 0 {
		return failureResult("no itinerary events on file for this trip"), nil
	}
	facts.Put(scheduler.KeyEvents, w.data.Events)
	log.Printf("worker itinerary: slot %s served %d event(s)", req.SlotID, len(w.data.Events))
	return successResult(), nil
}
