package workers

import (
	"context"
	"log"

	"github.com/fairwaylabs/tripgraph"
	"github.com/fairwaylabs/tripgraph/internal/scheduler"
)

// LodgingWorker serves hotel and lodging booking data.
type LodgingWorker struct {
	data *Dataset
}

func NewLodgingWorker(data *Dataset) *LodgingWorker {
	return &LodgingWorker{data: data}
}

func (w *LodgingWorker) Name() string { return "lodging" }

func (w *LodgingWorker) Schema() map[string]interface{} {
	return map[string]interface{}{
		"description":     "Fetches the traveler's lodging bookings: hotel name, address, check-in/check-out dates, room type.",
		"fields":          []string{"lodging_name", "lodging_address", "check_in", "check_out", "room_type"},
		"external_fields": []string{"reviews", "ratings", "tips", "weather_forecast"},
	}
}

var lodgingBoundary = []boundaryRule{
	{"review", "web_search"},
	{"rating", "web_search"},
	{"reputation", "web_search"},
	{"tips", "web_search"},
	{"weather", "weather"},
	{"forecast", "weather"},
	{"how to get", "transport"},
	{"route", "transport"},
}

func (w *LodgingWorker) Fetch(ctx context.Context, req tripgraph.WorkerRequest, facts *tripgraph.FactStore) (*tripgraph.WorkerResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if res, out := checkBoundary(req.Instruction, lodgingBoundary); out {
		log.Printf("worker lodging: refusing slot %s: %s", req.SlotID, res.Diagnostic)
		return res, nil
	}
	if len(w.data.LodgingBookings) == 0 {
		return failureResult("no lodging bookings on file for this trip"), nil
	}
	facts.Put(scheduler.KeyLodgingBookings, w.data.LodgingBookings)
	log.Printf("worker lodging: slot %s served %d booking(s)", req.SlotID, len(w.data.LodgingBookings))
	return successResult(), nil
}
