package workers

import (
	"context"
	"log"

	"github.com/fairwaylabs/tripgraph"
	"github.com/fairwaylabs/tripgraph/internal/scheduler"
)

// TransportWorker serves ground transport arrangements.
type TransportWorker struct {
	data *Dataset
}

func NewTransportWorker(data *Dataset) *TransportWorker {
	return &TransportWorker{data: data}
}

func (w *TransportWorker) Name() string { return "transport" }

func (w *TransportWorker) Schema() map[string]interface{} {
	return map[string]interface{}{
		"description":     "Fetches ground transport arrangements: departure time, destination, vehicle type.",
		"fields":          []string{"departure_time", "destination", "vehicle_type"},
		"external_fields": []string{"weather_forecast", "reviews"},
	}
}

var transportBoundary = []boundaryRule{
	{"weather", "weather"},
	{"forecast", "weather"},
	{"review", "web_search"},
}

func (w *TransportWorker) Fetch(ctx context.Context, req tripgraph.WorkerRequest, facts *tripgraph.FactStore) (*tripgraph.WorkerResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if res, out := checkBoundary(req.Instruction, transportBoundary); out {
		log.Printf("worker transport: refusing slot %s: %s", req.SlotID, res.Diagnostic)
		return res, nil
	}
	if len(w.data.Transport) == 0 {
		return failureResult("no transport arrangements on file for this trip"), nil
	}
	facts.Put(scheduler.KeyTransport, w.data.Transport)
	log.Printf("worker transport: slot %s served %d arrangement(s)", req.SlotID, len(w.data.Transport))
	return successResult(), nil
}
