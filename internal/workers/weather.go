package workers

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/fairwaylabs/tripgraph"
	"github.com/fairwaylabs/tripgraph/internal/scheduler"
)

// WeatherWorker simulates a forecast service. It parses the place out of the
// hydrated instruction ("weather forecast for X") and writes a report record.
type WeatherWorker struct{}

func NewWeatherWorker() *WeatherWorker {
	return &WeatherWorker{}
}

func (w *WeatherWorker) Name() string { return "weather" }

func (w *WeatherWorker) Schema() map[string]interface{} {
	return map[string]interface{}{
		"description":     "Fetches the weather forecast for a named place. Needs a location, usually from the itinerary or transport destination.",
		"fields":          []string{"weather_forecast"},
		"external_fields": []string{"lodging_name", "tee_time", "reviews"},
	}
}

func (w *WeatherWorker) Fetch(ctx context.Context, req tripgraph.WorkerRequest, facts *tripgraph.FactStore) (*tripgraph.WorkerResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	place := parsePlace(req.Instruction)
	if place == "" {
		return failureResult("no location in instruction; weather needs a place to forecast for"), nil
	}

	// Simulated forecast
	facts.Put(scheduler.KeyWeatherReport, tripgraph.Record{
		"location":    tripgraph.Scalar(place),
		"summary":     tripgraph.Scalar(fmt.Sprintf("sunny with light onshore wind at %s", place)),
		"temperature": tripgraph.Scalar("21C"),
		"conditions":  tripgraph.Scalar("clear"),
	})
	log.Printf("worker weather: slot %s forecast served for %q", req.SlotID, place)
	return successResult(), nil
}

// parsePlace extracts the place name from a "weather forecast for X" style
// instruction, falling back to the text after the last "for".
func parsePlace(instruction string) string {
	in := strings.TrimSpace(instruction)
	if in == "" {
		return ""
	}
	lower := strings.ToLower(in)
	if idx := strings.LastIndex(lower, " for "); idx >= 0 {
		return strings.Trim(strings.TrimSpace(in[idx+len(" for "):]), `"`)
	}
	return ""
}
