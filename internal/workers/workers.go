// Package workers provides the fetch workers that own the trip data domains:
// lodging, golf courses, ground transport, itinerary, traveler profile,
// weather, and open-web search. Each worker serves only its own domain and
// fails fast with a routing suggestion when an instruction reaches the wrong
// desk.
package workers

import (
	"strings"

	"github.com/fairwaylabs/tripgraph"
)

// SetupWorkers creates the full worker roster over one trip dataset.
func SetupWorkers(data *Dataset) map[string]tripgraph.Worker {
	roster := map[string]tripgraph.Worker{}
	for _, w := range []tripgraph.Worker{
		NewLodgingWorker(data),
		NewCourseWorker(data),
		NewTransportWorker(data),
		NewItineraryWorker(data),
		NewProfileWorker(data),
		NewWeatherWorker(),
		NewWebSearchWorker(),
	} {
		roster[w.Name()] = w
	}
	return roster
}

// boundaryRule routes one out-of-scope keyword to the worker that actually
// owns it.
type boundaryRule struct {
	keyword   string
	suggested string
}

// checkBoundary scans the dispatched instruction (never the user's original
// question) for keywords outside this worker's capability. Judging only the
// instruction matters: when the scheduler asks the lodging worker for the
// lodging name as a stepping stone to reviews, the worker must not refuse
// just because the user's question mentioned reviews.
func checkBoundary(instruction string, rules []boundaryRule) (*tripgraph.WorkerResult, bool) {
	in := strings.ToLower(instruction)
	if in == "" {
		return nil, false
	}
	for _, rule := range rules {
		if strings.Contains(in, rule.keyword) {
			return &tripgraph.WorkerResult{
				Status:          tripgraph.WorkerFailure,
				Diagnostic:      "instruction asks for '" + rule.keyword + "', which is outside this worker's data",
				SuggestedWorker: rule.suggested,
			}, true
		}
	}
	return nil, false
}

func successResult() *tripgraph.WorkerResult {
	return &tripgraph.WorkerResult{Status: tripgraph.WorkerSuccess}
}

func failureResult(diagnostic string) *tripgraph.WorkerResult {
	return &tripgraph.WorkerResult{Status: tripgraph.WorkerFailure, Diagnostic: diagnostic}
}
