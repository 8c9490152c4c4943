package workers

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/fairwaylabs/tripgraph"
	"github.com/fairwaylabs/tripgraph/internal/scheduler"
)

// WebSearchWorker simulates an open-web search over public information:
// reviews, ratings, and visitor tips. It takes the hydrated instruction
// verbatim as its query.
type WebSearchWorker struct{}

func NewWebSearchWorker() *WebSearchWorker {
	return &WebSearchWorker{}
}

func (w *WebSearchWorker) Name() string { return "web_search" }

func (w *WebSearchWorker) Schema() map[string]interface{} {
	return map[string]interface{}{
		"description":     "Searches the open web for public information: reviews, ratings, visitor tips. The query must name a concrete entity, usually resolved by another worker first.",
		"fields":          []string{"reviews", "ratings", "tips"},
		"external_fields": []string{"lodging_name", "tee_time", "check_in"},
	}
}

func (w *WebSearchWorker) Fetch(ctx context.Context, req tripgraph.WorkerRequest, facts *tripgraph.FactStore) (*tripgraph.WorkerResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query := strings.TrimSpace(req.Instruction)
	if query == "" {
		return failureResult("empty search query"), nil
	}

	// Simulated search findings
	findings := tripgraph.ScalarList{
		tripgraph.Scalar(fmt.Sprintf("Search finding for %s: consistently praised by recent visitors.", query)),
		tripgraph.Scalar(fmt.Sprintf("Search finding for %s: averages 4.5/5 across travel sites.", query)),
	}
	facts.Put(scheduler.KeySearchFindings, findings)
	log.Printf("worker web_search: slot %s search served for %q", req.SlotID, query)
	return successResult(), nil
}
