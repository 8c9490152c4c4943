package tripgraph

import "context"

// Planner is responsible for generating a fetch plan (DAG of Slots) from a
// user question. Its output is untrusted structured data; callers run it
// through NewFetchPlan before execution.
type Planner interface {
	GeneratePlan(ctx context.Context, input PlannerInput) (*FetchPlan, error)
}

// Worker is a specialized fetcher owning one data domain (lodging, course
// bookings, ground transport, itinerary, traveler profile, weather, web
// search). Given a hydrated instruction it must either write the requested
// fact into the session's FactStore under the agreed key and return a
// SUCCESS signal, or return a FAILURE signal with a short reason and,
// optionally, a suggested alternate worker. Workers never touch Slot
// bookkeeping; that belongs to the scheduler alone.
type Worker interface {
	// Fetch performs the worker's data acquisition for one Slot.
	Fetch(ctx context.Context, req WorkerRequest, facts *FactStore) (*WorkerResult, error)

	// Schema returns a description of the worker, used by the Planner.
	// Standard keys include:
	// - "description": what the worker can fetch
	// - "fields": target fields this worker owns
	// - "external_fields": fields callers commonly confuse it with
	Schema() map[string]interface{}

	// Name returns the worker's identifier as used in Slot.Owner.
	Name() string
}

// Synthesizer composes the final natural-language answer from the terminal
// hand-off. It must produce a reasonable answer for every terminal reason,
// including DEADLOCK and ITERATION_CAP with only partial facts.
type Synthesizer interface {
	Compose(ctx context.Context, input SynthesisInput) (string, error)
}

// Cache provides storage for frequently accessed data, like generated plans.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}) error
}
