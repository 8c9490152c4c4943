package adapters

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"log"

	"github.com/firebase/genkit/go/core"

	"github.com/fairwaylabs/tripgraph"
)

// GenkitPlannerAdapter uses a Genkit Flow to implement the Planner interface.
// The flow emits a PlanDraft; the draft goes through NewFetchPlan validation
// before anything trusts it.
type GenkitPlannerAdapter struct {
	plannerFlow *core.Flow[*tripgraph.PlannerInput, *tripgraph.PlanDraft, struct{}]
	cache       tripgraph.Cache
}

// NewGenkitPlannerAdapter creates a new adapter for the planner flow.
func NewGenkitPlannerAdapter(plannerFlow *core.Flow[*tripgraph.PlannerInput, *tripgraph.PlanDraft, struct{}], cache tripgraph.Cache) *GenkitPlannerAdapter {
	return &GenkitPlannerAdapter{
		plannerFlow: plannerFlow,
		cache:       cache,
	}
}

// GeneratePlan implements the tripgraph.Planner interface.
func (a *GenkitPlannerAdapter) GeneratePlan(ctx context.Context, input tripgraph.PlannerInput) (*tripgraph.FetchPlan, error) {
	cacheKey := a.generateCacheKey(input)

	if draft, ok := a.cachedDraft(ctx, cacheKey); ok {
		// Cached drafts are still re-validated: validation rules may have
		// tightened since the draft was stored.
		plan, err := tripgraph.NewFetchPlan(draft.Slots)
		if err == nil {
			log.Printf("planner: cache hit for %s", cacheKey)
			return plan, nil
		}
		log.Printf("planner: cached draft invalid, regenerating: %v", err)
	}

	draft, err := a.plannerFlow.Run(ctx, &input)
	if err != nil {
		return nil, tripgraph.NewPlanGenerationError("planner flow execution failed", err)
	}
	if draft == nil {
		return nil, tripgraph.NewPlanGenerationError("planner flow returned a nil draft", nil)
	}

	plan, err := tripgraph.NewFetchPlan(draft.Slots)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, cacheKey, draft); err != nil {
			log.Printf("planner: %v", tripgraph.NewCacheError("planning", "set", err))
		}
	}
	return plan, nil
}

// cachedDraft fetches and decodes a previously stored draft, tolerating both
// in-memory (typed) and file-backed (raw JSON) cache values.
func (a *GenkitPlannerAdapter) cachedDraft(ctx context.Context, key string) (*tripgraph.PlanDraft, bool) {
	if a.cache == nil {
		return nil, false
	}
	cached, err := a.cache.Get(ctx, key)
	if err != nil || cached == nil {
		return nil, false
	}
	switch v := cached.(type) {
	case *tripgraph.PlanDraft:
		return v, true
	case json.RawMessage:
		var draft tripgraph.PlanDraft
		if err := json.Unmarshal(v, &draft); err != nil {
			return nil, false
		}
		return &draft, true
	}
	return nil, false
}

// generateCacheKey creates a unique key for caching planner results. Known
// fields are deliberately excluded: the same question over the same worker
// roster should reuse the plan, and the scheduler's resync step absorbs
// whatever facts already exist.
func (a *GenkitPlannerAdapter) generateCacheKey(input tripgraph.PlannerInput) string {
	cacheableInput := struct {
		Question     string                            `json:"question"`
		WorkerSchema map[string]map[string]interface{} `json:"worker_schema"`
	}{
		Question:     input.Question,
		WorkerSchema: input.WorkerSchema,
	}

	inputBytes, err := json.Marshal(cacheableInput)
	if err != nil {
		log.Printf("Failed to marshal planner input for cache key: %v", err)
		return "planner:" + input.Question
	}

	hasher := sha1.New()
	hasher.Write(inputBytes)
	return "planner:" + hex.EncodeToString(hasher.Sum(nil))
}
