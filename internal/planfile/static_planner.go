package planfile

import (
	"context"

	"github.com/fairwaylabs/tripgraph"
)

// StaticPlanner serves a fixed plan from a plan file, bypassing model
// generation entirely. Useful for canned demo turns and offline runs.
type StaticPlanner struct {
	file *PlanFile
}

// NewStaticPlanner loads and validates the plan file at path.
func NewStaticPlanner(path string) (*StaticPlanner, error) {
	pf, err := LoadPlanFile(path)
	if err != nil {
		return nil, err
	}
	if err := pf.Validate(); err != nil {
		return nil, err
	}
	return &StaticPlanner{file: pf}, nil
}

// GeneratePlan implements the tripgraph.Planner interface. Every call builds
// a fresh plan: slot state is per-turn and must not leak between turns.
func (p *StaticPlanner) GeneratePlan(ctx context.Context, input tripgraph.PlannerInput) (*tripgraph.FetchPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, tripgraph.NewCancelledError("plan_generation", err)
	}
	return p.file.ToFetchPlan()
}
