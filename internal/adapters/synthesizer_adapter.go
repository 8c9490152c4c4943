package adapters

import (
	"context"

	"github.com/firebase/genkit/go/core"

	"github.com/fairwaylabs/tripgraph"
)

// SynthesizerFlowInput is the serializable form of the terminal hand-off
// passed to the synthesis flow. Fact values are rendered to strings so the
// flow input stays JSON-friendly.
type SynthesizerFlowInput struct {
	Question    string            `json:"question"`
	Reason      string            `json:"reason"`
	Detail      string            `json:"detail,omitempty"`
	Facts       map[string]string `json:"facts"`
	PlanSummary string            `json:"plan_summary"`
}

// GenkitSynthesizerAdapter uses a Genkit Flow to implement the Synthesizer
// interface.
type GenkitSynthesizerAdapter struct {
	synthesisFlow *core.Flow[*SynthesizerFlowInput, string, struct{}]
}

// NewGenkitSynthesizerAdapter creates a new adapter for the synthesis flow.
func NewGenkitSynthesizerAdapter(flow *core.Flow[*SynthesizerFlowInput, string, struct{}]) *GenkitSynthesizerAdapter {
	return &GenkitSynthesizerAdapter{synthesisFlow: flow}
}

// Compose implements the tripgraph.Synthesizer interface.
func (a *GenkitSynthesizerAdapter) Compose(ctx context.Context, input tripgraph.SynthesisInput) (string, error) {
	if a.synthesisFlow == nil {
		return "", tripgraph.NewConfigurationError("synthesis flow is not configured", nil)
	}

	facts := make(map[string]string, len(input.Facts))
	for key, v := range input.Facts {
		if v != nil {
			facts[key] = v.String()
		}
	}

	flowInput := SynthesizerFlowInput{
		Question:    input.Question,
		Reason:      string(input.Reason),
		Detail:      input.Detail,
		Facts:       facts,
		PlanSummary: input.PlanSummary,
	}

	answer, err := a.synthesisFlow.Run(ctx, &flowInput)
	if err != nil {
		return "", tripgraph.NewSynthesisError("synthesis flow execution failed", err)
	}

	return answer, nil
}
