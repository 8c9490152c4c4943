// Package prompt manages the Genkit prompts behind plan generation and
// response synthesis.
package prompt

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Prompt names used by the engine's flows.
const (
	PlanGenerationPrompt = "plan_generation"
	SynthesisPrompt      = "synthesis"
)

// Registry manages the loading and execution of Genkit prompts.
type Registry struct {
	genkitInstance *genkit.Genkit
}

// NewRegistry initializes the Genkit environment and creates a prompt
// registry. It takes Genkit initialization options, such as plugin
// configurations and the prompt directory.
func NewRegistry(ctx context.Context, opts ...genkit.GenkitOption) (*Registry, error) {
	g, err := genkit.Init(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Genkit: %w", err)
	}

	return &Registry{
		genkitInstance: g,
	}, nil
}

// Genkit exposes the underlying Genkit instance for flow definition and
// engine construction.
func (r *Registry) Genkit() *genkit.Genkit {
	return r.genkitInstance
}

// GetPrompt retrieves a loaded prompt by its name using Genkit's lookup.
func (r *Registry) GetPrompt(name string) (*ai.Prompt, error) {
	p := genkit.LookupPrompt(r.genkitInstance, name)
	if p == nil {
		return nil, fmt.Errorf("prompt '%s' not found", name)
	}
	return p, nil
}

// ExecutePrompt retrieves a prompt by name, renders it with the given input,
// and executes it using the Genkit instance.
func (r *Registry) ExecutePrompt(ctx context.Context, promptName string, input map[string]interface{}, execOpts ...ai.PromptExecuteOption) (*ai.ModelResponse, error) {
	p, err := r.GetPrompt(promptName)
	if err != nil {
		return nil, err
	}

	allOpts := append([]ai.PromptExecuteOption{ai.WithInput(input)}, execOpts...)

	resp, err := p.Execute(ctx, allOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute prompt '%s': %w", promptName, err)
	}

	return resp, nil
}

// DefinePrompt allows defining prompts programmatically via the registry.
func (r *Registry) DefinePrompt(name string, opts ...ai.PromptOption) (*ai.Prompt, error) {
	p, err := genkit.DefinePrompt(r.genkitInstance, name, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to define prompt '%s': %w", name, err)
	}
	return p, nil
}

// DefinePartial allows defining partials programmatically via the registry.
func (r *Registry) DefinePartial(name, template string) error {
	if err := genkit.DefinePartial(r.genkitInstance, name, template); err != nil {
		return fmt.Errorf("failed to define partial '%s': %w", name, err)
	}
	return nil
}

// DefineHelper allows defining custom Handlebars helpers via the registry.
func (r *Registry) DefineHelper(name string, helperFunc interface{}) error {
	if err := genkit.DefineHelper(r.genkitInstance, name, helperFunc); err != nil {
		return fmt.Errorf("failed to define helper '%s': %w", name, err)
	}
	return nil
}
