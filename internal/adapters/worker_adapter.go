// Package adapters bridges the engine's interfaces to concrete backends:
// plain Go functions as workers, and Genkit flows as planner and synthesizer.
package adapters

import (
	"context"
	"fmt"

	"github.com/fairwaylabs/tripgraph"
)

// WorkerFunc is the function shape a Go function must have to serve as a
// fetch worker.
type WorkerFunc func(ctx context.Context, req tripgraph.WorkerRequest, facts *tripgraph.FactStore) (*tripgraph.WorkerResult, error)

// GoWorkerAdapter adapts a standard Go function to the tripgraph.Worker
// interface.
type GoWorkerAdapter struct {
	workerFunc  WorkerFunc
	schema      map[string]interface{}
	name        string
	validator   func(tripgraph.WorkerRequest) error
	description string
}

// WorkerOption represents an option for configuring a GoWorkerAdapter.
type WorkerOption func(*GoWorkerAdapter)

// WithValidator sets a custom request validator for the worker.
func WithValidator(validator func(tripgraph.WorkerRequest) error) WorkerOption {
	return func(adapter *GoWorkerAdapter) {
		adapter.validator = validator
	}
}

// WithDescription sets a detailed description for the worker, surfaced to
// the planner through the schema.
func WithDescription(description string) WorkerOption {
	return func(adapter *GoWorkerAdapter) {
		adapter.description = description
		if adapter.schema != nil {
			adapter.schema["description"] = description
		}
	}
}

// WithFields declares the target fields this worker owns.
func WithFields(fields []string) WorkerOption {
	return func(adapter *GoWorkerAdapter) {
		if adapter.schema != nil {
			adapter.schema["fields"] = fields
		}
	}
}

// WithExternalFields declares fields this worker is commonly confused with
// but does not own, so the planner routes them elsewhere.
func WithExternalFields(fields []string) WorkerOption {
	return func(adapter *GoWorkerAdapter) {
		if adapter.schema != nil {
			adapter.schema["external_fields"] = fields
		}
	}
}

// WithExamples adds example instructions to the schema.
func WithExamples(examples []string) WorkerOption {
	return func(adapter *GoWorkerAdapter) {
		if adapter.schema != nil {
			adapter.schema["examples"] = examples
		}
	}
}

// NewGoWorkerAdapter creates a new adapter for a Go function.
func NewGoWorkerAdapter(name string, workerFunc WorkerFunc, options ...WorkerOption) *GoWorkerAdapter {
	schema := map[string]interface{}{
		"name": name,
	}

	adapter := &GoWorkerAdapter{
		workerFunc: workerFunc,
		schema:     schema,
		name:       name,
		validator: func(req tripgraph.WorkerRequest) error {
			if req.SlotID == "" {
				return fmt.Errorf("request has no slot id")
			}
			if req.Instruction == "" {
				return fmt.Errorf("request has no instruction")
			}
			return nil
		},
	}

	for _, option := range options {
		option(adapter)
	}

	return adapter
}

// Fetch implements the tripgraph.Worker interface.
func (a *GoWorkerAdapter) Fetch(ctx context.Context, req tripgraph.WorkerRequest, facts *tripgraph.FactStore) (*tripgraph.WorkerResult, error) {
	if a.workerFunc == nil {
		return nil, fmt.Errorf("worker function is nil")
	}
	if a.validator != nil {
		if err := a.validator(req); err != nil {
			return nil, fmt.Errorf("request validation failed for %s: %w", a.name, err)
		}
	}
	return a.workerFunc(ctx, req, facts)
}

// Schema implements the tripgraph.Worker interface.
func (a *GoWorkerAdapter) Schema() map[string]interface{} {
	return a.schema
}

// Name implements the tripgraph.Worker interface.
func (a *GoWorkerAdapter) Name() string {
	return a.name
}
