package tripgraph

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorConstructorsCarryCodeStageAndCause(t *testing.T) {
	cause := errors.New("model unavailable")

	tests := []struct {
		name  string
		err   *TripGraphError
		code  string
		stage string
		cause error
	}{
		{"plan validation", NewPlanValidationError("duplicate slot id 's1'", nil), ErrCodePlanValidation, "planning", nil},
		{"plan generation", NewPlanGenerationError("planner flow execution failed", cause), ErrCodePlanGeneration, "planning", cause},
		{"worker not found", NewWorkerNotFoundError("gathering", "lodging"), ErrCodeWorkerNotFound, "gathering", nil},
		{"worker fetch", NewWorkerFetchError("gathering", "lodging", cause), ErrCodeWorkerFetch, "gathering", cause},
		{"hydration", NewHydrationError("s2", cause), ErrCodeHydration, "gathering", cause},
		{"synthesis", NewSynthesisError("synthesis flow execution failed", cause), ErrCodeSynthesis, "synthesis", cause},
		{"configuration", NewConfigurationError("synthesis flow is not configured", nil), ErrCodeConfiguration, "initialization", nil},
		{"cancelled", NewCancelledError("gathering", cause), ErrCodeCancelled, "gathering", cause},
		{"cache", NewCacheError("planning", "set", cause), ErrCodeCache, "planning", cause},
		{"internal", NewInternalError("gathering", "worker returned no result", nil), ErrCodeInternal, "gathering", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("code: got %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Stage != tt.stage {
				t.Errorf("stage: got %q, want %q", tt.err.Stage, tt.stage)
			}
			if !errors.Is(tt.err, tt.cause) && tt.cause != nil {
				t.Errorf("cause %v should unwrap from %v", tt.cause, tt.err)
			}
			if !strings.Contains(tt.err.Error(), tt.code) {
				t.Errorf("Error() should render the code, got %q", tt.err.Error())
			}
			if !IsTripGraphError(tt.err) {
				t.Error("IsTripGraphError should report true")
			}
		})
	}
}

func TestWorkerNotFoundErrorNamesTheWorker(t *testing.T) {
	err := NewWorkerNotFoundError("gathering", "nobody")
	if !strings.Contains(err.Error(), "worker 'nobody' not found") {
		t.Errorf("got %q", err.Error())
	}
}
