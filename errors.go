package tripgraph

import "fmt"

// Error codes for specific failure types
const (
	ErrCodePlanValidation = "PLAN_VALIDATION_ERROR"
	ErrCodePlanGeneration = "PLAN_GENERATION_ERROR"
	ErrCodeWorkerNotFound = "WORKER_NOT_FOUND"
	ErrCodeWorkerFetch    = "WORKER_FETCH_ERROR"
	ErrCodeHydration      = "HYDRATION_ERROR"
	ErrCodeSynthesis      = "SYNTHESIS_ERROR"
	ErrCodeConfiguration  = "CONFIGURATION_ERROR"
	ErrCodeCancelled      = "EXECUTION_CANCELLED"
	ErrCodeCache          = "CACHE_ERROR"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// TripGraphError is a custom error type for tripgraph specific errors.
type TripGraphError struct {
	Code    string // A machine-readable error code (e.g., ErrCodePlanValidation)
	Message string // A human-readable message
	Stage   string // The stage where the error occurred (e.g., "planning", "gathering")
	Cause   error  // The underlying error, if any
}

// Error implements the error interface.
func (e *TripGraphError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Stage, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Stage, e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error, allowing for error chaining.
func (e *TripGraphError) Unwrap() error {
	return e.Cause
}

// NewError creates a new TripGraphError.
func NewError(code, stage, message string, cause error) *TripGraphError {
	return &TripGraphError{
		Code:    code,
		Stage:   stage,
		Message: message,
		Cause:   cause,
	}
}

// IsTripGraphError reports whether err is a *TripGraphError.
func IsTripGraphError(err error) bool {
	_, ok := err.(*TripGraphError)
	return ok
}

// Specific error constructors

func NewPlanValidationError(message string, cause error) *TripGraphError {
	return NewError(ErrCodePlanValidation, "planning", message, cause)
}

func NewPlanGenerationError(message string, cause error) *TripGraphError {
	return NewError(ErrCodePlanGeneration, "planning", message, cause)
}

func NewWorkerNotFoundError(stage, workerID string) *TripGraphError {
	return NewError(ErrCodeWorkerNotFound, stage, fmt.Sprintf("worker '%s' not found", workerID), nil)
}

func NewWorkerFetchError(stage, workerID string, cause error) *TripGraphError {
	return NewError(ErrCodeWorkerFetch, stage, fmt.Sprintf("fetch failed for worker '%s'", workerID), cause)
}

func NewHydrationError(slotID string, cause error) *TripGraphError {
	msg := fmt.Sprintf("failed to hydrate instruction for slot '%s'", slotID)
	return NewError(ErrCodeHydration, "gathering", msg, cause)
}

func NewSynthesisError(message string, cause error) *TripGraphError {
	return NewError(ErrCodeSynthesis, "synthesis", message, cause)
}

func NewConfigurationError(message string, cause error) *TripGraphError {
	return NewError(ErrCodeConfiguration, "initialization", message, cause)
}

func NewCancelledError(stage string, cause error) *TripGraphError {
	msg := "execution cancelled"
	if cause != nil && cause.Error() != "" && cause.Error() != "context canceled" {
		msg = fmt.Sprintf("execution cancelled: %v", cause)
	}
	return NewError(ErrCodeCancelled, stage, msg, cause)
}

func NewCacheError(stage, operation string, cause error) *TripGraphError {
	return NewError(ErrCodeCache, stage, fmt.Sprintf("cache operation '%s' failed", operation), cause)
}

func NewInternalError(stage, message string, cause error) *TripGraphError {
	return NewError(ErrCodeInternal, stage, message, cause)
}
