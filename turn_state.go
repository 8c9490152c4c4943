package tripgraph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fairwaylabs/tripgraph/internal/eventbus"
)

// TurnState represents the current phase of one question-answering turn.
type TurnState string

const (
	// StateInit is the initial state of the turn
	StateInit TurnState = "init"
	// StatePlanning represents the fetch-plan generation phase
	StatePlanning TurnState = "planning"
	// StateGathering represents the fact-gathering phase
	StateGathering TurnState = "gathering"
	// StateSynthesis represents the answer synthesis phase
	StateSynthesis TurnState = "synthesis"
	// StateError represents an error state
	StateError TurnState = "error"
	// StateComplete represents the completed state
	StateComplete TurnState = "complete"
	// StateCancelled represents the cancelled state
	StateCancelled TurnState = "cancelled"
	// StateUnknown is used when the status of an async turn cannot be determined.
	StateUnknown TurnState = "unknown"
)

// TurnContext contains the data needed for one turn's execution. It acts as
// the "tape" in the pushdown automaton.
type TurnContext struct {
	// Input parameters
	Question string
	Session  *Session

	// Intermediate results
	PlannerInput *PlannerInput
	Plan         *FetchPlan
	Report       *GatherReport
	FinalAnswer  string

	// Error handling
	LastError  error
	ErrorStage string

	// State management
	CurrentState TurnState
	StateStack   []TurnState
	StateData    map[string]interface{}

	// Timestamp tracking
	StartTime       time.Time
	EndTime         time.Time
	StateStartTimes map[TurnState]time.Time

	// mu guards CurrentState, StateStack, StateStartTimes, EndTime,
	// LastError and ErrorStage: async status polls and cancellation read
	// and write them concurrently with the executing state machine.
	mu sync.RWMutex
}

// NewTurnContext creates a new turn context for the given session and question.
func NewTurnContext(session *Session, question string) *TurnContext {
	return &TurnContext{
		Question:        question,
		Session:         session,
		CurrentState:    StateInit,
		StateStack:      []TurnState{},
		StateData:       make(map[string]interface{}),
		StartTime:       time.Now(),
		StateStartTimes: make(map[TurnState]time.Time),
	}
}

// State returns the current state. Safe to call while another goroutine
// drives the state machine.
func (tc *TurnContext) State() TurnState {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.CurrentState
}

// LastFailure returns the last error and the stage it was recorded in.
func (tc *TurnContext) LastFailure() (error, string) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.LastError, tc.ErrorStage
}

// StateStartedAt returns when the context entered the given state.
func (tc *TurnContext) StateStartedAt(state TurnState) (time.Time, bool) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	t, ok := tc.StateStartTimes[state]
	return t, ok
}

// advance moves the context into the next state.
func (tc *TurnContext) advance(state TurnState) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.CurrentState = state
	tc.StateStartTimes[state] = time.Now()
}

// PushState pushes the current state onto the stack and sets a new current state.
func (tc *TurnContext) PushState(state TurnState) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.StateStack = append(tc.StateStack, tc.CurrentState)
	tc.CurrentState = state
	tc.StateStartTimes[state] = time.Now()
}

// PopState pops the top state from the stack and sets it as the current state.
// Returns false if the stack is empty.
func (tc *TurnContext) PopState() bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if len(tc.StateStack) == 0 {
		return false
	}
	lastIdx := len(tc.StateStack) - 1
	tc.CurrentState = tc.StateStack[lastIdx]
	tc.StateStack = tc.StateStack[:lastIdx]
	tc.StateStartTimes[tc.CurrentState] = time.Now()
	return true
}

// IsTerminal checks if the current state is a terminal state (Complete, Error, Cancelled).
func (tc *TurnContext) IsTerminal() bool {
	state := tc.State()
	return state == StateComplete || state == StateError || state == StateCancelled
}

// SetError sets the last error and error stage, transitioning to StateError.
func (tc *TurnContext) SetError(err error, stage string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.LastError = err
	tc.ErrorStage = stage
	tc.CurrentState = StateError
	tc.StateStartTimes[StateError] = time.Now()
}

// SetCancelled sets the state to Cancelled and records the cancellation error.
func (tc *TurnContext) SetCancelled(err error, stage string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.LastError = err
	tc.ErrorStage = stage
	tc.CurrentState = StateCancelled
	tc.StateStartTimes[StateCancelled] = time.Now()
}

// Complete marks the turn as complete and sets the end time.
func (tc *TurnContext) Complete() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.CurrentState = StateComplete
	tc.EndTime = time.Now()
	tc.StateStartTimes[StateComplete] = tc.EndTime
}

// GetStateDuration returns the duration spent in the given state.
func (tc *TurnContext) GetStateDuration(state TurnState) time.Duration {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	startTime, ok := tc.StateStartTimes[state]
	if !ok {
		return 0
	}
	if state == tc.CurrentState {
		return time.Since(startTime)
	}
	return 0
}

// GetTotalDuration returns the total duration of the turn so far.
func (tc *TurnContext) GetTotalDuration() time.Duration {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	if tc.CurrentState == StateComplete {
		return tc.EndTime.Sub(tc.StartTime)
	}
	return time.Since(tc.StartTime)
}

// StateTransition defines a transition function for the state machine.
type StateTransition func(ctx context.Context, eventBus eventbus.EventBus, tCtx *TurnContext) (TurnState, error)

// StateMachine represents a finite state machine for turn execution.
type StateMachine struct {
	transitions map[TurnState]StateTransition
	eventBus    eventbus.EventBus
}

// NewStateMachine creates a new state machine with the provided transitions.
func NewStateMachine(eventBus eventbus.EventBus) *StateMachine {
	return &StateMachine{
		transitions: make(map[TurnState]StateTransition),
		eventBus:    eventBus,
	}
}

// RegisterTransition registers a state transition function.
func (sm *StateMachine) RegisterTransition(state TurnState, transition StateTransition) {
	sm.transitions[state] = transition
}

// Execute runs the state machine until completion or error.
func (sm *StateMachine) Execute(ctx context.Context, tCtx *TurnContext) (string, error) {
	for !tCtx.IsTerminal() {
		// Check for context cancellation before executing the next state
		select {
		case <-ctx.Done():
			err := ctx.Err()
			tCtx.SetCancelled(err, string(tCtx.State()))
			return "", err
		default:
		}

		currentState := tCtx.State()
		transition, exists := sm.transitions[currentState]
		if !exists {
			err := fmt.Errorf("no transition defined for state: %s", currentState)
			tCtx.SetError(err, string(currentState))
			return "", err
		}

		nextState, err := transition(ctx, sm.eventBus, tCtx)

		if err != nil {
			if err == context.Canceled || err == context.DeadlineExceeded {
				tCtx.SetCancelled(err, string(currentState))
			} else if !tCtx.IsTerminal() {
				tCtx.SetError(err, string(currentState))
			}
			continue
		}

		if !tCtx.IsTerminal() {
			tCtx.advance(nextState)
		}
	}

	lastErr, _ := tCtx.LastFailure()
	return tCtx.FinalAnswer, lastErr
}
