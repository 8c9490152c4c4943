package tripgraph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fairwaylabs/tripgraph/internal/eventbus"
)

// AsyncTurnStatus represents the status information for an async turn.
type AsyncTurnStatus struct {
	TurnID       string        `json:"turn_id"`
	Question     string        `json:"question"`
	CurrentState TurnState     `json:"current_state"`
	StartTime    time.Time     `json:"start_time"`
	Duration     time.Duration `json:"duration"`
	IsComplete   bool          `json:"is_complete"`
	HasError     bool          `json:"has_error"`
	ErrorMessage string        `json:"error_message,omitempty"`
	ErrorStage   string        `json:"error_stage,omitempty"`
}

// AskAsync starts an asynchronous turn and returns a unique turn ID that can
// be used to check the status or fetch the result. The turn runs on a
// background context so it outlives the caller's request context.
func (e *Engine) AskAsync(ctx context.Context, session *Session, question string) (string, error) {
	if session == nil {
		session = NewSession("", "")
	}

	turnID := uuid.New().String()

	stateMachine := e.createStateMachine()
	turnContext := NewTurnContext(session, question)

	e.asyncTurnsMutex.Lock()
	e.asyncTurns[turnID] = turnContext
	e.asyncTurnsMutex.Unlock()

	asyncCtx, cancel := context.WithCancel(context.Background())
	turnContext.StateData["cancel"] = cancel

	if e.config.EnableEventBus && e.eventBus != nil {
		startEvent := eventbus.NewEvent(
			eventbus.EventTurnAsyncStarted,
			question,
			"Engine.AskAsync",
			map[string]interface{}{
				"timestamp": time.Now().Format(time.RFC3339),
				"turn_id":   turnID,
			},
		)
		e.eventBus.Publish(ctx, startEvent)
	}

	go func() {
		defer cancel()

		session.BeginTurn()
		defer session.EndTurn()

		result, err := stateMachine.Execute(asyncCtx, turnContext)

		e.asyncTurnsMutex.Lock()
		if tCtx, exists := e.asyncTurns[turnID]; exists {
			tCtx.FinalAnswer = result
			if err != nil {
				tCtx.SetError(err, string(tCtx.State()))
			} else {
				tCtx.Complete()
			}
		}
		e.asyncTurnsMutex.Unlock()

		if e.config.EnableEventBus && e.eventBus != nil {
			eventType := eventbus.EventTurnAsyncSuccess
			metadata := map[string]interface{}{
				"turn_id":     turnID,
				"duration_ms": turnContext.GetTotalDuration().Milliseconds(),
			}

			if err != nil {
				eventType = eventbus.EventTurnAsyncFailure
				metadata["error"] = err.Error()
				metadata["error_stage"] = turnContext.ErrorStage
			}

			completionEvent := eventbus.NewEvent(
				eventType,
				question,
				"Engine.AskAsync",
				metadata,
			)
			// The caller's context may be done by now.
			e.eventBus.Publish(context.Background(), completionEvent)
		}
	}()

	return turnID, nil
}

// GetAsyncStatus retrieves the current status of an async turn.
func (e *Engine) GetAsyncStatus(turnID string) (*AsyncTurnStatus, error) {
	e.asyncTurnsMutex.RLock()
	defer e.asyncTurnsMutex.RUnlock()

	tCtx, exists := e.asyncTurns[turnID]
	if !exists {
		return nil, fmt.Errorf("turn with ID '%s' not found", turnID)
	}

	state := tCtx.State()
	status := &AsyncTurnStatus{
		TurnID:       turnID,
		Question:     tCtx.Question,
		CurrentState: state,
		StartTime:    tCtx.StartTime,
		Duration:     tCtx.GetTotalDuration(),
		IsComplete:   state == StateComplete,
		HasError:     state == StateError,
	}

	if lastErr, stage := tCtx.LastFailure(); lastErr != nil {
		status.ErrorMessage = lastErr.Error()
		status.ErrorStage = stage
	}

	return status, nil
}

// GetAsyncResult retrieves the result of a completed async turn. Returns an
// error if the turn is not complete or encountered an error.
func (e *Engine) GetAsyncResult(turnID string) (string, error) {
	e.asyncTurnsMutex.RLock()
	defer e.asyncTurnsMutex.RUnlock()

	tCtx, exists := e.asyncTurns[turnID]
	if !exists {
		return "", fmt.Errorf("turn with ID '%s' not found", turnID)
	}

	state := tCtx.State()
	lastErr, stage := tCtx.LastFailure()
	if state != StateComplete {
		if state == StateError {
			return "", fmt.Errorf("turn failed during stage '%s': %w", stage, lastErr)
		}
		return "", fmt.Errorf("turn is still in progress (current state: %s)", state)
	}

	if lastErr != nil {
		return "", fmt.Errorf("turn completed but encountered an error during stage '%s': %w", stage, lastErr)
	}

	return tCtx.FinalAnswer, nil
}

// CancelAsyncTurn cancels an ongoing async turn. Returns true if the turn
// was successfully cancelled, false if it was already complete or not found.
func (e *Engine) CancelAsyncTurn(turnID string) (bool, error) {
	e.asyncTurnsMutex.Lock()
	defer e.asyncTurnsMutex.Unlock()

	tCtx, exists := e.asyncTurns[turnID]
	if !exists {
		return false, fmt.Errorf("turn with ID '%s' not found", turnID)
	}

	if tCtx.IsTerminal() {
		return false, nil
	}

	cancelFn, ok := tCtx.StateData["cancel"].(context.CancelFunc)
	if !ok {
		return false, fmt.Errorf("cannot cancel turn: cancel function not found")
	}
	cancelFn()

	tCtx.SetCancelled(fmt.Errorf("turn cancelled by caller"), string(tCtx.State()))

	if e.config.EnableEventBus && e.eventBus != nil {
		cancelEvent := eventbus.NewEvent(
			eventbus.EventTurnAsyncCancelled,
			tCtx.Question,
			"Engine.CancelAsyncTurn",
			map[string]interface{}{
				"turn_id":     turnID,
				"duration_ms": tCtx.GetTotalDuration().Milliseconds(),
			},
		)
		e.eventBus.Publish(context.Background(), cancelEvent)
	}

	return true, nil
}

// ListAsyncTurns returns a map of all async turn IDs to their current states.
func (e *Engine) ListAsyncTurns() map[string]string {
	e.asyncTurnsMutex.RLock()
	defer e.asyncTurnsMutex.RUnlock()

	result := make(map[string]string)
	for id, tCtx := range e.asyncTurns {
		result[id] = string(tCtx.State())
	}

	return result
}

// CleanupCompletedTurns removes terminal turns older than the specified
// duration, bounding how much turn history the engine retains.
func (e *Engine) CleanupCompletedTurns(olderThan time.Duration) int {
	e.asyncTurnsMutex.Lock()
	defer e.asyncTurnsMutex.Unlock()

	now := time.Now()
	count := 0

	for id, tCtx := range e.asyncTurns {
		if !tCtx.IsTerminal() {
			continue
		}
		if settled, ok := tCtx.StateStartedAt(tCtx.State()); ok && now.Sub(settled) > olderThan {
			delete(e.asyncTurns, id)
			count++
		}
	}

	return count
}
