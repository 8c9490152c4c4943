package tripgraph

import (
	"context"
	"fmt"
	"time"

	"github.com/fairwaylabs/tripgraph/internal/eventbus"
)

// CreateTurnStateMachine builds a complete state machine for the turn
// workflow: init -> planning -> gathering -> synthesis -> complete, with
// error and cancelled as terminal detours.
func CreateTurnStateMachine(components Components, eventBus eventbus.EventBus) *StateMachine {
	sm := NewStateMachine(eventBus)

	sm.RegisterTransition(StateInit, createInitTransition(components))
	sm.RegisterTransition(StatePlanning, createPlanningTransition(components))
	sm.RegisterTransition(StateGathering, createGatheringTransition(components))
	sm.RegisterTransition(StateSynthesis, createSynthesisTransition(components))
	sm.RegisterTransition(StateError, createErrorTransition(components))
	sm.RegisterTransition(StateComplete, createCompleteTransition(components))
	sm.RegisterTransition(StateCancelled, createCancelledTransition(components))

	return sm
}

// createInitTransition handles the initialization state.
func createInitTransition(components Components) StateTransition {
	return func(ctx context.Context, eb eventbus.EventBus, tCtx *TurnContext) (TurnState, error) {
		if eb != nil {
			startEvent := eventbus.NewEvent(
				eventbus.EventTurnStarted,
				tCtx.Question,
				"StateMachine.Init",
				map[string]interface{}{
					"timestamp":  time.Now().Format(time.RFC3339),
					"session_id": tCtx.Session.ID,
					"turn":       tCtx.Session.TurnCount(),
				},
			)
			eb.Publish(ctx, startEvent)
		}

		// Prepare planner input. Known fact-store keys let the planner skip
		// slots for facts the session already holds.
		tCtx.PlannerInput = &PlannerInput{
			Question:     tCtx.Question,
			WorkerSchema: components.GetSchemas(),
			KnownFields:  tCtx.Session.Facts.Keys(),
			CurrentDate:  time.Now().Format("2006-01-02"),
		}

		return StatePlanning, nil
	}
}

// createPlanningTransition handles the plan-generation state.
func createPlanningTransition(components Components) StateTransition {
	return func(ctx context.Context, eb eventbus.EventBus, tCtx *TurnContext) (TurnState, error) {
		if tCtx.PlannerInput == nil {
			return StateError, fmt.Errorf("planner input was never prepared")
		}

		if eb != nil {
			planStartEvent := eventbus.NewEvent(
				eventbus.EventPlanGenerationStarted,
				tCtx.Question,
				"StateMachine.Planning",
				nil,
			)
			eb.Publish(ctx, planStartEvent)
		}

		plan, err := components.Planner.GeneratePlan(ctx, *tCtx.PlannerInput)
		if err != nil {
			if eb != nil {
				failEvent := eventbus.NewEvent(
					eventbus.EventPlanGenerationFailure,
					err.Error(),
					"StateMachine.Planning",
					map[string]interface{}{"error": err.Error()},
				)
				eb.Publish(ctx, failEvent)

				turnFailEvent := eventbus.NewEvent(
					eventbus.EventTurnFailure,
					tCtx.Question,
					"StateMachine.Planning",
					map[string]interface{}{
						"error": err.Error(),
						"stage": "plan_generation",
					},
				)
				eb.Publish(ctx, turnFailEvent)
			}
			return StateError, fmt.Errorf("failed to generate fetch plan: %w", err)
		}

		if eb != nil {
			planSuccessEvent := eventbus.NewEvent(
				eventbus.EventPlanGenerationSuccess,
				plan.Summary(),
				"StateMachine.Planning",
				map[string]interface{}{"slot_count": plan.Len()},
			)
			eb.Publish(ctx, planSuccessEvent)
		}

		tCtx.Plan = plan
		return StateGathering, nil
	}
}

// createGatheringTransition handles the fact-gathering state.
func createGatheringTransition(components Components) StateTransition {
	return func(ctx context.Context, eb eventbus.EventBus, tCtx *TurnContext) (TurnState, error) {
		facts := tCtx.Session.Facts

		if eb != nil {
			gatherStartEvent := eventbus.NewEvent(
				eventbus.EventGatheringStarted,
				tCtx.Plan.Summary(),
				"StateMachine.Gathering",
				map[string]interface{}{"slot_count": tCtx.Plan.Len()},
			)
			eb.Publish(ctx, gatherStartEvent)
		}

		report, err := components.Gatherer.ExecuteGathering(ctx, tCtx.Plan, facts, components.Workers)
		if err != nil {
			if eb != nil {
				turnFailEvent := eventbus.NewEvent(
					eventbus.EventTurnFailure,
					tCtx.Question,
					"StateMachine.Gathering",
					map[string]interface{}{
						"error": err.Error(),
						"stage": "gathering",
					},
				)
				eb.Publish(ctx, turnFailEvent)
			}
			return StateError, fmt.Errorf("fact gathering failed: %w", err)
		}

		if eb != nil {
			publishGatherEvents(ctx, eb, report)
		}

		tCtx.Report = report
		return StateSynthesis, nil
	}
}

// publishGatherEvents turns a gather report into per-slot and terminal
// events.
func publishGatherEvents(ctx context.Context, eb eventbus.EventBus, report *GatherReport) {
	for _, out := range report.Outcomes {
		eventType := eventbus.EventWorkerFetchSuccess
		if out.Status == WorkerFailure {
			eventType = eventbus.EventWorkerFetchFailure
		}
		eb.Publish(ctx, eventbus.NewEvent(
			eventType,
			eventbus.SlotPayload{
				SlotID:      out.SlotID,
				TargetField: out.TargetField,
				Worker:      out.Worker,
				Detail:      out.Diagnostic,
			},
			"StateMachine.Gathering",
			map[string]interface{}{"elapsed_ms": out.Elapsed.Milliseconds()},
		))
	}

	terminalType := eventbus.EventGatheringFinished
	switch report.Reason {
	case ReasonDeadlock:
		terminalType = eventbus.EventDeadlockDetected
	case ReasonIterationCap:
		terminalType = eventbus.EventIterationCapHit
	case ReasonNoRunnableSlot:
		terminalType = eventbus.EventBreakerTripped
	}
	eb.Publish(ctx, eventbus.NewEvent(
		terminalType,
		eventbus.GatheringPayload{
			Reason:     string(report.Reason),
			Detail:     report.Detail,
			Iterations: report.Iterations,
		},
		"StateMachine.Gathering",
		nil,
	))
}

// createSynthesisTransition handles the synthesis state.
func createSynthesisTransition(components Components) StateTransition {
	return func(ctx context.Context, eb eventbus.EventBus, tCtx *TurnContext) (TurnState, error) {
		if eb != nil {
			synthesisStartEvent := eventbus.NewEvent(
				eventbus.EventSynthesisStarted,
				tCtx.Question,
				"StateMachine.Synthesis",
				map[string]interface{}{
					"reason":     string(tCtx.Report.Reason),
					"fact_count": tCtx.Session.Facts.Len(),
				},
			)
			eb.Publish(ctx, synthesisStartEvent)
		}

		// Synthesis always runs, whatever the terminal reason: partial facts
		// still make a better answer than none.
		input := SynthesisInput{
			Question:    tCtx.Question,
			Reason:      tCtx.Report.Reason,
			Detail:      tCtx.Report.Detail,
			Facts:       tCtx.Session.Facts.Snapshot(),
			PlanSummary: tCtx.Plan.Summary(),
		}

		finalAnswer, err := components.Synthesizer.Compose(ctx, input)
		if err != nil {
			if eb != nil {
				synthesisFailEvent := eventbus.NewEvent(
					eventbus.EventSynthesisFailure,
					err.Error(),
					"StateMachine.Synthesis",
					map[string]interface{}{"error": err.Error()},
				)
				eb.Publish(ctx, synthesisFailEvent)

				turnFailEvent := eventbus.NewEvent(
					eventbus.EventTurnFailure,
					tCtx.Question,
					"StateMachine.Synthesis",
					map[string]interface{}{
						"error": err.Error(),
						"stage": "synthesis",
					},
				)
				eb.Publish(ctx, turnFailEvent)
			}
			return StateError, fmt.Errorf("failed to synthesize answer: %w", err)
		}

		if eb != nil {
			synthesisSuccessEvent := eventbus.NewEvent(
				eventbus.EventSynthesisSuccess,
				finalAnswer,
				"StateMachine.Synthesis",
				map[string]interface{}{"answer_length": len(finalAnswer)},
			)
			eb.Publish(ctx, synthesisSuccessEvent)

			turnSuccessEvent := eventbus.NewEvent(
				eventbus.EventTurnSuccess,
				tCtx.Question,
				"StateMachine.Synthesis",
				map[string]interface{}{
					"reason": string(tCtx.Report.Reason),
				},
			)
			eb.Publish(ctx, turnSuccessEvent)
		}

		tCtx.FinalAnswer = finalAnswer
		return StateComplete, nil
	}
}

// createErrorTransition handles error states.
func createErrorTransition(_ Components) StateTransition {
	return func(ctx context.Context, eb eventbus.EventBus, tCtx *TurnContext) (TurnState, error) {
		// The error is already recorded in the turn context; transition to
		// complete with the error intact so Execute returns it.
		lastErr, _ := tCtx.LastFailure()
		return StateComplete, lastErr
	}
}

// createCompleteTransition handles the complete state.
func createCompleteTransition(_ Components) StateTransition {
	return func(ctx context.Context, eb eventbus.EventBus, tCtx *TurnContext) (TurnState, error) {
		// Terminal state - nothing to do.
		return StateComplete, nil
	}
}

// createCancelledTransition handles the cancelled state.
func createCancelledTransition(_ Components) StateTransition {
	return func(ctx context.Context, eb eventbus.EventBus, tCtx *TurnContext) (TurnState, error) {
		// Terminal state. The cancellation error is already recorded by the
		// Execute loop or a transition.
		lastErr, _ := tCtx.LastFailure()
		return StateCancelled, lastErr
	}
}
