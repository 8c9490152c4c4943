package tripgraph

import (
	"errors"
	"strings"
	"testing"
)

func TestNewFetchPlanRejectsBadDrafts(t *testing.T) {
	tests := []struct {
		name  string
		specs []SlotSpec
		want  string
	}{
		{
			name:  "empty id",
			specs: []SlotSpec{{TargetField: "tee_time", Owner: "course"}},
			want:  "empty id",
		},
		{
			name: "duplicate id",
			specs: []SlotSpec{
				{ID: "s1", TargetField: "tee_time", Owner: "course"},
				{ID: "s1", TargetField: "players", Owner: "course"},
			},
			want: "duplicate slot id",
		},
		{
			name:  "missing target field",
			specs: []SlotSpec{{ID: "s1", Owner: "course"}},
			want:  "no target field",
		},
		{
			name:  "missing owner",
			specs: []SlotSpec{{ID: "s1", TargetField: "tee_time"}},
			want:  "no owner",
		},
		{
			name: "dangling dependency",
			specs: []SlotSpec{
				{ID: "s1", TargetField: "tee_time", Owner: "course", Dependencies: []string{"ghost"}},
			},
			want: "missing slot 'ghost'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFetchPlan(tt.specs)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err.Error(), tt.want)
			}
			var tgErr *TripGraphError
			if !errors.As(err, &tgErr) {
				t.Errorf("expected TripGraphError, got %T", err)
			}
		})
	}
}

func TestNewFetchPlanAcceptsCycles(t *testing.T) {
	// Cycles terminate at runtime via deadlock detection, so plan
	// construction lets them through.
	_, err := NewFetchPlan([]SlotSpec{
		{ID: "a", TargetField: "x", Owner: "w", Dependencies: []string{"b"}},
		{ID: "b", TargetField: "y", Owner: "w", Dependencies: []string{"a"}},
	})
	if err != nil {
		t.Fatalf("cyclic plan should construct, got %v", err)
	}
}

func TestSlotStatusIsMonotonic(t *testing.T) {
	plan, err := NewFetchPlan([]SlotSpec{
		{ID: "s1", TargetField: "tee_time", Owner: "course"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if !plan.MarkDispatched("s1") {
		t.Fatal("PENDING -> DISPATCHED should succeed")
	}
	if plan.MarkDispatched("s1") {
		t.Error("re-dispatch of a DISPATCHED slot should be rejected")
	}
	if !plan.MarkFilled("s1", Scalar("8:40 AM"), false) {
		t.Fatal("DISPATCHED -> FILLED should succeed")
	}
	if plan.MarkFailed("s1", "too late") {
		t.Error("FILLED is terminal; FAILED must not overwrite it")
	}

	s1, _ := plan.Get("s1")
	if s1.Status() != SlotFilled || s1.Value().String() != "8:40 AM" {
		t.Errorf("terminal value should be stable, got %s %v", s1.Status(), s1.Value())
	}
}

func TestCountByStatusAndSummary(t *testing.T) {
	plan, err := NewFetchPlan([]SlotSpec{
		{ID: "s1", TargetField: "lodging_name", Owner: "lodging"},
		{ID: "s2", TargetField: "reviews", Owner: "web_search", Dependencies: []string{"s1"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	plan.MarkDispatched("s1")

	counts := plan.CountByStatus()
	if counts[SlotPending] != 1 || counts[SlotDispatched] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}

	summary := plan.Summary()
	if !strings.Contains(summary, "s2") || !strings.Contains(summary, "reviews") {
		t.Errorf("summary should list every slot, got %q", summary)
	}
}

func TestSessionTurnCounting(t *testing.T) {
	s := NewSession("trip-1", "Jordan Lee")
	if s.TurnCount() != 0 {
		t.Fatalf("fresh session should have 0 turns, got %d", s.TurnCount())
	}
	s.BeginTurn()
	if s.TurnCount() != 1 {
		t.Errorf("expected 1 turn, got %d", s.TurnCount())
	}
	s.EndTurn()
	s.BeginTurn()
	s.EndTurn()
	if s.TurnCount() != 2 {
		t.Errorf("expected 2 turns, got %d", s.TurnCount())
	}
	if s.Facts == nil {
		t.Error("session must carry a fact store")
	}
}
