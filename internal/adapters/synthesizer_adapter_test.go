package adapters

import (
	"context"
	"errors"
	"testing"

	"github.com/fairwaylabs/tripgraph"
)

func TestComposeWithoutFlowReturnsConfigurationError(t *testing.T) {
	a := NewGenkitSynthesizerAdapter(nil)

	_, err := a.Compose(context.Background(), tripgraph.SynthesisInput{
		Question: "where am I staying?",
		Reason:   tripgraph.ReasonComplete,
	})
	if err == nil {
		t.Fatal("expected configuration error for nil flow")
	}
	var tgErr *tripgraph.TripGraphError
	if !errors.As(err, &tgErr) {
		t.Fatalf("expected TripGraphError, got %T", err)
	}
	if tgErr.Code != tripgraph.ErrCodeConfiguration {
		t.Errorf("expected code %s, got %s", tripgraph.ErrCodeConfiguration, tgErr.Code)
	}
}
