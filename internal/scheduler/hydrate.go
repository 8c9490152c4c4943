package scheduler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fairwaylabs/tripgraph"
)

// invalidTokens are scalar values that look like data but carry none. A
// dependency that settled with one of these must not be forwarded into a
// downstream instruction; the downstream call would be wasted.
var invalidTokens = map[string]struct{}{
	"":            {},
	"none":        {},
	"null":        {},
	"nil":         {},
	"unknown":     {},
	"n/a":         {},
	"na":          {},
	"tbd":         {},
	"pending":     {},
	"unavailable": {},
	"not found":   {},
}

func usableToken(s string) bool {
	_, bad := invalidTokens[strings.ToLower(strings.TrimSpace(s))]
	return !bad && strings.TrimSpace(s) != ""
}

// hydrationAbort reports a slot that must be failed without dispatching:
// one of its settled dependencies carries no usable data.
type hydrationAbort struct {
	depID   string
	field   string
	problem string
}

func (a *hydrationAbort) diagnostic() string {
	return fmt.Sprintf("aborted before dispatch: dependency %q (field %q) %s", a.depID, a.field, a.problem)
}

// hydrate builds the final worker instruction for an eligible slot. All of
// the slot's dependencies are FILLED by the time this runs; hydration stitches
// their values into the instruction and refuses to proceed when any of them
// turned out to be unusable.
func hydrate(slot *tripgraph.Slot, plan *tripgraph.FetchPlan) (string, *hydrationAbort) {
	deps := make(map[string]tripgraph.Value, len(slot.Dependencies))
	depOrder := make([]string, 0, len(slot.Dependencies))
	for _, depID := range slot.Dependencies {
		dep, ok := plan.Get(depID)
		if !ok {
			return "", &hydrationAbort{depID: depID, field: "?", problem: "is not in the plan"}
		}
		if dep.Unusable() {
			return "", &hydrationAbort{depID: depID, field: dep.TargetField, problem: "settled without usable data"}
		}
		v := dep.Value()
		if v == nil || !usableToken(v.String()) {
			return "", &hydrationAbort{depID: depID, field: dep.TargetField, problem: "carries an empty or placeholder value"}
		}
		deps[dep.TargetField] = v
		depOrder = append(depOrder, dep.TargetField)
	}

	instruction, err := interpolate(slot.Description, deps)
	if err != nil {
		return "", &hydrationAbort{depID: slot.ID, field: slot.TargetField, problem: err.Error()}
	}
	if instruction == slot.Description {
		// No placeholders: shape the instruction per worker instead.
		instruction = shapeInstruction(slot, deps, depOrder)
	}
	return instruction, nil
}

// shapeInstruction renders a worker-appropriate instruction when the slot
// description contains no explicit placeholders. Open-web search and weather
// instructions are rebuilt around the dependency values, because those
// workers take the instruction verbatim as a query; the structured workers
// get the description plus a context suffix.
func shapeInstruction(slot *tripgraph.Slot, deps map[string]tripgraph.Value, depOrder []string) string {
	switch slot.Owner {
	case "web_search":
		if subject, ok := searchSubject(deps, depOrder); ok {
			switch NormalizeField(slot.TargetField) {
			case "reviews":
				return fmt.Sprintf("reviews and reputation for %q", subject)
			case "ratings":
				return fmt.Sprintf("ratings for %q", subject)
			case "tips":
				return fmt.Sprintf("visitor tips for %q", subject)
			}
			return fmt.Sprintf("%s %q", slot.Description, subject)
		}
	case "weather":
		if place, ok := depLookup(deps, "location"); ok {
			return fmt.Sprintf("weather forecast for %s", place.String())
		}
		if place, ok := depLookup(deps, "destination"); ok {
			return fmt.Sprintf("weather forecast for %s", place.String())
		}
	}
	if len(deps) == 0 {
		return slot.Description
	}
	return slot.Description + depContext(deps)
}

// searchSubject picks the entity a web search should be about, preferring
// the most specific name available. The fallback walks dependencies in plan
// order, never map order: identical snapshots must hydrate identically.
func searchSubject(deps map[string]tripgraph.Value, depOrder []string) (string, bool) {
	for _, field := range []string{"lodging_name", "course_name", "destination", "location"} {
		if v, ok := depLookup(deps, field); ok && usableToken(v.String()) {
			return v.String(), true
		}
	}
	for _, field := range depOrder {
		if v, ok := deps[field]; ok && usableToken(v.String()) {
			return v.String(), true
		}
	}
	return "", false
}

// depContext renders dependency values as a deterministic context suffix.
func depContext(deps map[string]tripgraph.Value) string {
	fields := make([]string, 0, len(deps))
	for field := range deps {
		fields = append(fields, field)
	}
	// Stable order keeps hydrated instructions reproducible across runs.
	sort.Strings(fields)
	var b strings.Builder
	b.WriteString(" (context:")
	for _, field := range fields {
		fmt.Fprintf(&b, " %s=%q", field, deps[field].String())
	}
	b.WriteString(")")
	return b.String()
}
