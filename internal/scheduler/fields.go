// Package scheduler implements the dependency-graph fact scheduler: the
// engine that walks a fetch plan one dispatch at a time, absorbs worker
// results, resynchronizes slots against the fact store, and fails safe on
// deadlock or repeated errors.
package scheduler

import (
	"strings"

	"github.com/fairwaylabs/tripgraph"
)

// Fact-store keys written by the fetch workers. One key per data domain.
const (
	KeyLodgingBookings = "lodging_bookings" // RecordList
	KeyCourseBookings  = "course_bookings"  // RecordList
	KeyTransport       = "transport"        // RecordList
	KeyEvents          = "events"           // RecordList
	KeyTraveler        = "traveler"         // Record
	KeyWeatherReport   = "weather_report"   // Record
	KeySearchFindings  = "search_findings"  // ScalarList
)

// binding maps one canonical target field to its fact-store key and the
// extractor that pulls the field's value out of that entry.
type binding struct {
	storeKey string
	extract  func(v tripgraph.Value) (tripgraph.Value, bool)
}

// firstRecordField extracts a named field (with naming variants) from the
// first record of a record list.
func firstRecordField(keys ...string) func(tripgraph.Value) (tripgraph.Value, bool) {
	return func(v tripgraph.Value) (tripgraph.Value, bool) {
		list, ok := v.(tripgraph.RecordList)
		if !ok || len(list) == 0 {
			return nil, false
		}
		return list[0].Field(keys...)
	}
}

// recordField extracts a named field from a single record.
func recordField(keys ...string) func(tripgraph.Value) (tripgraph.Value, bool) {
	return func(v tripgraph.Value) (tripgraph.Value, bool) {
		rec, ok := v.(tripgraph.Record)
		if !ok {
			return nil, false
		}
		return rec.Field(keys...)
	}
}

// anyEventLocation scans itinerary events for the first usable location.
func anyEventLocation(v tripgraph.Value) (tripgraph.Value, bool) {
	list, ok := v.(tripgraph.RecordList)
	if !ok {
		return nil, false
	}
	for _, event := range list {
		if loc, ok := event.Field("location", "destination"); ok {
			return loc, true
		}
	}
	return nil, false
}

// wholeValue returns the entry as-is when it is non-empty.
func wholeValue(v tripgraph.Value) (tripgraph.Value, bool) {
	if v == nil || v.String() == "" {
		return nil, false
	}
	return v, true
}

// weatherSummary prefers a report's summary line over the raw record.
func weatherSummary(v tripgraph.Value) (tripgraph.Value, bool) {
	if rec, ok := v.(tripgraph.Record); ok {
		if s, ok := rec.Field("summary", "description", "conditions"); ok {
			return s, true
		}
	}
	return wholeValue(v)
}

// fieldBindings is the canonical field -> fact-store binding table. This is
// static configuration, not an algorithm: slots name logical fields, workers
// write domain keys, and this table joins the two.
var fieldBindings = map[string]binding{
	// lodging
	"lodging_name":    {KeyLodgingBookings, firstRecordField("name", "lodging_name", "hotel_name")},
	"lodging_address": {KeyLodgingBookings, firstRecordField("address", "lodging_address")},
	"check_in":        {KeyLodgingBookings, firstRecordField("check_in")},
	"check_out":       {KeyLodgingBookings, firstRecordField("check_out")},
	"room_type":       {KeyLodgingBookings, firstRecordField("room_type", "room")},

	// course bookings
	"course_name": {KeyCourseBookings, firstRecordField("course_name", "name")},
	"tee_time":    {KeyCourseBookings, firstRecordField("tee_time", "time")},
	"players":     {KeyCourseBookings, firstRecordField("players")},

	// ground transport
	"departure_time": {KeyTransport, firstRecordField("departure_time", "time")},
	"destination":    {KeyTransport, firstRecordField("destination", "to")},
	"vehicle_type":   {KeyTransport, firstRecordField("vehicle_type", "vehicle")},

	// itinerary
	"location":   {KeyEvents, anyEventLocation},
	"event_date": {KeyEvents, firstRecordField("event_date", "date")},

	// traveler profile
	"traveler_name": {KeyTraveler, recordField("name", "traveler_name")},
	"handicap":      {KeyTraveler, recordField("handicap")},

	// weather
	"weather_forecast": {KeyWeatherReport, weatherSummary},

	// open-web search
	"reviews": {KeySearchFindings, wholeValue},
	"ratings": {KeySearchFindings, wholeValue},
	"tips":    {KeySearchFindings, wholeValue},
}

// NormalizeField maps field-name variants emitted by the plan generator to
// the canonical names in the binding table ("hotel name", "lodging_name_en",
// "courseNm" and friends). The heuristics live here, in one testable place,
// rather than scattered through the scheduler as inline string checks.
// Returns "" when the name cannot be recognized.
func NormalizeField(field string) string {
	f := strings.ToLower(strings.TrimSpace(field))
	if f == "" {
		return ""
	}
	if _, ok := fieldBindings[f]; ok {
		return f
	}

	has := func(subs ...string) bool {
		for _, sub := range subs {
			if strings.Contains(f, sub) {
				return true
			}
		}
		return false
	}

	switch {
	case has("lodging", "hotel", "inn", "accommodation") && has("name"):
		return "lodging_name"
	case has("lodging", "hotel") && has("address"):
		return "lodging_address"
	case has("check") && has("in"):
		return "check_in"
	case has("check") && has("out"):
		return "check_out"
	case has("room"):
		return "room_type"
	case has("course", "golf") && has("name"):
		return "course_name"
	case has("tee"):
		return "tee_time"
	case has("player"):
		return "players"
	case has("departure"):
		return "departure_time"
	case has("destination"):
		return "destination"
	case has("vehicle", "car type"):
		return "vehicle_type"
	case has("weather", "forecast"):
		return "weather_forecast"
	case has("location", "where"):
		return "location"
	case has("event") && has("date"):
		return "event_date"
	case has("traveler", "customer", "guest") && has("name"):
		return "traveler_name"
	case has("handicap"):
		return "handicap"
	case has("review", "reputation"):
		return "reviews"
	case has("rating"):
		return "ratings"
	case has("tip", "guide", "advice"):
		return "tips"
	}
	return ""
}

// lookupBinding resolves a slot's target field to a binding, trying the
// exact name first and the normalized name second.
func lookupBinding(field string) (binding, bool) {
	if b, ok := fieldBindings[field]; ok {
		return b, true
	}
	if canon := NormalizeField(field); canon != "" {
		if b, ok := fieldBindings[canon]; ok {
			return b, true
		}
	}
	return binding{}, false
}

// ExtractField pulls the value for a target field out of the fact store,
// if present. This powers both the resync step (skip slots whose facts are
// already known) and worker-result absorption.
func ExtractField(facts *tripgraph.FactStore, field string) (tripgraph.Value, bool) {
	b, ok := lookupBinding(field)
	if !ok {
		return nil, false
	}
	entry, ok := facts.Get(b.storeKey)
	if !ok || entry == nil {
		return nil, false
	}
	v, ok := b.extract(entry)
	if !ok || v == nil || v.String() == "" {
		return nil, false
	}
	return v, true
}
