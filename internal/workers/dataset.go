package workers

import "github.com/fairwaylabs/tripgraph"

// Dataset is the backing trip data the structured workers serve from. In
// production this would sit behind a bookings API; the simulated workers read
// it directly so the whole pipeline runs without external services.
type Dataset struct {
	LodgingBookings tripgraph.RecordList
	CourseBookings  tripgraph.RecordList
	Transport       tripgraph.RecordList
	Events          tripgraph.RecordList
	Traveler        tripgraph.Record
}

// SampleDataset returns the demo trip: a golf weekend at Seaside Inn.
func SampleDataset() *Dataset {
	return &Dataset{
		LodgingBookings: tripgraph.RecordList{
			{
				"id":        tripgraph.Scalar("lodging-001"),
				"name":      tripgraph.Scalar("Seaside Inn"),
				"address":   tripgraph.Scalar("18 Shoreline Drive, Harbor Point"),
				"check_in":  tripgraph.Scalar("2026-09-11"),
				"check_out": tripgraph.Scalar("2026-09-13"),
				"room_type": tripgraph.Scalar("ocean-view double"),
			},
		},
		CourseBookings: tripgraph.RecordList{
			{
				"id":          tripgraph.Scalar("course-001"),
				"course_name": tripgraph.Scalar("Dunes Links"),
				"tee_time":    tripgraph.Scalar("8:40 AM"),
				"players":     tripgraph.Scalar("3"),
			},
		},
		Transport: tripgraph.RecordList{
			{
				"id":             tripgraph.Scalar("transport-001"),
				"departure_time": tripgraph.Scalar("7:30 AM"),
				"destination":    tripgraph.Scalar("Dunes Links"),
				"vehicle_type":   tripgraph.Scalar("minivan"),
			},
		},
		Events: tripgraph.RecordList{
			{
				"id":         tripgraph.Scalar("event-001"),
				"location":   tripgraph.Scalar("Harbor Point"),
				"event_date": tripgraph.Scalar("2026-09-12"),
			},
		},
		Traveler: tripgraph.Record{
			"name":     tripgraph.Scalar("Jordan Lee"),
			"handicap": tripgraph.Scalar("12"),
		},
	}
}
