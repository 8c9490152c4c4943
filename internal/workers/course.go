package workers

import (
	"context"
	"log"

	"github.com/fairwaylabs/tripgraph"
	"github.com/fairwaylabs/tripgraph/internal/scheduler"
)

// CourseWorker serves golf course booking data.
type CourseWorker struct {
	data *Dataset
}

func NewCourseWorker(data *Dataset) *CourseWorker {
	return &CourseWorker{data: data}
}

func (w *CourseWorker) Name() string { return "course" }

func (w *CourseWorker) Schema() map[string]interface{} {
	return map[string]interface{}{
		"description":     "Fetches the traveler's golf course bookings: course name, tee time, player count.",
		"fields":          []string{"course_name", "tee_time", "players"},
		"external_fields": []string{"reviews", "ratings", "weather_forecast"},
	}
}

var courseBoundary = []boundaryRule{
	{"review", "web_search"},
	{"rating", "web_search"},
	{"caddie tips", "web_search"},
	{"weather", "weather"},
	{"forecast", "weather"},
}

func (w *CourseWorker) Fetch(ctx context.Context, req tripgraph.WorkerRequest, facts *tripgraph.FactStore) (*tripgraph.WorkerResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if res, out := checkBoundary(req.Instruction, courseBoundary); out {
		log.Printf("worker course: refusing slot %s: %s", req.SlotID, res.Diagnostic)
		return res, nil
	}
	if len(w.data.CourseBookings) == 0 {
		return failureResult("no course bookings on file for this trip"), nil
	}
	facts.Put(scheduler.KeyCourseBookings, w.data.CourseBookings)
	log.Printf("worker course: slot %s served %d booking(s)", req.SlotID, len(w.data.CourseBookings))
	return successResult(), nil
}
