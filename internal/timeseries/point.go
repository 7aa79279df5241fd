package timeseries

import (
	"encoding/json"
	"time"
)

// Point is one aggregated reading, shaped for chart front ends.
type Point struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Time parses Date back into a time.Time.
func (p Point) Time() (time.Time, error) {
	return time.Parse(DateLayout, p.Date)
}

// Messages printed at the boundary for the two failure tiers.
const (
	NotFoundMessage   = "File not found"
	processingMessage = "processing failed: "
)

// Result is the outcome of one aggregation: either points or an error.
type Result struct {
	Points []Point
	Err    error
}

// NewResult pairs points and error from an Aggregate call.
func NewResult(points []Point, err error) Result {
	if err != nil {
		return Result{Err: err}
	}
	return Result{Points: points}
}

// OK reports whether the aggregation succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Tier returns the failure tier, or zero on success.
func (r Result) Tier() Tier {
	if r.Err == nil {
		return 0
	}
	if IsNotFound(r.Err) {
		return TierNotFound
	}
	return TierProcessing
}

// String renders the points as a JSON array, or the failure message.
func (r Result) String() string {
	switch r.Tier() {
	case TierNotFound:
		return NotFoundMessage
	case TierProcessing:
		return processingMessage + r.Err.Error()
	}
	points := r.Points
	if points == nil {
		points = []Point{}
	}
	b, err := json.Marshal(points)
	if err != nil {
		return processingMessage + err.Error()
	}
	return string(b)
}
