package model

import (
	"fmt"
	"time"
)

// TimeWindow is the span of periods a decision model is built against.
// All window arithmetic is pure: Advance returns a new window and never
// mutates the receiver.
type TimeWindow struct {
	Start      time.Time     `json:"start"`
	Periods    int           `json:"periods"`
	Resolution time.Duration `json:"resolution"`
}

// NewTimeWindow returns a window of n periods at the given resolution.
func NewTimeWindow(start time.Time, periods int, resolution time.Duration) TimeWindow {
	return TimeWindow{Start: start, Periods: periods, Resolution: resolution}
}

// End returns the instant just after the last period.
func (w TimeWindow) End() time.Time {
	return w.Start.Add(time.Duration(w.Periods) * w.Resolution)
}

// Duration returns the total span covered by the window.
func (w TimeWindow) Duration() time.Duration {
	return time.Duration(w.Periods) * w.Resolution
}

// Times returns the start instant of every period in the window.
func (w TimeWindow) Times() []time.Time {
	ts := make([]time.Time, w.Periods)
	for i := 0; i < w.Periods; i++ {
		ts[i] = w.Start.Add(time.Duration(i) * w.Resolution)
	}
	return ts
}

// PeriodStart returns the start instant of period i.
func (w TimeWindow) PeriodStart(i int) time.Time {
	return w.Start.Add(time.Duration(i) * w.Resolution)
}

// Advance shifts the window forward by the given number of periods.
func (w TimeWindow) Advance(periods int) TimeWindow {
	w.Start = w.Start.Add(time.Duration(periods) * w.Resolution)
	return w
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End())
}

// Overlaps reports whether the two windows share at least one instant.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.Start.Before(other.End()) && other.Start.Before(w.End())
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("%s +%d@%s", w.Start.Format(time.RFC3339), w.Periods, w.Resolution)
}

// Horizon describes a stage's rolling-horizon geometry: the number of
// periods solved each step and the number of periods the window moves
// between steps. Advance may be shorter than Periods, producing
// look-ahead overlap between consecutive solves.
type Horizon struct {
	Periods    int           `json:"periods"`
	Advance    int           `json:"advance"`
	Resolution time.Duration `json:"resolution"`
}

// Validate checks the horizon geometry.
func (h Horizon) Validate() error {
	if h.Periods <= 0 {
		return fmt.Errorf("horizon periods must be positive, got %d", h.Periods)
	}
	if h.Advance <= 0 || h.Advance > h.Periods {
		return fmt.Errorf("advance must be in [1, %d], got %d", h.Periods, h.Advance)
	}
	if h.Resolution <= 0 {
		return fmt.Errorf("resolution must be positive, got %s", h.Resolution)
	}
	return nil
}

// Window returns the time window for the given simulation step,
// anchored at start.
func (h Horizon) Window(start time.Time, step int) TimeWindow {
	w := NewTimeWindow(start, h.Periods, h.Resolution)
	return w.Advance(step * h.Advance)
}

// LookAhead returns the number of trailing periods discarded from
// realized results.
func (h Horizon) LookAhead() int { return h.Periods - h.Advance }
