package feedforward

import "github.com/voltmesh/prodsim/core/model"

// sourceIndex maps an instant onto a source period index, clamped to
// the series bounds so targets extending past the source hold the
// last known value.
func sourceIndex(at model.TimeWindow, i int, from model.TimeWindow, n int) int {
	offset := at.PeriodStart(i).Sub(from.Start)
	idx := int(offset / from.Resolution)
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

// resampleHold assigns each target period the source value covering
// its start instant.
func resampleHold(src []float64, from, to model.TimeWindow) []float64 {
	out := make([]float64, to.Periods)
	if len(src) == 0 {
		return out
	}
	for i := range out {
		out[i] = src[sourceIndex(to, i, from, len(src))]
	}
	return out
}

// resampleAverage assigns each target period the mean of the source
// periods it overlaps.
func resampleAverage(src []float64, from, to model.TimeWindow) []float64 {
	out := make([]float64, to.Periods)
	if len(src) == 0 {
		return out
	}
	for i := range out {
		first := sourceIndex(to, i, from, len(src))
		lastInstant := to.PeriodStart(i).Add(to.Resolution - 1)
		last := int(lastInstant.Sub(from.Start) / from.Resolution)
		if last >= len(src) {
			last = len(src) - 1
		}
		if last < first {
			last = first
		}
		sum := 0.0
		for j := first; j <= last; j++ {
			sum += src[j]
		}
		out[i] = sum / float64(last-first+1)
	}
	return out
}
