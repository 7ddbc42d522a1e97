package store

import (
	"math"
	"time"
)

// Extremum tracks a running minimum or maximum together with the
// instant it occurred. Updates are strict, so ties keep the earliest
// occurrence regardless of observation order.
type Extremum struct {
	Value float64
	At    time.Time
}

// SeriesStats holds the running extrema of one measured series.
type SeriesStats struct {
	Min Extremum
	Max Extremum
}

func newSeriesStats() SeriesStats {
	return SeriesStats{
		Min: Extremum{Value: math.Inf(1)},
		Max: Extremum{Value: math.Inf(-1)},
	}
}

// Observe folds a single value into the statistics. NaN values never
// win a strict comparison, so gap markers are excluded naturally.
func (s *SeriesStats) Observe(ts time.Time, value float64) {
	if value < s.Min.Value {
		s.Min = Extremum{Value: value, At: ts}
	}
	if value > s.Max.Value {
		s.Max = Extremum{Value: value, At: ts}
	}
}

// Merge folds another series' extrema into this one. Merging is
// equivalent to observing all underlying values through a single
// tracker, independent of merge order: each side carries the earliest
// timestamp for its extremum, and on equal values the earlier
// timestamp wins. An empty side contributes nothing.
func (s *SeriesStats) Merge(other SeriesStats) {
	if !other.Valid() {
		return
	}

	if other.Min.Value < s.Min.Value ||
		(other.Min.Value == s.Min.Value && other.Min.At.Before(s.Min.At)) {
		s.Min = other.Min
	}
	if other.Max.Value > s.Max.Value ||
		(other.Max.Value == s.Max.Value && other.Max.At.Before(s.Max.At)) {
		s.Max = other.Max
	}
}

// Valid reports whether any value has been observed.
func (s SeriesStats) Valid() bool {
	return !math.IsInf(s.Min.Value, 1)
}

// Statistics holds the running extrema of both measured series.
type Statistics struct {
	Temperature SeriesStats
	Humidity    SeriesStats
}

func newStatistics() Statistics {
	return Statistics{
		Temperature: newSeriesStats(),
		Humidity:    newSeriesStats(),
	}
}

// Observe folds one sample's values into the statistics.
func (s *Statistics) Observe(ts time.Time, temperature, humidity float64) {
	s.Temperature.Observe(ts, temperature)
	s.Humidity.Observe(ts, humidity)
}

// Merge folds another statistics instance into this one.
func (s *Statistics) Merge(other Statistics) {
	s.Temperature.Merge(other.Temperature)
	s.Humidity.Merge(other.Humidity)
}
