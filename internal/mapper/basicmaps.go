package mapper

import (
	"time"

	"microtrader/internal/stream"
)

// DeltaFactory yields x[i] - x[i-1], none for the first element and for any
// element adjacent to a none.
func DeltaFactory(source *stream.Stream[float64], _ map[string]any) (*Mapper[float64, float64], error) {
	return NewPrevAwareMapper(source, func(x, prev *float64) *float64 {
		if x == nil || prev == nil {
			return nil
		}
		return stream.Ptr(*x - *prev)
	}, true), nil
}

// DayBoundFactory yields true at the first timestamp of a calendar day
// different from the one before it, false otherwise (and for the first
// element).
func DayBoundFactory(source *stream.Stream[time.Time], _ map[string]any) (*Mapper[time.Time, bool], error) {
	return NewPrevAwareMapper(source, func(t, prev *time.Time) *bool {
		if t == nil || prev == nil {
			return stream.Ptr(false)
		}
		y1, m1, d1 := t.Date()
		y2, m2, d2 := prev.Date()
		return stream.Ptr(y1 != y2 || m1 != m2 || d1 != d2)
	}, true), nil
}
