package mapper

import (
	"microtrader/internal/microerr"
	"microtrader/internal/params"
	"microtrader/internal/stream"
)

// resolveAlpha reads an explicit "alpha" (0..1) or derives one from "rc"
// (time-constant in samples, default 10) as alpha = 1/(rc+1) — the same two
// equivalent ways of tuning an exponential filter that the indicator
// operators expose to callers.
func resolveAlpha(p map[string]any) (float64, error) {
	if _, ok := p["alpha"]; ok {
		alpha, err := params.Float64(p, "alpha", 0)
		if err != nil {
			return 0, err
		}
		if alpha < 0 || alpha > 1 {
			return 0, microerr.Paramf("mapper", "alpha must be within [0, 1]")
		}
		return alpha, nil
	}
	rc, err := params.Float64(p, "rc", 10.0)
	if err != nil {
		return 0, err
	}
	if rc < 0 {
		return 0, microerr.Paramf("mapper", "rc must be non-negative")
	}
	return 1.0 / (rc + 1.0), nil
}

// LoPassFactory builds a single-pole exponential low-pass filter:
// y[i] = y[i-1] + alpha*(x[i]-y[i-1]), y[0] = x[0]. It does not support
// retroaction: y accumulates the entire history, so rewinding the read
// cursor alone can't undo it.
func LoPassFactory(source *stream.Stream[float64], p map[string]any) (*Mapper[float64, float64], error) {
	alpha, err := resolveAlpha(p)
	if err != nil {
		return nil, err
	}
	var y *float64
	return NewSimpleMapper(source, func(x *float64) *float64 {
		switch {
		case x == nil:
			y = nil
		case y == nil:
			v := *x
			y = &v
		default:
			v := *y + alpha*(*x-*y)
			y = &v
		}
		return y
	}, false), nil
}

// DeltaLoPassFactory low-pass filters the successive differences of the
// source rather than the source itself.
func DeltaLoPassFactory(source *stream.Stream[float64], p map[string]any) (*Mapper[float64, float64], error) {
	alpha, err := resolveAlpha(p)
	if err != nil {
		return nil, err
	}
	var y *float64
	return NewPrevAwareMapper(source, func(x, prev *float64) *float64 {
		if x == nil || prev == nil {
			y = nil
			return y
		}
		d := *x - *prev
		switch {
		case y == nil:
			v := d
			y = &v
		default:
			v := *y + alpha*(d-*y)
			y = &v
		}
		return y
	}, false), nil
}

// HiPassFactory is the complement of LoPassFactory: x[i] - loPass(x)[i].
func HiPassFactory(source *stream.Stream[float64], p map[string]any) (*Mapper[float64, float64], error) {
	alpha, err := resolveAlpha(p)
	if err != nil {
		return nil, err
	}
	var y *float64
	return NewSimpleMapper(source, func(x *float64) *float64 {
		if x == nil {
			y = nil
			return nil
		}
		switch {
		case y == nil:
			v := *x
			y = &v
		default:
			v := *y + alpha*(*x-*y)
			y = &v
		}
		return stream.Ptr(*x - *y)
	}, false), nil
}
