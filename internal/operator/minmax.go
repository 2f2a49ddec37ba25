package operator

import (
	"microtrader/internal/microerr"
	"microtrader/internal/params"
	"microtrader/internal/stream"
)

// PeakType distinguishes a minimum from a maximum peak.
type PeakType int

const (
	PeakMin PeakType = -1
	PeakMax PeakType = 1
)

// NewMinMaxOperator tracks, for each sample i, the min and max of the
// window i-lag..i (the current sample plus the lag before it) using a pair
// of monotone deques so each element is pushed
// and popped at most once regardless of the window size. Does not support
// retroaction: an edit reaching into data already folded into the deques
// would require replaying the whole window from scratch.
func NewMinMaxOperator(p map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
	lag, err := params.Int(p, "lag", 10)
	if err != nil {
		return nil, microerr.Param("MinMaxOperator", err)
	}
	if lag < 0 {
		return nil, microerr.Paramf("MinMaxOperator", "invalid lag value (%d)", lag)
	}
	src, err := stream.Require[float64](streams, "source")
	if err != nil {
		return nil, microerr.Config("MinMaxOperator", err)
	}
	min, err := stream.Require[float64](streams, "min")
	if err != nil {
		return nil, microerr.Config("MinMaxOperator", err)
	}
	max, err := stream.Require[float64](streams, "max")
	if err != nil {
		return nil, microerr.Config("MinMaxOperator", err)
	}
	return &minMaxOperator{lag: lag, source: src, min: min, max: max}, nil
}

type minMaxOperator struct {
	lag        int
	source     *stream.Stream[float64]
	min, max   *stream.Stream[float64]
	minDeque   []int
	maxDeque   []int
}

func (o *minMaxOperator) Calc() error {
	for i, x := range o.source.Indexed() {
		if x != nil {
			for len(o.minDeque) > 0 && *o.source.Get(o.minDeque[len(o.minDeque)-1]) >= *x {
				o.minDeque = o.minDeque[:len(o.minDeque)-1]
			}
			o.minDeque = append(o.minDeque, i)

			for len(o.maxDeque) > 0 && *o.source.Get(o.maxDeque[len(o.maxDeque)-1]) <= *x {
				o.maxDeque = o.maxDeque[:len(o.maxDeque)-1]
			}
			o.maxDeque = append(o.maxDeque, i)
		}

		j := i - o.lag
		if j < 0 {
			j = 0
		}
		for len(o.minDeque) > 0 && o.minDeque[0] < j {
			o.minDeque = o.minDeque[1:]
		}
		for len(o.maxDeque) > 0 && o.maxDeque[0] < j {
			o.maxDeque = o.maxDeque[1:]
		}

		if len(o.minDeque) == 0 {
			o.min.Append(nil)
		} else {
			o.min.Append(o.source.Get(o.minDeque[0]))
		}
		if len(o.maxDeque) == 0 {
			o.max.Append(nil)
		} else {
			o.max.Append(o.source.Get(o.maxDeque[0]))
		}
	}
	return nil
}

// NewFractalExOperator detects local minima/maxima by watching successive
// runs of same-signed deltas at least halfWidth long, then keeps only
// extrema that beat the concurrent MinMaxOperator window and supersedes
// (rather than appends alongside) a too-recent prior extreme of the same
// kind, recording the superseded index on the discarded streams. Like
// MinMaxOperator, it does not support retroaction.
func NewFractalExOperator(p map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
	width, err := params.Int(p, "width", 5)
	if err != nil {
		return nil, microerr.Param("FractalExOperator", err)
	}
	halfWidth := (width - 1) / 2
	if halfWidth < 1 {
		return nil, microerr.Paramf("FractalExOperator", "invalid width value (%d)", width)
	}
	threshold, err := params.Float64(p, "threshold", 0.0)
	if err != nil {
		return nil, microerr.Param("FractalExOperator", err)
	}
	if threshold < 0.0 {
		return nil, microerr.Paramf("FractalExOperator", "invalid threshold value (%v)", threshold)
	}
	minMaxLag, err := params.Int(p, "minMaxLag", 10)
	if err != nil {
		return nil, microerr.Param("FractalExOperator", err)
	}
	if minMaxLag < 0 {
		return nil, microerr.Paramf("FractalExOperator", "invalid minMaxLag value (%d)", minMaxLag)
	}

	src, err := stream.Require[float64](streams, "source")
	if err != nil {
		return nil, microerr.Config("FractalExOperator", err)
	}
	minIndexes, err := stream.Require[int](streams, "minIndexes")
	if err != nil {
		return nil, microerr.Config("FractalExOperator", err)
	}
	maxIndexes, err := stream.Require[int](streams, "maxIndexes")
	if err != nil {
		return nil, microerr.Config("FractalExOperator", err)
	}
	discardedMin := stream.Optional[int](streams, "discardedMinIndexes")
	discardedMax := stream.Optional[int](streams, "discardedMaxIndexes")

	min := stream.New[float64]()
	max := stream.New[float64]()
	minMaxOp, err := NewMinMaxOperator(map[string]any{"lag": minMaxLag}, map[string]stream.AnyStream{
		"source": src,
		"min":    min,
		"max":    max,
	})
	if err != nil {
		return nil, err
	}

	return &fractalExOperator{
		halfWidth:    halfWidth,
		threshold:    threshold,
		minMaxLag:    minMaxLag,
		source:       src,
		minIndexes:   minIndexes,
		maxIndexes:   maxIndexes,
		discardedMin: discardedMin,
		discardedMax: discardedMax,
		min:          min,
		max:          max,
		minMaxOp:     minMaxOp,
	}, nil
}

type fractalExOperator struct {
	halfWidth, minMaxLag int
	threshold            float64

	source       *stream.Stream[float64]
	minIndexes   *stream.Stream[int]
	maxIndexes   *stream.Stream[int]
	discardedMin *stream.Stream[int]
	discardedMax *stream.Stream[int]
	min, max     *stream.Stream[float64]
	minMaxOp     Operator

	prev      *float64
	sign      *int
	signCount int
	trend     *int
	prevTrend *int
}

func (o *fractalExOperator) Calc() error {
	if err := o.minMaxOp.Calc(); err != nil {
		return err
	}

	for i, x := range o.source.Indexed() {
		if x == nil || o.prev == nil {
			o.sign = nil
			o.trend = nil
			o.prevTrend = nil
		} else {
			dx := *x - *o.prev
			var sign int
			switch {
			case dx > 0:
				sign = 1
			case dx < 0:
				sign = -1
			default:
				sign = 0
			}

			if o.sign != nil && *o.sign == sign {
				o.signCount++
			} else {
				o.sign = stream.Ptr(sign)
				o.signCount = 1
				o.prevTrend = o.trend
				o.trend = nil
			}

			if (o.trend == nil || *o.trend != sign) && o.signCount >= o.halfWidth {
				iStart := i - o.signCount
				xStart := *o.source.Get(iStart)

				if abs(*x-xStart) >= o.threshold {
					if o.prevTrend != nil {
						j := i - o.minMaxLag
						if j < 0 {
							j = 0
						}
						switch sign {
						case 1:
							if xStart <= *o.min.Get(iStart) {
								o.replaceOrAppend(o.minIndexes, o.discardedMin, iStart, j)
							}
						case -1:
							if xStart >= *o.max.Get(iStart) {
								o.replaceOrAppend(o.maxIndexes, o.discardedMax, iStart, j)
							}
						}
					}
					o.trend = stream.Ptr(sign)
				}
			}
		}

		o.prev = x
	}
	return nil
}

func (o *fractalExOperator) replaceOrAppend(indexes, discarded *stream.Stream[int], iStart, j int) {
	if indexes.Len() > 0 && *indexes.Get(-1) >= j {
		discarded.Append(indexes.Get(-1))
		indexes.Set(-1, stream.Ptr(iStart))
	} else {
		indexes.Append(stream.Ptr(iStart))
	}
}

// NewChannelBurstOperator flags a channel breakout (price crossing the
// upper or lower ChannelOperator bound) and tracks the most extreme sample
// reached during the breakout, emitting its index once price flips back
// inside the channel.
func NewChannelBurstOperator(p map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
	src, err := stream.Require[float64](streams, "source")
	if err != nil {
		return nil, microerr.Config("ChannelBurstOperator", err)
	}
	minIndexes, err := stream.Require[int](streams, "minIndexes")
	if err != nil {
		return nil, microerr.Config("ChannelBurstOperator", err)
	}
	maxIndexes, err := stream.Require[int](streams, "maxIndexes")
	if err != nil {
		return nil, microerr.Config("ChannelBurstOperator", err)
	}
	upper := stream.Optional[float64](streams, "upper")
	lower := stream.Optional[float64](streams, "lower")
	mid := stream.Optional[float64](streams, "mid")

	channelOp, err := NewChannelOperator(params.Map(p, map[string]string{
		"midLag":   "midLag",
		"boundLag": "boundLag",
		"isSymm":   "isSymm",
		"boost":    "boost",
	}), map[string]stream.AnyStream{
		"source": src,
		"upper":  upper,
		"lower":  lower,
		"mid":    mid,
	})
	if err != nil {
		return nil, err
	}

	return &channelBurstOperator{
		channelOp:  channelOp,
		source:     src,
		upper:      upper,
		lower:      lower,
		minIndexes: minIndexes,
		maxIndexes: maxIndexes,
	}, nil
}

type channelBurstOperator struct {
	channelOp            Operator
	source               *stream.Stream[float64]
	upper, lower         *stream.Stream[float64]
	minIndexes           *stream.Stream[int]
	maxIndexes           *stream.Stream[int]

	flip       *bool
	iPeak      *int
	xPeak      *float64
}

func (o *channelBurstOperator) Calc() error {
	if err := o.channelOp.Calc(); err != nil {
		return err
	}

	for i, x := range o.source.Indexed() {
		upper, _ := o.upper.GetNext()
		lower, _ := o.lower.GetNext()

		var flip *bool
		if x != nil {
			if upper != nil && *x > *upper {
				flip = stream.Ptr(true)
			} else if lower != nil && *x < *lower {
				flip = stream.Ptr(false)
			}
		}

		if !flipEqual(flip, o.flip) {
			if o.iPeak != nil {
				if o.flip != nil && !*o.flip {
					o.minIndexes.Append(o.iPeak)
				} else if o.flip != nil && *o.flip {
					o.maxIndexes.Append(o.iPeak)
				}
			}
			o.iPeak = nil
			o.xPeak = nil
			o.flip = flip
		}

		if x != nil && (o.xPeak == nil ||
			(o.flip != nil && *o.flip && *x > *o.xPeak) ||
			(o.flip != nil && !*o.flip && *x < *o.xPeak)) {
			o.iPeak = stream.Ptr(i)
			o.xPeak = x
		}
	}
	return nil
}

func flipEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
