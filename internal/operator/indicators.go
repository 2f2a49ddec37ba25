package operator

import (
	"microtrader/internal/mapper"
	"microtrader/internal/microerr"
	"microtrader/internal/params"
	"microtrader/internal/stream"
)

// NewSmaOperator computes a Simple Moving Average over the last lag
// samples, maintaining a running sum/count rather than re-summing the
// window on every step.
func NewSmaOperator(p map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
	lag, err := params.Int(p, "lag", 9)
	if err != nil {
		return nil, microerr.Param("SmaOperator", err)
	}
	if lag < 1 {
		return nil, microerr.Paramf("SmaOperator", "invalid lag value (%d)", lag)
	}
	src, err := stream.Require[float64](streams, "source")
	if err != nil {
		return nil, microerr.Config("SmaOperator", err)
	}
	target, err := stream.Require[float64](streams, "target")
	if err != nil {
		return nil, microerr.Config("SmaOperator", err)
	}
	return &smaOperator{lag: lag, source: src, target: target}, nil
}

type smaOperator struct {
	lag         int
	source      *stream.Stream[float64]
	target      *stream.Stream[float64]
	movingSum   float64
	movingCount int
}

func (o *smaOperator) Calc() error {
	for i, a := range o.source.Indexed() {
		if a != nil {
			o.movingSum += *a
			o.movingCount++
		}

		j := i - o.lag
		var b *float64
		if j >= 0 {
			b = o.source.Get(j)
		}
		if b != nil {
			o.movingSum -= *b
			o.movingCount--
		}

		if o.movingCount <= 0 {
			o.target.Append(nil)
		} else {
			o.target.Append(stream.Ptr(o.movingSum / float64(o.movingCount)))
		}
	}
	return nil
}

// NewEmaOperator lifts filtermaps.LoPassFactory into an Operator with
// alpha derived from lag as 2/(lag+1) — the conventional EMA smoothing
// constant.
func NewEmaOperator(p map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
	lag, err := params.Int(p, "lag", 9)
	if err != nil {
		return nil, microerr.Param("EmaOperator", err)
	}
	if lag < 1 {
		return nil, microerr.Paramf("EmaOperator", "invalid lag value (%d)", lag)
	}
	alpha := 2.0 / (float64(lag) + 1.0)
	return NewMapperOperator("EmaOperator", mapper.LoPassFactory, map[string]any{"alpha": alpha}, streams)
}

// NewKerOperator computes Kaufman's Efficiency Ratio: the net directional
// move over lag samples divided by the total path length travelled over
// the same window (its "moving volatility").
func NewKerOperator(p map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
	lag, err := params.Int(p, "lag", 10)
	if err != nil {
		return nil, microerr.Param("KerOperator", err)
	}
	if lag < 1 {
		return nil, microerr.Paramf("KerOperator", "invalid lag value (%d)", lag)
	}
	src, err := stream.Require[float64](streams, "source")
	if err != nil {
		return nil, microerr.Config("KerOperator", err)
	}
	ker, err := stream.Require[float64](streams, "ker")
	if err != nil {
		return nil, microerr.Config("KerOperator", err)
	}
	return &kerOperator{lag: lag, source: src, ker: ker}, nil
}

type kerOperator struct {
	lag             int
	source          *stream.Stream[float64]
	ker             *stream.Stream[float64]
	aPrev           *float64
	bPrev           *float64
	movingVolatility float64
}

func (o *kerOperator) Calc() error {
	for i, a := range o.source.Indexed() {
		if a != nil && o.aPrev != nil {
			o.movingVolatility += abs(*a - *o.aPrev)
		}
		o.aPrev = a

		j := i - o.lag
		var b *float64
		if j >= 0 {
			b = o.source.Get(j)
		}
		if b != nil && o.bPrev != nil {
			o.movingVolatility -= abs(*b - *o.bPrev)
		}
		o.bPrev = b

		if a == nil || b == nil {
			o.ker.Append(nil)
			continue
		}
		if o.movingVolatility == 0 {
			o.ker.Append(stream.Ptr(1.0))
			continue
		}
		o.ker.Append(stream.Ptr(abs(*a-*b) / o.movingVolatility))
	}
	return nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// NewKamaOperator computes Kaufman's Adaptive Moving Average: a variadic
// low-pass filter whose alpha is interpolated between a fast and slow
// constant according to the KER efficiency ratio.
func NewKamaOperator(p map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
	kerLag, err := params.Int(p, "kerLag", 10)
	if err != nil {
		return nil, microerr.Param("KamaOperator", err)
	}
	fastLag, err := params.Int(p, "fastLag", 2)
	if err != nil {
		return nil, microerr.Param("KamaOperator", err)
	}
	if fastLag < 1 {
		return nil, microerr.Paramf("KamaOperator", "invalid fastLag value (%d)", fastLag)
	}
	slowLag, err := params.Int(p, "slowLag", 30)
	if err != nil {
		return nil, microerr.Param("KamaOperator", err)
	}
	if slowLag < 1 {
		return nil, microerr.Paramf("KamaOperator", "invalid slowLag value (%d)", slowLag)
	}
	if fastLag > slowLag {
		return nil, microerr.Paramf("KamaOperator", "fastLag value (%d) is greater than slowLag value (%d)", fastLag, slowLag)
	}
	fastAlpha := 2.0 / (float64(fastLag) + 1.0)
	slowAlpha := 2.0 / (float64(slowLag) + 1.0)

	src, err := stream.Require[float64](streams, "source")
	if err != nil {
		return nil, microerr.Config("KamaOperator", err)
	}
	target, err := stream.Require[float64](streams, "target")
	if err != nil {
		return nil, microerr.Config("KamaOperator", err)
	}
	ker := stream.Optional[float64](streams, "ker")
	alpha := stream.New[float64]()

	kerOp, err := NewKerOperator(map[string]any{"lag": kerLag}, map[string]stream.AnyStream{
		"source": src,
		"ker":    ker,
	})
	if err != nil {
		return nil, err
	}
	finalOp, err := NewVariadicLoPassOperator(nil, map[string]stream.AnyStream{
		"alpha":  alpha,
		"source": src,
		"target": target,
	})
	if err != nil {
		return nil, err
	}

	return &kamaOperator{
		fastAlpha: fastAlpha,
		slowAlpha: slowAlpha,
		ker:       ker,
		alpha:     alpha,
		kerOp:     kerOp,
		finalOp:   finalOp,
	}, nil
}

type kamaOperator struct {
	fastAlpha, slowAlpha float64
	ker                  *stream.Stream[float64]
	alpha                *stream.Stream[float64]
	kerOp                Operator
	finalOp              Operator
}

func (o *kamaOperator) Calc() error {
	if err := o.kerOp.Calc(); err != nil {
		return err
	}
	for ker := range o.ker.All() {
		if ker == nil {
			o.alpha.Append(nil)
			continue
		}
		o.alpha.Append(stream.Ptr(o.slowAlpha + *ker*(o.fastAlpha-o.slowAlpha)))
	}
	return o.finalOp.Calc()
}

// NewRsiOperator computes the Relative Strength Index: a CompoundOperator
// splits the source delta into up/down half-waves, low-pass filters each,
// and RSI folds the resulting moving averages together.
func NewRsiOperator(p map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
	lag, err := params.Int(p, "lag", 14)
	if err != nil {
		return nil, microerr.Param("RsiOperator", err)
	}
	if lag < 1 {
		return nil, microerr.Paramf("RsiOperator", "invalid lag value (%d)", lag)
	}
	alpha := 1.0 / float64(lag)

	src, err := stream.Require[float64](streams, "source")
	if err != nil {
		return nil, microerr.Config("RsiOperator", err)
	}
	target, err := stream.Require[float64](streams, "target")
	if err != nil {
		return nil, microerr.Config("RsiOperator", err)
	}

	uMa := stream.New[float64]()
	dMa := stream.New[float64]()
	delta := stream.New[float64]()
	u := stream.New[float64]()
	d := stream.New[float64]()

	udMa, err := NewCompoundOperator([]OperatorConfig{
		{Build: mapperBuild("EmaDelta", mapper.DeltaFactory), StreamMap: map[string]string{"source": "source", "target": "delta"}},
		{Build: NewHwSplitOperator, StreamMap: map[string]string{"source": "delta", "positive": "u", "negative": "d"}},
		{Build: mapperBuild("RsiLoPassU", mapper.LoPassFactory), ParamMap: map[string]string{"alpha": "alpha"}, StreamMap: map[string]string{"source": "u", "target": "uMa"}},
		{Build: mapperBuild("RsiLoPassD", mapper.LoPassFactory), ParamMap: map[string]string{"alpha": "alpha"}, StreamMap: map[string]string{"source": "d", "target": "dMa"}},
	}, map[string]any{"alpha": alpha}, map[string]stream.AnyStream{
		"source": src,
		"delta":  delta,
		"u":      u,
		"d":      d,
		"uMa":    uMa,
		"dMa":    dMa,
	})
	if err != nil {
		return nil, err
	}

	return &rsiOperator{udMa: udMa, uMa: uMa, dMa: dMa, target: target}, nil
}

type rsiOperator struct {
	udMa         *CompoundOperator
	uMa, dMa     *stream.Stream[float64]
	target       *stream.Stream[float64]
}

func (o *rsiOperator) Calc() error {
	if err := o.udMa.Calc(); err != nil {
		return err
	}
	for {
		uMa, ok1 := o.uMa.GetNext()
		dMa, ok2 := o.dMa.GetNext()
		if ok1 != ok2 {
			return errStreamLengthMismatch
		}
		if !ok1 {
			return nil
		}
		if uMa == nil || dMa == nil {
			o.target.Append(nil)
			continue
		}
		denom := *uMa - *dMa
		if denom == 0 {
			o.target.Append(stream.Ptr(50.0))
			continue
		}
		o.target.Append(stream.Ptr(100.0 * *uMa / denom))
	}
}

// NewMacdOperator computes Moving Average Convergence/Divergence: the
// difference of a short and a long EMA, itself smoothed by a third EMA.
func NewMacdOperator(p map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
	src, err := stream.Require[float64](streams, "source")
	if err != nil {
		return nil, microerr.Config("MacdOperator", err)
	}
	target, err := stream.Require[float64](streams, "target")
	if err != nil {
		return nil, microerr.Config("MacdOperator", err)
	}
	shortEma := stream.New[float64]()
	longEma := stream.New[float64]()
	diff := stream.New[float64]()

	compound, err := NewCompoundOperator([]OperatorConfig{
		{Build: NewEmaOperator, ParamMap: map[string]string{"lag": "shortLag"}, StreamMap: map[string]string{"source": "source", "target": "shortEma"}},
		{Build: NewEmaOperator, ParamMap: map[string]string{"lag": "longLag"}, StreamMap: map[string]string{"source": "source", "target": "longEma"}},
		{Build: NewDiffOperator, StreamMap: map[string]string{"source1": "shortEma", "source2": "longEma", "target": "diff"}},
		{Build: NewEmaOperator, ParamMap: map[string]string{"lag": "diffLag"}, StreamMap: map[string]string{"source": "diff", "target": "target"}},
	}, params.Merge(map[string]any{"shortLag": 12, "longLag": 26, "diffLag": 9}, p), map[string]stream.AnyStream{
		"source":   src,
		"target":   target,
		"shortEma": shortEma,
		"longEma":  longEma,
		"diff":     diff,
	})
	if err != nil {
		return nil, err
	}
	return compound, nil
}

// NewChannelOperator computes an adaptive price channel: a low-pass "mid"
// line plus independently-smoothed upper/lower bounds derived from the
// high-passed half-waves around it.
func NewChannelOperator(p map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
	midLag, err := params.Int(p, "midLag", 30)
	if err != nil {
		return nil, microerr.Param("ChannelOperator", err)
	}
	if midLag < 1 {
		return nil, microerr.Paramf("ChannelOperator", "invalid midLag value (%d)", midLag)
	}
	midAlpha := 1.0 / float64(midLag)
	hiAlpha := (float64(midLag) - 1.0) / float64(midLag)

	boundLag, err := params.Int(p, "boundLag", 10)
	if err != nil {
		return nil, microerr.Param("ChannelOperator", err)
	}
	if boundLag < 1 {
		return nil, microerr.Paramf("ChannelOperator", "invalid boundLag value (%d)", boundLag)
	}
	boundAlpha := 1.0 / float64(boundLag)

	isSymm, err := params.Bool(p, "isSymm", false)
	if err != nil {
		return nil, microerr.Param("ChannelOperator", err)
	}
	boost, err := params.Float64(p, "boost", 1.0)
	if err != nil {
		return nil, microerr.Param("ChannelOperator", err)
	}
	if boost < 0.0 {
		return nil, microerr.Paramf("ChannelOperator", "invalid boost value (%v)", boost)
	}

	src, err := stream.Require[float64](streams, "source")
	if err != nil {
		return nil, microerr.Config("ChannelOperator", err)
	}
	upper, err := stream.Require[float64](streams, "upper")
	if err != nil {
		return nil, microerr.Config("ChannelOperator", err)
	}
	lower, err := stream.Require[float64](streams, "lower")
	if err != nil {
		return nil, microerr.Config("ChannelOperator", err)
	}
	mid := stream.Optional[float64](streams, "mid")

	pos := stream.New[float64]()
	neg := stream.New[float64]()
	hi := stream.New[float64]()
	hiPos := stream.New[float64]()
	hiNeg := stream.New[float64]()

	pre, err := NewCompoundOperator([]OperatorConfig{
		{Build: mapperBuild("ChannelMid", mapper.LoPassFactory), ParamMap: map[string]string{"alpha": "midAlpha"}, StreamMap: map[string]string{"source": "source", "target": "mid"}},
		{Build: mapperBuild("ChannelHi", mapper.HiPassFactory), ParamMap: map[string]string{"alpha": "hiAlpha"}, StreamMap: map[string]string{"source": "source", "target": "hi"}},
		{Build: NewHwSplitOperator, StreamMap: map[string]string{"source": "hi", "positive": "hiPos", "negative": "hiNeg"}},
		{Build: mapperBuild("ChannelPos", mapper.LoPassFactory), ParamMap: map[string]string{"alpha": "boundAlpha"}, StreamMap: map[string]string{"source": "hiPos", "target": "pos"}},
		{Build: mapperBuild("ChannelNeg", mapper.LoPassFactory), ParamMap: map[string]string{"alpha": "boundAlpha"}, StreamMap: map[string]string{"source": "hiNeg", "target": "neg"}},
	}, map[string]any{"midAlpha": midAlpha, "hiAlpha": hiAlpha, "boundAlpha": boundAlpha}, map[string]stream.AnyStream{
		"source": src,
		"mid":    mid,
		"hi":     hi,
		"hiPos":  hiPos,
		"hiNeg":  hiNeg,
		"pos":    pos,
		"neg":    neg,
	})
	if err != nil {
		return nil, err
	}

	return &channelOperator{
		isSymm: isSymm,
		boost:  boost,
		pre:    pre,
		mid:    mid,
		pos:    pos,
		neg:    neg,
		upper:  upper,
		lower:  lower,
	}, nil
}

type channelOperator struct {
	isSymm   bool
	boost    float64
	pre      *CompoundOperator
	mid      *stream.Stream[float64]
	pos, neg *stream.Stream[float64]
	upper    *stream.Stream[float64]
	lower    *stream.Stream[float64]
}

func (o *channelOperator) Calc() error {
	if err := o.pre.Calc(); err != nil {
		return err
	}
	for {
		mid, ok1 := o.mid.GetNext()
		pos, ok2 := o.pos.GetNext()
		neg, ok3 := o.neg.GetNext()
		if ok1 != ok2 || ok2 != ok3 {
			return errStreamLengthMismatch
		}
		if !ok1 {
			return nil
		}
		if mid == nil {
			o.upper.Append(nil)
			o.lower.Append(nil)
			continue
		}
		if o.isSymm {
			if pos == nil || neg == nil {
				pos, neg = nil, nil
			} else {
				p := (*pos - *neg) / 2.0
				n := (*neg - *pos) / 2.0
				pos, neg = &p, &n
			}
		}
		// Both bounds gate on pos, not their own half — matches the
		// original, which only ever observes pos and neg going nil
		// together in practice.
		if pos == nil {
			o.upper.Append(nil)
			o.lower.Append(nil)
			continue
		}
		o.upper.Append(stream.Ptr(*mid + o.boost**pos))
		o.lower.Append(stream.Ptr(*mid + o.boost**neg))
	}
}

// mapperBuild adapts a mapper.Factory[float64,float64] into an
// OperatorConfig.Build closure by naming it for error reporting.
func mapperBuild(op string, f mapper.Factory[float64, float64]) func(map[string]any, map[string]stream.AnyStream) (Operator, error) {
	return func(p map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
		return NewMapperOperator(op, f, p, streams)
	}
}
