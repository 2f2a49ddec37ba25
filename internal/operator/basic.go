package operator

import (
	"microtrader/internal/microerr"
	"microtrader/internal/stream"
)

// NewHwSplitOperator separates the positive and negative half-waves of
// source into two streams, clamping the other half to zero at each sample.
func NewHwSplitOperator(_ map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
	op := &hwSplitOperator{}
	var err error
	if op.source, err = stream.Require[float64](streams, "source"); err != nil {
		return nil, microerr.Config("HwSplitOperator", err)
	}
	if op.positive, err = stream.Require[float64](streams, "positive"); err != nil {
		return nil, microerr.Config("HwSplitOperator", err)
	}
	if op.negative, err = stream.Require[float64](streams, "negative"); err != nil {
		return nil, microerr.Config("HwSplitOperator", err)
	}
	op.source.SetRetroactor(op.onRetroaction)
	return op, nil
}

type hwSplitOperator struct {
	source   *stream.Stream[float64]
	positive *stream.Stream[float64]
	negative *stream.Stream[float64]
}

func (o *hwSplitOperator) Calc() error {
	for x := range o.source.All() {
		if x == nil {
			o.positive.Append(nil)
			o.negative.Append(nil)
			continue
		}
		pos := *x
		if pos < 0 {
			pos = 0
		}
		neg := *x
		if neg > 0 {
			neg = 0
		}
		o.positive.Append(&pos)
		o.negative.Append(&neg)
	}
	return nil
}

func (o *hwSplitOperator) onRetroaction(change stream.Change, index int) {
	if change.IsAfter() {
		o.source.SetPos(index)
		o.positive.SetLen(index)
		o.negative.SetLen(index)
	}
}

// NewVariadicLoPassOperator is a single-pole exponential filter whose alpha
// is itself a stream, sample for sample, rather than a fixed parameter —
// used by KamaOperator to drive the filter with a per-sample adaptive
// alpha. Out-of-range alpha (outside [0,1]) resets the running average to
// none, same as a none source sample.
func NewVariadicLoPassOperator(_ map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
	op := &variadicLoPassOperator{}
	var err error
	if op.alpha, err = stream.Require[float64](streams, "alpha"); err != nil {
		return nil, microerr.Config("VariadicLoPassOperator", err)
	}
	if op.source, err = stream.Require[float64](streams, "source"); err != nil {
		return nil, microerr.Config("VariadicLoPassOperator", err)
	}
	if op.target, err = stream.Require[float64](streams, "target"); err != nil {
		return nil, microerr.Config("VariadicLoPassOperator", err)
	}
	return op, nil
}

type variadicLoPassOperator struct {
	alpha  *stream.Stream[float64]
	source *stream.Stream[float64]
	target *stream.Stream[float64]
	y      *float64
}

func (o *variadicLoPassOperator) Calc() error {
	for {
		x, xOk := o.source.GetNext()
		alpha, aOk := o.alpha.GetNext()
		if xOk != aOk {
			return errStreamLengthMismatch
		}
		if !xOk {
			return nil
		}
		if x == nil || alpha == nil || *alpha < 0.0 || *alpha > 1.0 {
			o.y = nil
		} else if o.y == nil {
			v := *x
			o.y = &v
		} else {
			v := *o.y + *alpha*(*x-*o.y)
			o.y = &v
		}
		o.target.Append(o.y)
	}
}

// NewDiffOperator yields source1[i]-source2[i] for each pair consumed.
func NewDiffOperator(_ map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
	op := &diffOperator{}
	var err error
	if op.source1, err = stream.Require[float64](streams, "source1"); err != nil {
		return nil, microerr.Config("DiffOperator", err)
	}
	if op.source2, err = stream.Require[float64](streams, "source2"); err != nil {
		return nil, microerr.Config("DiffOperator", err)
	}
	if op.target, err = stream.Require[float64](streams, "target"); err != nil {
		return nil, microerr.Config("DiffOperator", err)
	}
	op.source1.SetRetroactor(op.onRetroaction)
	op.source2.SetRetroactor(op.onRetroaction)
	return op, nil
}

type diffOperator struct {
	source1 *stream.Stream[float64]
	source2 *stream.Stream[float64]
	target  *stream.Stream[float64]
}

func (o *diffOperator) Calc() error {
	for {
		x1, ok1 := o.source1.GetNext()
		x2, ok2 := o.source2.GetNext()
		if ok1 != ok2 {
			return errStreamLengthMismatch
		}
		if !ok1 {
			return nil
		}
		if x1 == nil || x2 == nil {
			o.target.Append(nil)
			continue
		}
		o.target.Append(stream.Ptr(*x1 - *x2))
	}
}

func (o *diffOperator) onRetroaction(change stream.Change, index int) {
	if change.IsAfter() {
		o.source1.SetPos(index)
		o.source2.SetPos(index)
		o.target.SetLen(index)
	}
}

// NewMultiplexerOperator forwards the stream named by the "sourceName"
// param to "target" unchanged.
func NewMultiplexerOperator(p map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
	name, ok := p["sourceName"].(string)
	if !ok || name == "" {
		return nil, microerr.Paramf("MultiplexerOperator", "missing or invalid sourceName param")
	}
	op := &multiplexerOperator{}
	var err error
	if op.source, err = stream.Require[float64](streams, name); err != nil {
		return nil, microerr.Param("MultiplexerOperator", err)
	}
	if op.target, err = stream.Require[float64](streams, "target"); err != nil {
		return nil, microerr.Config("MultiplexerOperator", err)
	}
	op.source.SetRetroactor(op.onRetroaction)
	return op, nil
}

type multiplexerOperator struct {
	source *stream.Stream[float64]
	target *stream.Stream[float64]
}

func (o *multiplexerOperator) Calc() error {
	o.target.Extend(o.source.All())
	return nil
}

func (o *multiplexerOperator) onRetroaction(change stream.Change, index int) {
	if change.IsAfter() {
		o.source.SetPos(index)
		o.target.SetLen(index)
	}
}

var errStreamLengthMismatch = microerr.Value("paired streams advanced by different amounts")
