package operator

import (
	"sort"
	"time"

	"microtrader/internal/microerr"
	"microtrader/internal/stream"
)

// DivergenceType distinguishes a bullish ("convergence", typically on
// minima) signal from a bearish ("divergence", on maxima) one.
type DivergenceType int

const (
	Convergence DivergenceType = -1
	Divergence  DivergenceType = 1
)

// DivergenceClass grades how the two sides' slopes combined to produce the
// signal: A is the clean opposite-slope case, B and C are the weaker
// one-side-flat variants.
type DivergenceClass int

const (
	ClassA DivergenceClass = 1
	ClassB DivergenceClass = 2
	ClassC DivergenceClass = 3
)

// DivergenceInstance records one detected divergence between two peak
// series.
type DivergenceInstance struct {
	Type    DivergenceType
	Class   DivergenceClass
	Index1  int // peak index of source1
	Index2  int // peak index of source2
}

// NewDivergenceOperator matches peaks of two series (by CoindexOperator),
// classifies the slope leading into each matched pair of peaks (by
// SlopeOperator), and emits a DivergenceInstance whenever the two slopes
// combine into one of the six recognized bullish/bearish patterns.
func NewDivergenceOperator(p map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
	idx1, err := stream.Require[int](streams, "indexes1")
	if err != nil {
		return nil, microerr.Config("DivergenceOperator", err)
	}
	src1, err := stream.Require[float64](streams, "source1")
	if err != nil {
		return nil, microerr.Config("DivergenceOperator", err)
	}
	idx2, err := stream.Require[int](streams, "indexes2")
	if err != nil {
		return nil, microerr.Config("DivergenceOperator", err)
	}
	src2, err := stream.Require[float64](streams, "source2")
	if err != nil {
		return nil, microerr.Config("DivergenceOperator", err)
	}
	tm, err := stream.Require[time.Time](streams, "time")
	if err != nil {
		return nil, microerr.Config("DivergenceOperator", err)
	}
	divergences, err := stream.Require[DivergenceInstance](streams, "divergences")
	if err != nil {
		return nil, microerr.Config("DivergenceOperator", err)
	}
	lines1 := stream.Optional[Line](streams, "lines1")
	lines2 := stream.Optional[Line](streams, "lines2")

	coindexes1 := stream.New[int]()
	coindexes2 := stream.New[int]()
	slopeTypes1 := stream.New[SlopeType]()
	slopeTypes2 := stream.New[SlopeType]()

	op := &divergenceOperator{
		divergences: divergences,
		lines1:      lines1,
		lines2:      lines2,
		coindexes1:  coindexes1,
		coindexes2:  coindexes2,
		slopeTypes1: slopeTypes1,
		slopeTypes2: slopeTypes2,
	}
	slopeTypes1.SetRetroactor(func(change stream.Change, index int) {
		op.onRetroaction(change, index, coindexes1, slopeTypes1, func(d *DivergenceInstance) int { return d.Index1 })
	})
	slopeTypes2.SetRetroactor(func(change stream.Change, index int) {
		op.onRetroaction(change, index, coindexes2, slopeTypes2, func(d *DivergenceInstance) int { return d.Index2 })
	})

	slopeOperators, err := NewCompoundOperator([]OperatorConfig{
		{Build: NewCoindexOperator, ParamMap: map[string]string{"epsilon": "epsilon"}, StreamMap: map[string]string{
			"indexes1": "indexes1", "indexes2": "indexes2", "coindexes1": "coindexes1", "coindexes2": "coindexes2",
		}},
		{Build: NewSlopeOperator, ParamMap: map[string]string{"threshold": "threshold1"}, StreamMap: map[string]string{
			"indexes": "coindexes1", "source": "source1", "time": "time", "slopeTypes": "slopeTypes1",
		}},
		{Build: NewSlopeOperator, ParamMap: map[string]string{"threshold": "threshold2"}, StreamMap: map[string]string{
			"indexes": "coindexes2", "source": "source2", "time": "time", "slopeTypes": "slopeTypes2",
		}},
	}, p, map[string]stream.AnyStream{
		"indexes1":    idx1,
		"source1":     src1,
		"indexes2":    idx2,
		"source2":     src2,
		"time":        tm,
		"coindexes1":  coindexes1,
		"coindexes2":  coindexes2,
		"slopeTypes1": slopeTypes1,
		"slopeTypes2": slopeTypes2,
	})
	if err != nil {
		return nil, err
	}
	op.slopeOperators = slopeOperators
	return op, nil
}

type divergenceOperator struct {
	slopeOperators           *CompoundOperator
	divergences              *stream.Stream[DivergenceInstance]
	lines1, lines2           *stream.Stream[Line]
	coindexes1, coindexes2   *stream.Stream[int]
	slopeTypes1, slopeTypes2 *stream.Stream[SlopeType]
}

func (o *divergenceOperator) Calc() error {
	if err := o.slopeOperators.Calc(); err != nil {
		return err
	}

	for {
		i1, st1, ok1 := nextIndexed(o.slopeTypes1)
		i2, st2, ok2 := nextIndexed(o.slopeTypes2)
		if ok1 != ok2 {
			return errStreamLengthMismatch
		}
		if !ok1 {
			return nil
		}

		var divergenceType DivergenceType
		var divergenceClass DivergenceClass
		var matched bool
		switch {
		case st1 == SlopeDown && st2 == SlopeUp:
			divergenceType, divergenceClass, matched = Convergence, ClassA, true
		case st1 == SlopeNone && st2 == SlopeUp:
			divergenceType, divergenceClass, matched = Convergence, ClassB, true
		case st1 == SlopeDown && st2 == SlopeNone:
			divergenceType, divergenceClass, matched = Convergence, ClassC, true
		case st1 == SlopeUp && st2 == SlopeDown:
			divergenceType, divergenceClass, matched = Divergence, ClassA, true
		case st1 == SlopeNone && st2 == SlopeDown:
			divergenceType, divergenceClass, matched = Divergence, ClassB, true
		case st1 == SlopeUp && st2 == SlopeNone:
			divergenceType, divergenceClass, matched = Divergence, ClassC, true
		}

		if !matched {
			continue
		}

		o.coindexes1.SetPos(i1 - 1)
		line1Start, _ := o.coindexes1.GetNext()
		line1End, _ := o.coindexes1.GetNext()
		line1 := Line{StartIndex: *line1Start, EndIndex: *line1End}

		o.coindexes2.SetPos(i2 - 1)
		line2Start, _ := o.coindexes2.GetNext()
		line2End, _ := o.coindexes2.GetNext()
		line2 := Line{StartIndex: *line2Start, EndIndex: *line2End}

		o.divergences.Append(stream.Ptr(DivergenceInstance{
			Type:   divergenceType,
			Class:  divergenceClass,
			Index1: line1.EndIndex,
			Index2: line2.EndIndex,
		}))
		o.lines1.Append(stream.Ptr(line1))
		o.lines2.Append(stream.Ptr(line2))
	}
}

func nextIndexed[T any](s *stream.Stream[T]) (int, T, bool) {
	var zero T
	i := s.Pos()
	v, ok := s.GetNext()
	if !ok || v == nil {
		return i, zero, ok
	}
	return i, *v, ok
}

func (o *divergenceOperator) onRetroaction(change stream.Change, index int, coindexes *stream.Stream[int], slopeTypes *stream.Stream[SlopeType], indexSelector func(*DivergenceInstance) int) {
	if !change.IsAfter() {
		return
	}
	coindexes.SetPos(index)
	slopeTypes.SetPos(index)
	var divergencesLen int
	if index > 0 {
		threshold := *coindexes.Get(index - 1)
		divergencesLen = sort.Search(o.divergences.Len(), func(k int) bool {
			return indexSelector(o.divergences.Get(k)) > threshold
		})
	}
	o.divergences.SetLen(divergencesLen)
}
