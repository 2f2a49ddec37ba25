package operator

import (
	"time"

	"microtrader/internal/mapper"
	"microtrader/internal/microerr"
	"microtrader/internal/params"
	"microtrader/internal/stream"
)

// Line names the two sample indexes a LineOperator segment interpolates
// between; order is not significant (LineOperator normalizes it).
type Line struct {
	StartIndex int
	EndIndex   int
}

// SlopeType classifies the normalized rate of change between two lookup
// points.
type SlopeType int

const (
	SlopeUp   SlopeType = 1
	SlopeDown SlopeType = -1
	SlopeNone SlopeType = 0
)

// NewLineOperator fills target with the piecewise-linear interpolation
// between consecutive endpoints of each non-overlapping Line in lines.
func NewLineOperator(_ map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
	linesRaw, err := stream.Require[Line](streams, "lines")
	if err != nil {
		return nil, microerr.Config("LineOperator", err)
	}
	src, err := stream.Require[float64](streams, "source")
	if err != nil {
		return nil, microerr.Config("LineOperator", err)
	}
	target, err := stream.Require[float64](streams, "target")
	if err != nil {
		return nil, microerr.Config("LineOperator", err)
	}

	op := &lineOperator{source: src, target: target}
	op.lines = mapper.SequenceValidator(linesRaw, func(line, prev *Line) bool {
		if line == nil || prev == nil {
			return true
		}
		return minInt(line.StartIndex, line.EndIndex) >= maxInt(prev.StartIndex, prev.EndIndex)
	}, "lines must not overlap")
	op.lines.SetExternalRetroactor(op.onRetroaction)
	return op, nil
}

type lineOperator struct {
	lines  *mapper.Mapper[Line, Line]
	source *stream.Stream[float64]
	target *stream.Stream[float64]
}

func (o *lineOperator) Calc() error {
	return guardValueErrors(func() {
		o.target.SetLen(o.source.Len())

		for line := range o.lines.Values() {
			startIndex, endIndex := line.StartIndex, line.EndIndex
			if startIndex > endIndex {
				startIndex, endIndex = endIndex, startIndex
			}

			o.source.SetPos(startIndex)
			xStart, _ := o.source.GetNext()
			o.source.SetPos(endIndex)
			xEnd, _ := o.source.GetNext()

			if startIndex < endIndex {
				delta := (*xEnd - *xStart) / float64(endIndex-startIndex)
				x := *xStart
				for i := startIndex; i < endIndex; i++ {
					o.target.Set(i, stream.Ptr(x))
					x += delta
				}
			}
			o.target.Set(endIndex, xEnd)
		}
	})
}

func (o *lineOperator) onRetroaction(change stream.Change, index int) {
	if !change.IsAfter() {
		return
	}
	if index > 0 {
		prevLine := o.lines.PeekSource(index - 1)
		o.source.SetPos(maxInt(prevLine.StartIndex, prevLine.EndIndex) + 1)
	} else {
		o.source.SetPos(0)
	}
	o.target.SetLen(o.source.Pos())
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// NewSlopeOperator classifies the slope between consecutive source[indexes[k]]
// lookups, normalized to a one-minute interval using the paired timestamps,
// against +/- threshold.
func NewSlopeOperator(p map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
	threshold, err := params.Float64(p, "threshold", 0.0)
	if err != nil {
		return nil, microerr.Param("SlopeOperator", err)
	}
	if threshold < 0.0 {
		return nil, microerr.Paramf("SlopeOperator", "invalid threshold value (%v)", threshold)
	}

	idx, err := stream.Require[int](streams, "indexes")
	if err != nil {
		return nil, microerr.Config("SlopeOperator", err)
	}
	src, err := stream.Require[float64](streams, "source")
	if err != nil {
		return nil, microerr.Config("SlopeOperator", err)
	}
	tm, err := stream.Require[time.Time](streams, "time")
	if err != nil {
		return nil, microerr.Config("SlopeOperator", err)
	}
	slopeTypes, err := stream.Require[SlopeType](streams, "slopeTypes")
	if err != nil {
		return nil, microerr.Config("SlopeOperator", err)
	}

	sourceDelta := stream.New[float64]()
	timeDelta := stream.New[time.Duration]()
	sourceLookup := stream.New[float64]()
	timeLookup := stream.New[time.Time]()

	op := &slopeOperator{threshold: threshold, sourceDelta: sourceDelta, timeDelta: timeDelta, slopeTypes: slopeTypes}
	sourceDelta.SetRetroactor(op.onRetroaction)

	deltaOp, err := NewCompoundOperator([]OperatorConfig{
		{Build: NewLookupOperator, StreamMap: map[string]string{"indexes": "indexes", "source": "source", "target": "sourceLookup"}},
		{Build: mapperBuild("SlopeSourceDelta", mapper.DeltaFactory), StreamMap: map[string]string{"source": "sourceLookup", "target": "sourceDelta"}},
		{Build: NewTimeLookupOperator, StreamMap: map[string]string{"indexes": "indexes", "time": "time", "target": "timeLookup"}},
		{Build: NewTimeDeltaOperator, StreamMap: map[string]string{"source": "timeLookup", "target": "timeDelta"}},
	}, nil, map[string]stream.AnyStream{
		"indexes":      idx,
		"source":       src,
		"time":         tm,
		"sourceLookup": sourceLookup,
		"sourceDelta":  sourceDelta,
		"timeLookup":   timeLookup,
		"timeDelta":    timeDelta,
	})
	if err != nil {
		return nil, err
	}
	op.deltaOp = deltaOp
	return op, nil
}

type slopeOperator struct {
	threshold   float64
	deltaOp     *CompoundOperator
	sourceDelta *stream.Stream[float64]
	timeDelta   *stream.Stream[time.Duration]
	slopeTypes  *stream.Stream[SlopeType]
}

func (o *slopeOperator) Calc() error {
	if err := o.deltaOp.Calc(); err != nil {
		return err
	}
	for {
		dx, ok1 := o.sourceDelta.GetNext()
		dt, ok2 := o.timeDelta.GetNext()
		if ok1 != ok2 {
			return errStreamLengthMismatch
		}
		if !ok1 {
			return nil
		}
		if dx == nil || dt == nil {
			o.slopeTypes.Append(nil)
			continue
		}
		slope := *dx / (dt.Minutes())
		var slopeType SlopeType
		switch {
		case slope > o.threshold:
			slopeType = SlopeUp
		case slope < -o.threshold:
			slopeType = SlopeDown
		default:
			slopeType = SlopeNone
		}
		o.slopeTypes.Append(&slopeType)
	}
}

func (o *slopeOperator) onRetroaction(change stream.Change, index int) {
	if change.IsAfter() {
		o.slopeTypes.SetLen(index)
	}
}

// NewTimeLookupOperator and NewTimeDeltaOperator instantiate the
// LookupOperator/deltaMapper building blocks over time.Time rather than
// float64, since a generic Go Operator can't be parametrized over element
// type the way the original's dynamically-typed LookupOperator/mapperOperator
// can.
func NewTimeLookupOperator(_ map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
	idx, err := stream.Require[int](streams, "indexes")
	if err != nil {
		return nil, microerr.Config("TimeLookupOperator", err)
	}
	src, err := stream.Require[time.Time](streams, "time")
	if err != nil {
		return nil, microerr.Config("TimeLookupOperator", err)
	}
	target, err := stream.Require[time.Time](streams, "target")
	if err != nil {
		return nil, microerr.Config("TimeLookupOperator", err)
	}
	op := &timeLookupOperator{source: src, target: target}
	op.indexes = mapper.NoDecreaseValidator(idx)
	op.indexes.SetExternalRetroactor(op.onRetroaction)
	return op, nil
}

type timeLookupOperator struct {
	indexes *mapper.Mapper[int, int]
	source  *stream.Stream[time.Time]
	target  *stream.Stream[time.Time]
}

func (o *timeLookupOperator) Calc() error {
	return guardValueErrors(func() {
		for i := range o.indexes.Values() {
			o.source.SetPos(*i)
			v, _ := o.source.GetNext()
			o.target.Append(v)
		}
	})
}

func (o *timeLookupOperator) onRetroaction(change stream.Change, index int) {
	if !change.IsAfter() {
		return
	}
	if index > 0 {
		prev := o.indexes.PeekSource(index - 1)
		o.source.SetPos(*prev + 1)
	} else {
		o.source.SetPos(0)
	}
	o.target.SetLen(index)
}

// NewTimeDeltaOperator yields t[i]-t[i-1] as a time.Duration.
func NewTimeDeltaOperator(_ map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
	src, err := stream.Require[time.Time](streams, "source")
	if err != nil {
		return nil, microerr.Config("TimeDeltaOperator", err)
	}
	target, err := stream.Require[time.Duration](streams, "target")
	if err != nil {
		return nil, microerr.Config("TimeDeltaOperator", err)
	}
	return &timeDeltaOperator{source: src, target: target}, nil
}

type timeDeltaOperator struct {
	source *stream.Stream[time.Time]
	target *stream.Stream[time.Duration]
	prev   *time.Time
}

func (o *timeDeltaOperator) Calc() error {
	for t := range o.source.All() {
		if t == nil || o.prev == nil {
			o.target.Append(nil)
		} else {
			o.target.Append(stream.Ptr(t.Sub(*o.prev)))
		}
		o.prev = t
	}
	return nil
}
