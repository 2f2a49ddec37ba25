package operator

import (
	"iter"
	"sort"

	"microtrader/internal/mapper"
	"microtrader/internal/microerr"
	"microtrader/internal/params"
	"microtrader/internal/stream"
)

// NewPickOperator scatters source[i] for each i in indexes into target[i],
// leaving every other position none — suitable for rendering individual
// points alongside other value graphs without shifting their positions.
func NewPickOperator(_ map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
	idx, err := stream.Require[int](streams, "indexes")
	if err != nil {
		return nil, microerr.Config("PickOperator", err)
	}
	src, err := stream.Require[float64](streams, "source")
	if err != nil {
		return nil, microerr.Config("PickOperator", err)
	}
	target, err := stream.Require[float64](streams, "target")
	if err != nil {
		return nil, microerr.Config("PickOperator", err)
	}
	op := &pickOperator{source: src, target: target}
	op.indexes = mapper.NoDecreaseValidator(idx)
	op.indexes.SetExternalRetroactor(op.onRetroaction)
	return op, nil
}

type pickOperator struct {
	indexes *mapper.Mapper[int, int]
	source  *stream.Stream[float64]
	target  *stream.Stream[float64]
}

func (o *pickOperator) Calc() error {
	return guardValueErrors(func() {
		o.target.SetLen(o.source.Len())
		for i := range o.indexes.Values() {
			o.source.SetPos(*i)
			v, _ := o.source.GetNext()
			o.target.Set(*i, v)
		}
	})
}

func (o *pickOperator) onRetroaction(change stream.Change, index int) {
	if !change.IsAfter() {
		return
	}
	if index > 0 {
		prev := o.indexes.PeekSource(index - 1)
		o.source.SetPos(*prev + 1)
	} else {
		o.source.SetPos(0)
	}
	o.target.SetLen(o.source.Pos())
}

// NewLookupOperator collects source[i] for each i in indexes densely into
// target, intended as intermediate data for further processing.
func NewLookupOperator(_ map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
	idx, err := stream.Require[int](streams, "indexes")
	if err != nil {
		return nil, microerr.Config("LookupOperator", err)
	}
	src, err := stream.Require[float64](streams, "source")
	if err != nil {
		return nil, microerr.Config("LookupOperator", err)
	}
	target, err := stream.Require[float64](streams, "target")
	if err != nil {
		return nil, microerr.Config("LookupOperator", err)
	}
	op := &lookupOperator{source: src, target: target}
	op.indexes = mapper.NoDecreaseValidator(idx)
	op.indexes.SetExternalRetroactor(op.onRetroaction)
	return op, nil
}

type lookupOperator struct {
	indexes *mapper.Mapper[int, int]
	source  *stream.Stream[float64]
	target  *stream.Stream[float64]
}

func (o *lookupOperator) Calc() error {
	return guardValueErrors(func() {
		for i := range o.indexes.Values() {
			o.source.SetPos(*i)
			v, _ := o.source.GetNext()
			o.target.Append(v)
		}
	})
}

func (o *lookupOperator) onRetroaction(change stream.Change, index int) {
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

// NewCoindexOperator matches indexes1 against indexes2 by relaxed (within
// epsilon) equality, in increasing order, producing parallel coindexes1/
// coindexes2 output streams such that coindexes1[k] corresponds to
// coindexes2[k].
func NewCoindexOperator(p map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
	epsilon, err := params.Int(p, "epsilon", 2)
	if err != nil {
		return nil, microerr.Param("CoindexOperator", err)
	}
	if epsilon < 0 {
		return nil, microerr.Paramf("CoindexOperator", "invalid epsilon value (%d)", epsilon)
	}

	idx1, err := stream.Require[int](streams, "indexes1")
	if err != nil {
		return nil, microerr.Config("CoindexOperator", err)
	}
	idx2, err := stream.Require[int](streams, "indexes2")
	if err != nil {
		return nil, microerr.Config("CoindexOperator", err)
	}
	co1, err := stream.Require[int](streams, "coindexes1")
	if err != nil {
		return nil, microerr.Config("CoindexOperator", err)
	}
	co2, err := stream.Require[int](streams, "coindexes2")
	if err != nil {
		return nil, microerr.Config("CoindexOperator", err)
	}

	op := &coindexOperator{epsilon: epsilon, coindexes1: co1, coindexes2: co2}
	op.indexes1 = mapper.IncreaseValidator(idx1)
	op.indexes2 = mapper.IncreaseValidator(idx2)
	op.indexes1.SetExternalRetroactor(func(change stream.Change, index int) {
		op.onRetroaction(change, index, op.indexes1, op.coindexes1)
	})
	op.indexes2.SetExternalRetroactor(func(change stream.Change, index int) {
		op.onRetroaction(change, index, op.indexes2, op.coindexes2)
	})
	return op, nil
}

type coindexOperator struct {
	epsilon    int
	indexes1   *mapper.Mapper[int, int]
	indexes2   *mapper.Mapper[int, int]
	coindexes1 *stream.Stream[int]
	coindexes2 *stream.Stream[int]
}

func (o *coindexOperator) Calc() error {
	return guardValueErrors(func() {
		next1, stop1 := pull(o.indexes1)
		defer stop1()
		next2, stop2 := pull(o.indexes2)
		defer stop2()

		for {
			i1, ok := next1()
			if !ok {
				return
			}
			var i2 int
			for {
				v, ok := next2()
				if !ok {
					return
				}
				i2 = v
				if i2 >= i1-o.epsilon {
					break
				}
			}
			if i1 >= i2-o.epsilon {
				o.coindexes1.Append(stream.Ptr(i1))
				o.coindexes2.Append(stream.Ptr(i2))
			}

			v, ok := next2()
			if !ok {
				return
			}
			i2 = v
			for {
				v, ok := next1()
				if !ok {
					return
				}
				i1 = v
				if i1 >= i2-o.epsilon {
					break
				}
			}
			if i2 >= i1-o.epsilon {
				o.coindexes1.Append(stream.Ptr(i1))
				o.coindexes2.Append(stream.Ptr(i2))
			}
		}
	})
}

// pull adapts a Mapper[int,int]'s lazy Values() iterator into a pull-style
// next() returning the dereferenced int, since index streams never carry a
// none element in practice.
func pull(m *mapper.Mapper[int, int]) (func() (int, bool), func()) {
	next, stop := iter.Pull(m.Values())
	return func() (int, bool) {
		v, ok := next()
		if !ok || v == nil {
			return 0, false
		}
		return *v, true
	}, stop
}

func (o *coindexOperator) onRetroaction(change stream.Change, index int, indexes *mapper.Mapper[int, int], coindexes *stream.Stream[int]) {
	if !change.IsAfter() {
		return
	}
	var coindexesLen int
	if index > 0 {
		threshold := *indexes.PeekSource(index - 1)
		coindexesLen = sort.Search(coindexes.Len(), func(k int) bool {
			return *coindexes.Get(k) > threshold
		})
	}
	o.coindexes1.SetLen(coindexesLen)
	o.coindexes2.SetLen(coindexesLen)
}
