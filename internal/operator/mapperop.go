package operator

import (
	"microtrader/internal/mapper"
	"microtrader/internal/microerr"
	"microtrader/internal/stream"
)

// NewMapperOperator lifts a mapper.Factory into an Operator: it requires a
// "source" stream of type S and a "target" stream of type T in streams,
// builds the mapper, and chains the mapper's own retroaction handling (when
// supported) into truncating the target on every AFTER notification.
func NewMapperOperator[S, T any](op string, factory mapper.Factory[S, T], params map[string]any, streams map[string]stream.AnyStream) (Operator, error) {
	src, err := stream.Require[S](streams, "source")
	if err != nil {
		return nil, microerr.Config(op, err)
	}
	m, err := factory(src, params)
	if err != nil {
		return nil, microerr.Config(op, err)
	}
	target, err := stream.Require[T](streams, "target")
	if err != nil {
		return nil, microerr.Config(op, err)
	}
	mo := &mapperOperator[S, T]{mapper: m, target: target}
	if m.SupportsRetroaction() {
		m.SetExternalRetroactor(mo.onRetroaction)
	}
	return mo, nil
}

type mapperOperator[S, T any] struct {
	mapper *mapper.Mapper[S, T]
	target *stream.Stream[T]
}

func (o *mapperOperator[S, T]) Calc() error {
	return guardValueErrors(func() {
		o.target.Extend(o.mapper.Values())
	})
}

func (o *mapperOperator[S, T]) onRetroaction(change stream.Change, index int) {
	if change.IsAfter() {
		o.target.SetLen(index)
	}
}
