// Package mapper implements the lazy, position-preserving transform over a
// Stream described in spec.md §4.2: SimpleMapper calls f(x), PrevAwareMapper
// calls f(x, prev) and advances prev after yielding.
package mapper

import (
	"iter"

	"microtrader/internal/stream"
)

// Mapper wraps a source Stream[S] and lazily yields *T for each *S consumed.
// It is built by NewSimpleMapper or NewPrevAwareMapper, never directly.
type Mapper[S, T any] struct {
	source        *stream.Stream[S]
	simple        func(x *S) *T
	prevAware     func(x, prev *S) *T
	isPrevAware   bool
	prev          *S
	external      stream.Retroactor
	supportsRetro bool
}

// Factory builds a Mapper from a source stream and an untyped parameter
// bag — the Go stand-in for the original's keyword-argument mapper
// constructors, used by operator.NewMapperOperator to lift a Mapper into an
// Operator.
type Factory[S, T any] func(source *stream.Stream[S], params map[string]any) (*Mapper[S, T], error)

// NewSimpleMapper builds a Mapper calling f(x) for each source element. If
// supportsRetro is false, the mapper never installs a retroactor on its
// source handle: an upstream change reaching into data this mapper has
// already consumed is then a fatal, unguarded retroaction (spec I7). The
// low-pass/high-pass filters in this package use supportsRetro=false
// because their accumulated state (the running y) cannot be correctly
// rewound by merely resetting the read cursor.
func NewSimpleMapper[S, T any](source *stream.Stream[S], f func(x *S) *T, supportsRetro bool) *Mapper[S, T] {
	m := &Mapper[S, T]{source: source, simple: f, supportsRetro: supportsRetro}
	if supportsRetro {
		source.SetRetroactor(m.onRetroaction)
	}
	return m
}

// NewPrevAwareMapper builds a Mapper calling f(x, prev) for each source
// element, then advancing prev to x.
func NewPrevAwareMapper[S, T any](source *stream.Stream[S], f func(x, prev *S) *T, supportsRetro bool) *Mapper[S, T] {
	m := &Mapper[S, T]{source: source, prevAware: f, isPrevAware: true, supportsRetro: supportsRetro}
	if supportsRetro {
		source.SetRetroactor(m.onRetroaction)
	}
	return m
}

// SetExternalRetroactor installs a callback notified (on both BEFORE and
// AFTER) whenever this mapper's own retroaction handler runs — this is how
// operator.MapperOperator chains its target-stream truncation onto the
// mapper's source-side bookkeeping.
func (m *Mapper[S, T]) SetExternalRetroactor(f stream.Retroactor) {
	m.external = f
}

// SupportsRetroaction reports whether this mapper installed a retroactor on
// its source handle.
func (m *Mapper[S, T]) SupportsRetroaction() bool {
	return m.supportsRetro
}

// PeekSource returns the source element at logical index i without
// consuming it.
func (m *Mapper[S, T]) PeekSource(i int) *S {
	return m.source.Get(i)
}

// Values lazily transforms the remaining source elements, advancing the
// source cursor as it goes.
func (m *Mapper[S, T]) Values() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for {
			x, ok := m.source.GetNext()
			if !ok {
				return
			}
			var y *T
			if m.isPrevAware {
				y = m.prevAware(x, m.prev)
				m.prev = x
			} else {
				y = m.simple(x)
			}
			if !yield(y) {
				return
			}
		}
	}
}

func (m *Mapper[S, T]) onRetroaction(change stream.Change, index int) {
	if change.IsAfter() {
		if m.isPrevAware {
			if index > 0 {
				m.prev = m.source.Get(index - 1)
			} else {
				m.prev = nil
			}
		}
		m.source.SetPos(index)
	}
	if m.external != nil {
		m.external(change, index)
	}
}
