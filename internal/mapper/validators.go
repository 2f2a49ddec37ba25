package mapper

import (
	"cmp"

	"microtrader/internal/microerr"
	"microtrader/internal/stream"
)

// SequenceValidator passes every element through unchanged but panics with a
// *microerr.ValueError (recovered by the owning operator's Calc) the first
// time verify(value, prev) reports false. It supports retroaction like any
// other PrevAwareMapper: a retroactive edit simply rewinds prev and re-runs
// the check on replay.
func SequenceValidator[T any](source *stream.Stream[T], verify func(value, prev *T) bool, msg string) *Mapper[T, T] {
	return NewPrevAwareMapper(source, func(x, prev *T) *T {
		if !verify(x, prev) {
			panic(microerr.Value("%s", msg))
		}
		return x
	}, true)
}

// IncreaseValidator panics unless every element is strictly greater than
// its predecessor, used by CoindexOperator to enforce the "index stream is
// strictly increasing" precondition (Pick/Lookup use NoDecreaseValidator).
func IncreaseValidator[T cmp.Ordered](source *stream.Stream[T]) *Mapper[T, T] {
	return SequenceValidator(source, func(v, prev *T) bool {
		if v == nil || prev == nil {
			return true
		}
		return *v > *prev
	}, "index stream must be strictly increasing")
}

// NoDecreaseValidator panics unless every element is greater than or equal
// to its predecessor.
func NoDecreaseValidator[T cmp.Ordered](source *stream.Stream[T]) *Mapper[T, T] {
	return SequenceValidator(source, func(v, prev *T) bool {
		if v == nil || prev == nil {
			return true
		}
		return *v >= *prev
	}, "index stream must not decrease")
}
