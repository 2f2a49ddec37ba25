// Package stream implements the shared, positioned, retroaction-aware
// sequence that every operator in microtrader reads from and writes to.
//
// Many Stream[T] handles can share one backing buffer (the "core"): each
// handle keeps its own read cursor and its own retroactor, but a mutation
// made through any handle is visible, and notified, to every other handle
// sharing the same core.
package stream

import (
	"fmt"
	"iter"
	"reflect"
)

// core is the backing buffer shared by every Stream handle created from the
// same source. Values are stored as pointers so a nil element represents
// "none" without requiring a sentinel value of T.
type core[T any] struct {
	values  []*T
	handles []*Stream[T]
}

// Stream is one handle onto a shared, append-only-from-the-tail sequence of
// optional T. Create the first handle with New; create further handles
// sharing the same backing buffer with Wrap.
type Stream[T any] struct {
	core       *core[T]
	offset     int
	pos        int
	retroactor Retroactor
}

// AnyStream is the type-erased view of a Stream[T] used by code that wires
// streams together by name (CompoundOperator, Processor) without needing to
// know each stream's element type.
type AnyStream interface {
	Len() int
	Offset() int
	SetOffset(k int)
	Pos() int
	SetPos(p int)
	SetLen(n int)
	SetRetroactor(f Retroactor)
}

// New creates a fresh, empty Stream with its own backing buffer.
func New[T any]() *Stream[T] {
	s := &Stream[T]{core: &core[T]{}}
	s.core.handles = append(s.core.handles, s)
	return s
}

// Wrap creates a new handle sharing src's backing buffer. If src is nil, it
// behaves like New — this mirrors the Python constructor's `Stream(None)`
// used for streams that are optional ("not every operator wires an
// (optional) output").
func Wrap[T any](src *Stream[T]) *Stream[T] {
	if src == nil {
		return New[T]()
	}
	s := &Stream[T]{core: src.core, offset: src.offset}
	src.core.handles = append(src.core.handles, s)
	return s
}

// Close deregisters s from its backing buffer's handle list. Streams
// normally live for the lifetime of the owning Processor and are never
// explicitly closed, but Close exists so long-lived intermediate streams
// inside a dynamically rebuilt graph (CompoundOperator re-wiring on
// copyWithParams) don't accumulate dead handles.
func (s *Stream[T]) Close() {
	handles := s.core.handles
	for i, h := range handles {
		if h == s {
			s.core.handles = append(handles[:i], handles[i+1:]...)
			return
		}
	}
}

// SetRetroactor installs the callback invoked when an upstream change
// reaches a position this handle has already consumed.
func (s *Stream[T]) SetRetroactor(f Retroactor) {
	s.retroactor = f
}

// Len reports the number of logical elements visible through this handle,
// i.e. the backing length minus this handle's offset.
func (s *Stream[T]) Len() int {
	n := len(s.core.values) - s.offset
	if n < 0 {
		return 0
	}
	return n
}

// Offset returns the logical-zero offset into the backing buffer.
func (s *Stream[T]) Offset() int {
	return s.offset
}

// SetOffset trims the front of the logical view without copying the
// backing buffer. Rarely used; kept for contract completeness.
func (s *Stream[T]) SetOffset(k int) {
	if k < 0 {
		panic(fmt.Sprintf("stream: invalid offset (%d)", k))
	}
	s.offset = k
}

// Pos returns this handle's read cursor.
func (s *Stream[T]) Pos() int {
	return s.pos
}

// SetPos repositions this handle's read cursor.
func (s *Stream[T]) SetPos(p int) {
	if p < 0 {
		panic(fmt.Sprintf("stream: invalid position (%d)", p))
	}
	s.pos = p
}

func (s *Stream[T]) valueIndex(i int) int {
	var idx int
	if i >= 0 {
		idx = i + s.offset
	} else {
		idx = i + len(s.core.values)
	}
	if idx < s.offset || idx >= len(s.core.values) {
		panic(fmt.Sprintf("stream: index out of bounds (%d)", i))
	}
	return idx
}

// Get returns the element at logical index i (negative counts from the end
// of the backing buffer), without moving the read cursor.
func (s *Stream[T]) Get(i int) *T {
	return s.core.values[s.valueIndex(i)]
}

// Set writes v at logical index i, notifying every handle that has already
// read past i. A write of an equal value is silent (no notification, no
// physical mutation beyond the no-op).
func (s *Stream[T]) Set(i int, v *T) {
	idx := s.valueIndex(i)
	old := s.core.values[idx]
	if valuesEqual(old, v) {
		return
	}
	s.notify(RandomWriting, idx)
	s.core.values[idx] = v
	s.notify(RandomWrite, idx)
}

// GetNext reads the element at the current cursor and advances it. The
// second return is false once the cursor reaches the end of the stream.
func (s *Stream[T]) GetNext() (*T, bool) {
	if s.pos >= s.Len() {
		return nil, false
	}
	v := s.core.values[s.offset+s.pos]
	s.pos++
	return v, true
}

// All iterates the remaining elements from the current cursor, advancing it
// as it goes — the range-over-func equivalent of Python's `for x in
// stream`.
func (s *Stream[T]) All() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for {
			v, ok := s.GetNext()
			if !ok {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Indexed iterates (position, value) pairs, matching Python's
// Stream.indexed().
func (s *Stream[T]) Indexed() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		for {
			i := s.pos
			v, ok := s.GetNext()
			if !ok {
				return
			}
			if !yield(i, v) {
				return
			}
		}
	}
}

// Append adds one value to the tail. Appending never notifies (I4).
func (s *Stream[T]) Append(v *T) {
	s.core.values = append(s.core.values, v)
}

// Extend appends every value produced by seq to the tail.
func (s *Stream[T]) Extend(seq iter.Seq[*T]) {
	for v := range seq {
		s.core.values = append(s.core.values, v)
	}
}

// SetLen grows (padding with none) or shrinks (truncating, with
// before/after notification) the logical length to n.
func (s *Stream[T]) SetLen(n int) {
	if n < 0 {
		panic(fmt.Sprintf("stream: invalid length (%d)", n))
	}
	target := n + s.offset
	cur := len(s.core.values)
	if target > cur {
		s.core.values = append(s.core.values, make([]*T, target-cur)...)
	} else if target < cur {
		s.notify(Truncating, target)
		s.core.values = s.core.values[:target]
		s.notify(Truncate, target)
	}
}

// notify fans a change at absolute backing index absIndex out to every
// handle sharing this core whose cursor has already advanced past it. A
// handle past the change point with no retroactor installed is a
// construction bug: the system fails loud per spec I7.
func (s *Stream[T]) notify(change Change, absIndex int) {
	logicalIndex := absIndex - s.offset
	for _, h := range s.core.handles {
		if logicalIndex < h.pos {
			if h.retroactor == nil {
				panic(fmt.Sprintf("stream: changing already-processed data at index %d", logicalIndex))
			}
			h.retroactor(change, logicalIndex)
		}
	}
}

func valuesEqual[T any](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(*a, *b)
}

// Ptr is a convenience for constructing a non-none stream element inline.
func Ptr[T any](v T) *T {
	return &v
}
