package stream

import "testing"

func appendFloats(s *Stream[float64], values ...*float64) {
	for _, v := range values {
		s.Append(v)
	}
}

func ptrf(v float64) *float64 { return Ptr(v) }

// TestRetroactiveTruncationPropagatesThroughDescendants models the two-stage
// chain an operator graph builds: an operator reads src through its own
// handle and writes derived values into sma; a second operator reads sma
// through its own handle and writes into sma2. Truncating src must reach
// both descendant streams, each via the retroactor the reading operator
// would install on its source handle to keep its output in sync.
func TestRetroactiveTruncationPropagatesThroughDescendants(t *testing.T) {
	t.Parallel()
	src := New[float64]()
	appendFloats(src, ptrf(1), ptrf(2), ptrf(3), ptrf(4), ptrf(5))

	sma := New[float64]()
	appendFloats(sma, ptrf(1), ptrf(1.5), ptrf(2), ptrf(3), ptrf(4))

	sma2 := New[float64]()
	appendFloats(sma2, ptrf(1), ptrf(1.25), ptrf(1.75), ptrf(2.5), ptrf(3.5))

	// The handle an operator reading src would hold, with its cursor run
	// all the way to the tail — exactly the state it's in right after
	// Calc() finishes computing sma.
	srcReader := Wrap(src)
	for range srcReader.All() {
	}
	srcReader.SetRetroactor(func(change Change, index int) {
		if change.IsAfter() {
			srcReader.SetPos(index)
			sma.SetLen(index)
		}
	})

	smaReader := Wrap(sma)
	for range smaReader.All() {
	}
	smaReader.SetRetroactor(func(change Change, index int) {
		if change.IsAfter() {
			smaReader.SetPos(index)
			sma2.SetLen(index)
		}
	})

	if sma.Len() != 5 || sma2.Len() != 5 {
		t.Fatalf("expected both descendant streams fully populated before truncation")
	}

	src.SetLen(2)
	if sma.Len() != 2 {
		t.Fatalf("sma.Len() = %d after truncation, want 2", sma.Len())
	}
	if sma2.Len() != 2 {
		t.Fatalf("sma2.Len() = %d after truncation, want 2", sma2.Len())
	}
}

// TestNoOpWriteIsSilent checks that Set refuses to notify when the written
// value equals what's already there, per Stream's valuesEqual guard.
func TestNoOpWriteIsSilent(t *testing.T) {
	t.Parallel()
	src := New[float64]()
	appendFloats(src, ptrf(1), ptrf(2), ptrf(3))

	notified := false

	// Advance a second handle's cursor past every element so it would be
	// notified by any real change written through src.
	reader := Wrap(src)
	reader.SetRetroactor(func(Change, int) {
		notified = true
	})
	for range reader.All() {
	}

	src.Set(1, ptrf(2)) // same value already at index 1: must not notify.
	if notified {
		t.Fatal("writing an equal value should not trigger a retroaction")
	}

	src.Set(1, ptrf(99))
	if !notified {
		t.Fatal("writing a different value should trigger a retroaction")
	}
}

// TestSetLenGrowsWithNonePadding checks that extending a stream via SetLen
// pads the new tail with none values rather than zero values.
func TestSetLenGrowsWithNonePadding(t *testing.T) {
	t.Parallel()
	s := New[float64]()
	appendFloats(s, ptrf(1), ptrf(2))
	s.SetLen(4)

	if s.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", s.Len())
	}
	if v := s.Get(2); v != nil {
		t.Fatalf("Get(2) = %v, want none", *v)
	}
	if v := s.Get(3); v != nil {
		t.Fatalf("Get(3) = %v, want none", *v)
	}
}

// TestGetNegativeIndex checks that Get resolves negative indices from the
// end of the stream, as Python slicing does.
func TestGetNegativeIndex(t *testing.T) {
	t.Parallel()
	s := New[float64]()
	appendFloats(s, ptrf(10), ptrf(20), ptrf(30))

	if v := s.Get(-1); v == nil || *v != 30 {
		t.Fatalf("Get(-1) = %v, want 30", v)
	}
	if v := s.Get(-3); v == nil || *v != 10 {
		t.Fatalf("Get(-3) = %v, want 10", v)
	}
}

// TestUnguardedRetroactionPanics checks that writing into the past on a
// handle whose cursor has already advanced beyond the write index panics
// when that handle has no retroactor installed — the fatal, unrecoverable
// condition an operator that doesn't support retroaction relies on to
// surface a misuse rather than silently compute garbage.
func TestUnguardedRetroactionPanics(t *testing.T) {
	t.Parallel()
	s := New[float64]()
	appendFloats(s, ptrf(1), ptrf(2), ptrf(3))

	reader := Wrap(s)
	for range reader.All() {
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic writing behind an unguarded cursor")
		}
	}()
	s.Set(1, ptrf(99))
}
