package mapper

import (
	"testing"
	"time"

	"microtrader/internal/stream"
)

func collectFloats(t *testing.T, s *stream.Stream[float64]) []*float64 {
	t.Helper()
	var out []*float64
	for v := range s.All() {
		out = append(out, v)
	}
	return out
}

func TestDeltaFactory(t *testing.T) {
	t.Parallel()
	src := stream.New[float64]()
	for _, v := range []float64{10, 12, 11} {
		src.Append(stream.Ptr(v))
	}
	m, err := DeltaFactory(src, nil)
	if err != nil {
		t.Fatal(err)
	}
	target := stream.New[float64]()
	target.Extend(m.Values())

	got := collectFloats(t, stream.Wrap(target))
	want := []float64{0, 2, -1}
	if got[0] != nil {
		t.Fatalf("first delta should be none, got %v", *got[0])
	}
	for i := 1; i < len(want); i++ {
		if got[i] == nil || *got[i] != want[i] {
			t.Fatalf("delta[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLoPassFactoryFirstValuePassesThrough(t *testing.T) {
	t.Parallel()
	src := stream.New[float64]()
	src.Append(stream.Ptr(5.0))
	src.Append(stream.Ptr(15.0))
	m, err := LoPassFactory(src, map[string]any{"alpha": 0.5})
	if err != nil {
		t.Fatal(err)
	}
	out := stream.New[float64]()
	out.Extend(m.Values())
	got := collectFloats(t, stream.Wrap(out))
	if *got[0] != 5.0 {
		t.Fatalf("y[0] = %v, want 5.0", *got[0])
	}
	if *got[1] != 10.0 {
		t.Fatalf("y[1] = %v, want 10.0", *got[1])
	}
}

func TestLoPassFactoryRejectsOutOfRangeAlpha(t *testing.T) {
	t.Parallel()
	src := stream.New[float64]()
	if _, err := LoPassFactory(src, map[string]any{"alpha": 1.5}); err == nil {
		t.Fatal("expected an error for alpha > 1")
	}
}

func TestIncreaseValidatorPanicsOnNonIncreasing(t *testing.T) {
	t.Parallel()
	src := stream.New[int]()
	src.Append(stream.Ptr(1))
	src.Append(stream.Ptr(1))

	m := IncreaseValidator(src)
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for a non-increasing sequence")
		}
	}()
	for range m.Values() {
	}
}

func TestDayBoundFactory(t *testing.T) {
	t.Parallel()
	src := stream.New[time.Time]()
	day1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC)
	src.Append(stream.Ptr(day1))
	src.Append(stream.Ptr(day2))

	m, err := DayBoundFactory(src, nil)
	if err != nil {
		t.Fatal(err)
	}
	out := stream.New[bool]()
	out.Extend(m.Values())
	var got []bool
	for v := range stream.Wrap(out).All() {
		got = append(got, *v)
	}
	if got[0] != false || got[1] != true {
		t.Fatalf("day bounds = %v, want [false true]", got)
	}
}
