package operator

import (
	"testing"
	"time"

	"microtrader/internal/stream"
)

func appendFloats(s *stream.Stream[float64], values ...*float64) {
	for _, v := range values {
		s.Append(v)
	}
}

func ptrf(v float64) *float64 { return stream.Ptr(v) }

func collectFloats(s *stream.Stream[float64]) []*float64 {
	var out []*float64
	for v := range s.All() {
		out = append(out, v)
	}
	return out
}

func requireFloats(t *testing.T, got []*float64, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i] == nil {
			t.Fatalf("value[%d] = none, want %v", i, w)
		}
		if *got[i] != w {
			t.Fatalf("value[%d] = %v, want %v", i, *got[i], w)
		}
	}
}

func TestSmaOperator(t *testing.T) {
	t.Parallel()
	src := stream.New[float64]()
	appendFloats(src, ptrf(1), ptrf(2), ptrf(3), ptrf(4), ptrf(5))
	target := stream.New[float64]()

	op, err := NewSmaOperator(map[string]any{"lag": 3}, map[string]stream.AnyStream{
		"source": src, "target": target,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := op.Calc(); err != nil {
		t.Fatal(err)
	}
	requireFloats(t, collectFloats(stream.Wrap(target)), []float64{1.0, 1.5, 2.0, 3.0, 4.0})
}

func TestSmaOperatorSkipsNoneSamples(t *testing.T) {
	t.Parallel()
	src := stream.New[float64]()
	appendFloats(src, ptrf(1), nil, ptrf(3), ptrf(4))
	target := stream.New[float64]()

	op, err := NewSmaOperator(map[string]any{"lag": 3}, map[string]stream.AnyStream{
		"source": src, "target": target,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := op.Calc(); err != nil {
		t.Fatal(err)
	}
	requireFloats(t, collectFloats(stream.Wrap(target)), []float64{1.0, 1.0, 2.0, 3.5})
}

func TestEmaOperator(t *testing.T) {
	t.Parallel()
	src := stream.New[float64]()
	appendFloats(src, ptrf(1), ptrf(2), ptrf(3), ptrf(4))
	target := stream.New[float64]()

	// alpha = 2/(lag+1) = 0.5 when lag = 3.
	op, err := NewEmaOperator(map[string]any{"lag": 3}, map[string]stream.AnyStream{
		"source": src, "target": target,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := op.Calc(); err != nil {
		t.Fatal(err)
	}
	requireFloats(t, collectFloats(stream.Wrap(target)), []float64{1.0, 1.5, 2.25, 3.125})
}

func TestMinMaxOperator(t *testing.T) {
	t.Parallel()
	src := stream.New[float64]()
	appendFloats(src, ptrf(3), ptrf(1), ptrf(4), ptrf(1), ptrf(5))
	min := stream.New[float64]()
	max := stream.New[float64]()

	op, err := NewMinMaxOperator(map[string]any{"lag": 2}, map[string]stream.AnyStream{
		"source": src, "min": min, "max": max,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := op.Calc(); err != nil {
		t.Fatal(err)
	}
	requireFloats(t, collectFloats(stream.Wrap(min)), []float64{3, 1, 1, 1, 1})
	requireFloats(t, collectFloats(stream.Wrap(max)), []float64{3, 3, 4, 4, 5})
}

func collectInts(s *stream.Stream[int]) []int {
	var out []int
	for v := range s.All() {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func TestCoindexOperatorMatches(t *testing.T) {
	t.Parallel()
	idx1 := stream.New[int]()
	idx2 := stream.New[int]()
	for _, v := range []int{1, 5, 10} {
		idx1.Append(stream.Ptr(v))
	}
	for _, v := range []int{2, 7, 11} {
		idx2.Append(stream.Ptr(v))
	}
	co1 := stream.New[int]()
	co2 := stream.New[int]()

	op, err := NewCoindexOperator(map[string]any{"epsilon": 2}, map[string]stream.AnyStream{
		"indexes1": idx1, "indexes2": idx2, "coindexes1": co1, "coindexes2": co2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := op.Calc(); err != nil {
		t.Fatal(err)
	}

	gotIdx1 := collectInts(stream.Wrap(idx1))
	gotIdx2 := collectInts(stream.Wrap(idx2))
	_ = gotIdx1
	_ = gotIdx2

	got1 := collectInts(stream.Wrap(co1))
	got2 := collectInts(stream.Wrap(co2))
	wantIndexValues1 := []int{1, 5, 10}
	wantIndexValues2 := []int{2, 7, 11}
	if len(got1) != len(wantIndexValues1) || len(got2) != len(wantIndexValues2) {
		t.Fatalf("coindexes1=%v coindexes2=%v, want full match on both sides", got1, got2)
	}
	for i, c := range got1 {
		if c != wantIndexValues1[i] {
			t.Fatalf("coindexes1[%d] = %v, want %v", i, c, wantIndexValues1[i])
		}
	}
	for i, c := range got2 {
		if c != wantIndexValues2[i] {
			t.Fatalf("coindexes2[%d] = %v, want %v", i, c, wantIndexValues2[i])
		}
	}
}

func TestCoindexOperatorNoMatches(t *testing.T) {
	t.Parallel()
	idx1 := stream.New[int]()
	idx2 := stream.New[int]()
	for _, v := range []int{1, 10} {
		idx1.Append(stream.Ptr(v))
	}
	for _, v := range []int{3, 4, 5} {
		idx2.Append(stream.Ptr(v))
	}
	co1 := stream.New[int]()
	co2 := stream.New[int]()

	op, err := NewCoindexOperator(map[string]any{"epsilon": 2}, map[string]stream.AnyStream{
		"indexes1": idx1, "indexes2": idx2, "coindexes1": co1, "coindexes2": co2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := op.Calc(); err != nil {
		t.Fatal(err)
	}
	if co1.Len() != 0 || co2.Len() != 0 {
		t.Fatalf("expected no matches, got coindexes1 len=%d coindexes2 len=%d", co1.Len(), co2.Len())
	}
}

func TestFractalExOperatorPeaksAlternate(t *testing.T) {
	t.Parallel()
	src := stream.New[float64]()
	// A zig-zag with enough run length (width=3 => halfWidth=1) to register
	// alternating extrema without tripping minMaxLag supersession.
	for _, v := range []float64{1, 2, 3, 2, 1, 0, 1, 2, 3} {
		src.Append(ptrf(v))
	}
	maxIdx := stream.New[int]()
	minIdx := stream.New[int]()

	op, err := NewFractalExOperator(map[string]any{"width": 3, "threshold": 0.0, "minMaxLag": 10}, map[string]stream.AnyStream{
		"source": src, "maxIndexes": maxIdx, "minIndexes": minIdx,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := op.Calc(); err != nil {
		t.Fatal(err)
	}

	maxes := collectInts(stream.Wrap(maxIdx))
	mins := collectInts(stream.Wrap(minIdx))
	if len(maxes) == 0 || len(mins) == 0 {
		t.Fatalf("expected at least one peak of each sign, got maxes=%v mins=%v", maxes, mins)
	}

	type peak struct {
		index int
		sign  int
	}
	var peaks []peak
	for _, i := range maxes {
		peaks = append(peaks, peak{i, 1})
	}
	for _, i := range mins {
		peaks = append(peaks, peak{i, -1})
	}
	for i := range peaks {
		for j := i + 1; j < len(peaks); j++ {
			if peaks[j].index < peaks[i].index {
				peaks[i], peaks[j] = peaks[j], peaks[i]
			}
		}
	}
	for i := 1; i < len(peaks); i++ {
		if peaks[i].sign == peaks[i-1].sign {
			t.Fatalf("consecutive peaks %v and %v share a sign", peaks[i-1], peaks[i])
		}
	}
}

func TestDivergenceOperatorDetectsBearishClassA(t *testing.T) {
	t.Parallel()
	idx1 := stream.New[int]()
	src1 := stream.New[float64]()
	idx2 := stream.New[int]()
	src2 := stream.New[float64]()
	tm := stream.New[time.Time]()
	divergences := stream.New[DivergenceInstance]()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 16; i++ {
		tm.Append(stream.Ptr(base.Add(time.Duration(i) * time.Minute)))
	}

	// source1 (e.g. price) peaks rising: 10@5, 12@15.
	src1Values := map[int]float64{5: 10, 15: 12}
	for i := 0; i < 16; i++ {
		if v, ok := src1Values[i]; ok {
			src1.Append(ptrf(v))
		} else {
			src1.Append(ptrf(0))
		}
	}
	// source2 (e.g. RSI) peaks falling: 80@5, 70@15 — classic bearish divergence.
	src2Values := map[int]float64{5: 80, 15: 70}
	for i := 0; i < 16; i++ {
		if v, ok := src2Values[i]; ok {
			src2.Append(ptrf(v))
		} else {
			src2.Append(ptrf(0))
		}
	}
	idx1.Append(stream.Ptr(5))
	idx1.Append(stream.Ptr(15))
	idx2.Append(stream.Ptr(5))
	idx2.Append(stream.Ptr(15))

	op, err := NewDivergenceOperator(map[string]any{"epsilon": 0, "threshold1": 0.0, "threshold2": 0.0}, map[string]stream.AnyStream{
		"indexes1": idx1, "source1": src1, "indexes2": idx2, "source2": src2,
		"time": tm, "divergences": divergences,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := op.Calc(); err != nil {
		t.Fatal(err)
	}

	var found bool
	for d := range stream.Wrap(divergences).All() {
		if d == nil {
			continue
		}
		if d.Type == Divergence && d.Class == ClassA {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a DIVERGENCE/ClassA event")
	}
}

// Retroactive truncation propagation and the no-op-write-is-silent
// guarantee are properties of the Stream primitive itself, not of any
// particular operator; they're covered in internal/stream/stream_test.go.
