package graph

import (
	"testing"
	"time"

	"microtrader/internal/stream"
)

func ptrf(v float64) *float64 { return stream.Ptr(v) }

func chunk(values ...float64) ([]*float64, []*float64, []*time.Time) {
	price := make([]*float64, len(values))
	volume := make([]*float64, len(values))
	times := make([]*time.Time, len(values))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		price[i] = ptrf(v)
		volume[i] = ptrf(1)
		t := base.Add(time.Duration(i) * time.Second)
		times[i] = &t
	}
	return price, volume, times
}

// TestSandboxProcessorChunking checks that feeding the same ticks in one
// chunk versus several smaller chunks produces identical peak detections —
// the chunk-size independence the operator DAG is built to guarantee.
func TestSandboxProcessorChunking(t *testing.T) {
	t.Parallel()
	values := []float64{1, 3, 5, 3, 1, 0, 2, 4, 6, 4, 2, 1, 3, 5, 7}

	whole, err := New("sandbox", map[string]any{"m3Lag": 3, "peakWidth": 3, "(Graphs)": "Maxs, Mins"})
	if err != nil {
		t.Fatal(err)
	}
	price, volume, times := chunk(values...)
	wholeRows, err := whole.CalcValues(price, volume, times)
	if err != nil {
		t.Fatal(err)
	}

	split, err := New("sandbox", map[string]any{"m3Lag": 3, "peakWidth": 3, "(Graphs)": "Maxs, Mins"})
	if err != nil {
		t.Fatal(err)
	}
	var splitMaxs, splitMins []*float64
	for i := 0; i < len(values); i += 4 {
		end := i + 4
		if end > len(values) {
			end = len(values)
		}
		p, v, tm := chunk(values[i:end]...)
		rows, err := split.CalcValues(p, v, tm)
		if err != nil {
			t.Fatal(err)
		}
		// A negative Offset rewinds into values an earlier chunk returned.
		splitMaxs = append(splitMaxs[:len(splitMaxs)+rows[2].Offset], rows[2].Values...)
		splitMins = append(splitMins[:len(splitMins)+rows[3].Offset], rows[3].Values...)
	}

	wholeMaxs := wholeRows[2].Values
	wholeMins := wholeRows[3].Values
	if len(wholeMaxs) != len(splitMaxs) {
		t.Fatalf("Maxs length = %d chunked vs %d whole", len(splitMaxs), len(wholeMaxs))
	}
	for i := range wholeMaxs {
		if !sameOptional(wholeMaxs[i], splitMaxs[i]) {
			t.Fatalf("Maxs[%d] = %v chunked, want %v", i, deref(splitMaxs[i]), deref(wholeMaxs[i]))
		}
	}
	if len(wholeMins) != len(splitMins) {
		t.Fatalf("Mins length = %d chunked vs %d whole", len(splitMins), len(wholeMins))
	}
	for i := range wholeMins {
		if !sameOptional(wholeMins[i], splitMins[i]) {
			t.Fatalf("Mins[%d] = %v chunked, want %v", i, deref(splitMins[i]), deref(wholeMins[i]))
		}
	}
}

// TestSandboxProcessorGraphsFilterDisablesSlots checks that a "(Graphs)"
// selection excluding a series yields a nil Row for it while still
// computing the selected ones.
func TestSandboxProcessorGraphsFilterDisablesSlots(t *testing.T) {
	t.Parallel()
	p, err := New("sandbox", map[string]any{"(Graphs)": "MovingMax, MovingMin"})
	if err != nil {
		t.Fatal(err)
	}
	price, volume, times := chunk(1, 2, 3, 4, 5)
	rows, err := p.CalcValues(price, volume, times)
	if err != nil {
		t.Fatal(err)
	}

	cfg, _ := Get("sandbox")
	for i, gc := range cfg.GraphConfigs {
		switch gc.Name {
		case "MovingMax", "MovingMin":
			if rows[i] == nil {
				t.Fatalf("%s: expected an enabled row, got nil", gc.Name)
			}
		default:
			if rows[i] != nil {
				t.Fatalf("%s: expected a disabled (nil) row, got %+v", gc.Name, rows[i])
			}
		}
	}
}

func sameOptional(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func deref(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
