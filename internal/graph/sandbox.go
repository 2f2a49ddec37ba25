package graph

import (
	"microtrader/internal/operator"
	"microtrader/internal/stream"
)

// init registers the "sandbox" config: MinMax/FractalEx peak detection
// directly over Price, exposing the moving envelope and both accepted and
// superseded peaks as pickable point series. Ported from graphs/sandbox.py.
func init() {
	Register(ProcessorConfig{
		Name: "sandbox",
		GraphConfigs: []GraphConfig{
			NewGraphConfig("MovingMax"),
			NewGraphConfig("MovingMin"),
			NewGraphConfig("Maxs").WithGraphType(PeakUp),
			NewGraphConfig("Mins").WithGraphType(PeakDown),
			NewGraphConfig("DiscardedMaxs").WithGraphType(PeakUp),
			NewGraphConfig("DiscardedMins").WithGraphType(PeakDown),
		},
		OperatorConfigs: []operator.OperatorConfig{
			{
				Build:    operator.NewMinMaxOperator,
				ParamMap: map[string]string{"lag": "m3Lag"},
				StreamMap: map[string]string{
					"source": "Price",
					"max":    "MovingMax",
					"min":    "MovingMin",
				},
			},
			{
				Build: operator.NewFractalExOperator,
				ParamMap: map[string]string{
					"width":     "peakWidth",
					"threshold": "peakThreshold",
					"minMaxLag": "m3Lag",
				},
				StreamMap: map[string]string{
					"source":              "Price",
					"maxIndexes":          "maxIndexes",
					"minIndexes":          "minIndexes",
					"discardedMaxIndexes": "discardedMaxIndexes",
					"discardedMinIndexes": "discardedMinIndexes",
				},
			},
			{
				Build: operator.NewPickOperator,
				StreamMap: map[string]string{
					"source":  "Price",
					"indexes": "maxIndexes",
					"target":  "Maxs",
				},
			},
			{
				Build: operator.NewPickOperator,
				StreamMap: map[string]string{
					"source":  "Price",
					"indexes": "minIndexes",
					"target":  "Mins",
				},
			},
			{
				Build: operator.NewPickOperator,
				StreamMap: map[string]string{
					"source":  "Price",
					"indexes": "discardedMaxIndexes",
					"target":  "DiscardedMaxs",
				},
			},
			{
				Build: operator.NewPickOperator,
				StreamMap: map[string]string{
					"source":  "Price",
					"indexes": "discardedMinIndexes",
					"target":  "DiscardedMins",
				},
			},
		},
		DefaultParams: map[string]any{
			"(Graphs)":      "Maxs, Mins",
			"m3Lag":         30,
			"peakWidth":     3,
			"peakThreshold": 0.0,
		},
		Intermediates: map[string]func() stream.AnyStream{
			"maxIndexes":          func() stream.AnyStream { return stream.New[int]() },
			"minIndexes":          func() stream.AnyStream { return stream.New[int]() },
			"discardedMaxIndexes": func() stream.AnyStream { return stream.New[int]() },
			"discardedMinIndexes": func() stream.AnyStream { return stream.New[int]() },
		},
	})
}
