package graph

import (
	"microtrader/internal/operator"
	"microtrader/internal/stream"
	"microtrader/internal/trading"
)

// init registers the "trading" config. graphs/trading.py in the original
// wires an obsolete Filter-based API (KamaFilter/RsiFilter/FractalExFilter/
// DivergenceFilter, with stream names that don't match the current
// datacalc operator set) so this config is a fresh design carrying the same
// intent: KAMA-smooth the price and the RSI of the price, find peaks on
// each with FractalEx, and look for a divergence between the two peak
// series — feeding a TraderOperator off the result. See DESIGN.md.
func init() {
	Register(ProcessorConfig{
		Name: "trading",
		GraphConfigs: []GraphConfig{
			NewGraphConfig("PriceKama"),
			NewGraphConfig("Rsi"),
			NewGraphConfig("RsiKama"),
		},
		OperatorConfigs: []operator.OperatorConfig{
			{
				Build:     operator.NewRsiOperator,
				ParamMap:  map[string]string{"lag": "rsiLag"},
				StreamMap: map[string]string{"source": "Price", "target": "Rsi"},
			},
			{
				Build: operator.NewKamaOperator,
				ParamMap: map[string]string{
					"kerLag":  "priceKerLag",
					"fastLag": "priceFastLag",
					"slowLag": "priceSlowLag",
				},
				StreamMap: map[string]string{"source": "Price", "target": "PriceKama"},
			},
			{
				Build: operator.NewKamaOperator,
				ParamMap: map[string]string{
					"kerLag":  "rsiKerLag",
					"fastLag": "rsiFastLag",
					"slowLag": "rsiSlowLag",
				},
				StreamMap: map[string]string{"source": "Rsi", "target": "RsiKama"},
			},
			{
				Build: operator.NewFractalExOperator,
				ParamMap: map[string]string{
					"width":     "pricePeakWidth",
					"threshold": "pricePeakThreshold",
					"minMaxLag": "priceMinMaxLag",
				},
				StreamMap: map[string]string{
					"source":     "PriceKama",
					"maxIndexes": "priceMaxIndexes",
					"minIndexes": "priceMinIndexes",
				},
			},
			{
				Build: operator.NewFractalExOperator,
				ParamMap: map[string]string{
					"width":     "rsiPeakWidth",
					"threshold": "rsiPeakThreshold",
					"minMaxLag": "rsiMinMaxLag",
				},
				StreamMap: map[string]string{
					"source":     "RsiKama",
					"maxIndexes": "rsiMaxIndexes",
					"minIndexes": "rsiMinIndexes",
				},
			},
			{
				Build: operator.NewDivergenceOperator,
				ParamMap: map[string]string{
					"epsilon":    "divergenceEpsilon",
					"threshold1": "priceSlopeThreshold",
					"threshold2": "rsiSlopeThreshold",
				},
				StreamMap: map[string]string{
					"indexes1":    "priceMaxIndexes",
					"source1":     "PriceKama",
					"indexes2":    "rsiMaxIndexes",
					"source2":     "RsiKama",
					"time":        "Time",
					"divergences": "Divergences",
				},
			},
			{
				Build:     trading.NewTraderOperator,
				ParamMap:  map[string]string{"classCode": "classCode", "secCode": "secCode"},
				StreamMap: map[string]string{"divergences": "Divergences", "price": "Price", "time": "Time"},
			},
		},
		DefaultParams: map[string]any{
			"(Graphs)":            "PriceKama, RsiKama",
			"rsiLag":              14,
			"priceKerLag":         10,
			"priceFastLag":        2,
			"priceSlowLag":        30,
			"rsiKerLag":           10,
			"rsiFastLag":          2,
			"rsiSlowLag":          30,
			"pricePeakWidth":      5,
			"pricePeakThreshold":  0.0,
			"priceMinMaxLag":      10,
			"rsiPeakWidth":        5,
			"rsiPeakThreshold":    0.0,
			"rsiMinMaxLag":        10,
			"divergenceEpsilon":   2,
			"priceSlopeThreshold": 0.0,
			"rsiSlopeThreshold":   0.0,
			"classCode":           "",
			"secCode":             "",
		},
		Intermediates: map[string]func() stream.AnyStream{
			"priceMaxIndexes": func() stream.AnyStream { return stream.New[int]() },
			"priceMinIndexes": func() stream.AnyStream { return stream.New[int]() },
			"rsiMaxIndexes":   func() stream.AnyStream { return stream.New[int]() },
			"rsiMinIndexes":   func() stream.AnyStream { return stream.New[int]() },
			"Divergences":     func() stream.AnyStream { return stream.New[operator.DivergenceInstance]() },
		},
	})
}
