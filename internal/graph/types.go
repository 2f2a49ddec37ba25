// Package graph ties the operator DAGs in internal/operator together into
// named, configurable Processors — the declarative layer described by
// graphs/graphs.py in the original: a ProcessorConfig names its output
// series and the operator wiring that feeds them, and Processor is the live
// instance an HTTP handle holds and feeds chunks of ticks through.
package graph

import (
	"fmt"
	"sync"

	"microtrader/internal/operator"
	"microtrader/internal/stream"
)

// GraphType selects how a collaborator should render one output series.
type GraphType int

const (
	Line GraphType = iota + 1
	Histogram
	Candles
	Bars
	Dotted
	DotDashed
	Dashed
)

const (
	PeakUp   GraphType = 10
	PeakDown GraphType = 11
)

func (t GraphType) String() string {
	switch t {
	case Line:
		return "LINE"
	case Histogram:
		return "HISTOGRAM"
	case Candles:
		return "CANDLES"
	case Bars:
		return "BARS"
	case Dotted:
		return "DOTTED"
	case DotDashed:
		return "DOT_DASHED"
	case Dashed:
		return "DASHED"
	case PeakUp:
		return "PEAK_UP"
	case PeakDown:
		return "PEAK_DOWN"
	default:
		return "UNKNOWN"
	}
}

// GraphConfig names one output series a ProcessorConfig exposes.
type GraphConfig struct {
	Name      string
	Title     string
	GraphType GraphType
}

// NewGraphConfig builds a GraphConfig defaulting Title to name and GraphType
// to Line, matching GraphConfig.__init__'s coalesce-backed defaults.
func NewGraphConfig(name string) GraphConfig {
	return GraphConfig{Name: name, Title: name, GraphType: Line}
}

// WithTitle returns a copy of g with Title overridden.
func (g GraphConfig) WithTitle(title string) GraphConfig {
	g.Title = title
	return g
}

// WithGraphType returns a copy of g with GraphType overridden.
func (g GraphConfig) WithGraphType(t GraphType) GraphConfig {
	g.GraphType = t
	return g
}

// ProcessorConfig is the static, named description of one processing
// pipeline: its output series, its operator DAG, and the parameters that
// drive it.
type ProcessorConfig struct {
	Name            string
	GraphConfigs    []GraphConfig
	OperatorConfigs []operator.OperatorConfig
	DefaultParams   map[string]any
	ConstantParams  map[string]any

	// Intermediates names every stream an OperatorConfig references that is
	// neither an input source (Price/Volume/Time) nor a GraphConfig output —
	// purely internal wiring between top-level operator configs, such as
	// sandbox's maxIndexes/minIndexes. Each entry is a constructor for a
	// fresh, correctly-typed, empty Stream. This has no counterpart in the
	// original, where CompoundOperator allocates any stream name it hasn't
	// seen on demand; see DESIGN.md for why this port requires every stream
	// a config references to be concretely typed up front.
	Intermediates map[string]func() stream.AnyStream
}

var (
	registryMu sync.Mutex
	registry   = map[string]ProcessorConfig{}
)

// Register adds config to the process-wide registry. It panics on a
// duplicate name, matching ProcessorConfigs.add raising a RuntimeError —
// this only ever runs from package init, so a collision is a build-time
// programming error, not a runtime condition to recover from.
func Register(config ProcessorConfig) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[config.Name]; exists {
		panic(fmt.Sprintf("graph: config already registered (%s)", config.Name))
	}
	registry[config.Name] = config
}

// Get looks up a registered ProcessorConfig by name.
func Get(name string) (ProcessorConfig, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	cfg, ok := registry[name]
	return cfg, ok
}
