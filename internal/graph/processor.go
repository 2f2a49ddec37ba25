package graph

import (
	"fmt"
	"path"
	"strings"
	"time"

	"microtrader/internal/microerr"
	"microtrader/internal/operator"
	"microtrader/internal/params"
	"microtrader/internal/stream"
)

// Row is one chunk's worth of output for a single selected graph: Offset is
// the logical index, relative to the start of this calcValues call, that
// the first returned value corresponds to — usually 0, but negative when a
// retroactive edit rewound the graph stream's cursor into data already
// returned by a previous call. A nil *Row marks a graph slot the caller's
// (Graphs) filter disabled.
type Row struct {
	Offset int
	Values []*float64
}

// Processor is a live, stateful instance of a ProcessorConfig: it owns the
// Price/Volume/Time input streams, every graph output stream, and the
// CompoundOperator wiring them together, and advances all of it one chunk
// at a time via CalcValues.
type Processor struct {
	configName string
	config     ProcessorConfig
	params     map[string]any

	price  *stream.Stream[float64]
	volume *stream.Stream[float64]
	time   *stream.Stream[time.Time]

	streams      map[string]stream.AnyStream
	graphStreams []*stream.Stream[float64]

	operators *operator.CompoundOperator
}

// New builds a Processor from the named registered config and a caller
// parameter bag. Caller params override the config's DefaultParams, which
// supply every key the caller leaves out; ConstantParams are applied last
// and so can't be overridden by either.
func New(configName string, callerParams map[string]any) (*Processor, error) {
	cfg, ok := Get(configName)
	if !ok {
		return nil, fmt.Errorf("graph: unknown config %q", configName)
	}

	finalParams := params.Merge(params.WithDefaults(callerParams, cfg.DefaultParams), cfg.ConstantParams)

	price := stream.New[float64]()
	volume := stream.New[float64]()
	tm := stream.New[time.Time]()

	streams := map[string]stream.AnyStream{
		"Price":  price,
		"Volume": volume,
		"Time":   tm,
	}

	graphStreamsByName := make(map[string]*stream.Stream[float64], len(cfg.GraphConfigs))
	for _, gc := range cfg.GraphConfigs {
		s := stream.New[float64]()
		graphStreamsByName[gc.Name] = s
		streams[gc.Name] = s
	}

	for name, newStream := range cfg.Intermediates {
		streams[name] = newStream()
	}

	for _, s := range streams {
		s := s
		s.SetRetroactor(func(change stream.Change, index int) {
			if change.IsAfter() {
				s.SetPos(index)
			}
		})
	}

	enabled, disabled := parseGraphGlobs(params.String(finalParams, "(Graphs)", ""))
	graphStreams := make([]*stream.Stream[float64], len(cfg.GraphConfigs))
	for i, gc := range cfg.GraphConfigs {
		if graphSelected(gc.Name, enabled, disabled) {
			graphStreams[i] = graphStreamsByName[gc.Name]
		}
	}

	ops, err := operator.NewCompoundOperator(cfg.OperatorConfigs, finalParams, streams)
	if err != nil {
		return nil, err
	}

	return &Processor{
		configName:   configName,
		config:       cfg,
		params:       finalParams,
		price:        price,
		volume:       volume,
		time:         tm,
		streams:      streams,
		graphStreams: graphStreams,
		operators:    ops,
	}, nil
}

// CopyWithParams builds a fresh Processor for the same config with newParams
// in place of whatever params this instance was built with. Every Stream is
// reinitialized empty: tick history does not carry over, matching the
// original's copyWithParams/re-init-streams contract.
func (p *Processor) CopyWithParams(newParams map[string]any) (*Processor, error) {
	return New(p.configName, newParams)
}

// ConfigName reports the registered ProcessorConfig name this instance was
// built from.
func (p *Processor) ConfigName() string {
	return p.configName
}

// CalcValues extends the Price/Volume/Time streams by one equal-length
// chunk, runs the operator DAG once, and returns one Row per graph slot (in
// GraphConfigs order), nil for disabled slots.
func (p *Processor) CalcValues(price, volume []*float64, times []*time.Time) ([]*Row, error) {
	if len(price) != len(volume) || len(volume) != len(times) {
		return nil, microerr.Paramf("Processor", "input data chunks are of different lengths")
	}

	start := p.price.Len()

	for _, v := range price {
		p.price.Append(v)
	}
	for _, v := range volume {
		p.volume.Append(v)
	}
	for _, v := range times {
		p.time.Append(v)
	}

	for _, s := range p.streams {
		s.SetPos(start)
	}

	if err := p.operators.Calc(); err != nil {
		return nil, err
	}

	length := -1
	for name, s := range p.streams {
		if _, ok := p.config.Intermediates[name]; ok {
			continue
		}
		if length == -1 {
			length = s.Len()
		} else if s.Len() != length {
			panic("graph: processor streams went out of sync")
		}
	}

	rows := make([]*Row, len(p.graphStreams))
	for i, gs := range p.graphStreams {
		if gs == nil {
			continue
		}
		pos := gs.Pos()
		values := make([]*float64, 0, gs.Len()-pos)
		for j := pos; j < gs.Len(); j++ {
			values = append(values, gs.Get(j))
		}
		rows[i] = &Row{Offset: pos - start, Values: values}
	}
	return rows, nil
}

// parseGraphGlobs splits a "(Graphs)" parameter value (comma-separated
// globs, a leading "-" marking an exclusion) into its enabled/disabled
// glob lists.
func parseGraphGlobs(spec string) (enabled, disabled []string) {
	for _, raw := range strings.Split(spec, ",") {
		g := strings.TrimSpace(raw)
		if g == "" {
			continue
		}
		if strings.HasPrefix(g, "-") {
			disabled = append(disabled, strings.TrimSpace(strings.TrimPrefix(g, "-")))
		} else {
			enabled = append(enabled, g)
		}
	}
	return enabled, disabled
}

// graphSelected reports whether name survives the enabled/disabled glob
// lists: excluded if any disabled glob matches, otherwise included if
// enabled is empty or any enabled glob matches.
func graphSelected(name string, enabled, disabled []string) bool {
	for _, g := range disabled {
		if ok, _ := path.Match(g, name); ok {
			return false
		}
	}
	if len(enabled) == 0 {
		return true
	}
	for _, g := range enabled {
		if ok, _ := path.Match(g, name); ok {
			return true
		}
	}
	return false
}
