package operator

import (
	"microtrader/internal/params"
	"microtrader/internal/stream"
)

// OperatorConfig describes one child operator of a CompoundOperator: Build
// constructs it from a params/streams map already expressed in the child's
// own name space, and ParamMap/StreamMap re-key the parent's name space down
// to the child's (targetKey -> sourceKey, the same convention as
// params.Map).
//
// Unlike the original's CompoundOperator, which dynamically allocates a
// fresh, untyped Stream for every source/target name it hasn't seen before,
// this port requires every stream a child config references — including
// purely-internal intermediates — to already exist, concretely typed, in
// the streams map passed to NewCompoundOperator. In practice every indicator
// built from a CompoundOperator (RSI, MACD, Channel, Slope, Divergence)
// already pre-creates its own intermediate streams before wiring its
// sub-operators, so this is a restatement of the exercised behavior rather
// than a loss of generality; see DESIGN.md.
type OperatorConfig struct {
	Build     func(params map[string]any, streams map[string]stream.AnyStream) (Operator, error)
	ParamMap  map[string]string
	StreamMap map[string]string
}

// CompoundOperator runs a fixed, ordered list of child operators built by
// re-keying a shared parameter/stream name space down to each child's own.
type CompoundOperator struct {
	operators []Operator
}

// NewCompoundOperator builds every child named by configs, in order,
// against params/streams.
func NewCompoundOperator(configs []OperatorConfig, p map[string]any, streams map[string]stream.AnyStream) (*CompoundOperator, error) {
	ops := make([]Operator, 0, len(configs))
	for _, cfg := range configs {
		childParams := p
		if cfg.ParamMap != nil {
			childParams = params.Map(p, cfg.ParamMap)
		}
		childStreams := streams
		if cfg.StreamMap != nil {
			childStreams = params.Map(streams, cfg.StreamMap)
		}
		op, err := cfg.Build(childParams, childStreams)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return &CompoundOperator{operators: ops}, nil
}

// Calc runs every child operator in declared order, stopping at the first
// error.
func (c *CompoundOperator) Calc() error {
	for _, op := range c.operators {
		if err := op.Calc(); err != nil {
			return err
		}
	}
	return nil
}
