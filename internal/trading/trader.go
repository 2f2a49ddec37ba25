package trading

import (
	"context"
	"log"
	"time"

	"microtrader/internal/microerr"
	"microtrader/internal/operator"
	"microtrader/internal/params"
	"microtrader/internal/stream"
)

// activeRepo is the process-wide sink every TraderOperator writes to,
// matching orderrepo.py's OrderRepo being a class-level singleton rather
// than an instance threaded through the call graph.
var activeRepo *OrderRepo

// SetActiveRepo installs the sink TraderOperators persist orders to. Call
// once at startup, before any Processor using the "trading" config runs a
// chunk.
func SetActiveRepo(repo *OrderRepo) {
	activeRepo = repo
}

// NewTraderOperator builds the operator that watches a divergences stream
// for bearish Class A signals and places a buy order for each one,
// matching trader.py's Trader.calc.
func NewTraderOperator(p map[string]any, streams map[string]stream.AnyStream) (operator.Operator, error) {
	classCode := params.String(p, "classCode", "")
	secCode := params.String(p, "secCode", "")

	divergencesRaw, err := stream.Require[operator.DivergenceInstance](streams, "divergences")
	if err != nil {
		return nil, microerr.Config("TraderOperator", err)
	}
	price, err := stream.Require[float64](streams, "price")
	if err != nil {
		return nil, microerr.Config("TraderOperator", err)
	}
	tm, err := stream.Require[time.Time](streams, "time")
	if err != nil {
		return nil, microerr.Config("TraderOperator", err)
	}

	op := &traderOperator{
		classCode:   classCode,
		secCode:     secCode,
		divergences: divergencesRaw,
		price:       price,
		time:        tm,
	}
	op.divergences.SetRetroactor(op.onRetroaction)
	return op, nil
}

type traderOperator struct {
	classCode, secCode string
	divergences        *stream.Stream[operator.DivergenceInstance]
	price              *stream.Stream[float64]
	time               *stream.Stream[time.Time]
}

func (o *traderOperator) Calc() error {
	for d := range o.divergences.All() {
		if d == nil {
			continue
		}
		t := o.time.Get(d.Index1)
		log.Printf("trading: divergence detected: type=%v class=%v time=%v", d.Type, d.Class, t)

		if d.Type != operator.Divergence || d.Class != operator.ClassA {
			continue
		}
		if activeRepo == nil || t == nil {
			continue
		}
		price := o.price.Get(d.Index1)
		if price == nil {
			continue
		}

		order := Order{
			Time:      *t,
			ClassCode: o.classCode,
			SecCode:   o.secCode,
			Action:    "NEW_ORDER",
			Operation: "B",
			Price:     *price,
			Quantity:  1,
			Type:      "L",
		}
		if err := activeRepo.Add(context.Background(), order); err != nil {
			return err
		}
	}
	return nil
}

func (o *traderOperator) onRetroaction(change stream.Change, index int) {
	if change.IsAfter() {
		o.divergences.SetPos(index)
	}
}
