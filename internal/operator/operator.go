// Package operator implements the calc-step contract from spec.md §4.3: an
// Operator wraps a fixed set of input/output streams and a parameter map,
// and advances every output stream by however much its inputs have grown
// since the last call.
package operator

import "microtrader/internal/microerr"

// Operator is anything that can be stepped forward over newly appended
// stream data. Construction (which streams, which params) happens once, in
// each concrete operator's constructor; only Calc runs per chunk.
type Operator interface {
	Calc() error
}

// guardValueErrors runs fn, recovering a panic carrying a *microerr.ValueError
// (raised by a mapper.SequenceValidator or an index/line validator) into a
// normal error return. Any other panic is a construction bug or an
// unguarded retroaction and is re-raised.
func guardValueErrors(fn func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if ve, ok := r.(*microerr.ValueError); ok {
			err = ve
			return
		}
		panic(r)
	}()
	fn()
	return nil
}
