// Package microerr defines the error taxonomy from spec.md §7: ParamError
// (caller-facing, recoverable), ConfigError (construction-time wiring
// failure), and ValueError (in-stream invariant violation). All three wrap
// an underlying error and are distinguished with errors.As at the HTTP
// boundary.
package microerr

import "fmt"

// ParamError reports an invalid or malformed caller-supplied parameter.
type ParamError struct {
	Op  string
	Err error
}

func (e *ParamError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

func Param(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ParamError{Op: op, Err: err}
}

func Paramf(op, format string, args ...any) error {
	return &ParamError{Op: op, Err: fmt.Errorf(format, args...)}
}

// ConfigError reports a construction-time operator/processor wiring
// failure: a missing stream name, a duplicated operator config, and so on.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func Config(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*ParamError); ok {
		// A ParamError already carries its own category; re-tag with the
		// operator name but keep its kind so the HTTP boundary still maps
		// it to 400.
		return Param(op, err)
	}
	return &ConfigError{Op: op, Err: err}
}

// ValueError reports a validator catching an invariant violation in a
// stream's data (non-monotone index list, overlapping lines).
type ValueError struct {
	Err error
}

func (e *ValueError) Error() string { return e.Err.Error() }
func (e *ValueError) Unwrap() error { return e.Err }

func Value(format string, args ...any) error {
	return &ValueError{Err: fmt.Errorf(format, args...)}
}
