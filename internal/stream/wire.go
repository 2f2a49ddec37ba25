package stream

import "fmt"

// Require type-asserts the named entry of streams to *Stream[T] and returns
// a fresh handle wrapping it, or an error naming the offending key on
// mismatch or absence. The Go analogue of the original's unconditional
// `Stream(sources["name"])` at the top of every operator constructor: every
// caller gets its own read cursor and its own retroactor slot onto the
// shared backing buffer, exactly like every other handle in the system.
func Require[T any](streams map[string]AnyStream, name string) (*Stream[T], error) {
	v, ok := streams[name]
	if !ok || v == nil {
		return nil, fmt.Errorf("missing stream %q", name)
	}
	s, ok := v.(*Stream[T])
	if !ok {
		return nil, fmt.Errorf("stream %q has the wrong element type", name)
	}
	return Wrap(s), nil
}

// Optional looks up the named stream, wrapping it if present and correctly
// typed, or handing back a fresh unshared handle otherwise — matching
// Python's `Stream(streams.get("name"))`, which builds a detached stream
// when the key is absent.
func Optional[T any](streams map[string]AnyStream, name string) *Stream[T] {
	v, ok := streams[name]
	if !ok || v == nil {
		return New[T]()
	}
	s, ok := v.(*Stream[T])
	if !ok {
		return New[T]()
	}
	return Wrap(s)
}
