package logging

import "io"

// NewTest returns a Logger suitable for unit tests: debug level, writing
// to w, or discarded when w is nil.
func NewTest(w io.Writer) Logger {
	if w == nil {
		w = io.Discard
	}

	return New(Options{Level: "debug", Writer: w, Color: false})
}
