package diag

import (
	"io"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// NewStumpyLogger builds a Logger backed by stumpy, the JSON logiface
// backend the pack ships, writing to w (os.Stderr if w is nil) at the
// given level. It is the generic-Event conversion logiface-zerolog's own
// template_test.go uses to hand a backend-specific logger to code that only
// knows about logiface.Event: `stumpy.L.New(...).Logger()`.
func NewStumpyLogger(w io.Writer, level logiface.Level) Logger {
	var opts []stumpy.Option
	if w != nil {
		opts = append(opts, stumpy.WithWriter(w))
	}
	return stumpy.L.New(
		stumpy.L.WithStumpy(opts...),
		stumpy.L.WithLevel(level),
	).Logger()
}
