package diag

import (
	"bytes"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStumpyLogger_LogsErrorLine(t *testing.T) {
	var buf bytes.Buffer
	log := NewStumpyLogger(&buf, logiface.LevelError)
	require.NotNil(t, log)

	log.Err().Str(`component`, `bundledrefs`).Log(`something went wrong`)

	assert.Contains(t, buf.String(), `something went wrong`)
	assert.Contains(t, buf.String(), `bundledrefs`)
}

func TestAbort_LogsBeforePanicking(t *testing.T) {
	var buf bytes.Buffer
	log := NewStumpyLogger(&buf, logiface.LevelTrace)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		assert.Contains(t, buf.String(), `invariant violated`)
	}()

	Abort(log, `invariant violated`, map[string]int{`a`: 1})
}
