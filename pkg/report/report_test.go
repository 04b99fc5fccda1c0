package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opticflow/pkg/opticflow"
)

func TestReporter_Direction(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, false)

	require.NoError(t, r.Report(&opticflow.Report{Motion: opticflow.Motion{Direction: opticflow.DirDown}}))
	require.NoError(t, r.Report(&opticflow.Report{Motion: opticflow.Motion{Direction: opticflow.DirUpLeft}}))
	assert.Equal(t, "Down\nUp-left\n", buf.String())
}

func TestReporter_UnknownPrintsRawDy(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, false)

	rep := &opticflow.Report{Motion: opticflow.Motion{Sum: opticflow.Point{Y: -120}}}
	require.NoError(t, r.Report(rep))
	assert.Equal(t, "Unknown\nFinal dy=-120\n", buf.String())
}

func TestReporter_NilReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewReporter(&buf, true).Report(nil))
	assert.Empty(t, buf.String())
}

func TestReporter_Verbose(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, true)

	rep := &opticflow.Report{
		Results: []opticflow.FlowResult{
			{Input: opticflow.Pt(80, 45), Output: opticflow.InvalidPoint, Err: opticflow.ErrTrackingAborted},
		},
		Fallback: true,
	}
	require.NoError(t, r.Report(rep))
	out := buf.String()
	assert.Contains(t, out, "feature 0: {Input=(80.000,45.000), Invalid")
	assert.Contains(t, out, "no feature found, tracked center\n")
	assert.Contains(t, out, "Unknown\nFinal dy=0\n")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("port closed") }

func TestReporter_WriteError(t *testing.T) {
	r := NewReporter(failingWriter{}, false)
	err := r.Report(&opticflow.Report{})
	assert.EqualError(t, err, "port closed")
}
