package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mend/internal/engine"
)

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3")

	out := &bytes.Buffer{}
	cmd := newVersionCmd()
	cmd.SetOut(out)
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "mend version 1.2.3")
}

func TestSetAndGetVersion(t *testing.T) {
	SetVersion("9.9.9")
	assert.Equal(t, "9.9.9", GetVersion())
}

func TestStatusCell(t *testing.T) {
	assert.Contains(t, statusCell(engine.TestReport{Passed: true}), "PASS")
	assert.Contains(t, statusCell(engine.TestReport{Passed: true, Healed: true}), "HEALED")
	assert.Contains(t, statusCell(engine.TestReport{}), "FAIL")
}
