package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T, verboseMode bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verboseMode)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())
}

func TestVerboseOutput(t *testing.T) {
	buf := capture(t, true)

	Section("Answer Pipeline")
	Debug("retrieved %d fragments", 3)
	Info("using %s", "sqlite")

	assert.Equal(t, "\n=== Answer Pipeline ===\n[DEBUG] retrieved 3 fragments\n[INFO] using sqlite\n", buf.String())
}

func TestQuietSuppressesVerboseOutput(t *testing.T) {
	buf := capture(t, false)

	Section("Answer Pipeline")
	Debug("hidden")
	Info("hidden")

	assert.Empty(t, buf.String())
}

func TestWarnAndErrorAlwaysPrint(t *testing.T) {
	buf := capture(t, false)

	Warn("llm unreachable: %v", "timeout")
	Error("store closed")

	assert.Equal(t, "[WARN] llm unreachable: timeout\n[ERROR] store closed\n", buf.String())
}
