package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestVerboseGate(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SetVerbose(false)
	Debugf("hidden %d", 1)
	Info("shown")
	SetVerbose(true)
	Debug("visible")
	SetVerbose(false)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line written while verbose off: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "visible") {
		t.Errorf("missing expected lines: %q", out)
	}
}
