package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerWritesComponentAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.InfoLevel, "Engine")

	l.Debug("hidden %d", 1)
	l.Info("closed %s", "5m")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered at info level: %s", out)
	}
	if !strings.Contains(out, `"component":"Engine"`) {
		t.Errorf("missing component field: %s", out)
	}
	if !strings.Contains(out, `"message":"closed 5m"`) {
		t.Errorf("missing formatted message: %s", out)
	}
}

func TestWithRenamesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.DebugLevel, "root").With("Hub")

	l.Warning("slow client")

	if l.Name() != "Hub" {
		t.Errorf("Name() = %q, want Hub", l.Name())
	}
	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("missing warn level: %s", buf.String())
	}
}
