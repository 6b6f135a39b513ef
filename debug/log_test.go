package debug

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTraceLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace", "debug.log")
	if err := Enable(path); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if !Enabled() {
		t.Fatalf("expected tracing to be on")
	}

	Log("valve", "mf on at %dms", 120)
	for i := 0; i < 4; i++ {
		LogEvery(2, "velocity", "note %d", i)
	}
	Disable()
	if Enabled() {
		t.Fatalf("expected tracing to be off")
	}
	Log("valve", "dropped after disable")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "mf on at 120ms") {
		t.Fatalf("trace missing Log line:\n%s", out)
	}
	if n := strings.Count(out, "every 2"); n != 2 {
		t.Fatalf("LogEvery wrote %d lines, want 2:\n%s", n, out)
	}
	if strings.Contains(out, "dropped after disable") {
		t.Fatalf("Log wrote after Disable")
	}
}
