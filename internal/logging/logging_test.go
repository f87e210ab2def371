package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"geodirectory-sync/internal/config"

	"gopkg.in/natefinch/lumberjack.v2"
)

func TestOutput_Stderr(t *testing.T) {
	if out := Output(config.LoggingConfig{}); out != os.Stderr {
		t.Errorf("expected stderr, got %T", out)
	}
}

func TestOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.log")
	out := Output(config.LoggingConfig{File: path, MaxSizeMB: 1, MaxBackups: 2, MaxAgeDays: 3})

	lj, ok := out.(*lumberjack.Logger)
	if !ok {
		t.Fatalf("expected *lumberjack.Logger, got %T", out)
	}
	defer lj.Close()

	New(out, "geodirectory").Printf("Pushed places.Place remote_id=%s", "abc")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "[geodirectory] ") || !strings.Contains(string(data), "remote_id=abc") {
		t.Errorf("unexpected log content %q", data)
	}
}

func TestNew_Prefix(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "places").Print("hello")

	if !strings.HasPrefix(buf.String(), "[places] ") {
		t.Errorf("unexpected prefix in %q", buf.String())
	}
}
