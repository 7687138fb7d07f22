package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestDefaultLoggerIsUsable(t *testing.T) {
	// must not panic before Init
	Named("test").Info("discarded", zap.Int("n", 1))
	Sugar.Debugf("discarded %d", 2)
}

func TestFileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "test.log")

	cfg := FileConfig{
		Path:       logFile,
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
	}
	if err := InitWithFileConfig("debug", cfg, false); err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	defer InitWithFileConfig("info", FileConfig{}, false)

	Named("cache").Debug("evicted", zap.String("path", "chara/a.mdl"))
	Sync()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	line := string(data)
	for _, want := range []string{"DEBUG", "[cache]", "evicted", "chara/a.mdl"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q does not contain %q", line, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for in, out := range map[string]string{
		"debug": "debug", "warn": "warn", "error": "error", "": "info", "verbose": "info",
	} {
		if got := parseLevel(in).String(); got != out {
			t.Errorf("parseLevel(%q)=%q; expected %q", in, got, out)
		}
	}
}

func TestSetLevelReachesExistingLoggers(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "level.log")
	if err := InitWithFileConfig("info", FileConfig{Path: logFile, MaxSizeMB: 1}, false); err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	defer InitWithFileConfig("info", FileConfig{}, false)

	log := Named("composer")
	log.Debug("hidden")
	SetLevel("debug")
	if Level().String() != "debug" {
		t.Fatalf("level is %q", Level())
	}
	log.Debug("shown")
	Sync()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if out := string(data); strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected log output %q", out)
	}
}
