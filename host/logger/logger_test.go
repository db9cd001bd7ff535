package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestConsoleLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	InitLogger(Config{Level: InfoLevel, Console: zapcore.AddSync(&buf)})
	defer func() { Logger = nil }()

	Debugf("hidden %d", 1)
	Infof("axis %d ready", 0)
	Warnf("slow tick")
	Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line leaked at info level: %q", out)
	}
	if !strings.Contains(out, "axis 0 ready") || !strings.Contains(out, "WARN") {
		t.Errorf("Expected info and warn lines, got %q", out)
	}
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motorhead.log")
	var console bytes.Buffer

	InitLogger(Config{
		Level:      DebugLevel,
		Color:      true,
		Console:    zapcore.AddSync(&console),
		File:       path,
		MaxSizeMB:  1,
		MaxBackups: 1,
	})
	defer func() { Logger = nil }()

	FirmwareWriter()("[HEAD] axis 0 pan")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "[HEAD] axis 0 pan") {
		t.Errorf("Expected firmware line in file, got %q", data)
	}
	if strings.Contains(string(data), "\x1b[") {
		t.Error("Expected no color codes in the file sink")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug": DebugLevel,
		"info":  InfoLevel,
		"warn":  WarnLevel,
		"error": ErrorLevel,
		"":      InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestNilLoggerIsSilent(t *testing.T) {
	Logger = nil
	Infof("nothing")
	if err := Sync(); err != nil {
		t.Errorf("Sync without logger failed: %v", err)
	}
}
