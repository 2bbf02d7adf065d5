package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"loud", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDefaultLoggerRoutingAndFields(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := NewLogger(&out, &errOut, InfoLevel, false)

	component := logger.WithFields(Fields{"component": "test"})
	component.Debug("hidden")
	component.Info("processed", Fields{"file": "a.wav"})
	component.Error(errors.New("boom"), "failed")

	if strings.Contains(out.String(), "hidden") {
		t.Errorf("debug line written below level: %q", out.String())
	}
	if !strings.Contains(out.String(), "[INFO] processed component=test file=a.wav") {
		t.Errorf("unexpected info line: %q", out.String())
	}
	if !strings.Contains(errOut.String(), "[ERROR] failed: boom component=test") {
		t.Errorf("unexpected error line: %q", errOut.String())
	}
}

func TestWithContextFields(t *testing.T) {
	var out bytes.Buffer
	logger := NewLogger(&out, &out, DebugLevel, false)

	ctx := ContextWithFields(context.Background(), Fields{"run": 7})
	logger.WithContext(ctx).Debug("hello")

	if !strings.Contains(out.String(), "run=7") {
		t.Errorf("context fields missing: %q", out.String())
	}
}

func TestFatalCallsExit(t *testing.T) {
	var out bytes.Buffer
	logger := NewLogger(&out, &out, InfoLevel, false)

	code := -1
	logger.exit = func(c int) { code = c }
	logger.Fatal(errors.New("bad"), "stopping")

	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}
