package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{" warn ", zerolog.WarnLevel, false},
		{"ERROR", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"loud", zerolog.NoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInit_FiltersByLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	logger, err := Init("WARN", &buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info().Msg("hidden")
	logger.Warn().Int("rows", 3).Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at WARN: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "rows=") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestInit_RejectsUnknownLevel(t *testing.T) {
	if _, err := Init("chatty", nil); err == nil {
		t.Error("expected error")
	}
}
