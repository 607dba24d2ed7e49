package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/labstack/gommon/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    log.Lvl
		wantErr bool
	}{
		{"debug", log.DEBUG, false},
		{"INFO", log.INFO, false},
		{"", log.INFO, false},
		{"warn", log.WARN, false},
		{" error ", log.ERROR, false},
		{"off", log.OFF, false},
		{"verbose", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("vessel", &buf, "warn")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Infof("hidden %d", 1)
	logger.Warnf("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Info message should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "shown 2") || !strings.Contains(out, "vessel") {
		t.Errorf("Expected prefixed warn message, got %q", out)
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("vessel", &bytes.Buffer{}, "loud"); err == nil {
		t.Error("Expected error for unknown level")
	}
}
