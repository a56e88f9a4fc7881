package common

import (
	"bytes"
	"github.com/lni/dragonboat/v4/logger"
	"strings"
	"testing"
)

func TestLineLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := newLineLogger("client", &buf)

	l.Debugf("hidden %d", 1)
	l.Infof("shown %d", 2)
	l.SetLevel(logger.ERROR)
	l.Warningf("hidden %d", 3)
	l.Errorf("shown %d", 4)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("message below the level was written:\n%s", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), out)
	}
	if !strings.HasSuffix(lines[0], "INFO  client | shown 2") {
		t.Errorf("unexpected line %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "ERROR client | shown 4") {
		t.Errorf("unexpected line %q", lines[1])
	}
}

func TestLineLoggerPanicf(t *testing.T) {
	var buf bytes.Buffer
	l := newLineLogger("rpc", &buf)
	l.SetLevel(logger.ERROR)

	defer func() {
		if r := recover(); r != "broken 7" {
			t.Errorf("recovered %v, want %q", r, "broken 7")
		}
		if !strings.Contains(buf.String(), "CRIT  rpc | broken 7") {
			t.Errorf("panic was not logged: %q", buf.String())
		}
	}()
	l.Panicf("broken %d", 7)
}

func TestParseLogLevel(t *testing.T) {
	testCases := map[string]logger.LogLevel{
		"debug":   logger.DEBUG,
		"":        logger.INFO,
		"INFO":    logger.INFO,
		"warn":    logger.WARNING,
		"warning": logger.WARNING,
		"error":   logger.ERROR,
	}
	for in, want := range testCases {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = (%v, %v), want %v", in, got, err, want)
		}
	}
	if _, err := ParseLogLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
