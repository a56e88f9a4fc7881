package util

import (
	"github.com/spf13/viper"
	"strings"
	"testing"
	"time"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 40)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("line longer than %d: %q", Wrap, line)
		}
	}
	if got := WrapString("  short   text "); got != "short text" {
		t.Errorf("WrapString collapsed to %q", got)
	}
}

func TestParseProperties(t *testing.T) {
	props, err := ParseProperties([]string{"command=sleep 10", "env=A=1;B=2", "private="})
	if err != nil {
		t.Fatalf("ParseProperties failed: %v", err)
	}
	want := map[string]string{"command": "sleep 10", "env": "A=1;B=2", "private": ""}
	for k, v := range want {
		if props[k] != v {
			t.Errorf("props[%s] = %q, want %q", k, props[k], v)
		}
	}

	for _, bad := range []string{"novalue", "=x"} {
		if _, err := ParseProperties([]string{bad}); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		err  bool
	}{
		{"", -1, false},
		{"-1", -1, false},
		{"0s", 0, false},
		{"1500ms", 1500 * time.Millisecond, false},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ParseDuration(%q) error = %v", tt.in, err)
			continue
		}
		if !tt.err && got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGetSerializer(t *testing.T) {
	t.Cleanup(viper.Reset)

	for _, name := range []string{"protobuf", "json", ""} {
		viper.Set("serializer", name)
		if _, err := GetSerializer(); err != nil {
			t.Errorf("GetSerializer(%q) failed: %v", name, err)
		}
	}

	viper.Set("serializer", "gob")
	if _, err := GetSerializer(); err == nil {
		t.Error("expected error for unknown serializer")
	}
}

func TestGetClientConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("socket", "/tmp/test.socket")
	viper.Set("timeout", 7)
	viper.Set("connect-retry", 20)
	viper.Set("log-level", "debug")

	config := GetClientConfig()
	if config.SocketPath != "/tmp/test.socket" || config.TimeoutSecond != 7 || config.ConnectRetryMs != 20 {
		t.Errorf("unexpected config: %+v", config)
	}
	if !config.AutoReconnect {
		t.Error("AutoReconnect should default to true")
	}
	if config.Timeout() != 7*time.Second {
		t.Errorf("Timeout() = %v", config.Timeout())
	}
}
