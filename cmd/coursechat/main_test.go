package main

import (
	"testing"

	"coursechat/internal/config"
)

func TestParseListen(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"host and port", "127.0.0.1:9000", "127.0.0.1", 9000, false},
		{"empty host defaults to all interfaces", ":8080", "0.0.0.0", 8080, false},
		{"hostname", "chat.internal:443", "chat.internal", 443, false},
		{"missing port", "127.0.0.1", "", 0, true},
		{"non-numeric port", "127.0.0.1:http", "", 0, true},
		{"port out of range", "127.0.0.1:70000", "", 0, true},
		{"zero port", "127.0.0.1:0", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, err := parseListen(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseListen(%q) expected error, got host=%q port=%d", tt.input, host, port)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseListen(%q) unexpected error: %v", tt.input, err)
			}
			if host != tt.wantHost || port != tt.wantPort {
				t.Errorf("parseListen(%q) = (%q, %d), want (%q, %d)", tt.input, host, port, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestBuildLogger_RejectsUnknownLevel(t *testing.T) {
	_, err := buildLogger(&config.LogConfig{Level: "loud"})
	if err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestBuildLogger_AcceptsEveryConfiguredLevel(t *testing.T) {
	for _, level := range []string{"trace", "debug", "info", "warn", "error"} {
		if _, err := buildLogger(&config.LogConfig{Level: level}); err != nil {
			t.Errorf("buildLogger rejected level %q: %v", level, err)
		}
	}
}

func TestBuildLogger_PrettyMode(t *testing.T) {
	if _, err := buildLogger(&config.LogConfig{Level: "info", Pretty: true}); err != nil {
		t.Fatalf("buildLogger with pretty output failed: %v", err)
	}
}
