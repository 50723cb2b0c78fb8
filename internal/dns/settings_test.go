package dns

import (
	"testing"
	"time"
)

func TestParseSettings_Defaults(t *testing.T) {
	s, err := ParseSettings("test", "https://api.example.com", map[string]string{"api_key": "key123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.APIKey != "key123" {
		t.Errorf("expected api key 'key123', got %q", s.APIKey)
	}
	if s.BaseURL != "https://api.example.com" {
		t.Errorf("expected default base URL, got %q", s.BaseURL)
	}
	if s.Timeout != 10*time.Second {
		t.Errorf("expected default timeout 10s, got %s", s.Timeout)
	}
}

func TestParseSettings_Overrides(t *testing.T) {
	s, err := ParseSettings("test", "https://api.example.com", map[string]string{
		"api_key":  "key123",
		"base_url": "http://127.0.0.1:8080",
		"timeout":  "30s",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.BaseURL != "http://127.0.0.1:8080" {
		t.Errorf("expected base URL override, got %q", s.BaseURL)
	}
	if s.Timeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %s", s.Timeout)
	}
}

func TestParseSettings_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"missing api_key":  {},
		"invalid timeout":  {"api_key": "k", "timeout": "soon"},
		"negative timeout": {"api_key": "k", "timeout": "-1s"},
	}
	for name, settings := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseSettings("test", "https://api.example.com", settings); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}
