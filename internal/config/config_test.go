package config

import "testing"

func TestValidateDefaultsInvalidPort(t *testing.T) {
	cfg := &Config{Port: 0}
	warnings := cfg.Validate()
	if cfg.Port != defaultPort {
		t.Fatalf("expected default port %d, got %d", defaultPort, cfg.Port)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %d", len(warnings))
	}
}

func TestValidateDefaultsDestinationURL(t *testing.T) {
	cfg := &Config{Port: 8000}
	cfg.Validate()
	if cfg.DestinationURL != defaultDestinationURL {
		t.Fatalf("expected default destination %q, got %q", defaultDestinationURL, cfg.DestinationURL)
	}
}

func TestValidateNormalisesTrailingSlash(t *testing.T) {
	cfg := &Config{Port: 8000, DestinationURL: "https://example.test"}
	cfg.Validate()
	if cfg.DestinationURL != "https://example.test/" {
		t.Fatalf("expected trailing slash, got %q", cfg.DestinationURL)
	}
}

func TestValidateLeavesValidPortAlone(t *testing.T) {
	cfg := &Config{Port: 9090, DestinationURL: "https://chat.example/"}
	warnings := cfg.Validate()
	if cfg.Port != 9090 {
		t.Fatalf("expected port to remain 9090, got %d", cfg.Port)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
}
