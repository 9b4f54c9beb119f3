package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.App.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.App.Port)
	}
	if cfg.EventBus.Exchange != "flash_activity" {
		t.Errorf("Unexpected exchange: %s", cfg.EventBus.Exchange)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Unexpected cache ttl: %v", cfg.Cache.TTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("EVENT_BUS_TYPE", "rabbitmq")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.App.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.App.Port)
	}
	if cfg.Cache.TTL != 30*time.Second {
		t.Errorf("Expected ttl 30s, got %v", cfg.Cache.TTL)
	}
	if cfg.EventBus.Type != "rabbitmq" {
		t.Errorf("Expected rabbitmq, got %s", cfg.EventBus.Type)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("Unexpected origins: %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{"missing jwt secret", map[string]string{"JWT_SECRET": ""}},
		{"bad port", map[string]string{"JWT_SECRET": "s", "APP_PORT": "70000"}},
		{"unknown bus", map[string]string{"JWT_SECRET": "s", "EVENT_BUS_TYPE": "kafka"}},
		{"unknown cache", map[string]string{"JWT_SECRET": "s", "CACHE_TYPE": "memcached"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Expected Load to fail")
			}
		})
	}
}
