package config

import (
	"testing"
	"time"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.StorageBackend != StorageMemory {
		t.Fatalf("expected memory backend, got %q", cfg.StorageBackend)
	}
	if cfg.JWTTTL != 2*time.Hour {
		t.Fatalf("expected 2h ttl, got %s", cfg.JWTTTL)
	}
	if cfg.AppPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.AppPort)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %#v", cfg.CORSOrigins)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			JWTSecret:      "s",
			JWTTTL:         time.Hour,
			StorageBackend: StorageMemory,
		}
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.JWTSecret = "" }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.StorageBackend = "sqlite" }, wantErr: true},
		{name: "mongo without uri", mutate: func(c *Config) { c.StorageBackend = StorageMongo }, wantErr: true},
		{name: "queue without redis", mutate: func(c *Config) { c.NotifyViaQueue = true }, wantErr: true},
		{name: "zero ttl", mutate: func(c *Config) { c.JWTTTL = 0 }, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
