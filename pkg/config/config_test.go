package config

import (
	"strings"
	"testing"
)

func TestEnsureDSNFromParts(t *testing.T) {
	cfg := DBConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "learnloom",
		Password: "s3cret/pw",
		Name:     "learnloom",
		SSLMode:  "disable",
	}
	if err := cfg.ensureDSN(); err != nil {
		t.Fatalf("ensureDSN: %v", err)
	}
	if !strings.HasPrefix(cfg.DSN, "postgres://learnloom:") {
		t.Fatalf("unexpected dsn %q", cfg.DSN)
	}
	if !strings.Contains(cfg.DSN, "sslmode=disable") {
		t.Fatalf("dsn missing sslmode: %q", cfg.DSN)
	}
	if strings.Contains(cfg.DSN, "s3cret/pw") {
		t.Fatalf("password should be url-escaped: %q", cfg.DSN)
	}
}

func TestEnsureDSNPrefersExplicit(t *testing.T) {
	cfg := DBConfig{DSN: "postgres://u@h/db"}
	if err := cfg.ensureDSN(); err != nil {
		t.Fatalf("ensureDSN: %v", err)
	}
	if cfg.DSN != "postgres://u@h/db" {
		t.Fatalf("explicit dsn was rewritten: %q", cfg.DSN)
	}
}

func TestEnsureDSNRequiresParts(t *testing.T) {
	cfg := DBConfig{Host: "localhost"}
	if err := cfg.ensureDSN(); err == nil {
		t.Fatal("expected error when user/name missing")
	}
}

func TestAppEnvHelpers(t *testing.T) {
	if !(AppConfig{Env: "Development"}).IsDev() {
		t.Fatal("IsDev should be case-insensitive")
	}
	if !(AppConfig{Env: "production"}).IsProd() {
		t.Fatal("IsProd failed")
	}
	if (AppConfig{Env: "production"}).IsDev() {
		t.Fatal("prod is not dev")
	}
}

func TestStripeEnvironmentNormalization(t *testing.T) {
	if got := (StripeConfig{Env: " Live "}).Environment(); got != "live" {
		t.Fatalf("Environment() = %q", got)
	}
	if got := (StripeConfig{}).Environment(); got != "test" {
		t.Fatalf("default Environment() = %q", got)
	}
}
