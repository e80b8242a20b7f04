package config

import (
	"testing"
	"time"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := FromEnv()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestFromEnvParsesDurationsAndFallsBack(t *testing.T) {
	t.Setenv("PRICE_TABLE_TTL_SECONDS", "90")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "not-a-number")
	t.Setenv("PORT", "9090")

	cfg := FromEnv()
	if cfg.PriceTableTTL() != 90*time.Second {
		t.Fatalf("expected 90s price table ttl, got %s", cfg.PriceTableTTL())
	}
	if cfg.AccessTokenTTL() != 8*time.Hour {
		t.Fatalf("expected default 8h token ttl, got %s", cfg.AccessTokenTTL())
	}
	if cfg.Address() != ":9090" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}

func TestFromEnvRejectsNegativeTableTTL(t *testing.T) {
	t.Setenv("PRICE_TABLE_TTL_SECONDS", "-5")

	if got := FromEnv().PriceTableTTLSeconds; got != 300 {
		t.Fatalf("expected fallback 300, got %d", got)
	}
}
