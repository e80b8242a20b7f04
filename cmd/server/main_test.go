package main

import (
	"testing"

	"cctvstore/backend/internal/config"
	"cctvstore/backend/internal/quotation"
	"cctvstore/backend/internal/service"
	"cctvstore/backend/internal/store/memory"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short", AllowedOrigin: "https://shop.example"})
	if err == nil {
		t.Fatalf("expected weak security config to be rejected")
	}
	err = validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", AllowedOrigin: "*"})
	if err == nil {
		t.Fatalf("expected wildcard origin to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", AllowedOrigin: "https://shop.example"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestPriceSourceSelection(t *testing.T) {
	repo := memory.New()

	if _, ok := priceSource(config.Config{PriceTableURL: "https://prices.example/table.json"}, repo).(*quotation.HTTPSource); !ok {
		t.Fatalf("expected remote source when PRICE_TABLE_URL is set")
	}
	if _, ok := priceSource(config.Config{}, repo).(*service.RepositorySource); !ok {
		t.Fatalf("expected repository source by default")
	}
}
