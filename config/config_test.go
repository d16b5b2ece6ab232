package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("PORT", "")
	t.Setenv("ORDER_SEQUENCE", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("RECEIPT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr())
	}
	if cfg.OrderSequence != SequenceMongo {
		t.Errorf("OrderSequence = %q, want mongo", cfg.OrderSequence)
	}
	if len(cfg.JWTSecret) == 0 {
		t.Error("expected generated JWT secret")
	}
	if string(cfg.ReceiptSecret) != string(cfg.JWTSecret) {
		t.Error("receipt secret should fall back to JWT secret")
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Errorf("AllowedOrigins = %v, want none", cfg.AllowedOrigins)
	}
}

func TestLoadRequiresJWTSecretOutsideDevelopment(t *testing.T) {
	for _, env := range []string{"", "production", "staging"} {
		t.Setenv("APP_ENV", env)
		t.Setenv("JWT_SECRET", "")
		if _, err := Load(); err == nil {
			t.Errorf("APP_ENV=%q: expected error without JWT_SECRET", env)
		}
	}

	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "shared-secret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(cfg.JWTSecret) != "shared-secret" || cfg.Env != "production" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsWildcardOrigins(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	for _, v := range []string{"*", "https://shop.example,*", "https://*.example"} {
		t.Setenv("ALLOWED_ORIGINS", v)
		if _, err := Load(); err == nil {
			t.Errorf("ALLOWED_ORIGINS=%q accepted", v)
		}
	}
}

func TestLoadRejectsRedisSequenceWithoutAddr(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("ORDER_SEQUENCE", "redis")
	t.Setenv("REDIS_ADDR", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when ORDER_SEQUENCE=redis without REDIS_ADDR")
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("PORT", "http")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric PORT")
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.example , ,https://b.example")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("splitList = %#v", got)
	}
}
