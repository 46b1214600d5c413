package config

import (
	"strings"
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "logistics"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLModeAndJWTClaims(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected error for production config")
	}
	for _, want := range []string{"DB_SSLMODE", "JWT_ISSUER", "JWT_AUDIENCE"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %q", want, err)
		}
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Audit.Store != AuditStorePostgres {
		t.Fatalf("expected postgres audit store by default, got %q", c.Audit.Store)
	}
	if c.Auth.AccessTokenTTL != 15*time.Minute || c.Auth.LoginPerMinute != 10 || c.Auth.LoginBurst != 5 {
		t.Fatalf("unexpected auth defaults: %+v", c.Auth)
	}
}

func TestValidate_MemoryAuditStoreSkipsDB(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "dev", Port: 8080},
		Auth:  AuthConfig{JWTSecret: "secret"},
		Audit: AuditConfig{Store: AuditStoreMemory},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	c.App.Env = "production"
	c.Auth.JWTIssuer, c.Auth.JWTAudience = "iss", "aud"
	c.Redis = RedisConfig{Host: "redis", Port: 6379}
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "AUDIT_STORE=memory") {
		t.Fatalf("expected memory store to be refused in production, got %v", err)
	}
}

func TestValidate_RejectsUnknownAuditStore(t *testing.T) {
	c := validLocal()
	c.Audit.Store = "s3"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for unknown audit store")
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("AUDIT_STORE", "Memory")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_ACCESS_TTL", "5m")
	t.Setenv("LOGIN_RATE_PER_MINUTE", "3")
	t.Setenv("REDIS_HOST", "")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.App.Port != 9090 || c.Audit.Store != AuditStoreMemory {
		t.Fatalf("unexpected config: %+v", c)
	}
	if c.Auth.AccessTokenTTL != 5*time.Minute || c.Auth.LoginPerMinute != 3 {
		t.Fatalf("unexpected auth config: %+v", c.Auth)
	}
	if c.HTTPAddr() != ":9090" {
		t.Fatalf("unexpected addr %q", c.HTTPAddr())
	}
}

func TestLoad_RejectsNonNumericPort(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "http")
	t.Setenv("JWT_SECRET", "s")
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidate_BootstrapAdminNeedsBothFields(t *testing.T) {
	c := validLocal()
	c.Auth.BootstrapAdmin = "root"
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "BOOTSTRAP_ADMIN") {
		t.Fatalf("expected bootstrap error, got %v", err)
	}

	c.Auth.BootstrapAdminPassword = "pw"
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
