package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTIssuer != "authgate" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "authgate")
	}
	if cfg.JWTAudience != "authgate-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "authgate-api")
	}
	if cfg.AccessTTL() != 15*time.Minute {
		t.Errorf("AccessTTL = %v, want 15m", cfg.AccessTTL())
	}
	if cfg.RefreshTTL() != 168*time.Hour {
		t.Errorf("RefreshTTL = %v, want 168h", cfg.RefreshTTL())
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.MaxAttemptsPerWindow != 5 {
		t.Errorf("MaxAttemptsPerWindow = %d, want 5", cfg.MaxAttemptsPerWindow)
	}
	if cfg.Window() != 15*time.Minute {
		t.Errorf("Window = %v, want 15m", cfg.Window())
	}
	if cfg.Lockout() != 15*time.Minute {
		t.Errorf("Lockout = %v, want 15m", cfg.Lockout())
	}
	if cfg.MaxConcurrentSessions != 5 {
		t.Errorf("MaxConcurrentSessions = %d, want 5", cfg.MaxConcurrentSessions)
	}
	if cfg.Retention() != 24*time.Hour {
		t.Errorf("Retention = %v, want 24h", cfg.Retention())
	}
	if cfg.SweepInterval() != time.Hour {
		t.Errorf("SweepInterval = %v, want 1h", cfg.SweepInterval())
	}
	if cfg.AuthEventsTopic != "authgate-events" {
		t.Errorf("AuthEventsTopic = %q, want default", cfg.AuthEventsTopic)
	}
	if got := cfg.KafkaBrokersList(); got != nil {
		t.Errorf("KafkaBrokersList = %v, want nil", got)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "14")
	os.Setenv("MAX_ATTEMPTS_PER_WINDOW", "3")
	os.Setenv("LOCKOUT_DURATION", "30m")
	os.Setenv("KAFKA_BROKERS", "localhost:9092, localhost:9093")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
	if cfg.MaxAttemptsPerWindow != 3 {
		t.Errorf("MaxAttemptsPerWindow = %d, want 3", cfg.MaxAttemptsPerWindow)
	}
	if cfg.Lockout() != 30*time.Minute {
		t.Errorf("Lockout = %v, want 30m", cfg.Lockout())
	}
	brokers := cfg.KafkaBrokersList()
	if len(brokers) != 2 || brokers[0] != "localhost:9092" || brokers[1] != "localhost:9093" {
		t.Errorf("KafkaBrokersList = %v", brokers)
	}
}

func TestLoad_InvalidBcryptCost(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("BCRYPT_COST", "99")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for out-of-range BCRYPT_COST")
	}
}

func TestLoad_InvalidThrottleBounds(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("MAX_ATTEMPTS_PER_WINDOW", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for MAX_ATTEMPTS_PER_WINDOW=0")
	}

	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("MAX_CONCURRENT_SESSIONS", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for MAX_CONCURRENT_SESSIONS=0")
	}
}

func TestDurationFallbacks(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("ACCESS_TOKEN_TTL", "garbage")
	os.Setenv("ATTEMPT_WINDOW", "-5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AccessTTL() != 15*time.Minute {
		t.Errorf("AccessTTL fallback = %v, want 15m", cfg.AccessTTL())
	}
	if cfg.Window() != 15*time.Minute {
		t.Errorf("Window fallback = %v, want 15m", cfg.Window())
	}
}
