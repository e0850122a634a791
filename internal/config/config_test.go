package config

import (
	"os"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!!")
	os.Setenv("DB_PASSWORD", "test")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Database.Name != "openshelf" {
		t.Errorf("Database.Name: got %q, want %q", cfg.Database.Name, "openshelf")
	}
	if cfg.Auth.AccessTokenExpiry != 15*time.Minute {
		t.Errorf("AccessTokenExpiry: got %v, want %v", cfg.Auth.AccessTokenExpiry, 15*time.Minute)
	}
	if cfg.Cleanup.Interval != 1*time.Hour {
		t.Errorf("Cleanup.Interval: got %v, want %v", cfg.Cleanup.Interval, 1*time.Hour)
	}
	if cfg.Cleanup.ResolvedRetention != 30*24*time.Hour {
		t.Errorf("Cleanup.ResolvedRetention: got %v, want %v", cfg.Cleanup.ResolvedRetention, 30*24*time.Hour)
	}
	if cfg.Email.FromAddress != "" {
		t.Errorf("Email.FromAddress: got %q, want empty", cfg.Email.FromAddress)
	}
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() without JWT_SECRET should fail")
	}
}

func TestLoad_MissingDBPassword(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!!")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() without DB_PASSWORD should fail")
	}
}

func TestLoad_WeakJWTSecretInProduction(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", "short-secret-17ch")
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("ENV", "production")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() with a short secret in production should fail")
	}
}

func TestLoad_CleanupOverrides(t *testing.T) {
	setRequiredEnv(t)
	os.Setenv("CLEANUP_INTERVAL", "30m")
	os.Setenv("RESOLVED_REQUEST_RETENTION", "168h")
	os.Setenv("NOTIFICATION_RETENTION", "720h")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Cleanup.Interval != 30*time.Minute {
		t.Errorf("Cleanup.Interval: got %v, want %v", cfg.Cleanup.Interval, 30*time.Minute)
	}
	if cfg.Cleanup.ResolvedRetention != 168*time.Hour {
		t.Errorf("Cleanup.ResolvedRetention: got %v, want %v", cfg.Cleanup.ResolvedRetention, 168*time.Hour)
	}
	if cfg.Cleanup.NotificationRetention != 720*time.Hour {
		t.Errorf("Cleanup.NotificationRetention: got %v, want %v", cfg.Cleanup.NotificationRetention, 720*time.Hour)
	}
}

func TestLoad_TrustedProxies(t *testing.T) {
	setRequiredEnv(t)
	os.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 172.16.0.0/12")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	want := []string{"10.0.0.0/8", "172.16.0.0/12"}
	if len(cfg.Server.TrustedProxies) != len(want) {
		t.Fatalf("TrustedProxies: got %v, want %v", cfg.Server.TrustedProxies, want)
	}
	for i := range want {
		if cfg.Server.TrustedProxies[i] != want[i] {
			t.Errorf("TrustedProxies[%d]: got %q, want %q", i, cfg.Server.TrustedProxies[i], want[i])
		}
	}
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	setRequiredEnv(t)
	os.Setenv("SERVER_READ_TIMEOUT", "not-a-duration")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("ReadTimeout with invalid value: got %v, want %v", cfg.Server.ReadTimeout, 15*time.Second)
	}
}
