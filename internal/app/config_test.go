package app

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "s3cret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.deskbase.io,https://admin.deskbase.io")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "8080" || cfg.DatabaseDriver != "postgres" || cfg.JWTIssuer != "deskbase" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.BookingHoldTTL != 15*time.Minute || !cfg.SchedulerEnabled || !cfg.AutoMigrate {
		t.Fatalf("unexpected booking/scheduler defaults: hold=%v scheduler=%v", cfg.BookingHoldTTL, cfg.SchedulerEnabled)
	}
	if cfg.Temporal.Namespace != "deskbase" || cfg.Temporal.Enabled() {
		t.Fatalf("temporal defaults: %+v", cfg.Temporal)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://admin.deskbase.io" {
		t.Fatalf("cors origins: %v", cfg.CORSOrigins)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "missing secret", env: map[string]string{}, want: "JWT_SECRET_KEY"},
		{name: "bad driver", env: map[string]string{"JWT_SECRET_KEY": "x", "DATABASE_DRIVER": "mysql"}, want: "DATABASE_DRIVER"},
		{name: "bad hold ttl", env: map[string]string{"JWT_SECRET_KEY": "x", "BOOKING_HOLD_TTL": "0s"}, want: "BOOKING_HOLD_TTL"},
		{name: "unparsable", env: map[string]string{"JWT_SECRET_KEY": "x", "RATE_LIMIT_BURST": "lots"}, want: "parse env"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET_KEY", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("want error containing %q, got %v", tc.want, err)
			}
		})
	}
}
