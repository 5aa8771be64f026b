package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("LIFEGPA_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "Life GPA API", cfg.AppName)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, 30*time.Minute, cfg.SessionTTL)
	require.Equal(t, 5*time.Minute, cfg.ReportCacheTTL)
	require.Equal(t, 30*time.Second, cfg.SubmitLockTTL)
	require.Equal(t, 5, cfg.SubmitRateLimit)
	require.Equal(t, "/login", cfg.LoginRoute)
	require.Equal(t, "/life-gpa/home", cfg.HomeRoute)
	require.Equal(t, "/onboarding/categories", cfg.PreviousStepRoute)
	require.Equal(t, "lifegpa.baseline.submitted", cfg.NATSSubject)
	require.False(t, cfg.SeedEnabled)
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("LIFEGPA_JWT_SECRET", "secret")
	t.Setenv("LIFEGPA_APP_PORT", ":9090")
	t.Setenv("LIFEGPA_SESSION_TTL", "10m")
	t.Setenv("LIFEGPA_ROUTES_HOME", "/home")
	t.Setenv("LIFEGPA_SEED_ENABLED", "true")
	t.Setenv("LIFEGPA_SEED_TOKEN", "seed-token")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, 10*time.Minute, cfg.SessionTTL)
	require.Equal(t, "/home", cfg.HomeRoute)
	require.True(t, cfg.SeedEnabled)
	require.Equal(t, "seed-token", cfg.SeedToken)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("LIFEGPA_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("LIFEGPA_JWT_SECRET", "secret")
	t.Setenv("LIFEGPA_SESSION_TTL", "soon")

	_, err := Load()
	require.ErrorContains(t, err, "invalid session ttl")
}
