package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	DatabaseURL       string
	RedisURL          string
	NATSURL           string
	NATSSubject       string
	JWTSecret         string
	SessionTTL        time.Duration
	ReportCacheTTL    time.Duration
	SubmitLockTTL     time.Duration
	SubmitRateLimit   int
	SeedEnabled       bool
	SeedToken         string
	LoginRoute        string
	HomeRoute         string
	PreviousStepRoute string
	CORSAllowOrigins  string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LIFEGPA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Life GPA API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("nats.subject", "lifegpa.baseline.submitted")
	v.SetDefault("session.ttl", "30m")
	v.SetDefault("report.cache_ttl", "5m")
	v.SetDefault("submit.lock_ttl", "30s")
	v.SetDefault("submit.rate_limit", 5)
	v.SetDefault("seed.enabled", false)
	v.SetDefault("routes.login", "/login")
	v.SetDefault("routes.home", "/life-gpa/home")
	v.SetDefault("routes.previous", "/onboarding/categories")
	v.SetDefault("cors.allow_origins", "*")

	sessionTTL, err := parseDuration(v, "session.ttl", 30*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid session ttl: %w", err)
	}

	cacheTTL, err := parseDuration(v, "report.cache_ttl", 5*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid report cache ttl: %w", err)
	}

	lockTTL, err := parseDuration(v, "submit.lock_ttl", 30*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid submit lock ttl: %w", err)
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		DatabaseURL:       v.GetString("database.url"),
		RedisURL:          v.GetString("redis.url"),
		NATSURL:           v.GetString("nats.url"),
		NATSSubject:       v.GetString("nats.subject"),
		JWTSecret:         v.GetString("jwt.secret"),
		SessionTTL:        sessionTTL,
		ReportCacheTTL:    cacheTTL,
		SubmitLockTTL:     lockTTL,
		SubmitRateLimit:   v.GetInt("submit.rate_limit"),
		SeedEnabled:       v.GetBool("seed.enabled"),
		SeedToken:         v.GetString("seed.token"),
		LoginRoute:        v.GetString("routes.login"),
		HomeRoute:         v.GetString("routes.home"),
		PreviousStepRoute: v.GetString("routes.previous"),
		CORSAllowOrigins:  v.GetString("cors.allow_origins"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.SubmitRateLimit <= 0 {
		cfg.SubmitRateLimit = 5
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}
