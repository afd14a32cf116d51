package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingJWTSecret))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Server.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 10, cfg.Server.SignInLimit)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.Expiry)
	assert.Equal(t, "smtp.gmail.com", cfg.Mail.Host)
	assert.Equal(t, 587, cfg.Mail.Port)
	assert.Equal(t, 30*time.Second, cfg.Mail.Timeout)
	assert.False(t, cfg.Mail.Enabled())
	assert.Equal(t, "uploads", cfg.Uploads.Dir)
	assert.Equal(t, 10, cfg.Notify.Threshold)
	assert.Equal(t, TriggerAlways, cfg.Notify.Trigger)
	assert.Equal(t, FailureReport, cfg.Notify.Failure)
	assert.False(t, cfg.Notify.IsolateFailures)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SERVER_ENV", "production")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.test, https://b.test,")
	t.Setenv("NOTIFY_TRIGGER", "CROSSING")
	t.Setenv("NOTIFY_FAILURE", "propagate")
	t.Setenv("NOTIFY_ISOLATE_FAILURES", "true")
	t.Setenv("MAIL_USERNAME", "stock@edstock.test")
	t.Setenv("MAIL_PASSWORD", "app-password")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, TriggerCrossing, cfg.Notify.Trigger)
	assert.Equal(t, FailurePropagate, cfg.Notify.Failure)
	assert.True(t, cfg.Notify.IsolateFailures)
	assert.True(t, cfg.Mail.Enabled())
}

func TestValidate_RejectsUnknownPolicies(t *testing.T) {
	valid := func() *Config {
		return &Config{
			JWT:     JWTConfig{Secret: "s", Expiry: time.Hour},
			Notify:  NotifyConfig{Threshold: 10, Trigger: TriggerAlways, Failure: FailureReport},
			Uploads: UploadsConfig{Dir: "uploads"},
		}
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(c *Config){
		"trigger":   func(c *Config) { c.Notify.Trigger = "sometimes" },
		"failure":   func(c *Config) { c.Notify.Failure = "ignore" },
		"threshold": func(c *Config) { c.Notify.Threshold = 0 },
		"expiry":    func(c *Config) { c.JWT.Expiry = 0 },
		"uploads":   func(c *Config) { c.Uploads.Dir = "" },
		"secret":    func(c *Config) { c.JWT.Secret = "   " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
