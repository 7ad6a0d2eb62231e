package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"listing-chat/errors"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("BADGER_FILEPATH", t.TempDir())
	t.Setenv("BLUGE_FILEPATH", t.TempDir())
	t.Setenv("JWT_SECRET", "secret")
}

// unset clears a variable for the duration of the test.
func unset(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), ".env")
}

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)
	setRequired(t)
	for _, key := range []string{"PORT", "HEALTH_PORT", "AUTO_REPLY_DELAY", "AUTH_TIMEOUT", "LIMIT_MESSAGES"} {
		unset(t, key)
	}

	config, err := LoadConfig(missingEnvFile(t))
	req.NoError(err)
	req.Equal(8080, config.Port)
	req.Equal(8081, config.HealthPort)
	req.Equal(1500*time.Millisecond, config.AutoReplyDelay)
	req.Zero(config.AuthTimeout)
	req.Nil(config.LimitMessages)
	req.Equal("localhost:8080", config.Address())
}

func TestLoadConfig_Overrides(t *testing.T) {
	req := require.New(t)
	setRequired(t)
	t.Setenv("PORT", "9000")
	t.Setenv("AUTO_REPLY_DELAY", "20ms")
	t.Setenv("AUTH_TIMEOUT", "5s")
	t.Setenv("LIMIT_MESSAGES", "10")

	config, err := LoadConfig(missingEnvFile(t))
	req.NoError(err)
	req.Equal(9000, config.Port)
	req.Equal(20*time.Millisecond, config.AutoReplyDelay)
	req.Equal(5*time.Second, config.AuthTimeout)
	req.NotNil(config.LimitMessages)
	req.Equal(10, *config.LimitMessages)
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	setRequired(t)
	unset(t, "JWT_SECRET")

	_, err := LoadConfig(missingEnvFile(t))
	require.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestLoadConfig_ReadsEnvFile(t *testing.T) {
	req := require.New(t)
	setRequired(t)
	unset(t, "JWT_SECRET")
	t.Cleanup(func() { _ = os.Unsetenv("JWT_SECRET") })

	file := filepath.Join(t.TempDir(), ".env")
	req.NoError(os.WriteFile(file, []byte("JWT_SECRET=from-file\n"), 0o600))

	config, err := LoadConfig(file)
	req.NoError(err)
	req.Equal("from-file", config.JwtSecret)
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		Port: 8080, HealthPort: 8081, JwtSecret: "secret",
		AutoReplyDelay: time.Second, ConnectionBufferSize: 16,
		MaxContentLength: 512, HeartbeatInterval: time.Second,
	}
	require.NoError(t, valid.Validate())

	zero := 0
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"port out of range", func(c *Config) { c.Port = 70000 }},
		{"same ports", func(c *Config) { c.HealthPort = c.Port }},
		{"empty secret", func(c *Config) { c.JwtSecret = "" }},
		{"negative delay", func(c *Config) { c.AutoReplyDelay = -time.Second }},
		{"negative auth timeout", func(c *Config) { c.AuthTimeout = -time.Second }},
		{"no buffer", func(c *Config) { c.ConnectionBufferSize = 0 }},
		{"no content", func(c *Config) { c.MaxContentLength = 0 }},
		{"zero limit", func(c *Config) { c.LimitMessages = &zero }},
		{"no heartbeat", func(c *Config) { c.HeartbeatInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid
			tt.mutate(&config)
			require.ErrorIs(t, config.Validate(), errors.ErrInvalidConfig)
		})
	}
}
