package internal

import (
	"fmt"
	"time"

	"listing-chat/errors"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	Host       string `env:"HOST,default=localhost"`
	Port       int    `env:"PORT,default=8080"`
	HealthPort int    `env:"HEALTH_PORT,default=8081"`
	LogLevel   string `env:"LOG_LEVEL,default=INFO"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`
	LimitMessages  *int   `env:"LIMIT_MESSAGES"`

	JwtSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	AuthTimeout       time.Duration `env:"AUTH_TIMEOUT,default=0s"`

	AutoReplyDelay time.Duration `env:"AUTO_REPLY_DELAY,default=1500ms"`
	StoreTimeout   time.Duration `env:"STORE_TIMEOUT,default=5s"`

	ConnectionBufferSize int `env:"CONNECTION_BUFFER_SIZE,default=128"`
	MaxContentLength     int `env:"MAX_CONTENT_LENGTH,default=4096"`

	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,default=30s"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
}

// LoadConfig reads an optional .env file then decodes the environment.
// Variables already set in the environment win over the file.
func LoadConfig(files ...string) (Config, error) {
	_ = godotenv.Load(files...)

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("%w: PORT out of range: %d", errors.ErrInvalidConfig, c.Port)
	case c.HealthPort <= 0 || c.HealthPort > 65535:
		return fmt.Errorf("%w: HEALTH_PORT out of range: %d", errors.ErrInvalidConfig, c.HealthPort)
	case c.HealthPort == c.Port:
		return fmt.Errorf("%w: HEALTH_PORT must differ from PORT", errors.ErrInvalidConfig)
	case c.JwtSecret == "":
		return fmt.Errorf("%w: JWT_SECRET is empty", errors.ErrInvalidConfig)
	case c.AutoReplyDelay < 0:
		return fmt.Errorf("%w: AUTO_REPLY_DELAY is negative", errors.ErrInvalidConfig)
	case c.AuthTimeout < 0:
		return fmt.Errorf("%w: AUTH_TIMEOUT is negative", errors.ErrInvalidConfig)
	case c.ConnectionBufferSize <= 0:
		return fmt.Errorf("%w: CONNECTION_BUFFER_SIZE must be positive", errors.ErrInvalidConfig)
	case c.MaxContentLength <= 0:
		return fmt.Errorf("%w: MAX_CONTENT_LENGTH must be positive", errors.ErrInvalidConfig)
	case c.LimitMessages != nil && *c.LimitMessages <= 0:
		return fmt.Errorf("%w: LIMIT_MESSAGES must be positive", errors.ErrInvalidConfig)
	case c.HeartbeatInterval <= 0:
		return fmt.Errorf("%w: HEARTBEAT_INTERVAL must be positive", errors.ErrInvalidConfig)
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) HealthAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HealthPort)
}
