package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"opschat_user"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"opschat_password"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"opschat_db"`

	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort uint16 `env:"REDIS_PORT" envDefault:"6379" validate:"min=1000,max=65535"`

	JwtSecret string `env:"JWT_SECRET" envDefault:"opschat-dev-secret" validate:"min=8"`
	JwtIssuer string `env:"JWT_ISSUER" envDefault:"logistics-backoffice"`

	// Liveness sweep period; an unresponsive socket is closed within two sweeps.
	HeartbeatIntervalSec uint `env:"HEARTBEAT_INTERVAL_SEC" envDefault:"30" validate:"min=1"`
	// Typing indicators auto-expire this long after the last typing:true signal.
	TypingTimeoutSec uint `env:"TYPING_TIMEOUT_SEC" envDefault:"3" validate:"min=1"`

	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8090" validate:"min=1000,max=65535"`
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{}
	// Parse config from environment variables
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	// Validate the config
	validate := validator.New()
	err = validate.Struct(cfg)
	if err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
