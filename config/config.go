package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/yeremiapane/trashunter/utils"
)

type (
	Config struct {
		HTTP       HTTP
		Log        Log
		DB         DB
		Storage    Storage
		S3         S3
		Classifier Classifier
		Redis      Redis
		Game       Game
		Auth       Auth
	}

	HTTP struct {
		Port            string        `env:"PORT" envDefault:"8000"`
		GinMode         string        `env:"GIN_MODE" envDefault:"debug"`
		CORSOrigins     []string      `env:"CORS_ORIGINS" envDefault:"*"`
		RateLimitRPS    float64       `env:"RATE_LIMIT_RPS" envDefault:"5"`
		RateLimitBurst  int           `env:"RATE_LIMIT_BURST" envDefault:"10"`
		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	}

	Log struct {
		Level string `env:"LOG_LEVEL" envDefault:"info"`
	}

	DB struct {
		Driver string `env:"DB_DRIVER" envDefault:"sqlite"`
		DSN    string `env:"DB_DSN" envDefault:"trashunter.db"`
	}

	Storage struct {
		Driver         string `env:"STORAGE_DRIVER" envDefault:"local"`
		UploadDir      string `env:"UPLOAD_DIR" envDefault:"uploads"`
		PublicBaseURL  string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8000"`
		MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	}

	S3 struct {
		Endpoint  string `env:"S3_ENDPOINT"`
		Region    string `env:"S3_REGION" envDefault:"us-east-1"`
		Bucket    string `env:"S3_BUCKET"`
		AccessKey string `env:"S3_ACCESS_KEY"`
		SecretKey string `env:"S3_SECRET_KEY"`
	}

	Classifier struct {
		EmbedderURL string        `env:"EMBEDDER_URL" envDefault:"http://localhost:9000"`
		Timeout     time.Duration `env:"CLASSIFIER_TIMEOUT" envDefault:"30s"`
		ImageSize   int           `env:"CLASSIFIER_IMAGE_SIZE" envDefault:"224"`
		CacheTTL    time.Duration `env:"CLASSIFIER_CACHE_TTL" envDefault:"24h"`
	}

	Redis struct {
		Addr     string `env:"REDIS_ADDR"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Game struct {
		ProximityRadiusMeters float64 `env:"PROXIMITY_RADIUS_METERS" envDefault:"275"`
		ReportPoints          int     `env:"REPORT_POINTS" envDefault:"50"`
		CleanupPoints         int     `env:"CLEANUP_POINTS" envDefault:"100"`
	}

	Auth struct {
		JWTSecret string `env:"JWT_SECRET"`
	}
)

const devJWTSecret = "trashunter-dev-secret"

// Load reads an optional .env file and parses the environment into a Config.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		utils.InfoLogger.Warnf("Warning: .env file not loaded: %v", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	return cfg, nil
}

// Validate checks cross-field constraints and fills the development JWT
// secret outside release mode.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}

	switch c.Storage.Driver {
	case "local":
		if c.Storage.UploadDir == "" {
			return errors.New("UPLOAD_DIR must not be empty")
		}
	case "s3":
		if c.S3.Endpoint == "" || c.S3.Bucket == "" {
			return errors.New("S3_ENDPOINT and S3_BUCKET are required for the s3 storage driver")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if c.Game.ProximityRadiusMeters <= 0 {
		return errors.New("PROXIMITY_RADIUS_METERS must be positive")
	}

	if c.Auth.JWTSecret == "" {
		if c.HTTP.GinMode == "release" {
			return errors.New("JWT_SECRET is required in release mode")
		}
		c.Auth.JWTSecret = devJWTSecret
	}

	return nil
}
