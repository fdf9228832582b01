package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel  string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort  string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	Alias     string `yaml:"alias" env:"ALIAS" env-default:""`
	BoardSize int    `yaml:"board-size" env:"BOARD_SIZE" env-default:"3"`

	MatchService MatchService `yaml:"match-service"`
	Matchmaking  Matchmaking  `yaml:"matchmaking"`
	Sync         Sync         `yaml:"sync"`
	Redis        Redis        `yaml:"redis"`
}

type MatchService struct {
	BaseURL  string        `yaml:"base-url" env:"MATCH_SERVICE_BASE_URL" env-default:"http://localhost:8000"`
	Timeout  time.Duration `yaml:"timeout" env:"MATCH_SERVICE_TIMEOUT" env-default:"10s"`
	RetryMax int           `yaml:"retry-max" env:"MATCH_SERVICE_RETRY_MAX" env-default:"2"`
}

type Matchmaking struct {
	Interval time.Duration `yaml:"interval" env:"MATCHMAKING_INTERVAL" env-default:"2s"`
	// MaxDuration of 0 searches until cancelled.
	MaxDuration time.Duration `yaml:"max-duration" env:"MATCHMAKING_MAX_DURATION" env-default:"0s"`
}

type Sync struct {
	Interval time.Duration `yaml:"interval" env:"SYNC_INTERVAL" env-default:"2s"`
}

// Redis with an empty Host keeps the match cache in memory.
type Redis struct {
	Host string        `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port int           `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	TTL  time.Duration `yaml:"ttl" env:"REDIS_TTL" env-default:"1h"`
}

// MustLoad - loads .env, then config.yml when it exists, then the environment.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	config := &Config{}

	_, statErr := os.Stat(path)

	switch {
	case statErr == nil:
		if err := cleanenv.ReadConfig(path, config); err != nil {
			return nil, fmt.Errorf("unable to load config file: %w", err)
		}
	case errors.Is(statErr, fs.ErrNotExist):
		if err := cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("unable to load config from env: %w", err)
		}
	default:
		return nil, fmt.Errorf("unable to stat config file: %w", statErr)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (that *Config) validate() error {
	if that.MatchService.BaseURL == "" {
		return errors.New("match-service.base-url is required")
	}

	if that.Matchmaking.Interval <= 0 || that.Sync.Interval <= 0 {
		return errors.New("matchmaking and sync intervals must be positive")
	}

	return nil
}
