package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvDev   = "dev"
	EnvProd  = "prod"
	EnvLocal = "local"
)

// AppName names the per-user data directory and the single-instance lock.
const AppName = "TaskTray"

// Config holds process-level settings taken from the environment.
type Config struct {
	Env         string `env:"TASKTRAY_ENV" env-default:"prod"`
	LogLevel    string `env:"TASKTRAY_LOG_LEVEL" env-default:"info"`
	DataDir     string `env:"TASKTRAY_DATA_DIR"`
	ControlAddr string `env:"TASKTRAY_CONTROL_ADDR"`
}

// Reader produces a Config.
type Reader interface {
	Read() (*Config, error)
}

// EnvReader reads Config from the environment and an optional .env file.
type EnvReader struct {
	DotEnvPath string
}

func NewEnvReader() EnvReader {
	return EnvReader{DotEnvPath: ".env"}
}

func (reader EnvReader) Read() (*Config, error) {
	if reader.DotEnvPath != "" {
		if err := godotenv.Load(reader.DotEnvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", reader.DotEnvPath, err)
		}
	}

	cfg := new(Config)
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	switch cfg.Env {
	case EnvDev, EnvProd, EnvLocal:
	default:
		return nil, fmt.Errorf("unknown env: %s", cfg.Env)
	}

	if cfg.DataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return nil, err
		}
		cfg.DataDir = dir
	}
	return cfg, nil
}

// DefaultDataDir returns the OS-standard per-user directory for TaskTray.
func DefaultDataDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err == nil && configDir != "" {
		return filepath.Join(configDir, AppName), nil
	}

	homeDir, homeErr := os.UserHomeDir()
	if homeErr != nil {
		return "", fmt.Errorf("resolve data dir: %w", errors.Join(err, homeErr))
	}
	return filepath.Join(homeDir, ".config", AppName), nil
}
