package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DriverSQLite 使用本地 sqlite 文件
	DriverSQLite = "sqlite"
	// DriverPostgres 通过 DATABASE_URL 连接 postgres
	DriverPostgres = "postgres"

	defaultSecretKey = "habittracker-dev-secret"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string        `env:"LISTEN_ADDR"`
	Port              string        `env:"PORT" envDefault:"8080"`
	DatabaseDriver    string        `env:"DB_DRIVER" envDefault:"sqlite"`
	DatabasePath      string        `env:"DATABASE_PATH" envDefault:"habittracker.db"`
	DatabaseURL       string        `env:"DATABASE_URL"`
	SecretKey         string        `env:"SECRET_KEY"`
	TokenTTL          time.Duration `env:"TOKEN_TTL" envDefault:"20m"`
	BcryptCost        int           `env:"BCRYPT_COST"`
	GinMode           string        `env:"GIN_MODE" envDefault:"release"`
	Timezone          string        `env:"APP_TIMEZONE" envDefault:"UTC"`
	SuperRootUserName string        `env:"SUPER_ROOT_USER_NAME"`
	SuperRootPassword string        `env:"SUPER_ROOT_PASSWORD"`
	SuperRootEmail    string        `env:"SUPER_ROOT_EMAIL"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFile           string        `env:"LOG_FILE"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() (AppConfig, error) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.Port = strings.TrimSpace(cfg.Port)
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	cfg.ListenAddr = strings.TrimSpace(cfg.ListenAddr)
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = fmt.Sprintf(":%s", cfg.Port)
	}

	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))
	switch cfg.DatabaseDriver {
	case "", DriverSQLite:
		cfg.DatabaseDriver = DriverSQLite
	case DriverPostgres:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return AppConfig{}, fmt.Errorf("DATABASE_URL is required when DB_DRIVER=%s", DriverPostgres)
		}
	default:
		return AppConfig{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DatabaseDriver)
	}

	cfg.DatabasePath = strings.TrimSpace(cfg.DatabasePath)
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "habittracker.db"
	}

	cfg.SecretKey = strings.TrimSpace(cfg.SecretKey)
	if cfg.SecretKey == "" {
		cfg.SecretKey = defaultSecretKey
	}

	if cfg.TokenTTL <= 0 {
		return AppConfig{}, fmt.Errorf("TOKEN_TTL must be positive, got %s", cfg.TokenTTL)
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return AppConfig{}, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	cfg.GinMode = strings.TrimSpace(cfg.GinMode)
	if cfg.GinMode == "" {
		cfg.GinMode = "release"
	}

	cfg.Timezone = strings.TrimSpace(cfg.Timezone)
	if _, err := cfg.Location(); err != nil {
		return AppConfig{}, err
	}

	cfg.SuperRootUserName = strings.TrimSpace(cfg.SuperRootUserName)
	cfg.SuperRootPassword = strings.TrimSpace(cfg.SuperRootPassword)
	cfg.SuperRootEmail = strings.TrimSpace(cfg.SuperRootEmail)
	cfg.LogLevel = strings.TrimSpace(cfg.LogLevel)
	cfg.LogFile = strings.TrimSpace(cfg.LogFile)

	return cfg, nil
}

// Location 返回计算“今天”所用的时区。
func (c AppConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// UsesDefaultSecret 用于启动时提示未配置 SECRET_KEY。
func (c AppConfig) UsesDefaultSecret() bool {
	return c.SecretKey == defaultSecretKey
}
