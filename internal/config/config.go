package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/claude/liftplan/internal/calories"
	"github.com/claude/liftplan/internal/schedule"
	"github.com/claude/liftplan/internal/storage"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Log       LogConfig       `yaml:"log"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Calories  CaloriesConfig  `yaml:"calories"`
	Catalog   CatalogConfig   `yaml:"catalog"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Database drivers.
const (
	DriverPostgres = storage.DriverPostgres
	DriverSQLite   = storage.DriverSQLite
	DriverMemory   = storage.DriverMemory
)

type DatabaseConfig struct {
	Driver     string `yaml:"driver"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Name       string `yaml:"name"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	SSLMode    string `yaml:"sslmode"`
	Path       string `yaml:"path"` // SQLite file for the sqlite driver
	Migrations string `yaml:"migrations"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type ScheduleConfig struct {
	HorizonMonths   int    `yaml:"horizon_months"`
	MonthOverflow   string `yaml:"month_overflow"`
	SaveConcurrency int    `yaml:"save_concurrency"`
	Salt            string `yaml:"salt"`
}

// CaloriesConfig overrides the estimator defaults. Zero values keep the default.
type CaloriesConfig struct {
	BaseRate           float64  `yaml:"base_rate"`
	CardioBonus        float64  `yaml:"cardio_bonus"`
	StrengthBonus      float64  `yaml:"strength_bonus"`
	CardioCategories   []string `yaml:"cardio_categories"`
	CardioKeywords     []string `yaml:"cardio_keywords"`
	StrengthCategories []string `yaml:"strength_categories"`
}

type CatalogConfig struct {
	Path string `yaml:"path"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// SlogLevel maps log.level to a slog level, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Expander builds the recurrence expander for this config.
func (s ScheduleConfig) Expander() (schedule.Expander, error) {
	policy, err := schedule.ParseOverflowPolicy(s.MonthOverflow)
	if err != nil {
		return schedule.Expander{}, err
	}
	return schedule.Expander{HorizonMonths: s.HorizonMonths, Overflow: policy}, nil
}

// Estimator returns the default estimator with any configured overrides.
func (c CaloriesConfig) Estimator() calories.Estimator {
	e := calories.Default()
	if c.BaseRate > 0 {
		e.BaseRate = c.BaseRate
	}
	if c.CardioBonus > 0 {
		e.CardioBonus = c.CardioBonus
	}
	if c.StrengthBonus > 0 {
		e.StrengthBonus = c.StrengthBonus
	}
	if len(c.CardioCategories) > 0 {
		e.CardioCategories = c.CardioCategories
	}
	if len(c.CardioKeywords) > 0 {
		e.CardioNameKeywords = c.CardioKeywords
	}
	if len(c.StrengthCategories) > 0 {
		e.StrengthCategories = c.StrengthCategories
	}
	return e
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix LIFTPLAN_ and underscore-separated paths:
//
//	LIFTPLAN_SERVER_HOST, LIFTPLAN_SERVER_PORT,
//	LIFTPLAN_DB_DRIVER, LIFTPLAN_DB_HOST, LIFTPLAN_DB_PORT, LIFTPLAN_DB_NAME,
//	LIFTPLAN_DB_USER, LIFTPLAN_DB_PASSWORD, LIFTPLAN_DB_SSLMODE, LIFTPLAN_DB_PATH,
//	LIFTPLAN_AUTH_API_KEY, LIFTPLAN_TAILSCALE_ENABLED, LIFTPLAN_TAILSCALE_HOSTNAME,
//	LIFTPLAN_LOG_LEVEL, LIFTPLAN_SCHEDULE_HORIZON_MONTHS,
//	LIFTPLAN_SCHEDULE_MONTH_OVERFLOW, LIFTPLAN_CATALOG_PATH
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:     DriverPostgres,
			Migrations: "migrations",
		},
		Log: LogConfig{Level: "info"},
		Schedule: ScheduleConfig{
			HorizonMonths:   3,
			MonthOverflow:   "clamp",
			SaveConcurrency: 4,
		},
		Tailscale: TailscaleConfig{Hostname: "liftplan"},
	}
}

func applyEnvOverrides(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("LIFTPLAN_SERVER_HOST", &cfg.Server.Host)
	num("LIFTPLAN_SERVER_PORT", &cfg.Server.Port)
	str("LIFTPLAN_DB_DRIVER", &cfg.Database.Driver)
	str("LIFTPLAN_DB_HOST", &cfg.Database.Host)
	num("LIFTPLAN_DB_PORT", &cfg.Database.Port)
	str("LIFTPLAN_DB_NAME", &cfg.Database.Name)
	str("LIFTPLAN_DB_USER", &cfg.Database.User)
	str("LIFTPLAN_DB_PASSWORD", &cfg.Database.Password)
	str("LIFTPLAN_DB_SSLMODE", &cfg.Database.SSLMode)
	str("LIFTPLAN_DB_PATH", &cfg.Database.Path)
	str("LIFTPLAN_AUTH_API_KEY", &cfg.Auth.APIKey)
	if v := os.Getenv("LIFTPLAN_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	str("LIFTPLAN_TAILSCALE_HOSTNAME", &cfg.Tailscale.Hostname)
	str("LIFTPLAN_LOG_LEVEL", &cfg.Log.Level)
	num("LIFTPLAN_SCHEDULE_HORIZON_MONTHS", &cfg.Schedule.HorizonMonths)
	str("LIFTPLAN_SCHEDULE_MONTH_OVERFLOW", &cfg.Schedule.MonthOverflow)
	str("LIFTPLAN_CATALOG_PATH", &cfg.Catalog.Path)
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver %q is not one of postgres, sqlite, memory", c.Database.Driver)
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Schedule.HorizonMonths <= 0 {
		return fmt.Errorf("schedule.horizon_months must be positive")
	}
	switch c.Schedule.MonthOverflow {
	case "clamp", "roll":
	default:
		return fmt.Errorf("schedule.month_overflow %q is not one of clamp, roll", c.Schedule.MonthOverflow)
	}
	if c.Schedule.SaveConcurrency <= 0 {
		return fmt.Errorf("schedule.save_concurrency must be positive")
	}
	return nil
}
