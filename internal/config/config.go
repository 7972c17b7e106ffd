package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const devJWTSecret = "dev-only-secret-change-me"

// Config keeps runtime settings for the server and the clients.
type Config struct {
	Env            string        `mapstructure:"app_env"`
	HTTPAddr       string        `mapstructure:"http_addr"`
	DatabaseDriver string        `mapstructure:"database_driver"`
	DatabaseURL    string        `mapstructure:"database_url"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	LogLevel       string        `mapstructure:"log_level"`
	TelegramToken  string        `mapstructure:"telegram_token"`
	DigestCron     string        `mapstructure:"digest_cron"`
	RecurrenceCron string        `mapstructure:"recurrence_cron"`
	APIURL         string        `mapstructure:"api_url"`
	APIToken       string        `mapstructure:"taskmanager_token"`
	APITimeout     time.Duration `mapstructure:"api_timeout"`
	Pomodoro       Pomodoro      `mapstructure:",squash"`
}

// Pomodoro holds timer lengths in minutes.
type Pomodoro struct {
	WorkMinutes       int `mapstructure:"pomodoro_minutes"`
	ShortBreakMinutes int `mapstructure:"short_break_minutes"`
	LongBreakMinutes  int `mapstructure:"long_break_minutes"`
}

// Production reports whether the app runs with production hardening (secure cookies, required secret).
func (c Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

var keys = []string{
	"app_env", "http_addr", "database_driver", "database_url", "jwt_secret",
	"token_ttl", "bcrypt_cost", "log_level", "telegram_token", "digest_cron",
	"recurrence_cron", "api_url", "taskmanager_token", "api_timeout",
	"pomodoro_minutes", "short_break_minutes", "long_break_minutes",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("database_driver", "sqlite")
	v.SetDefault("database_url", "task_manager.db")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", 7*24*time.Hour)
	v.SetDefault("bcrypt_cost", 12)
	v.SetDefault("log_level", "warn")
	v.SetDefault("telegram_token", "")
	v.SetDefault("digest_cron", "0 0 9 * * *")
	v.SetDefault("recurrence_cron", "0 0 * * * *")
	v.SetDefault("api_url", "http://localhost:8080")
	v.SetDefault("taskmanager_token", "")
	v.SetDefault("api_timeout", 15*time.Second)
	v.SetDefault("pomodoro_minutes", 25)
	v.SetDefault("short_break_minutes", 5)
	v.SetDefault("long_break_minutes", 15)
}

// Load reads configuration from defaults, an optional YAML file named by
// CONFIG_FILE, a .env file and the environment, later sources winning.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return load(strings.TrimSpace(os.Getenv("CONFIG_FILE")))
}

func load(file string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", file, err)
		}
	}

	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.normalize()
}

func (c *Config) normalize() error {
	c.DatabaseDriver = strings.ToLower(strings.TrimSpace(c.DatabaseDriver))
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.JWTSecret = strings.TrimSpace(c.JWTSecret)
	c.TelegramToken = strings.TrimSpace(c.TelegramToken)
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")

	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", c.DatabaseDriver)
	}

	if c.DatabaseURL == "" {
		c.DatabaseURL = "task_manager.db"
	}

	if c.JWTSecret == "" {
		if c.Production() {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.JWTSecret = devJWTSecret
	}

	if c.TokenTTL <= 0 {
		c.TokenTTL = 7 * 24 * time.Hour
	}

	if c.APITimeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive, got %s", c.APITimeout)
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}

	if c.Pomodoro.WorkMinutes <= 0 || c.Pomodoro.ShortBreakMinutes <= 0 || c.Pomodoro.LongBreakMinutes <= 0 {
		return fmt.Errorf("pomodoro durations must be positive")
	}

	return nil
}
