package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

type Config struct {
	Port                  string `mapstructure:"PORT"`
	AllowedOrigin         string `mapstructure:"ALLOWED_ORIGIN"`
	DatabaseDriver        string `mapstructure:"DATABASE_DRIVER"`
	DatabaseURL           string `mapstructure:"DATABASE_URL"`
	SeedSampleProducts    bool   `mapstructure:"SEED_SAMPLE_PRODUCTS"`
	RedisAddr             string `mapstructure:"REDIS_ADDR"`
	RedisPassword         string `mapstructure:"REDIS_PASSWORD"`
	RedisDB               int    `mapstructure:"REDIS_DB"`
	ReportCacheTTLSeconds int    `mapstructure:"REPORT_CACHE_TTL_SECONDS"`
	AuthSecret            string `mapstructure:"AUTH_SECRET"`
	AccessTokenTTLMinutes int    `mapstructure:"ACCESS_TOKEN_TTL_MINUTES"`
	AdminUsername         string `mapstructure:"ADMIN_USERNAME"`
	AdminPassword         string `mapstructure:"ADMIN_PASSWORD"`
	CashierUsername       string `mapstructure:"CASHIER_USERNAME"`
	CashierPassword       string `mapstructure:"CASHIER_PASSWORD"`
	StoreName             string `mapstructure:"STORE_NAME"`
	ExportDir             string `mapstructure:"EXPORT_DIR"`
	ExportSchedule        string `mapstructure:"EXPORT_SCHEDULE"`
	PrintCommand          string `mapstructure:"PRINT_COMMAND"`
	LogMode               string `mapstructure:"LOG_MODE"`
	LogFile               string `mapstructure:"LOG_FILE"`
}

var defaults = map[string]any{
	"PORT":                     "8080",
	"ALLOWED_ORIGIN":           "http://127.0.0.1:3000",
	"DATABASE_DRIVER":          DriverSQLite,
	"DATABASE_URL":             "",
	"SEED_SAMPLE_PRODUCTS":     false,
	"REDIS_ADDR":               "",
	"REDIS_PASSWORD":           "",
	"REDIS_DB":                 0,
	"REPORT_CACHE_TTL_SECONDS": 30,
	"AUTH_SECRET":              "",
	"ACCESS_TOKEN_TTL_MINUTES": 480,
	"ADMIN_USERNAME":           "admin",
	"ADMIN_PASSWORD":           "",
	"CASHIER_USERNAME":         "cashier",
	"CASHIER_PASSWORD":         "",
	"STORE_NAME":               "AppStock",
	"EXPORT_DIR":               "reports",
	"EXPORT_SCHEDULE":          "",
	"PRINT_COMMAND":            "",
	"LOG_MODE":                 "development",
	"LOG_FILE":                 "",
}

// Load reads defaults, then an optional appstock.yaml (or the file named by
// APPSTOCK_CONFIG), then environment variables.
func Load() (Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if path := strings.TrimSpace(os.Getenv("APPSTOCK_CONFIG")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("appstock")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.DatabaseDriver = strings.ToLower(strings.TrimSpace(c.DatabaseDriver))
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.AuthSecret = strings.TrimSpace(c.AuthSecret)
	c.AdminUsername = strings.ToLower(strings.TrimSpace(c.AdminUsername))
	c.CashierUsername = strings.ToLower(strings.TrimSpace(c.CashierUsername))
	c.ExportSchedule = strings.TrimSpace(c.ExportSchedule)
	c.LogMode = strings.ToLower(strings.TrimSpace(c.LogMode))
	if c.ReportCacheTTLSeconds < 1 {
		c.ReportCacheTTLSeconds = 30
	}
	if c.AccessTokenTTLMinutes < 1 {
		c.AccessTokenTTLMinutes = 480
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	switch c.DatabaseDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres, DriverMySQL:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for driver %s", c.DatabaseDriver)
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.LogMode != "development" && c.LogMode != "production" {
		return fmt.Errorf("unsupported LOG_MODE %q", c.LogMode)
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}
