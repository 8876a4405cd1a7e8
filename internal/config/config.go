package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"barbershop/internal/model"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int     `yaml:"port"`
		APIKey         string  `yaml:"api_key"`
		RateLimitRPS   float64 `yaml:"rate_limit_rps"`
		RateLimitBurst int     `yaml:"rate_limit_burst"`
	} `yaml:"server"`

	Database struct {
		Driver        string `yaml:"driver"` // sqlite | postgres
		Path          string `yaml:"path"`
		URL           string `yaml:"url"`
		TimeoutMillis int    `yaml:"timeout_ms"`
	} `yaml:"database"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
		Channel         string `yaml:"channel"`
	} `yaml:"redis"`

	Backup BackupConfig `yaml:"backup"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Logging struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"logging"`

	Booking struct {
		MaxAdvanceDays int    `yaml:"max_advance_days"`
		Timezone       string `yaml:"timezone"`
	} `yaml:"booking"`

	Shop ShopConfig `yaml:"shop"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	StoragePath   string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// ShopConfig is the shop profile seeded into the store.
type ShopConfig struct {
	ID                  string             `yaml:"id"`
	Name                string             `yaml:"name"`
	Address             string             `yaml:"address"`
	Phone               string             `yaml:"phone"`
	Description         string             `yaml:"description"`
	Status              string             `yaml:"status"`
	SlotDurationMinutes int                `yaml:"slot_duration_minutes"`
	WorkingHours        model.WorkingHours `yaml:"working_hours"`
	Services            []model.Service    `yaml:"services"`
}

// ShopSettings converts the shop section into store settings.
func (s ShopConfig) ShopSettings() *model.ShopSettings {
	hours := s.WorkingHours
	if len(hours) == 0 {
		hours = model.DefaultWorkingHours()
	}
	return &model.ShopSettings{
		ShopID:              s.ID,
		Name:                s.Name,
		Address:             s.Address,
		Phone:               s.Phone,
		Description:         s.Description,
		Services:            append([]model.Service{}, s.Services...),
		WorkingHours:        hours.Clone(),
		SlotDurationMinutes: s.SlotDurationMinutes,
		Status:              model.ShopStatus(s.Status),
	}
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Database.Driver == "sqlite" {
		if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimitRPS == 0 {
		c.Server.RateLimitRPS = 10
	}
	if c.Server.RateLimitBurst == 0 {
		c.Server.RateLimitBurst = 20
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/barbershop.db"
	}
	if c.Database.TimeoutMillis <= 0 {
		c.Database.TimeoutMillis = 5000
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "data/backups"
	}
	if c.Backup.IntervalHours <= 0 {
		c.Backup.IntervalHours = 24
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Booking.MaxAdvanceDays <= 0 {
		c.Booking.MaxAdvanceDays = 30
	}
	if c.Shop.ID == "" {
		c.Shop.ID = "main"
	}
	if c.Shop.Status == "" {
		c.Shop.Status = string(model.ShopOpen)
	}
	if c.Shop.SlotDurationMinutes == 0 {
		c.Shop.SlotDurationMinutes = 60
	}
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("%w: database.url is required for postgres", model.ErrInvalidConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown database driver %q", model.ErrInvalidConfiguration, c.Database.Driver)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if err := c.Shop.ShopSettings().Validate(); err != nil {
		return fmt.Errorf("shop: %w", err)
	}
	return nil
}

// StoreTimeout bounds every store round trip.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.Database.TimeoutMillis) * time.Millisecond
}

// CacheTTL is zero when the booked-times cache is disabled.
func (c *Config) CacheTTL() time.Duration {
	if c.Redis.Address == "" || c.Redis.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

// Location resolves booking.timezone; empty means the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Booking.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: booking.timezone: %v", model.ErrInvalidConfiguration, err)
	}
	return loc, nil
}
