package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// EnvConfig lists the recognised environment variables. Unset variables
// leave the corresponding Config field untouched.
type EnvConfig struct {
	DataDir            string        `env:"LAB_DATA_DIR"`
	OrdersFile         string        `env:"LAB_ORDERS_FILE"`
	UsersFile          string        `env:"LAB_USERS_FILE"`
	KeyFile            string        `env:"LAB_KEY_FILE"`
	CatalogFile        string        `env:"LAB_CATALOG_FILE"`
	AuditDB            string        `env:"LAB_AUDIT_DB"`
	ExportDir          string        `env:"LAB_EXPORT_DIR"`
	SessionSecret      string        `env:"LAB_SESSION_SECRET"`
	SessionTTL         time.Duration `env:"LAB_SESSION_TTL"`
	BootstrapPassword  string        `env:"LAB_BOOTSTRAP_PASSWORD"`
	LogLevel           string        `env:"LAB_LOG_LEVEL"`
	LogFormat          string        `env:"LAB_LOG_FORMAT"`
	MetricsAddr        string        `env:"LAB_METRICS_ADDR"`
	StrictLifecycle    bool          `env:"LAB_STRICT_LIFECYCLE"`
	DefaultCountryCode string        `env:"LAB_COUNTRY_CODE"`
}

func parseEnv(ctx context.Context, cfg *Config, lookuper envconfig.Lookuper) error {
	var ec EnvConfig
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &ec,
		Lookuper: lookuper,
	}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	overlay(&cfg.DataDir, ec.DataDir)
	overlay(&cfg.OrdersFile, ec.OrdersFile)
	overlay(&cfg.UsersFile, ec.UsersFile)
	overlay(&cfg.KeyFile, ec.KeyFile)
	overlay(&cfg.CatalogFile, ec.CatalogFile)
	overlay(&cfg.AuditDB, ec.AuditDB)
	overlay(&cfg.ExportDir, ec.ExportDir)
	overlay(&cfg.SessionSecret, ec.SessionSecret)
	overlay(&cfg.SessionTTL, ec.SessionTTL)
	overlay(&cfg.BootstrapPassword, ec.BootstrapPassword)
	overlay(&cfg.LogLevel, ec.LogLevel)
	overlay(&cfg.LogFormat, ec.LogFormat)
	overlay(&cfg.MetricsAddr, ec.MetricsAddr)
	overlay(&cfg.StrictLifecycle, ec.StrictLifecycle)
	overlay(&cfg.DefaultCountryCode, ec.DefaultCountryCode)
	return nil
}

func overlay[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
