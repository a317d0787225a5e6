package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/labkeeper/internal/flagx"
	"github.com/dmitrijs2005/labkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Pointer fields
// distinguish "absent" from "zero" so a partial file only overrides what it
// names.
type JsonConfig struct {
	DataDir            *string         `json:"data_dir"`
	OrdersFile         *string         `json:"orders_file"`
	UsersFile          *string         `json:"users_file"`
	KeyFile            *string         `json:"key_file"`
	CatalogFile        *string         `json:"catalog_file"`
	AuditDB            *string         `json:"audit_db"`
	ExportDir          *string         `json:"export_dir"`
	SessionSecret      *string         `json:"session_secret"`
	SessionTTL         *timex.Duration `json:"session_ttl"`
	BootstrapAdmin     *string         `json:"bootstrap_admin"`
	BootstrapPassword  *string         `json:"bootstrap_password"`
	LogLevel           *string         `json:"log_level"`
	LogFormat          *string         `json:"log_format"`
	MetricsAddr        *string         `json:"metrics_addr"`
	StrictLifecycle    *bool           `json:"strict_lifecycle"`
	DefaultCountryCode *string         `json:"default_country_code"`
}

func parseJson(cfg *Config, args []string) error {
	path := flagx.JsonConfigFlags(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.OrdersFile, jc.OrdersFile)
	setString(&cfg.UsersFile, jc.UsersFile)
	setString(&cfg.KeyFile, jc.KeyFile)
	setString(&cfg.CatalogFile, jc.CatalogFile)
	setString(&cfg.AuditDB, jc.AuditDB)
	setString(&cfg.ExportDir, jc.ExportDir)
	setString(&cfg.SessionSecret, jc.SessionSecret)
	setString(&cfg.BootstrapAdmin, jc.BootstrapAdmin)
	setString(&cfg.BootstrapPassword, jc.BootstrapPassword)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.MetricsAddr, jc.MetricsAddr)
	setString(&cfg.DefaultCountryCode, jc.DefaultCountryCode)
	if jc.SessionTTL != nil {
		cfg.SessionTTL = jc.SessionTTL.Duration
	}
	if jc.StrictLifecycle != nil {
		cfg.StrictLifecycle = *jc.StrictLifecycle
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
