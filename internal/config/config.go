package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime settings for LabKeeper.
type Config struct {
	DataDir     string
	OrdersFile  string
	UsersFile   string
	KeyFile     string
	CatalogFile string
	AuditDB     string
	ExportDir   string

	// SessionSecret signs session tokens. When empty a random secret is
	// generated at startup, so sessions do not survive a restart.
	SessionSecret string
	SessionTTL    time.Duration

	BootstrapAdmin    string
	BootstrapPassword string

	LogLevel    string
	LogFormat   string
	MetricsAddr string

	StrictLifecycle    bool
	DefaultCountryCode string
}

// LoadDefaults populates c with defaults matching the historical file names.
func (c *Config) LoadDefaults() {
	c.DataDir = "data"
	c.OrdersFile = "solicitudes_lis.csv"
	c.UsersFile = "users.json"
	c.KeyFile = "fernet.key"
	c.CatalogFile = "catalogo_estudios.csv"
	c.AuditDB = "audit.db"
	c.ExportDir = "exports"
	c.SessionTTL = 8 * time.Hour
	c.BootstrapAdmin = "admin@lab.local"
	c.BootstrapPassword = "admin123"
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.DefaultCountryCode = "+52"
}

// Path resolves name against DataDir unless it is absolute.
func (c *Config) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// Load builds a Config from defaults, the JSON file named in args, the
// environment seen through lookuper and finally the flags in args.
func Load(ctx context.Context, args []string, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(ctx, cfg, lookuper); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over os.Args and the process environment. It panics on
// malformed input, as there is nothing sensible to start with.
func LoadConfig(ctx context.Context) *Config {
	cfg, err := Load(ctx, os.Args[1:], envconfig.OsLookuper())
	if err != nil {
		panic(err)
	}
	return cfg
}
