package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SysConfig system configuration
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig web server configuration
type WebConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Secret   string `yaml:"secret"`
	TokenTTL int    `yaml:"token_ttl"` // seconds
}

// DBConfig snapshot storage configuration, type is memory or bolt
type DBConfig struct {
	Type     string `yaml:"type"`
	Path     string `yaml:"path"`
	Interval string `yaml:"interval"` // cron spec for periodic snapshots
}

// LogConfig logger configuration; the rotation fields apply to the file sink
type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// SecurityConfig password hashing and import settings
type SecurityConfig struct {
	BcryptCost    int `yaml:"bcrypt_cost"`
	ImportWorkers int `yaml:"import_workers"`
}

type AppConfig struct {
	System   SysConfig      `yaml:"system"`
	Web      WebConfig      `yaml:"web"`
	Database DBConfig       `yaml:"database"`
	Logger   LogConfig      `yaml:"logger"`
	Security SecurityConfig `yaml:"security"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

// TokenTTL returns the bearer token lifetime
func (c *AppConfig) TokenTTL() time.Duration {
	return time.Duration(c.Web.TokenTTL) * time.Second
}

func (c *AppConfig) InitDirs() {
	_ = os.MkdirAll(c.GetLogDir(), 0o755)
	_ = os.MkdirAll(c.GetDataDir(), 0o755)
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "ToughCRM",
		Location: "America/Bogota",
		Workdir:  "/var/toughcrm",
		Debug:    false,
	},
	Web: WebConfig{
		Host:     "0.0.0.0",
		Port:     8000,
		Secret:   "",
		TokenTTL: 3600,
	},
	Database: DBConfig{
		Type:     "memory",
		Path:     "",
		Interval: "@every 1m",
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: false,
		Filename:   "/var/toughcrm/logs/toughcrm.log",
		MaxSizeMB:  64,
		MaxBackups: 7,
		MaxAgeDays: 7,
	},
	Security: SecurityConfig{
		BcryptCost:    10,
		ImportWorkers: 8,
	},
}

// LoadConfig reads cfile when it exists, falls back to the defaults,
// then applies TOUGHCRM_* environment overrides.
func LoadConfig(cfile string) *AppConfig {
	cfg := defaultCopy()
	if cfile != "" {
		data, err := os.ReadFile(cfile)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				zap.S().Errorf("parse config file %s error: %s", cfile, err.Error())
			}
		case os.IsNotExist(err):
			zap.S().Warnf("config file %s not found, using defaults", cfile)
		default:
			zap.S().Errorf("read config file %s error: %s", cfile, err.Error())
		}
	}

	setEnvValue("TOUGHCRM_SYSTEM_APPID", &cfg.System.Appid)
	setEnvValue("TOUGHCRM_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvValue("TOUGHCRM_SYSTEM_WORKER_DIR", &cfg.System.Workdir)
	setEnvBoolValue("TOUGHCRM_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("TOUGHCRM_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("TOUGHCRM_WEB_PORT", &cfg.Web.Port)
	setEnvValue("TOUGHCRM_WEB_SECRET", &cfg.Web.Secret)
	setEnvIntValue("TOUGHCRM_WEB_TOKEN_TTL", &cfg.Web.TokenTTL)

	setEnvValue("TOUGHCRM_DB_TYPE", &cfg.Database.Type)
	setEnvValue("TOUGHCRM_DB_PATH", &cfg.Database.Path)
	setEnvValue("TOUGHCRM_DB_INTERVAL", &cfg.Database.Interval)

	setEnvValue("TOUGHCRM_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("TOUGHCRM_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)
	setEnvValue("TOUGHCRM_LOGGER_FILENAME", &cfg.Logger.Filename)
	setEnvIntValue("TOUGHCRM_LOGGER_MAX_SIZE_MB", &cfg.Logger.MaxSizeMB)

	setEnvIntValue("TOUGHCRM_BCRYPT_COST", &cfg.Security.BcryptCost)
	setEnvIntValue("TOUGHCRM_IMPORT_WORKERS", &cfg.Security.ImportWorkers)

	if cfg.Database.Type == "" {
		cfg.Database.Type = "memory"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = path.Join(cfg.GetDataDir(), "toughcrm.db")
	}
	return cfg
}

// EnsureWebSecret fills an empty token signing secret with 32 random bytes
// and reports whether it did. A generated secret lives only as long as the
// process, so issued tokens stop verifying after a restart.
func (c *AppConfig) EnsureWebSecret() (bool, error) {
	if strings.TrimSpace(c.Web.Secret) != "" {
		return false, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return false, errors.Wrap(err, "generate web secret")
	}
	c.Web.Secret = hex.EncodeToString(buf)
	return true, nil
}

// Save writes the configuration as YAML, used by -initcfg
func (c *AppConfig) Save(cfile string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(cfile, data, 0o644)
}

func defaultCopy() *AppConfig {
	cfg := *DefaultAppConfig
	return &cfg
}

func setEnvValue(name string, val *string) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = evalue
	}
}

func setEnvBoolValue(name string, val *bool) {
	var evalue = strings.TrimSpace(os.Getenv(name))
	if evalue != "" {
		*val = cast.ToBool(evalue)
	}
}

func setEnvIntValue(name string, val *int) {
	var evalue = strings.TrimSpace(os.Getenv(name))
	if evalue == "" {
		return
	}
	if v, err := cast.ToIntE(evalue); err == nil {
		*val = v
	} else {
		zap.S().Warnf("invalid int value for %s: %s", name, evalue)
	}
}
