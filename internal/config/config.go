// Package config resolves daylog's runtime configuration from the
// environment, the daylog.conf file and built-in defaults, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/julianstephens/daylog/internal/constants"
)

const (
	EnvDB       = "DAYLOG_DB"
	EnvUser     = "DAYLOG_USER"
	EnvLogLevel = "DAYLOG_LOG_LEVEL"
	EnvListen   = "DAYLOG_LISTEN"
	EnvDevMode  = "DAYLOG_DEV_MODE"

	ConfFileName = "daylog.conf"

	DefaultLogLevel = "warn"
	DefaultListen   = "127.0.0.1:7410"
)

type Config struct {
	// DB is a SQLite path, a PostgreSQL connection string, or "keyring"
	DB        string
	User      string
	LogLevel  string
	Listen    string
	DevMode   bool
	ConfigDir string
}

// Backend names the store kind a DB value selects
type Backend int

const (
	SQLite Backend = iota
	Postgres
)

func (b Backend) String() string {
	if b == Postgres {
		return "postgres"
	}
	return "sqlite"
}

var (
	userConfigDirFunc = os.UserConfigDir
	getenvFunc        = os.Getenv
	currentUserFunc   = user.Current
)

// Load builds the configuration. On first run it writes a daylog.conf with
// the defaults so users have something to edit.
func Load() (Config, error) {
	base, err := userConfigDirFunc()
	if err != nil {
		return Config{}, fmt.Errorf("failed to get user config dir: %w", err)
	}
	return LoadFrom(filepath.Join(base, constants.AppName))
}

// LoadFrom is Load with an explicit config directory.
func LoadFrom(configDir string) (Config, error) {
	defaults := Config{
		DB:        filepath.Join(configDir, constants.DefaultDBFileName),
		User:      defaultUser(),
		LogLevel:  DefaultLogLevel,
		Listen:    DefaultListen,
		ConfigDir: configDir,
	}

	fromFile, err := readConfFile(filepath.Join(configDir, ConfFileName), defaults)
	if err != nil {
		return Config{}, err
	}

	devMode := coalesce(getenvFunc(EnvDevMode), fromFile[EnvDevMode])
	cfg := Config{
		DB:        coalesce(expandHome(getenvFunc(EnvDB)), expandHome(fromFile[EnvDB]), defaults.DB),
		User:      coalesce(getenvFunc(EnvUser), fromFile[EnvUser], defaults.User),
		LogLevel:  coalesce(getenvFunc(EnvLogLevel), fromFile[EnvLogLevel], defaults.LogLevel),
		Listen:    coalesce(getenvFunc(EnvListen), fromFile[EnvListen], defaults.Listen),
		DevMode:   truthy(devMode),
		ConfigDir: configDir,
	}
	if cfg.DevMode {
		cfg.LogLevel = "debug"
		cfg.DB = filepath.Join(os.TempDir(), "daylog-dev.db")
	}
	return cfg, nil
}

// readConfFile returns the key/value pairs of path, creating it from
// defaults when it does not exist yet.
func readConfFile(path string, defaults Config) (map[string]string, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create config dir: %w", err)
		}
		initial := map[string]string{
			EnvDB:       defaults.DB,
			EnvLogLevel: defaults.LogLevel,
			EnvListen:   defaults.Listen,
		}
		if err := godotenv.Write(initial, path); err != nil {
			return nil, fmt.Errorf("failed to write default %s: %w", ConfFileName, err)
		}
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return values, nil
}

// Backend reports which store the DB setting selects.
func (c Config) Backend() Backend {
	if c.DB == constants.KeyringDBSentinel || IsPostgres(c.DB) {
		return Postgres
	}
	return SQLite
}

// IsPostgres reports whether s looks like a PostgreSQL URI or key=value DSN
func IsPostgres(s string) bool {
	return strings.HasPrefix(s, "postgres://") ||
		strings.HasPrefix(s, "postgresql://") ||
		strings.Contains(s, "host=") ||
		strings.Contains(s, "dbname=")
}

// ResolveDB returns the store target. For "keyring" the connection string
// is fetched with fromKeyring.
func (c Config) ResolveDB(fromKeyring func() (string, error)) (string, error) {
	if c.DB != constants.KeyringDBSentinel {
		return c.DB, nil
	}
	connStr, err := fromKeyring()
	if err != nil {
		return "", fmt.Errorf("%s=%s but the keyring lookup failed: %w", EnvDB, constants.KeyringDBSentinel, err)
	}
	return connStr, nil
}

func defaultUser() string {
	if u, err := currentUserFunc(); err == nil && u.Username != "" {
		return u.Username
	}
	return "default"
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func truthy(s string) bool {
	if s == "" {
		return false
	}
	b, err := strconv.ParseBool(s)
	return err != nil || b
}

func coalesce(args ...string) string {
	for _, s := range args {
		if s != "" {
			return s
		}
	}
	return ""
}
