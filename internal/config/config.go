// internal/config/config.go
//
// Server configuration.
// Responsibilities:
//   - Provide defaults that run a local dev server with no config file at all.
//   - Decode an optional config file (TOML, YAML or JSON, picked by extension).
//   - Apply environment overrides (the same variable names the server has
//     always read, so a plain .env keeps working).
//   - Validate the result before it is used.
//
// Precedence: defaults < config file < environment.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/robalobadob/rosebud/internal/store"
)

// Config is the full server configuration.
type Config struct {
	Server ServerConfig `toml:"server" json:"server" yaml:"server"`
	Log    LogConfig    `toml:"log" json:"log" yaml:"log"`
	Store  StoreConfig  `toml:"store" json:"store" yaml:"store"`
	Auth   AuthConfig   `toml:"auth" json:"auth" yaml:"auth"`
	Puzzle PuzzleConfig `toml:"puzzle" json:"puzzle" yaml:"puzzle"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port           string `toml:"port" json:"port" yaml:"port"`
	ClientOrigin   string `toml:"client_origin" json:"client_origin" yaml:"client_origin"`
	RequestTimeout int    `toml:"request_timeout_sec" json:"request_timeout_sec" yaml:"request_timeout_sec"`
	Production     bool   `toml:"production" json:"production" yaml:"production"`
}

// LogConfig controls zerolog output.
type LogConfig struct {
	// Level is any zerolog level name ("debug", "info", ...).
	Level string `toml:"level" json:"level" yaml:"level"`
	// Format is "json" or "console".
	Format string `toml:"format" json:"format" yaml:"format"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `toml:"driver" json:"driver" yaml:"driver"`
	Path   string `toml:"path" json:"path" yaml:"path"`
}

// AuthConfig holds token and admin settings.
type AuthConfig struct {
	JWTSecret         string `toml:"jwt_secret" json:"jwt_secret" yaml:"jwt_secret"`
	JWTExpiresDays    int    `toml:"jwt_expires_days" json:"jwt_expires_days" yaml:"jwt_expires_days"`
	CookieName        string `toml:"cookie_name" json:"cookie_name" yaml:"cookie_name"`
	AdminPasswordHash string `toml:"admin_password_hash" json:"admin_password_hash" yaml:"admin_password_hash"`
}

// PuzzleConfig points at the puzzle content and names the default session.
type PuzzleConfig struct {
	SessionID string `toml:"session_id" json:"session_id" yaml:"session_id"`
	RowsFile  string `toml:"rows_file" json:"rows_file" yaml:"rows_file"`
	HintsFile string `toml:"hints_file" json:"hints_file" yaml:"hints_file"`
	// MaxSessions caps how many sessions stay open in memory.
	MaxSessions int `toml:"max_sessions" json:"max_sessions" yaml:"max_sessions"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "5175", RequestTimeout: 10},
		Log:    LogConfig{Level: "info", Format: "json"},
		Store:  StoreConfig{Driver: store.DriverSQLite, Path: "./data/rosebud.db"},
		Auth: AuthConfig{
			JWTSecret:      "dev_secret_change_me",
			JWTExpiresDays: 14,
			CookieName:     "rosebud_token",
		},
		Puzzle: PuzzleConfig{SessionID: "GLOBAL_STATE", MaxSessions: 1024},
	}
}

// Load reads the config file at path over the defaults and applies env
// overrides. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	}
	return cfg, nil
}

// ApplyEnvOverrides copies non-empty environment variables over the config.
// Unparseable numbers are ignored.
func (c *Config) ApplyEnvOverrides() {
	str := func(k string, dst *string) {
		if v := os.Getenv(k); v != "" {
			*dst = v
		}
	}
	num := func(k string, dst *int) {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("PORT", &c.Server.Port)
	str("CLIENT_ORIGIN", &c.Server.ClientOrigin)
	num("REQUEST_TIMEOUT_SEC", &c.Server.RequestTimeout)
	if os.Getenv("NODE_ENV") == "production" {
		c.Server.Production = true
	}

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	str("DB_DRIVER", &c.Store.Driver)
	str("DB_PATH", &c.Store.Path)

	str("JWT_SECRET", &c.Auth.JWTSecret)
	num("JWT_EXPIRES_DAYS", &c.Auth.JWTExpiresDays)
	str("COOKIE_NAME", &c.Auth.CookieName)
	str("ADMIN_PASSWORD_HASH", &c.Auth.AdminPasswordHash)

	str("SESSION_ID", &c.Puzzle.SessionID)
	str("PUZZLE_ROWS_FILE", &c.Puzzle.RowsFile)
	str("PUZZLE_HINTS_FILE", &c.Puzzle.HintsFile)
	num("MAX_SESSIONS", &c.Puzzle.MaxSessions)
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error

	if p, err := strconv.Atoi(c.Server.Port); err != nil || p < 1 || p > 65535 {
		errs = append(errs, fmt.Errorf("server.port %q is not a valid port", c.Server.Port))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("server.request_timeout_sec must be positive"))
	}
	if c.Log.Level == "" {
		errs = append(errs, errors.New("log.level is required"))
	} else if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Errorf("log.format %q must be json or console", c.Log.Format))
	}
	switch c.Store.Driver {
	case store.DriverMemory:
	case store.DriverSQLite, store.DriverSQLite3:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for sqlite drivers"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not supported", c.Store.Driver))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Auth.JWTExpiresDays <= 0 {
		errs = append(errs, errors.New("auth.jwt_expires_days must be positive"))
	}
	if c.Auth.CookieName == "" {
		errs = append(errs, errors.New("auth.cookie_name is required"))
	}
	if c.Puzzle.SessionID == "" {
		errs = append(errs, errors.New("puzzle.session_id is required"))
	}
	if c.Puzzle.MaxSessions <= 0 {
		errs = append(errs, errors.New("puzzle.max_sessions must be positive"))
	}
	return errors.Join(errs...)
}

// ZerologLevel returns the parsed log level, or info when it does not parse.
func (c *Config) ZerologLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
