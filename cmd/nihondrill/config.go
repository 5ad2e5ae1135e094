package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/nihondrill/internal/logger"
	"github.com/nkiryanov/nihondrill/internal/service/auth/signer"
	"github.com/nkiryanov/nihondrill/internal/service/onetime"
)

const (
	defaultHost                   = "localhost"
	defaultPort                   = 8000
	defaultLogFormat              = logger.FormatJSON
	defaultLoggingLevel           = logger.LevelInfo
	defaultDatabaseMaxConnections = 5
	defaultAuthExpirationSeconds  = 30 * 24 * 60 * 60
	defaultVersion                = "unknown"
	versionFile                   = "commit_hash.txt"
)

type Config struct {
	// Address on which the service will be run
	Host string
	Port int

	// Logging format (json, pretty) and level
	LogFormat string
	LogLevel  string

	// Database to connect to and its pool size
	DatabaseDSN      string
	DatabaseMaxConns int

	// Key sessions are signed with, at least 32 bytes
	SigningKey string

	AuthExpirationSeconds  int
	OneTimeTokenTTLSeconds int

	// Build version, read from commit_hash.txt
	Version string
}

func NewConfig() *Config {
	return &Config{
		Host:                   defaultHost,
		Port:                   defaultPort,
		LogFormat:              defaultLogFormat,
		LogLevel:               defaultLoggingLevel,
		DatabaseMaxConns:       defaultDatabaseMaxConnections,
		AuthExpirationSeconds:  defaultAuthExpirationSeconds,
		OneTimeTokenTTLSeconds: int(onetime.DefaultTTL / time.Second),
		Version:                defaultVersion,
	}
}

func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) AuthExpiration() time.Duration {
	return time.Duration(c.AuthExpirationSeconds) * time.Second
}

func (c *Config) OneTimeTokenTTL() time.Duration {
	return time.Duration(c.OneTimeTokenTTLSeconds) * time.Second
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setInt := func(o *int) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			v, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = v
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"HOST":                       setString(&c.Host),
		"PORT":                       setInt(&c.Port),
		"LOG_FORMAT":                 setString(&c.LogFormat),
		"LOG_LEVEL":                  setString(&c.LogLevel),
		"DATABASE_URL":               setString(&c.DatabaseDSN),
		"DATABASE_MAX_CONNECTIONS":   setInt(&c.DatabaseMaxConns),
		"SIGNING_KEY":                setString(&c.SigningKey),
		"AUTH_EXPIRATION_SECONDS":    setInt(&c.AuthExpirationSeconds),
		"ONE_TIME_TOKEN_TTL_SECONDS": setInt(&c.OneTimeTokenTTLSeconds),
	}

	var errs []error
	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

// Read version from commit_hash.txt in the working directory, keep default if there is no such file
func (c *Config) LoadVersion(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	b, err := os.ReadFile(filepath.Join(wd, versionFile))
	switch {
	case err == nil:
		if v := strings.TrimSpace(string(b)); v != "" {
			c.Version = v
		}
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

// Parse flags and return positional arguments left
func (c *Config) ParseFlags(args []string) ([]string, error) {
	fs := pflag.NewFlagSet("nihondrill", pflag.ContinueOnError)

	fs.StringVarP(&c.Host, "host", "H", c.Host, "Server listen host")
	fs.IntVarP(&c.Port, "port", "p", c.Port, "Server listen port")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.IntVar(&c.DatabaseMaxConns, "database-max-connections", c.DatabaseMaxConns, "Database pool size")
	fs.StringVarP(&c.SigningKey, "signing-key", "s", c.SigningKey, "Signing key, at least 32 bytes")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.LogFormat, "log-format", "f", c.LogFormat, "Logging format (json, pretty)")
	fs.IntVar(&c.AuthExpirationSeconds, "auth-expiration", c.AuthExpirationSeconds, "Session lifetime in seconds")
	fs.IntVar(&c.OneTimeTokenTTLSeconds, "one-time-token-ttl", c.OneTimeTokenTTLSeconds, "One-time token lifetime in seconds")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return fs.Args(), nil
}

// Validate fails on options the app can't start with
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database DSN is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}
	if c.DatabaseMaxConns <= 0 {
		errs = append(errs, fmt.Errorf("database max connections must be positive, got %d", c.DatabaseMaxConns))
	}
	if c.AuthExpirationSeconds <= 0 {
		errs = append(errs, fmt.Errorf("auth expiration must be positive, got %d", c.AuthExpirationSeconds))
	}
	if c.OneTimeTokenTTLSeconds <= 0 {
		errs = append(errs, fmt.Errorf("one-time token ttl must be positive, got %d", c.OneTimeTokenTTLSeconds))
	}
	if _, err := signer.New([]byte(c.SigningKey)); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
