// Package config reads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"

	RootQuerySQL     = "sql"
	RootQueryBuilder = "builder"

	TracesOff    = "off"
	TracesStdout = "stdout"
)

var (
	ErrUnknownDriver    = errors.New("DB_DRIVER must be mysql or sqlite")
	ErrUnknownRootStyle = errors.New("ROOT_QUERY_STYLE must be sql or builder")
	ErrUnknownTraces    = errors.New("OTEL_TRACES must be off or stdout")
	ErrInvalidBatchSize = errors.New("BATCH_SIZE must be positive")
)

type Config struct {
	HTTPAddr string
	GRPCAddr string

	Driver string
	// MySQLDSN, when set, is used as-is. Otherwise the DSN is assembled from
	// the discrete MySQL* fields.
	MySQLDSN      string
	MySQLUser     string
	MySQLPassword string
	MySQLAddr     string
	MySQLDatabase string
	SQLitePath    string

	BatchSize      int
	RootQueryStyle string
	LogMode        string
	Traces         string
}

// Load reads HTTP_ADDR, GRPC_ADDR, DB_DRIVER, MYSQL_DSN, MYSQL_USER,
// MYSQL_PASSWORD, MYSQL_ADDR, MYSQL_DATABASE, SQLITE_PATH, BATCH_SIZE,
// ROOT_QUERY_STYLE, LOG_MODE and OTEL_TRACES.
func Load() *Config {
	return &Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:       getEnv("GRPC_ADDR", ":50051"),
		Driver:         strings.ToLower(getEnv("DB_DRIVER", DriverMySQL)),
		MySQLDSN:       getEnv("MYSQL_DSN", ""),
		MySQLUser:      getEnv("MYSQL_USER", "root"),
		MySQLPassword:  getEnv("MYSQL_PASSWORD", "root"),
		MySQLAddr:      getEnv("MYSQL_ADDR", "localhost:3306"),
		MySQLDatabase:  getEnv("MYSQL_DATABASE", "orderquery"),
		SQLitePath:     getEnv("SQLITE_PATH", "orderquery.db"),
		BatchSize:      getEnvInt("BATCH_SIZE", 1000),
		RootQueryStyle: strings.ToLower(getEnv("ROOT_QUERY_STYLE", RootQuerySQL)),
		LogMode:        getEnv("LOG_MODE", "production"),
		Traces:         strings.ToLower(getEnv("OTEL_TRACES", TracesOff)),
	}
}

func getEnv(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

// getEnvInt returns -1 for a value that is set but not a number, so that
// Validate rejects it instead of silently using the default.
func getEnvInt(key string, defaultVal int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}

func (c *Config) Validate() error {
	switch c.Driver {
	case DriverMySQL:
		if _, err := c.DSN(); err != nil {
			return err
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Driver)
	}
	if c.RootQueryStyle != RootQuerySQL && c.RootQueryStyle != RootQueryBuilder {
		return fmt.Errorf("%w: %q", ErrUnknownRootStyle, c.RootQueryStyle)
	}
	if c.Traces != TracesOff && c.Traces != TracesStdout {
		return fmt.Errorf("%w: %q", ErrUnknownTraces, c.Traces)
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	return nil
}

// DSN returns the MySQL data source name. parseTime is always enabled.
func (c *Config) DSN() (string, error) {
	if c.MySQLDSN != "" {
		cfg, err := mysql.ParseDSN(c.MySQLDSN)
		if err != nil {
			return "", fmt.Errorf("parse MYSQL_DSN: %w", err)
		}
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil
	}

	cfg := mysql.NewConfig()
	cfg.User = c.MySQLUser
	cfg.Passwd = c.MySQLPassword
	cfg.Net = "tcp"
	cfg.Addr = c.MySQLAddr
	cfg.DBName = c.MySQLDatabase
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}
