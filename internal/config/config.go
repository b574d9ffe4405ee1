// Package config centralizes how FileDrop reads environment variables and
// exposes them as strongly typed Go values.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dharsanguruparan/FileDrop/internal/naming"
)

// Config represents runtime configuration for the service. Struct fields in Go
// begin with capital letters when they must be exported (visible to other
// packages), while lower-case fields remain private.
type Config struct {
	Address           string
	UploadDir         string
	MaxFileSize       int64 // 0 means unlimited
	MaxBatchFiles     int
	NamingPolicy      naming.Policy
	CORSOrigins       []string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	LogLevel          slog.Level
	LogFormat         string
}

const (
	defaultPort              = "3000"
	defaultUploadDir         = "./uploads"
	defaultMaxFileSize       = 0
	defaultMaxBatchFiles     = 100
	defaultCORSOrigins       = "*"
	defaultReadHeaderTimeout = 10 * time.Second
	defaultShutdownTimeout   = 30 * time.Second
	defaultLogFormat         = "text"
)

// Load reads configuration from environment variables falling back to defaults.
// A .env file in the working directory is applied first when one exists;
// variables already present in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() (*Config, error) {
	policy, err := naming.ParsePolicy(readEnv("FILEDROP_NAMING_POLICY", string(naming.PolicySuffix)))
	if err != nil {
		return nil, err
	}
	level, err := parseLevel(readEnv("FILEDROP_LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Address:           readEnv("FILEDROP_ADDRESS", ":"+readEnv("PORT", defaultPort)),
		UploadDir:         readEnv("FILEDROP_UPLOAD_DIR", defaultUploadDir),
		MaxFileSize:       parseInt64("FILEDROP_MAX_FILE_BYTES", defaultMaxFileSize),
		MaxBatchFiles:     parseInt("FILEDROP_MAX_BATCH_FILES", defaultMaxBatchFiles),
		NamingPolicy:      policy,
		CORSOrigins:       parseList("FILEDROP_CORS_ORIGINS", defaultCORSOrigins),
		ReadHeaderTimeout: parseDuration("FILEDROP_READ_HEADER_TIMEOUT", defaultReadHeaderTimeout),
		ShutdownTimeout:   parseDuration("FILEDROP_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		LogLevel:          level,
		LogFormat:         strings.ToLower(readEnv("FILEDROP_LOG_FORMAT", defaultLogFormat)),
	}
	cfg.normalize()
	return cfg, nil
}

// normalize replaces out-of-range values with defaults. A negative size
// ceiling is treated like zero: unlimited.
func (c *Config) normalize() {
	if c.MaxFileSize < 0 {
		c.MaxFileSize = 0
	}
	if c.MaxBatchFiles <= 0 {
		c.MaxBatchFiles = defaultMaxBatchFiles
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.ReadHeaderTimeout < 0 {
		c.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	if c.LogFormat != "json" {
		c.LogFormat = defaultLogFormat
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{defaultCORSOrigins}
	}
}

// Logger builds the process logger described by the config.
func (c *Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func readEnv(key, def string) string {
	// LookupEnv returns (value, true) when the variable is present, mirroring
	// Go's pattern of providing extra information via multiple return values.
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func parseList(key, def string) []string {
	val := readEnv(key, def)
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInt64(key string, def int64) int64 {
	// Invalid input is ignored and the default returned.
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	// time.ParseDuration understands inputs like "5m" or "30s".
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return def
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid FILEDROP_LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}
