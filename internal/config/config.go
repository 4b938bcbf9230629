// Package config reads the process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissing is wrapped by errors for required variables that are unset or empty.
var ErrMissing = errors.New("required environment variable is not set")

// DefaultProbeIP is resolved at startup to check the database is usable.
const DefaultProbeIP = "1.1.1.1"

// Config holds process-wide settings. It is read once at startup.
type Config struct {
	DatabasePath   string
	ReloadInterval time.Duration
	Host           string
	Port           int
	ProbeIP        string
	WatchDatabase  bool
	GRPCPort       int
	LogLevel       string
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// GRPCAddr returns the gRPC listen address, or "" when gRPC is disabled.
func (c Config) GRPCAddr() string {
	if c.GRPCPort == 0 {
		return ""
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(c.GRPCPort))
}

// Load reads an optional .env file from the working directory and then
// builds the Config from the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds the Config using lookup to read variables. All problems
// are reported together.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	var errs []error

	required := func(key string) string {
		v, ok := lookup(key)
		if !ok || v == "" {
			errs = append(errs, fmt.Errorf("%s: %w", key, ErrMissing))
		}
		return v
	}
	optional := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		DatabasePath: required("DATABASE_PATH"),
		Host:         required("HOST"),
		ProbeIP:      optional("PROBE_IP", DefaultProbeIP),
		LogLevel:     optional("LOG_LEVEL", "info"),
	}

	if v := required("RELOAD_DATABASE_INTERVAL"); v != "" {
		secs, err := strconv.ParseUint(v, 10, 32)
		if err != nil || secs == 0 {
			errs = append(errs, fmt.Errorf("RELOAD_DATABASE_INTERVAL: expected positive integer seconds, got %q", v))
		}
		cfg.ReloadInterval = time.Duration(secs) * time.Second
	}

	if v := required("PORT"); v != "" {
		port, err := parsePort(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PORT: %w", err))
		}
		cfg.Port = port
	}

	if v := optional("GRPC_PORT", ""); v != "" {
		port, err := parsePort(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("GRPC_PORT: %w", err))
		}
		cfg.GRPCPort = port
	}

	if v := optional("WATCH_DATABASE", ""); v != "" {
		watch, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("WATCH_DATABASE: expected boolean, got %q", v))
		}
		cfg.WatchDatabase = watch
	}

	if net.ParseIP(cfg.ProbeIP) == nil {
		errs = append(errs, fmt.Errorf("PROBE_IP: %q is not an IP address", cfg.ProbeIP))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parsePort(v string) (int, error) {
	port, err := strconv.ParseUint(v, 10, 16)
	if err != nil || port == 0 {
		return 0, fmt.Errorf("expected port 1-65535, got %q", v)
	}
	return int(port), nil
}
