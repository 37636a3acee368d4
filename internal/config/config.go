package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	Addr             string
	DBPath           string
	Debug            bool
	AdminUser        string
	AdminPassword    string
	KeepaliveSeconds int
}

// Load parses command line flags and environment variables to populate Config.
// Flags take precedence over environment variables.
func Load() *Config {
	cfg := &Config{}

	// Defaults and Environment Variables
	cfg.Addr = getEnv("DRONEOPS_ADDR", ":8080")
	cfg.DBPath = getEnv("DRONEOPS_DB", getDefaultDBPath())
	cfg.Debug = getEnvBool("DRONEOPS_DEBUG", false)
	cfg.AdminUser = getEnv("DRONEOPS_ADMIN_USER", "admin")
	cfg.AdminPassword = getEnv("DRONEOPS_ADMIN_PASSWORD", "changeit")
	cfg.KeepaliveSeconds = getEnvInt("DRONEOPS_KEEPALIVE", 15)

	// Command Line Flags (Override Env)
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP server address")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite database")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable verbose debug logging")
	flag.IntVar(&cfg.KeepaliveSeconds, "keepalive", cfg.KeepaliveSeconds, "Stream keepalive interval in seconds")

	flag.Parse()

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getDefaultDBPath returns the default database path in user's home directory.
// Creates the directory if it doesn't exist.
func getDefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: Could not get user home directory, using current dir: %v", err)
		return "droneops.db"
	}

	dir := filepath.Join(home, ".droneops")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("Warning: Could not create .droneops directory, using current dir: %v", err)
		return "droneops.db"
	}

	return filepath.Join(dir, "droneops.db")
}
