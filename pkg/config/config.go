// Copyright 2025 SP Consortium
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the node-level configuration for cdrnode, populated from
// environment variables. Per-network parameters (genesis validators,
// bootstrap peers, consensus sizing) live in a NetworkPreset instead —
// see network_preset.go — since those vary by which consortium network
// the node joins, not by deployment environment.
type Config struct {
	// Identity & storage
	DataDir    string // base directory; holds blockchain/ and zkp_keys/
	KeysDir    string // overrides DataDir/zkp_keys if set
	ValidatorID string
	LogLevel   string

	// Network/transport
	ListenPort  int
	MetricsAddr string
	HealthAddr  string

	// Pipeline configuration (spec §3's "Pipeline configuration" tuple)
	BatchSize                 int
	SettlementThresholdCents  uint64
	AutoAcceptThresholdCents  uint64
	EnableTriangularNetting   bool
	IsBootstrap               bool

	// Database (batch/settlement persistence, C3 is the authoritative
	// chain store — the database here is read-side/reporting only)
	DatabaseURL         string
	DatabaseMaxConns    int
	DatabaseMinConns    int
	DatabaseMaxIdleTime time.Duration
	DatabaseMaxLifetime time.Duration
	DatabaseRequired    bool

	// Security
	JWTSecret   string
	CORSOrigins []string
	TLSEnabled  bool

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   int
}

// Load reads configuration from environment variables. Call Validate or
// ValidateForDevelopment afterward depending on deployment target.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:     getEnv("DATA_DIR", "./data"),
		KeysDir:     getEnv("KEYS_DIR", ""),
		ValidatorID: getEnv("VALIDATOR_ID", "validator-default"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		ListenPort:  getEnvInt("LISTEN_PORT", 26656),
		MetricsAddr: getEnv("METRICS_ADDR", "0.0.0.0:9090"),
		HealthAddr:  getEnv("HEALTH_ADDR", "0.0.0.0:8081"),

		BatchSize:                getEnvInt("BATCH_SIZE", int(defaultBatchLength)),
		SettlementThresholdCents: getEnvUint64("SETTLEMENT_THRESHOLD_CENTS", 100_000_00),
		AutoAcceptThresholdCents: getEnvUint64("AUTO_ACCEPT_THRESHOLD_CENTS", 10_000_00),
		EnableTriangularNetting:  getEnvBool("ENABLE_TRIANGULAR_NETTING", true),
		IsBootstrap:              getEnvBool("IS_BOOTSTRAP", false),

		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DatabaseMaxConns:    getEnvInt("DATABASE_MAX_CONNS", 25),
		DatabaseMinConns:    getEnvInt("DATABASE_MIN_CONNS", 5),
		DatabaseMaxIdleTime: getEnvDuration("DATABASE_MAX_IDLE_TIME", 5*time.Minute),
		DatabaseMaxLifetime: getEnvDuration("DATABASE_MAX_LIFETIME", time.Hour),
		DatabaseRequired:    getEnvBool("DATABASE_REQUIRED", false),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		TLSEnabled:  getEnvBool("TLS_ENABLED", true),

		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvInt("RATE_LIMIT_WINDOW", 60),
	}

	return cfg, nil
}

// defaultBatchLength mirrors primitives.BatchLength without importing
// pkg/primitives here, to keep config dependency-free of the domain types
// it configures.
const defaultBatchLength = 8

// Validate checks that all required configuration is present and secure
// for production use.
func (c *Config) Validate() error {
	var errs []string

	if c.DatabaseRequired && c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required but not set")
	}
	if c.DatabaseURL != "" && strings.Contains(c.DatabaseURL, "sslmode=disable") {
		errs = append(errs, "DATABASE_URL must use sslmode=require for production security")
	}

	if c.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET is required but not set")
	} else {
		lower := strings.ToLower(c.JWTSecret)
		for _, weak := range []string{"development", "secret", "password", "change-me", "changeme", "default", "test"} {
			if strings.Contains(lower, weak) {
				errs = append(errs, "JWT_SECRET contains a weak/default value")
				break
			}
		}
		if len(c.JWTSecret) < 32 {
			errs = append(errs, "JWT_SECRET must be at least 32 characters")
		}
	}

	if !c.TLSEnabled {
		fmt.Println("WARNING: TLS_ENABLED is false - enable TLS for production")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ValidateForDevelopment performs relaxed validation suitable for devnet/testnet.
func (c *Config) ValidateForDevelopment() error {
	if c.DataDir == "" {
		return fmt.Errorf("development configuration validation failed:\n  - DATA_DIR is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
