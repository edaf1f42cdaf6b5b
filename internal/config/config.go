package config

import (
	"os"
	"strconv"

	"adaptiq/domain/catalog"
	"adaptiq/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	CAT       CATConfig
	Readiness ReadinessConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// CATConfig bundles every adaptive-testing tunable. It is passed explicitly
// into each subsystem at construction; nothing reads these globally.
type CATConfig struct {
	MinItems int // floor before any stopping rule may fire
	MaxItems int // hard upper bound on test length

	SEThreshold              float64 // posterior SE below which the test may stop
	SEStabilizationThreshold float64 // SE below which theta stabilisation may fire
	DeltaThetaThreshold      float64 // inter-item |Δθ| considered stable

	MinItemsPerDomain             int // content-balance floor per domain
	ContentBalanceWaiverThreshold int // items above which imbalance is accepted
	MinDomainsForWaiver           int // distinct domains required for the waiver

	RandomesqueK int // top-K set size for exposure control

	DomainWeights catalog.DomainWeights

	// Base seed for per-session selection streams. Zero means draw from
	// entropy at startup; simulations always pin it.
	SelectionSeed int64
}

// DefaultCATConfig returns the production tunables
func DefaultCATConfig() CATConfig {
	return CATConfig{
		MinItems:                      8,
		MaxItems:                      15,
		SEThreshold:                   0.30,
		SEStabilizationThreshold:      0.35,
		DeltaThetaThreshold:           0.03,
		MinItemsPerDomain:             1,
		ContentBalanceWaiverThreshold: 10,
		MinDomainsForWaiver:           4,
		RandomesqueK:                  5,
		DomainWeights:                 catalog.DefaultDomainWeights(),
	}
}

// Validate checks the tunables for internal consistency
func (c CATConfig) Validate() error {
	if c.MinItems < 1 {
		return errors.ConfigInvalid("MIN_ITEMS must be at least 1")
	}
	if c.MaxItems < c.MinItems {
		return errors.ConfigInvalid("MAX_ITEMS must be >= MIN_ITEMS")
	}
	if c.SEThreshold <= 0 || c.SEStabilizationThreshold <= 0 {
		return errors.ConfigInvalid("SE thresholds must be positive")
	}
	if c.DeltaThetaThreshold <= 0 {
		return errors.ConfigInvalid("DELTA_THETA_THRESHOLD must be positive")
	}
	if c.MinItemsPerDomain < 0 {
		return errors.ConfigInvalid("MIN_ITEMS_PER_DOMAIN cannot be negative")
	}
	if c.RandomesqueK < 1 {
		return errors.ConfigInvalid("RANDOMESQUE_K must be at least 1")
	}
	if err := c.DomainWeights.Validate(); err != nil {
		return errors.Wrap(err, "invalid domain weights")
	}
	return nil
}

// ReadinessConfig holds calibration-quality gates for enabling CAT
type ReadinessConfig struct {
	MaxSEDiscrimination         float64
	MaxSEDifficulty             float64
	MinCalibratedItemsPerDomain int
	MinItemsPerBand             int
}

// DefaultReadinessConfig returns the domain-tuned calibration gates
func DefaultReadinessConfig() ReadinessConfig {
	return ReadinessConfig{
		MaxSEDiscrimination:         0.35,
		MaxSEDifficulty:             0.40,
		MinCalibratedItemsPerDomain: 15,
		MinItemsPerBand:             3,
	}
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		CAT:       loadCATConfig(),
		Readiness: loadReadinessConfig(),
	}

	if cfg.Database.URL == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}
	if err := cfg.CAT.Validate(); err != nil {
		return nil, errors.Wrap(err, "CAT configuration validation failed")
	}

	return cfg, nil
}

func loadCATConfig() CATConfig {
	cat := DefaultCATConfig()
	cat.MinItems = getEnvIntOrDefault("CAT_MIN_ITEMS", cat.MinItems)
	cat.MaxItems = getEnvIntOrDefault("CAT_MAX_ITEMS", cat.MaxItems)
	cat.SEThreshold = getEnvFloatOrDefault("CAT_SE_THRESHOLD", cat.SEThreshold)
	cat.SEStabilizationThreshold = getEnvFloatOrDefault("CAT_SE_STABILIZATION_THRESHOLD", cat.SEStabilizationThreshold)
	cat.DeltaThetaThreshold = getEnvFloatOrDefault("CAT_DELTA_THETA_THRESHOLD", cat.DeltaThetaThreshold)
	cat.MinItemsPerDomain = getEnvIntOrDefault("CAT_MIN_ITEMS_PER_DOMAIN", cat.MinItemsPerDomain)
	cat.ContentBalanceWaiverThreshold = getEnvIntOrDefault("CAT_CONTENT_BALANCE_WAIVER_THRESHOLD", cat.ContentBalanceWaiverThreshold)
	cat.MinDomainsForWaiver = getEnvIntOrDefault("CAT_MIN_DOMAINS_FOR_WAIVER", cat.MinDomainsForWaiver)
	cat.RandomesqueK = getEnvIntOrDefault("CAT_RANDOMESQUE_K", cat.RandomesqueK)
	cat.SelectionSeed = int64(getEnvIntOrDefault("CAT_SELECTION_SEED", int(cat.SelectionSeed)))
	return cat
}

func loadReadinessConfig() ReadinessConfig {
	r := DefaultReadinessConfig()
	r.MaxSEDiscrimination = getEnvFloatOrDefault("READINESS_MAX_SE_DISCRIMINATION", r.MaxSEDiscrimination)
	r.MaxSEDifficulty = getEnvFloatOrDefault("READINESS_MAX_SE_DIFFICULTY", r.MaxSEDifficulty)
	r.MinCalibratedItemsPerDomain = getEnvIntOrDefault("READINESS_MIN_CALIBRATED_ITEMS_PER_DOMAIN", r.MinCalibratedItemsPerDomain)
	r.MinItemsPerBand = getEnvIntOrDefault("READINESS_MIN_ITEMS_PER_BAND", r.MinItemsPerBand)
	return r
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
