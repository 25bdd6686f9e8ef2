package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"deview/domain/results"
	"deview/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Admin    AdminConfig
	Analysis AnalysisConfig
	Storage  StorageConfig
	Database DatabaseConfig
	LogLevel string
}

// ServerConfig holds the interactive web server settings
type ServerConfig struct {
	Port           string
	GinMode        string
	MaxUploadBytes int64
}

// AdminConfig holds the metrics, health and pprof listener settings
type AdminConfig struct {
	Port    string
	Enabled bool
}

// AnalysisConfig holds the defaults a fresh session starts with
type AnalysisConfig struct {
	ResultsFile  string
	Threshold    results.Threshold
	Mapping      results.ColumnMapping
	PipelineRoot string
}

// StorageConfig selects where uploaded results files are kept
type StorageConfig struct {
	Driver string
	Path   string
	S3     S3Config
}

// S3Config holds the S3 bucket settings used when Driver is "s3"
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
}

// DatabaseConfig holds the upload catalog connection
type DatabaseConfig struct {
	URL    string
	Driver string
	DSN    string
}

const (
	StorageLocal = "local"
	StorageS3    = "s3"
	StorageNone  = "none"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server:   *loadServerConfig(),
		Admin:    *loadAdminConfig(),
		Storage:  *loadStorageConfig(),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	analysis, err := loadAnalysisConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load analysis configuration")
	}
	config.Analysis = *analysis

	db, err := loadDatabaseConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load database configuration")
	}
	config.Database = *db

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:           getEnvOrDefault("PORT", "8080"),
		GinMode:        getEnvOrDefault("GIN_MODE", "debug"),
		MaxUploadBytes: int64(getEnvIntOrDefault("MAX_UPLOAD_MB", 50)) << 20,
	}
}

func loadAdminConfig() *AdminConfig {
	return &AdminConfig{
		Port:    getEnvOrDefault("ADMIN_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("ADMIN_ENABLED", true),
	}
}

func loadAnalysisConfig() (*AnalysisConfig, error) {
	threshold := results.DefaultThreshold()
	var err error
	if threshold.PCutoff, err = getEnvFloat("P_CUTOFF", threshold.PCutoff); err != nil {
		return nil, err
	}
	if threshold.FoldChangeCutoff, err = getEnvFloat("FC_CUTOFF", threshold.FoldChangeCutoff); err != nil {
		return nil, err
	}

	if basis := os.Getenv("SIGNIFICANCE_BASIS"); basis != "" {
		threshold.Basis = results.ParseColumn(basis)
	}

	mapping := results.DefaultColumnMapping()
	aliases := map[results.Column]string{
		results.ColumnGeneID:    "COLUMN_GENE_ID",
		results.ColumnLogFC:     "COLUMN_LOG_FC",
		results.ColumnPValue:    "COLUMN_P_VALUE",
		results.ColumnAdjPValue: "COLUMN_ADJ_P_VALUE",
	}
	for _, col := range results.CoreColumns {
		if v := os.Getenv(aliases[col]); v != "" {
			mapping = mapping.WithAliases(col, strings.Split(v, ",")...)
		}
	}

	return &AnalysisConfig{
		ResultsFile:  getEnvOrDefault("RESULTS_FILE", ""),
		Threshold:    threshold,
		Mapping:      mapping,
		PipelineRoot: getEnvOrDefault("PIPELINE_ROOT", "./rnaseq"),
	}, nil
}

func loadStorageConfig() *StorageConfig {
	return &StorageConfig{
		Driver: strings.ToLower(getEnvOrDefault("STORAGE_DRIVER", StorageLocal)),
		Path:   getEnvOrDefault("STORAGE_PATH", "./uploads"),
		S3: S3Config{
			Bucket:    getEnvOrDefault("S3_BUCKET", ""),
			Region:    getEnvOrDefault("S3_REGION", "us-east-1"),
			Endpoint:  getEnvOrDefault("S3_ENDPOINT", ""),
			PathStyle: getEnvBoolOrDefault("S3_PATH_STYLE", false),
		},
	}
}

func loadDatabaseConfig() (*DatabaseConfig, error) {
	url := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	driver, dsn, err := ParseDatabaseURL(url)
	if err != nil {
		return nil, err
	}
	return &DatabaseConfig{URL: url, Driver: driver, DSN: dsn}, nil
}

// ParseDatabaseURL picks the catalog driver from a DATABASE_URL value.
// postgres URLs go to lib/pq unchanged, sqlite://path and file: URLs to the
// embedded sqlite driver, and an empty value selects the in-memory catalog.
func ParseDatabaseURL(url string) (driver, dsn string, err error) {
	switch {
	case url == "":
		return DriverMemory, "", nil
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres, url, nil
	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite://")
		if path == "" {
			return "", "", errors.ConfigInvalid("sqlite DATABASE_URL needs a path")
		}
		return DriverSQLite, path, nil
	case strings.HasPrefix(url, "file:"):
		return DriverSQLite, url, nil
	default:
		return "", "", errors.ConfigInvalidf("unsupported DATABASE_URL scheme in %q", url)
	}
}

func validateConfig(config *Config) error {
	if err := config.Analysis.Threshold.Validate(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if config.Server.MaxUploadBytes <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_MB must be positive")
	}
	switch config.Storage.Driver {
	case StorageLocal:
		if config.Storage.Path == "" {
			return errors.ConfigInvalid("STORAGE_PATH is required for local storage")
		}
	case StorageS3:
		if config.Storage.S3.Bucket == "" {
			return errors.ConfigInvalid("S3_BUCKET is required for s3 storage")
		}
	case StorageNone:
	default:
		return errors.ConfigInvalidf("unknown STORAGE_DRIVER %q", config.Storage.Driver)
	}
	if config.Server.Port == config.Admin.Port && config.Admin.Enabled {
		return errors.ConfigInvalid("PORT and ADMIN_PORT must differ")
	}
	return nil
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

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvFloat rejects unparsable cutoffs instead of silently using the default.
func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s must be a number, got %q", key, value))
	}
	return f, nil
}
