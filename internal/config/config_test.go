package config

import (
	"testing"

	"deview/domain/results"
	"deview/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PORT", "GIN_MODE", "ADMIN_PORT", "ADMIN_ENABLED", "LOG_LEVEL", "RESULTS_FILE",
		"P_CUTOFF", "FC_CUTOFF", "SIGNIFICANCE_BASIS", "MAX_UPLOAD_MB", "STORAGE_DRIVER", "STORAGE_PATH",
		"S3_BUCKET", "S3_REGION", "S3_ENDPOINT", "S3_PATH_STYLE", "DATABASE_URL",
		"COLUMN_GENE_ID", "COLUMN_LOG_FC", "COLUMN_P_VALUE", "COLUMN_ADJ_P_VALUE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(50<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "6060", cfg.Admin.Port)
	assert.True(t, cfg.Admin.Enabled)
	assert.Equal(t, results.DefaultThreshold(), cfg.Analysis.Threshold)
	assert.Equal(t, StorageLocal, cfg.Storage.Driver)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "INFO", cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("P_CUTOFF", "0.1")
	t.Setenv("FC_CUTOFF", "2")
	t.Setenv("SIGNIFICANCE_BASIS", "p_value")
	t.Setenv("COLUMN_LOG_FC", "lfc, log2_ratio")
	t.Setenv("STORAGE_DRIVER", "S3")
	t.Setenv("S3_BUCKET", "results")
	t.Setenv("DATABASE_URL", "sqlite:///var/lib/deview/catalog.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.1, cfg.Analysis.Threshold.PCutoff)
	assert.Equal(t, 2.0, cfg.Analysis.Threshold.FoldChangeCutoff)
	assert.Equal(t, results.ColumnPValue, cfg.Analysis.Threshold.Basis)
	assert.Equal(t, []string{"lfc", "log2_ratio"}, cfg.Analysis.Mapping[results.ColumnLogFC][:2])
	assert.Equal(t, StorageS3, cfg.Storage.Driver)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/var/lib/deview/catalog.db", cfg.Database.DSN)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"p cutoff not a number", map[string]string{"P_CUTOFF": "abc"}},
		{"p cutoff above one", map[string]string{"P_CUTOFF": "1.5"}},
		{"negative fold change", map[string]string{"FC_CUTOFF": "-1"}},
		{"s3 without bucket", map[string]string{"STORAGE_DRIVER": "s3"}},
		{"unknown storage", map[string]string{"STORAGE_DRIVER": "ftp"}},
		{"unknown database", map[string]string{"DATABASE_URL": "mysql://x"}},
		{"basis not a p-value", map[string]string{"SIGNIFICANCE_BASIS": "log_fold_change"}},
		{"same ports", map[string]string{"PORT": "9000", "ADMIN_PORT": "9000"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestParseDatabaseURL(t *testing.T) {
	tests := []struct {
		url, driver, dsn string
	}{
		{"", DriverMemory, ""},
		{"postgres://u:p@localhost/deview?sslmode=disable", DriverPostgres, "postgres://u:p@localhost/deview?sslmode=disable"},
		{"postgresql://localhost/deview", DriverPostgres, "postgresql://localhost/deview"},
		{"sqlite://catalog.db", DriverSQLite, "catalog.db"},
		{"file:catalog.db?cache=shared", DriverSQLite, "file:catalog.db?cache=shared"},
	}
	for _, tt := range tests {
		driver, dsn, err := ParseDatabaseURL(tt.url)
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.driver, driver, tt.url)
		assert.Equal(t, tt.dsn, dsn, tt.url)
	}

	_, _, err := ParseDatabaseURL("sqlite://")
	assert.Error(t, err)
}
