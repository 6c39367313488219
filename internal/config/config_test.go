package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("ADMIN_PASSWORD", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.AuthSecret)
	assert.Empty(t, cfg.AdminPassword)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.DatabaseDriver)
	assert.Equal(t, "reports", cfg.ExportDir)
	assert.Equal(t, 30, cfg.ReportCacheTTLSeconds)
	assert.Equal(t, ":8080", cfg.Address())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "MySQL")
	t.Setenv("DATABASE_URL", "pos:secret@tcp(127.0.0.1:3306)/pos")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("SEED_SAMPLE_PRODUCTS", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, DriverMySQL, cfg.DatabaseDriver)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.True(t, cfg.SeedSampleProducts)
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appstock.yaml")
	require.NoError(t, os.WriteFile(path, []byte("STORE_NAME: Bodega Central\nEXPORT_DIR: /tmp/exports\n"), 0o600))
	t.Setenv("APPSTOCK_CONFIG", path)
	t.Setenv("EXPORT_DIR", "/srv/exports")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Bodega Central", cfg.StoreName)
	assert.Equal(t, "/srv/exports", cfg.ExportDir)
}

func TestLoadRejectsInvalidDriverSettings(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("DATABASE_DRIVER", "oracle")
	_, err = Load()
	assert.ErrorContains(t, err, "unsupported DATABASE_DRIVER")
}
