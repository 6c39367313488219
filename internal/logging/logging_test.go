package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSetupWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appstock.log")
	logger, err := Setup("production", path)
	require.NoError(t, err)
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })
	assert.Same(t, logger, zap.L())

	zap.L().Info("sale confirmed", zap.Int64("sale_id", 7))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sale_id":7`)
}

func TestNewDevelopmentWithoutFile(t *testing.T) {
	logger, err := New("development", "")
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
