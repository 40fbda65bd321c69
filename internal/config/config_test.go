package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setDirs(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("APP_UPLOAD_DIR", filepath.Join(root, "uploads"))
	t.Setenv("APP_DATA_DIR", filepath.Join(root, "data"))
	t.Setenv("APP_OUTPUT_DIR", filepath.Join(root, "out"))
	return root
}

func TestLoadDefaults(t *testing.T) {
	root := setDirs(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, int64(16<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, 7.0, cfg.Engine.LeadTimeDays)
	assert.Equal(t, 1.65, cfg.Engine.ZValue)
	assert.Equal(t, 7, cfg.Engine.Window)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL())
	assert.False(t, cfg.Storage.Enabled)
	assert.Equal(t, filepath.Join(root, "data", "active_sales.csv"), cfg.App.DatasetPath())

	for _, dir := range []string{"uploads", "data", "out"} {
		info, err := os.Stat(filepath.Join(root, dir))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	setDirs(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("ENGINE_LEAD_TIME_DAYS", "14")
	t.Setenv("ENGINE_Z_VALUE", "2.33")
	t.Setenv("ENGINE_BATCH_WORKERS", "0")
	t.Setenv("CACHE_ENABLED", "true")
	t.Setenv("STORAGE_BUCKET", "snapshots")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 14.0, cfg.Engine.LeadTimeDays)
	assert.Equal(t, 2.33, cfg.Engine.ZValue)
	assert.Equal(t, 1, cfg.Engine.BatchWorkers)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "snapshots", cfg.Storage.Bucket)
}

func TestLoadRejectsBadUploadLimit(t *testing.T) {
	setDirs(t)
	t.Setenv("SERVER_MAX_UPLOAD_BYTES", "0")

	_, err := Load()
	assert.ErrorContains(t, err, "SERVER_MAX_UPLOAD_BYTES")
}
