package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/inventory-optimizer/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{Port: "0", Mode: "release", MaxUploadBytes: 1 << 20, AllowedOrigins: []string{"*"}},
		App: config.AppConfig{
			UploadDir:    filepath.Join(dir, "uploads"),
			DataDir:      filepath.Join(dir, "data"),
			OutputDir:    filepath.Join(dir, "out"),
			DatasetFile:  "active_sales.csv",
			SnapshotFile: "recommendations.csv",
			SeedSample:   true,
		},
		Engine: config.EngineConfig{LeadTimeDays: 7, ZValue: 1.65, Window: 7, DefaultSort: "urgency", BatchWorkers: 2},
	}
}

func TestNewSeedsAndServes(t *testing.T) {
	srv, err := New(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/recommendations", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"sort":"urgency"`)
	assert.Contains(t, rec.Body.String(), `"product":"Product B"`)
}

func TestNewRejectsBadDefaults(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine.Window = 0
	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "engine defaults")

	cfg = testConfig(t)
	cfg.Engine.DefaultSort = "alphabetical"
	_, err = New(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "engine defaults")
}

func TestRunStopsOnCancel(t *testing.T) {
	srv, err := New(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, srv.Run(ctx))
}
