package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/inventory-optimizer/internal/api/middleware"
	"github.com/andresuchdata/inventory-optimizer/internal/metrics"
	"github.com/andresuchdata/inventory-optimizer/internal/reorder"
	"github.com/andresuchdata/inventory-optimizer/internal/service"
	"github.com/andresuchdata/inventory-optimizer/internal/snapshot"
)

type testServer struct {
	router    *gin.Engine
	uploadDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	collector := metrics.New()

	svc := service.NewReorderService(service.Options{
		Metrics:     collector,
		Snapshots:   snapshot.NewFileStore(filepath.Join(dir, "out"), "recommendations.csv"),
		DatasetPath: filepath.Join(dir, "data", "active_sales.csv"),
		Logger:      zerolog.Nop(),
	})
	uploadDir := filepath.Join(dir, "uploads")
	router := NewRouter(&Services{ReorderService: svc}, RouterConfig{
		AllowedOrigins: []string{"*"},
		MaxUploadBytes: 1 << 20,
		UploadDir:      uploadDir,
		Metrics:        collector,
		Logger:         zerolog.Nop(),
	})
	return &testServer{router: router, uploadDir: uploadDir}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) get(t *testing.T, target string) *httptest.ResponseRecorder {
	return s.do(t, httptest.NewRequest(http.MethodGet, target, nil))
}

func (s *testServer) upload(t *testing.T, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return s.do(t, req)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndNoRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.get(t, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	rec = s.get(t, "/nowhere")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "route not found", decode(t, rec)["error"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")

	rec := s.do(t, req)
	assert.Equal(t, "abc-123", rec.Header().Get(middleware.RequestIDHeader))
}

func TestEndpointsWithoutDataset(t *testing.T) {
	s := newTestServer(t)

	for _, target := range []string{"/api/v1/recommendations", "/api/v1/products", "/api/v1/products/A/trend"} {
		rec := s.get(t, target)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Equal(t, "no dataset uploaded", decode(t, rec)["error"], target)
	}

	rec := s.get(t, "/api/v1/recommendations/download")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no recommendations computed yet", decode(t, rec)["error"])
}

func TestUploadAndRecommend(t *testing.T) {
	s := newTestServer(t)

	rec := s.upload(t, "sales.csv", reorder.SampleCSV)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, 10.0, body["rows"])
	assert.Equal(t, 2.0, body["products"])
	assert.Empty(t, body["warnings"])

	archived, err := os.ReadDir(s.uploadDir)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.True(t, strings.HasSuffix(archived[0].Name(), "_sales.csv"))

	rec = s.get(t, "/api/v1/recommendations?lead_time_days=7&z_value=1.65&sort=urgency")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decode(t, rec)
	assert.Equal(t, 2.0, body["count"])
	assert.Equal(t, "urgency", body["sort"])
	items := body["items"].([]interface{})
	first := items[0].(map[string]interface{})
	assert.Equal(t, "Product B", first["product"])
	assert.Equal(t, true, first["needs_reorder"])
	assert.Equal(t, 0.0, first["days_until_stockout"])
	params := body["params"].(map[string]interface{})
	assert.Equal(t, 7.0, params["window"])

	rec = s.get(t, "/api/v1/recommendations/download")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `attachment; filename="inventory_recommendations_`)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), strings.Join(snapshot.Columns, ",")+"\n"))

	rec = s.get(t, "/api/v1/products")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"Product A", "Product B"}, decode(t, rec)["items"])

	rec = s.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `reorder_runs_total{outcome="success"} 1`)
}

func TestRecommendationParamErrors(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.upload(t, "sales.csv", reorder.SampleCSV).Code)

	for _, query := range []string{"window=0", "z_value=abc", "lead_time_days=-3", "window=400", "sort=price"} {
		rec := s.get(t, "/api/v1/recommendations?"+query)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
		assert.Equal(t, "invalid parameters", decode(t, rec)["error"], query)
	}
}

func TestUploadErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		filename string
		content  string
		status   int
		message  string
	}{
		{"missing columns", "sales.csv", "Date,Price\n2023-01-01,3\n", http.StatusUnprocessableEntity, "missing required columns"},
		{"bad dates", "sales.csv", "Date,Product,Qty\nsomeday,A,1\n", http.StatusUnprocessableEntity, "invalid date values"},
		{"header only", "sales.csv", "Date,Product,Qty\n", http.StatusUnprocessableEntity, "the file contains no data"},
		{"unsupported", "sales.json", "{}", http.StatusBadRequest, "unsupported file format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.upload(t, tt.filename, tt.content)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decode(t, rec)["error"])
		})
	}

	rec := s.upload(t, "sales.csv", "Date,Price\n2023-01-01,3\n")
	body := decode(t, rec)
	assert.Equal(t, []interface{}{"product", "sold_units"}, body["missing"])
	assert.Equal(t, []interface{}{"date", "price"}, body["available"])

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", strings.NewReader("plain"))
	req.Header.Set("Content-Type", "text/plain")
	rec = s.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no file provided", decode(t, rec)["error"])
}

func TestTrend(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.upload(t, "sales.csv", reorder.SampleCSV).Code)

	rec := s.get(t, "/api/v1/products/product%20a/trend?window=3")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Product A", body["product"])
	assert.Equal(t, 3.0, body["window"])
	assert.Equal(t, 13.0, body["average"])
	assert.Len(t, body["points"], 5)

	rec = s.get(t, "/api/v1/products/Nope/trend")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "product not found", decode(t, rec)["error"])

	rec = s.get(t, "/api/v1/products/Product%20A/trend?window=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", " "})
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, origins)
	assert.False(t, all)

	_, all = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, all)
}
