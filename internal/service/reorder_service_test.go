package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/inventory-optimizer/internal/cache"
	"github.com/andresuchdata/inventory-optimizer/internal/reorder"
	"github.com/andresuchdata/inventory-optimizer/internal/snapshot"
	"github.com/andresuchdata/inventory-optimizer/internal/storage"
)

type memoryCache struct {
	mu          sync.Mutex
	entries     map[string]*reorder.Result
	hits        int
	invalidated int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]*reorder.Result)}
}

func (c *memoryCache) Get(_ context.Context, key cache.RecommendationKey) (*reorder.Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.entries[key.String()]
	if ok {
		c.hits++
	}
	return res, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key cache.RecommendationKey, res *reorder.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key.String()] = res
	return nil
}

func (c *memoryCache) InvalidateAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*reorder.Result)
	c.invalidated++
	return nil
}

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	failing bool
}

func (m *memoryStorage) ListObjects(context.Context, string) ([]storage.ObjectInfo, error) {
	return nil, nil
}

func (m *memoryStorage) DownloadObject(context.Context, string, string) error {
	return errors.New("not implemented")
}

func (m *memoryStorage) UploadObject(_ context.Context, key string, data []byte) error {
	if m.failing {
		return errors.New("bucket unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[key] = data
	return nil
}

type fixture struct {
	svc     *ReorderService
	cache   *memoryCache
	mirror  *memoryStorage
	dir     string
	options Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{cache: newMemoryCache(), mirror: &memoryStorage{}, dir: dir}
	f.options = Options{
		Cache:        f.cache,
		Snapshots:    snapshot.NewFileStore(filepath.Join(dir, "out"), "recommendations.csv"),
		DatasetPath:  filepath.Join(dir, "data", "active_sales.csv"),
		Mirror:       f.mirror,
		MirrorPrefix: "snapshots",
		Logger:       zerolog.Nop(),
	}
	f.svc = NewReorderService(f.options)
	return f
}

func TestNoDataset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Recommendations(ctx, reorder.DefaultParams(), reorder.SortInput)
	assert.ErrorIs(t, err, ErrNoDataset)
	_, err = f.svc.Products(ctx)
	assert.ErrorIs(t, err, ErrNoDataset)

	_, err = f.svc.OpenSnapshot()
	assert.ErrorIs(t, err, snapshot.ErrNoSnapshot)
}

func TestEnsureSampleDataset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seeded, err := f.svc.EnsureSampleDataset(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = f.svc.EnsureSampleDataset(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)

	products, err := f.svc.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Product A", "Product B"}, products)
}

func TestUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	summary, err := f.svc.Upload(ctx, "sales.csv", strings.NewReader(
		"Order Date,SKU,Qty,Stock\n2023-01-01,W-1,4,10\n2023-01-02,W-1,oops,8\n2023-01-01,W-2,1,3\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Rows)
	assert.Equal(t, 2, summary.Products)
	assert.Equal(t, "SKU", summary.Columns[reorder.FieldProduct])
	require.Len(t, summary.Warnings, 1)
	assert.Equal(t, reorder.WarnInvalidQuantity, summary.Warnings[0].Kind)
	assert.Equal(t, 1, f.cache.invalidated)

	data, err := os.ReadFile(f.options.DatasetPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "date,product,sold_units,current_stock\n2023-01-01,W-1,4,10\n"))

	_, err = f.svc.Upload(ctx, "broken.csv", strings.NewReader("Date,Price\n2023-01-01,4\n"))
	var missing *reorder.MissingColumnError
	require.ErrorAs(t, err, &missing)

	_, err = f.svc.Upload(ctx, "sales.txt", strings.NewReader("whatever"))
	assert.ErrorContains(t, err, "unsupported file format")

	products, err := f.svc.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"W-1", "W-2"}, products, "failed uploads keep the previous dataset")
	assert.Equal(t, 1, f.cache.invalidated)
}

func TestRecommendations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.EnsureSampleDataset(ctx)
	require.NoError(t, err)

	res, err := f.svc.Recommendations(ctx, reorder.DefaultParams(), reorder.SortUrgency)
	require.NoError(t, err)
	require.Len(t, res.Recommendations, 2)
	assert.Equal(t, "Product B", res.Recommendations[0].Product)
	assert.NotNil(t, res.Warnings)

	saved, err := f.options.Snapshots.Load()
	require.NoError(t, err)
	assert.Equal(t, "Product A", saved[0].Product, "snapshot keeps computation order")
	assert.Len(t, f.mirror.objects, 1)
	for key := range f.mirror.objects {
		assert.True(t, strings.HasPrefix(key, "snapshots/inventory_recommendations_"))
	}

	again, err := f.svc.Recommendations(ctx, reorder.DefaultParams(), reorder.SortInput)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.hits)
	assert.Equal(t, "Product A", again.Recommendations[0].Product)
	assert.Len(t, f.mirror.objects, 1, "cache hits are not mirrored again")

	_, err = f.svc.Recommendations(ctx, reorder.Params{LeadTimeDays: -1, ZValue: 1, Window: 7}, reorder.SortInput)
	var invalid *reorder.InvalidParamsError
	assert.ErrorAs(t, err, &invalid)
}

func TestRecommendationsMirrorFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.mirror.failing = true
	ctx := context.Background()
	_, err := f.svc.EnsureSampleDataset(ctx)
	require.NoError(t, err)

	res, err := f.svc.Recommendations(ctx, reorder.DefaultParams(), reorder.SortInput)
	require.NoError(t, err)
	assert.Len(t, res.Recommendations, 2)

	file, err := f.svc.OpenSnapshot()
	require.NoError(t, err)
	file.Close()
}

func TestDatasetSurvivesRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.EnsureSampleDataset(ctx)
	require.NoError(t, err)
	first, err := f.svc.Recommendations(ctx, reorder.DefaultParams(), reorder.SortInput)
	require.NoError(t, err)

	restarted := NewReorderService(f.options)
	products, err := restarted.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Product A", "Product B"}, products)

	second, err := restarted.Recommendations(ctx, reorder.DefaultParams(), reorder.SortInput)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.hits, "same data and params share a cache key across restarts")
	assert.Equal(t, first.Recommendations, second.Recommendations)
}

func TestTrend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.EnsureSampleDataset(ctx)
	require.NoError(t, err)

	trend, err := f.svc.Trend(ctx, "PRODUCT B", 0)
	require.NoError(t, err)
	assert.Equal(t, "Product B", trend.Product)
	assert.Equal(t, reorder.DefaultWindow, trend.Window)
	assert.Len(t, trend.Points, 5)

	_, err = f.svc.Trend(ctx, "Product Q", 3)
	assert.ErrorIs(t, err, reorder.ErrUnknownProduct)
}

func TestConcurrentUploadsKeepDiskAndMemoryInSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf("Date,Product,Sold_Units,Current_Stock\n2023-01-01,P%d,%d,10\n", i, i+1)
			_, err := f.svc.Upload(ctx, fmt.Sprintf("store_%d.csv", i), strings.NewReader(body))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	inMemory, err := f.svc.Products(ctx)
	require.NoError(t, err)
	onDisk, err := NewReorderService(f.options).Products(ctx)
	require.NoError(t, err)

	require.Len(t, inMemory, 1)
	assert.Equal(t, onDisk, inMemory)
}
