package service

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/andresuchdata/inventory-optimizer/internal/cache"
	"github.com/andresuchdata/inventory-optimizer/internal/ingest"
	"github.com/andresuchdata/inventory-optimizer/internal/metrics"
	"github.com/andresuchdata/inventory-optimizer/internal/reorder"
	"github.com/andresuchdata/inventory-optimizer/internal/snapshot"
	"github.com/andresuchdata/inventory-optimizer/internal/storage"
)

// ErrNoDataset is returned when no sales data has been uploaded yet.
var ErrNoDataset = errors.New("no sales data uploaded yet, please upload a CSV or Excel file")

type Options struct {
	Engine      *reorder.Engine
	Cache       cache.RecommendationCache
	Snapshots   *snapshot.FileStore
	DatasetPath string
	Defaults    reorder.Params
	DefaultSort reorder.SortKey

	// Mirror receives a copy of every computed snapshot when set.
	Mirror       storage.ObjectStorage
	MirrorPrefix string

	Metrics *metrics.Collector
	Logger  zerolog.Logger
}

// UploadSummary describes a dataset accepted by Upload.
type UploadSummary struct {
	Rows     int               `json:"rows"`
	Products int               `json:"products"`
	Columns  map[string]string `json:"columns"`
	Warnings []reorder.Warning `json:"warnings"`
}

type ReorderService struct {
	opts Options
	log  zerolog.Logger

	mu          sync.RWMutex
	dataset     *reorder.Dataset
	fingerprint string
}

func NewReorderService(opts Options) *ReorderService {
	if opts.Engine == nil {
		opts.Engine = reorder.NewEngine(reorder.Options{Logger: opts.Logger})
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNoopRecommendationCache()
	}
	if opts.Defaults == (reorder.Params{}) {
		opts.Defaults = reorder.DefaultParams()
	}
	if opts.DefaultSort == "" {
		opts.DefaultSort = reorder.SortInput
	}
	return &ReorderService{
		opts: opts,
		log:  opts.Logger.With().Str("component", "reorder_service").Logger(),
	}
}

func (s *ReorderService) Defaults() reorder.Params { return s.opts.Defaults }

func (s *ReorderService) DefaultSort() reorder.SortKey { return s.opts.DefaultSort }

// Upload validates a sales file and makes it the active dataset. Nothing
// changes when validation fails.
func (s *ReorderService) Upload(ctx context.Context, filename string, r io.Reader) (*UploadSummary, error) {
	table, err := ingest.Load(filename, r)
	if err != nil {
		return nil, err
	}
	ds, err := s.opts.Engine.NormalizeAndValidate(table)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := ingest.WriteCSV(&buf, ds.Table()); err != nil {
		return nil, fmt.Errorf("encode dataset: %w", err)
	}
	if err := s.activate(ds, buf.Bytes()); err != nil {
		return nil, err
	}

	if err := s.opts.Cache.InvalidateAll(ctx); err != nil {
		s.log.Warn().Err(err).Msg("reorder: cache invalidate failed")
	}

	products := len(ds.Products())
	s.log.Info().
		Str("file", filename).
		Int("rows", len(ds.Records)).
		Int("products", products).
		Int("warnings", len(ds.Warnings)).
		Msg("dataset uploaded")

	warnings := ds.Warnings
	if warnings == nil {
		warnings = make([]reorder.Warning, 0)
	}
	return &UploadSummary{
		Rows:     len(ds.Records),
		Products: products,
		Columns:  ds.Columns,
		Warnings: warnings,
	}, nil
}

// activate persists data and swaps it in under one lock, so the file on disk
// and the in-memory dataset always name the same upload.
func (s *ReorderService) activate(ds *reorder.Dataset, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := snapshot.WriteFileAtomic(s.opts.DatasetPath, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}); err != nil {
		return fmt.Errorf("persist dataset: %w", err)
	}
	s.dataset = ds
	s.fingerprint = fingerprint(data)
	return nil
}

// EnsureSampleDataset seeds the built-in sample when no dataset exists on
// disk. It reports whether seeding happened.
func (s *ReorderService) EnsureSampleDataset(ctx context.Context) (bool, error) {
	if _, err := os.Stat(s.opts.DatasetPath); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if _, err := s.Upload(ctx, "sample.csv", strings.NewReader(reorder.SampleCSV)); err != nil {
		return false, fmt.Errorf("seed sample dataset: %w", err)
	}
	return true, nil
}

// current returns the active dataset, loading the persisted copy on first use.
func (s *ReorderService) current() (*reorder.Dataset, string, error) {
	s.mu.RLock()
	ds, fp := s.dataset, s.fingerprint
	s.mu.RUnlock()
	if ds != nil {
		return ds, fp, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dataset != nil {
		return s.dataset, s.fingerprint, nil
	}

	data, err := os.ReadFile(s.opts.DatasetPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", ErrNoDataset
	}
	if err != nil {
		return nil, "", fmt.Errorf("read dataset: %w", err)
	}
	table, err := ingest.Load(s.opts.DatasetPath, bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("load dataset: %w", err)
	}
	ds, err = s.opts.Engine.NormalizeAndValidate(table)
	if err != nil {
		return nil, "", fmt.Errorf("load dataset: %w", err)
	}

	s.dataset = ds
	s.fingerprint = fingerprint(data)
	return ds, s.fingerprint, nil
}

// Recommendations computes, or serves from cache, the table for params and
// stores it as the downloadable snapshot.
func (s *ReorderService) Recommendations(ctx context.Context, params reorder.Params, sortKey reorder.SortKey) (*reorder.Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	ds, fp, err := s.current()
	if err != nil {
		return nil, err
	}

	key := cache.RecommendationKey{Dataset: fp, Params: params}
	res, ok, err := s.opts.Cache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Msg("reorder: cache get failed")
	}
	if !ok {
		if res, err = s.compute(ds, params); err != nil {
			return nil, err
		}
		if err := s.opts.Cache.Set(ctx, key, res); err != nil {
			s.log.Warn().Err(err).Msg("reorder: cache set failed")
		}
		s.mirror(ctx, res)
	}

	if err := s.opts.Snapshots.Save(res.Recommendations); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	out := *res
	out.Recommendations = reorder.SortRecommendations(res.Recommendations, sortKey)
	if out.Warnings == nil {
		out.Warnings = make([]reorder.Warning, 0)
	}
	return &out, nil
}

func (s *ReorderService) compute(ds *reorder.Dataset, params reorder.Params) (*reorder.Result, error) {
	start := time.Now()
	res, err := s.opts.Engine.ComputeRecommendations(ds, params)
	if s.opts.Metrics != nil {
		s.opts.Metrics.ObserveRun(metrics.Outcome(err), time.Since(start), res)
	}
	return res, err
}

func (s *ReorderService) mirror(ctx context.Context, res *reorder.Result) {
	if s.opts.Mirror == nil {
		return
	}
	var buf bytes.Buffer
	if err := snapshot.WriteCSV(&buf, res.Recommendations); err != nil {
		s.log.Warn().Err(err).Msg("reorder: encode snapshot mirror failed")
		return
	}
	key := path.Join(s.opts.MirrorPrefix, fmt.Sprintf("inventory_recommendations_%s.csv", res.GeneratedAt.Format("20060102T150405Z")))
	if err := s.opts.Mirror.UploadObject(ctx, key, buf.Bytes()); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("reorder: snapshot mirror upload failed")
		return
	}
	s.log.Debug().Str("key", key).Msg("snapshot mirrored")
}

// Products lists the active dataset's products in first-encounter order.
func (s *ReorderService) Products(ctx context.Context) ([]string, error) {
	ds, _, err := s.current()
	if err != nil {
		return nil, err
	}
	products := ds.Products()
	if products == nil {
		products = make([]string, 0)
	}
	return products, nil
}

func (s *ReorderService) Trend(ctx context.Context, product string, window int) (*reorder.Trend, error) {
	ds, _, err := s.current()
	if err != nil {
		return nil, err
	}
	if window <= 0 {
		window = s.opts.Defaults.Window
	}
	return reorder.BuildTrend(ds, product, window)
}

// OpenSnapshot opens the latest snapshot. The caller closes it.
func (s *ReorderService) OpenSnapshot() (*os.File, error) {
	return s.opts.Snapshots.Open()
}

func fingerprint(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}
