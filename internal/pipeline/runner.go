package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/inventory-optimizer/internal/ingest"
	"github.com/andresuchdata/inventory-optimizer/internal/metrics"
	"github.com/andresuchdata/inventory-optimizer/internal/reorder"
	"github.com/andresuchdata/inventory-optimizer/internal/snapshot"
)

// Runner computes recommendations for many sales files with a bounded pool
// of workers. Each file is independent; one failing does not stop the rest.
type Runner struct {
	engine  *reorder.Engine
	cfg     Config
	log     zerolog.Logger
	metrics *metrics.Collector
}

func NewRunner(engine *reorder.Engine, cfg Config, log zerolog.Logger, collector *metrics.Collector) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Params == (reorder.Params{}) {
		cfg.Params = reorder.DefaultParams()
	}
	return &Runner{
		engine:  engine,
		cfg:     cfg,
		log:     log.With().Str("component", "batch_runner").Logger(),
		metrics: collector,
	}
}

// OutputPath is where the snapshot for input is written.
func (r *Runner) OutputPath(input string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(r.cfg.OutputDir, stem+"_recommendations.csv")
}

// Run processes files and returns once all of them finished or ctx was
// cancelled. Invalid params fail the whole run up front.
func (r *Runner) Run(ctx context.Context, files []string) (*Run, error) {
	if err := r.cfg.Params.Validate(); err != nil {
		return nil, err
	}

	run := &Run{
		ID:        uuid.NewString(),
		Status:    StatusProcessing,
		StartedAt: time.Now().UTC(),
		Files:     make([]FileResult, len(files)),
	}
	log := r.log.With().Str("run_id", run.ID).Logger()
	log.Info().Int("files", len(files)).Int("workers", r.cfg.Workers).Msg("batch run started")

	claimed := make(map[string]string, len(files))
	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)
	for i, path := range files {
		run.Files[i] = FileResult{Path: path, Status: FileStatusQueued}

		// Inputs sharing a stem would write the same snapshot; the first one keeps it.
		out := r.OutputPath(path)
		if first, ok := claimed[out]; ok {
			run.Files[i].Status = FileStatusFailed
			run.Files[i].Error = fmt.Sprintf("output %s is already produced by %s", filepath.Base(out), first)
			log.Warn().Str("file", path).Str("conflicts_with", first).Msg("duplicate output name")
			continue
		}
		claimed[out] = path

		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				run.Files[i].Status = FileStatusFailed
				run.Files[i].Error = err.Error()
				return nil
			}
			run.Files[i] = r.processFile(log, path)
			return nil
		})
	}
	_ = g.Wait()

	run.CompletedAt = time.Now().UTC()
	completed, failed := run.Counts()
	switch {
	case failed == 0:
		run.Status = StatusCompleted
	case completed == 0:
		run.Status = StatusFailed
	default:
		run.Status = StatusPartial
	}

	log.Info().
		Str("status", string(run.Status)).
		Int("completed", completed).
		Int("failed", failed).
		Dur("took", run.CompletedAt.Sub(run.StartedAt)).
		Msg("batch run finished")
	return run, ctx.Err()
}

func (r *Runner) processFile(log zerolog.Logger, path string) FileResult {
	start := time.Now()
	result := FileResult{Path: path}

	res, err := r.compute(path)
	if r.metrics != nil {
		r.metrics.ObserveRun(metrics.Outcome(err), time.Since(start), res)
	}
	if err == nil {
		result.Output = r.OutputPath(path)
		err = snapshot.WriteFileAtomic(result.Output, func(w io.Writer) error {
			return snapshot.WriteCSV(w, res.Recommendations)
		})
	}
	result.Duration = time.Since(start)

	if err != nil {
		result.Status = FileStatusFailed
		result.Output = ""
		result.Error = err.Error()
		log.Warn().Err(err).Str("file", path).Msg("file failed")
		return result
	}

	result.Status = FileStatusCompleted
	result.Products = len(res.Recommendations)
	result.NeedsReorder = res.NeedingReorder()
	result.Warnings = len(res.Warnings)
	log.Debug().Str("file", path).Int("products", result.Products).Msg("file completed")
	return result
}

func (r *Runner) compute(path string) (*reorder.Result, error) {
	table, err := ingest.LoadFile(path)
	if err != nil {
		return nil, err
	}
	ds, err := r.engine.NormalizeAndValidate(table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	res, err := r.engine.ComputeRecommendations(ds, r.cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return res, nil
}
