package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/inventory-optimizer/internal/config"
	"github.com/andresuchdata/inventory-optimizer/internal/drive"
	"github.com/andresuchdata/inventory-optimizer/internal/ingest"
	"github.com/andresuchdata/inventory-optimizer/internal/metrics"
	"github.com/andresuchdata/inventory-optimizer/internal/pipeline"
	"github.com/andresuchdata/inventory-optimizer/internal/reorder"
	"github.com/andresuchdata/inventory-optimizer/internal/server"
	"github.com/andresuchdata/inventory-optimizer/internal/snapshot"
	"github.com/andresuchdata/inventory-optimizer/pkg/logger"
)

func paramFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{
			Name:    "lead-time-days",
			Usage:   "Supplier lead time in days",
			Value:   reorder.DefaultLeadTimeDays,
			EnvVars: []string{"ENGINE_LEAD_TIME_DAYS"},
		},
		&cli.Float64Flag{
			Name:    "z-value",
			Usage:   "Service level multiplier for safety stock",
			Value:   reorder.DefaultZValue,
			EnvVars: []string{"ENGINE_Z_VALUE"},
		},
		&cli.IntFlag{
			Name:    "window",
			Usage:   "Moving average window in days",
			Value:   reorder.DefaultWindow,
			EnvVars: []string{"ENGINE_WINDOW"},
		},
	}
}

func paramsFrom(c *cli.Context) reorder.Params {
	return reorder.Params{
		LeadTimeDays: c.Float64("lead-time-days"),
		ZValue:       c.Float64("z-value"),
		Window:       c.Int("window"),
	}
}

func newEngine() *reorder.Engine {
	return reorder.NewEngine(reorder.Options{Logger: logger.Log})
}

func setLogLevel(c *cli.Context) error {
	logger.SetLevel(c.String("log-level"))
	return nil
}

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "reorder",
		Usage: "Compute inventory reorder recommendations from sales history",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: setLogLevel,
		Commands: []*cli.Command{
			{
				Name:      "compute",
				Usage:     "Compute recommendations for one CSV or XLSX file",
				ArgsUsage: "<sales-file>",
				Flags: append(paramFlags(),
					&cli.StringFlag{Name: "format", Value: "json", Usage: "Output format: json or csv"},
					&cli.StringFlag{Name: "sort", Value: string(reorder.SortInput), Usage: "input, urgency, product or reorder_point"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write to this file instead of stdout"},
				),
				Action: runCompute,
			},
			{
				Name:  "batch",
				Usage: "Compute recommendations for every sales file in a directory or Drive folder",
				Flags: append(paramFlags(),
					&cli.StringFlag{
						Name:    "input-dir",
						Usage:   "Directory containing sales files",
						EnvVars: []string{"BATCH_INPUT_DIR"},
					},
					&cli.StringFlag{
						Name:    "drive-folder-id",
						Usage:   "Google Drive folder to download sales files from",
						EnvVars: []string{"DRIVE_FOLDER_ID"},
					},
					&cli.StringFlag{
						Name:  "drive-folder-path",
						Usage: "Drive folder path from the root, used when no folder id is given",
					},
					&cli.StringFlag{
						Name:    "drive-credentials",
						Usage:   "Service account credentials JSON",
						EnvVars: []string{"DRIVE_CREDENTIALS_JSON"},
					},
					&cli.StringFlag{
						Name:  "bucket-prefix",
						Usage: "Download sales files from object storage under this prefix",
					},
					&cli.StringFlag{
						Name:    "output-dir",
						Usage:   "Directory for per-file recommendation snapshots",
						Value:   "./data/output",
						EnvVars: []string{"APP_OUTPUT_DIR"},
					},
					&cli.IntFlag{
						Name:    "workers",
						Usage:   "Number of files processed concurrently",
						Value:   4,
						EnvVars: []string{"ENGINE_BATCH_WORKERS"},
					},
				),
				Action: runBatch,
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: runServe,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("reorder failed")
	}
}

func runCompute(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("exactly one sales file is required", 2)
	}
	sortKey, err := reorder.ParseSortKey(c.String("sort"))
	if err != nil {
		return err
	}

	table, err := ingest.LoadFile(c.Args().First())
	if err != nil {
		return err
	}
	engine := newEngine()
	ds, err := engine.NormalizeAndValidate(table)
	if err != nil {
		return err
	}
	res, err := engine.ComputeRecommendations(ds, paramsFrom(c))
	if err != nil {
		return err
	}
	res.Recommendations = reorder.SortRecommendations(res.Recommendations, sortKey)

	var buf bytes.Buffer
	switch c.String("format") {
	case "json":
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	case "csv":
		if err := snapshot.WriteCSV(&buf, res.Recommendations); err != nil {
			return err
		}
	default:
		return cli.Exit(fmt.Sprintf("unknown format %q", c.String("format")), 2)
	}

	if out := c.String("output"); out != "" {
		return snapshot.WriteFileAtomic(out, func(w io.Writer) error {
			_, err := w.Write(buf.Bytes())
			return err
		})
	}
	_, err = os.Stdout.Write(buf.Bytes())
	return err
}

func runBatch(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, cleanup, err := collectBatchFiles(ctx, c)
	if err != nil {
		return err
	}
	defer cleanup()
	if len(files) == 0 {
		return cli.Exit("no CSV or XLSX files found", 1)
	}

	runner := pipeline.NewRunner(newEngine(), pipeline.Config{
		Workers:   c.Int("workers"),
		OutputDir: c.String("output-dir"),
		Params:    paramsFrom(c),
	}, logger.Log, metrics.New())

	run, err := runner.Run(ctx, files)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(run); err != nil {
		return err
	}
	if run.Status == pipeline.StatusFailed {
		return cli.Exit("every file failed", 1)
	}
	return nil
}

// collectBatchFiles resolves the batch input. Remote sources are downloaded
// into a temp dir that cleanup removes.
func collectBatchFiles(ctx context.Context, c *cli.Context) ([]string, func(), error) {
	noop := func() {}

	if dir := c.String("input-dir"); dir != "" {
		files, err := pipeline.DiscoverFiles(dir)
		return files, noop, err
	}

	tmp, err := os.MkdirTemp("", "reorder-batch-")
	if err != nil {
		return nil, noop, err
	}
	cleanup := func() { os.RemoveAll(tmp) }

	if prefix := c.String("bucket-prefix"); prefix != "" {
		cfg, err := config.Load()
		if err != nil {
			cleanup()
			return nil, noop, err
		}
		cfg.Storage.Enabled = true
		store, err := server.NewMirror(ctx, cfg.Storage, logger.Log)
		if err != nil {
			cleanup()
			return nil, noop, err
		}
		files, err := pipeline.FetchObjects(ctx, store, prefix, tmp)
		if err != nil {
			cleanup()
			return nil, noop, err
		}
		return files, cleanup, nil
	}

	folderID, folderPath := c.String("drive-folder-id"), c.String("drive-folder-path")
	if folderID == "" && folderPath == "" {
		cleanup()
		return nil, noop, cli.Exit("one of --input-dir, --drive-folder-id, --drive-folder-path or --bucket-prefix is required", 2)
	}
	svc, err := drive.NewService(ctx, c.String("drive-credentials"))
	if err != nil {
		cleanup()
		return nil, noop, err
	}
	if folderID == "" {
		if folderID, err = svc.FindFolderByPath(ctx, folderPath); err != nil {
			cleanup()
			return nil, noop, err
		}
	}
	files, err := drive.NewDownloader(svc).DownloadSalesFiles(ctx, drive.DownloadOptions{
		FolderID:    folderID,
		DownloadDir: filepath.Join(tmp, "drive"),
	})
	if err != nil {
		cleanup()
		return nil, noop, err
	}
	return files, cleanup, nil
}

func runServe(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, logger.Log)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
