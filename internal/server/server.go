// Package server wires configuration into a running HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/andresuchdata/inventory-optimizer/internal/api"
	"github.com/andresuchdata/inventory-optimizer/internal/cache"
	"github.com/andresuchdata/inventory-optimizer/internal/config"
	"github.com/andresuchdata/inventory-optimizer/internal/metrics"
	"github.com/andresuchdata/inventory-optimizer/internal/reorder"
	"github.com/andresuchdata/inventory-optimizer/internal/service"
	"github.com/andresuchdata/inventory-optimizer/internal/snapshot"
	"github.com/andresuchdata/inventory-optimizer/internal/storage"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	cfg     *config.Config
	log     zerolog.Logger
	service *service.ReorderService
	http    *http.Server
}

// EngineParams converts the configured defaults.
func EngineParams(cfg config.EngineConfig) reorder.Params {
	return reorder.Params{
		LeadTimeDays: cfg.LeadTimeDays,
		ZValue:       cfg.ZValue,
		Window:       cfg.Window,
	}
}

// NewMirror returns the snapshot mirror, or nil when storage is disabled.
func NewMirror(ctx context.Context, cfg config.StorageConfig, log zerolog.Logger) (storage.ObjectStorage, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	client, err := storage.NewMinioClient(storage.MinioConfig{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		UseSSL:    cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	if err := client.EnsureBucket(ctx); err != nil {
		log.Warn().Err(err).Str("bucket", cfg.Bucket).Msg("storage bucket check failed")
	}
	return client, nil
}

func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Server, error) {
	defaults := EngineParams(cfg.Engine)
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("engine defaults: %w", err)
	}
	sortKey, err := reorder.ParseSortKey(cfg.Engine.DefaultSort)
	if err != nil {
		return nil, fmt.Errorf("engine defaults: %w", err)
	}

	recCache, err := cache.NewRecommendationCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, recommendation cache disabled")
		recCache = cache.NewNoopRecommendationCache()
	}

	mirror, err := NewMirror(ctx, cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("snapshot mirror: %w", err)
	}

	collector := metrics.New()
	svc := service.NewReorderService(service.Options{
		Engine:       reorder.NewEngine(reorder.Options{Logger: log}),
		Cache:        recCache,
		Snapshots:    snapshot.NewFileStore(cfg.App.OutputDir, cfg.App.SnapshotFile),
		DatasetPath:  cfg.App.DatasetPath(),
		Defaults:     defaults,
		DefaultSort:  sortKey,
		Mirror:       mirror,
		MirrorPrefix: cfg.Storage.Prefix,
		Metrics:      collector,
		Logger:       log,
	})

	if cfg.App.SeedSample {
		seeded, err := svc.EnsureSampleDataset(ctx)
		if err != nil {
			return nil, err
		}
		if seeded {
			log.Info().Str("path", cfg.App.DatasetPath()).Msg("seeded sample dataset")
		}
	}

	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(&api.Services{ReorderService: svc}, api.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		UploadDir:      cfg.App.UploadDir,
		Metrics:        collector,
		Logger:         log,
	})

	return &Server{
		cfg:     cfg,
		log:     log,
		service: svc,
		http: &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      router,
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		},
	}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("port", s.cfg.Server.Port).Msg("Starting server")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.log.Info().Msg("Server exiting")
	return nil
}
