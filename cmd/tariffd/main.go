package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/freightdata/tariff-extractor/internal/common"
	"github.com/freightdata/tariff-extractor/internal/detect"
	"github.com/freightdata/tariff-extractor/internal/export"
	"github.com/freightdata/tariff-extractor/internal/llm"
	"github.com/freightdata/tariff-extractor/internal/llm/openai"
	"github.com/freightdata/tariff-extractor/internal/pipeline"
	"github.com/freightdata/tariff-extractor/internal/raster"
	"github.com/freightdata/tariff-extractor/internal/repository"
	"github.com/freightdata/tariff-extractor/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Configuration-time failures are fatal before any document is touched.
	prompt, err := llm.LoadPromptTemplate(cfg.LLM.PromptPath)
	if err != nil {
		logger.Error("failed to load prompt template", "error", err)
		os.Exit(1)
	}
	schema, err := llm.CompileSchema(llm.BuildTariffJSONSchema())
	if err != nil {
		logger.Error("failed to compile tariff schema", "error", err)
		os.Exit(1)
	}
	if cfg.LLM.APIKey == "" && os.Getenv("OPENAI_API_KEY") == "" {
		logger.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}

	store, err := repository.NewSQLiteStore(cfg.Database.Path, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	detector := detect.NewHTTPDetector(detect.Config{
		BaseURL:       cfg.Detector.BaseURL,
		ConfThreshold: cfg.Detector.ConfThreshold,
		IoUThreshold:  cfg.Detector.IoUThreshold,
		Timeout:       cfg.Detector.Timeout,
	}, logger)
	if err := detector.Healthy(ctx); err != nil {
		logger.Error("detector capability unavailable", "error", err)
		os.Exit(1)
	}
	logger.Info("detector ready", "url", cfg.Detector.BaseURL)

	parser := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		MaxRetries:  cfg.LLM.MaxRetries,
		Prompt:      prompt,
	}, schema, logger)

	rasterizer := raster.NewRasterizer(raster.Config{
		Pdftoppm: cfg.Raster.Pdftoppm,
		DPI:      cfg.Raster.DPI,
		MaxPages: cfg.Raster.MaxPages,
	}, logger)

	selector := detect.NewSelector(cfg.Detector.TableClassID, cfg.Detector.TableConfThreshold, logger)

	pipe := pipeline.New(logger, pipeline.Config{
		InputDir:    cfg.Pipeline.InputDir,
		WorkDir:     cfg.Pipeline.WorkDir,
		MaxInflight: cfg.Pipeline.MaxInflight,
		KeepSources: cfg.Pipeline.KeepSources,
	}, rasterizer, detector, selector, parser, store)

	exportSvc := export.NewService(store, logger)
	svc := server.NewService(logger, pipe, store, exportSvc, nil)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: svc.Routes(),
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}
