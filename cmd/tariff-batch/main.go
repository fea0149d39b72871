package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/freightdata/tariff-extractor/constants"
	"github.com/freightdata/tariff-extractor/internal/common"
	"github.com/freightdata/tariff-extractor/internal/detect"
	"github.com/freightdata/tariff-extractor/internal/export"
	"github.com/freightdata/tariff-extractor/internal/llm"
	"github.com/freightdata/tariff-extractor/internal/llm/openai"
	"github.com/freightdata/tariff-extractor/internal/pipeline"
	"github.com/freightdata/tariff-extractor/internal/raster"
	"github.com/freightdata/tariff-extractor/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		country = flag.String("country", "", "country whose documents to process (required)")
		out     = flag.String("out", "", "output XLSX file path (optional, defaults next to the input dir)")
		keep    = flag.Bool("keep", true, "keep source PDFs after processing")
	)
	flag.Parse()

	if *country == "" {
		printError("Error: --country is required\n")
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()
	cfg := common.LoadConfig()

	if *out == "" {
		*out = filepath.Join(filepath.Dir(cfg.Pipeline.InputDir), "tariffs.xlsx")
	}

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
		KeepSources: *keep,
	}, rasterizer, detector, selector, parser, store)

	rep, err := pipe.Run(ctx, *country)
	if err != nil {
		logger.Error("pipeline run failed",
			"country", *country, "stage", constants.StageFailed, "failed_at", rep.FailedStage, "error", err)
		os.Exit(1)
	}

	exportSvc := export.NewService(store, logger)
	xlsxBytes, err := exportSvc.ExportTariffsXLSX(ctx, *country)
	if err != nil {
		logger.Error("failed to export tariffs", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"country", *country,
		"documents", rep.Documents,
		"candidate_regions", rep.CandidateRegions,
		"records_normalized", rep.RecordsNormalized,
		"records_upserted", rep.RecordsUpserted,
		"soft_failures", rep.SoftFailureCount(),
		"output_file", *out,
	)

	fmt.Printf("Batch processing complete! %d records upserted for %s\n", rep.RecordsUpserted, *country)
}
