package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/freightdata/tariff-extractor/constants"
	"github.com/freightdata/tariff-extractor/internal/detect"
	"github.com/freightdata/tariff-extractor/internal/llm"
	"github.com/freightdata/tariff-extractor/internal/raster"
	"github.com/freightdata/tariff-extractor/internal/repository"
	"github.com/freightdata/tariff-extractor/internal/tariff"
)

// Config holds orchestration knobs.
type Config struct {
	InputDir    string // per-country document directories live under here
	WorkDir     string // transient page/crop images live under here
	MaxInflight int    // extraction fan-out width; 1 = sequential
	KeepSources bool   // keep source PDFs after rasterization (batch runs)
}

// Rasterizer converts one document into ordered page images under workDir.
// *raster.Rasterizer is the production implementation.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, workDir string) ([]raster.PageImage, error)
}

// Pipeline sequences rasterize -> detect -> select -> extract -> normalize ->
// persist per document. Capabilities are injected so tests substitute
// deterministic fakes.
type Pipeline struct {
	Logger     *slog.Logger
	Cfg        Config
	Rasterizer Rasterizer
	Detector   detect.Detector
	Selector   *detect.Selector
	Parser     llm.TableParser
	Repo       repository.TariffRepository
}

func New(
	logger *slog.Logger,
	cfg Config,
	r Rasterizer,
	d detect.Detector,
	sel *detect.Selector,
	parser llm.TableParser,
	repo repository.TariffRepository,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxInflight <= 0 {
		cfg.MaxInflight = 1
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	return &Pipeline{
		Logger:     logger,
		Cfg:        cfg,
		Rasterizer: r,
		Detector:   d,
		Selector:   sel,
		Parser:     parser,
		Repo:       repo,
	}
}

// Run processes every document under the country's input directory.
// Stage-local failures reduce output and are collected on the report; the
// returned error is non-nil only when the run could not start at all.
func (p *Pipeline) Run(ctx context.Context, country string) (*Report, error) {
	rep := newReport(country)

	docs, err := p.listDocuments(country)
	if err != nil {
		rep.FailedStage = constants.StageIdle
		return rep, err
	}
	if err := os.MkdirAll(p.Cfg.WorkDir, 0o755); err != nil {
		rep.FailedStage = constants.StageIdle
		return rep, fmt.Errorf("create work dir: %w", err)
	}

	p.Logger.Info("pipeline.run.start",
		"run_id", rep.RunID, "country", country, "documents", len(docs))

	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		rep.Documents++
		p.processDocument(ctx, rep, doc)
	}

	p.Logger.Info("pipeline.run.done",
		"run_id", rep.RunID,
		"country", country,
		"documents", rep.Documents,
		"candidate_regions", rep.CandidateRegions,
		"records_normalized", rep.RecordsNormalized,
		"records_upserted", rep.RecordsUpserted,
		"records_inserted", rep.RecordsInserted,
		"records_dropped", rep.RecordsDropped,
		"soft_failures", rep.SoftFailureCount(),
	)
	return rep, nil
}

// listDocuments enumerates the country's PDFs in name order. The directory
// is the boundary with the scraper collaborator.
func (p *Pipeline) listDocuments(country string) ([]string, error) {
	dir := filepath.Join(p.Cfg.InputDir, country)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read document directory %s: %w", dir, err)
	}
	var docs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if constants.IsPDF(filepath.Ext(e.Name())) {
			docs = append(docs, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(docs)
	return docs, nil
}

// processDocument runs one document through every stage. The document's
// transient artifacts live in a private work dir removed on every exit path.
func (p *Pipeline) processDocument(ctx context.Context, rep *Report, docPath string) {
	source := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))

	workDir, err := os.MkdirTemp(p.Cfg.WorkDir, source+"-*")
	if err != nil {
		rep.addSoftFailure(SoftFailure{Source: source, Stage: constants.StageRasterizing, Err: err.Error()})
		return
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			p.Logger.Warn("pipeline.cleanup_failed", "work_dir", workDir, "error", err)
		}
	}()

	p.Logger.Info("pipeline.doc.start", "source", source, "stage", constants.StageRasterizing)
	pages, err := p.Rasterizer.Rasterize(ctx, docPath, workDir)
	if err != nil {
		rep.addSoftFailure(SoftFailure{Source: source, Stage: constants.StageRasterizing, Err: err.Error()})
		return
	}

	// The source document is consumed once rasterized.
	if !p.Cfg.KeepSources {
		if err := os.Remove(docPath); err != nil {
			p.Logger.Warn("pipeline.source_remove_failed", "source", source, "error", err)
		}
	}

	var tables []detect.TableRegion
	for _, page := range pages {
		if ctx.Err() != nil {
			return
		}
		p.Logger.Debug("pipeline.page.start", "source", source, "page", page.PageIndex, "stage", constants.StageDetecting)
		regions, err := p.Detector.Detect(ctx, page.Path)
		if err != nil {
			rep.addSoftFailure(SoftFailure{Source: source, Page: page.PageIndex, Stage: constants.StageDetecting, Err: err.Error()})
			_ = os.Remove(page.Path)
			continue
		}
		crops, err := p.Selector.Select(page, regions, workDir)
		if err != nil {
			rep.addSoftFailure(SoftFailure{Source: source, Page: page.PageIndex, Stage: constants.StageDetecting, Err: err.Error()})
			_ = os.Remove(page.Path)
			continue
		}
		tables = append(tables, crops...)
		// page images are transient; regions are extracted, the page goes
		_ = os.Remove(page.Path)
	}
	rep.addCandidates(len(tables))

	g := new(errgroup.Group)
	g.SetLimit(p.Cfg.MaxInflight)
	for _, tab := range tables {
		if ctx.Err() != nil {
			// stop issuing new extraction calls; dispatched ones drain below
			break
		}
		g.Go(func() error {
			// g.Go blocks while the pool is full, so cancellation may land
			// between the loop check and here; re-check before parsing
			if ctx.Err() != nil {
				return nil
			}
			p.extractRegion(ctx, rep, tab)
			return nil
		})
	}
	_ = g.Wait()

	p.Logger.Info("pipeline.doc.done", "source", source, "pages", len(pages), "tables", len(tables), "stage", constants.StageDone)
}

// extractRegion runs one cropped table through extract -> normalize ->
// persist. The crop is removed exactly once, whatever the outcome.
func (p *Pipeline) extractRegion(ctx context.Context, rep *Report, tab detect.TableRegion) {
	defer func() { _ = os.Remove(tab.Path) }()

	// A cancelled run lets dispatched calls drain rather than abandoning
	// their temp files; the parser's own timeout still bounds the call.
	callCtx := context.WithoutCancel(ctx)

	raws, err := p.Parser.ParseTables(callCtx, llm.ParseRequest{
		ImagePath:     tab.Path,
		Source:        tab.Source,
		PageIndex:     tab.PageIndex,
		InstanceIndex: tab.InstanceIndex,
	})
	if err != nil {
		rep.addSoftFailure(SoftFailure{
			Source: tab.Source, Page: tab.PageIndex, Region: tab.InstanceIndex,
			Stage: constants.StageExtracting, Err: err.Error(),
		})
		return
	}

	rawMaps := make([]map[string]any, len(raws))
	for i, r := range raws {
		rawMaps[i] = r
	}
	records, dropped := tariff.NormalizeAll(rawMaps, p.Logger)
	rep.addNormalized(len(records), dropped)
	if dropped > 0 {
		p.Logger.Warn("pipeline.rows_dropped",
			"source", tab.Source, "page", tab.PageIndex, "region", tab.InstanceIndex,
			"dropped", dropped, "stage", constants.StageNormalizing)
	}

	for _, rec := range records {
		inserted, err := p.Repo.Upsert(callCtx, rec)
		if err != nil {
			rep.addSoftFailure(SoftFailure{
				Source: tab.Source, Page: tab.PageIndex, Region: tab.InstanceIndex,
				Stage: constants.StagePersisting, Err: err.Error(),
			})
			continue
		}
		rep.addUpserted(inserted)
	}
}
