package raster

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/freightdata/tariff-extractor/internal/common"
)

// PageImage is one rasterized page of a source document. Provenance is
// carried structurally; downstream stages never parse it back out of the
// file name.
type PageImage struct {
	Source    string // document base name, without extension
	PageIndex int    // 1-based
	Path      string
}

type Config struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	DPI      int    // rasterization DPI, default 300
	MaxPages int    // 0 = no limit
}

// Rasterizer converts PDF documents into per-page PNG images by shelling
// out to poppler's pdftoppm.
type Rasterizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewRasterizer(cfg Config, logger *slog.Logger) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Rasterizer{cfg: cfg, runner: execRunner{}, logger: logger}
}

var pageSuffix = regexp.MustCompile(`-(\d+)\.png$`)

// Rasterize renders every page of pdfPath into workDir and returns the pages
// in order. A corrupt or unsupported document yields ErrConversionFailed and
// an empty page set; callers treat that as a soft failure for this document.
func (r *Rasterizer) Rasterize(ctx context.Context, pdfPath, workDir string) ([]PageImage, error) {
	source := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))

	// Preflight with pdfcpu so a corrupt file fails before we shell out.
	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", common.ErrConversionFailed, pdfPath, err)
	}
	pageCount, err := api.PageCount(f, nil)
	_ = f.Close()
	if err != nil {
		r.logger.Error("raster.preflight_failed", "source", source, "error", err)
		return nil, fmt.Errorf("%w: page count for %s: %v", common.ErrConversionFailed, source, err)
	}

	prefix := filepath.Join(workDir, source)
	// pdftoppm -r <dpi> -png <in.pdf> <workdir/base>
	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, "-r", strconv.Itoa(r.cfg.DPI), "-png", pdfPath, prefix)
	if err != nil {
		r.logger.Error("raster.pdftoppm_failed", "source", source, "stderr", truncate(string(errb), 2<<10))
		return nil, fmt.Errorf("%w: pdftoppm on %s: %v", common.ErrConversionFailed, source, err)
	}

	pages := collectPages(prefix, source)
	if r.cfg.MaxPages > 0 && len(pages) > r.cfg.MaxPages {
		for _, p := range pages[r.cfg.MaxPages:] {
			_ = os.Remove(p.Path)
		}
		pages = pages[:r.cfg.MaxPages]
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: pdftoppm produced no images for %s", common.ErrConversionFailed, source)
	}

	r.logger.Info("raster.ok", "source", source, "pages", len(pages), "declared_pages", pageCount, "dpi", r.cfg.DPI)
	return pages, nil
}

// collectPages gathers the PNGs pdftoppm wrote for prefix
// (base-1.png, base-2.png, ...) in page order.
func collectPages(prefix, source string) []PageImage {
	matches, _ := filepath.Glob(prefix + "-*.png")
	pages := make([]PageImage, 0, len(matches))
	for _, m := range matches {
		sub := pageSuffix.FindStringSubmatch(m)
		if sub == nil {
			continue
		}
		n, err := strconv.Atoi(sub[1])
		if err != nil || n < 1 {
			continue
		}
		pages = append(pages, PageImage{Source: source, PageIndex: n, Path: m})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].PageIndex < pages[j].PageIndex })
	return pages
}
