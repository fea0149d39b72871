package detect

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/freightdata/tariff-extractor/internal/raster"
)

// TableRegion is a cropped sub-image believed to contain a tariff table.
// It is owned by the pipeline run that produced it and never persisted.
type TableRegion struct {
	Source        string
	PageIndex     int
	InstanceIndex int // 0-based, unique within (Source, PageIndex)
	Path          string
}

// Selector filters detector output down to table regions and crops them.
type Selector struct {
	TableClassID  int
	ConfThreshold float64 // table-class qualification threshold, not the detector's
	logger        *slog.Logger
}

func NewSelector(tableClassID int, confThreshold float64, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	if confThreshold <= 0 {
		confThreshold = 0.20
	}
	return &Selector{TableClassID: tableClassID, ConfThreshold: confThreshold, logger: logger}
}

// Qualifies reports whether a detection counts as a table.
func (s *Selector) Qualifies(r Region) bool {
	return r.Confidence >= s.ConfThreshold && r.ClassID == s.TableClassID
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// Select crops the qualifying regions of a page into standalone PNGs under
// workDir. Non-qualifying detections and degenerate crops are silently
// dropped; a page with no qualifying regions contributes nothing.
func (s *Selector) Select(page raster.PageImage, regions []Region, workDir string) ([]TableRegion, error) {
	var qualified []Region
	for _, r := range regions {
		if s.Qualifies(r) {
			qualified = append(qualified, r)
		}
	}
	if len(qualified) == 0 {
		s.logger.Info("select.no_table_found", "source", page.Source, "page", page.PageIndex)
		return nil, nil
	}

	f, err := os.Open(page.Path)
	if err != nil {
		return nil, fmt.Errorf("open page image: %w", err)
	}
	img, _, err := image.Decode(f)
	_ = f.Close()
	if err != nil {
		return nil, fmt.Errorf("decode page image: %w", err)
	}
	si, ok := img.(subImager)
	if !ok {
		return nil, fmt.Errorf("page image format does not support cropping")
	}

	bounds := img.Bounds()
	var tables []TableRegion
	instance := 0
	for _, r := range qualified {
		// Build the rectangle without min/max canonicalization: an inverted
		// detector box (X2 < X1 or Y2 < Y1) must come out degenerate and be
		// dropped, not silently flipped into a valid crop.
		rect := image.Rectangle{
			Min: image.Pt(int(r.X1), int(r.Y1)),
			Max: image.Pt(int(r.X2), int(r.Y2)),
		}.Intersect(bounds)
		if rect.Dx() <= 0 || rect.Dy() <= 0 {
			s.logger.Warn("select.degenerate_crop",
				"source", page.Source, "page", page.PageIndex,
				"box", fmt.Sprintf("(%v,%v)-(%v,%v)", r.X1, r.Y1, r.X2, r.Y2))
			continue
		}

		cropPath := filepath.Join(workDir, fmt.Sprintf("%s_p%d_t%d.png", page.Source, page.PageIndex, instance))
		if err := writePNG(cropPath, si.SubImage(rect)); err != nil {
			s.logger.Error("select.crop_write_failed",
				"source", page.Source, "page", page.PageIndex, "instance", instance, "error", err)
			continue
		}

		tables = append(tables, TableRegion{
			Source:        page.Source,
			PageIndex:     page.PageIndex,
			InstanceIndex: instance,
			Path:          cropPath,
		})
		instance++
	}

	s.logger.Info("select.ok",
		"source", page.Source, "page", page.PageIndex,
		"candidates", len(regions), "qualified", len(qualified), "cropped", len(tables),
	)
	return tables, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
