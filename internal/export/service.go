package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/freightdata/tariff-extractor/internal/repository"
	"github.com/freightdata/tariff-extractor/internal/tariff"
)

// Service is a tiny façade over the tariff repository that produces XLSX
// bytes for exports.
type Service struct {
	repo   repository.TariffRepository
	logger *slog.Logger
}

func NewService(repo repository.TariffRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportTariffsXLSX returns an XLSX workbook (as bytes) for the stored
// records. A non-empty country narrows the export to that country.
func (s *Service) ExportTariffsXLSX(ctx context.Context, country string) ([]byte, error) {
	start := time.Now()

	var recs []tariff.Record
	var err error
	if country != "" {
		recs, err = s.repo.QueryByCountry(ctx, country)
	} else {
		recs, err = s.repo.FetchAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("query tariffs: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Tariffs"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Country",
		"Direction",
		"Liner Name",
		"Port",
		"Equipment Type",
		"Currency",
		"Free Days",
		"Bucket 1",
		"Bucket 2",
		"Bucket 3",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, r.Country)
		write(2, string(r.Direction))
		write(3, orDash(r.LinerName))
		write(4, orDash(r.Port))
		write(5, r.EquipmentType)
		write(6, r.Currency)
		write(7, r.FreeDays)
		writeOptInt(write, 8, r.Bucket1)
		writeOptInt(write, 9, r.Bucket2)
		writeOptInt(write, 10, r.Bucket3)

		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "B", 14)
	_ = f.SetColWidth(sheet, "C", "C", 24)
	_ = f.SetColWidth(sheet, "D", "E", 18)
	_ = f.SetColWidth(sheet, "F", "J", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"country", country,
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func writeOptInt(write func(int, any), col int, v *int) {
	if v == nil {
		write(col, "")
		return
	}
	write(col, *v)
}
