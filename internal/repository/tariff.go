package repository

import (
	"context"

	"github.com/freightdata/tariff-extractor/internal/tariff"
)

// TariffRepository is the keyed store the pipeline persists into.
type TariffRepository interface {
	// Upsert inserts or replaces the row identified by the record's dedup
	// key and reports whether the row was new.
	Upsert(ctx context.Context, rec tariff.Record) (inserted bool, err error)
	FetchAll(ctx context.Context) ([]tariff.Record, error)
	QueryByCountry(ctx context.Context, country string) ([]tariff.Record, error)
	// DeleteByID removes one row by dedup key. Not exercised by the
	// pipeline; exposed for store administration.
	DeleteByID(ctx context.Context, docID string) error
}
