package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/freightdata/tariff-extractor/constants"
	"github.com/freightdata/tariff-extractor/internal/common"
	"github.com/freightdata/tariff-extractor/internal/tariff"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS shipping_tariffs (
	doc_id         TEXT PRIMARY KEY,
	country        TEXT NOT NULL,
	direction      TEXT NOT NULL,
	liner_name     TEXT,
	port           TEXT,
	equipment_type TEXT NOT NULL,
	currency       TEXT NOT NULL,
	free_days      INTEGER NOT NULL,
	bucket_1       INTEGER,
	bucket_2       INTEGER,
	bucket_3       INTEGER,
	updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_shipping_tariffs_country ON shipping_tariffs(country);
`

// SQLiteStore implements TariffRepository on a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the store at path and applies the schema.
// A failure here is a configuration-time error; the caller aborts the run.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	// WAL mode plus a busy timeout keeps concurrent upserts from failing
	// with SQLITE_BUSY under the extraction fan-out.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	logger.Info("store.open", "path", path)
	return &SQLiteStore{db: db, path: path, logger: logger}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Upsert(ctx context.Context, rec tariff.Record) (bool, error) {
	docID := rec.DedupKey()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%w: begin: %v", common.ErrStoreFailure, err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM shipping_tariffs WHERE doc_id = ?)`, docID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: existence check: %v", common.ErrStoreFailure, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shipping_tariffs (
			doc_id, country, direction, liner_name, port,
			equipment_type, currency, free_days, bucket_1, bucket_2, bucket_3
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			country = excluded.country,
			direction = excluded.direction,
			liner_name = excluded.liner_name,
			port = excluded.port,
			equipment_type = excluded.equipment_type,
			currency = excluded.currency,
			free_days = excluded.free_days,
			bucket_1 = excluded.bucket_1,
			bucket_2 = excluded.bucket_2,
			bucket_3 = excluded.bucket_3,
			updated_at = CURRENT_TIMESTAMP`,
		docID, rec.Country, string(rec.Direction), rec.LinerName, rec.Port,
		rec.EquipmentType, rec.Currency, rec.FreeDays, rec.Bucket1, rec.Bucket2, rec.Bucket3,
	)
	if err != nil {
		return false, fmt.Errorf("%w: upsert: %v", common.ErrStoreFailure, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: commit: %v", common.ErrStoreFailure, err)
	}

	s.logger.Debug("store.upsert", "doc_id", docID, "inserted", !exists)
	return !exists, nil
}

func (s *SQLiteStore) FetchAll(ctx context.Context) ([]tariff.Record, error) {
	return s.query(ctx, `
		SELECT country, direction, liner_name, port, equipment_type,
		       currency, free_days, bucket_1, bucket_2, bucket_3
		FROM shipping_tariffs
		ORDER BY country, direction, equipment_type`)
}

func (s *SQLiteStore) QueryByCountry(ctx context.Context, country string) ([]tariff.Record, error) {
	return s.query(ctx, `
		SELECT country, direction, liner_name, port, equipment_type,
		       currency, free_days, bucket_1, bucket_2, bucket_3
		FROM shipping_tariffs
		WHERE country = ?
		ORDER BY direction, equipment_type`, country)
}

func (s *SQLiteStore) DeleteByID(ctx context.Context, docID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM shipping_tariffs WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("%w: delete: %v", common.ErrStoreFailure, err)
	}
	return nil
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]tariff.Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", common.ErrStoreFailure, err)
	}
	defer func() { _ = rows.Close() }()

	var out []tariff.Record
	for rows.Next() {
		var rec tariff.Record
		var direction string
		if err := rows.Scan(
			&rec.Country, &direction, &rec.LinerName, &rec.Port, &rec.EquipmentType,
			&rec.Currency, &rec.FreeDays, &rec.Bucket1, &rec.Bucket2, &rec.Bucket3,
		); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", common.ErrStoreFailure, err)
		}
		rec.Direction = constants.Direction(direction)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", common.ErrStoreFailure, err)
	}
	return out, nil
}
