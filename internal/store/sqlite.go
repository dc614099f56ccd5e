package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/partsync/partsync/internal/model"
)

// SQLiteStore is a RecordStore backed by a SQLite database file.
//
// Design decision: The connection pool is capped at a single connection.
// SQLite supports one writer at a time and the coordinator serializes all
// writes anyway, so a larger pool would only add lock contention.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the record store database at path. The parent
// directory is created when missing.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db, path: path}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// createTables creates the record schema if it doesn't exist.
func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		mfr_part_number TEXT,
		mfr TEXT,
		description TEXT,
		qty INTEGER DEFAULT 1,
		unit TEXT,
		vendor TEXT,
		vendor_part_number TEXT,
		legacy TEXT,
		unit_price TEXT,
		change_percent REAL DEFAULT 0,
		date TEXT,
		last_price TEXT,
		last_date TEXT,
		price_history TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_records_vendor ON records(vendor);
	`
	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

const recordColumns = `id, mfr_part_number, mfr, description, qty, unit,
	vendor, vendor_part_number, legacy, unit_price, change_percent, date,
	last_price, last_date, price_history`

// Find returns the record with the given id, or ErrNotFound.
func (s *SQLiteStore) Find(ctx context.Context, id string) (*model.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = ?`, normalizeID(id))

	var rec model.Record
	err := row.Scan(
		&rec.ID, &rec.MfrPartNumber, &rec.Mfr, &rec.Description, &rec.Qty,
		&rec.Unit, &rec.Vendor, &rec.VendorPartNumber, &rec.Legacy,
		&rec.UnitPrice, &rec.ChangePercent, &rec.Date,
		&rec.LastPrice, &rec.LastDate, &rec.PriceHistory,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, wrapLocked(fmt.Errorf("failed to find record %s: %w", id, err))
	}
	return &rec, nil
}

// Upsert inserts or replaces the record keyed by its id.
func (s *SQLiteStore) Upsert(ctx context.Context, record *model.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mfr_part_number = excluded.mfr_part_number,
			mfr = excluded.mfr,
			description = excluded.description,
			qty = excluded.qty,
			unit = excluded.unit,
			vendor = excluded.vendor,
			vendor_part_number = excluded.vendor_part_number,
			legacy = excluded.legacy,
			unit_price = excluded.unit_price,
			change_percent = excluded.change_percent,
			date = excluded.date,
			last_price = excluded.last_price,
			last_date = excluded.last_date,
			price_history = excluded.price_history`,
		normalizeID(record.ID), record.MfrPartNumber, record.Mfr,
		record.Description, record.Qty, record.Unit, record.Vendor,
		record.VendorPartNumber, record.Legacy, record.UnitPrice,
		record.ChangePercent, record.Date, record.LastPrice, record.LastDate,
		record.PriceHistory,
	)
	if err != nil {
		return wrapLocked(fmt.Errorf("failed to upsert record %s: %w", record.ID, err))
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// wrapLocked maps SQLite busy/locked failures to ErrLocked so callers can
// distinguish "open elsewhere" from real IO errors with errors.Is.
func wrapLocked(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy") {
		return fmt.Errorf("%w: %v", ErrLocked, err)
	}
	return err
}
