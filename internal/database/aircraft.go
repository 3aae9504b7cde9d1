package database

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"celestix/internal/models"
)

// ErrNotFound is returned when the registry has no row for a transponder
var ErrNotFound = errors.New("aircraft not found")

type AircraftRepository interface {
	Get(ctx context.Context, icao24 string) (*models.Aircraft, error)
	InsertBatch(aircraft []*models.Aircraft) error
	IsTablePopulated() (bool, error)
	LoadFromMultipleCSV(csvPaths []string, batchSize int) error
}

type aircraftRepository struct {
	db *sql.DB
}

func NewAircraftRepository(db *sql.DB) AircraftRepository {
	return &aircraftRepository{db: db}
}

// Get returns registry metadata for one transponder address (case insensitive)
func (r *aircraftRepository) Get(ctx context.Context, icao24 string) (*models.Aircraft, error) {
	key := normalizeICAO(icao24)
	if key == "" {
		return nil, ErrNotFound
	}

	// Columns other than icao24 are nullable
	var cols [9]sql.NullString
	var ac models.Aircraft
	err := r.db.QueryRowContext(ctx, `SELECT
		icao24, registration, manufacturerName, model, typecode,
		operator, operatorCallsign, owner, country, built
	FROM aircraft WHERE icao24 = ?`, key).Scan(
		&ac.ICAO24, &cols[0], &cols[1], &cols[2], &cols[3],
		&cols[4], &cols[5], &cols[6], &cols[7], &cols[8],
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query aircraft %s: %w", key, err)
	}

	ac.Registration = cols[0].String
	ac.ManufacturerName = cols[1].String
	ac.Model = cols[2].String
	ac.TypeCode = cols[3].String
	ac.Operator = cols[4].String
	ac.OperatorCallsign = cols[5].String
	ac.Owner = cols[6].String
	ac.Country = cols[7].String
	ac.Built = cols[8].String
	return &ac, nil
}

// InsertBatch inserts or replaces one or more aircraft records in a single transaction
func (r *aircraftRepository) InsertBatch(aircraft []*models.Aircraft) error {
	if len(aircraft) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO aircraft (
		icao24, registration, manufacturerName, model, typecode,
		operator, operatorCallsign, owner, country, built
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, ac := range aircraft {
		if _, err := stmt.Exec(
			normalizeICAO(ac.ICAO24), ac.Registration, ac.ManufacturerName, ac.Model, ac.TypeCode,
			ac.Operator, ac.OperatorCallsign, ac.Owner, ac.Country, ac.Built,
		); err != nil {
			return fmt.Errorf("failed to insert aircraft: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *aircraftRepository) IsTablePopulated() (bool, error) {
	var ignored int
	err := r.db.QueryRow("SELECT 1 FROM aircraft LIMIT 1").Scan(&ignored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check aircraft table: %w", err)
	}
	return true, nil
}

// LoadFromMultipleCSV loads registry data from one or more CSV exports sharing the same header.
// The header of the first file decides column positions; rows with a different field count are skipped.
func (r *aircraftRepository) LoadFromMultipleCSV(csvPaths []string, batchSize int) error {
	if batchSize <= 0 {
		return fmt.Errorf("batch size must be greater than 0")
	}

	loader := &csvLoader{
		repo:      r,
		batchSize: batchSize,
		batch:     make([]*models.Aircraft, 0, batchSize),
	}

	for _, csvPath := range csvPaths {
		if err := loader.loadFile(csvPath); err != nil {
			return err
		}
	}

	if err := loader.flush(); err != nil {
		return fmt.Errorf("failed to insert final batch: %w", err)
	}

	slog.Info("Loaded aircraft registry", "files", len(csvPaths), "records", loader.loaded)
	return nil
}

// csvLoader carries header layout and the pending batch across split CSV files
type csvLoader struct {
	repo           *aircraftRepository
	headerMap      map[string]int
	expectedFields int
	batch          []*models.Aircraft
	batchSize      int
	loaded         int
}

func (l *csvLoader) loadFile(csvPath string) error {
	file, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file %s: %w", csvPath, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.LazyQuotes = true    // exports carry stray quotes
	reader.FieldsPerRecord = -1 // validated against the header below

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header from %s: %w", csvPath, err)
	}

	if l.headerMap == nil {
		l.expectedFields = len(header)
		l.headerMap = make(map[string]int, len(header))
		for i, h := range header {
			l.headerMap[strings.Trim(strings.TrimSpace(h), "'\"")] = i
		}
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV record from %s: %w", csvPath, err)
		}

		if len(record) != l.expectedFields {
			continue
		}

		ac := &models.Aircraft{
			ICAO24:           getField(record, l.headerMap, "icao24"),
			Registration:     getField(record, l.headerMap, "registration"),
			ManufacturerName: getField(record, l.headerMap, "manufacturerName"),
			Model:            getField(record, l.headerMap, "model"),
			TypeCode:         getField(record, l.headerMap, "typecode"),
			Operator:         getField(record, l.headerMap, "operator"),
			OperatorCallsign: getField(record, l.headerMap, "operatorCallsign"),
			Owner:            getField(record, l.headerMap, "owner"),
			Country:          getField(record, l.headerMap, "country"),
			Built:            getField(record, l.headerMap, "built"),
		}

		// Rows without an address cannot be looked up
		if ac.ICAO24 == "" {
			continue
		}

		l.batch = append(l.batch, ac)
		l.loaded++

		if len(l.batch) >= l.batchSize {
			if err := l.flush(); err != nil {
				return fmt.Errorf("failed to insert batch: %w", err)
			}
		}
	}

	return nil
}

func (l *csvLoader) flush() error {
	if len(l.batch) == 0 {
		return nil
	}
	if err := l.repo.InsertBatch(l.batch); err != nil {
		return err
	}
	l.batch = l.batch[:0]
	return nil
}

// getField safely retrieves a field from a CSV record by header name
func getField(record []string, headerMap map[string]int, fieldName string) string {
	if idx, ok := headerMap[fieldName]; ok && idx < len(record) {
		return strings.Trim(strings.TrimSpace(record[idx]), "'\"")
	}
	return ""
}

func normalizeICAO(icao24 string) string {
	return strings.ToLower(strings.TrimSpace(icao24))
}
