package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB holds the SQLite handle backing the aircraft registry
type DB struct {
	db *sql.DB
}

// New opens the registry database and creates its schema if needed
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	database := &DB{db: db}

	if err := database.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database, nil
}

// applyPragmas tunes SQLite for a read-mostly lookup table
func applyPragmas(db *sql.DB) error {
	pragmas := []struct {
		stmt string
		desc string
	}{
		// WAL lets HTTP lookups read while a CSV seed is still committing
		{"PRAGMA journal_mode=WAL", "enable WAL mode"},
		{"PRAGMA cache_size=-16000", "set cache size"},
		{"PRAGMA synchronous=NORMAL", "set synchronous mode"},
		{"PRAGMA temp_store=MEMORY", "set temp_store"},
		{"PRAGMA busy_timeout=5000", "set busy timeout"},
	}

	for _, p := range pragmas {
		if _, err := db.Exec(p.stmt); err != nil {
			return fmt.Errorf("failed to %s: %w", p.desc, err)
		}
	}
	return nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// AircraftRepository returns the registry repository bound to this database
func (d *DB) AircraftRepository() AircraftRepository {
	return NewAircraftRepository(d.db)
}

// initSchema creates the aircraft table if it doesn't exist
func (d *DB) initSchema() error {
	aircraftSchema := `CREATE TABLE IF NOT EXISTS aircraft (
		icao24 TEXT PRIMARY KEY,
		registration TEXT,
		manufacturerName TEXT,
		model TEXT,
		typecode TEXT,
		operator TEXT,
		operatorCallsign TEXT,
		owner TEXT,
		country TEXT,
		built TEXT
	);`

	if _, err := d.db.Exec(aircraftSchema); err != nil {
		return fmt.Errorf("failed to create aircraft table: %w", err)
	}

	if _, err := d.db.Exec(`CREATE INDEX IF NOT EXISTS idx_aircraft_registration ON aircraft(registration)`); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}
