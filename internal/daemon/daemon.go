package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"celestix/internal/database"
	"celestix/internal/opensky"
	"celestix/internal/server"
)

// Daemon owns the HTTP listener and the optional registry database
type Daemon struct {
	httpServer *http.Server
	listener   net.Listener
	database   *database.DB
	done       chan error
}

// Config holds daemon configuration
type Config struct {
	ListenAddr     string   // HTTP listen address (e.g., ":3551")
	OpenSkyAPIURL  string   // Upstream state vector endpoint, may be empty
	IncludeHeading bool     // Map true track into the heading field
	RegistryDBPath string   // Path to SQLite registry, empty disables the registry
	RegistryCSV    []string // CSV exports used to seed an empty registry
	RegistryBatch  int      // Rows per transaction while seeding
}

// New creates a new daemon instance
func New(cfg Config) (*Daemon, error) {
	if cfg.ListenAddr == "" {
		return nil, fmt.Errorf("ListenAddr is required")
	}

	if cfg.OpenSkyAPIURL == "" {
		slog.Warn("Upstream API URL is not configured, /api/planes will fail until it is set")
	}

	client := opensky.NewClient(cfg.OpenSkyAPIURL, opensky.WithHeading(cfg.IncludeHeading))

	d := &Daemon{
		done: make(chan error, 1),
	}

	// Leave the interface nil when disabled so the lookup route is not mounted
	var registry server.AircraftLookup
	if cfg.RegistryDBPath != "" {
		db, err := openRegistry(cfg)
		if err != nil {
			return nil, err
		}
		d.database = db
		registry = db.AircraftRepository()
	}

	d.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.New(client, registry).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return d, nil
}

// openRegistry opens the registry database and seeds it from CSV when empty
func openRegistry(cfg Config) (*database.DB, error) {
	db, err := database.New(cfg.RegistryDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize registry database: %w", err)
	}

	repo := db.AircraftRepository()
	populated, err := repo.IsTablePopulated()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check aircraft table: %w", err)
	}

	switch {
	case populated:
		slog.Info("Aircraft registry is already populated", "db_path", cfg.RegistryDBPath)
	case len(cfg.RegistryCSV) == 0:
		slog.Warn("Aircraft registry is empty and no CSV files are configured", "db_path", cfg.RegistryDBPath)
	default:
		slog.Info("Aircraft registry is empty, loading from CSV files", "csv_paths", cfg.RegistryCSV)
		batch := cfg.RegistryBatch
		if batch <= 0 {
			batch = 5000
		}
		if err := repo.LoadFromMultipleCSV(cfg.RegistryCSV, batch); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to load aircraft from CSV: %w", err)
		}
	}

	return db, nil
}

// Start binds the listener and serves in the background
func (d *Daemon) Start() error {
	ln, err := net.Listen("tcp", d.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", d.httpServer.Addr, err)
	}
	d.listener = ln

	go func() {
		err := d.httpServer.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		d.done <- err
	}()

	slog.Info("Celestix started", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound listen address, useful when configured with port 0
func (d *Daemon) Addr() string {
	if d.listener == nil {
		return d.httpServer.Addr
	}
	return d.listener.Addr().String()
}

// Done reports a fatal serve error, or nil once the server has shut down
func (d *Daemon) Done() <-chan error {
	return d.done
}

// Stop gracefully stops the daemon
func (d *Daemon) Stop(ctx context.Context) error {
	slog.Info("Stopping daemon")

	var errs []error
	if err := d.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shut down http server: %w", err))
	}

	if d.database != nil {
		if err := d.database.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close registry database: %w", err))
		}
	}

	slog.Info("Daemon stopped")
	return errors.Join(errs...)
}
