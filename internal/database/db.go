package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// FileName is the history database inside the data directory.
const FileName = "burnout_history.db"

// DB represents the database connection with pooling
type DB struct {
	*sql.DB
	pool     *ConnectionPool
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

// ConnectionPool manages database connection pooling
type ConnectionPool struct {
	db           *sql.DB
	maxOpenConns int
	maxIdleConns int
	maxLifetime  time.Duration
}

// NewConnectionPool applies pool limits to db.
func NewConnectionPool(db *sql.DB, maxOpen, maxIdle int, maxLifetime time.Duration) *ConnectionPool {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	return &ConnectionPool{
		db:           db,
		maxOpenConns: maxOpen,
		maxIdleConns: maxIdle,
		maxLifetime:  maxLifetime,
	}
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	stats := cp.db.Stats()

	return map[string]interface{}{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"max_open_connections": cp.maxOpenConns,
		"max_idle_connections": cp.maxIdleConns,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}
}

// NewDB opens (or creates) the history database under dataDir and runs
// migrations.
func NewDB(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, FileName)
	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// sqlite serializes writers; a small pool avoids lock contention
	pool := NewConnectionPool(db, 4, 2, 5*time.Minute)

	database := &DB{
		DB:       db,
		pool:     pool,
		prepared: make(map[string]*sql.Stmt),
	}

	if err := database.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := database.initPreparedStatements(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	log.Info().
		Str("path", dbPath).
		Int("max_open_conns", pool.maxOpenConns).
		Msg("History database initialized")

	return database, nil
}

func (db *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			convention TEXT NOT NULL,
			schema_source TEXT NOT NULL,
			total INTEGER NOT NULL,
			burnout INTEGER NOT NULL,
			no_burnout INTEGER NOT NULL,
			burnout_percentage REAL NOT NULL,
			failed INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS predictions (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			record_index INTEGER NOT NULL,
			employee_id TEXT NOT NULL,
			employee_hash TEXT NOT NULL,
			prediction INTEGER NOT NULL,
			burnout_probability REAL NOT NULL,
			no_burnout_probability REAL NOT NULL,
			confidence REAL NOT NULL,
			status TEXT NOT NULL,
			recommendation TEXT NOT NULL,
			color TEXT NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS failures (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			record_index INTEGER NOT NULL,
			employee_id TEXT NOT NULL,
			employee_hash TEXT NOT NULL,
			category TEXT NOT NULL,
			message TEXT NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_run ON predictions(run_id, record_index)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_employee ON predictions(employee_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_run ON failures(run_id, record_index)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_employee ON failures(employee_hash)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// initPreparedStatements prepares the statements used on every saved run.
func (db *DB) initPreparedStatements() error {
	statements := map[string]string{
		"insert_run": `INSERT INTO runs (id, source, convention, schema_source, total, burnout,
			no_burnout, burnout_percentage, failed, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,

		"insert_prediction": `INSERT INTO predictions (id, run_id, record_index, employee_id, employee_hash,
			prediction, burnout_probability, no_burnout_probability, confidence, status, recommendation, color)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,

		"insert_failure": `INSERT INTO failures (id, run_id, record_index, employee_id, employee_hash, category, message)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,

		"get_run": `SELECT id, source, convention, schema_source, total, burnout, no_burnout,
			burnout_percentage, failed, created_at
			FROM runs WHERE id = ?`,
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		db.prepared[name] = stmt

		log.Debug().Str("name", name).Msg("Prepared statement initialized")
	}

	return nil
}

// GetPreparedStatement retrieves a prepared statement
func (db *DB) GetPreparedStatement(name string) (*sql.Stmt, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	stmt, exists := db.prepared[name]
	if !exists {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}

	return stmt, nil
}

// Check pings the database within ctx.
func (db *DB) Check(ctx context.Context) error {
	return db.DB.PingContext(ctx)
}

// GetPoolStats returns database connection pool statistics
func (db *DB) GetPoolStats() map[string]interface{} {
	return db.pool.GetStats()
}

// Close closes the database connection and prepared statements
func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, stmt := range db.prepared {
		if err := stmt.Close(); err != nil {
			log.Warn().Str("name", name).Err(err).Msg("Failed to close prepared statement")
		}
	}
	db.prepared = make(map[string]*sql.Stmt)

	return db.DB.Close()
}
