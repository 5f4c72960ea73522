package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/controltower/backend-go/internal/config"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

const defaultMaxConcurrentTx = 10

type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

var (
	dbInstance *DB
	once       sync.Once
)

// NewDB creates the process-wide connection pool. DATABASE_URL takes
// precedence over the discrete DB_* settings and is opened with pgx.
func NewDB(cfg *config.DatabaseConfig) (*DB, error) {
	var err error
	once.Do(func() {
		var db *sqlx.DB
		if cfg.URL != "" {
			db, err = sqlx.Connect("pgx", cfg.URL)
		} else {
			connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
				cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
			db, err = sqlx.Connect("postgres", connStr)
		}
		if err != nil {
			return
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		dbInstance = Wrap(db, defaultMaxConcurrentTx)
	})

	return dbInstance, err
}

// Wrap adopts an existing pool, limiting concurrent transactions to maxTx.
func Wrap(db *sqlx.DB, maxTx int64) *DB {
	if maxTx <= 0 {
		maxTx = defaultMaxConcurrentTx
	}
	return &DB{
		DB:  db,
		sem: semaphore.NewWeighted(maxTx),
	}
}

// WithTx executes a function within a transaction
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	// Acquire semaphore
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer db.sem.Release(1)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("could not rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}
