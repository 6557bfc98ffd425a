package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"codegate/internal/codebank"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// recordID pins the codebank to a single row; there is exactly one bank.
const recordID = 1

// NewPool creates a PostgreSQL connection pool and verifies connectivity.
func NewPool(ctx context.Context, connString string, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	// A single shared record never needs a large pool.
	poolConfig.MaxConns = 5
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().Msg("database connection pool created")
	return pool, nil
}

// PostgresStore keeps the codebank record as a JSONB document in a single
// row, with a revision column enforcing conditional writes.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresStore creates a Postgres-backed record store.
func NewPostgresStore(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		logger: logger.With().Str("component", "postgres-store").Logger(),
	}
}

// Migrate creates the codebank table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS codebank (
			id INT PRIMARY KEY,
			data JSONB NOT NULL,
			revision BIGINT NOT NULL
		)
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create codebank table: %w", err)
	}
	return nil
}

// Load reads the single codebank row. No row means first-time setup.
func (s *PostgresStore) Load(ctx context.Context) (*codebank.Codebank, Revision, error) {
	var data []byte
	var revision int64

	query := `SELECT data, revision FROM codebank WHERE id = $1`
	err := s.pool.QueryRow(ctx, query, recordID).Scan(&data, &revision)
	if errors.Is(err, pgx.ErrNoRows) {
		s.logger.Info().Msg("no codebank record found, starting with an empty bank")
		return codebank.New(), "", nil
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read codebank row")
		return nil, "", fmt.Errorf("failed to read codebank: %w", err)
	}

	bank, err := decodeBank(data)
	if err != nil {
		s.logger.Error().Err(err).Msg("stored codebank is unparsable")
		return nil, "", err
	}

	return bank, Revision(strconv.FormatInt(revision, 10)), nil
}

// Persist overwrites the codebank row if its revision still matches rev. A
// zero rev inserts the first row; losing that insert to a concurrent writer
// is reported as a conflict too.
func (s *PostgresStore) Persist(ctx context.Context, bank *codebank.Codebank, rev Revision) (Revision, error) {
	data, err := json.Marshal(bank)
	if err != nil {
		return "", fmt.Errorf("failed to encode codebank: %w", err)
	}

	if rev == "" {
		query := `INSERT INTO codebank (id, data, revision) VALUES ($1, $2, 1) ON CONFLICT (id) DO NOTHING`
		tag, err := s.pool.Exec(ctx, query, recordID, data)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to insert codebank row")
			return "", fmt.Errorf("failed to write codebank: %w", err)
		}
		if tag.RowsAffected() == 0 {
			s.logger.Warn().Msg("conditional write lost to a concurrent update")
			return "", ErrRevisionConflict
		}
		return Revision("1"), nil
	}

	expected, err := strconv.ParseInt(string(rev), 10, 64)
	if err != nil {
		return "", fmt.Errorf("malformed revision %q: %w", rev, err)
	}

	query := `UPDATE codebank SET data = $1, revision = revision + 1 WHERE id = $2 AND revision = $3`
	tag, err := s.pool.Exec(ctx, query, data, recordID, expected)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to update codebank row")
		return "", fmt.Errorf("failed to write codebank: %w", err)
	}
	if tag.RowsAffected() == 0 {
		s.logger.Warn().
			Str("revision", string(rev)).
			Msg("conditional write lost to a concurrent update")
		return "", ErrRevisionConflict
	}

	return Revision(strconv.FormatInt(expected+1, 10)), nil
}
