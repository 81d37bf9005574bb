package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"swapEngine/internal/model"
	"swapEngine/internal/token"
)

// Schema creates the tables the store reads and writes.
const Schema = `
CREATE TABLE IF NOT EXISTS tokens (
	network           TEXT     NOT NULL,
	canonical_id      TEXT     NOT NULL,
	symbol            TEXT     NOT NULL,
	name              TEXT     NOT NULL DEFAULT '',
	decimals          SMALLINT NOT NULL,
	is_native         BOOLEAN  NOT NULL DEFAULT false,
	is_wrapped_native BOOLEAN  NOT NULL DEFAULT false,
	stable            BOOLEAN  NOT NULL DEFAULT false,
	volatile          BOOLEAN  NOT NULL DEFAULT false,
	enabled           BOOLEAN  NOT NULL DEFAULT true,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (network, canonical_id)
);

CREATE TABLE IF NOT EXISTS execution_results (
	request_id       UUID PRIMARY KEY,
	network          TEXT        NOT NULL,
	success          BOOLEAN     NOT NULL,
	transaction_id   TEXT,
	mode             TEXT        NOT NULL,
	input_token      TEXT        NOT NULL,
	output_token     TEXT        NOT NULL,
	route            TEXT,
	estimated_amount TEXT,
	limit_amount     TEXT,
	actual_amount    TEXT,
	gas_used         BIGINT      NOT NULL DEFAULT 0,
	error_kind       TEXT,
	stage            TEXT,
	error            TEXT,
	retryable        BOOLEAN     NOT NULL DEFAULT false,
	executed_at      TIMESTAMPTZ NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for the token registry and execution
// results of one network.
type Store struct {
	pool    *pgxpool.Pool
	network string
}

func NewStore(ctx context.Context, dsn, network string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	if network == "" {
		return nil, fmt.Errorf("network is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, network: network}, nil
}

// Open connects and creates any missing tables, so a fresh database can take
// results right away.
func Open(ctx context.Context, dsn, network string) (*Store, error) {
	s, err := NewStore(ctx, dsn, network)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

type tokenRow struct {
	CanonicalID     string `db:"canonical_id"`
	Symbol          string `db:"symbol"`
	Name            string `db:"name"`
	Decimals        int16  `db:"decimals"`
	IsNative        bool   `db:"is_native"`
	IsWrappedNative bool   `db:"is_wrapped_native"`
	Stable          bool   `db:"stable"`
	Volatile        bool   `db:"volatile"`
}

// LoadTokens returns the enabled tokens of the store's network.
func (s *Store) LoadTokens(ctx context.Context) ([]model.TokenDescriptor, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT canonical_id, symbol, name, decimals, is_native, is_wrapped_native, stable, volatile
		FROM tokens
		WHERE network = $1 AND enabled
		ORDER BY canonical_id
	`, s.network)
	if err != nil {
		return nil, err
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[tokenRow])
	if err != nil {
		return nil, err
	}

	out := make([]model.TokenDescriptor, 0, len(records))
	for _, r := range records {
		if r.Decimals < 0 || r.Decimals > 36 {
			return nil, fmt.Errorf("token %s: decimals %d out of range", r.CanonicalID, r.Decimals)
		}
		desc := model.TokenDescriptor{
			CanonicalID:     r.CanonicalID,
			Symbol:          r.Symbol,
			Name:            r.Name,
			Decimals:        uint8(r.Decimals),
			IsNative:        r.IsNative,
			IsWrappedNative: r.IsWrappedNative,
			Stable:          r.Stable,
			Volatile:        r.Volatile,
		}
		if !desc.IsNative {
			id, err := token.ParseID(desc.CanonicalID)
			if err != nil {
				return nil, fmt.Errorf("token %s: %w", r.Symbol, err)
			}
			desc.ExecutionAddress = id.EVMAddress()
		}
		out = append(out, desc)
	}
	return out, nil
}

// UpsertTokens inserts or updates registry entries.
func (s *Store) UpsertTokens(ctx context.Context, tokens []model.TokenDescriptor) error {
	if len(tokens) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, t := range tokens {
		batch.Queue(`
			INSERT INTO tokens (
				network, canonical_id, symbol, name, decimals, is_native, is_wrapped_native, stable, volatile, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
			ON CONFLICT (network, canonical_id)
			DO UPDATE SET
				symbol = EXCLUDED.symbol,
				name = EXCLUDED.name,
				decimals = EXCLUDED.decimals,
				is_native = EXCLUDED.is_native,
				is_wrapped_native = EXCLUDED.is_wrapped_native,
				stable = EXCLUDED.stable,
				volatile = EXCLUDED.volatile,
				updated_at = now()
		`,
			s.network,
			t.CanonicalID,
			t.Symbol,
			t.Name,
			int16(t.Decimals),
			t.IsNative,
			t.IsWrappedNative,
			t.Stable,
			t.Volatile,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range tokens {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// PutResults inserts execution results. Re-inserting a request id is a no-op.
func (s *Store) PutResults(ctx context.Context, results []model.ExecutionResult) error {
	if len(results) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range results {
		id, err := uuid.Parse(r.RequestID)
		if err != nil {
			return fmt.Errorf("result request id %q: %w", r.RequestID, err)
		}
		batch.Queue(`
			INSERT INTO execution_results (
				request_id, network, success, transaction_id, mode, input_token, output_token, route,
				estimated_amount, limit_amount, actual_amount, gas_used, error_kind, stage, error,
				retryable, executed_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
			ON CONFLICT (request_id) DO NOTHING
		`,
			id,
			s.network,
			r.Success,
			nullable(r.TransactionID),
			r.Mode,
			r.InputToken,
			r.OutputToken,
			nullable(r.Route),
			nullable(r.EstimatedAmount),
			nullable(r.LimitAmount),
			nullable(r.ActualAmount),
			int64(r.GasUsed),
			nullable(r.ErrorKind.String()),
			nullable(r.Stage),
			nullable(r.Error),
			r.Retryable,
			r.Timestamp,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range results {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
