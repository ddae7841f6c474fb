// Package storage implements C9: persistence of the four logical
// streams of spec.md §3.4 to Postgres, using JSONB columns and
// idempotent-on-insert, append-only semantics. There is deliberately
// no transaction spanning streams (spec.md §6): a schema problem in
// one table never hides a successful harvest in another.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/luckymifta/dash-atm-collector/internal/model"
)

// Store owns the connection pool and the legacy-table toggle.
type Store struct {
	pool           *pgxpool.Pool
	useLegacyTable bool
	logger         zerolog.Logger
}

// Open connects to Postgres and returns a Store. useLegacyTable
// selects whether RegionalSnapshot writes also populate the legacy
// regional_atm_counts table (spec.md §9 Open Question, resolved
// default-off in SPEC_FULL.md).
func Open(ctx context.Context, dsn string, useLegacyTable bool, logger zerolog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool, useLegacyTable: useLegacyTable, logger: logger.With().Str("component", "storage").Logger()}, nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// EnsureSchema runs the idempotent DDL of spec.md §3.4: every
// statement is CREATE TABLE/INDEX IF NOT EXISTS, so it is safe to run
// on every process start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS regional_data (
			id serial PRIMARY KEY,
			unique_request_id uuid NOT NULL,
			region_code varchar(10) NOT NULL,
			retrieval_timestamp timestamptz NOT NULL,
			raw_regional_data jsonb NOT NULL,
			count_available int NOT NULL,
			count_warning int NOT NULL,
			count_zombie int NOT NULL,
			count_wounded int NOT NULL,
			count_out_of_service int NOT NULL,
			total_atms_in_region int NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_regional_data_region_time ON regional_data (region_code, retrieval_timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_regional_data_raw_gin ON regional_data USING GIN (raw_regional_data)`,

		`CREATE TABLE IF NOT EXISTS terminal_details (
			id serial PRIMARY KEY,
			unique_request_id uuid NOT NULL,
			terminal_id varchar(50) NOT NULL,
			location text,
			issue_state_name varchar(50),
			serial_number varchar(50),
			retrieved_date timestamptz NOT NULL,
			fetched_status varchar(50) NOT NULL,
			raw_terminal_data jsonb NOT NULL,
			fault_data jsonb,
			metadata jsonb,
			created_at timestamptz DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_terminal_details_id_date ON terminal_details (terminal_id, retrieved_date DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_terminal_details_status ON terminal_details (fetched_status)`,
		`CREATE INDEX IF NOT EXISTS idx_terminal_details_raw_gin ON terminal_details USING GIN (raw_terminal_data)`,
		`CREATE INDEX IF NOT EXISTS idx_terminal_details_fault_gin ON terminal_details USING GIN (fault_data)`,
		`CREATE INDEX IF NOT EXISTS idx_terminal_details_meta_gin ON terminal_details USING GIN (metadata)`,

		`CREATE TABLE IF NOT EXISTS terminal_cash_information (
			id serial PRIMARY KEY,
			unique_request_id uuid NOT NULL,
			terminal_id varchar(50) NOT NULL,
			business_code varchar(50),
			technical_code varchar(50),
			external_id varchar(50),
			retrieval_timestamp timestamptz NOT NULL,
			event_date timestamptz NOT NULL,
			total_cash_amount numeric,
			total_currency varchar(10),
			cassettes_data jsonb NOT NULL DEFAULT '[]'::jsonb,
			cassette_count int NOT NULL DEFAULT 0,
			has_low_cash_warning boolean NOT NULL DEFAULT false,
			has_cash_errors boolean NOT NULL DEFAULT false,
			is_null_record boolean NOT NULL DEFAULT false,
			null_reason text,
			raw_cash_data jsonb,
			created_at timestamptz DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cash_info_terminal ON terminal_cash_information (terminal_id)`,
		`CREATE INDEX IF NOT EXISTS idx_cash_info_retrieval ON terminal_cash_information (retrieval_timestamp DESC)`,

		`CREATE TABLE IF NOT EXISTS regional_atm_counts (
			id serial PRIMARY KEY,
			unique_request_id uuid NOT NULL,
			region_code varchar(10) NOT NULL,
			retrieval_timestamp timestamptz NOT NULL,
			count_available int NOT NULL,
			count_warning int NOT NULL,
			count_zombie int NOT NULL,
			count_wounded int NOT NULL,
			count_out_of_service int NOT NULL,
			percentage_available numeric NOT NULL,
			percentage_warning numeric NOT NULL,
			percentage_zombie numeric NOT NULL,
			percentage_wounded numeric NOT NULL,
			percentage_out_of_service numeric NOT NULL,
			total_atms_in_region int NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_regional_atm_counts_region_time ON regional_atm_counts (region_code, retrieval_timestamp DESC)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveRegionalSnapshot writes a RegionalSnapshot in its own
// transaction and, once that has committed, optionally mirrors it into
// the legacy table as a separate statement, so a legacy-table failure
// never rolls back the regional_data row (spec.md §3.4/§9). Errors are
// returned, never panicked, so the orchestrator can log-and-continue
// to the next stream.
func (s *Store) SaveRegionalSnapshot(ctx context.Context, snap model.RegionalSnapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin regional_data tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO regional_data (
			unique_request_id, region_code, retrieval_timestamp, raw_regional_data,
			count_available, count_warning, count_zombie, count_wounded, count_out_of_service,
			total_atms_in_region
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		snap.UniqueRequestID, snap.RegionCode, snap.DateCreation, rawOrEmptyObject(snap.RawRegionalData),
		snap.CountAvailable, snap.CountWarning, snap.CountZombie, snap.CountWounded, snap.CountOutOfService,
		snap.TotalATMsInRegion,
	)
	if err != nil {
		return fmt.Errorf("insert regional_data: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit regional_data tx: %w", err)
	}

	if s.useLegacyTable {
		_, err = s.pool.Exec(ctx, `
			INSERT INTO regional_atm_counts (
				unique_request_id, region_code, retrieval_timestamp,
				count_available, count_warning, count_zombie, count_wounded, count_out_of_service,
				percentage_available, percentage_warning, percentage_zombie, percentage_wounded, percentage_out_of_service,
				total_atms_in_region
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			snap.UniqueRequestID, snap.RegionCode, snap.DateCreation,
			snap.CountAvailable, snap.CountWarning, snap.CountZombie, snap.CountWounded, snap.CountOutOfService,
			snap.PercentAvailable, snap.PercentWarning, snap.PercentZombie, snap.PercentWounded, snap.PercentOutOfService,
			snap.TotalATMsInRegion,
		)
		if err != nil {
			return fmt.Errorf("insert regional_atm_counts: %w", err)
		}
	}

	return nil
}

// SaveTerminalStatusRecords writes every record of a cycle's P4/P5
// (or failover) pass in one transaction. A marshal failure on any
// single record is logged and skipped rather than aborting the whole
// batch, since one malformed fault blob should not cost the rest of
// the fleet's observations.
func (s *Store) SaveTerminalStatusRecords(ctx context.Context, records []model.TerminalStatusRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin terminal_details tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range records {
		faultJSON, err := json.Marshal(rec.FaultData)
		if err != nil {
			s.logger.Error().Err(err).Str("terminal_id", rec.TerminalID).Msg("marshal fault_data failed, skipping record")
			continue
		}
		metaJSON, err := json.Marshal(rec.Metadata)
		if err != nil {
			s.logger.Error().Err(err).Str("terminal_id", rec.TerminalID).Msg("marshal metadata failed, skipping record")
			continue
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO terminal_details (
				unique_request_id, terminal_id, location, issue_state_name, serial_number,
				retrieved_date, fetched_status, raw_terminal_data, fault_data, metadata
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			rec.UniqueRequestID, rec.TerminalID, rec.Location, rec.IssueStateName, rec.SerialNumber,
			rec.RetrievedDate, rec.FetchedStatus, rawOrEmptyObject(rec.RawTerminalData), faultJSON, metaJSON,
		)
		if err != nil {
			return fmt.Errorf("insert terminal_details for %s: %w", rec.TerminalID, err)
		}
	}

	return tx.Commit(ctx)
}

// SaveCashRecords writes a cycle's P6 cash-inventory pass in one
// transaction.
func (s *Store) SaveCashRecords(ctx context.Context, records []model.CashRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin terminal_cash_information tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range records {
		cassettesJSON, err := json.Marshal(rec.CassettesData)
		if err != nil {
			s.logger.Error().Err(err).Str("terminal_id", rec.TerminalID).Msg("marshal cassettes_data failed, skipping record")
			continue
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO terminal_cash_information (
				unique_request_id, terminal_id, business_code, technical_code, external_id,
				retrieval_timestamp, event_date, total_cash_amount, total_currency,
				cassettes_data, cassette_count, has_low_cash_warning, has_cash_errors,
				is_null_record, null_reason, raw_cash_data
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			rec.UniqueRequestID, rec.TerminalID, rec.BusinessCode, rec.TechnicalCode, rec.ExternalID,
			rec.RetrievalTimestamp, rec.EventDate, rec.TotalCashAmount, rec.TotalCurrency,
			cassettesJSON, rec.CassetteCount, rec.HasLowCashWarning, rec.HasCashErrors,
			rec.IsNullRecord, rec.NullReason, rawOrNil(rec.RawCashData),
		)
		if err != nil {
			return fmt.Errorf("insert terminal_cash_information for %s: %w", rec.TerminalID, err)
		}
	}

	return tx.Commit(ctx)
}

func rawOrEmptyObject(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return raw
}

func rawOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
