package matcher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ternarybob/arbor"

	"jobmate/scraper-service/internal/db"
	"jobmate/scraper-service/internal/model"
)

// Store lists automation records. It is opened per sweep and closed after.
type Store interface {
	List(ctx context.Context) ([]model.AutomationRecord, error)
	Close()
}

// Opener opens a Store for one sweep.
type Opener func(ctx context.Context) (Store, error)

// PostgresStore reads automation documents from a table with columns
// user_id, email and automation_data (JSONB).
type PostgresStore struct {
	pool   *pgxpool.Pool
	table  string
	logger arbor.ILogger
}

// PostgresOpener returns an Opener connecting to databaseURL on each call.
func PostgresOpener(databaseURL, table string, logger arbor.ILogger) Opener {
	return func(ctx context.Context) (Store, error) {
		pool, err := db.NewPostgresPool(ctx, databaseURL, 2)
		if err != nil {
			return nil, err
		}
		return &PostgresStore{pool: pool, table: table, logger: logger}, nil
	}
}

// List returns every record. Rows whose automation_data cannot be decoded
// are logged and left out.
func (s *PostgresStore) List(ctx context.Context) ([]model.AutomationRecord, error) {
	query := fmt.Sprintf(
		`SELECT user_id::text, COALESCE(email, ''), COALESCE(automation_data, '[]'::jsonb)
		 FROM %s`,
		pgx.Identifier{s.table}.Sanitize(),
	)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	var records []model.AutomationRecord
	for rows.Next() {
		var (
			rec model.AutomationRecord
			raw []byte
		)
		if err := rows.Scan(&rec.UserID, &rec.Email, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		entries, err := decodeEntries(raw)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", rec.UserID).Msg("Skipping automation with malformed data")
			continue
		}
		rec.AutomationData = entries
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows %s: %w", s.table, err)
	}

	return records, nil
}

func (s *PostgresStore) Close() { s.pool.Close() }

func decodeEntries(raw []byte) ([]model.AutomationEntry, error) {
	var entries []model.AutomationEntry
	if len(raw) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode automation_data: %w", err)
	}
	return entries, nil
}
