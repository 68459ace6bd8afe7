package analytics

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "qrflow/pkg/domain"
)

// PostgresStore persists scan events in PostgreSQL. The table is append-only;
// events are never updated or deleted by the application.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed event store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event ScanEvent) error {
	query := `
		INSERT INTO scan_events (
			id, qr_code_id, occurred_at, outcome, source, variant,
			matched_rule_ids, country, region, city,
			device_type, os, browser, language,
			ip, user_agent, referrer, duration_ms
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(event.ID), uuid.UUID(event.QRCodeID), event.Timestamp,
		event.Outcome, event.Source, event.Variant,
		pq.Array(event.MatchedRuleIDs), event.Country, event.Region, event.City,
		event.DeviceType, event.OS, event.Browser, event.Language,
		event.IP, event.UserAgent, event.Referrer, event.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("append scan event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByQRCode(ctx context.Context, qrCodeID string) ([]ScanEvent, error) {
	query := `
		SELECT id, qr_code_id, occurred_at, outcome, source, variant,
			matched_rule_ids, country, region, city,
			device_type, os, browser, language,
			ip, user_agent, referrer, duration_ms
		FROM scan_events
		WHERE qr_code_id = $1
		ORDER BY occurred_at
	`
	rows, err := s.db.QueryContext(ctx, query, qrCodeID)
	if err != nil {
		return nil, fmt.Errorf("list scan events: %w", err)
	}
	defer rows.Close()

	var out []ScanEvent
	for rows.Next() {
		var (
			e       ScanEvent
			rawID   uuid.UUID
			rawQRID uuid.UUID
			ruleIDs pq.StringArray
		)
		if err := rows.Scan(&rawID, &rawQRID, &e.Timestamp, &e.Outcome,
			&e.Source, &e.Variant, &ruleIDs, &e.Country, &e.Region, &e.City,
			&e.DeviceType, &e.OS, &e.Browser, &e.Language,
			&e.IP, &e.UserAgent, &e.Referrer, &e.DurationMS); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		e.ID = id.ScanEventID(rawID)
		e.QRCodeID = id.QRCodeID(rawQRID)
		e.MatchedRuleIDs = []string(ruleIDs)
		out = append(out, e)
	}
	return out, rows.Err()
}
