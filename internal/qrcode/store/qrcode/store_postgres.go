package qrcode

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"qrflow/internal/qrcode/models"
	id "qrflow/pkg/domain"
	"qrflow/pkg/platform/sentinel"
)

// PostgresStore persists QR codes in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed QR code store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, qr *models.QRCode) error {
	scheduleJSON, err := marshalSchedule(qr.Schedule)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO qr_codes (
			id, account_id, short_id, name, active, expires_at, max_scans,
			scan_count, password_hash, schedule, default_content,
			default_content_type, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(qr.ID), uuid.UUID(qr.AccountID), qr.ShortID, qr.Name,
		qr.Active, nullTime(qr.ExpiresAt), nullInt(qr.MaxScans),
		qr.ScanCount, qr.PasswordHash, scheduleJSON, qr.DefaultContent,
		string(qr.DefaultContentType), qr.CreatedAt, qr.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("create qr code: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create qr code: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, qr *models.QRCode) error {
	scheduleJSON, err := marshalSchedule(qr.Schedule)
	if err != nil {
		return err
	}
	// scan_count is deliberately absent: the counter moves only through
	// IncrementScanCount.
	query := `
		UPDATE qr_codes SET
			name = $2, active = $3, expires_at = $4, max_scans = $5,
			password_hash = $6, schedule = $7, default_content = $8,
			default_content_type = $9, updated_at = $10
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(qr.ID), qr.Name, qr.Active, nullTime(qr.ExpiresAt),
		nullInt(qr.MaxScans), qr.PasswordHash, scheduleJSON,
		qr.DefaultContent, string(qr.DefaultContentType), qr.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update qr code: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update qr code: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, qrID id.QRCodeID) (*models.QRCode, error) {
	return s.findOne(ctx, `WHERE id = $1`, uuid.UUID(qrID))
}

func (s *PostgresStore) FindByShortID(ctx context.Context, shortID string) (*models.QRCode, error) {
	return s.findOne(ctx, `WHERE short_id = $1`, shortID)
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (*models.QRCode, error) {
	query := `
		SELECT id, account_id, short_id, name, active, expires_at, max_scans,
			scan_count, password_hash, schedule, default_content,
			default_content_type, created_at, updated_at
		FROM qr_codes ` + where
	row := s.db.QueryRowContext(ctx, query, arg)

	var (
		qr           models.QRCode
		rawID        uuid.UUID
		rawAccount   uuid.UUID
		expiresAt    sql.NullTime
		maxScans     sql.NullInt64
		scheduleJSON []byte
		contentType  string
	)
	err := row.Scan(&rawID, &rawAccount, &qr.ShortID, &qr.Name, &qr.Active,
		&expiresAt, &maxScans, &qr.ScanCount, &qr.PasswordHash, &scheduleJSON,
		&qr.DefaultContent, &contentType, &qr.CreatedAt, &qr.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find qr code: %w", err)
	}

	qr.ID = id.QRCodeID(rawID)
	qr.AccountID = id.AccountID(rawAccount)
	qr.DefaultContentType = models.ContentType(contentType)
	if expiresAt.Valid {
		t := expiresAt.Time
		qr.ExpiresAt = &t
	}
	if maxScans.Valid {
		v := int(maxScans.Int64)
		qr.MaxScans = &v
	}
	if len(scheduleJSON) > 0 {
		var sched models.Schedule
		if err := json.Unmarshal(scheduleJSON, &sched); err != nil {
			return nil, fmt.Errorf("decode qr code schedule: %w", err)
		}
		qr.Schedule = &sched
	}
	return &qr, nil
}

// IncrementScanCount runs a single-statement atomic increment-and-read so
// concurrent scans of the same QR code never lose updates.
func (s *PostgresStore) IncrementScanCount(ctx context.Context, qrID id.QRCodeID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`UPDATE qr_codes SET scan_count = scan_count + 1 WHERE id = $1 RETURNING scan_count`,
		uuid.UUID(qrID),
	).Scan(&count)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, sentinel.ErrNotFound
		}
		return 0, fmt.Errorf("increment scan count: %w", err)
	}
	return count, nil
}

func marshalSchedule(sched *models.Schedule) ([]byte, error) {
	if sched == nil {
		return nil, nil
	}
	raw, err := json.Marshal(sched)
	if err != nil {
		return nil, fmt.Errorf("encode schedule: %w", err)
	}
	return raw, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
