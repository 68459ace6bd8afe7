package delivery

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"qrflow/internal/qrcode/models"
	id "qrflow/pkg/domain"
	"qrflow/pkg/platform/sentinel"
)

// PostgresStore persists A/B tests, redirect rules, and content schedules in
// PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed delivery store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateABTest(ctx context.Context, t *models.ABTest) error {
	query := `
		INSERT INTO ab_tests (id, qr_code_id, variant_a, variant_b, traffic_split, status, winner, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(t.ID), uuid.UUID(t.QRCodeID), uuid.UUID(t.VariantA),
		uuid.UUID(t.VariantB), t.TrafficSplit, string(t.Status),
		nullVariant(t.Winner), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create ab test: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateABTest(ctx context.Context, t *models.ABTest) error {
	query := `
		UPDATE ab_tests SET traffic_split = $2, status = $3, winner = $4, updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(t.ID), t.TrafficSplit, string(t.Status), nullVariant(t.Winner), t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update ab test: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update ab test: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const selectABTest = `
	SELECT id, qr_code_id, variant_a, variant_b, traffic_split, status, winner, created_at, updated_at
	FROM ab_tests
`

func (s *PostgresStore) FindABTest(ctx context.Context, testID id.ABTestID) (*models.ABTest, error) {
	row := s.db.QueryRowContext(ctx, selectABTest+` WHERE id = $1 AND deleted_at IS NULL`, uuid.UUID(testID))
	t, err := scanABTest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find ab test: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) RunningABTest(ctx context.Context, qrID id.QRCodeID) (*models.ABTest, error) {
	row := s.db.QueryRowContext(ctx,
		selectABTest+` WHERE qr_code_id = $1 AND status = 'running' AND deleted_at IS NULL LIMIT 1`,
		uuid.UUID(qrID))
	t, err := scanABTest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find running ab test: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) CreateRedirectRule(ctx context.Context, r *models.RedirectRule) error {
	condition, err := json.Marshal(r.Condition)
	if err != nil {
		return fmt.Errorf("encode redirect condition: %w", err)
	}
	query := `
		INSERT INTO redirect_rules (id, qr_code_id, target_version_id, condition, priority, enabled, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(r.ID), uuid.UUID(r.QRCodeID), uuid.UUID(r.TargetVersionID),
		condition, r.Priority, r.Enabled, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create redirect rule: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRedirectRules(ctx context.Context, qrID id.QRCodeID) ([]*models.RedirectRule, error) {
	query := `
		SELECT id, qr_code_id, target_version_id, condition, priority, enabled, created_at
		FROM redirect_rules
		WHERE qr_code_id = $1 AND deleted_at IS NULL
		ORDER BY priority DESC, id
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(qrID))
	if err != nil {
		return nil, fmt.Errorf("list redirect rules: %w", err)
	}
	defer rows.Close()

	var out []*models.RedirectRule
	for rows.Next() {
		var (
			r            models.RedirectRule
			rawID        uuid.UUID
			rawQRCodeID  uuid.UUID
			rawVersionID uuid.UUID
			condition    []byte
		)
		if err := rows.Scan(&rawID, &rawQRCodeID, &rawVersionID, &condition,
			&r.Priority, &r.Enabled, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan redirect rule: %w", err)
		}
		r.ID = id.RedirectRuleID(rawID)
		r.QRCodeID = id.QRCodeID(rawQRCodeID)
		r.TargetVersionID = id.VersionID(rawVersionID)
		if err := json.Unmarshal(condition, &r.Condition); err != nil {
			return nil, fmt.Errorf("decode redirect condition: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateContentSchedule(ctx context.Context, cs *models.ContentSchedule) error {
	var repeat []byte
	if cs.Repeat != nil {
		var err error
		repeat, err = json.Marshal(cs.Repeat)
		if err != nil {
			return fmt.Errorf("encode schedule repeat: %w", err)
		}
	}
	query := `
		INSERT INTO content_schedules (id, qr_code_id, target_version_id, start_at, end_at, repeat, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(cs.ID), uuid.UUID(cs.QRCodeID), uuid.UUID(cs.TargetVersionID),
		nullTime(cs.StartAt), nullTime(cs.EndAt), repeat, cs.Active, cs.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create content schedule: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListContentSchedules(ctx context.Context, qrID id.QRCodeID) ([]*models.ContentSchedule, error) {
	query := `
		SELECT id, qr_code_id, target_version_id, start_at, end_at, repeat, active, created_at
		FROM content_schedules
		WHERE qr_code_id = $1 AND deleted_at IS NULL
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(qrID))
	if err != nil {
		return nil, fmt.Errorf("list content schedules: %w", err)
	}
	defer rows.Close()

	var out []*models.ContentSchedule
	for rows.Next() {
		var (
			cs           models.ContentSchedule
			rawID        uuid.UUID
			rawQRCodeID  uuid.UUID
			rawVersionID uuid.UUID
			startAt      sql.NullTime
			endAt        sql.NullTime
			repeat       []byte
		)
		if err := rows.Scan(&rawID, &rawQRCodeID, &rawVersionID, &startAt,
			&endAt, &repeat, &cs.Active, &cs.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan content schedule: %w", err)
		}
		cs.ID = id.ContentScheduleID(rawID)
		cs.QRCodeID = id.QRCodeID(rawQRCodeID)
		cs.TargetVersionID = id.VersionID(rawVersionID)
		if startAt.Valid {
			t := startAt.Time
			cs.StartAt = &t
		}
		if endAt.Valid {
			t := endAt.Time
			cs.EndAt = &t
		}
		if len(repeat) > 0 {
			var sched models.Schedule
			if err := json.Unmarshal(repeat, &sched); err != nil {
				return nil, fmt.Errorf("decode schedule repeat: %w", err)
			}
			cs.Repeat = &sched
		}
		out = append(out, &cs)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanABTest(sc rowScanner) (*models.ABTest, error) {
	var (
		t           models.ABTest
		rawID       uuid.UUID
		rawQRCodeID uuid.UUID
		rawA, rawB  uuid.UUID
		status      string
		winner      sql.NullString
	)
	if err := sc.Scan(&rawID, &rawQRCodeID, &rawA, &rawB, &t.TrafficSplit,
		&status, &winner, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.ID = id.ABTestID(rawID)
	t.QRCodeID = id.QRCodeID(rawQRCodeID)
	t.VariantA = id.VersionID(rawA)
	t.VariantB = id.VersionID(rawB)
	t.Status = models.ABTestStatus(status)
	if winner.Valid {
		v := models.Variant(winner.String)
		t.Winner = &v
	}
	return &t, nil
}

func nullVariant(v *models.Variant) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*v), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
