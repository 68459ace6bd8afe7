package rule

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"qrflow/internal/qrcode/models"
	id "qrflow/pkg/domain"
	"qrflow/pkg/platform/sentinel"
)

// PostgresStore persists content rules in PostgreSQL. The type-specific
// predicate is stored as a JSONB column; rows that fail to decode surface as
// errors to the caller, which treats the rule as non-matching.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed rule store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// predicateEnvelope is the JSONB payload; exactly one field is set.
type predicateEnvelope struct {
	Device   *models.DevicePredicate   `json:"device,omitempty"`
	Location *models.LocationPredicate `json:"location,omitempty"`
	Language *models.LanguagePredicate `json:"language,omitempty"`
	Time     *models.TimePredicate     `json:"time,omitempty"`
}

func (s *PostgresStore) Create(ctx context.Context, r *models.ContentRule) error {
	predicate, err := json.Marshal(predicateEnvelope{
		Device: r.Device, Location: r.Location, Language: r.Language, Time: r.Time,
	})
	if err != nil {
		return fmt.Errorf("encode rule predicate: %w", err)
	}
	query := `
		INSERT INTO content_rules (
			id, qr_code_id, rule_type, predicate, content, content_type,
			priority, active, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(r.ID), uuid.UUID(r.QRCodeID), string(r.Type), predicate,
		r.Content, string(r.ContentType), r.Priority, r.Active,
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create content rule: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, r *models.ContentRule) error {
	predicate, err := json.Marshal(predicateEnvelope{
		Device: r.Device, Location: r.Location, Language: r.Language, Time: r.Time,
	})
	if err != nil {
		return fmt.Errorf("encode rule predicate: %w", err)
	}
	query := `
		UPDATE content_rules SET
			rule_type = $2, predicate = $3, content = $4, content_type = $5,
			priority = $6, active = $7, updated_at = $8
		WHERE id = $1 AND deleted_at IS NULL
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(r.ID), string(r.Type), predicate, r.Content,
		string(r.ContentType), r.Priority, r.Active, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update content rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update content rule: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const selectRule = `
	SELECT id, qr_code_id, rule_type, predicate, content, content_type,
		priority, active, created_at, updated_at
	FROM content_rules
`

func (s *PostgresStore) FindByID(ctx context.Context, ruleID id.RuleID) (*models.ContentRule, error) {
	row := s.db.QueryRowContext(ctx,
		selectRule+` WHERE id = $1 AND deleted_at IS NULL`, uuid.UUID(ruleID))
	r, err := scanRule(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find content rule: %w", err)
	}
	return r, nil
}

// ListByQRCode returns rules ordered by ID, the documented tie-break order.
func (s *PostgresStore) ListByQRCode(ctx context.Context, qrID id.QRCodeID) ([]*models.ContentRule, error) {
	rows, err := s.db.QueryContext(ctx,
		selectRule+` WHERE qr_code_id = $1 AND deleted_at IS NULL ORDER BY id`,
		uuid.UUID(qrID))
	if err != nil {
		return nil, fmt.Errorf("list content rules: %w", err)
	}
	defer rows.Close()

	var out []*models.ContentRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content rule: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Delete soft-deletes the rule so analytics referencing it stay resolvable.
func (s *PostgresStore) Delete(ctx context.Context, ruleID id.RuleID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE content_rules SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`,
		uuid.UUID(ruleID))
	if err != nil {
		return fmt.Errorf("delete content rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete content rule: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(sc rowScanner) (*models.ContentRule, error) {
	var (
		r           models.ContentRule
		rawID       uuid.UUID
		rawQRCodeID uuid.UUID
		ruleType    string
		predicate   []byte
		contentType string
	)
	if err := sc.Scan(&rawID, &rawQRCodeID, &ruleType, &predicate, &r.Content,
		&contentType, &r.Priority, &r.Active, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.ID = id.RuleID(rawID)
	r.QRCodeID = id.QRCodeID(rawQRCodeID)
	r.Type = models.RuleType(ruleType)
	r.ContentType = models.ContentType(contentType)

	var env predicateEnvelope
	if err := json.Unmarshal(predicate, &env); err != nil {
		return nil, fmt.Errorf("decode rule predicate: %w", err)
	}
	r.Device, r.Location, r.Language, r.Time = env.Device, env.Location, env.Language, env.Time
	return &r, nil
}
