package version

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"qrflow/internal/qrcode/models"
	id "qrflow/pkg/domain"
	"qrflow/pkg/platform/sentinel"
	"qrflow/pkg/platform/tx"
)

// PostgresStore persists content versions in PostgreSQL. Mutating methods
// honor a transaction carried in the context via pkg/platform/tx.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed version store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// execer lets methods run against either the pool or a context transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) execer {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, v *models.ContentVersion) error {
	query := `
		INSERT INTO content_versions (id, qr_code_id, version_number, content, content_type, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`
	_, err := s.conn(ctx).ExecContext(ctx, query,
		uuid.UUID(v.ID), uuid.UUID(v.QRCodeID), v.VersionNumber,
		v.Content, string(v.ContentType), v.Active, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create content version: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, versionID id.VersionID) (*models.ContentVersion, error) {
	row := s.conn(ctx).QueryRowContext(ctx, selectVersion+` WHERE id = $1`, uuid.UUID(versionID))
	return scanVersion(row)
}

const selectVersion = `
	SELECT id, qr_code_id, version_number, content, content_type, active, created_at
	FROM content_versions
`

func (s *PostgresStore) ListByQRCode(ctx context.Context, qrID id.QRCodeID) ([]*models.ContentVersion, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		selectVersion+` WHERE qr_code_id = $1 ORDER BY version_number`, uuid.UUID(qrID))
	if err != nil {
		return nil, fmt.Errorf("list content versions: %w", err)
	}
	defer rows.Close()

	var out []*models.ContentVersion
	for rows.Next() {
		v, err := scanVersionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ActiveVersion(ctx context.Context, qrID id.QRCodeID) (*models.ContentVersion, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		selectVersion+` WHERE qr_code_id = $1 AND active`, uuid.UUID(qrID))
	v, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

// Activate runs both writes in one transaction so at most one version per QR
// code is ever observed active, even under concurrent activations. A unique
// partial index on (qr_code_id) WHERE active backs the invariant in the
// schema as well.
func (s *PostgresStore) Activate(ctx context.Context, qrID id.QRCodeID, versionID id.VersionID) error {
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		e := s.conn(ctx)
		if _, err := e.ExecContext(ctx,
			`UPDATE content_versions SET active = false WHERE qr_code_id = $1 AND active`,
			uuid.UUID(qrID)); err != nil {
			return fmt.Errorf("deactivate versions: %w", err)
		}
		res, err := e.ExecContext(ctx,
			`UPDATE content_versions SET active = true WHERE id = $1 AND qr_code_id = $2`,
			uuid.UUID(versionID), uuid.UUID(qrID))
		if err != nil {
			return fmt.Errorf("activate version: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("activate version: %w", err)
		}
		if affected == 0 {
			return sentinel.ErrNotFound
		}
		return nil
	})
}

func (s *PostgresStore) MaxVersionNumber(ctx context.Context, qrID id.QRCodeID) (int, error) {
	var max int
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version_number), 0) FROM content_versions WHERE qr_code_id = $1`,
		uuid.UUID(qrID)).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max version number: %w", err)
	}
	return max, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersionInto(sc rowScanner) (*models.ContentVersion, error) {
	var (
		v           models.ContentVersion
		rawID       uuid.UUID
		rawQRCodeID uuid.UUID
		contentType string
	)
	if err := sc.Scan(&rawID, &rawQRCodeID, &v.VersionNumber, &v.Content,
		&contentType, &v.Active, &v.CreatedAt); err != nil {
		return nil, err
	}
	v.ID = id.VersionID(rawID)
	v.QRCodeID = id.QRCodeID(rawQRCodeID)
	v.ContentType = models.ContentType(contentType)
	return &v, nil
}

func scanVersion(row *sql.Row) (*models.ContentVersion, error) {
	v, err := scanVersionInto(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan content version: %w", err)
	}
	return v, nil
}

func scanVersionRows(rows *sql.Rows) (*models.ContentVersion, error) {
	v, err := scanVersionInto(rows)
	if err != nil {
		return nil, fmt.Errorf("scan content version: %w", err)
	}
	return v, nil
}
