//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance with the
// application schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	URL       string
	DB        *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS qr_codes (
	id UUID PRIMARY KEY,
	account_id UUID NOT NULL,
	short_id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	expires_at TIMESTAMPTZ,
	max_scans BIGINT,
	scan_count BIGINT NOT NULL DEFAULT 0,
	password_hash TEXT NOT NULL DEFAULT '',
	schedule JSONB,
	default_content TEXT NOT NULL,
	default_content_type TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS content_versions (
	id UUID PRIMARY KEY,
	qr_code_id UUID NOT NULL REFERENCES qr_codes(id) ON DELETE CASCADE,
	version_number BIGINT NOT NULL,
	content TEXT NOT NULL,
	content_type TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (qr_code_id, version_number)
);

CREATE TABLE IF NOT EXISTS content_rules (
	id UUID PRIMARY KEY,
	qr_code_id UUID NOT NULL REFERENCES qr_codes(id) ON DELETE CASCADE,
	rule_type TEXT NOT NULL,
	predicate JSONB NOT NULL,
	content TEXT NOT NULL,
	content_type TEXT NOT NULL,
	priority BIGINT NOT NULL DEFAULT 0,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS ab_tests (
	id UUID PRIMARY KEY,
	qr_code_id UUID NOT NULL REFERENCES qr_codes(id) ON DELETE CASCADE,
	variant_a UUID NOT NULL,
	variant_b UUID NOT NULL,
	traffic_split BIGINT NOT NULL,
	status TEXT NOT NULL,
	winner TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS redirect_rules (
	id UUID PRIMARY KEY,
	qr_code_id UUID NOT NULL REFERENCES qr_codes(id) ON DELETE CASCADE,
	target_version_id UUID NOT NULL,
	condition JSONB NOT NULL,
	priority BIGINT NOT NULL DEFAULT 0,
	enabled BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS content_schedules (
	id UUID PRIMARY KEY,
	qr_code_id UUID NOT NULL REFERENCES qr_codes(id) ON DELETE CASCADE,
	target_version_id UUID NOT NULL,
	start_at TIMESTAMPTZ NOT NULL,
	end_at TIMESTAMPTZ NOT NULL,
	repeat TEXT NOT NULL DEFAULT '',
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS scan_events (
	id UUID PRIMARY KEY,
	qr_code_id UUID NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	outcome TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	variant TEXT NOT NULL DEFAULT '',
	matched_rule_ids TEXT[],
	country TEXT NOT NULL DEFAULT '',
	region TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	device_type TEXT NOT NULL DEFAULT '',
	os TEXT NOT NULL DEFAULT '',
	browser TEXT NOT NULL DEFAULT '',
	language TEXT NOT NULL DEFAULT '',
	ip TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	referrer TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL DEFAULT 0
);
`

// NewPostgresContainer starts a PostgreSQL container, applies the schema
// and returns an open connection pool.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("qrflow_test"),
		tcpostgres.WithUsername("qrflow"),
		tcpostgres.WithPassword("qrflow"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	// No t.Cleanup: the container belongs to the singleton Manager and is
	// shared across suites. Ryuk reaps it when the test process exits.
	return &PostgresContainer{
		Container: container,
		URL:       url,
		DB:        db,
	}
}

// TruncateTables empties the given tables in order.
// Use between tests to ensure isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	query := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(tables, ", "))
	if _, err := p.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
