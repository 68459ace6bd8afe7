//go:build integration

package qrcode_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"qrflow/internal/qrcode/models"
	"qrflow/internal/qrcode/store/qrcode"
	id "qrflow/pkg/domain"
	"qrflow/pkg/platform/sentinel"
	"qrflow/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *qrcode.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = qrcode.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "scan_events", "content_schedules", "redirect_rules", "ab_tests", "content_rules", "content_versions", "qr_codes")
	s.Require().NoError(err)
}

func newTestQRCode(shortID string) *models.QRCode {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.QRCode{
		ID:                 id.NewQRCodeID(),
		AccountID:          id.NewAccountID(),
		ShortID:            shortID,
		Name:               "Integration " + shortID,
		Active:             true,
		DefaultContent:     "https://example.com/" + shortID,
		DefaultContentType: models.ContentTypeURL,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// ===========================================================================
// Round trips
// ===========================================================================

func (s *PostgresStoreSuite) TestCreateAndFindRoundTrip() {
	ctx := context.Background()

	qr := newTestQRCode("rt-" + uuid.NewString()[:8])
	expires := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Microsecond)
	maxScans := 500
	qr.ExpiresAt = &expires
	qr.MaxScans = &maxScans
	qr.PasswordHash = "$2a$10$abcdefghijklmnopqrstuv"
	qr.Schedule = &models.Schedule{
		Daily:      &models.DailyWindow{StartHour: 9, EndHour: 17},
		DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday},
	}

	s.Require().NoError(s.store.Create(ctx, qr))

	found, err := s.store.FindByID(ctx, qr.ID)
	s.Require().NoError(err)
	s.Equal(qr.ShortID, found.ShortID)
	s.Equal(qr.Name, found.Name)
	s.Equal(qr.PasswordHash, found.PasswordHash)
	s.Require().NotNil(found.ExpiresAt)
	s.True(found.ExpiresAt.Equal(expires))
	s.Require().NotNil(found.MaxScans)
	s.Equal(maxScans, *found.MaxScans)
	s.Require().NotNil(found.Schedule)
	s.Require().NotNil(found.Schedule.Daily)
	s.Equal(9, found.Schedule.Daily.StartHour)
	s.Equal([]time.Weekday{time.Monday, time.Wednesday}, found.Schedule.DaysOfWeek)

	byShort, err := s.store.FindByShortID(ctx, qr.ShortID)
	s.Require().NoError(err)
	s.Equal(qr.ID, byShort.ID)
}

func (s *PostgresStoreSuite) TestNullableFieldsRoundTrip() {
	ctx := context.Background()

	qr := newTestQRCode("nul-" + uuid.NewString()[:8])
	s.Require().NoError(s.store.Create(ctx, qr))

	found, err := s.store.FindByID(ctx, qr.ID)
	s.Require().NoError(err)
	s.Nil(found.ExpiresAt)
	s.Nil(found.MaxScans)
	s.Nil(found.Schedule)
	s.Empty(found.PasswordHash)
}

func (s *PostgresStoreSuite) TestDuplicateShortIDConflicts() {
	ctx := context.Background()

	qr := newTestQRCode("dup-" + uuid.NewString()[:8])
	s.Require().NoError(s.store.Create(ctx, qr))

	other := newTestQRCode(qr.ShortID)
	err := s.store.Create(ctx, other)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestNotFound() {
	ctx := context.Background()

	_, err := s.store.FindByID(ctx, id.NewQRCodeID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByShortID(ctx, "missing-"+uuid.NewString()[:8])
	s.ErrorIs(err, sentinel.ErrNotFound)

	ghost := newTestQRCode("ghost-" + uuid.NewString()[:8])
	s.ErrorIs(s.store.Update(ctx, ghost), sentinel.ErrNotFound)

	_, err = s.store.IncrementScanCount(ctx, id.NewQRCodeID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// ===========================================================================
// Scan counter
// ===========================================================================

func (s *PostgresStoreSuite) TestUpdateDoesNotTouchScanCount() {
	ctx := context.Background()

	qr := newTestQRCode("cnt-" + uuid.NewString()[:8])
	s.Require().NoError(s.store.Create(ctx, qr))

	for i := 0; i < 3; i++ {
		_, err := s.store.IncrementScanCount(ctx, qr.ID)
		s.Require().NoError(err)
	}

	// Stale snapshot still carries ScanCount 0; the write must not reset
	// the counter.
	qr.Name = "renamed"
	qr.UpdatedAt = time.Now().UTC()
	s.Require().NoError(s.store.Update(ctx, qr))

	found, err := s.store.FindByID(ctx, qr.ID)
	s.Require().NoError(err)
	s.Equal("renamed", found.Name)
	s.Equal(3, found.ScanCount)
}

func (s *PostgresStoreSuite) TestConcurrentIncrementsLoseNothing() {
	ctx := context.Background()

	qr := newTestQRCode("cc-" + uuid.NewString()[:8])
	s.Require().NoError(s.store.Create(ctx, qr))

	const goroutines = 50
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.store.IncrementScanCount(ctx, qr.ID)
		}()
	}
	wg.Wait()

	found, err := s.store.FindByID(ctx, qr.ID)
	s.Require().NoError(err)
	s.Equal(goroutines, found.ScanCount)
}

func (s *PostgresStoreSuite) TestIncrementReturnsNewCount() {
	ctx := context.Background()

	qr := newTestQRCode("ret-" + uuid.NewString()[:8])
	s.Require().NoError(s.store.Create(ctx, qr))

	for want := 1; want <= 5; want++ {
		count, err := s.store.IncrementScanCount(ctx, qr.ID)
		s.Require().NoError(err)
		s.Equal(want, count)
	}
}
