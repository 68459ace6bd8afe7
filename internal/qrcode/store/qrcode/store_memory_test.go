package qrcode

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"qrflow/internal/qrcode/models"
	id "qrflow/pkg/domain"
	"qrflow/pkg/platform/sentinel"
)

type QRCodeStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryStore
}

func TestQRCodeStoreSuite(t *testing.T) {
	suite.Run(t, new(QRCodeStoreSuite))
}

func (s *QRCodeStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemory()
}

func (s *QRCodeStoreSuite) newQRCode(shortID string) *models.QRCode {
	return &models.QRCode{
		ID:                 id.NewQRCodeID(),
		AccountID:          id.NewAccountID(),
		ShortID:            shortID,
		Name:               "test code",
		Active:             true,
		DefaultContent:     "https://example.com",
		DefaultContentType: models.ContentTypeURL,
	}
}

func (s *QRCodeStoreSuite) TestCreateAndFind() {
	qr := s.newQRCode("abc12345")
	s.Require().NoError(s.store.Create(s.ctx, qr))

	byID, err := s.store.FindByID(s.ctx, qr.ID)
	s.Require().NoError(err)
	s.Equal(qr.ShortID, byID.ShortID)

	byShort, err := s.store.FindByShortID(s.ctx, "abc12345")
	s.Require().NoError(err)
	s.Equal(qr.ID, byShort.ID)
}

func (s *QRCodeStoreSuite) TestCreateDuplicateShortIDConflicts() {
	s.Require().NoError(s.store.Create(s.ctx, s.newQRCode("dup00000")))
	err := s.store.Create(s.ctx, s.newQRCode("dup00000"))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *QRCodeStoreSuite) TestFindMissingIsNotFound() {
	_, err := s.store.FindByShortID(s.ctx, "nope")
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByID(s.ctx, id.NewQRCodeID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *QRCodeStoreSuite) TestUpdatePreservesScanCount() {
	qr := s.newQRCode("upd00000")
	s.Require().NoError(s.store.Create(s.ctx, qr))
	for i := 0; i < 3; i++ {
		_, err := s.store.IncrementScanCount(s.ctx, qr.ID)
		s.Require().NoError(err)
	}

	// A stale configuration write must not roll the counter back.
	qr.Name = "renamed"
	qr.ScanCount = 0
	s.Require().NoError(s.store.Update(s.ctx, qr))

	stored, err := s.store.FindByID(s.ctx, qr.ID)
	s.Require().NoError(err)
	s.Equal("renamed", stored.Name)
	s.Equal(3, stored.ScanCount)
}

func (s *QRCodeStoreSuite) TestUpdateMissingIsNotFound() {
	err := s.store.Update(s.ctx, s.newQRCode("ghost000"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *QRCodeStoreSuite) TestIncrementIsSequential() {
	qr := s.newQRCode("inc00000")
	s.Require().NoError(s.store.Create(s.ctx, qr))

	for want := 1; want <= 5; want++ {
		got, err := s.store.IncrementScanCount(s.ctx, qr.ID)
		s.Require().NoError(err)
		s.Equal(want, got)
	}
}

func (s *QRCodeStoreSuite) TestConcurrentIncrementsLoseNothing() {
	qr := s.newQRCode("conc0000")
	s.Require().NoError(s.store.Create(s.ctx, qr))

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.IncrementScanCount(s.ctx, qr.ID)
			s.NoError(err)
		}()
	}
	wg.Wait()

	stored, err := s.store.FindByID(s.ctx, qr.ID)
	s.Require().NoError(err)
	s.Equal(n, stored.ScanCount)
}

func (s *QRCodeStoreSuite) TestReturnedRecordsAreCopies() {
	qr := s.newQRCode("copy0000")
	s.Require().NoError(s.store.Create(s.ctx, qr))

	first, err := s.store.FindByID(s.ctx, qr.ID)
	s.Require().NoError(err)
	first.Name = "mutated"

	second, err := s.store.FindByID(s.ctx, qr.ID)
	s.Require().NoError(err)
	s.Equal("test code", second.Name)
}
