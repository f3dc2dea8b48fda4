package pickup_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mealbridge/service-surplus/internal/apperr"
	"github.com/mealbridge/service-surplus/internal/domain"
	"github.com/mealbridge/service-surplus/internal/logx"
	"github.com/mealbridge/service-surplus/internal/ports/offertx"
	"github.com/mealbridge/service-surplus/internal/service/offers"
	"github.com/mealbridge/service-surplus/internal/service/pickup"
	"github.com/mealbridge/service-surplus/internal/timeline"
)

type stubRepo struct {
	tx offertx.Repository
}

func (s *stubRepo) WithTx(_ context.Context, fn func(tx offertx.Repository) error) error {
	return fn(s.tx)
}

type stubTx struct {
	offer       *domain.Offer
	claim       *domain.Claim
	offerTo     domain.OfferStatus
	claimTo     domain.ClaimStatus
	events      []timeline.Event
	updatedCode string
}

func (s *stubTx) GetOfferForUpdate(context.Context, int64) (*domain.Offer, error) {
	return s.offer, nil
}
func (s *stubTx) GetClaim(context.Context, int64) (*domain.Claim, error) {
	return s.claim, nil
}
func (s *stubTx) GetClaimForUpdate(context.Context, int64) (*domain.Claim, error) {
	return s.claim, nil
}
func (s *stubTx) GetActiveClaimForUpdate(context.Context, int64) (*domain.Claim, error) {
	return s.claim, nil
}
func (s *stubTx) InsertClaim(context.Context, *domain.Claim) error { return nil }
func (s *stubTx) UpdateOfferStatus(_ context.Context, _ int64, _, to domain.OfferStatus) error {
	s.offerTo = to
	return nil
}
func (s *stubTx) SetOfferPickupCode(_ context.Context, _ int64, code string) error {
	s.updatedCode = code
	return nil
}
func (s *stubTx) UpdateClaimStatus(_ context.Context, _ int64, status domain.ClaimStatus) error {
	s.claimTo = status
	return nil
}
func (s *stubTx) RecordEvent(_ context.Context, ev timeline.Event) error {
	s.events = append(s.events, ev)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func readyOffer() *domain.Offer {
	return &domain.Offer{
		ID:         7,
		DonorID:    100,
		Status:     domain.OfferReadyForPickup,
		PickupCode: "123456",
		DefaultWindow: &domain.PickupWindow{
			Date:  time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
			Start: 14 * 60,
			End:   15 * 60,
		},
	}
}

func newService(tx *stubTx, now time.Time) *pickup.Service {
	return pickup.NewService(
		&stubRepo{tx: tx}, offers.NewMachine(), nil, logx.Nop(),
		15*time.Minute, 15*time.Minute, 3*time.Second,
	).WithClock(fixedClock(now))
}

func TestService_Confirm_Success(t *testing.T) {
	t.Parallel()

	tx := &stubTx{
		offer: readyOffer(),
		claim: &domain.Claim{ID: 55, OfferID: 7, ReceiverID: 200, Status: domain.ClaimActive},
	}
	svc := newService(tx, time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC))

	err := svc.Confirm(context.Background(), 7, "123456")
	require.NoError(t, err)
	require.Equal(t, domain.OfferCompleted, tx.offerTo)
	require.Equal(t, domain.ClaimCompleted, tx.claimTo)
	require.Len(t, tx.events, 1)
	require.Equal(t, timeline.EventPickupConfirmed, tx.events[0].EventType)
	require.Equal(t, "donor:100", tx.events[0].Actor)
}

func TestService_Confirm_WrongCode(t *testing.T) {
	t.Parallel()

	tx := &stubTx{offer: readyOffer()}
	svc := newService(tx, time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC))

	err := svc.Confirm(context.Background(), 7, "654321")
	require.ErrorIs(t, err, apperr.ErrCodeMismatch)
	require.Empty(t, tx.offerTo)
}

func TestService_Confirm_NoCodeIssued(t *testing.T) {
	t.Parallel()

	offer := readyOffer()
	offer.PickupCode = ""
	tx := &stubTx{offer: offer}
	svc := newService(tx, time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC))

	err := svc.Confirm(context.Background(), 7, "123456")
	require.ErrorIs(t, err, apperr.ErrCodeMismatch)
}

func TestService_Confirm_WrongState(t *testing.T) {
	t.Parallel()

	for _, status := range []domain.OfferStatus{
		domain.OfferAvailable, domain.OfferClaimed, domain.OfferCompleted, domain.OfferExpired,
	} {
		offer := readyOffer()
		offer.Status = status
		tx := &stubTx{offer: offer}
		svc := newService(tx, time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC))

		err := svc.Confirm(context.Background(), 7, "123456")
		require.ErrorIs(t, err, apperr.ErrInvalidTransition, "status %s", status)
	}
}

func TestService_Confirm_NotFound(t *testing.T) {
	t.Parallel()

	svc := newService(&stubTx{}, time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC))
	err := svc.Confirm(context.Background(), 7, "123456")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_Confirm_TooLate(t *testing.T) {
	t.Parallel()

	tx := &stubTx{offer: readyOffer()}
	svc := newService(tx, time.Date(2025, 6, 10, 15, 16, 0, 0, time.UTC))

	err := svc.Confirm(context.Background(), 7, "123456")
	require.ErrorIs(t, err, apperr.ErrOutsideWindow)
	require.Contains(t, err.Error(), "too_late")
}

func TestService_Confirm_TooEarly(t *testing.T) {
	t.Parallel()

	tx := &stubTx{offer: readyOffer()}
	svc := newService(tx, time.Date(2025, 6, 10, 13, 0, 0, 0, time.UTC))

	err := svc.Confirm(context.Background(), 7, "123456")
	require.ErrorIs(t, err, apperr.ErrOutsideWindow)
	require.Contains(t, err.Error(), "too_early")
}

func TestService_Confirm_ConfirmedSlotOverridesDefault(t *testing.T) {
	t.Parallel()

	// default window has long passed, but the confirmed slot is now
	tx := &stubTx{
		offer: readyOffer(),
		claim: &domain.Claim{
			ID: 55, OfferID: 7, ReceiverID: 200, Status: domain.ClaimActive,
			ConfirmedWindow: &domain.PickupWindow{
				Date:  time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC),
				Start: 18 * 60,
				End:   19 * 60,
			},
		},
	}
	svc := newService(tx, time.Date(2025, 6, 11, 18, 30, 0, 0, time.UTC))

	err := svc.Confirm(context.Background(), 7, "123456")
	require.NoError(t, err)
	require.Equal(t, domain.OfferCompleted, tx.offerTo)
}

func TestService_Confirm_NoScheduleFailsOpen(t *testing.T) {
	t.Parallel()

	offer := readyOffer()
	offer.DefaultWindow = nil
	tx := &stubTx{offer: offer}
	svc := newService(tx, time.Date(2025, 6, 10, 3, 0, 0, 0, time.UTC))

	err := svc.Confirm(context.Background(), 7, "123456")
	require.NoError(t, err)
	require.Equal(t, domain.OfferCompleted, tx.offerTo)
}

func TestService_Confirm_InvalidInput(t *testing.T) {
	t.Parallel()

	svc := newService(&stubTx{}, time.Now())

	require.ErrorIs(t, svc.Confirm(context.Background(), 0, "123456"), apperr.ErrInvalid)
	require.ErrorIs(t, svc.Confirm(context.Background(), 7, ""), apperr.ErrInvalid)
}
