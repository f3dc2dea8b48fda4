package claims_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/mealbridge/service-surplus/internal/apperr"
	"github.com/mealbridge/service-surplus/internal/domain"
	"github.com/mealbridge/service-surplus/internal/logx"
	"github.com/mealbridge/service-surplus/internal/ports/offertx"
	"github.com/mealbridge/service-surplus/internal/service/claims"
	"github.com/mealbridge/service-surplus/internal/service/offers"
	"github.com/mealbridge/service-surplus/internal/timeline"
)

type stubRepo struct {
	tx offertx.Repository
}

func (s *stubRepo) WithTx(_ context.Context, fn func(tx offertx.Repository) error) error {
	return fn(s.tx)
}

type stubTx struct {
	getOfferFn       func(context.Context, int64) (*domain.Offer, error)
	getClaimFn       func(context.Context, int64) (*domain.Claim, error)
	getClaimLockFn   func(context.Context, int64) (*domain.Claim, error)
	getActiveClaimFn func(context.Context, int64) (*domain.Claim, error)
	insertClaimFn    func(context.Context, *domain.Claim) error
	updOfferFn       func(context.Context, int64, domain.OfferStatus, domain.OfferStatus) error
	setCodeFn        func(context.Context, int64, string) error
	updClaimFn       func(context.Context, int64, domain.ClaimStatus) error
	recordFn         func(context.Context, timeline.Event) error
}

func (s *stubTx) GetOfferForUpdate(ctx context.Context, id int64) (*domain.Offer, error) {
	if s.getOfferFn == nil {
		return nil, nil
	}
	return s.getOfferFn(ctx, id)
}
func (s *stubTx) GetClaim(ctx context.Context, id int64) (*domain.Claim, error) {
	if s.getClaimFn == nil {
		return nil, nil
	}
	return s.getClaimFn(ctx, id)
}
func (s *stubTx) GetClaimForUpdate(ctx context.Context, id int64) (*domain.Claim, error) {
	if s.getClaimLockFn == nil {
		return s.GetClaim(ctx, id)
	}
	return s.getClaimLockFn(ctx, id)
}
func (s *stubTx) GetActiveClaimForUpdate(ctx context.Context, offerID int64) (*domain.Claim, error) {
	if s.getActiveClaimFn == nil {
		return nil, nil
	}
	return s.getActiveClaimFn(ctx, offerID)
}
func (s *stubTx) InsertClaim(ctx context.Context, c *domain.Claim) error {
	if s.insertClaimFn == nil {
		c.ID = 1
		return nil
	}
	return s.insertClaimFn(ctx, c)
}
func (s *stubTx) UpdateOfferStatus(ctx context.Context, id int64, from, to domain.OfferStatus) error {
	if s.updOfferFn == nil {
		return nil
	}
	return s.updOfferFn(ctx, id, from, to)
}
func (s *stubTx) SetOfferPickupCode(ctx context.Context, id int64, code string) error {
	if s.setCodeFn == nil {
		return nil
	}
	return s.setCodeFn(ctx, id, code)
}
func (s *stubTx) UpdateClaimStatus(ctx context.Context, id int64, status domain.ClaimStatus) error {
	if s.updClaimFn == nil {
		return nil
	}
	return s.updClaimFn(ctx, id, status)
}
func (s *stubTx) RecordEvent(ctx context.Context, ev timeline.Event) error {
	if s.recordFn == nil {
		return nil
	}
	return s.recordFn(ctx, ev)
}

type stubGateway struct {
	calls []string
	err   error
}

func (g *stubGateway) Notify(_ context.Context, _ int64, eventType string, _ map[string]any) error {
	g.calls = append(g.calls, eventType)
	return g.err
}

func newService(tx *stubTx, gw *stubGateway, conflicts prometheus.Counter) *claims.Service {
	return claims.NewService(&stubRepo{tx: tx}, offers.NewMachine(), gw, conflicts, logx.Nop(), 3*time.Second)
}

func availableOffer() *domain.Offer {
	return &domain.Offer{
		ID:      7,
		DonorID: 100,
		Status:  domain.OfferAvailable,
	}
}

func TestService_Claim_Success(t *testing.T) {
	t.Parallel()

	var insertedClaim *domain.Claim
	var recorded *timeline.Event

	tx := &stubTx{
		getOfferFn: func(_ context.Context, id int64) (*domain.Offer, error) {
			require.Equal(t, int64(7), id)
			return availableOffer(), nil
		},
		insertClaimFn: func(_ context.Context, c *domain.Claim) error {
			c.ID = 55
			insertedClaim = c
			return nil
		},
		updOfferFn: func(_ context.Context, id int64, from, to domain.OfferStatus) error {
			require.Equal(t, int64(7), id)
			require.Equal(t, domain.OfferAvailable, from)
			require.Equal(t, domain.OfferClaimed, to)
			return nil
		},
		recordFn: func(_ context.Context, ev timeline.Event) error {
			recorded = &ev
			return nil
		},
	}
	gw := &stubGateway{}

	svc := newService(tx, gw, nil)
	claim, err := svc.Claim(context.Background(), 7, 200, nil)

	require.NoError(t, err)
	require.Equal(t, int64(55), claim.ID)
	require.Equal(t, int64(7), claim.OfferID)
	require.Equal(t, int64(200), claim.ReceiverID)
	require.Equal(t, domain.ClaimActive, claim.Status)
	require.False(t, claim.ClaimedAt.IsZero())

	require.NotNil(t, insertedClaim)
	require.NotNil(t, recorded)
	require.Equal(t, timeline.EventOfferClaimed, recorded.EventType)
	require.Equal(t, "receiver:200", recorded.Actor)
	require.Equal(t, []string{"offer_claimed"}, gw.calls)
}

func TestService_Claim_NotFound(t *testing.T) {
	t.Parallel()

	svc := newService(&stubTx{}, &stubGateway{}, nil)
	_, err := svc.Claim(context.Background(), 999, 200, nil)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_Claim_SelfClaimAlwaysRejected(t *testing.T) {
	t.Parallel()

	// self claiming is rejected before any status check
	for _, status := range []domain.OfferStatus{
		domain.OfferAvailable, domain.OfferClaimed, domain.OfferExpired,
	} {
		tx := &stubTx{
			getOfferFn: func(context.Context, int64) (*domain.Offer, error) {
				o := availableOffer()
				o.Status = status
				return o, nil
			},
		}
		svc := newService(tx, &stubGateway{}, nil)
		_, err := svc.Claim(context.Background(), 7, 100, nil) // donor id
		require.ErrorIs(t, err, apperr.ErrSelfClaim, "status %s", status)
	}
}

func TestService_Claim_AlreadyClaimed(t *testing.T) {
	t.Parallel()

	tx := &stubTx{
		getOfferFn: func(context.Context, int64) (*domain.Offer, error) {
			o := availableOffer()
			o.Status = domain.OfferClaimed
			return o, nil
		},
	}
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_claim_conflicts_total"})

	svc := newService(tx, &stubGateway{}, conflicts)
	_, err := svc.Claim(context.Background(), 7, 200, nil)

	require.ErrorIs(t, err, apperr.ErrAlreadyClaimed)
	require.Equal(t, float64(1), testutil.ToFloat64(conflicts))
}

func TestService_Claim_ActiveClaimBackstop(t *testing.T) {
	t.Parallel()

	// offer status lagging behind an existing active claim still rejects
	tx := &stubTx{
		getOfferFn: func(context.Context, int64) (*domain.Offer, error) {
			return availableOffer(), nil
		},
		getActiveClaimFn: func(context.Context, int64) (*domain.Claim, error) {
			return &domain.Claim{ID: 1, OfferID: 7, ReceiverID: 150, Status: domain.ClaimActive}, nil
		},
	}
	svc := newService(tx, &stubGateway{}, nil)
	_, err := svc.Claim(context.Background(), 7, 200, nil)
	require.ErrorIs(t, err, apperr.ErrAlreadyClaimed)
}

func TestService_Claim_NotAvailable(t *testing.T) {
	t.Parallel()

	for _, status := range []domain.OfferStatus{
		domain.OfferExpired, domain.OfferCompleted, domain.OfferNotCompleted,
	} {
		tx := &stubTx{
			getOfferFn: func(context.Context, int64) (*domain.Offer, error) {
				o := availableOffer()
				o.Status = status
				return o, nil
			},
		}
		svc := newService(tx, &stubGateway{}, nil)
		_, err := svc.Claim(context.Background(), 7, 200, nil)
		require.ErrorIs(t, err, apperr.ErrOfferNotAvailable, "status %s", status)
	}
}

func TestService_Claim_InvalidIDs(t *testing.T) {
	t.Parallel()

	svc := newService(&stubTx{}, &stubGateway{}, nil)

	_, err := svc.Claim(context.Background(), 0, 200, nil)
	require.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = svc.Claim(context.Background(), 7, -1, nil)
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestService_Claim_NotifyFailureDoesNotFailClaim(t *testing.T) {
	t.Parallel()

	tx := &stubTx{
		getOfferFn: func(context.Context, int64) (*domain.Offer, error) {
			return availableOffer(), nil
		},
	}
	gw := &stubGateway{err: errors.New("broker down")}

	svc := newService(tx, gw, nil)
	claim, err := svc.Claim(context.Background(), 7, 200, nil)

	require.NoError(t, err)
	require.Equal(t, domain.ClaimActive, claim.Status)
	require.Len(t, gw.calls, 1)
}

func activeClaim() *domain.Claim {
	return &domain.Claim{ID: 55, OfferID: 7, ReceiverID: 200, Status: domain.ClaimActive}
}

func TestService_Cancel_Success(t *testing.T) {
	t.Parallel()

	var claimStatus domain.ClaimStatus
	var offerTo domain.OfferStatus

	tx := &stubTx{
		getClaimFn: func(_ context.Context, id int64) (*domain.Claim, error) {
			require.Equal(t, int64(55), id)
			return activeClaim(), nil
		},
		getOfferFn: func(_ context.Context, id int64) (*domain.Offer, error) {
			require.Equal(t, int64(7), id)
			o := availableOffer()
			o.Status = domain.OfferClaimed
			return o, nil
		},
		updClaimFn: func(_ context.Context, id int64, status domain.ClaimStatus) error {
			require.Equal(t, int64(55), id)
			claimStatus = status
			return nil
		},
		updOfferFn: func(_ context.Context, id int64, from, to domain.OfferStatus) error {
			require.Equal(t, domain.OfferClaimed, from)
			offerTo = to
			return nil
		},
	}
	gw := &stubGateway{}

	svc := newService(tx, gw, nil)
	err := svc.Cancel(context.Background(), 55, 200)

	require.NoError(t, err)
	require.Equal(t, domain.ClaimCancelled, claimStatus)
	require.Equal(t, domain.OfferAvailable, offerTo)
	require.Equal(t, []string{"claim_cancelled"}, gw.calls)
}

func TestService_Cancel_NotFound(t *testing.T) {
	t.Parallel()

	svc := newService(&stubTx{}, &stubGateway{}, nil)
	err := svc.Cancel(context.Background(), 55, 200)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_Cancel_Unauthorized(t *testing.T) {
	t.Parallel()

	tx := &stubTx{
		getClaimFn: func(context.Context, int64) (*domain.Claim, error) {
			return activeClaim(), nil
		},
	}
	svc := newService(tx, &stubGateway{}, nil)
	err := svc.Cancel(context.Background(), 55, 999)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestService_Cancel_NotActive(t *testing.T) {
	t.Parallel()

	tx := &stubTx{
		getClaimFn: func(context.Context, int64) (*domain.Claim, error) {
			c := activeClaim()
			return c, nil
		},
		getOfferFn: func(context.Context, int64) (*domain.Offer, error) {
			o := availableOffer()
			o.Status = domain.OfferClaimed
			return o, nil
		},
		getClaimLockFn: func(context.Context, int64) (*domain.Claim, error) {
			c := activeClaim()
			c.Status = domain.ClaimCancelled // changed between peek and lock
			return c, nil
		},
	}
	svc := newService(tx, &stubGateway{}, nil)
	err := svc.Cancel(context.Background(), 55, 200)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestService_Claim_WithConfirmedWindow(t *testing.T) {
	t.Parallel()

	var insertedClaim *domain.Claim
	tx := &stubTx{
		getOfferFn: func(context.Context, int64) (*domain.Offer, error) {
			return availableOffer(), nil
		},
		insertClaimFn: func(_ context.Context, c *domain.Claim) error {
			c.ID = 55
			insertedClaim = c
			return nil
		},
	}
	svc := newService(tx, &stubGateway{}, nil)

	window := &domain.PickupWindow{
		Date:  time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		Start: 14 * 60,
		End:   15 * 60,
	}
	_, err := svc.Claim(context.Background(), 7, 200, window)
	require.NoError(t, err)
	require.NotNil(t, insertedClaim.ConfirmedWindow)
	require.Equal(t, *window, *insertedClaim.ConfirmedWindow)
}

func TestService_Claim_InvalidWindowRejected(t *testing.T) {
	t.Parallel()

	svc := newService(&stubTx{}, &stubGateway{}, nil)

	window := &domain.PickupWindow{
		Date:  time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		Start: 15 * 60,
		End:   14 * 60, // ends before it starts
	}
	_, err := svc.Claim(context.Background(), 7, 200, window)
	require.ErrorIs(t, err, apperr.ErrInvalid)
}
