package offers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mealbridge/service-surplus/internal/apperr"
	"github.com/mealbridge/service-surplus/internal/domain"
	"github.com/mealbridge/service-surplus/internal/logx"
	"github.com/mealbridge/service-surplus/internal/service/offers"
	"github.com/mealbridge/service-surplus/internal/timeline"
)

type stubOfferRepo struct {
	offer  *domain.Offer
	claim  *domain.Claim
	events []timeline.Event

	inserted *domain.Offer
	recorded []timeline.Event

	insertErr error
	recordErr error
}

func (s *stubOfferRepo) InsertOffer(_ context.Context, o *domain.Offer) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	o.ID = 7
	s.inserted = o
	return nil
}

func (s *stubOfferRepo) GetOffer(context.Context, int64) (*domain.Offer, error) {
	return s.offer, nil
}

func (s *stubOfferRepo) GetActiveClaim(context.Context, int64) (*domain.Claim, error) {
	return s.claim, nil
}

func (s *stubOfferRepo) ListEvents(context.Context, int64) ([]timeline.Event, error) {
	return s.events, nil
}

func (s *stubOfferRepo) RecordEvent(_ context.Context, ev timeline.Event) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	s.recorded = append(s.recorded, ev)
	return nil
}

func newService(repo *stubOfferRepo, now time.Time) *offers.Service {
	return offers.NewService(repo, logx.Nop(), 3*time.Second).
		WithClock(func() time.Time { return now })
}

func validOffer() *domain.Offer {
	return &domain.Offer{
		DonorID:     100,
		Description: "bread and pastries",
		Quantity:    4,
		ExpiryDate:  time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
	}
}

func slot(day, startHour, endHour int) domain.PickupWindow {
	return domain.PickupWindow{
		Date:  time.Date(2025, 6, day, 0, 0, 0, 0, time.UTC),
		Start: domain.TimeOfDay(startHour * 60),
		End:   domain.TimeOfDay(endHour * 60),
	}
}

func TestService_Create_Success(t *testing.T) {
	t.Parallel()

	repo := &stubOfferRepo{}
	svc := newService(repo, time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC))

	id, err := svc.Create(context.Background(), validOffer(), []domain.PickupWindow{
		slot(10, 14, 15), slot(11, 9, 10),
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), id)

	require.Equal(t, domain.OfferAvailable, repo.inserted.Status)
	require.NotNil(t, repo.inserted.DefaultWindow)
	require.Equal(t, slot(10, 14, 15), *repo.inserted.DefaultWindow)

	require.Len(t, repo.recorded, 1)
	require.Equal(t, timeline.EventOfferCreated, repo.recorded[0].EventType)
	require.Equal(t, "donor:100", repo.recorded[0].Actor)
}

func TestService_Create_NoSlots(t *testing.T) {
	t.Parallel()

	repo := &stubOfferRepo{}
	svc := newService(repo, time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC))

	_, err := svc.Create(context.Background(), validOffer(), nil)
	require.NoError(t, err)
	require.Nil(t, repo.inserted.DefaultWindow)
}

func TestService_Create_InvalidInput(t *testing.T) {
	t.Parallel()

	svc := newService(&stubOfferRepo{}, time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC))

	for name, mutate := range map[string]func(*domain.Offer){
		"no donor":       func(o *domain.Offer) { o.DonorID = 0 },
		"no description": func(o *domain.Offer) { o.Description = "  " },
		"zero quantity":  func(o *domain.Offer) { o.Quantity = 0 },
		"no expiry":      func(o *domain.Offer) { o.ExpiryDate = time.Time{} },
		"past expiry": func(o *domain.Offer) {
			o.ExpiryDate = time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
		},
	} {
		o := validOffer()
		mutate(o)
		_, err := svc.Create(context.Background(), o, nil)
		require.ErrorIs(t, err, apperr.ErrInvalid, name)
	}
}

func TestService_Create_OverlappingSlots(t *testing.T) {
	t.Parallel()

	svc := newService(&stubOfferRepo{}, time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC))

	_, err := svc.Create(context.Background(), validOffer(), []domain.PickupWindow{
		slot(10, 14, 16), slot(10, 15, 17),
	})
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestService_Create_TimelineFailureDoesNotFailCreate(t *testing.T) {
	t.Parallel()

	repo := &stubOfferRepo{recordErr: errors.New("insert failed")}
	svc := newService(repo, time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC))

	id, err := svc.Create(context.Background(), validOffer(), nil)
	require.NoError(t, err)
	require.Equal(t, int64(7), id)
}

func TestService_Get(t *testing.T) {
	t.Parallel()

	repo := &stubOfferRepo{
		offer: &domain.Offer{ID: 7, Status: domain.OfferClaimed},
		claim: &domain.Claim{ID: 55, OfferID: 7, Status: domain.ClaimActive},
	}
	svc := newService(repo, time.Now().UTC())

	offer, claim, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), offer.ID)
	require.Equal(t, int64(55), claim.ID)
}

func TestService_Get_NotFound(t *testing.T) {
	t.Parallel()

	svc := newService(&stubOfferRepo{}, time.Now().UTC())

	_, _, err := svc.Get(context.Background(), 7)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_Timeline_FiltersHiddenEvents(t *testing.T) {
	t.Parallel()

	repo := &stubOfferRepo{
		offer: &domain.Offer{ID: 7, Status: domain.OfferAvailable},
		events: []timeline.Event{
			{ID: 1, EventType: timeline.EventOfferCreated, VisibleToUsers: true},
			{ID: 2, EventType: "INTERNAL_RECONCILE", VisibleToUsers: false},
			{ID: 3, EventType: timeline.EventOfferClaimed, VisibleToUsers: true},
		},
	}
	svc := newService(repo, time.Now().UTC())

	events, err := svc.Timeline(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, int64(1), events[0].ID)
	require.Equal(t, int64(3), events[1].ID)
}

func TestService_Timeline_NotFound(t *testing.T) {
	t.Parallel()

	svc := newService(&stubOfferRepo{}, time.Now().UTC())

	_, err := svc.Timeline(context.Background(), 7)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
