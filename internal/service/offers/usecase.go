package offers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mealbridge/service-surplus/internal/apperr"
	"github.com/mealbridge/service-surplus/internal/domain"
	"github.com/mealbridge/service-surplus/internal/logx"
	"github.com/mealbridge/service-surplus/internal/timeline"
)

// Service serves donor-facing offer operations: posting a new offer and
// reading an offer back together with its claim and timeline.
type Service struct {
	repo             offerRepository
	logger           logx.Logger
	operationTimeout time.Duration
	now              func() time.Time
}

// NewService creates an offer Service.
func NewService(repo offerRepository, logger logx.Logger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{
		repo:             repo,
		logger:           logger,
		operationTimeout: timeout,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service's time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Create validates and stores a new offer. The first proposed slot becomes
// the offer's default pickup window; the rest are candidates the receiver
// may confirm instead when claiming.
func (s *Service) Create(ctx context.Context, o *domain.Offer, slots []domain.PickupWindow) (int64, error) {
	if err := s.validate(o); err != nil {
		return 0, err
	}
	if err := domain.ValidateSlots(slots); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.operationTimeout)
	defer cancel()

	o.Status = domain.OfferAvailable
	if o.DefaultWindow == nil && len(slots) > 0 {
		w := slots[0]
		o.DefaultWindow = &w
	}

	if err := s.repo.InsertOffer(ctx, o); err != nil {
		return 0, err
	}

	// creation has no transition tx; a lost audit row must not undo the insert
	ev := timeline.Transition(o.ID, timeline.EventOfferCreated,
		fmt.Sprintf("donor:%d", o.DonorID), "", domain.OfferAvailable, "offer posted")
	if err := s.repo.RecordEvent(ctx, ev); err != nil {
		s.logger.Error("timeline record failed",
			logx.String("event_type", timeline.EventOfferCreated),
			logx.Int64("offer_id", o.ID),
			logx.Any("err", err),
		)
	}

	s.logger.Info("offer created",
		logx.String("event", "offer_created"),
		logx.Int64("offer_id", o.ID),
		logx.Int64("donor_id", o.DonorID),
	)
	return o.ID, nil
}

// Get returns the offer and its active claim, if any.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Offer, *domain.Claim, error) {
	if id <= 0 {
		return nil, nil, apperr.ErrInvalid
	}

	ctx, cancel := context.WithTimeout(ctx, s.operationTimeout)
	defer cancel()

	offer, err := s.repo.GetOffer(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if offer == nil {
		return nil, nil, apperr.ErrNotFound
	}

	claim, err := s.repo.GetActiveClaim(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return offer, claim, nil
}

// Timeline returns the offer's user-visible audit trail, oldest first.
func (s *Service) Timeline(ctx context.Context, id int64) ([]timeline.Event, error) {
	if id <= 0 {
		return nil, apperr.ErrInvalid
	}

	ctx, cancel := context.WithTimeout(ctx, s.operationTimeout)
	defer cancel()

	offer, err := s.repo.GetOffer(ctx, id)
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, apperr.ErrNotFound
	}

	events, err := s.repo.ListEvents(ctx, id)
	if err != nil {
		return nil, err
	}

	visible := make([]timeline.Event, 0, len(events))
	for _, ev := range events {
		if ev.VisibleToUsers {
			visible = append(visible, ev)
		}
	}
	return visible, nil
}

func (s *Service) validate(o *domain.Offer) error {
	if o == nil || o.DonorID <= 0 {
		return fmt.Errorf("missing donor: %w", apperr.ErrInvalid)
	}
	if strings.TrimSpace(o.Description) == "" {
		return fmt.Errorf("missing description: %w", apperr.ErrInvalid)
	}
	if o.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive: %w", apperr.ErrInvalid)
	}
	if o.ExpiryDate.IsZero() {
		return fmt.Errorf("missing expiry date: %w", apperr.ErrInvalid)
	}
	today := s.now().Truncate(24 * time.Hour)
	if o.ExpiryDate.Before(today) {
		return fmt.Errorf("expiry date already passed: %w", apperr.ErrInvalid)
	}
	return nil
}
