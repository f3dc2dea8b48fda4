package pickup

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/mealbridge/service-surplus/internal/apperr"
	"github.com/mealbridge/service-surplus/internal/domain"
	"github.com/mealbridge/service-surplus/internal/gateway/notify"
	"github.com/mealbridge/service-surplus/internal/logx"
	"github.com/mealbridge/service-surplus/internal/ports/offertx"
	"github.com/mealbridge/service-surplus/internal/timeline"
)

// Service verifies pickup codes and completes offers once the handover is
// confirmed by the donor.
type Service struct {
	repo             pickupRepository
	machine          transitionChecker
	gateway          notify.Gateway
	logger           logx.Logger
	earlyTolerance   time.Duration
	lateTolerance    time.Duration
	operationTimeout time.Duration
	now              func() time.Time
}

// NewService creates a pickup Service.
func NewService(
	repo pickupRepository,
	machine transitionChecker,
	gateway notify.Gateway,
	logger logx.Logger,
	earlyTolerance, lateTolerance time.Duration,
	timeout time.Duration,
) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if gateway == nil {
		gateway = notify.NopGateway{}
	}
	return &Service{
		repo:             repo,
		machine:          machine,
		gateway:          gateway,
		logger:           logger,
		earlyTolerance:   earlyTolerance,
		lateTolerance:    lateTolerance,
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

// Confirm validates the submitted verification code against a ready offer
// and, within the current tolerance window, completes the handover: the
// offer and its active claim both move to completed.
func (s *Service) Confirm(ctx context.Context, offerID int64, code string) error {
	if offerID <= 0 || code == "" {
		return apperr.ErrInvalid
	}

	ctx, cancel := context.WithTimeout(ctx, s.operationTimeout)
	defer cancel()

	var receiverID int64
	var donorID int64

	err := s.repo.WithTx(ctx, func(tx offertx.Repository) error {
		offer, err := tx.GetOfferForUpdate(ctx, offerID)
		if err != nil {
			return err
		}
		if offer == nil {
			return apperr.ErrNotFound
		}
		if offer.Status != domain.OfferReadyForPickup {
			return fmt.Errorf("offer %d is %s, not awaiting pickup: %w",
				offerID, offer.Status, apperr.ErrInvalidTransition)
		}
		if offer.PickupCode == "" ||
			subtle.ConstantTimeCompare([]byte(offer.PickupCode), []byte(code)) != 1 {
			return apperr.ErrCodeMismatch
		}

		claim, err := tx.GetActiveClaimForUpdate(ctx, offer.ID)
		if err != nil {
			return err
		}

		window := domain.ResolveWindow(offer, claim)
		decision := domain.EvaluateTolerance(s.now(), window, s.earlyTolerance, s.lateTolerance)
		if !decision.Allowed {
			return outsideWindowError(decision, s.now())
		}

		if err := s.machine.Check(offer.Status, domain.OfferCompleted); err != nil {
			return err
		}
		if err := tx.UpdateOfferStatus(ctx, offer.ID, domain.OfferReadyForPickup, domain.OfferCompleted); err != nil {
			return err
		}
		if claim != nil {
			if err := tx.UpdateClaimStatus(ctx, claim.ID, domain.ClaimCompleted); err != nil {
				return err
			}
			receiverID = claim.ReceiverID
		}

		donorID = offer.DonorID
		return tx.RecordEvent(ctx, timeline.Transition(
			offer.ID, timeline.EventPickupConfirmed, fmt.Sprintf("donor:%d", offer.DonorID),
			domain.OfferReadyForPickup, domain.OfferCompleted,
			fmt.Sprintf("pickup confirmed %s", decision.Reason),
		))
	})
	if err != nil {
		return err
	}

	s.logger.Info("pickup confirmed",
		logx.String("event", "pickup_confirmed"),
		logx.Int64("offer_id", offerID),
		logx.Int64("donor_id", donorID),
	)
	if receiverID != 0 {
		if nErr := s.gateway.Notify(ctx, receiverID, notify.EventPickupConfirmed, map[string]any{
			"offer_id": offerID,
		}); nErr != nil {
			s.logger.Error("notification failed",
				logx.String("event_type", notify.EventPickupConfirmed),
				logx.Int64("user_id", receiverID),
				logx.Any("err", nErr),
			)
		}
	}

	return nil
}

// outsideWindowError surfaces the violated boundary and the distance to it
// so the caller can tell the user when confirmation becomes possible.
func outsideWindowError(d domain.ToleranceDecision, now time.Time) error {
	switch d.Reason {
	case domain.ReasonTooEarly:
		wait := d.EarlyBoundary.Sub(now).Round(time.Minute)
		return fmt.Errorf("%s: allowed from %s (in %s): %w",
			d.Reason, d.EarlyBoundary.Format(time.RFC3339), wait, apperr.ErrOutsideWindow)
	case domain.ReasonTooLate:
		overdue := now.Sub(d.LateBoundary).Round(time.Minute)
		return fmt.Errorf("%s: allowed until %s (%s ago): %w",
			d.Reason, d.LateBoundary.Format(time.RFC3339), overdue, apperr.ErrOutsideWindow)
	default:
		return fmt.Errorf("%s: %w", d.Reason, apperr.ErrOutsideWindow)
	}
}
