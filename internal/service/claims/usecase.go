package claims

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mealbridge/service-surplus/internal/apperr"
	"github.com/mealbridge/service-surplus/internal/domain"
	"github.com/mealbridge/service-surplus/internal/gateway/notify"
	"github.com/mealbridge/service-surplus/internal/logx"
	"github.com/mealbridge/service-surplus/internal/ports/offertx"
	"github.com/mealbridge/service-surplus/internal/timeline"
)

// Service - coordinates claim lifecycle: the race-safe claim operation and
// receiver-initiated cancellation.
type Service struct {
	repo             claimRepository
	machine          transitionChecker
	gateway          notify.Gateway
	conflicts        prometheus.Counter
	logger           logx.Logger
	operationTimeout time.Duration
	now              func() time.Time
}

// NewService creates a claim Service.
func NewService(
	repo claimRepository,
	machine transitionChecker,
	gateway notify.Gateway,
	conflicts prometheus.Counter,
	logger logx.Logger,
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
		conflicts:        conflicts,
		logger:           logger,
		operationTimeout: timeout,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// Claim reserves an available offer for a receiver. The offer row is locked
// for the duration of the transaction, so concurrent callers against the
// same offer serialize: exactly one wins, the rest see ErrAlreadyClaimed.
// A non-nil window is the slot the receiver commits to; it takes priority
// over the donor's default when the pickup window is resolved later.
func (s *Service) Claim(ctx context.Context, offerID, receiverID int64, window *domain.PickupWindow) (domain.Claim, error) {
	if offerID <= 0 || receiverID <= 0 {
		return domain.Claim{}, apperr.ErrInvalid
	}
	if window != nil {
		if err := domain.ValidateSlots([]domain.PickupWindow{*window}); err != nil {
			return domain.Claim{}, err
		}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var claim domain.Claim
	var donorID int64

	err := s.repo.WithTx(ctx, func(tx offertx.Repository) error {
		offer, err := tx.GetOfferForUpdate(ctx, offerID)
		if err != nil {
			return err
		}
		if offer == nil {
			return apperr.ErrNotFound
		}
		// donors may never claim their own offers, whatever the status
		if offer.DonorID == receiverID {
			return apperr.ErrSelfClaim
		}

		switch offer.Status {
		case domain.OfferAvailable:
		case domain.OfferClaimed, domain.OfferReadyForPickup:
			return apperr.ErrAlreadyClaimed
		default:
			return apperr.ErrOfferNotAvailable
		}

		existing, err := tx.GetActiveClaimForUpdate(ctx, offer.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.ErrAlreadyClaimed
		}

		if err := s.machine.Check(offer.Status, domain.OfferClaimed); err != nil {
			return err
		}

		claim = domain.Claim{
			OfferID:         offer.ID,
			ReceiverID:      receiverID,
			Status:          domain.ClaimActive,
			ClaimedAt:       s.now(),
			ConfirmedWindow: window,
		}
		if err := tx.InsertClaim(ctx, &claim); err != nil {
			return err
		}
		if err := tx.UpdateOfferStatus(ctx, offer.ID, domain.OfferAvailable, domain.OfferClaimed); err != nil {
			return err
		}

		donorID = offer.DonorID
		return tx.RecordEvent(ctx, timeline.Transition(
			offer.ID, timeline.EventOfferClaimed, actorReceiver(receiverID),
			domain.OfferAvailable, domain.OfferClaimed,
			"offer claimed by receiver",
		))
	})
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyClaimed) && s.conflicts != nil {
			s.conflicts.Inc()
		}
		return domain.Claim{}, err
	}

	s.logger.Info("offer claimed",
		logx.String("event", "offer_claimed"),
		logx.Int64("offer_id", claim.OfferID),
		logx.Int64("claim_id", claim.ID),
		logx.Int64("receiver_id", receiverID),
	)
	s.notify(ctx, donorID, notify.EventOfferClaimed, map[string]any{
		"offer_id": claim.OfferID,
		"claim_id": claim.ID,
	})

	return claim, nil
}

// Cancel releases an active claim and puts the offer back up for grabs.
// This is the only reverse edge in the offer lifecycle.
func (s *Service) Cancel(ctx context.Context, claimID, receiverID int64) error {
	if claimID <= 0 || receiverID <= 0 {
		return apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var offerID, donorID int64

	err := s.repo.WithTx(ctx, func(tx offertx.Repository) error {
		// peek at the claim first so the offer row can be locked before the
		// claim row; every writer takes locks in that order
		peek, err := tx.GetClaim(ctx, claimID)
		if err != nil {
			return err
		}
		if peek == nil {
			return apperr.ErrNotFound
		}
		if peek.ReceiverID != receiverID {
			return apperr.ErrUnauthorized
		}

		offer, err := tx.GetOfferForUpdate(ctx, peek.OfferID)
		if err != nil {
			return err
		}
		if offer == nil {
			return fmt.Errorf("claim %d references missing offer %d", claimID, peek.OfferID)
		}

		claim, err := tx.GetClaimForUpdate(ctx, claimID)
		if err != nil {
			return err
		}
		if claim == nil || claim.Status != domain.ClaimActive {
			return fmt.Errorf("claim %d is not active: %w", claimID, apperr.ErrInvalidTransition)
		}

		if err := s.machine.Check(offer.Status, domain.OfferAvailable); err != nil {
			return err
		}

		if err := tx.UpdateClaimStatus(ctx, claim.ID, domain.ClaimCancelled); err != nil {
			return err
		}
		if err := tx.UpdateOfferStatus(ctx, offer.ID, offer.Status, domain.OfferAvailable); err != nil {
			return err
		}

		offerID, donorID = offer.ID, offer.DonorID
		return tx.RecordEvent(ctx, timeline.Transition(
			offer.ID, timeline.EventClaimCancelled, actorReceiver(receiverID),
			offer.Status, domain.OfferAvailable,
			"claim cancelled by receiver",
		))
	})
	if err != nil {
		return err
	}

	s.logger.Info("claim cancelled",
		logx.String("event", "claim_cancelled"),
		logx.Int64("offer_id", offerID),
		logx.Int64("claim_id", claimID),
		logx.Int64("receiver_id", receiverID),
	)
	s.notify(ctx, donorID, notify.EventClaimCancelled, map[string]any{
		"offer_id": offerID,
		"claim_id": claimID,
	})

	return nil
}

// notify publishes best-effort; a failed publish never fails the transition.
func (s *Service) notify(ctx context.Context, userID int64, eventType string, payload map[string]any) {
	if err := s.gateway.Notify(ctx, userID, eventType, payload); err != nil {
		s.logger.Error("notification failed",
			logx.String("event_type", eventType),
			logx.Int64("user_id", userID),
			logx.Any("err", err),
		)
	}
}

func actorReceiver(id int64) string {
	return fmt.Sprintf("receiver:%d", id)
}
