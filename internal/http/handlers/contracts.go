package handlers

import (
	"context"

	"github.com/mealbridge/service-surplus/internal/domain"
	"github.com/mealbridge/service-surplus/internal/service/claims"
	"github.com/mealbridge/service-surplus/internal/service/offers"
	"github.com/mealbridge/service-surplus/internal/service/pickup"
	"github.com/mealbridge/service-surplus/internal/timeline"
)

type offerUsecase interface {
	Create(ctx context.Context, o *domain.Offer, slots []domain.PickupWindow) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Offer, *domain.Claim, error)
	Timeline(ctx context.Context, id int64) ([]timeline.Event, error)
}

// NewOfferUsecase wires an offer Service into an offerUsecase.
func NewOfferUsecase(svc *offers.Service) offerUsecase {
	return svc
}

type claimUsecase interface {
	Claim(ctx context.Context, offerID, receiverID int64, window *domain.PickupWindow) (domain.Claim, error)
	Cancel(ctx context.Context, claimID, receiverID int64) error
}

// NewClaimUsecase wires a claim Service into a claimUsecase.
func NewClaimUsecase(svc *claims.Service) claimUsecase {
	return svc
}

type pickupUsecase interface {
	Confirm(ctx context.Context, offerID int64, code string) error
}

// NewPickupUsecase wires a pickup Service into a pickupUsecase.
func NewPickupUsecase(svc *pickup.Service) pickupUsecase {
	return svc
}
