package pickup

import (
	"context"

	"github.com/mealbridge/service-surplus/internal/domain"
	"github.com/mealbridge/service-surplus/internal/ports/offertx"
)

type pickupRepository interface {
	WithTx(ctx context.Context, fn func(tx offertx.Repository) error) error
}

type transitionChecker interface {
	Check(from, to domain.OfferStatus) error
}
