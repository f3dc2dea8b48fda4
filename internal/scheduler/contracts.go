package scheduler

import (
	"context"
	"time"

	"github.com/mealbridge/service-surplus/internal/domain"
	"github.com/mealbridge/service-surplus/internal/ports/offertx"
)

type offerRepository interface {
	WithTx(ctx context.Context, fn func(tx offertx.Repository) error) error
	ListOfferIDsByStatus(ctx context.Context, status domain.OfferStatus, updatedBefore time.Time) ([]int64, error)
	ListExpiredOfferIDs(ctx context.Context, day time.Time) ([]int64, error)
}

type transitionChecker interface {
	Check(from, to domain.OfferStatus) error
}
