package offers

import (
	"context"

	"github.com/mealbridge/service-surplus/internal/domain"
	"github.com/mealbridge/service-surplus/internal/timeline"
)

type offerRepository interface {
	InsertOffer(ctx context.Context, o *domain.Offer) error
	GetOffer(ctx context.Context, id int64) (*domain.Offer, error)
	GetActiveClaim(ctx context.Context, offerID int64) (*domain.Claim, error)
	ListEvents(ctx context.Context, offerID int64) ([]timeline.Event, error)
	RecordEvent(ctx context.Context, ev timeline.Event) error
}
