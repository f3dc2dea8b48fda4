package offertx

import (
	"context"

	"github.com/mealbridge/service-surplus/internal/domain"
	"github.com/mealbridge/service-surplus/internal/timeline"
)

// Repository is the transactional surface of the offer store. Every method
// runs inside one transaction; row locks taken by the *ForUpdate getters are
// held until the transaction commits or rolls back.
type Repository interface {
	// GetOfferForUpdate loads an offer and locks its row. Returns nil when absent.
	GetOfferForUpdate(ctx context.Context, id int64) (*domain.Offer, error)
	// GetClaim loads a claim by id without locking. Returns nil when absent.
	GetClaim(ctx context.Context, id int64) (*domain.Claim, error)
	// GetClaimForUpdate loads a claim by id and locks its row. Returns nil when absent.
	GetClaimForUpdate(ctx context.Context, id int64) (*domain.Claim, error)
	// GetActiveClaimForUpdate loads the offer's active claim, if any, and locks it.
	GetActiveClaimForUpdate(ctx context.Context, offerID int64) (*domain.Claim, error)
	// InsertClaim stores a new claim and fills in its generated id.
	InsertClaim(ctx context.Context, c *domain.Claim) error
	// UpdateOfferStatus moves an offer from one status to another. The update
	// is conditional on the current status still matching `from`.
	UpdateOfferStatus(ctx context.Context, id int64, from, to domain.OfferStatus) error
	// SetOfferPickupCode stores the verification code, only if none is set yet.
	SetOfferPickupCode(ctx context.Context, id int64, code string) error
	// UpdateClaimStatus moves a claim to a new status.
	UpdateClaimStatus(ctx context.Context, id int64, status domain.ClaimStatus) error
	// RecordEvent appends a timeline event in the same transaction.
	RecordEvent(ctx context.Context, ev timeline.Event) error
}
