package timeline

import (
	"time"

	"github.com/mealbridge/service-surplus/internal/domain"
)

// List of timeline event types
const (
	EventOfferCreated    = "OFFER_CREATED"
	EventOfferClaimed    = "OFFER_CLAIMED"
	EventClaimCancelled  = "CLAIM_CANCELLED"
	EventReadyForPickup  = "READY_FOR_PICKUP"
	EventPickupConfirmed = "PICKUP_CONFIRMED"
	EventPickupMissed    = "PICKUP_MISSED"
	EventDonationExpired = "DONATION_EXPIRED"
)

// ActorSystem marks events produced by the lifecycle sweeps rather than a user.
const ActorSystem = "system"

// Event is a single append-only audit record of an offer's lifecycle.
type Event struct {
	ID             int64
	OfferID        int64
	EventType      string
	Actor          string
	OldStatus      domain.OfferStatus
	NewStatus      domain.OfferStatus
	Details        string
	VisibleToUsers bool
	CreatedAt      time.Time
}

// Transition builds the audit record written alongside every status change.
func Transition(offerID int64, eventType, actor string, from, to domain.OfferStatus, details string) Event {
	return Event{
		OfferID:        offerID,
		EventType:      eventType,
		Actor:          actor,
		OldStatus:      from,
		NewStatus:      to,
		Details:        details,
		VisibleToUsers: true,
	}
}
