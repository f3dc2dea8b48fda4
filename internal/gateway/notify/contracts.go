package notify

import "context"

// List of notification event types
const (
	EventOfferClaimed    = "offer_claimed"
	EventClaimCancelled  = "claim_cancelled"
	EventReadyForPickup  = "ready_for_pickup"
	EventPickupConfirmed = "pickup_confirmed"
	EventPickupMissed    = "pickup_missed"
	EventOfferExpired    = "offer_expired"
)

// Gateway delivers user notifications. Delivery is best-effort: callers log
// failures and never let them affect a committed state transition.
type Gateway interface {
	Notify(ctx context.Context, userID int64, eventType string, payload map[string]any) error
}
