package domain

import "time"

// List of possible offer statuses
const (
	OfferAvailable      OfferStatus = "available"
	OfferClaimed        OfferStatus = "claimed"
	OfferReadyForPickup OfferStatus = "ready_for_pickup"
	OfferCompleted      OfferStatus = "completed"
	OfferNotCompleted   OfferStatus = "not_completed"
	OfferExpired        OfferStatus = "expired"
)

// OfferStatus is the lifecycle status of a surplus offer.
type OfferStatus string

var allowedOfferStatuses = [...]OfferStatus{
	OfferAvailable, OfferClaimed, OfferReadyForPickup,
	OfferCompleted, OfferNotCompleted, OfferExpired,
}

// Valid checks if the OfferStatus is valid
func (s OfferStatus) Valid() bool {
	for _, v := range allowedOfferStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether the status admits no further transition.
func (s OfferStatus) Terminal() bool {
	return s == OfferCompleted || s == OfferNotCompleted || s == OfferExpired
}

// Offer - a posted surplus donation tracked through its pickup lifecycle.
type Offer struct {
	ID            int64
	DonorID       int64
	Description   string
	Quantity      int
	ExpiryDate    time.Time // calendar date, UTC midnight
	Status        OfferStatus
	DefaultWindow *PickupWindow // donor's fallback slot, nil if none proposed
	PickupCode    string        // set once, on entering ready_for_pickup
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
