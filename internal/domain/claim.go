package domain

import "time"

// List of possible claim statuses
const (
	ClaimActive       ClaimStatus = "active"
	ClaimCancelled    ClaimStatus = "cancelled"
	ClaimCompleted    ClaimStatus = "completed"
	ClaimNotCompleted ClaimStatus = "not_completed"
)

// ClaimStatus is the lifecycle status of a receiver's claim.
type ClaimStatus string

var allowedClaimStatuses = [...]ClaimStatus{
	ClaimActive, ClaimCancelled, ClaimCompleted, ClaimNotCompleted,
}

// Valid checks if the ClaimStatus is valid
func (s ClaimStatus) Valid() bool {
	for _, v := range allowedClaimStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Claim - a receiver's reservation against one offer.
// At most one claim per offer is active at any instant.
type Claim struct {
	ID              int64
	OfferID         int64
	ReceiverID      int64
	Status          ClaimStatus
	ClaimedAt       time.Time
	ConfirmedWindow *PickupWindow // slot agreed with the donor, nil until confirmed
}
