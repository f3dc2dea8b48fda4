package handlers

import "github.com/mealbridge/service-surplus/internal/domain"

type slotDTO struct {
	Date  string `json:"date"`       // YYYY-MM-DD
	Start string `json:"start_time"` // HH:MM
	End   string `json:"end_time"`   // HH:MM
}

type createOfferRequest struct {
	DonorID     int64     `json:"donor_id"`
	Description string    `json:"description"`
	Quantity    int       `json:"quantity"`
	ExpiryDate  string    `json:"expiry_date"` // YYYY-MM-DD
	PickupSlots []slotDTO `json:"pickup_slots,omitempty"`
}

type offerDTO struct {
	ID            int64              `json:"id"`
	DonorID       int64              `json:"donor_id"`
	Description   string             `json:"description"`
	Quantity      int                `json:"quantity"`
	ExpiryDate    string             `json:"expiry_date"`
	Status        domain.OfferStatus `json:"status"`
	DefaultWindow *slotDTO           `json:"default_pickup_window,omitempty"`
	CreatedAt     string             `json:"created_at"`
}

type claimDTO struct {
	ID              int64              `json:"id"`
	OfferID         int64              `json:"offer_id"`
	ReceiverID      int64              `json:"receiver_id"`
	Status          domain.ClaimStatus `json:"status"`
	ClaimedAt       string             `json:"claimed_at"`
	ConfirmedWindow *slotDTO           `json:"confirmed_pickup_window,omitempty"`
}

type offerResponse struct {
	Offer offerDTO  `json:"offer"`
	Claim *claimDTO `json:"active_claim,omitempty"`
}

type claimOfferRequest struct {
	ReceiverID int64    `json:"receiver_id"`
	PickupSlot *slotDTO `json:"pickup_slot,omitempty"`
}

type cancelClaimRequest struct {
	ReceiverID int64 `json:"receiver_id"`
}

type confirmPickupRequest struct {
	Code string `json:"code"`
}

type eventDTO struct {
	EventType string `json:"event_type"`
	Actor     string `json:"actor"`
	OldStatus string `json:"old_status,omitempty"`
	NewStatus string `json:"new_status"`
	Details   string `json:"details,omitempty"`
	CreatedAt string `json:"created_at"`
}
