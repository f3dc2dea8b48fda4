package offers

import (
	"fmt"

	"github.com/mealbridge/service-surplus/internal/apperr"
	"github.com/mealbridge/service-surplus/internal/domain"
)

// transitions is the full offer status table. Anything not listed here is
// rejected; terminal statuses have no outgoing edges at all.
var transitions = map[domain.OfferStatus][]domain.OfferStatus{
	domain.OfferAvailable: {domain.OfferClaimed, domain.OfferExpired},
	domain.OfferClaimed:   {domain.OfferAvailable, domain.OfferReadyForPickup, domain.OfferExpired},
	domain.OfferReadyForPickup: {
		domain.OfferCompleted, domain.OfferNotCompleted,
	},
}

// Machine validates offer status transitions against the lifecycle table.
type Machine struct{}

// NewMachine creates a Machine.
func NewMachine() *Machine {
	return &Machine{}
}

// Check returns nil if moving from `from` to `to` is permitted.
func (Machine) Check(from, to domain.OfferStatus) error {
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("offer transition %s -> %s: %w", from, to, apperr.ErrInvalidTransition)
}
