package domain

import (
	"fmt"
	"time"

	"github.com/mealbridge/service-surplus/internal/apperr"
)

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
type TimeOfDay int

const minutesPerDay = 24 * 60

// Valid checks if the TimeOfDay is within a single day.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < minutesPerDay
}

// Duration returns the offset from midnight.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t) * time.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// PickupWindow is a concrete pickup slot: a date plus start and end times.
// End earlier than start means the window crosses midnight into the next day.
type PickupWindow struct {
	Date  time.Time // UTC midnight of the slot's date
	Start TimeOfDay
	End   TimeOfDay
}

// Bounds returns the absolute start and end instants of the window.
func (w PickupWindow) Bounds() (time.Time, time.Time) {
	day := w.Date.UTC().Truncate(24 * time.Hour)
	start := day.Add(w.Start.Duration())
	end := day.Add(w.End.Duration())
	if w.End < w.Start {
		end = end.Add(24 * time.Hour)
	}
	return start, end
}

// ResolveWindow picks the authoritative pickup window for an offer:
// the claim's confirmed slot if present, else the donor's default proposal.
func ResolveWindow(offer *Offer, claim *Claim) *PickupWindow {
	if claim != nil && claim.ConfirmedWindow != nil {
		return claim.ConfirmedWindow
	}
	if offer != nil {
		return offer.DefaultWindow
	}
	return nil
}

// ValidateSlots checks a donor's proposed candidate slots: every slot must
// end strictly after it starts on the same day, and no two slots on the
// same date may overlap.
func ValidateSlots(slots []PickupWindow) error {
	for i, s := range slots {
		if s.Date.IsZero() {
			return fmt.Errorf("slot %d: missing date: %w", i, apperr.ErrInvalid)
		}
		if !s.Start.Valid() || !s.End.Valid() {
			return fmt.Errorf("slot %d: time out of range: %w", i, apperr.ErrInvalid)
		}
		if s.End <= s.Start {
			return fmt.Errorf("slot %d: end %s not after start %s: %w", i, s.End, s.Start, apperr.ErrInvalid)
		}
	}
	for i := range slots {
		for j := i + 1; j < len(slots); j++ {
			if !sameDate(slots[i].Date, slots[j].Date) {
				continue
			}
			if slots[i].Start < slots[j].End && slots[j].Start < slots[i].End {
				return fmt.Errorf("slots %d and %d overlap on %s: %w",
					i, j, slots[i].Date.Format("2006-01-02"), apperr.ErrInvalid)
			}
		}
	}
	return nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
