package handlers

import (
	"fmt"
	"time"

	"github.com/mealbridge/service-surplus/internal/domain"
	"github.com/mealbridge/service-surplus/internal/timeline"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

func parseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return d, nil
}

func parseTimeOfDay(s string) (domain.TimeOfDay, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return domain.TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (s slotDTO) toModel() (domain.PickupWindow, error) {
	date, err := parseDate(s.Date)
	if err != nil {
		return domain.PickupWindow{}, err
	}
	start, err := parseTimeOfDay(s.Start)
	if err != nil {
		return domain.PickupWindow{}, err
	}
	end, err := parseTimeOfDay(s.End)
	if err != nil {
		return domain.PickupWindow{}, err
	}
	return domain.PickupWindow{Date: date, Start: start, End: end}, nil
}

func (r createOfferRequest) toModel() (*domain.Offer, []domain.PickupWindow, error) {
	var expiry time.Time
	if r.ExpiryDate != "" {
		d, err := parseDate(r.ExpiryDate)
		if err != nil {
			return nil, nil, err
		}
		expiry = d
	}

	slots := make([]domain.PickupWindow, 0, len(r.PickupSlots))
	for _, s := range r.PickupSlots {
		w, err := s.toModel()
		if err != nil {
			return nil, nil, err
		}
		slots = append(slots, w)
	}

	return &domain.Offer{
		DonorID:     r.DonorID,
		Description: r.Description,
		Quantity:    r.Quantity,
		ExpiryDate:  expiry,
	}, slots, nil
}

func windowToDTO(w *domain.PickupWindow) *slotDTO {
	if w == nil {
		return nil
	}
	return &slotDTO{
		Date:  w.Date.Format(dateLayout),
		Start: w.Start.String(),
		End:   w.End.String(),
	}
}

func offerToDTO(o *domain.Offer) offerDTO {
	return offerDTO{
		ID:            o.ID,
		DonorID:       o.DonorID,
		Description:   o.Description,
		Quantity:      o.Quantity,
		ExpiryDate:    o.ExpiryDate.Format(dateLayout),
		Status:        o.Status,
		DefaultWindow: windowToDTO(o.DefaultWindow),
		CreatedAt:     o.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func claimToDTO(c *domain.Claim) *claimDTO {
	if c == nil {
		return nil
	}
	return &claimDTO{
		ID:              c.ID,
		OfferID:         c.OfferID,
		ReceiverID:      c.ReceiverID,
		Status:          c.Status,
		ClaimedAt:       c.ClaimedAt.UTC().Format(time.RFC3339),
		ConfirmedWindow: windowToDTO(c.ConfirmedWindow),
	}
}

func eventsToDTO(events []timeline.Event) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		out = append(out, eventDTO{
			EventType: ev.EventType,
			Actor:     ev.Actor,
			OldStatus: string(ev.OldStatus),
			NewStatus: string(ev.NewStatus),
			Details:   ev.Details,
			CreatedAt: ev.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
