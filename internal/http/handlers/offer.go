package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/mealbridge/service-surplus/internal/apperr"
	"github.com/mealbridge/service-surplus/internal/logx"
)

// OfferHandler serves HTTP endpoints for offer resources.
type OfferHandler struct {
	uc     offerUsecase
	logger logx.Logger
}

// NewOfferHandler wires an offerUsecase into HTTP handlers.
func NewOfferHandler(uc offerUsecase, logger logx.Logger) *OfferHandler {
	return &OfferHandler{uc: uc, logger: logger}
}

// Create handles POST /offers.
func (h *OfferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOfferRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	offer, slots, err := req.toModel()
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.uc.Create(r.Context(), offer, slots)
	switch {
	case err == nil:
		w.Header().Set("Location", "/offers/"+strconv.FormatInt(id, 10))
		writeJSON(h.logger, w, r, http.StatusCreated, map[string]any{"id": id})
	case errors.Is(err, apperr.ErrInvalid):
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// GetByID handles GET /offers/{id}.
func (h *OfferHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	offer, claim, err := h.uc.Get(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, offerResponse{
			Offer: offerToDTO(offer),
			Claim: claimToDTO(claim),
		})
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "not found")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// Timeline handles GET /offers/{id}/timeline.
func (h *OfferHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	events, err := h.uc.Timeline(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, map[string]any{"events": eventsToDTO(events)})
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "not found")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}
