package handlers

import (
	"errors"
	"net/http"

	"github.com/mealbridge/service-surplus/internal/apperr"
	"github.com/mealbridge/service-surplus/internal/domain"
	"github.com/mealbridge/service-surplus/internal/logx"
)

// ClaimsHandler serves the endpoints that drive the offer lifecycle:
// claiming, cancelling and pickup confirmation.
type ClaimsHandler struct {
	claims claimUsecase
	pickup pickupUsecase
	logger logx.Logger
}

// NewClaimsHandler wires claim and pickup usecases into HTTP handlers.
func NewClaimsHandler(claims claimUsecase, pickup pickupUsecase, logger logx.Logger) *ClaimsHandler {
	return &ClaimsHandler{claims: claims, pickup: pickup, logger: logger}
}

// Claim handles POST /offers/{id}/claim.
func (h *ClaimsHandler) Claim(w http.ResponseWriter, r *http.Request) {
	offerID, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	var req claimOfferRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	var window *domain.PickupWindow
	if req.PickupSlot != nil {
		w2, convErr := req.PickupSlot.toModel()
		if convErr != nil {
			writeError(h.logger, w, r, http.StatusBadRequest, convErr.Error())
			return
		}
		window = &w2
	}

	claim, err := h.claims.Claim(r.Context(), offerID, req.ReceiverID, window)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusCreated, claimToDTO(&claim))
	case errors.Is(err, apperr.ErrInvalid):
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrSelfClaim):
		writeError(h.logger, w, r, http.StatusForbidden, "donors cannot claim their own offers")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "not found")
	case errors.Is(err, apperr.ErrAlreadyClaimed):
		writeError(h.logger, w, r, http.StatusConflict, "offer already claimed")
	case errors.Is(err, apperr.ErrOfferNotAvailable):
		writeError(h.logger, w, r, http.StatusConflict, "offer no longer available")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// Cancel handles POST /claims/{id}/cancel.
func (h *ClaimsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claimID, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	var req cancelClaimRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	err = h.claims.Cancel(r.Context(), claimID, req.ReceiverID)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, map[string]string{"status": "cancelled"})
	case errors.Is(err, apperr.ErrInvalid):
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrUnauthorized):
		writeError(h.logger, w, r, http.StatusForbidden, "claim belongs to another receiver")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "not found")
	case errors.Is(err, apperr.ErrInvalidTransition):
		writeError(h.logger, w, r, http.StatusConflict, "claim is no longer active")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// ConfirmPickup handles POST /offers/{id}/pickup/confirm.
func (h *ClaimsHandler) ConfirmPickup(w http.ResponseWriter, r *http.Request) {
	offerID, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	var req confirmPickupRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	err = h.pickup.Confirm(r.Context(), offerID, req.Code)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, map[string]string{"status": "completed"})
	case errors.Is(err, apperr.ErrInvalid):
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "not found")
	case errors.Is(err, apperr.ErrInvalidTransition):
		writeError(h.logger, w, r, http.StatusConflict, "offer is not awaiting pickup")
	case errors.Is(err, apperr.ErrCodeMismatch):
		writeError(h.logger, w, r, http.StatusUnprocessableEntity, "verification code mismatch")
	case errors.Is(err, apperr.ErrOutsideWindow):
		writeError(h.logger, w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}
