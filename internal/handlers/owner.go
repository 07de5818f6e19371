package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/evanofslack/go-dealer/internal/auth"
	"github.com/evanofslack/go-dealer/internal/chain"
	"github.com/evanofslack/go-dealer/internal/services"
	"github.com/go-chi/chi/v5"
)

type OwnerHandler struct {
	gateway services.OwnerGateway
}

func NewOwnerHandler(gateway services.OwnerGateway) *OwnerHandler {
	return &OwnerHandler{
		gateway: gateway,
	}
}

func (h *OwnerHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/holecards", h.GetHoleCards)

	return r
}

// GetHoleCards returns the caller's own hole cards. The seat is resolved
// from the session address against live chain state; no request parameter
// can select a different seat.
func (h *OwnerHandler) GetHoleCards(w http.ResponseWriter, r *http.Request) {
	address, ok := auth.GetAddressFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid session token")
		return
	}

	tableID := r.URL.Query().Get("tableId")
	handID := r.URL.Query().Get("handId")
	if tableID == "" || handID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_PARAMS", "tableId and handId are required")
		return
	}

	holeCards, err := h.gateway.HoleCardsFor(r.Context(), address, tableID, handID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrChainUnavailable):
			writeErrorResponse(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "chain collaborator not configured")
		case errors.Is(err, chain.ErrRPC):
			writeErrorResponse(w, http.StatusServiceUnavailable, "CHAIN_ERROR", "failed to read chain state")
		case errors.Is(err, services.ErrNotSeatOwner):
			writeErrorResponse(w, http.StatusForbidden, "NOT_SEAT_OWNER", "address does not own a seat at this table")
		case errors.Is(err, services.ErrHoleCardsNotFound):
			writeErrorResponse(w, http.StatusNotFound, "HOLECARDS_NOT_FOUND", "no hole cards stored for this hand")
		default:
			slog.Error("Failed to serve hole cards", "error", err)
			writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load hole cards")
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, holeCards)
}
