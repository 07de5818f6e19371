package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/evanofslack/go-dealer/internal/auth"
	"github.com/evanofslack/go-dealer/internal/services"
	"github.com/evanofslack/go-dealer/internal/store"
	"github.com/evanofslack/go-dealer/internal/validation"
	"github.com/go-chi/chi/v5"
)

type DealerHandler struct {
	dealerService *services.DealerService
	apiKeyHash    string
}

func NewDealerHandler(dealerService *services.DealerService, apiKeyHash string) *DealerHandler {
	return &DealerHandler{
		dealerService: dealerService,
		apiKeyHash:    apiKeyHash,
	}
}

func (h *DealerHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Commitments are the published, public half of the commit-reveal.
	r.Get("/commitments", h.GetCommitments)

	// Everything else mutates or exposes secrets and sits behind the
	// operator key when one is configured.
	r.Group(func(r chi.Router) {
		r.Use(h.requireAPIKey)
		r.Post("/deal", h.Deal)
		r.Get("/reveal", h.GetReveal)
		r.Delete("/hand", h.DeleteHand)
	})

	return r
}

type dealRequest struct {
	TableID     string `json:"tableId" validate:"required,decimal_id"`
	HandID      string `json:"handId" validate:"required,decimal_id"`
	SeatIndexes []int  `json:"seatIndexes,omitempty"`
}

type deleteHandRequest struct {
	TableID string `json:"tableId" validate:"required"`
	HandID  string `json:"handId" validate:"required"`
}

// requireAPIKey checks X-Api-Key against the configured bcrypt hash. An
// empty hash disables the gate for closed deployments.
func (h *DealerHandler) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.apiKeyHash == "" {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("X-Api-Key")
		if key == "" || auth.VerifyAPIKey(key, h.apiKeyHash) != nil {
			writeErrorResponse(w, http.StatusUnauthorized, "INVALID_API_KEY", "missing or invalid operator api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *DealerHandler) Deal(w http.ResponseWriter, r *http.Request) {
	var req dealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_PARAMS", "invalid JSON body")
		return
	}
	if err := validation.Validate(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_PARAMS", err.Error())
		return
	}

	result, err := h.dealerService.Deal(r.Context(), req.TableID, req.HandID, req.SeatIndexes)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAlreadyDealt):
			writeErrorResponse(w, http.StatusConflict, "ALREADY_DEALT", "hand has already been dealt")
		case errors.Is(err, services.ErrInvalidParams):
			writeErrorResponse(w, http.StatusBadRequest, "INVALID_PARAMS", err.Error())
		default:
			slog.Error("Deal failed", "table_id", req.TableID, "hand_id", req.HandID, "error", err)
			writeErrorResponse(w, http.StatusInternalServerError, "DEAL_FAILED", "failed to deal hand")
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, result)
}

func (h *DealerHandler) GetCommitments(w http.ResponseWriter, r *http.Request) {
	tableID := r.URL.Query().Get("tableId")
	handID := r.URL.Query().Get("handId")
	if tableID == "" || handID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_PARAMS", "tableId and handId are required")
		return
	}

	result, err := h.dealerService.GetCommitments(r.Context(), tableID, handID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErrorResponse(w, http.StatusNotFound, "NOT_FOUND", "hand has not been dealt")
			return
		}
		slog.Error("Failed to load commitments", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load commitments")
		return
	}

	writeJSONResponse(w, http.StatusOK, result)
}

func (h *DealerHandler) GetReveal(w http.ResponseWriter, r *http.Request) {
	tableID := r.URL.Query().Get("tableId")
	handID := r.URL.Query().Get("handId")
	seatParam := r.URL.Query().Get("seatIndex")
	if tableID == "" || handID == "" || seatParam == "" {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_PARAMS", "tableId, handId and seatIndex are required")
		return
	}
	seatIndex, err := strconv.Atoi(seatParam)
	if err != nil || seatIndex < 0 {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_PARAMS", "seatIndex must be a non-negative integer")
		return
	}

	reveal, err := h.dealerService.GetRevealData(r.Context(), tableID, handID, seatIndex)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErrorResponse(w, http.StatusNotFound, "NOT_FOUND", "no record for that seat")
			return
		}
		slog.Error("Failed to load reveal data", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load reveal data")
		return
	}

	writeJSONResponse(w, http.StatusOK, reveal)
}

func (h *DealerHandler) DeleteHand(w http.ResponseWriter, r *http.Request) {
	var req deleteHandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_PARAMS", "invalid JSON body")
		return
	}
	if err := validation.Validate(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_PARAMS", err.Error())
		return
	}

	deleted, err := h.dealerService.CleanupHand(r.Context(), req.TableID, req.HandID)
	if err != nil {
		slog.Error("Failed to clean up hand", "table_id", req.TableID, "hand_id", req.HandID, "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to clean up hand")
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]int{"deleted": deleted})
}
