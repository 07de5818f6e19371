package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/evanofslack/go-dealer/internal/services"
	"github.com/evanofslack/go-dealer/internal/validation"
	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/nonce", h.GetNonce)
	r.Post("/verify", h.Verify)

	return r
}

type verifyRequest struct {
	Address   string `json:"address" validate:"required,eth_addr"`
	Nonce     string `json:"nonce" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

func (h *AuthHandler) GetNonce(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeErrorResponse(w, http.StatusBadRequest, "MISSING_ADDRESS", "address query parameter is required")
		return
	}

	challenge, err := h.authService.GetNonce(r.Context(), address)
	if err != nil {
		if errors.Is(err, services.ErrInvalidAddress) {
			writeErrorResponse(w, http.StatusBadRequest, "INVALID_ADDRESS", "address is not a valid wallet address")
			return
		}
		slog.Error("Failed to issue nonce", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to issue challenge")
		return
	}

	writeJSONResponse(w, http.StatusOK, challenge)
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "MISSING_FIELDS", "invalid JSON body")
		return
	}

	if err := validation.Validate(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "MISSING_FIELDS", err.Error())
		return
	}

	session, err := h.authService.Verify(r.Context(), req.Address, req.Nonce, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidAddress):
			writeErrorResponse(w, http.StatusBadRequest, "INVALID_ADDRESS", "address is not a valid wallet address")
		case errors.Is(err, services.ErrInvalidNonce):
			writeErrorResponse(w, http.StatusBadRequest, "INVALID_NONCE", "nonce is invalid or expired")
		case errors.Is(err, services.ErrInvalidSignature):
			writeErrorResponse(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "signature does not match address")
		default:
			slog.Error("Failed to verify wallet", "error", err)
			writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "verification failed")
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, session)
}
