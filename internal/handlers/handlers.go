package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"tradeledger/internal/auth"
	"tradeledger/internal/services"
	"tradeledger/internal/websocket"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError maps service sentinels to stable error codes; anything
// unrecognized is a 500.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, "invalid_amount")
	case errors.Is(err, services.ErrInsufficientFunds):
		respondError(w, http.StatusBadRequest, "insufficient_funds")
	case errors.Is(err, services.ErrInsufficientLockedFunds):
		respondError(w, http.StatusBadRequest, "insufficient_locked_funds")
	case errors.Is(err, services.ErrInsufficientMargin):
		respondError(w, http.StatusBadRequest, "insufficient_margin")
	case errors.Is(err, services.ErrInvalidLeverage):
		respondError(w, http.StatusBadRequest, "invalid_leverage")
	case errors.Is(err, services.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity")
	case errors.Is(err, services.ErrInvalidPrice):
		respondError(w, http.StatusBadRequest, "invalid_price")
	case errors.Is(err, services.ErrCurrencyMismatch):
		respondError(w, http.StatusBadRequest, "currency_mismatch")
	case errors.Is(err, services.ErrSameWalletTransfer):
		respondError(w, http.StatusBadRequest, "same_wallet_transfer")
	case errors.Is(err, services.ErrWalletInactive):
		respondError(w, http.StatusBadRequest, "wallet_inactive")
	case errors.Is(err, services.ErrAlreadyClosed):
		respondError(w, http.StatusConflict, "position_already_closed")
	case errors.Is(err, services.ErrInvalidState):
		respondError(w, http.StatusConflict, "invalid_state")
	case errors.Is(err, services.ErrDuplicateReference):
		respondError(w, http.StatusConflict, "duplicate_reference")
	case errors.Is(err, services.ErrDefaultWalletExists):
		respondError(w, http.StatusConflict, "default_wallet_exists")
	case errors.Is(err, services.ErrUnauthorizedWallet), errors.Is(err, services.ErrUnauthorizedEntity):
		respondError(w, http.StatusForbidden, "access_denied")
	case isNotFound(err):
		respondError(w, http.StatusNotFound, "not_found")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error")
	}
}

// WSUpdates upgrades to a websocket for wallet and trade events. The token
// travels as a query parameter because browsers cannot set headers here.
func (h *Handler) WSUpdates(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	websocket.ServeWS(w, r, h.hub, claims.UserID)
}
