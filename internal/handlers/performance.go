package handlers

import (
	"net/http"

	"tradeledger/internal/middleware"
	"tradeledger/internal/models"
)

func (h *Handler) PerformanceSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	summary, err := h.performance.Summary(r.Context(), userID, walletTypeParam(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to compute summary")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *Handler) PerformanceMetrics(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	metrics, err := h.performance.Metrics(r.Context(), userID, walletTypeParam(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to compute metrics")
		return
	}
	respondJSON(w, http.StatusOK, metrics)
}

func walletTypeParam(r *http.Request) models.TradingWalletType {
	if r.URL.Query().Get("wallet_type") == string(models.WalletLive) {
		return models.WalletLive
	}
	return models.WalletDemo
}
