package handlers

import (
	"encoding/json"
	"net/http"

	"tradeledger/internal/middleware"
	"tradeledger/internal/models"
	"tradeledger/internal/services"
	"tradeledger/internal/validator"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListTradingWallets(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	// Touching the listing lazily provisions the demo wallet.
	if _, err := h.tradingSvc.EnsureWallet(r.Context(), userID, models.WalletDemo); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load trading wallets")
		return
	}
	wallets, err := h.trading.ListByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load trading wallets")
		return
	}
	respondJSON(w, http.StatusOK, wallets)
}

type placeOrderRequest struct {
	WalletType   string `json:"wallet_type"`
	CurrencyPair string `json:"currency_pair"`
	OrderType    string `json:"order_type"`
	Side         string `json:"side"`
	Quantity     string `json:"quantity"`
	Price        string `json:"price"`
	StopLoss     string `json:"stop_loss"`
	TakeProfit   string `json:"take_profit"`
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	walletType := models.TradingWalletType(req.WalletType)
	if walletType != models.WalletDemo && walletType != models.WalletLive {
		respondError(w, http.StatusBadRequest, "invalid wallet_type")
		return
	}
	if err := validator.ValidatePair(req.CurrencyPair); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	orderType := models.OrderType(req.OrderType)
	switch orderType {
	case models.OrderMarket, models.OrderLimit, models.OrderStop, models.OrderStopLimit:
	default:
		respondError(w, http.StatusBadRequest, "invalid order_type")
		return
	}
	side := models.TradeSide(req.Side)
	if side != models.SideBuy && side != models.SideSell {
		respondError(w, http.StatusBadRequest, "invalid side")
		return
	}
	quantity, err := parsePositiveDecimal(req.Quantity)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity")
		return
	}
	price, err := parseOptionalDecimal(req.Price)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_price")
		return
	}
	stopLoss, err := parseOptionalDecimal(req.StopLoss)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_stop_loss")
		return
	}
	takeProfit, err := parseOptionalDecimal(req.TakeProfit)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_take_profit")
		return
	}
	if _, err := h.tradingSvc.EnsureWallet(r.Context(), userID, walletType); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load trading wallet")
		return
	}
	order, err := h.tradingSvc.PlaceOrder(r.Context(), services.PlaceOrderRequest{
		UserID:       userID,
		WalletType:   walletType,
		CurrencyPair: req.CurrencyPair,
		OrderType:    orderType,
		Side:         side,
		Quantity:     quantity,
		Price:        price,
		StopLoss:     stopLoss,
		TakeProfit:   takeProfit,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.tradingSvc.CancelOrder(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(models.OrderCancelled)})
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := parsePagination(r)
	orders, err := h.orders.ListByUser(r.Context(), userID, models.OrderStatus(r.URL.Query().Get("status")), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load orders")
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handler) ListPositions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := parsePagination(r)
	positions, err := h.positions.ListByUser(r.Context(), userID, models.PositionStatus(r.URL.Query().Get("status")), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load positions")
		return
	}
	respondJSON(w, http.StatusOK, positions)
}

type closePositionRequest struct {
	ExitPrice string `json:"exit_price"`
}

func (h *Handler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req closePositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	exitPrice, err := parsePositiveDecimal(req.ExitPrice)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_price")
		return
	}
	result, err := h.tradingSvc.ClosePosition(r.Context(), services.ClosePositionRequest{
		UserID:     userID,
		PositionID: chi.URLParam(r, "id"),
		ExitPrice:  exitPrice,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"position":    result.Position,
		"profit_loss": result.ProfitLoss,
	})
}
