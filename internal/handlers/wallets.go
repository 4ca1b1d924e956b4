package handlers

import (
	"encoding/json"
	"net/http"

	"tradeledger/internal/middleware"
	"tradeledger/internal/models"
	"tradeledger/internal/money"
	"tradeledger/internal/services"
	"tradeledger/internal/validator"

	"github.com/go-chi/chi/v5"
)

type createWalletRequest struct {
	Currency     string `json:"currency"`
	CurrencyType string `json:"currency_type"`
	IsDefault    bool   `json:"is_default"`
}

func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validator.ValidateCurrency(req.Currency); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	currencyType := models.CurrencyType(req.CurrencyType)
	if currencyType != models.CurrencyFiat && currencyType != models.CurrencyCrypto {
		respondError(w, http.StatusBadRequest, "invalid currency_type")
		return
	}
	wallet, err := h.walletSvc.CreateWallet(r.Context(), services.CreateWalletRequest{
		UserID:       userID,
		Currency:     req.Currency,
		CurrencyType: currencyType,
		IsDefault:    req.IsDefault,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, wallet)
}

func (h *Handler) ListWallets(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	wallets, err := h.wallets.ListByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load wallets")
		return
	}
	normalized := make([]map[string]any, 0, len(wallets))
	for _, wallet := range wallets {
		normalized = append(normalized, walletView(wallet))
	}
	respondJSON(w, http.StatusOK, normalized)
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	wallet, err := h.wallets.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "wallet not found")
		return
	}
	if wallet.UserID != userID {
		respondError(w, http.StatusForbidden, "access denied")
		return
	}
	respondJSON(w, http.StatusOK, walletView(wallet))
}

type amountRequest struct {
	Amount      string `json:"amount"`
	Fee         string `json:"fee"`
	Description string `json:"description"`
	ReferenceID string `json:"reference_id"`
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.mutateWallet(w, r, func(userID, walletID string, req amountRequest, amount, fee int64) (models.WalletTransaction, error) {
		return h.walletSvc.Deposit(r.Context(), services.DepositRequest{
			UserID:      userID,
			WalletID:    walletID,
			AmountMinor: amount,
			FeeMinor:    fee,
			Description: req.Description,
			ReferenceID: req.ReferenceID,
		})
	})
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.mutateWallet(w, r, func(userID, walletID string, req amountRequest, amount, fee int64) (models.WalletTransaction, error) {
		return h.walletSvc.Withdraw(r.Context(), services.WithdrawRequest{
			UserID:      userID,
			WalletID:    walletID,
			AmountMinor: amount,
			FeeMinor:    fee,
			Description: req.Description,
			ReferenceID: req.ReferenceID,
		})
	})
}

func (h *Handler) LockFunds(w http.ResponseWriter, r *http.Request) {
	h.mutateWallet(w, r, func(userID, walletID string, req amountRequest, amount, _ int64) (models.WalletTransaction, error) {
		return h.walletSvc.LockFunds(r.Context(), services.LockRequest{
			UserID:      userID,
			WalletID:    walletID,
			AmountMinor: amount,
			Reason:      req.Description,
		})
	})
}

func (h *Handler) UnlockFunds(w http.ResponseWriter, r *http.Request) {
	h.mutateWallet(w, r, func(userID, walletID string, req amountRequest, amount, _ int64) (models.WalletTransaction, error) {
		return h.walletSvc.UnlockFunds(r.Context(), services.LockRequest{
			UserID:      userID,
			WalletID:    walletID,
			AmountMinor: amount,
			Reason:      req.Description,
		})
	})
}

func (h *Handler) mutateWallet(w http.ResponseWriter, r *http.Request, apply func(userID, walletID string, req amountRequest, amount, fee int64) (models.WalletTransaction, error)) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amount, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	fee, err := parseFeeMinor(req.Fee)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_fee")
		return
	}
	entry, err := apply(userID, chi.URLParam(r, "id"), req, amount, fee)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, entryView(entry))
}

type transferRequest struct {
	FromWalletID string `json:"from_wallet_id"`
	ToWalletID   string `json:"to_wallet_id"`
	Amount       string `json:"amount"`
	Fee          string `json:"fee"`
	Description  string `json:"description"`
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amount, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	fee, err := parseFeeMinor(req.Fee)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_fee")
		return
	}
	referenceID, err := h.walletSvc.Transfer(r.Context(), services.TransferRequest{
		UserID:       userID,
		FromWalletID: req.FromWalletID,
		ToWalletID:   req.ToWalletID,
		AmountMinor:  amount,
		FeeMinor:     fee,
		Description:  req.Description,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"reference_id": referenceID})
}

// ReconcileWallet compares the stored balance against the ledger replay, so
// drift shows up in operations before it shows up in support tickets.
func (h *Handler) ReconcileWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	report, err := h.walletSvc.Reconcile(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"wallet_id":    report.Wallet.ID,
		"balance":      money.FormatMinor(report.Wallet.Balance),
		"ledger_total": money.FormatMinor(report.LedgerTotalMinor),
		"consistent":   report.Consistent,
	})
}

func (h *Handler) ListWalletTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	walletID := chi.URLParam(r, "id")
	wallet, err := h.wallets.GetByID(r.Context(), walletID)
	if err != nil {
		respondError(w, http.StatusNotFound, "wallet not found")
		return
	}
	if wallet.UserID != userID {
		respondError(w, http.StatusForbidden, "access denied")
		return
	}
	limit, offset := parsePagination(r)
	entries, err := h.ledger.ListByWallet(r.Context(), walletID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load transactions")
		return
	}
	normalized := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		normalized = append(normalized, entryView(entry))
	}
	respondJSON(w, http.StatusOK, normalized)
}

func walletView(wallet models.Wallet) map[string]any {
	return map[string]any{
		"id":                wallet.ID,
		"currency":          wallet.Currency,
		"currency_type":     wallet.CurrencyType,
		"balance":           money.FormatMinor(wallet.Balance),
		"available_balance": money.FormatMinor(wallet.AvailableBalance),
		"locked_balance":    money.FormatMinor(wallet.LockedBalance),
		"is_default":        wallet.IsDefault,
		"created_at":        wallet.CreatedAt,
	}
}

func entryView(entry models.WalletTransaction) map[string]any {
	return map[string]any{
		"id":               entry.ID,
		"wallet_id":        entry.WalletID,
		"transaction_type": entry.TransactionType,
		"amount":           money.FormatMinor(entry.AmountMinor),
		"fee":              money.FormatMinor(entry.FeeMinor),
		"status":           entry.Status,
		"reference_id":     entry.ReferenceID,
		"description":      entry.Description,
		"created_at":       entry.CreatedAt,
	}
}
