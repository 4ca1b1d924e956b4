package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"tradeledger/internal/middleware"
	"tradeledger/internal/models"
	"tradeledger/internal/services"

	"github.com/go-chi/chi/v5"
)

type connectAccountRequest struct {
	Provider       string `json:"provider"`
	AccountName    string `json:"account_name"`
	OpeningBalance string `json:"opening_balance"`
}

func (h *Handler) ConnectAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req connectAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Provider == "" || req.AccountName == "" {
		respondError(w, http.StatusBadRequest, "provider and account_name are required")
		return
	}
	openingBalance, err := parseFeeMinor(req.OpeningBalance)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_opening_balance")
		return
	}
	account, err := h.fundingSvc.ConnectAccount(r.Context(), services.ConnectAccountRequest{
		UserID:              userID,
		Provider:            req.Provider,
		AccountName:         req.AccountName,
		OpeningBalanceMinor: openingBalance,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, account)
}

func (h *Handler) ListConnectedAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	accounts, err := h.accounts.ListByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load accounts")
		return
	}
	respondJSON(w, http.StatusOK, accounts)
}

type fundingRequest struct {
	ConnectedAccountID string `json:"connected_account_id"`
	WalletID           string `json:"wallet_id"`
	Amount             string `json:"amount"`
}

func (h *Handler) InitiateDeposit(w http.ResponseWriter, r *http.Request) {
	h.initiateFunding(w, r, h.fundingSvc.InitiateDeposit)
}

func (h *Handler) InitiateWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.initiateFunding(w, r, h.fundingSvc.InitiateWithdrawal)
}

func (h *Handler) initiateFunding(w http.ResponseWriter, r *http.Request, initiate func(ctx context.Context, req services.InitiateFundingRequest) (models.FundingTransaction, error)) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req fundingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.ConnectedAccountID == "" || req.WalletID == "" {
		respondError(w, http.StatusBadRequest, "connected_account_id and wallet_id are required")
		return
	}
	amount, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	transaction, err := initiate(r.Context(), services.InitiateFundingRequest{
		UserID:             userID,
		ConnectedAccountID: req.ConnectedAccountID,
		WalletID:           req.WalletID,
		AmountMinor:        amount,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, transaction)
}

func (h *Handler) CompleteFunding(w http.ResponseWriter, r *http.Request) {
	h.transitionFunding(w, r, h.fundingSvc.CompleteTransaction)
}

func (h *Handler) CancelFunding(w http.ResponseWriter, r *http.Request) {
	h.transitionFunding(w, r, h.fundingSvc.CancelTransaction)
}

func (h *Handler) transitionFunding(w http.ResponseWriter, r *http.Request, transition func(ctx context.Context, userID, transactionID string) (models.FundingTransaction, error)) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	transaction, err := transition(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, transaction)
}

func (h *Handler) ListFundingTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := parsePagination(r)
	transactions, err := h.funding.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load funding transactions")
		return
	}
	respondJSON(w, http.StatusOK, transactions)
}
