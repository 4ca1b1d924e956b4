package services

import (
	"context"
	"encoding/json"
	"time"

	"tradeledger/internal/db"
	"tradeledger/internal/models"
	"tradeledger/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

type ConnectedAccountStore interface {
	Create(ctx context.Context, tx store.Execer, account models.ConnectedAccount) error
	GetForUpdate(ctx context.Context, tx store.Getter, accountID string) (models.ConnectedAccount, error)
	UpdateBalances(ctx context.Context, tx store.Execer, accountID string, available, current int64) error
}

type FundingStore interface {
	Create(ctx context.Context, tx store.Execer, transaction models.FundingTransaction) error
	GetForUpdate(ctx context.Context, tx store.Getter, transactionID string) (models.FundingTransaction, error)
	UpdateStatus(ctx context.Context, tx store.Execer, transactionID string, status models.FundingStatus, completedAt *time.Time) (int64, error)
}

// walletLedger is the slice of WalletService the orchestrator composes with
// inside its own transactions.
type walletLedger interface {
	DepositTx(ctx context.Context, tx *sqlx.Tx, req DepositRequest) (models.WalletTransaction, models.Wallet, error)
	WithdrawTx(ctx context.Context, tx *sqlx.Tx, req WithdrawRequest) (models.WalletTransaction, models.Wallet, error)
}

// FundingService runs the two-phase transfer between a connected external
// account mirror and an internal wallet. Funds are reserved (debited) at
// initiation and settled on completion; cancel reverses whichever side was
// debited. PENDING is the only non-terminal state.
type FundingService struct {
	txRunner db.TxRunner
	accounts ConnectedAccountStore
	funding  FundingStore
	wallets  walletLedger
	audit    AuditStore
	log      zerolog.Logger
}

func NewFundingService(txRunner db.TxRunner, accounts ConnectedAccountStore, funding FundingStore, wallets walletLedger, audit AuditStore, log zerolog.Logger) *FundingService {
	return &FundingService{
		txRunner: txRunner,
		accounts: accounts,
		funding:  funding,
		wallets:  wallets,
		audit:    audit,
		log:      log,
	}
}

type ConnectAccountRequest struct {
	UserID              string
	Provider            string
	AccountName         string
	OpeningBalanceMinor int64
}

func (s *FundingService) ConnectAccount(ctx context.Context, req ConnectAccountRequest) (models.ConnectedAccount, error) {
	if req.OpeningBalanceMinor < 0 {
		return models.ConnectedAccount{}, ErrInvalidAmount
	}
	account := models.ConnectedAccount{
		ID:               uuid.NewString(),
		UserID:           req.UserID,
		Provider:         req.Provider,
		AccountName:      req.AccountName,
		AvailableBalance: req.OpeningBalanceMinor,
		CurrentBalance:   req.OpeningBalanceMinor,
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.accounts.Create(ctx, tx, account); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, req.UserID, "connect_account", "connected_account", account.ID, "{}")
	})
	if err != nil {
		return models.ConnectedAccount{}, err
	}
	return account, nil
}

type InitiateFundingRequest struct {
	UserID             string
	ConnectedAccountID string
	WalletID           string
	AmountMinor        int64
}

// InitiateDeposit reserves the funds on the external mirror immediately and
// leaves the wallet untouched until completion.
func (s *FundingService) InitiateDeposit(ctx context.Context, req InitiateFundingRequest) (models.FundingTransaction, error) {
	if req.AmountMinor <= 0 {
		return models.FundingTransaction{}, ErrInvalidAmount
	}
	transaction := models.FundingTransaction{
		ID:                 uuid.NewString(),
		UserID:             req.UserID,
		ConnectedAccountID: req.ConnectedAccountID,
		WalletID:           req.WalletID,
		TransactionType:    models.FundingDeposit,
		AmountMinor:        req.AmountMinor,
		Status:             models.FundingPending,
		ReferenceID:        uuid.NewString(),
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		account, err := s.accounts.GetForUpdate(ctx, tx, req.ConnectedAccountID)
		if err != nil {
			return err
		}
		if account.UserID != req.UserID {
			return ErrUnauthorizedEntity
		}
		if account.AvailableBalance < req.AmountMinor {
			return ErrInsufficientFunds
		}
		available := account.AvailableBalance - req.AmountMinor
		current := account.CurrentBalance - req.AmountMinor
		if err := s.accounts.UpdateBalances(ctx, tx, account.ID, available, current); err != nil {
			return err
		}
		if err := s.funding.Create(ctx, tx, transaction); err != nil {
			return err
		}
		return s.auditFunding(ctx, tx, req.UserID, "initiate_deposit", transaction)
	})
	if err != nil {
		return models.FundingTransaction{}, err
	}
	return transaction, nil
}

// InitiateWithdrawal debits the wallet immediately via the wallet mutator, so
// the amount is out of the available balance while the transfer is pending.
func (s *FundingService) InitiateWithdrawal(ctx context.Context, req InitiateFundingRequest) (models.FundingTransaction, error) {
	if req.AmountMinor <= 0 {
		return models.FundingTransaction{}, ErrInvalidAmount
	}
	transaction := models.FundingTransaction{
		ID:                 uuid.NewString(),
		UserID:             req.UserID,
		ConnectedAccountID: req.ConnectedAccountID,
		WalletID:           req.WalletID,
		TransactionType:    models.FundingWithdrawal,
		AmountMinor:        req.AmountMinor,
		Status:             models.FundingPending,
		ReferenceID:        uuid.NewString(),
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		account, err := s.accounts.GetForUpdate(ctx, tx, req.ConnectedAccountID)
		if err != nil {
			return err
		}
		if account.UserID != req.UserID {
			return ErrUnauthorizedEntity
		}
		if _, _, err := s.wallets.WithdrawTx(ctx, tx, WithdrawRequest{
			UserID:      req.UserID,
			WalletID:    req.WalletID,
			AmountMinor: req.AmountMinor,
			Description: "Funding withdrawal to " + account.AccountName,
			ReferenceID: transaction.ReferenceID,
		}); err != nil {
			return err
		}
		if err := s.funding.Create(ctx, tx, transaction); err != nil {
			return err
		}
		return s.auditFunding(ctx, tx, req.UserID, "initiate_withdrawal", transaction)
	})
	if err != nil {
		return models.FundingTransaction{}, err
	}
	return transaction, nil
}

// CompleteTransaction settles a PENDING transfer: the deposit side credits
// the wallet, the withdrawal side credits the external mirror.
func (s *FundingService) CompleteTransaction(ctx context.Context, userID, transactionID string) (models.FundingTransaction, error) {
	var result models.FundingTransaction
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		transaction, err := s.funding.GetForUpdate(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		if transaction.UserID != userID {
			return ErrUnauthorizedEntity
		}
		if transaction.Status != models.FundingPending {
			return ErrInvalidState
		}
		switch transaction.TransactionType {
		case models.FundingDeposit:
			if _, _, err := s.wallets.DepositTx(ctx, tx, DepositRequest{
				UserID:      userID,
				WalletID:    transaction.WalletID,
				AmountMinor: transaction.AmountMinor,
				Description: "Funding deposit",
				ReferenceID: transaction.ReferenceID,
			}); err != nil {
				return err
			}
		case models.FundingWithdrawal:
			account, err := s.accounts.GetForUpdate(ctx, tx, transaction.ConnectedAccountID)
			if err != nil {
				return err
			}
			available := account.AvailableBalance + transaction.AmountMinor
			current := account.CurrentBalance + transaction.AmountMinor
			if err := s.accounts.UpdateBalances(ctx, tx, account.ID, available, current); err != nil {
				return err
			}
		}
		now := time.Now().UTC()
		updated, err := s.funding.UpdateStatus(ctx, tx, transaction.ID, models.FundingCompleted, &now)
		if err != nil {
			return err
		}
		if updated == 0 {
			return ErrInvalidState
		}
		transaction.Status = models.FundingCompleted
		transaction.CompletedAt = &now
		result = transaction
		return s.auditFunding(ctx, tx, userID, "complete_funding", transaction)
	})
	if err != nil {
		return models.FundingTransaction{}, err
	}
	return result, nil
}

// CancelTransaction refunds whichever side was debited at initiation.
func (s *FundingService) CancelTransaction(ctx context.Context, userID, transactionID string) (models.FundingTransaction, error) {
	var result models.FundingTransaction
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		transaction, err := s.funding.GetForUpdate(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		if transaction.UserID != userID {
			return ErrUnauthorizedEntity
		}
		if transaction.Status != models.FundingPending {
			return ErrInvalidState
		}
		switch transaction.TransactionType {
		case models.FundingDeposit:
			account, err := s.accounts.GetForUpdate(ctx, tx, transaction.ConnectedAccountID)
			if err != nil {
				return err
			}
			available := account.AvailableBalance + transaction.AmountMinor
			current := account.CurrentBalance + transaction.AmountMinor
			if err := s.accounts.UpdateBalances(ctx, tx, account.ID, available, current); err != nil {
				return err
			}
		case models.FundingWithdrawal:
			if _, _, err := s.wallets.DepositTx(ctx, tx, DepositRequest{
				UserID:      userID,
				WalletID:    transaction.WalletID,
				AmountMinor: transaction.AmountMinor,
				Description: "Funding withdrawal refund",
				ReferenceID: transaction.ReferenceID,
			}); err != nil {
				return err
			}
		}
		updated, err := s.funding.UpdateStatus(ctx, tx, transaction.ID, models.FundingCancelled, nil)
		if err != nil {
			return err
		}
		if updated == 0 {
			return ErrInvalidState
		}
		transaction.Status = models.FundingCancelled
		result = transaction
		return s.auditFunding(ctx, tx, userID, "cancel_funding", transaction)
	})
	if err != nil {
		return models.FundingTransaction{}, err
	}
	return result, nil
}

func (s *FundingService) auditFunding(ctx context.Context, tx *sqlx.Tx, userID, action string, transaction models.FundingTransaction) error {
	data, _ := json.Marshal(map[string]string{
		"reference_id": transaction.ReferenceID,
		"type":         string(transaction.TransactionType),
	})
	return s.audit.Log(ctx, tx, userID, action, "funding_transaction", transaction.ID, string(data))
}
