package services

import (
	"context"
	"encoding/json"
	"errors"

	"tradeledger/internal/db"
	"tradeledger/internal/models"
	"tradeledger/internal/money"
	"tradeledger/internal/store"
	"tradeledger/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrInsufficientLockedFunds = errors.New("insufficient locked funds")
	ErrUnauthorizedWallet      = errors.New("wallet does not belong to user")
	ErrCurrencyMismatch        = errors.New("currency mismatch")
	ErrSameWalletTransfer      = errors.New("cannot transfer to same wallet")
	ErrDuplicateReference      = errors.New("reference id already used")
	ErrDefaultWalletExists     = errors.New("default wallet already exists")
	ErrWalletInvariant         = errors.New("wallet balance invariant violated")
)

type WalletStore interface {
	Create(ctx context.Context, tx store.Execer, wallet models.Wallet) error
	GetByID(ctx context.Context, walletID string) (models.Wallet, error)
	GetForUpdate(ctx context.Context, tx store.Getter, walletID string) (models.Wallet, error)
	GetDefaultForUpdate(ctx context.Context, tx store.Getter, userID string) (models.Wallet, error)
	UpdateBalances(ctx context.Context, tx store.Execer, walletID string, balance, available, locked int64) error
	HasDefault(ctx context.Context, userID string) (bool, error)
}

type LedgerStore interface {
	Insert(ctx context.Context, tx store.Execer, input store.WalletTransactionInput) error
	ExistsByReference(ctx context.Context, tx store.Getter, walletID, referenceID string, transactionType models.WalletTransactionType) (bool, error)
	SumByWallet(ctx context.Context, walletID string) (int64, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type UpdateHub interface {
	BroadcastWallet(userID string, update websocket.WalletUpdate)
	BroadcastTrade(userID string, event websocket.TradeEvent)
}

// WalletService applies every balance mutation in one transaction: lock the
// wallet row, re-derive the three balances, verify the invariant, append the
// ledger line. Websocket updates go out only after commit.
type WalletService struct {
	txRunner db.TxRunner
	wallets  WalletStore
	ledger   LedgerStore
	audit    AuditStore
	hub      UpdateHub
	log      zerolog.Logger
}

func NewWalletService(txRunner db.TxRunner, wallets WalletStore, ledger LedgerStore, audit AuditStore, hub UpdateHub, log zerolog.Logger) *WalletService {
	return &WalletService{
		txRunner: txRunner,
		wallets:  wallets,
		ledger:   ledger,
		audit:    audit,
		hub:      hub,
		log:      log,
	}
}

type CreateWalletRequest struct {
	UserID       string
	Currency     string
	CurrencyType models.CurrencyType
	IsDefault    bool
}

func (s *WalletService) CreateWallet(ctx context.Context, req CreateWalletRequest) (models.Wallet, error) {
	var wallet models.Wallet
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		wallet, err = s.CreateWalletTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return models.Wallet{}, err
	}
	return wallet, nil
}

// CreateWalletTx creates the wallet inside a caller-supplied transaction.
// Registration uses it so the user row and the default wallet commit or roll
// back together.
func (s *WalletService) CreateWalletTx(ctx context.Context, tx *sqlx.Tx, req CreateWalletRequest) (models.Wallet, error) {
	wallet := models.Wallet{
		ID:           uuid.NewString(),
		UserID:       req.UserID,
		Currency:     req.Currency,
		CurrencyType: req.CurrencyType,
		IsDefault:    req.IsDefault,
	}
	if req.IsDefault {
		hasDefault, err := s.wallets.HasDefault(ctx, req.UserID)
		if err != nil {
			return models.Wallet{}, err
		}
		if hasDefault {
			return models.Wallet{}, ErrDefaultWalletExists
		}
	}
	if err := s.wallets.Create(ctx, tx, wallet); err != nil {
		return models.Wallet{}, err
	}
	if err := s.audit.Log(ctx, tx, req.UserID, "create_wallet", "wallet", wallet.ID, "{}"); err != nil {
		return models.Wallet{}, err
	}
	return wallet, nil
}

type DepositRequest struct {
	UserID      string
	WalletID    string
	AmountMinor int64
	FeeMinor    int64
	Description string
	Metadata    string
	ReferenceID string
}

func (s *WalletService) Deposit(ctx context.Context, req DepositRequest) (models.WalletTransaction, error) {
	if req.AmountMinor <= 0 || req.FeeMinor < 0 {
		return models.WalletTransaction{}, ErrInvalidAmount
	}
	var entry models.WalletTransaction
	var after models.Wallet
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		entry, after, err = s.DepositTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return models.WalletTransaction{}, err
	}
	s.broadcastWallet(after)
	return entry, nil
}

// DepositTx runs the deposit inside a caller-supplied transaction. The
// funding orchestrator uses it to settle a completed deposit atomically with
// its own state change.
func (s *WalletService) DepositTx(ctx context.Context, tx *sqlx.Tx, req DepositRequest) (models.WalletTransaction, models.Wallet, error) {
	if req.AmountMinor <= 0 || req.FeeMinor < 0 {
		return models.WalletTransaction{}, models.Wallet{}, ErrInvalidAmount
	}
	wallet, err := s.wallets.GetForUpdate(ctx, tx, req.WalletID)
	if err != nil {
		return models.WalletTransaction{}, models.Wallet{}, err
	}
	if wallet.UserID != req.UserID {
		return models.WalletTransaction{}, models.Wallet{}, ErrUnauthorizedWallet
	}
	if err := s.checkReference(ctx, tx, wallet.ID, req.ReferenceID, models.TxDeposit); err != nil {
		return models.WalletTransaction{}, models.Wallet{}, err
	}
	wallet.Balance += req.AmountMinor
	wallet.AvailableBalance += req.AmountMinor
	if err := checkBalances(wallet); err != nil {
		return models.WalletTransaction{}, models.Wallet{}, err
	}
	if err := s.wallets.UpdateBalances(ctx, tx, wallet.ID, wallet.Balance, wallet.AvailableBalance, wallet.LockedBalance); err != nil {
		return models.WalletTransaction{}, models.Wallet{}, err
	}
	entry, err := s.appendEntry(ctx, tx, wallet, models.TxDeposit, req.AmountMinor, req.FeeMinor, req.ReferenceID, req.Description, req.Metadata)
	if err != nil {
		return models.WalletTransaction{}, models.Wallet{}, err
	}
	return entry, wallet, nil
}

type WithdrawRequest struct {
	UserID      string
	WalletID    string
	AmountMinor int64
	FeeMinor    int64
	Description string
	Metadata    string
	ReferenceID string
}

func (s *WalletService) Withdraw(ctx context.Context, req WithdrawRequest) (models.WalletTransaction, error) {
	if req.AmountMinor <= 0 || req.FeeMinor < 0 {
		return models.WalletTransaction{}, ErrInvalidAmount
	}
	var entry models.WalletTransaction
	var after models.Wallet
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		entry, after, err = s.WithdrawTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return models.WalletTransaction{}, err
	}
	s.broadcastWallet(after)
	return entry, nil
}

// WithdrawTx debits amount + fee from balance and available. The ledger line
// carries the amount negated and the fee separately; there is no distinct fee
// entry.
func (s *WalletService) WithdrawTx(ctx context.Context, tx *sqlx.Tx, req WithdrawRequest) (models.WalletTransaction, models.Wallet, error) {
	if req.AmountMinor <= 0 || req.FeeMinor < 0 {
		return models.WalletTransaction{}, models.Wallet{}, ErrInvalidAmount
	}
	wallet, err := s.wallets.GetForUpdate(ctx, tx, req.WalletID)
	if err != nil {
		return models.WalletTransaction{}, models.Wallet{}, err
	}
	if wallet.UserID != req.UserID {
		return models.WalletTransaction{}, models.Wallet{}, ErrUnauthorizedWallet
	}
	if err := s.checkReference(ctx, tx, wallet.ID, req.ReferenceID, models.TxWithdrawal); err != nil {
		return models.WalletTransaction{}, models.Wallet{}, err
	}
	total := req.AmountMinor + req.FeeMinor
	if wallet.AvailableBalance < total {
		return models.WalletTransaction{}, models.Wallet{}, ErrInsufficientFunds
	}
	wallet.Balance -= total
	wallet.AvailableBalance -= total
	if err := checkBalances(wallet); err != nil {
		return models.WalletTransaction{}, models.Wallet{}, err
	}
	if err := s.wallets.UpdateBalances(ctx, tx, wallet.ID, wallet.Balance, wallet.AvailableBalance, wallet.LockedBalance); err != nil {
		return models.WalletTransaction{}, models.Wallet{}, err
	}
	entry, err := s.appendEntry(ctx, tx, wallet, models.TxWithdrawal, -req.AmountMinor, req.FeeMinor, req.ReferenceID, req.Description, req.Metadata)
	if err != nil {
		return models.WalletTransaction{}, models.Wallet{}, err
	}
	return entry, wallet, nil
}

type TransferRequest struct {
	UserID       string
	FromWalletID string
	ToWalletID   string
	AmountMinor  int64
	FeeMinor     int64
	Description  string
}

// Transfer debits amount + fee from the source and credits amount to the
// destination in one transaction. Both ledger legs share one reference id;
// the fee stays with the source side.
func (s *WalletService) Transfer(ctx context.Context, req TransferRequest) (string, error) {
	if req.AmountMinor <= 0 || req.FeeMinor < 0 {
		return "", ErrInvalidAmount
	}
	if req.FromWalletID == req.ToWalletID {
		return "", ErrSameWalletTransfer
	}
	referenceID := uuid.NewString()
	var fromAfter, toAfter models.Wallet
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		fromWallet, toWallet, err := s.lockTwoWallets(ctx, tx, req.FromWalletID, req.ToWalletID)
		if err != nil {
			return err
		}
		if fromWallet.UserID != req.UserID {
			return ErrUnauthorizedWallet
		}
		if fromWallet.Currency != toWallet.Currency {
			return ErrCurrencyMismatch
		}
		total := req.AmountMinor + req.FeeMinor
		if fromWallet.AvailableBalance < total {
			return ErrInsufficientFunds
		}
		fromWallet.Balance -= total
		fromWallet.AvailableBalance -= total
		toWallet.Balance += req.AmountMinor
		toWallet.AvailableBalance += req.AmountMinor
		if err := checkBalances(fromWallet); err != nil {
			return err
		}
		if err := checkBalances(toWallet); err != nil {
			return err
		}
		if err := s.wallets.UpdateBalances(ctx, tx, fromWallet.ID, fromWallet.Balance, fromWallet.AvailableBalance, fromWallet.LockedBalance); err != nil {
			return err
		}
		if err := s.wallets.UpdateBalances(ctx, tx, toWallet.ID, toWallet.Balance, toWallet.AvailableBalance, toWallet.LockedBalance); err != nil {
			return err
		}
		if _, err := s.appendEntry(ctx, tx, fromWallet, models.TxTransferOut, -req.AmountMinor, req.FeeMinor, referenceID, req.Description, ""); err != nil {
			return err
		}
		if _, err := s.appendEntry(ctx, tx, toWallet, models.TxTransferIn, req.AmountMinor, 0, referenceID, req.Description, ""); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"from_wallet": fromWallet.ID,
			"to_wallet":   toWallet.ID,
		})
		if err := s.audit.Log(ctx, tx, req.UserID, "transfer", "wallet_transaction", referenceID, string(data)); err != nil {
			return err
		}
		fromAfter = fromWallet
		toAfter = toWallet
		return nil
	})
	if err != nil {
		return "", err
	}
	s.broadcastWallet(fromAfter)
	s.broadcastWallet(toAfter)
	return referenceID, nil
}

type LockRequest struct {
	UserID      string
	WalletID    string
	AmountMinor int64
	Reason      string
}

func (s *WalletService) LockFunds(ctx context.Context, req LockRequest) (models.WalletTransaction, error) {
	return s.moveLocked(ctx, req, models.TxLock)
}

func (s *WalletService) UnlockFunds(ctx context.Context, req LockRequest) (models.WalletTransaction, error) {
	return s.moveLocked(ctx, req, models.TxUnlock)
}

// moveLocked shifts amount between available and locked; balance never moves.
func (s *WalletService) moveLocked(ctx context.Context, req LockRequest, transactionType models.WalletTransactionType) (models.WalletTransaction, error) {
	if req.AmountMinor <= 0 {
		return models.WalletTransaction{}, ErrInvalidAmount
	}
	var entry models.WalletTransaction
	var after models.Wallet
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		wallet, err := s.wallets.GetForUpdate(ctx, tx, req.WalletID)
		if err != nil {
			return err
		}
		if wallet.UserID != req.UserID {
			return ErrUnauthorizedWallet
		}
		switch transactionType {
		case models.TxLock:
			if wallet.AvailableBalance < req.AmountMinor {
				return ErrInsufficientFunds
			}
			wallet.AvailableBalance -= req.AmountMinor
			wallet.LockedBalance += req.AmountMinor
		case models.TxUnlock:
			if wallet.LockedBalance < req.AmountMinor {
				return ErrInsufficientLockedFunds
			}
			wallet.LockedBalance -= req.AmountMinor
			wallet.AvailableBalance += req.AmountMinor
		}
		if err := checkBalances(wallet); err != nil {
			return err
		}
		if err := s.wallets.UpdateBalances(ctx, tx, wallet.ID, wallet.Balance, wallet.AvailableBalance, wallet.LockedBalance); err != nil {
			return err
		}
		entry, err = s.appendEntry(ctx, tx, wallet, transactionType, req.AmountMinor, 0, "", req.Reason, "")
		if err != nil {
			return err
		}
		after = wallet
		return nil
	})
	if err != nil {
		return models.WalletTransaction{}, err
	}
	s.broadcastWallet(after)
	return entry, nil
}

type ReconcileReport struct {
	Wallet           models.Wallet
	LedgerTotalMinor int64
	Consistent       bool
}

// Reconcile replays the wallet's ledger and compares the net sum against the
// stored balance. A drift means a balance mutation was written without its
// ledger line, or the other way around.
func (s *WalletService) Reconcile(ctx context.Context, userID, walletID string) (ReconcileReport, error) {
	wallet, err := s.wallets.GetByID(ctx, walletID)
	if err != nil {
		return ReconcileReport{}, err
	}
	if wallet.UserID != userID {
		return ReconcileReport{}, ErrUnauthorizedWallet
	}
	total, err := s.ledger.SumByWallet(ctx, walletID)
	if err != nil {
		return ReconcileReport{}, err
	}
	report := ReconcileReport{
		Wallet:           wallet,
		LedgerTotalMinor: total,
		Consistent:       total == wallet.Balance,
	}
	if !report.Consistent {
		s.log.Warn().
			Str("wallet_id", walletID).
			Int64("balance_minor", wallet.Balance).
			Int64("ledger_total_minor", total).
			Msg("wallet balance drifted from ledger")
	}
	return report, nil
}

func (s *WalletService) appendEntry(ctx context.Context, tx *sqlx.Tx, wallet models.Wallet, transactionType models.WalletTransactionType, amountMinor, feeMinor int64, referenceID, description, metadata string) (models.WalletTransaction, error) {
	if referenceID == "" {
		referenceID = uuid.NewString()
	}
	if metadata == "" {
		metadata = "{}"
	}
	input := store.WalletTransactionInput{
		ID:              uuid.NewString(),
		WalletID:        wallet.ID,
		UserID:          wallet.UserID,
		TransactionType: transactionType,
		AmountMinor:     amountMinor,
		FeeMinor:        feeMinor,
		Status:          "COMPLETED",
		ReferenceID:     referenceID,
		Description:     description,
		Metadata:        metadata,
	}
	if err := s.ledger.Insert(ctx, tx, input); err != nil {
		return models.WalletTransaction{}, err
	}
	return models.WalletTransaction{
		ID:              input.ID,
		WalletID:        input.WalletID,
		UserID:          input.UserID,
		TransactionType: input.TransactionType,
		AmountMinor:     input.AmountMinor,
		FeeMinor:        input.FeeMinor,
		Status:          input.Status,
		ReferenceID:     input.ReferenceID,
		Description:     input.Description,
		Metadata:        input.Metadata,
	}, nil
}

func (s *WalletService) checkReference(ctx context.Context, tx *sqlx.Tx, walletID, referenceID string, transactionType models.WalletTransactionType) error {
	if referenceID == "" {
		return nil
	}
	exists, err := s.ledger.ExistsByReference(ctx, tx, walletID, referenceID, transactionType)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateReference
	}
	return nil
}

func (s *WalletService) lockTwoWallets(ctx context.Context, tx store.Getter, firstID, secondID string) (models.Wallet, models.Wallet, error) {
	leftID, rightID := orderedIDs(firstID, secondID)
	leftWallet, err := s.wallets.GetForUpdate(ctx, tx, leftID)
	if err != nil {
		return models.Wallet{}, models.Wallet{}, err
	}
	rightWallet, err := s.wallets.GetForUpdate(ctx, tx, rightID)
	if err != nil {
		return models.Wallet{}, models.Wallet{}, err
	}
	if firstID == leftID {
		return leftWallet, rightWallet, nil
	}
	return rightWallet, leftWallet, nil
}

func (s *WalletService) broadcastWallet(wallet models.Wallet) {
	s.hub.BroadcastWallet(wallet.UserID, websocket.WalletUpdate{
		WalletID:  wallet.ID,
		Balance:   money.FormatMinor(wallet.Balance),
		Available: money.FormatMinor(wallet.AvailableBalance),
		Locked:    money.FormatMinor(wallet.LockedBalance),
		Currency:  wallet.Currency,
	})
}

func checkBalances(wallet models.Wallet) error {
	if wallet.Balance < 0 || wallet.AvailableBalance < 0 || wallet.LockedBalance < 0 {
		return ErrWalletInvariant
	}
	if wallet.Balance != wallet.AvailableBalance+wallet.LockedBalance {
		return ErrWalletInvariant
	}
	return nil
}

// Row ordering avoids lock inversion when two transfers cross the same pair.
func orderedIDs(firstID, secondID string) (string, string) {
	if firstID <= secondID {
		return firstID, secondID
	}
	return secondID, firstID
}
