package handlers

import (
	"context"

	"tradeledger/internal/models"
	"tradeledger/internal/services"
	"tradeledger/internal/store"

	"github.com/jmoiron/sqlx"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
}

type WalletStore interface {
	GetByID(ctx context.Context, walletID string) (models.Wallet, error)
	ListByUser(ctx context.Context, userID string) ([]models.Wallet, error)
}

type WalletTransactionStore interface {
	ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.WalletTransaction, error)
}

type TradingWalletStore interface {
	ListByUser(ctx context.Context, userID string) ([]models.TradingWallet, error)
}

type PositionStore interface {
	ListByUser(ctx context.Context, userID string, status models.PositionStatus, limit, offset int) ([]models.TradingPosition, error)
}

type OrderStore interface {
	ListByUser(ctx context.Context, userID string, status models.OrderStatus, limit, offset int) ([]models.TradingOrder, error)
}

type ConnectedAccountStore interface {
	ListByUser(ctx context.Context, userID string) ([]models.ConnectedAccount, error)
}

type FundingStore interface {
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.FundingTransaction, error)
}

type WalletService interface {
	CreateWallet(ctx context.Context, req services.CreateWalletRequest) (models.Wallet, error)
	CreateWalletTx(ctx context.Context, tx *sqlx.Tx, req services.CreateWalletRequest) (models.Wallet, error)
	Reconcile(ctx context.Context, userID, walletID string) (services.ReconcileReport, error)
	Deposit(ctx context.Context, req services.DepositRequest) (models.WalletTransaction, error)
	Withdraw(ctx context.Context, req services.WithdrawRequest) (models.WalletTransaction, error)
	Transfer(ctx context.Context, req services.TransferRequest) (string, error)
	LockFunds(ctx context.Context, req services.LockRequest) (models.WalletTransaction, error)
	UnlockFunds(ctx context.Context, req services.LockRequest) (models.WalletTransaction, error)
}

type TradingService interface {
	EnsureWallet(ctx context.Context, userID string, walletType models.TradingWalletType) (models.TradingWallet, error)
	PlaceOrder(ctx context.Context, req services.PlaceOrderRequest) (models.TradingOrder, error)
	CancelOrder(ctx context.Context, userID, orderID string) error
	ClosePosition(ctx context.Context, req services.ClosePositionRequest) (services.ClosePositionResult, error)
}

type FundingService interface {
	ConnectAccount(ctx context.Context, req services.ConnectAccountRequest) (models.ConnectedAccount, error)
	InitiateDeposit(ctx context.Context, req services.InitiateFundingRequest) (models.FundingTransaction, error)
	InitiateWithdrawal(ctx context.Context, req services.InitiateFundingRequest) (models.FundingTransaction, error)
	CompleteTransaction(ctx context.Context, userID, transactionID string) (models.FundingTransaction, error)
	CancelTransaction(ctx context.Context, userID, transactionID string) (models.FundingTransaction, error)
}

type PerformanceService interface {
	Summary(ctx context.Context, userID string, walletType models.TradingWalletType) (services.PerformanceSummary, error)
	Metrics(ctx context.Context, userID string, walletType models.TradingWalletType) (services.RiskMetrics, error)
}
