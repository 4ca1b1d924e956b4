package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tradeledger/internal/auth"
	"tradeledger/internal/config"
	"tradeledger/internal/db"
	"tradeledger/internal/middleware"
	"tradeledger/internal/models"
	"tradeledger/internal/services"
	"tradeledger/internal/store"
	"tradeledger/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubUserStore struct {
	createFn     func(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	getByEmailFn func(ctx context.Context, email string) (models.User, error)
	getByIDFn    func(ctx context.Context, userID string) (models.User, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, username, email, passwordHash)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if s.getByEmailFn == nil {
		return models.User{}, nil
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{}, nil
	}
	return s.getByIDFn(ctx, userID)
}

type stubWalletStore struct {
	getByIDFn    func(ctx context.Context, walletID string) (models.Wallet, error)
	listByUserFn func(ctx context.Context, userID string) ([]models.Wallet, error)
}

func (s stubWalletStore) GetByID(ctx context.Context, walletID string) (models.Wallet, error) {
	if s.getByIDFn == nil {
		return models.Wallet{}, nil
	}
	return s.getByIDFn(ctx, walletID)
}

func (s stubWalletStore) ListByUser(ctx context.Context, userID string) ([]models.Wallet, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID)
}

type stubLedgerStore struct {
	listByWalletFn func(ctx context.Context, walletID string, limit, offset int) ([]models.WalletTransaction, error)
}

func (s stubLedgerStore) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.WalletTransaction, error) {
	if s.listByWalletFn == nil {
		return nil, nil
	}
	return s.listByWalletFn(ctx, walletID, limit, offset)
}

type stubTradingWalletStore struct {
	listByUserFn func(ctx context.Context, userID string) ([]models.TradingWallet, error)
}

func (s stubTradingWalletStore) ListByUser(ctx context.Context, userID string) ([]models.TradingWallet, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID)
}

type stubPositionStore struct {
	listByUserFn func(ctx context.Context, userID string, status models.PositionStatus, limit, offset int) ([]models.TradingPosition, error)
}

func (s stubPositionStore) ListByUser(ctx context.Context, userID string, status models.PositionStatus, limit, offset int) ([]models.TradingPosition, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID, status, limit, offset)
}

type stubOrderStore struct {
	listByUserFn func(ctx context.Context, userID string, status models.OrderStatus, limit, offset int) ([]models.TradingOrder, error)
}

func (s stubOrderStore) ListByUser(ctx context.Context, userID string, status models.OrderStatus, limit, offset int) ([]models.TradingOrder, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID, status, limit, offset)
}

type stubAccountStore struct {
	listByUserFn func(ctx context.Context, userID string) ([]models.ConnectedAccount, error)
}

func (s stubAccountStore) ListByUser(ctx context.Context, userID string) ([]models.ConnectedAccount, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID)
}

type stubFundingStore struct {
	listByUserFn func(ctx context.Context, userID string, limit, offset int) ([]models.FundingTransaction, error)
}

func (s stubFundingStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.FundingTransaction, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID, limit, offset)
}

type stubWalletService struct {
	createWalletFn   func(ctx context.Context, req services.CreateWalletRequest) (models.Wallet, error)
	createWalletTxFn func(ctx context.Context, tx *sqlx.Tx, req services.CreateWalletRequest) (models.Wallet, error)
	reconcileFn      func(ctx context.Context, userID, walletID string) (services.ReconcileReport, error)
	depositFn        func(ctx context.Context, req services.DepositRequest) (models.WalletTransaction, error)
	withdrawFn       func(ctx context.Context, req services.WithdrawRequest) (models.WalletTransaction, error)
	transferFn       func(ctx context.Context, req services.TransferRequest) (string, error)
	lockFn           func(ctx context.Context, req services.LockRequest) (models.WalletTransaction, error)
	unlockFn         func(ctx context.Context, req services.LockRequest) (models.WalletTransaction, error)
}

func (s stubWalletService) CreateWallet(ctx context.Context, req services.CreateWalletRequest) (models.Wallet, error) {
	if s.createWalletFn == nil {
		return models.Wallet{}, nil
	}
	return s.createWalletFn(ctx, req)
}

func (s stubWalletService) CreateWalletTx(ctx context.Context, tx *sqlx.Tx, req services.CreateWalletRequest) (models.Wallet, error) {
	if s.createWalletTxFn == nil {
		return models.Wallet{}, nil
	}
	return s.createWalletTxFn(ctx, tx, req)
}

func (s stubWalletService) Reconcile(ctx context.Context, userID, walletID string) (services.ReconcileReport, error) {
	if s.reconcileFn == nil {
		return services.ReconcileReport{}, nil
	}
	return s.reconcileFn(ctx, userID, walletID)
}

func (s stubWalletService) Deposit(ctx context.Context, req services.DepositRequest) (models.WalletTransaction, error) {
	if s.depositFn == nil {
		return models.WalletTransaction{}, nil
	}
	return s.depositFn(ctx, req)
}

func (s stubWalletService) Withdraw(ctx context.Context, req services.WithdrawRequest) (models.WalletTransaction, error) {
	if s.withdrawFn == nil {
		return models.WalletTransaction{}, nil
	}
	return s.withdrawFn(ctx, req)
}

func (s stubWalletService) Transfer(ctx context.Context, req services.TransferRequest) (string, error) {
	if s.transferFn == nil {
		return "", nil
	}
	return s.transferFn(ctx, req)
}

func (s stubWalletService) LockFunds(ctx context.Context, req services.LockRequest) (models.WalletTransaction, error) {
	if s.lockFn == nil {
		return models.WalletTransaction{}, nil
	}
	return s.lockFn(ctx, req)
}

func (s stubWalletService) UnlockFunds(ctx context.Context, req services.LockRequest) (models.WalletTransaction, error) {
	if s.unlockFn == nil {
		return models.WalletTransaction{}, nil
	}
	return s.unlockFn(ctx, req)
}

type stubTradingService struct {
	ensureWalletFn  func(ctx context.Context, userID string, walletType models.TradingWalletType) (models.TradingWallet, error)
	placeOrderFn    func(ctx context.Context, req services.PlaceOrderRequest) (models.TradingOrder, error)
	cancelOrderFn   func(ctx context.Context, userID, orderID string) error
	closePositionFn func(ctx context.Context, req services.ClosePositionRequest) (services.ClosePositionResult, error)
}

func (s stubTradingService) EnsureWallet(ctx context.Context, userID string, walletType models.TradingWalletType) (models.TradingWallet, error) {
	if s.ensureWalletFn == nil {
		return models.TradingWallet{}, nil
	}
	return s.ensureWalletFn(ctx, userID, walletType)
}

func (s stubTradingService) PlaceOrder(ctx context.Context, req services.PlaceOrderRequest) (models.TradingOrder, error) {
	if s.placeOrderFn == nil {
		return models.TradingOrder{}, nil
	}
	return s.placeOrderFn(ctx, req)
}

func (s stubTradingService) CancelOrder(ctx context.Context, userID, orderID string) error {
	if s.cancelOrderFn == nil {
		return nil
	}
	return s.cancelOrderFn(ctx, userID, orderID)
}

func (s stubTradingService) ClosePosition(ctx context.Context, req services.ClosePositionRequest) (services.ClosePositionResult, error) {
	if s.closePositionFn == nil {
		return services.ClosePositionResult{}, nil
	}
	return s.closePositionFn(ctx, req)
}

type stubFundingService struct {
	connectAccountFn     func(ctx context.Context, req services.ConnectAccountRequest) (models.ConnectedAccount, error)
	initiateDepositFn    func(ctx context.Context, req services.InitiateFundingRequest) (models.FundingTransaction, error)
	initiateWithdrawalFn func(ctx context.Context, req services.InitiateFundingRequest) (models.FundingTransaction, error)
	completeFn           func(ctx context.Context, userID, transactionID string) (models.FundingTransaction, error)
	cancelFn             func(ctx context.Context, userID, transactionID string) (models.FundingTransaction, error)
}

func (s stubFundingService) ConnectAccount(ctx context.Context, req services.ConnectAccountRequest) (models.ConnectedAccount, error) {
	if s.connectAccountFn == nil {
		return models.ConnectedAccount{}, nil
	}
	return s.connectAccountFn(ctx, req)
}

func (s stubFundingService) InitiateDeposit(ctx context.Context, req services.InitiateFundingRequest) (models.FundingTransaction, error) {
	if s.initiateDepositFn == nil {
		return models.FundingTransaction{}, nil
	}
	return s.initiateDepositFn(ctx, req)
}

func (s stubFundingService) InitiateWithdrawal(ctx context.Context, req services.InitiateFundingRequest) (models.FundingTransaction, error) {
	if s.initiateWithdrawalFn == nil {
		return models.FundingTransaction{}, nil
	}
	return s.initiateWithdrawalFn(ctx, req)
}

func (s stubFundingService) CompleteTransaction(ctx context.Context, userID, transactionID string) (models.FundingTransaction, error) {
	if s.completeFn == nil {
		return models.FundingTransaction{}, nil
	}
	return s.completeFn(ctx, userID, transactionID)
}

func (s stubFundingService) CancelTransaction(ctx context.Context, userID, transactionID string) (models.FundingTransaction, error) {
	if s.cancelFn == nil {
		return models.FundingTransaction{}, nil
	}
	return s.cancelFn(ctx, userID, transactionID)
}

type stubPerformanceService struct {
	summaryFn func(ctx context.Context, userID string, walletType models.TradingWalletType) (services.PerformanceSummary, error)
	metricsFn func(ctx context.Context, userID string, walletType models.TradingWalletType) (services.RiskMetrics, error)
}

func (s stubPerformanceService) Summary(ctx context.Context, userID string, walletType models.TradingWalletType) (services.PerformanceSummary, error) {
	if s.summaryFn == nil {
		return services.PerformanceSummary{}, nil
	}
	return s.summaryFn(ctx, userID, walletType)
}

func (s stubPerformanceService) Metrics(ctx context.Context, userID string, walletType models.TradingWalletType) (services.RiskMetrics, error) {
	if s.metricsFn == nil {
		return services.RiskMetrics{}, nil
	}
	return s.metricsFn(ctx, userID, walletType)
}

type handlerDeps struct {
	txRunner    db.TxRunner
	users       UserStore
	wallets     WalletStore
	ledger      WalletTransactionStore
	trading     TradingWalletStore
	positions   PositionStore
	orders      OrderStore
	accounts    ConnectedAccountStore
	funding     FundingStore
	walletSvc   WalletService
	tradingSvc  TradingService
	fundingSvc  FundingService
	performance PerformanceService
}

func newTestHandler(deps handlerDeps) *Handler {
	cfg := config.Config{
		AppEnv:          "test",
		Port:            "0",
		JWTSecret:       "secret",
		TokenTTL:        time.Minute,
		AllowedOrigins:  "*",
		DemoSeedBalance: "50000",
	}
	if deps.txRunner == nil {
		deps.txRunner = fakeTxRunner{}
	}
	if deps.users == nil {
		deps.users = stubUserStore{}
	}
	if deps.wallets == nil {
		deps.wallets = stubWalletStore{}
	}
	if deps.ledger == nil {
		deps.ledger = stubLedgerStore{}
	}
	if deps.trading == nil {
		deps.trading = stubTradingWalletStore{}
	}
	if deps.positions == nil {
		deps.positions = stubPositionStore{}
	}
	if deps.orders == nil {
		deps.orders = stubOrderStore{}
	}
	if deps.accounts == nil {
		deps.accounts = stubAccountStore{}
	}
	if deps.funding == nil {
		deps.funding = stubFundingStore{}
	}
	if deps.walletSvc == nil {
		deps.walletSvc = stubWalletService{}
	}
	if deps.tradingSvc == nil {
		deps.tradingSvc = stubTradingService{}
	}
	if deps.fundingSvc == nil {
		deps.fundingSvc = stubFundingService{}
	}
	if deps.performance == nil {
		deps.performance = stubPerformanceService{}
	}
	return New(deps.txRunner, cfg, deps.users, deps.wallets, deps.ledger, deps.trading, deps.positions, deps.orders, deps.accounts, deps.funding, deps.walletSvc, deps.tradingSvc, deps.fundingSvc, deps.performance, websocket.NewHub())
}

// serveAuthed runs the handler behind the auth middleware with a real token
// for userID, so middleware.UserIDFromContext resolves inside the handler.
func serveAuthed(t *testing.T, handler http.HandlerFunc, req *http.Request, userID string) *httptest.ResponseRecorder {
	t.Helper()
	token, err := auth.GenerateToken("secret", userID, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	middleware.Auth("secret")(handler).ServeHTTP(rr, req)
	return rr
}

func withRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}
