package services

import (
	"context"
	"time"

	"tradeledger/internal/models"
	"tradeledger/internal/store"
	"tradeledger/internal/websocket"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type stubWalletStore struct {
	createFn              func(ctx context.Context, tx store.Execer, wallet models.Wallet) error
	getByIDFn             func(ctx context.Context, walletID string) (models.Wallet, error)
	getForUpdateFn        func(ctx context.Context, tx store.Getter, walletID string) (models.Wallet, error)
	getDefaultForUpdateFn func(ctx context.Context, tx store.Getter, userID string) (models.Wallet, error)
	updateBalancesFn      func(ctx context.Context, tx store.Execer, walletID string, balance, available, locked int64) error
	hasDefaultFn          func(ctx context.Context, userID string) (bool, error)
}

func (s stubWalletStore) Create(ctx context.Context, tx store.Execer, wallet models.Wallet) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, wallet)
}

func (s stubWalletStore) GetByID(ctx context.Context, walletID string) (models.Wallet, error) {
	if s.getByIDFn == nil {
		return models.Wallet{}, nil
	}
	return s.getByIDFn(ctx, walletID)
}

func (s stubWalletStore) GetForUpdate(ctx context.Context, tx store.Getter, walletID string) (models.Wallet, error) {
	return s.getForUpdateFn(ctx, tx, walletID)
}

func (s stubWalletStore) GetDefaultForUpdate(ctx context.Context, tx store.Getter, userID string) (models.Wallet, error) {
	return s.getDefaultForUpdateFn(ctx, tx, userID)
}

func (s stubWalletStore) UpdateBalances(ctx context.Context, tx store.Execer, walletID string, balance, available, locked int64) error {
	if s.updateBalancesFn == nil {
		return nil
	}
	return s.updateBalancesFn(ctx, tx, walletID, balance, available, locked)
}

func (s stubWalletStore) HasDefault(ctx context.Context, userID string) (bool, error) {
	if s.hasDefaultFn == nil {
		return false, nil
	}
	return s.hasDefaultFn(ctx, userID)
}

type stubLedgerStore struct {
	insertFn func(ctx context.Context, tx store.Execer, input store.WalletTransactionInput) error
	existsFn func(ctx context.Context, tx store.Getter, walletID, referenceID string, transactionType models.WalletTransactionType) (bool, error)
	sumFn    func(ctx context.Context, walletID string) (int64, error)
}

func (s stubLedgerStore) SumByWallet(ctx context.Context, walletID string) (int64, error) {
	if s.sumFn == nil {
		return 0, nil
	}
	return s.sumFn(ctx, walletID)
}

func (s stubLedgerStore) Insert(ctx context.Context, tx store.Execer, input store.WalletTransactionInput) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, input)
}

func (s stubLedgerStore) ExistsByReference(ctx context.Context, tx store.Getter, walletID, referenceID string, transactionType models.WalletTransactionType) (bool, error) {
	if s.existsFn == nil {
		return false, nil
	}
	return s.existsFn(ctx, tx, walletID, referenceID, transactionType)
}

type stubAuditStore struct {
	logFn func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

type stubHub struct {
	walletUpdates []websocket.WalletUpdate
	tradeEvents   []websocket.TradeEvent
}

func (s *stubHub) BroadcastWallet(_ string, update websocket.WalletUpdate) {
	s.walletUpdates = append(s.walletUpdates, update)
}

func (s *stubHub) BroadcastTrade(_ string, event websocket.TradeEvent) {
	s.tradeEvents = append(s.tradeEvents, event)
}

type stubTradingWalletStore struct {
	createFn           func(ctx context.Context, tx store.Execer, wallet models.TradingWallet) error
	getByUserAndTypeFn func(ctx context.Context, userID string, walletType models.TradingWalletType) (models.TradingWallet, error)
	getForUpdateFn     func(ctx context.Context, tx store.Getter, userID string, walletType models.TradingWalletType) (models.TradingWallet, error)
	getByIDForUpdateFn func(ctx context.Context, tx store.Getter, walletID string) (models.TradingWallet, error)
	updateMarginsFn    func(ctx context.Context, tx store.Execer, walletID string, balance, usedMargin decimal.Decimal) error
}

func (s stubTradingWalletStore) Create(ctx context.Context, tx store.Execer, wallet models.TradingWallet) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, wallet)
}

func (s stubTradingWalletStore) GetByUserAndType(ctx context.Context, userID string, walletType models.TradingWalletType) (models.TradingWallet, error) {
	return s.getByUserAndTypeFn(ctx, userID, walletType)
}

func (s stubTradingWalletStore) GetForUpdate(ctx context.Context, tx store.Getter, userID string, walletType models.TradingWalletType) (models.TradingWallet, error) {
	return s.getForUpdateFn(ctx, tx, userID, walletType)
}

func (s stubTradingWalletStore) GetByIDForUpdate(ctx context.Context, tx store.Getter, walletID string) (models.TradingWallet, error) {
	return s.getByIDForUpdateFn(ctx, tx, walletID)
}

func (s stubTradingWalletStore) UpdateMargins(ctx context.Context, tx store.Execer, walletID string, balance, usedMargin decimal.Decimal) error {
	if s.updateMarginsFn == nil {
		return nil
	}
	return s.updateMarginsFn(ctx, tx, walletID, balance, usedMargin)
}

type stubPositionStore struct {
	createFn       func(ctx context.Context, tx store.Execer, position models.TradingPosition) error
	getForUpdateFn func(ctx context.Context, tx store.Getter, positionID string) (models.TradingPosition, error)
	closeFn        func(ctx context.Context, tx store.Execer, positionID string, exitPrice, profitLoss decimal.Decimal, exitTime time.Time) (int64, error)
}

func (s stubPositionStore) Create(ctx context.Context, tx store.Execer, position models.TradingPosition) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, position)
}

func (s stubPositionStore) GetForUpdate(ctx context.Context, tx store.Getter, positionID string) (models.TradingPosition, error) {
	return s.getForUpdateFn(ctx, tx, positionID)
}

func (s stubPositionStore) Close(ctx context.Context, tx store.Execer, positionID string, exitPrice, profitLoss decimal.Decimal, exitTime time.Time) (int64, error) {
	if s.closeFn == nil {
		return 1, nil
	}
	return s.closeFn(ctx, tx, positionID, exitPrice, profitLoss, exitTime)
}

type stubOrderStore struct {
	createFn       func(ctx context.Context, tx store.Execer, order models.TradingOrder) error
	cancelFn       func(ctx context.Context, tx store.Execer, orderID string) (int64, error)
	getForUpdateFn func(ctx context.Context, tx store.Getter, orderID string) (models.TradingOrder, error)
	markFilledFn   func(ctx context.Context, tx store.Execer, orderID, positionID string, filledAt time.Time) error
}

func (s stubOrderStore) MarkFilled(ctx context.Context, tx store.Execer, orderID, positionID string, filledAt time.Time) error {
	if s.markFilledFn == nil {
		return nil
	}
	return s.markFilledFn(ctx, tx, orderID, positionID, filledAt)
}

func (s stubOrderStore) Create(ctx context.Context, tx store.Execer, order models.TradingOrder) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, order)
}

func (s stubOrderStore) Cancel(ctx context.Context, tx store.Execer, orderID string) (int64, error) {
	if s.cancelFn == nil {
		return 1, nil
	}
	return s.cancelFn(ctx, tx, orderID)
}

func (s stubOrderStore) GetForUpdate(ctx context.Context, tx store.Getter, orderID string) (models.TradingOrder, error) {
	return s.getForUpdateFn(ctx, tx, orderID)
}

type stubConnectedAccountStore struct {
	createFn         func(ctx context.Context, tx store.Execer, account models.ConnectedAccount) error
	getForUpdateFn   func(ctx context.Context, tx store.Getter, accountID string) (models.ConnectedAccount, error)
	updateBalancesFn func(ctx context.Context, tx store.Execer, accountID string, available, current int64) error
}

func (s stubConnectedAccountStore) Create(ctx context.Context, tx store.Execer, account models.ConnectedAccount) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, account)
}

func (s stubConnectedAccountStore) GetForUpdate(ctx context.Context, tx store.Getter, accountID string) (models.ConnectedAccount, error) {
	return s.getForUpdateFn(ctx, tx, accountID)
}

func (s stubConnectedAccountStore) UpdateBalances(ctx context.Context, tx store.Execer, accountID string, available, current int64) error {
	if s.updateBalancesFn == nil {
		return nil
	}
	return s.updateBalancesFn(ctx, tx, accountID, available, current)
}

type stubFundingStore struct {
	createFn       func(ctx context.Context, tx store.Execer, transaction models.FundingTransaction) error
	getForUpdateFn func(ctx context.Context, tx store.Getter, transactionID string) (models.FundingTransaction, error)
	updateStatusFn func(ctx context.Context, tx store.Execer, transactionID string, status models.FundingStatus, completedAt *time.Time) (int64, error)
}

func (s stubFundingStore) Create(ctx context.Context, tx store.Execer, transaction models.FundingTransaction) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, transaction)
}

func (s stubFundingStore) GetForUpdate(ctx context.Context, tx store.Getter, transactionID string) (models.FundingTransaction, error) {
	return s.getForUpdateFn(ctx, tx, transactionID)
}

func (s stubFundingStore) UpdateStatus(ctx context.Context, tx store.Execer, transactionID string, status models.FundingStatus, completedAt *time.Time) (int64, error) {
	if s.updateStatusFn == nil {
		return 1, nil
	}
	return s.updateStatusFn(ctx, tx, transactionID, status, completedAt)
}

type stubWalletLedger struct {
	depositFn  func(ctx context.Context, tx *sqlx.Tx, req DepositRequest) (models.WalletTransaction, models.Wallet, error)
	withdrawFn func(ctx context.Context, tx *sqlx.Tx, req WithdrawRequest) (models.WalletTransaction, models.Wallet, error)
}

func (s stubWalletLedger) DepositTx(ctx context.Context, tx *sqlx.Tx, req DepositRequest) (models.WalletTransaction, models.Wallet, error) {
	if s.depositFn == nil {
		return models.WalletTransaction{}, models.Wallet{}, nil
	}
	return s.depositFn(ctx, tx, req)
}

func (s stubWalletLedger) WithdrawTx(ctx context.Context, tx *sqlx.Tx, req WithdrawRequest) (models.WalletTransaction, models.Wallet, error) {
	if s.withdrawFn == nil {
		return models.WalletTransaction{}, models.Wallet{}, nil
	}
	return s.withdrawFn(ctx, tx, req)
}
