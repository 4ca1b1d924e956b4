package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"tradeledger/internal/db"
	"tradeledger/internal/models"
	"tradeledger/internal/money"
	"tradeledger/internal/store"
	"tradeledger/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientMargin = errors.New("insufficient margin")
	ErrInvalidLeverage    = errors.New("invalid leverage")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInvalidPrice       = errors.New("invalid price")
	ErrAlreadyClosed      = errors.New("position already closed")
	ErrWalletInactive     = errors.New("trading wallet is not active")
	ErrInvalidState       = errors.New("invalid state for requested transition")
	ErrUnauthorizedEntity = errors.New("entity does not belong to user")
)

type TradingWalletStore interface {
	Create(ctx context.Context, tx store.Execer, wallet models.TradingWallet) error
	GetByUserAndType(ctx context.Context, userID string, walletType models.TradingWalletType) (models.TradingWallet, error)
	GetForUpdate(ctx context.Context, tx store.Getter, userID string, walletType models.TradingWalletType) (models.TradingWallet, error)
	GetByIDForUpdate(ctx context.Context, tx store.Getter, walletID string) (models.TradingWallet, error)
	UpdateMargins(ctx context.Context, tx store.Execer, walletID string, balance, usedMargin decimal.Decimal) error
}

type PositionStore interface {
	Create(ctx context.Context, tx store.Execer, position models.TradingPosition) error
	GetForUpdate(ctx context.Context, tx store.Getter, positionID string) (models.TradingPosition, error)
	Close(ctx context.Context, tx store.Execer, positionID string, exitPrice, profitLoss decimal.Decimal, exitTime time.Time) (int64, error)
}

type OrderStore interface {
	Create(ctx context.Context, tx store.Execer, order models.TradingOrder) error
	Cancel(ctx context.Context, tx store.Execer, orderID string) (int64, error)
	GetForUpdate(ctx context.Context, tx store.Getter, orderID string) (models.TradingOrder, error)
	MarkFilled(ctx context.Context, tx store.Execer, orderID, positionID string, filledAt time.Time) error
}

// TradingService reserves margin when a market order fills and releases the
// exact reserved amount on close; realized P&L moves separately into the
// trading wallet balance and the user's default wallet mirror.
type TradingService struct {
	txRunner        db.TxRunner
	tradingWallets  TradingWalletStore
	positions       PositionStore
	orders          OrderStore
	wallets         WalletStore
	ledger          LedgerStore
	audit           AuditStore
	hub             UpdateHub
	demoSeedBalance decimal.Decimal
	log             zerolog.Logger
}

func NewTradingService(txRunner db.TxRunner, tradingWallets TradingWalletStore, positions PositionStore, orders OrderStore, wallets WalletStore, ledger LedgerStore, audit AuditStore, hub UpdateHub, demoSeedBalance decimal.Decimal, log zerolog.Logger) *TradingService {
	return &TradingService{
		txRunner:        txRunner,
		tradingWallets:  tradingWallets,
		positions:       positions,
		orders:          orders,
		wallets:         wallets,
		ledger:          ledger,
		audit:           audit,
		hub:             hub,
		demoSeedBalance: demoSeedBalance,
		log:             log,
	}
}

// RequiredMargin is (quantity * price) / leverage.
func RequiredMargin(quantity, price, leverage decimal.Decimal) (decimal.Decimal, error) {
	if leverage.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrInvalidLeverage
	}
	return quantity.Mul(price).Div(leverage), nil
}

// ProfitLoss is (exit - entry) * quantity for BUY, mirrored for SELL.
func ProfitLoss(side models.TradeSide, entryPrice, exitPrice, quantity decimal.Decimal) decimal.Decimal {
	if side == models.SideSell {
		return entryPrice.Sub(exitPrice).Mul(quantity)
	}
	return exitPrice.Sub(entryPrice).Mul(quantity)
}

// ShouldTrigger applies the stop-loss/take-profit rule: an unset side never
// triggers.
func ShouldTrigger(position models.TradingPosition, price decimal.Decimal) bool {
	stopLoss := position.StopLoss
	takeProfit := position.TakeProfit
	if position.TradeType == models.SideBuy {
		if stopLoss.Valid && price.LessThanOrEqual(stopLoss.Decimal) {
			return true
		}
		if takeProfit.Valid && price.GreaterThanOrEqual(takeProfit.Decimal) {
			return true
		}
		return false
	}
	if stopLoss.Valid && price.GreaterThanOrEqual(stopLoss.Decimal) {
		return true
	}
	if takeProfit.Valid && price.LessThanOrEqual(takeProfit.Decimal) {
		return true
	}
	return false
}

// OrderShouldFill applies the trigger rule for resting orders: a LIMIT fills
// when the market crosses its price favourably, a STOP when it crosses
// adversely.
func OrderShouldFill(order models.TradingOrder, price decimal.Decimal) bool {
	if order.Status != models.OrderPending || !order.Price.Valid {
		return false
	}
	target := order.Price.Decimal
	switch order.OrderType {
	case models.OrderLimit:
		if order.Side == models.SideBuy {
			return price.LessThanOrEqual(target)
		}
		return price.GreaterThanOrEqual(target)
	case models.OrderStop, models.OrderStopLimit:
		if order.Side == models.SideBuy {
			return price.GreaterThanOrEqual(target)
		}
		return price.LessThanOrEqual(target)
	}
	return false
}

// EnsureWallet lazily creates the per-mode sub-account: DEMO wallets start
// funded from config, LIVE wallets start empty and inactive.
func (s *TradingService) EnsureWallet(ctx context.Context, userID string, walletType models.TradingWalletType) (models.TradingWallet, error) {
	wallet, err := s.tradingWallets.GetByUserAndType(ctx, userID, walletType)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.TradingWallet{}, err
	}
	wallet = models.TradingWallet{
		ID:             uuid.NewString(),
		UserID:         userID,
		WalletType:     walletType,
		Leverage:       decimal.NewFromInt(100),
		RiskPercentage: decimal.NewFromInt(2),
	}
	if walletType == models.WalletDemo {
		wallet.Balance = s.demoSeedBalance
		wallet.AvailableMargin = s.demoSeedBalance
		wallet.IsActive = true
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.tradingWallets.Create(ctx, tx, wallet)
	})
	if err != nil {
		// Two first touches can race to insert; the loser reads the
		// winner's row instead of surfacing the unique violation.
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			return s.tradingWallets.GetByUserAndType(ctx, userID, walletType)
		}
		return models.TradingWallet{}, err
	}
	return wallet, nil
}

type OpenPositionRequest struct {
	UserID       string
	WalletType   models.TradingWalletType
	CurrencyPair string
	Side         models.TradeSide
	Quantity     decimal.Decimal
	Price        decimal.Decimal
	StopLoss     decimal.NullDecimal
	TakeProfit   decimal.NullDecimal
}

type OpenPositionResult struct {
	Order    models.TradingOrder
	Position models.TradingPosition
	Margin   decimal.Decimal
}

// OpenMarketPosition fills a market order synchronously: one transaction
// creates the FILLED order and the OPEN position and moves the required
// margin from available to used.
func (s *TradingService) OpenMarketPosition(ctx context.Context, req OpenPositionRequest) (OpenPositionResult, error) {
	if req.Quantity.LessThanOrEqual(decimal.Zero) {
		return OpenPositionResult{}, ErrInvalidQuantity
	}
	if req.Price.LessThanOrEqual(decimal.Zero) {
		return OpenPositionResult{}, ErrInvalidPrice
	}
	var result OpenPositionResult
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		wallet, err := s.tradingWallets.GetForUpdate(ctx, tx, req.UserID, req.WalletType)
		if err != nil {
			return err
		}
		if !wallet.IsActive {
			return ErrWalletInactive
		}
		margin, err := RequiredMargin(req.Quantity, req.Price, wallet.Leverage)
		if err != nil {
			return err
		}
		if wallet.AvailableMargin.LessThan(margin) {
			return ErrInsufficientMargin
		}
		now := time.Now().UTC()
		position := models.TradingPosition{
			ID:              uuid.NewString(),
			TradingWalletID: wallet.ID,
			UserID:          req.UserID,
			CurrencyPair:    req.CurrencyPair,
			TradeType:       req.Side,
			EntryPrice:      req.Price,
			Quantity:        req.Quantity,
			MarginReserved:  margin,
			StopLoss:        req.StopLoss,
			TakeProfit:      req.TakeProfit,
			Status:          models.PositionOpen,
			EntryTime:       now,
		}
		order := models.TradingOrder{
			ID:              uuid.NewString(),
			TradingWalletID: wallet.ID,
			UserID:          req.UserID,
			CurrencyPair:    req.CurrencyPair,
			OrderType:       models.OrderMarket,
			Side:            req.Side,
			Quantity:        req.Quantity,
			Price:           decimal.NewNullDecimal(req.Price),
			Status:          models.OrderFilled,
			PositionID:      &position.ID,
			FilledAt:        &now,
		}
		if err := s.positions.Create(ctx, tx, position); err != nil {
			return err
		}
		if err := s.orders.Create(ctx, tx, order); err != nil {
			return err
		}
		usedMargin := wallet.UsedMargin.Add(margin)
		if err := s.tradingWallets.UpdateMargins(ctx, tx, wallet.ID, wallet.Balance, usedMargin); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"margin": margin.String(),
			"pair":   req.CurrencyPair,
		})
		if err := s.audit.Log(ctx, tx, req.UserID, "open_position", "trading_position", position.ID, string(data)); err != nil {
			return err
		}
		result = OpenPositionResult{Order: order, Position: position, Margin: margin}
		return nil
	})
	if err != nil {
		return OpenPositionResult{}, err
	}
	s.hub.BroadcastTrade(req.UserID, websocket.TradeEvent{
		Event:        "position_opened",
		PositionID:   result.Position.ID,
		CurrencyPair: result.Position.CurrencyPair,
		Side:         string(result.Position.TradeType),
	})
	return result, nil
}

type PlaceOrderRequest struct {
	UserID       string
	WalletType   models.TradingWalletType
	CurrencyPair string
	OrderType    models.OrderType
	Side         models.TradeSide
	Quantity     decimal.Decimal
	Price        decimal.NullDecimal
	StopLoss     decimal.NullDecimal
	TakeProfit   decimal.NullDecimal
}

// PlaceOrder records non-market orders as PENDING; nothing in this service
// fills them, an external fill process would. Market orders go through
// OpenMarketPosition.
func (s *TradingService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (models.TradingOrder, error) {
	if req.OrderType == models.OrderMarket {
		if !req.Price.Valid {
			return models.TradingOrder{}, ErrInvalidPrice
		}
		result, err := s.OpenMarketPosition(ctx, OpenPositionRequest{
			UserID:       req.UserID,
			WalletType:   req.WalletType,
			CurrencyPair: req.CurrencyPair,
			Side:         req.Side,
			Quantity:     req.Quantity,
			Price:        req.Price.Decimal,
			StopLoss:     req.StopLoss,
			TakeProfit:   req.TakeProfit,
		})
		if err != nil {
			return models.TradingOrder{}, err
		}
		return result.Order, nil
	}
	if req.Quantity.LessThanOrEqual(decimal.Zero) {
		return models.TradingOrder{}, ErrInvalidQuantity
	}
	if !req.Price.Valid || req.Price.Decimal.LessThanOrEqual(decimal.Zero) {
		return models.TradingOrder{}, ErrInvalidPrice
	}
	var order models.TradingOrder
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		wallet, err := s.tradingWallets.GetForUpdate(ctx, tx, req.UserID, req.WalletType)
		if err != nil {
			return err
		}
		if !wallet.IsActive {
			return ErrWalletInactive
		}
		order = models.TradingOrder{
			ID:              uuid.NewString(),
			TradingWalletID: wallet.ID,
			UserID:          req.UserID,
			CurrencyPair:    req.CurrencyPair,
			OrderType:       req.OrderType,
			Side:            req.Side,
			Quantity:        req.Quantity,
			Price:           req.Price,
			Status:          models.OrderPending,
		}
		if err := s.orders.Create(ctx, tx, order); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, req.UserID, "place_order", "trading_order", order.ID, "{}")
	})
	if err != nil {
		return models.TradingOrder{}, err
	}
	return order, nil
}

func (s *TradingService) CancelOrder(ctx context.Context, userID, orderID string) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		order, err := s.orders.GetForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return ErrUnauthorizedEntity
		}
		cancelled, err := s.orders.Cancel(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if cancelled == 0 {
			return ErrInvalidState
		}
		return s.audit.Log(ctx, tx, userID, "cancel_order", "trading_order", orderID, "{}")
	})
}

// FillOrder converts a PENDING resting order into an open position at the
// given fill price. The order is stamped FILLED and the required margin moves
// from available to used, the same way a market order settles.
func (s *TradingService) FillOrder(ctx context.Context, orderID string, price decimal.Decimal) (models.TradingPosition, error) {
	if price.LessThanOrEqual(decimal.Zero) {
		return models.TradingPosition{}, ErrInvalidPrice
	}
	var position models.TradingPosition
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		order, err := s.orders.GetForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderPending {
			return ErrInvalidState
		}
		wallet, err := s.tradingWallets.GetByIDForUpdate(ctx, tx, order.TradingWalletID)
		if err != nil {
			return err
		}
		if !wallet.IsActive {
			return ErrWalletInactive
		}
		margin, err := RequiredMargin(order.Quantity, price, wallet.Leverage)
		if err != nil {
			return err
		}
		if wallet.AvailableMargin.LessThan(margin) {
			return ErrInsufficientMargin
		}
		now := time.Now().UTC()
		position = models.TradingPosition{
			ID:              uuid.NewString(),
			TradingWalletID: wallet.ID,
			UserID:          order.UserID,
			CurrencyPair:    order.CurrencyPair,
			TradeType:       order.Side,
			EntryPrice:      price,
			Quantity:        order.Quantity,
			MarginReserved:  margin,
			Status:          models.PositionOpen,
			EntryTime:       now,
		}
		if err := s.positions.Create(ctx, tx, position); err != nil {
			return err
		}
		if err := s.orders.MarkFilled(ctx, tx, order.ID, position.ID, now); err != nil {
			return err
		}
		if err := s.tradingWallets.UpdateMargins(ctx, tx, wallet.ID, wallet.Balance, wallet.UsedMargin.Add(margin)); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"fill_price": price.String(),
			"margin":     margin.String(),
		})
		return s.audit.Log(ctx, tx, order.UserID, "fill_order", "trading_order", order.ID, string(data))
	})
	if err != nil {
		return models.TradingPosition{}, err
	}
	s.hub.BroadcastTrade(position.UserID, websocket.TradeEvent{
		Event:        "position_opened",
		PositionID:   position.ID,
		CurrencyPair: position.CurrencyPair,
		Side:         string(position.TradeType),
	})
	return position, nil
}

type ClosePositionRequest struct {
	UserID     string
	PositionID string
	ExitPrice  decimal.Decimal
}

type ClosePositionResult struct {
	Position   models.TradingPosition
	ProfitLoss decimal.Decimal
}

// ClosePosition settles in one transaction: the position is stamped CLOSED,
// the reserved margin returns to available in full, the realized P&L lands on
// the trading wallet balance and on the user's default wallet mirror. A loss
// larger than either side's equity only debits what that side holds, so the
// position always closes and the balance invariants survive.
func (s *TradingService) ClosePosition(ctx context.Context, req ClosePositionRequest) (ClosePositionResult, error) {
	if req.ExitPrice.LessThanOrEqual(decimal.Zero) {
		return ClosePositionResult{}, ErrInvalidPrice
	}
	var result ClosePositionResult
	var walletAfter models.Wallet
	var walletTouched bool
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		walletTouched = false
		position, err := s.positions.GetForUpdate(ctx, tx, req.PositionID)
		if err != nil {
			return err
		}
		if position.UserID != req.UserID {
			return ErrUnauthorizedEntity
		}
		if position.Status != models.PositionOpen {
			return ErrAlreadyClosed
		}
		wallet, err := s.tradingWallets.GetByIDForUpdate(ctx, tx, position.TradingWalletID)
		if err != nil {
			return err
		}
		pnl := ProfitLoss(position.TradeType, position.EntryPrice, req.ExitPrice, position.Quantity)
		now := time.Now().UTC()
		closed, err := s.positions.Close(ctx, tx, position.ID, req.ExitPrice, pnl, now)
		if err != nil {
			return err
		}
		if closed == 0 {
			return ErrAlreadyClosed
		}
		usedMargin := wallet.UsedMargin.Sub(position.MarginReserved)
		balance := wallet.Balance.Add(pnl)
		// Floor the balance at the remaining used margin so the derived
		// available margin never goes negative.
		if balance.LessThan(usedMargin) {
			s.log.Warn().
				Str("position_id", position.ID).
				Str("shortfall", usedMargin.Sub(balance).String()).
				Msg("trade loss exceeds trading wallet equity, flooring balance")
			balance = usedMargin
		}
		if err := s.tradingWallets.UpdateMargins(ctx, tx, wallet.ID, balance, usedMargin); err != nil {
			return err
		}
		walletAfter, walletTouched, err = s.settleDefaultWallet(ctx, tx, position, pnl)
		if err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"exit_price":  req.ExitPrice.String(),
			"profit_loss": pnl.String(),
		})
		if err := s.audit.Log(ctx, tx, req.UserID, "close_position", "trading_position", position.ID, string(data)); err != nil {
			return err
		}
		position.Status = models.PositionClosed
		position.ExitPrice = decimal.NewNullDecimal(req.ExitPrice)
		position.ExitTime = &now
		position.ProfitLoss = decimal.NewNullDecimal(pnl)
		result = ClosePositionResult{Position: position, ProfitLoss: pnl}
		return nil
	})
	if err != nil {
		return ClosePositionResult{}, err
	}
	s.hub.BroadcastTrade(req.UserID, websocket.TradeEvent{
		Event:        "position_closed",
		PositionID:   result.Position.ID,
		CurrencyPair: result.Position.CurrencyPair,
		Side:         string(result.Position.TradeType),
		ProfitLoss:   result.ProfitLoss.String(),
	})
	if walletTouched {
		s.hub.BroadcastWallet(walletAfter.UserID, websocket.WalletUpdate{
			WalletID:  walletAfter.ID,
			Balance:   money.FormatMinor(walletAfter.Balance),
			Available: money.FormatMinor(walletAfter.AvailableBalance),
			Locked:    money.FormatMinor(walletAfter.LockedBalance),
			Currency:  walletAfter.Currency,
		})
	}
	return result, nil
}

// settleDefaultWallet mirrors the realized P&L onto the user's default wallet
// with a ledger line referencing the position. A user without a default
// wallet keeps the result on the trading wallet only.
func (s *TradingService) settleDefaultWallet(ctx context.Context, tx *sqlx.Tx, position models.TradingPosition, pnl decimal.Decimal) (models.Wallet, bool, error) {
	if pnl.IsZero() {
		return models.Wallet{}, false, nil
	}
	wallet, err := s.wallets.GetDefaultForUpdate(ctx, tx, position.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Wallet{}, false, nil
		}
		return models.Wallet{}, false, err
	}
	deltaMinor := money.DecimalToMinor(pnl)
	if deltaMinor == 0 {
		return models.Wallet{}, false, nil
	}
	entryType := models.TxDeposit
	amountMinor := deltaMinor
	if deltaMinor < 0 {
		entryType = models.TxWithdrawal
		debit := -deltaMinor
		if debit > wallet.AvailableBalance {
			s.log.Warn().
				Str("position_id", position.ID).
				Int64("loss_minor", debit).
				Int64("available_minor", wallet.AvailableBalance).
				Msg("trade loss exceeds default wallet balance, debiting what remains")
			debit = wallet.AvailableBalance
		}
		if debit == 0 {
			return models.Wallet{}, false, nil
		}
		wallet.Balance -= debit
		wallet.AvailableBalance -= debit
		amountMinor = -debit
	} else {
		wallet.Balance += deltaMinor
		wallet.AvailableBalance += deltaMinor
	}
	if wallet.Balance != wallet.AvailableBalance+wallet.LockedBalance {
		return models.Wallet{}, false, ErrWalletInvariant
	}
	if err := s.wallets.UpdateBalances(ctx, tx, wallet.ID, wallet.Balance, wallet.AvailableBalance, wallet.LockedBalance); err != nil {
		return models.Wallet{}, false, err
	}
	metadata, _ := json.Marshal(map[string]string{
		"position_id": position.ID,
		"pair":        position.CurrencyPair,
	})
	input := store.WalletTransactionInput{
		ID:              uuid.NewString(),
		WalletID:        wallet.ID,
		UserID:          wallet.UserID,
		TransactionType: entryType,
		AmountMinor:     amountMinor,
		Status:          "COMPLETED",
		ReferenceID:     position.ID,
		Description:     "Trade settlement " + position.CurrencyPair,
		Metadata:        string(metadata),
	}
	if err := s.ledger.Insert(ctx, tx, input); err != nil {
		return models.Wallet{}, false, err
	}
	return wallet, true, nil
}
