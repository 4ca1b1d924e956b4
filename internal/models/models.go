package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type CurrencyType string

const (
	CurrencyFiat   CurrencyType = "FIAT"
	CurrencyCrypto CurrencyType = "CRYPTO"
)

// Wallet keeps a three-way balance in int64 minor units.
// balance == available_balance + locked_balance holds at every commit.
type Wallet struct {
	ID               string       `db:"id" json:"id"`
	UserID           string       `db:"user_id" json:"user_id"`
	Currency         string       `db:"currency" json:"currency"`
	CurrencyType     CurrencyType `db:"currency_type" json:"currency_type"`
	Balance          int64        `db:"balance" json:"balance"`
	AvailableBalance int64        `db:"available_balance" json:"available_balance"`
	LockedBalance    int64        `db:"locked_balance" json:"locked_balance"`
	IsDefault        bool         `db:"is_default" json:"is_default"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
}

type WalletTransactionType string

const (
	TxDeposit     WalletTransactionType = "DEPOSIT"
	TxWithdrawal  WalletTransactionType = "WITHDRAWAL"
	TxTransferIn  WalletTransactionType = "TRANSFER_IN"
	TxTransferOut WalletTransactionType = "TRANSFER_OUT"
	TxLock        WalletTransactionType = "LOCK"
	TxUnlock      WalletTransactionType = "UNLOCK"
)

// WalletTransaction is an append-only ledger line. Rows are never updated.
type WalletTransaction struct {
	ID              string                `db:"id" json:"id"`
	WalletID        string                `db:"wallet_id" json:"wallet_id"`
	UserID          string                `db:"user_id" json:"user_id"`
	TransactionType WalletTransactionType `db:"transaction_type" json:"transaction_type"`
	AmountMinor     int64                 `db:"amount" json:"amount"`
	FeeMinor        int64                 `db:"fee" json:"fee"`
	Status          string                `db:"status" json:"status"`
	ReferenceID     string                `db:"reference_id" json:"reference_id"`
	Description     string                `db:"description" json:"description"`
	Metadata        string                `db:"metadata" json:"metadata"`
	CreatedAt       time.Time             `db:"created_at" json:"created_at"`
}

type TradingWalletType string

const (
	WalletDemo TradingWalletType = "DEMO"
	WalletLive TradingWalletType = "LIVE"
)

// TradingWallet is the per-mode margin sub-account.
// available_margin == balance - used_margin is re-derived on every mutation.
type TradingWallet struct {
	ID              string            `db:"id" json:"id"`
	UserID          string            `db:"user_id" json:"user_id"`
	WalletType      TradingWalletType `db:"wallet_type" json:"wallet_type"`
	Balance         decimal.Decimal   `db:"balance" json:"balance"`
	AvailableMargin decimal.Decimal   `db:"available_margin" json:"available_margin"`
	UsedMargin      decimal.Decimal   `db:"used_margin" json:"used_margin"`
	Leverage        decimal.Decimal   `db:"leverage" json:"leverage"`
	RiskPercentage  decimal.Decimal   `db:"risk_percentage" json:"risk_percentage"`
	IsActive        bool              `db:"is_active" json:"is_active"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
}

type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

type PositionStatus string

const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

type TradingPosition struct {
	ID              string              `db:"id" json:"id"`
	TradingWalletID string              `db:"trading_wallet_id" json:"trading_wallet_id"`
	UserID          string              `db:"user_id" json:"user_id"`
	CurrencyPair    string              `db:"currency_pair" json:"currency_pair"`
	TradeType       TradeSide           `db:"trade_type" json:"trade_type"`
	EntryPrice      decimal.Decimal     `db:"entry_price" json:"entry_price"`
	Quantity        decimal.Decimal     `db:"quantity" json:"quantity"`
	MarginReserved  decimal.Decimal     `db:"margin_reserved" json:"margin_reserved"`
	StopLoss        decimal.NullDecimal `db:"stop_loss" json:"stop_loss"`
	TakeProfit      decimal.NullDecimal `db:"take_profit" json:"take_profit"`
	Status          PositionStatus      `db:"status" json:"status"`
	EntryTime       time.Time           `db:"entry_time" json:"entry_time"`
	ExitPrice       decimal.NullDecimal `db:"exit_price" json:"exit_price"`
	ExitTime        *time.Time          `db:"exit_time" json:"exit_time,omitempty"`
	ProfitLoss      decimal.NullDecimal `db:"profit_loss" json:"profit_loss"`
}

type OrderType string

const (
	OrderMarket    OrderType = "MARKET"
	OrderLimit     OrderType = "LIMIT"
	OrderStop      OrderType = "STOP"
	OrderStopLimit OrderType = "STOP_LIMIT"
)

type OrderStatus string

// The source system used both CANCELED and CANCELLED; CANCELLED is canonical here.
const (
	OrderPending   OrderStatus = "PENDING"
	OrderFilled    OrderStatus = "FILLED"
	OrderCancelled OrderStatus = "CANCELLED"
)

type TradingOrder struct {
	ID              string              `db:"id" json:"id"`
	TradingWalletID string              `db:"trading_wallet_id" json:"trading_wallet_id"`
	UserID          string              `db:"user_id" json:"user_id"`
	CurrencyPair    string              `db:"currency_pair" json:"currency_pair"`
	OrderType       OrderType           `db:"order_type" json:"order_type"`
	Side            TradeSide           `db:"side" json:"side"`
	Quantity        decimal.Decimal     `db:"quantity" json:"quantity"`
	Price           decimal.NullDecimal `db:"price" json:"price"`
	Status          OrderStatus         `db:"status" json:"status"`
	PositionID      *string             `db:"position_id" json:"position_id,omitempty"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	FilledAt        *time.Time          `db:"filled_at" json:"filled_at,omitempty"`
}

// ConnectedAccount mirrors an external bank-like account. Its balances are
// adjusted locally; no real settlement happens against the provider.
type ConnectedAccount struct {
	ID               string    `db:"id" json:"id"`
	UserID           string    `db:"user_id" json:"user_id"`
	Provider         string    `db:"provider" json:"provider"`
	AccountName      string    `db:"account_name" json:"account_name"`
	AvailableBalance int64     `db:"available_balance" json:"available_balance"`
	CurrentBalance   int64     `db:"current_balance" json:"current_balance"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

type FundingType string

const (
	FundingDeposit    FundingType = "DEPOSIT"
	FundingWithdrawal FundingType = "WITHDRAWAL"
)

type FundingStatus string

const (
	FundingPending   FundingStatus = "PENDING"
	FundingCompleted FundingStatus = "COMPLETED"
	FundingCancelled FundingStatus = "CANCELLED"
)

// FundingTransaction is the two-phase external transfer record. Funds are
// reserved (debited) at initiation and settled on completion; PENDING is the
// only state that can transition.
type FundingTransaction struct {
	ID                 string        `db:"id" json:"id"`
	UserID             string        `db:"user_id" json:"user_id"`
	ConnectedAccountID string        `db:"connected_account_id" json:"connected_account_id"`
	WalletID           string        `db:"wallet_id" json:"wallet_id"`
	TransactionType    FundingType   `db:"transaction_type" json:"transaction_type"`
	AmountMinor        int64         `db:"amount" json:"amount"`
	Status             FundingStatus `db:"status" json:"status"`
	ReferenceID        string        `db:"reference_id" json:"reference_id"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
	CompletedAt        *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
}
