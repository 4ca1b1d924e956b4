package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"tradeledger/internal/models"
	"tradeledger/internal/store"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func newTradingService(tradingWallets stubTradingWalletStore, positions stubPositionStore, orders stubOrderStore, wallets stubWalletStore, ledger stubLedgerStore, hub *stubHub) *TradingService {
	return NewTradingService(fakeTxRunner{}, tradingWallets, positions, orders, wallets, ledger, stubAuditStore{}, hub, decimal.NewFromInt(50000), zerolog.Nop())
}

func dec(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRequiredMargin(t *testing.T) {
	margin, err := RequiredMargin(dec("10000"), dec("1.2"), dec("100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !margin.Equal(dec("120")) {
		t.Fatalf("expected margin 120, got %s", margin)
	}
}

func TestRequiredMarginInvalidLeverage(t *testing.T) {
	if _, err := RequiredMargin(dec("1"), dec("1"), decimal.Zero); err != ErrInvalidLeverage {
		t.Fatalf("expected ErrInvalidLeverage, got %v", err)
	}
	if _, err := RequiredMargin(dec("1"), dec("1"), dec("-5")); err != ErrInvalidLeverage {
		t.Fatalf("expected ErrInvalidLeverage, got %v", err)
	}
}

func TestProfitLoss(t *testing.T) {
	buy := ProfitLoss(models.SideBuy, dec("1.10"), dec("1.15"), dec("1000"))
	if !buy.Equal(dec("50")) {
		t.Fatalf("expected buy pnl 50, got %s", buy)
	}
	sell := ProfitLoss(models.SideSell, dec("1.10"), dec("1.15"), dec("1000"))
	if !sell.Equal(dec("-50")) {
		t.Fatalf("expected sell pnl -50, got %s", sell)
	}
}

func TestShouldTrigger(t *testing.T) {
	cases := []struct {
		name       string
		side       models.TradeSide
		stopLoss   string
		takeProfit string
		price      string
		want       bool
	}{
		{"buy stop loss hit", models.SideBuy, "1.00", "", "0.99", true},
		{"buy stop loss exact", models.SideBuy, "1.00", "", "1.00", true},
		{"buy stop loss clear", models.SideBuy, "1.00", "", "1.01", false},
		{"buy take profit hit", models.SideBuy, "", "1.20", "1.21", true},
		{"buy take profit clear", models.SideBuy, "", "1.20", "1.19", false},
		{"sell stop loss hit", models.SideSell, "1.20", "", "1.21", true},
		{"sell stop loss clear", models.SideSell, "1.20", "", "1.19", false},
		{"sell take profit hit", models.SideSell, "", "1.00", "0.99", true},
		{"sell take profit clear", models.SideSell, "", "1.00", "1.01", false},
		{"no stops set", models.SideBuy, "", "", "0.01", false},
	}
	for _, tc := range cases {
		position := models.TradingPosition{TradeType: tc.side}
		if tc.stopLoss != "" {
			position.StopLoss = decimal.NewNullDecimal(dec(tc.stopLoss))
		}
		if tc.takeProfit != "" {
			position.TakeProfit = decimal.NewNullDecimal(dec(tc.takeProfit))
		}
		if got := ShouldTrigger(position, dec(tc.price)); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestOpenMarketPositionInsufficientMargin(t *testing.T) {
	service := newTradingService(stubTradingWalletStore{
		getForUpdateFn: func(context.Context, store.Getter, string, models.TradingWalletType) (models.TradingWallet, error) {
			return models.TradingWallet{
				ID: "tw1", UserID: "user-1", WalletType: models.WalletDemo,
				Balance: dec("100"), AvailableMargin: dec("100"), Leverage: dec("100"), IsActive: true,
			}, nil
		},
	}, stubPositionStore{}, stubOrderStore{}, stubWalletStore{}, stubLedgerStore{}, &stubHub{})
	_, err := service.OpenMarketPosition(context.Background(), OpenPositionRequest{
		UserID: "user-1", WalletType: models.WalletDemo, CurrencyPair: "EUR/USD",
		Side: models.SideBuy, Quantity: dec("100000"), Price: dec("1.2"),
	})
	if err != ErrInsufficientMargin {
		t.Fatalf("expected ErrInsufficientMargin, got %v", err)
	}
}

func TestOpenMarketPositionReservesMargin(t *testing.T) {
	var createdPosition models.TradingPosition
	var createdOrder models.TradingOrder
	var usedAfter decimal.Decimal
	hub := &stubHub{}
	service := newTradingService(stubTradingWalletStore{
		getForUpdateFn: func(context.Context, store.Getter, string, models.TradingWalletType) (models.TradingWallet, error) {
			return models.TradingWallet{
				ID: "tw1", UserID: "user-1", WalletType: models.WalletDemo,
				Balance: dec("50000"), AvailableMargin: dec("50000"), UsedMargin: decimal.Zero,
				Leverage: dec("100"), IsActive: true,
			}, nil
		},
		updateMarginsFn: func(_ context.Context, _ store.Execer, _ string, _, usedMargin decimal.Decimal) error {
			usedAfter = usedMargin
			return nil
		},
	}, stubPositionStore{
		createFn: func(_ context.Context, _ store.Execer, position models.TradingPosition) error {
			createdPosition = position
			return nil
		},
	}, stubOrderStore{
		createFn: func(_ context.Context, _ store.Execer, order models.TradingOrder) error {
			createdOrder = order
			return nil
		},
	}, stubWalletStore{}, stubLedgerStore{}, hub)

	result, err := service.OpenMarketPosition(context.Background(), OpenPositionRequest{
		UserID: "user-1", WalletType: models.WalletDemo, CurrencyPair: "EUR/USD",
		Side: models.SideBuy, Quantity: dec("10000"), Price: dec("1.2"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Margin.Equal(dec("120")) {
		t.Fatalf("expected margin 120, got %s", result.Margin)
	}
	if !usedAfter.Equal(dec("120")) {
		t.Fatalf("expected used margin 120, got %s", usedAfter)
	}
	if createdPosition.Status != models.PositionOpen || !createdPosition.MarginReserved.Equal(dec("120")) {
		t.Fatalf("unexpected position: %#v", createdPosition)
	}
	if createdOrder.Status != models.OrderFilled || createdOrder.PositionID == nil {
		t.Fatalf("unexpected order: %#v", createdOrder)
	}
	if len(hub.tradeEvents) != 1 || hub.tradeEvents[0].Event != "position_opened" {
		t.Fatalf("unexpected trade events: %#v", hub.tradeEvents)
	}
}

func TestOpenMarketPositionInactiveWallet(t *testing.T) {
	service := newTradingService(stubTradingWalletStore{
		getForUpdateFn: func(context.Context, store.Getter, string, models.TradingWalletType) (models.TradingWallet, error) {
			return models.TradingWallet{ID: "tw1", UserID: "user-1", Leverage: dec("100")}, nil
		},
	}, stubPositionStore{}, stubOrderStore{}, stubWalletStore{}, stubLedgerStore{}, &stubHub{})
	_, err := service.OpenMarketPosition(context.Background(), OpenPositionRequest{
		UserID: "user-1", WalletType: models.WalletLive, CurrencyPair: "EUR/USD",
		Side: models.SideBuy, Quantity: dec("100"), Price: dec("1.2"),
	})
	if err != ErrWalletInactive {
		t.Fatalf("expected ErrWalletInactive, got %v", err)
	}
}

func TestClosePositionMarginRoundTrip(t *testing.T) {
	var balanceAfter, usedAfter decimal.Decimal
	var closedPnL decimal.Decimal
	hub := &stubHub{}
	service := newTradingService(stubTradingWalletStore{
		getByIDForUpdateFn: func(context.Context, store.Getter, string) (models.TradingWallet, error) {
			return models.TradingWallet{
				ID: "tw1", UserID: "user-1", Balance: dec("50000"),
				AvailableMargin: dec("49880"), UsedMargin: dec("120"),
				Leverage: dec("100"), IsActive: true,
			}, nil
		},
		updateMarginsFn: func(_ context.Context, _ store.Execer, _ string, balance, usedMargin decimal.Decimal) error {
			balanceAfter = balance
			usedAfter = usedMargin
			return nil
		},
	}, stubPositionStore{
		getForUpdateFn: func(context.Context, store.Getter, string) (models.TradingPosition, error) {
			return models.TradingPosition{
				ID: "p1", TradingWalletID: "tw1", UserID: "user-1", CurrencyPair: "EUR/USD",
				TradeType: models.SideBuy, EntryPrice: dec("1.2"), Quantity: dec("10000"),
				MarginReserved: dec("120"), Status: models.PositionOpen, EntryTime: time.Now().UTC(),
			}, nil
		},
		closeFn: func(_ context.Context, _ store.Execer, _ string, _, profitLoss decimal.Decimal, _ time.Time) (int64, error) {
			closedPnL = profitLoss
			return 1, nil
		},
	}, stubOrderStore{}, stubWalletStore{
		getDefaultForUpdateFn: func(context.Context, store.Getter, string) (models.Wallet, error) {
			return models.Wallet{ID: "w1", UserID: "user-1", Currency: "USD", Balance: 100000, AvailableBalance: 100000}, nil
		},
	}, stubLedgerStore{}, hub)

	result, err := service.ClosePosition(context.Background(), ClosePositionRequest{
		UserID: "user-1", PositionID: "p1", ExitPrice: dec("1.25"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.ProfitLoss.Equal(dec("500")) {
		t.Fatalf("expected pnl 500, got %s", result.ProfitLoss)
	}
	if !closedPnL.Equal(dec("500")) {
		t.Fatalf("expected persisted pnl 500, got %s", closedPnL)
	}
	if !usedAfter.Equal(decimal.Zero) {
		t.Fatalf("expected used margin released, got %s", usedAfter)
	}
	if !balanceAfter.Equal(dec("50500")) {
		t.Fatalf("expected balance 50500, got %s", balanceAfter)
	}
	if len(hub.tradeEvents) != 1 || hub.tradeEvents[0].Event != "position_closed" {
		t.Fatalf("unexpected trade events: %#v", hub.tradeEvents)
	}
	if len(hub.walletUpdates) != 1 {
		t.Fatalf("expected default wallet broadcast, got %d", len(hub.walletUpdates))
	}
}

func TestClosePositionAlreadyClosed(t *testing.T) {
	service := newTradingService(stubTradingWalletStore{}, stubPositionStore{
		getForUpdateFn: func(context.Context, store.Getter, string) (models.TradingPosition, error) {
			return models.TradingPosition{ID: "p1", UserID: "user-1", Status: models.PositionClosed}, nil
		},
	}, stubOrderStore{}, stubWalletStore{}, stubLedgerStore{}, &stubHub{})
	_, err := service.ClosePosition(context.Background(), ClosePositionRequest{
		UserID: "user-1", PositionID: "p1", ExitPrice: dec("1.25"),
	})
	if err != ErrAlreadyClosed {
		t.Fatalf("expected ErrAlreadyClosed, got %v", err)
	}
}

func TestClosePositionLossClampedToWallet(t *testing.T) {
	var ledgerAmount int64
	service := newTradingService(stubTradingWalletStore{
		getByIDForUpdateFn: func(context.Context, store.Getter, string) (models.TradingWallet, error) {
			return models.TradingWallet{
				ID: "tw1", UserID: "user-1", Balance: dec("50000"),
				UsedMargin: dec("120"), Leverage: dec("100"), IsActive: true,
			}, nil
		},
	}, stubPositionStore{
		getForUpdateFn: func(context.Context, store.Getter, string) (models.TradingPosition, error) {
			return models.TradingPosition{
				ID: "p1", TradingWalletID: "tw1", UserID: "user-1", CurrencyPair: "EUR/USD",
				TradeType: models.SideBuy, EntryPrice: dec("1.2"), Quantity: dec("10000"),
				MarginReserved: dec("120"), Status: models.PositionOpen,
			}, nil
		},
	}, stubOrderStore{}, stubWalletStore{
		getDefaultForUpdateFn: func(context.Context, store.Getter, string) (models.Wallet, error) {
			return models.Wallet{ID: "w1", UserID: "user-1", Currency: "USD", Balance: 4000, AvailableBalance: 4000}, nil
		},
	}, stubLedgerStore{
		insertFn: func(_ context.Context, _ store.Execer, input store.WalletTransactionInput) error {
			ledgerAmount = input.AmountMinor
			return nil
		},
	}, &stubHub{})

	// pnl is -100.00, the mirror only holds 40.00
	result, err := service.ClosePosition(context.Background(), ClosePositionRequest{
		UserID: "user-1", PositionID: "p1", ExitPrice: dec("1.19"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.ProfitLoss.Equal(dec("-100")) {
		t.Fatalf("expected pnl -100, got %s", result.ProfitLoss)
	}
	if ledgerAmount != -4000 {
		t.Fatalf("expected clamped debit of -4000 minor, got %d", ledgerAmount)
	}
}

func TestClosePositionLossExceedsEquity(t *testing.T) {
	var balanceAfter, usedAfter decimal.Decimal
	service := newTradingService(stubTradingWalletStore{
		getByIDForUpdateFn: func(context.Context, store.Getter, string) (models.TradingWallet, error) {
			return models.TradingWallet{
				ID: "tw1", UserID: "user-1", Balance: dec("5000"),
				AvailableMargin: dec("4000"), UsedMargin: dec("1000"),
				Leverage: dec("100"), IsActive: true,
			}, nil
		},
		updateMarginsFn: func(_ context.Context, _ store.Execer, _ string, balance, usedMargin decimal.Decimal) error {
			balanceAfter = balance
			usedAfter = usedMargin
			return nil
		},
	}, stubPositionStore{
		getForUpdateFn: func(context.Context, store.Getter, string) (models.TradingPosition, error) {
			return models.TradingPosition{
				ID: "p1", TradingWalletID: "tw1", UserID: "user-1", CurrencyPair: "EUR/USD",
				TradeType: models.SideBuy, EntryPrice: dec("100"), Quantity: dec("100"),
				MarginReserved: dec("1000"), Status: models.PositionOpen,
			}, nil
		},
	}, stubOrderStore{}, stubWalletStore{
		getDefaultForUpdateFn: func(context.Context, store.Getter, string) (models.Wallet, error) {
			return models.Wallet{ID: "w1", UserID: "user-1", Currency: "USD"}, nil
		},
	}, stubLedgerStore{}, &stubHub{})

	// pnl is -6000 against 5000 of equity
	result, err := service.ClosePosition(context.Background(), ClosePositionRequest{
		UserID: "user-1", PositionID: "p1", ExitPrice: dec("40"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.ProfitLoss.Equal(dec("-6000")) {
		t.Fatalf("expected pnl -6000, got %s", result.ProfitLoss)
	}
	if !usedAfter.Equal(decimal.Zero) {
		t.Fatalf("expected used margin released, got %s", usedAfter)
	}
	// Balance floors at the remaining used margin, never below it.
	if !balanceAfter.Equal(decimal.Zero) {
		t.Fatalf("expected balance floored at 0, got %s", balanceAfter)
	}
	if result.Position.Status != models.PositionClosed {
		t.Fatalf("expected position closed, got %s", result.Position.Status)
	}
}

func TestEnsureWalletLostInsertRace(t *testing.T) {
	existing := models.TradingWallet{
		ID: "tw1", UserID: "user-1", WalletType: models.WalletDemo,
		Balance: dec("50000"), AvailableMargin: dec("50000"), IsActive: true,
	}
	lookups := 0
	service := newTradingService(stubTradingWalletStore{
		getByUserAndTypeFn: func(context.Context, string, models.TradingWalletType) (models.TradingWallet, error) {
			lookups++
			if lookups == 1 {
				return models.TradingWallet{}, sql.ErrNoRows
			}
			return existing, nil
		},
		createFn: func(context.Context, store.Execer, models.TradingWallet) error {
			return &pq.Error{Code: "23505"}
		},
	}, stubPositionStore{}, stubOrderStore{}, stubWalletStore{}, stubLedgerStore{}, &stubHub{})

	wallet, err := service.EnsureWallet(context.Background(), "user-1", models.WalletDemo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wallet.ID != existing.ID {
		t.Fatalf("expected the winner's wallet, got %#v", wallet)
	}
	if lookups != 2 {
		t.Fatalf("expected a re-fetch after the unique violation, got %d lookups", lookups)
	}
}

func TestOrderShouldFill(t *testing.T) {
	cases := []struct {
		name      string
		orderType models.OrderType
		side      models.TradeSide
		target    string
		price     string
		want      bool
	}{
		{"limit buy reached", models.OrderLimit, models.SideBuy, "1.10", "1.09", true},
		{"limit buy exact", models.OrderLimit, models.SideBuy, "1.10", "1.10", true},
		{"limit buy clear", models.OrderLimit, models.SideBuy, "1.10", "1.11", false},
		{"limit sell reached", models.OrderLimit, models.SideSell, "1.20", "1.21", true},
		{"limit sell clear", models.OrderLimit, models.SideSell, "1.20", "1.19", false},
		{"stop buy reached", models.OrderStop, models.SideBuy, "1.30", "1.31", true},
		{"stop buy clear", models.OrderStop, models.SideBuy, "1.30", "1.29", false},
		{"stop sell reached", models.OrderStop, models.SideSell, "1.00", "0.99", true},
		{"stop limit follows stop rule", models.OrderStopLimit, models.SideSell, "1.00", "0.99", true},
		{"market never rests", models.OrderMarket, models.SideBuy, "1.10", "1.00", false},
	}
	for _, tc := range cases {
		order := models.TradingOrder{
			OrderType: tc.orderType, Side: tc.side,
			Price: decimal.NewNullDecimal(dec(tc.target)), Status: models.OrderPending,
		}
		if got := OrderShouldFill(order, dec(tc.price)); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
	filled := models.TradingOrder{
		OrderType: models.OrderLimit, Side: models.SideBuy,
		Price: decimal.NewNullDecimal(dec("1.10")), Status: models.OrderFilled,
	}
	if OrderShouldFill(filled, dec("1.00")) {
		t.Fatal("filled order must not trigger again")
	}
}

func TestFillOrderReservesMargin(t *testing.T) {
	var filledOrderID, filledPositionID string
	var usedAfter decimal.Decimal
	var createdPosition models.TradingPosition
	hub := &stubHub{}
	service := newTradingService(stubTradingWalletStore{
		getByIDForUpdateFn: func(context.Context, store.Getter, string) (models.TradingWallet, error) {
			return models.TradingWallet{
				ID: "tw1", UserID: "user-1", Balance: dec("50000"),
				AvailableMargin: dec("50000"), UsedMargin: decimal.Zero,
				Leverage: dec("100"), IsActive: true,
			}, nil
		},
		updateMarginsFn: func(_ context.Context, _ store.Execer, _ string, _, usedMargin decimal.Decimal) error {
			usedAfter = usedMargin
			return nil
		},
	}, stubPositionStore{
		createFn: func(_ context.Context, _ store.Execer, position models.TradingPosition) error {
			createdPosition = position
			return nil
		},
	}, stubOrderStore{
		getForUpdateFn: func(context.Context, store.Getter, string) (models.TradingOrder, error) {
			return models.TradingOrder{
				ID: "o1", TradingWalletID: "tw1", UserID: "user-1", CurrencyPair: "EUR/USD",
				OrderType: models.OrderLimit, Side: models.SideBuy, Quantity: dec("10000"),
				Price: decimal.NewNullDecimal(dec("1.15")), Status: models.OrderPending,
			}, nil
		},
		markFilledFn: func(_ context.Context, _ store.Execer, orderID, positionID string, _ time.Time) error {
			filledOrderID = orderID
			filledPositionID = positionID
			return nil
		},
	}, stubWalletStore{}, stubLedgerStore{}, hub)

	position, err := service.FillOrder(context.Background(), "o1", dec("1.15"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !position.EntryPrice.Equal(dec("1.15")) || !position.MarginReserved.Equal(dec("115")) {
		t.Fatalf("unexpected position: %#v", position)
	}
	if !usedAfter.Equal(dec("115")) {
		t.Fatalf("expected used margin 115, got %s", usedAfter)
	}
	if filledOrderID != "o1" || filledPositionID != createdPosition.ID {
		t.Fatalf("fill did not link order o1 to position %s: %s %s", createdPosition.ID, filledOrderID, filledPositionID)
	}
	if len(hub.tradeEvents) != 1 || hub.tradeEvents[0].Event != "position_opened" {
		t.Fatalf("unexpected trade events: %#v", hub.tradeEvents)
	}
}

func TestFillOrderNotPending(t *testing.T) {
	service := newTradingService(stubTradingWalletStore{}, stubPositionStore{}, stubOrderStore{
		getForUpdateFn: func(context.Context, store.Getter, string) (models.TradingOrder, error) {
			return models.TradingOrder{ID: "o1", Status: models.OrderCancelled}, nil
		},
	}, stubWalletStore{}, stubLedgerStore{}, &stubHub{})
	if _, err := service.FillOrder(context.Background(), "o1", dec("1.15")); err != ErrInvalidState {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestFillOrderInsufficientMargin(t *testing.T) {
	service := newTradingService(stubTradingWalletStore{
		getByIDForUpdateFn: func(context.Context, store.Getter, string) (models.TradingWallet, error) {
			return models.TradingWallet{
				ID: "tw1", UserID: "user-1", Balance: dec("100"),
				AvailableMargin: dec("100"), Leverage: dec("100"), IsActive: true,
			}, nil
		},
	}, stubPositionStore{}, stubOrderStore{
		getForUpdateFn: func(context.Context, store.Getter, string) (models.TradingOrder, error) {
			return models.TradingOrder{
				ID: "o1", TradingWalletID: "tw1", UserID: "user-1",
				OrderType: models.OrderLimit, Side: models.SideBuy, Quantity: dec("100000"),
				Price: decimal.NewNullDecimal(dec("1.15")), Status: models.OrderPending,
			}, nil
		},
	}, stubWalletStore{}, stubLedgerStore{}, &stubHub{})
	if _, err := service.FillOrder(context.Background(), "o1", dec("1.15")); err != ErrInsufficientMargin {
		t.Fatalf("expected ErrInsufficientMargin, got %v", err)
	}
}

func TestClosePositionUnauthorized(t *testing.T) {
	service := newTradingService(stubTradingWalletStore{}, stubPositionStore{
		getForUpdateFn: func(context.Context, store.Getter, string) (models.TradingPosition, error) {
			return models.TradingPosition{ID: "p1", UserID: "other", Status: models.PositionOpen}, nil
		},
	}, stubOrderStore{}, stubWalletStore{}, stubLedgerStore{}, &stubHub{})
	_, err := service.ClosePosition(context.Background(), ClosePositionRequest{
		UserID: "user-1", PositionID: "p1", ExitPrice: dec("1.25"),
	})
	if err != ErrUnauthorizedEntity {
		t.Fatalf("expected ErrUnauthorizedEntity, got %v", err)
	}
}

func TestCancelOrderNotPending(t *testing.T) {
	service := newTradingService(stubTradingWalletStore{}, stubPositionStore{}, stubOrderStore{
		getForUpdateFn: func(context.Context, store.Getter, string) (models.TradingOrder, error) {
			return models.TradingOrder{ID: "o1", UserID: "user-1", Status: models.OrderFilled}, nil
		},
		cancelFn: func(context.Context, store.Execer, string) (int64, error) {
			return 0, nil
		},
	}, stubWalletStore{}, stubLedgerStore{}, &stubHub{})
	if err := service.CancelOrder(context.Background(), "user-1", "o1"); err != ErrInvalidState {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestPlaceLimitOrderPending(t *testing.T) {
	var created models.TradingOrder
	service := newTradingService(stubTradingWalletStore{
		getForUpdateFn: func(context.Context, store.Getter, string, models.TradingWalletType) (models.TradingWallet, error) {
			return models.TradingWallet{ID: "tw1", UserID: "user-1", Leverage: dec("100"), IsActive: true}, nil
		},
	}, stubPositionStore{}, stubOrderStore{
		createFn: func(_ context.Context, _ store.Execer, order models.TradingOrder) error {
			created = order
			return nil
		},
	}, stubWalletStore{}, stubLedgerStore{}, &stubHub{})

	order, err := service.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID: "user-1", WalletType: models.WalletDemo, CurrencyPair: "EUR/USD",
		OrderType: models.OrderLimit, Side: models.SideBuy,
		Quantity: dec("1000"), Price: decimal.NewNullDecimal(dec("1.15")),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != models.OrderPending || created.Status != models.OrderPending {
		t.Fatalf("expected pending order, got %#v", order)
	}
}
