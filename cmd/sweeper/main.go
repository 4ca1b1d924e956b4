package main

import (
	"bufio"
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"tradeledger/internal/config"
	"tradeledger/internal/db"
	"tradeledger/internal/services"
	"tradeledger/internal/store"
	"tradeledger/internal/websocket"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// The sweeper walks a price snapshot twice: it closes open positions whose
// stop-loss or take-profit level is crossed, then fills resting limit and
// stop orders whose trigger price is reached. Each line of the snapshot file
// is "PAIR=price", e.g. "EUR/USD=1.0835". Positions and orders whose pair is
// absent from the snapshot are skipped.
func main() {
	pricesPath := flag.String("prices", "prices.txt", "path to the price snapshot file")
	flag.Parse()

	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	defer database.Close()

	prices, err := loadPrices(*pricesPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *pricesPath).Msg("failed to load prices")
	}
	if len(prices) == 0 {
		log.Info().Msg("price snapshot is empty, nothing to do")
		return
	}

	wallets := store.NewWalletStore(database)
	ledger := store.NewWalletTransactionStore(database)
	tradingWallets := store.NewTradingWalletStore(database)
	positions := store.NewPositionStore(database)
	orders := store.NewOrderStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	tradingSvc := services.NewTradingService(txRunner, tradingWallets, positions, orders, wallets, ledger, audit, hub, decimal.Zero, log.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	open, err := positions.ListOpenWithStops(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to list open positions")
	}

	closed := 0
	for _, position := range open {
		price, ok := prices[position.CurrencyPair]
		if !ok {
			continue
		}
		if !services.ShouldTrigger(position, price) {
			continue
		}
		_, err := tradingSvc.ClosePosition(ctx, services.ClosePositionRequest{
			UserID:     position.UserID,
			PositionID: position.ID,
			ExitPrice:  price,
		})
		if err != nil {
			log.Error().Err(err).
				Str("position_id", position.ID).
				Str("pair", position.CurrencyPair).
				Msg("failed to close triggered position")
			continue
		}
		closed++
		log.Info().
			Str("position_id", position.ID).
			Str("pair", position.CurrencyPair).
			Str("exit_price", price.String()).
			Msg("closed triggered position")
	}
	pending, err := orders.ListPending(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to list pending orders")
	}

	filled := 0
	for _, order := range pending {
		price, ok := prices[order.CurrencyPair]
		if !ok {
			continue
		}
		if !services.OrderShouldFill(order, price) {
			continue
		}
		position, err := tradingSvc.FillOrder(ctx, order.ID, price)
		if err != nil {
			log.Error().Err(err).
				Str("order_id", order.ID).
				Str("pair", order.CurrencyPair).
				Msg("failed to fill triggered order")
			continue
		}
		filled++
		log.Info().
			Str("order_id", order.ID).
			Str("position_id", position.ID).
			Str("pair", order.CurrencyPair).
			Str("fill_price", price.String()).
			Msg("filled triggered order")
	}
	log.Info().
		Int("positions_scanned", len(open)).Int("closed", closed).
		Int("orders_scanned", len(pending)).Int("filled", filled).
		Msg("sweep finished")
}

func loadPrices(path string) (map[string]decimal.Decimal, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	prices := map[string]decimal.Decimal{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pair, raw, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		price, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			log.Warn().Str("line", line).Msg("skipping unparseable price line")
			continue
		}
		prices[strings.TrimSpace(pair)] = price
	}
	return prices, scanner.Err()
}
