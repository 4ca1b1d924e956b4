package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradeledger/internal/config"
	"tradeledger/internal/db"
	"tradeledger/internal/handlers"
	"tradeledger/internal/services"
	"tradeledger/internal/store"
	"tradeledger/internal/websocket"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.AppEnv)

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	defer database.Close()

	demoSeed, err := decimal.NewFromString(cfg.DemoSeedBalance)
	if err != nil {
		log.Fatal().Err(err).Str("value", cfg.DemoSeedBalance).Msg("invalid DEMO_SEED_BALANCE")
	}

	users := store.NewUserStore(database)
	wallets := store.NewWalletStore(database)
	ledger := store.NewWalletTransactionStore(database)
	tradingWallets := store.NewTradingWalletStore(database)
	positions := store.NewPositionStore(database)
	orders := store.NewOrderStore(database)
	accounts := store.NewConnectedAccountStore(database)
	funding := store.NewFundingStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	walletSvc := services.NewWalletService(txRunner, wallets, ledger, audit, hub, log.Logger)
	tradingSvc := services.NewTradingService(txRunner, tradingWallets, positions, orders, wallets, ledger, audit, hub, demoSeed, log.Logger)
	fundingSvc := services.NewFundingService(txRunner, accounts, funding, walletSvc, audit, log.Logger)
	performance := services.NewPerformanceService(positions)

	handler := handlers.New(txRunner, cfg, users, wallets, ledger, tradingWallets, positions, orders, accounts, funding, walletSvc, tradingSvc, fundingSvc, performance, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("trade ledger API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("shutdown error")
	}
}

func setupLogging(appEnv string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if appEnv == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
