package handlers

import (
	"net/http"

	"tradeledger/internal/config"
	"tradeledger/internal/db"
	"tradeledger/internal/middleware"
	"tradeledger/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

type Handler struct {
	txRunner    db.TxRunner
	cfg         config.Config
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
	hub         *websocket.Hub
}

func New(txRunner db.TxRunner, cfg config.Config, users UserStore, wallets WalletStore, ledger WalletTransactionStore, trading TradingWalletStore, positions PositionStore, orders OrderStore, accounts ConnectedAccountStore, funding FundingStore, walletSvc WalletService, tradingSvc TradingService, fundingSvc FundingService, performance PerformanceService, hub *websocket.Hub) *Handler {
	return &Handler{
		txRunner:    txRunner,
		cfg:         cfg,
		users:       users,
		wallets:     wallets,
		ledger:      ledger,
		trading:     trading,
		positions:   positions,
		orders:      orders,
		accounts:    accounts,
		funding:     funding,
		walletSvc:   walletSvc,
		tradingSvc:  tradingSvc,
		fundingSvc:  fundingSvc,
		performance: performance,
		hub:         hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authRequired := middleware.Auth(h.cfg.JWTSecret)
	limited := middleware.RateLimit(rate.Limit(10), 20)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(authRequired).Get("/me", h.Me)
	})

	router.Group(func(r chi.Router) {
		r.Use(authRequired)
		r.Get("/wallets", h.ListWallets)
		r.Get("/wallets/{id}", h.GetWallet)
		r.Get("/wallets/{id}/transactions", h.ListWalletTransactions)
		r.Get("/wallets/{id}/reconcile", h.ReconcileWallet)
		r.Get("/trading/wallets", h.ListTradingWallets)
		r.Get("/trading/positions", h.ListPositions)
		r.Get("/trading/orders", h.ListOrders)
		r.Get("/funding/accounts", h.ListConnectedAccounts)
		r.Get("/funding/transactions", h.ListFundingTransactions)
		r.Get("/performance/summary", h.PerformanceSummary)
		r.Get("/performance/metrics", h.PerformanceMetrics)

		r.Group(func(r chi.Router) {
			r.Use(limited)
			r.Post("/wallets", h.CreateWallet)
			r.Post("/wallets/{id}/deposit", h.Deposit)
			r.Post("/wallets/{id}/withdraw", h.Withdraw)
			r.Post("/wallets/{id}/lock", h.LockFunds)
			r.Post("/wallets/{id}/unlock", h.UnlockFunds)
			r.Post("/wallets/transfer", h.Transfer)
			r.Post("/trading/orders", h.PlaceOrder)
			r.Delete("/trading/orders/{id}", h.CancelOrder)
			r.Post("/trading/positions/{id}/close", h.ClosePosition)
			r.Post("/funding/accounts", h.ConnectAccount)
			r.Post("/funding/deposits", h.InitiateDeposit)
			r.Post("/funding/withdrawals", h.InitiateWithdrawal)
			r.Post("/funding/transactions/{id}/complete", h.CompleteFunding)
			r.Post("/funding/transactions/{id}/cancel", h.CancelFunding)
		})
	})

	router.Get("/ws/updates", h.WSUpdates)
	return router
}
