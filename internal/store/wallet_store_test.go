package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"tradeledger/internal/models"
)

func TestWalletStoreCreate(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO wallets") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 8 {
				t.Fatalf("expected 8 args, got %d", len(args))
			}
			if args[0] != "w1" || args[2] != "USD" || args[7] != true {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewWalletStore(stubDB{})
	err := store.Create(ctx, execer, models.Wallet{
		ID: "w1", UserID: "user-1", Currency: "USD", CurrencyType: models.CurrencyFiat, IsDefault: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWalletStoreGetForUpdate(t *testing.T) {
	ctx := context.Background()
	getter := stubGetter{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FOR UPDATE") {
				t.Fatalf("expected row lock, got: %s", query)
			}
			if len(args) != 1 || args[0] != "w1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*models.Wallet) = models.Wallet{ID: "w1", Balance: 1000}
			return nil
		},
	}
	store := NewWalletStore(stubDB{})
	wallet, err := store.GetForUpdate(ctx, getter, "w1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wallet.ID != "w1" || wallet.Balance != 1000 {
		t.Fatalf("unexpected wallet: %#v", wallet)
	}
}

func TestWalletStoreGetDefaultForUpdate(t *testing.T) {
	ctx := context.Background()
	getter := stubGetter{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "is_default = TRUE") || !strings.Contains(query, "FOR UPDATE") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 1 || args[0] != "user-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*models.Wallet) = models.Wallet{ID: "w1", IsDefault: true}
			return nil
		},
	}
	store := NewWalletStore(stubDB{})
	wallet, err := store.GetDefaultForUpdate(ctx, getter, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !wallet.IsDefault {
		t.Fatalf("unexpected wallet: %#v", wallet)
	}
}

func TestWalletStoreUpdateBalances(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "SET balance = $1, available_balance = $2, locked_balance = $3") {
				t.Fatalf("unexpected query: %s", query)
			}
			if args[0] != int64(1000) || args[1] != int64(700) || args[2] != int64(300) || args[3] != "w1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewWalletStore(stubDB{})
	if err := store.UpdateBalances(ctx, execer, "w1", 1000, 700, 300); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWalletStoreHasDefault(t *testing.T) {
	ctx := context.Background()
	store := NewWalletStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "SELECT EXISTS") {
				t.Fatalf("unexpected query: %s", query)
			}
			*dest.(*bool) = true
			return nil
		},
	})
	has, err := store.HasDefault(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !has {
		t.Fatal("expected default wallet")
	}
}
