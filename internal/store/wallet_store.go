package store

import (
	"context"

	"tradeledger/internal/models"
)

type WalletStore struct {
	db DB
}

func NewWalletStore(db DB) *WalletStore {
	return &WalletStore{db: db}
}

func (s *WalletStore) Create(ctx context.Context, tx Execer, wallet models.Wallet) error {
	query := `
		INSERT INTO wallets (id, user_id, currency, currency_type, balance, available_balance, locked_balance, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := tx.ExecContext(ctx, query,
		wallet.ID, wallet.UserID, wallet.Currency, wallet.CurrencyType,
		wallet.Balance, wallet.AvailableBalance, wallet.LockedBalance, wallet.IsDefault,
	)
	return err
}

func (s *WalletStore) GetByID(ctx context.Context, walletID string) (models.Wallet, error) {
	var row models.Wallet
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, currency, currency_type, balance, available_balance, locked_balance, is_default, created_at
		FROM wallets
		WHERE id = $1
	`, walletID)
	if err != nil {
		return models.Wallet{}, err
	}
	return row, nil
}

func (s *WalletStore) GetForUpdate(ctx context.Context, tx Getter, walletID string) (models.Wallet, error) {
	var row models.Wallet
	err := tx.GetContext(ctx, &row, `
		SELECT id, user_id, currency, currency_type, balance, available_balance, locked_balance, is_default
		FROM wallets
		WHERE id = $1
		FOR UPDATE
	`, walletID)
	if err != nil {
		return models.Wallet{}, err
	}
	return row, nil
}

func (s *WalletStore) GetDefaultForUpdate(ctx context.Context, tx Getter, userID string) (models.Wallet, error) {
	var row models.Wallet
	err := tx.GetContext(ctx, &row, `
		SELECT id, user_id, currency, currency_type, balance, available_balance, locked_balance, is_default
		FROM wallets
		WHERE user_id = $1 AND is_default = TRUE
		FOR UPDATE
	`, userID)
	if err != nil {
		return models.Wallet{}, err
	}
	return row, nil
}

func (s *WalletStore) ListByUser(ctx context.Context, userID string) ([]models.Wallet, error) {
	var rows []models.Wallet
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, currency, currency_type, balance, available_balance, locked_balance, is_default, created_at
		FROM wallets
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateBalances writes all three balance columns at once so the
// balance = available + locked invariant is never split across statements.
func (s *WalletStore) UpdateBalances(ctx context.Context, tx Execer, walletID string, balance, available, locked int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = $1, available_balance = $2, locked_balance = $3, updated_at = NOW()
		WHERE id = $4
	`, balance, available, locked, walletID)
	return err
}

func (s *WalletStore) HasDefault(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM wallets WHERE user_id = $1 AND is_default = TRUE)
	`, userID)
	return exists, err
}
