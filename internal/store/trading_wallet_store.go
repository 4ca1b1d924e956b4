package store

import (
	"context"

	"tradeledger/internal/models"

	"github.com/shopspring/decimal"
)

type TradingWalletStore struct {
	db DB
}

func NewTradingWalletStore(db DB) *TradingWalletStore {
	return &TradingWalletStore{db: db}
}

func (s *TradingWalletStore) Create(ctx context.Context, tx Execer, wallet models.TradingWallet) error {
	query := `
		INSERT INTO trading_wallets (id, user_id, wallet_type, balance, available_margin, used_margin, leverage, risk_percentage, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := tx.ExecContext(ctx, query,
		wallet.ID, wallet.UserID, wallet.WalletType,
		wallet.Balance, wallet.AvailableMargin, wallet.UsedMargin,
		wallet.Leverage, wallet.RiskPercentage, wallet.IsActive,
	)
	return err
}

func (s *TradingWalletStore) GetByUserAndType(ctx context.Context, userID string, walletType models.TradingWalletType) (models.TradingWallet, error) {
	var row models.TradingWallet
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, wallet_type, balance, available_margin, used_margin, leverage, risk_percentage, is_active, created_at
		FROM trading_wallets
		WHERE user_id = $1 AND wallet_type = $2
	`, userID, walletType)
	if err != nil {
		return models.TradingWallet{}, err
	}
	return row, nil
}

func (s *TradingWalletStore) GetForUpdate(ctx context.Context, tx Getter, userID string, walletType models.TradingWalletType) (models.TradingWallet, error) {
	var row models.TradingWallet
	err := tx.GetContext(ctx, &row, `
		SELECT id, user_id, wallet_type, balance, available_margin, used_margin, leverage, risk_percentage, is_active
		FROM trading_wallets
		WHERE user_id = $1 AND wallet_type = $2
		FOR UPDATE
	`, userID, walletType)
	if err != nil {
		return models.TradingWallet{}, err
	}
	return row, nil
}

func (s *TradingWalletStore) GetByIDForUpdate(ctx context.Context, tx Getter, walletID string) (models.TradingWallet, error) {
	var row models.TradingWallet
	err := tx.GetContext(ctx, &row, `
		SELECT id, user_id, wallet_type, balance, available_margin, used_margin, leverage, risk_percentage, is_active
		FROM trading_wallets
		WHERE id = $1
		FOR UPDATE
	`, walletID)
	if err != nil {
		return models.TradingWallet{}, err
	}
	return row, nil
}

func (s *TradingWalletStore) ListByUser(ctx context.Context, userID string) ([]models.TradingWallet, error) {
	var rows []models.TradingWallet
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, wallet_type, balance, available_margin, used_margin, leverage, risk_percentage, is_active, created_at
		FROM trading_wallets
		WHERE user_id = $1
		ORDER BY wallet_type
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateMargins writes balance and used_margin and re-derives available_margin
// in the same statement, keeping available = balance - used at the row level.
func (s *TradingWalletStore) UpdateMargins(ctx context.Context, tx Execer, walletID string, balance, usedMargin decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE trading_wallets
		SET balance = $1, used_margin = $2, available_margin = $1 - $2, updated_at = NOW()
		WHERE id = $3
	`, balance, usedMargin, walletID)
	return err
}
