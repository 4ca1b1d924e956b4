package store

import (
	"context"

	"tradeledger/internal/models"
)

// ConnectedAccountStore manages the locally mirrored external balances. The
// mirror is debited and credited as if it were the real account; there is no
// settlement call behind it.
type ConnectedAccountStore struct {
	db DB
}

func NewConnectedAccountStore(db DB) *ConnectedAccountStore {
	return &ConnectedAccountStore{db: db}
}

func (s *ConnectedAccountStore) Create(ctx context.Context, tx Execer, account models.ConnectedAccount) error {
	query := `
		INSERT INTO connected_accounts (id, user_id, provider, account_name, available_balance, current_balance)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.ExecContext(ctx, query,
		account.ID, account.UserID, account.Provider, account.AccountName,
		account.AvailableBalance, account.CurrentBalance,
	)
	return err
}

func (s *ConnectedAccountStore) GetForUpdate(ctx context.Context, tx Getter, accountID string) (models.ConnectedAccount, error) {
	var row models.ConnectedAccount
	err := tx.GetContext(ctx, &row, `
		SELECT id, user_id, provider, account_name, available_balance, current_balance
		FROM connected_accounts
		WHERE id = $1
		FOR UPDATE
	`, accountID)
	if err != nil {
		return models.ConnectedAccount{}, err
	}
	return row, nil
}

func (s *ConnectedAccountStore) ListByUser(ctx context.Context, userID string) ([]models.ConnectedAccount, error) {
	var rows []models.ConnectedAccount
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, provider, account_name, available_balance, current_balance, created_at
		FROM connected_accounts
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *ConnectedAccountStore) UpdateBalances(ctx context.Context, tx Execer, accountID string, available, current int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE connected_accounts
		SET available_balance = $1, current_balance = $2, updated_at = NOW()
		WHERE id = $3
	`, available, current, accountID)
	return err
}
