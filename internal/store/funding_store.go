package store

import (
	"context"
	"time"

	"tradeledger/internal/models"
)

type FundingStore struct {
	db DB
}

func NewFundingStore(db DB) *FundingStore {
	return &FundingStore{db: db}
}

const fundingColumns = `
	id, user_id, connected_account_id, wallet_id, transaction_type, amount,
	status, reference_id, created_at, completed_at`

func (s *FundingStore) Create(ctx context.Context, tx Execer, transaction models.FundingTransaction) error {
	query := `
		INSERT INTO funding_transactions (id, user_id, connected_account_id, wallet_id, transaction_type, amount, status, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := tx.ExecContext(ctx, query,
		transaction.ID, transaction.UserID, transaction.ConnectedAccountID,
		transaction.WalletID, transaction.TransactionType, transaction.AmountMinor,
		transaction.Status, transaction.ReferenceID,
	)
	return err
}

func (s *FundingStore) GetForUpdate(ctx context.Context, tx Getter, transactionID string) (models.FundingTransaction, error) {
	var row models.FundingTransaction
	err := tx.GetContext(ctx, &row, `
		SELECT`+fundingColumns+`
		FROM funding_transactions
		WHERE id = $1
		FOR UPDATE
	`, transactionID)
	if err != nil {
		return models.FundingTransaction{}, err
	}
	return row, nil
}

// UpdateStatus only moves rows out of PENDING; COMPLETED and CANCELLED are
// terminal, so the guard doubles as the state-machine check at the SQL level.
func (s *FundingStore) UpdateStatus(ctx context.Context, tx Execer, transactionID string, status models.FundingStatus, completedAt *time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE funding_transactions
		SET status = $1, completed_at = $2
		WHERE id = $3 AND status = 'PENDING'
	`, status, completedAt, transactionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *FundingStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.FundingTransaction, error) {
	var rows []models.FundingTransaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT`+fundingColumns+`
		FROM funding_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
