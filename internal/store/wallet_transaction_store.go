package store

import (
	"context"

	"tradeledger/internal/models"
)

// WalletTransactionStore is the append-only ledger. Rows are inserted inside
// the same transaction as the balance mutation they describe and never updated.
type WalletTransactionStore struct {
	db DB
}

func NewWalletTransactionStore(db DB) *WalletTransactionStore {
	return &WalletTransactionStore{db: db}
}

type WalletTransactionInput struct {
	ID              string
	WalletID        string
	UserID          string
	TransactionType models.WalletTransactionType
	AmountMinor     int64
	FeeMinor        int64
	Status          string
	ReferenceID     string
	Description     string
	Metadata        string
}

func (s *WalletTransactionStore) Insert(ctx context.Context, tx Execer, input WalletTransactionInput) error {
	query := `
		INSERT INTO wallet_transactions (id, wallet_id, user_id, transaction_type, amount, fee, status, reference_id, description, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.WalletID, input.UserID, input.TransactionType,
		input.AmountMinor, input.FeeMinor, input.Status, input.ReferenceID,
		input.Description, input.Metadata,
	)
	return err
}

// ExistsByReference reports whether a ledger line with the given reference id
// and type was already written for the wallet, for replay detection.
func (s *WalletTransactionStore) ExistsByReference(ctx context.Context, tx Getter, walletID, referenceID string, transactionType models.WalletTransactionType) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM wallet_transactions
			WHERE wallet_id = $1 AND reference_id = $2 AND transaction_type = $3
		)
	`, walletID, referenceID, transactionType)
	return exists, err
}

func (s *WalletTransactionStore) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.WalletTransaction, error) {
	var rows []models.WalletTransaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, wallet_id, user_id, transaction_type, amount, fee, status, reference_id, description, metadata, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SumByWallet replays the ledger into a net balance. Lock entries shuffle
// funds between buckets without changing the total, and fees hit the wallet
// only on outflows; deposit fees are withheld before the credit.
func (s *WalletTransactionStore) SumByWallet(ctx context.Context, walletID string) (int64, error) {
	var sum int64
	err := s.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount - CASE WHEN amount < 0 THEN fee ELSE 0 END), 0)
		FROM wallet_transactions
		WHERE wallet_id = $1 AND transaction_type NOT IN ('LOCK', 'UNLOCK')
	`, walletID)
	return sum, err
}
