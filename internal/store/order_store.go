package store

import (
	"context"
	"time"

	"tradeledger/internal/models"
)

type OrderStore struct {
	db DB
}

func NewOrderStore(db DB) *OrderStore {
	return &OrderStore{db: db}
}

const orderColumns = `
	id, trading_wallet_id, user_id, currency_pair, order_type, side, quantity,
	price, status, position_id, created_at, filled_at`

func (s *OrderStore) Create(ctx context.Context, tx Execer, order models.TradingOrder) error {
	query := `
		INSERT INTO trading_orders (id, trading_wallet_id, user_id, currency_pair, order_type, side, quantity, price, status, position_id, filled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := tx.ExecContext(ctx, query,
		order.ID, order.TradingWalletID, order.UserID, order.CurrencyPair,
		order.OrderType, order.Side, order.Quantity, order.Price,
		order.Status, order.PositionID, order.FilledAt,
	)
	return err
}

func (s *OrderStore) GetForUpdate(ctx context.Context, tx Getter, orderID string) (models.TradingOrder, error) {
	var row models.TradingOrder
	err := tx.GetContext(ctx, &row, `
		SELECT`+orderColumns+`
		FROM trading_orders
		WHERE id = $1
		FOR UPDATE
	`, orderID)
	if err != nil {
		return models.TradingOrder{}, err
	}
	return row, nil
}

// Cancel flips a PENDING order to CANCELLED; returns affected rows so callers
// can distinguish "already terminal" without a second read.
func (s *OrderStore) Cancel(ctx context.Context, tx Execer, orderID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE trading_orders
		SET status = 'CANCELLED'
		WHERE id = $1 AND status = 'PENDING'
	`, orderID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *OrderStore) MarkFilled(ctx context.Context, tx Execer, orderID, positionID string, filledAt time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE trading_orders
		SET status = 'FILLED', position_id = $1, filled_at = $2
		WHERE id = $3
	`, positionID, filledAt, orderID)
	return err
}

// ListPending returns every resting order, oldest first, so fills preserve
// submission order within a pair.
func (s *OrderStore) ListPending(ctx context.Context) ([]models.TradingOrder, error) {
	var rows []models.TradingOrder
	err := s.db.SelectContext(ctx, &rows, `
		SELECT`+orderColumns+`
		FROM trading_orders
		WHERE status = 'PENDING'
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *OrderStore) ListByUser(ctx context.Context, userID string, status models.OrderStatus, limit, offset int) ([]models.TradingOrder, error) {
	var rows []models.TradingOrder
	query := `
		SELECT` + orderColumns + `
		FROM trading_orders
		WHERE user_id = $1
	`
	args := []any{userID}
	if status != "" {
		query += ` AND status = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4`
		args = append(args, status, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}
	err := s.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
