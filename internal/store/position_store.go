package store

import (
	"context"
	"time"

	"tradeledger/internal/models"

	"github.com/shopspring/decimal"
)

type PositionStore struct {
	db DB
}

func NewPositionStore(db DB) *PositionStore {
	return &PositionStore{db: db}
}

const positionColumns = `
	id, trading_wallet_id, user_id, currency_pair, trade_type, entry_price,
	quantity, margin_reserved, stop_loss, take_profit, status, entry_time,
	exit_price, exit_time, profit_loss`

func (s *PositionStore) Create(ctx context.Context, tx Execer, position models.TradingPosition) error {
	query := `
		INSERT INTO trading_positions (id, trading_wallet_id, user_id, currency_pair, trade_type, entry_price, quantity, margin_reserved, stop_loss, take_profit, status, entry_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := tx.ExecContext(ctx, query,
		position.ID, position.TradingWalletID, position.UserID, position.CurrencyPair,
		position.TradeType, position.EntryPrice, position.Quantity, position.MarginReserved,
		position.StopLoss, position.TakeProfit, position.Status, position.EntryTime,
	)
	return err
}

func (s *PositionStore) GetForUpdate(ctx context.Context, tx Getter, positionID string) (models.TradingPosition, error) {
	var row models.TradingPosition
	err := tx.GetContext(ctx, &row, `
		SELECT`+positionColumns+`
		FROM trading_positions
		WHERE id = $1
		FOR UPDATE
	`, positionID)
	if err != nil {
		return models.TradingPosition{}, err
	}
	return row, nil
}

func (s *PositionStore) GetByID(ctx context.Context, positionID string) (models.TradingPosition, error) {
	var row models.TradingPosition
	err := s.db.GetContext(ctx, &row, `
		SELECT`+positionColumns+`
		FROM trading_positions
		WHERE id = $1
	`, positionID)
	if err != nil {
		return models.TradingPosition{}, err
	}
	return row, nil
}

// Close stamps the exit fields exactly once; the status guard in the WHERE
// clause makes a double close a no-op at the SQL level.
func (s *PositionStore) Close(ctx context.Context, tx Execer, positionID string, exitPrice, profitLoss decimal.Decimal, exitTime time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE trading_positions
		SET status = 'CLOSED', exit_price = $1, profit_loss = $2, exit_time = $3
		WHERE id = $4 AND status = 'OPEN'
	`, exitPrice, profitLoss, exitTime, positionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PositionStore) ListByUser(ctx context.Context, userID string, status models.PositionStatus, limit, offset int) ([]models.TradingPosition, error) {
	var rows []models.TradingPosition
	query := `
		SELECT` + positionColumns + `
		FROM trading_positions
		WHERE user_id = $1
	`
	args := []any{userID}
	if status != "" {
		query += ` AND status = $2 ORDER BY entry_time DESC LIMIT $3 OFFSET $4`
		args = append(args, status, limit, offset)
	} else {
		query += ` ORDER BY entry_time DESC LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}
	err := s.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListClosedByWallet returns closed positions oldest first, the order the
// performance aggregators expect.
func (s *PositionStore) ListClosedByWallet(ctx context.Context, userID string, walletType models.TradingWalletType) ([]models.TradingPosition, error) {
	var rows []models.TradingPosition
	err := s.db.SelectContext(ctx, &rows, `
		SELECT`+positionColumns+`
		FROM trading_positions p
		WHERE p.user_id = $1
		  AND p.status = 'CLOSED'
		  AND p.trading_wallet_id IN (SELECT id FROM trading_wallets WHERE user_id = $1 AND wallet_type = $2)
		ORDER BY p.exit_time
	`, userID, walletType)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListOpenWithStops feeds the sweeper: open positions that have at least one
// of stop_loss / take_profit set.
func (s *PositionStore) ListOpenWithStops(ctx context.Context) ([]models.TradingPosition, error) {
	var rows []models.TradingPosition
	err := s.db.SelectContext(ctx, &rows, `
		SELECT`+positionColumns+`
		FROM trading_positions
		WHERE status = 'OPEN' AND (stop_loss IS NOT NULL OR take_profit IS NOT NULL)
		ORDER BY entry_time
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
