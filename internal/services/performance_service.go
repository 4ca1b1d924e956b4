package services

import (
	"context"
	"math"
	"sort"

	"tradeledger/internal/models"

	"github.com/shopspring/decimal"
)

type ClosedPositionStore interface {
	ListClosedByWallet(ctx context.Context, userID string, walletType models.TradingWalletType) ([]models.TradingPosition, error)
}

// PerformanceService computes report metrics over closed positions. It holds
// no state and raises no domain errors: an empty trade history yields zeros.
type PerformanceService struct {
	positions ClosedPositionStore
}

func NewPerformanceService(positions ClosedPositionStore) *PerformanceService {
	return &PerformanceService{positions: positions}
}

type PerformanceSummary struct {
	TotalTrades   int             `json:"total_trades"`
	WinningTrades int             `json:"winning_trades"`
	LosingTrades  int             `json:"losing_trades"`
	WinRate       float64         `json:"win_rate"`
	TotalPnL      decimal.Decimal `json:"total_pnl"`
	GrossProfit   decimal.Decimal `json:"gross_profit"`
	GrossLoss     decimal.Decimal `json:"gross_loss"`
	ProfitFactor  float64         `json:"profit_factor"`
}

type RiskMetrics struct {
	SharpeRatio  float64 `json:"sharpe_ratio"`
	SortinoRatio float64 `json:"sortino_ratio"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	VaR95        float64 `json:"var_95"`
	VaR99        float64 `json:"var_99"`
}

func (s *PerformanceService) Summary(ctx context.Context, userID string, walletType models.TradingWalletType) (PerformanceSummary, error) {
	positions, err := s.positions.ListClosedByWallet(ctx, userID, walletType)
	if err != nil {
		return PerformanceSummary{}, err
	}
	return Summarize(positions), nil
}

func (s *PerformanceService) Metrics(ctx context.Context, userID string, walletType models.TradingWalletType) (RiskMetrics, error) {
	positions, err := s.positions.ListClosedByWallet(ctx, userID, walletType)
	if err != nil {
		return RiskMetrics{}, err
	}
	returns := DailyReturns(positions)
	return RiskMetrics{
		SharpeRatio:  SharpeRatio(returns),
		SortinoRatio: SortinoRatio(returns),
		MaxDrawdown:  MaxDrawdown(positions),
		VaR95:        ValueAtRisk(returns, 0.05),
		VaR99:        ValueAtRisk(returns, 0.01),
	}, nil
}

func Summarize(positions []models.TradingPosition) PerformanceSummary {
	summary := PerformanceSummary{
		TotalPnL:    decimal.Zero,
		GrossProfit: decimal.Zero,
		GrossLoss:   decimal.Zero,
	}
	for _, position := range positions {
		if !position.ProfitLoss.Valid {
			continue
		}
		pnl := position.ProfitLoss.Decimal
		summary.TotalTrades++
		summary.TotalPnL = summary.TotalPnL.Add(pnl)
		if pnl.GreaterThan(decimal.Zero) {
			summary.WinningTrades++
			summary.GrossProfit = summary.GrossProfit.Add(pnl)
		} else if pnl.LessThan(decimal.Zero) {
			summary.LosingTrades++
			summary.GrossLoss = summary.GrossLoss.Add(pnl.Abs())
		}
	}
	if summary.TotalTrades > 0 {
		summary.WinRate = float64(summary.WinningTrades) / float64(summary.TotalTrades)
	}
	if summary.GrossLoss.GreaterThan(decimal.Zero) {
		profitFactor, _ := summary.GrossProfit.Div(summary.GrossLoss).Float64()
		summary.ProfitFactor = profitFactor
	}
	return summary
}

// DailyReturns groups realized P&L by exit date (UTC), oldest day first.
func DailyReturns(positions []models.TradingPosition) []float64 {
	totals := map[string]float64{}
	var order []string
	for _, position := range positions {
		if !position.ProfitLoss.Valid || position.ExitTime == nil {
			continue
		}
		key := position.ExitTime.UTC().Format("2006-01-02")
		if _, seen := totals[key]; !seen {
			order = append(order, key)
		}
		pnl, _ := position.ProfitLoss.Decimal.Float64()
		totals[key] += pnl
	}
	sort.Strings(order)
	returns := make([]float64, len(order))
	for i, key := range order {
		returns[i] = totals[key]
	}
	return returns
}

// SharpeRatio annualizes with sqrt(252) trading days; zero when the returns
// do not vary.
func SharpeRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	avg := mean(returns)
	std := stddev(returns)
	if std == 0 {
		return 0
	}
	return avg / std * math.Sqrt(252)
}

// SortinoRatio divides by the deviation of negative returns only.
func SortinoRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	std := stddev(downside)
	if std == 0 {
		return 0
	}
	return mean(returns) / std * math.Sqrt(252)
}

// MaxDrawdown is the largest peak-to-trough decline of the cumulative P&L
// curve; on equal declines the first occurrence wins.
func MaxDrawdown(positions []models.TradingPosition) float64 {
	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0
	for _, position := range positions {
		if !position.ProfitLoss.Valid {
			continue
		}
		pnl, _ := position.ProfitLoss.Decimal.Float64()
		cumulative += pnl
		if cumulative > peak {
			peak = cumulative
		}
		if drawdown := peak - cumulative; drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// ValueAtRisk returns the absolute value of the return at the given tail
// quantile of ascending daily returns (index floor(n*q)).
func ValueAtRisk(returns []float64, quantile float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)
	index := int(math.Floor(float64(len(sorted)) * quantile))
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return math.Abs(sorted[index])
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	avg := mean(values)
	sum := 0.0
	for _, v := range values {
		diff := v - avg
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(values)))
}
