package engine

import (
	"time"

	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/shopspring/decimal"
)

// ComputeRunStats summarises a run result. err is the error the run stopped with, if any.
func ComputeRunStats(result *types.RunResult, err error) types.RunStats {
	stats := types.RunStats{
		ID:             result.RunID,
		Timestamp:      time.Now(),
		StartTime:      result.StartTime,
		EndTime:        result.EndTime,
		StepsCompleted: result.StepsCompleted,
		Strategies:     result.Strategies,
		Books:          make([]types.BookStats, 0, len(result.FinalBooks)),
		Orders:         result.OrderStatusCounts(),
	}

	if err != nil {
		stats.Error = err.Error()
	}

	for i, state := range result.FinalBooks {
		bookStats := types.BookStats{
			Book:         state.Book,
			Denomination: state.Denomination,
			InitialValue: state.Cash,
			FinalValue:   state.Cash,
			TotalReturn:  decimal.Zero,
			MaxDrawdown:  decimal.Zero,
			TotalFees:    decimal.Zero,
		}

		if i < len(result.InitialValuations) {
			bookStats.InitialValue = result.InitialValuations[i].Total
			bookStats.FinalValue = bookStats.InitialValue
		}

		history := result.HistoryOf(state.Book)
		if len(history) > 0 {
			bookStats.FinalValue = history[len(history)-1].Total
		}

		if !bookStats.InitialValue.IsZero() {
			bookStats.TotalReturn = bookStats.FinalValue.Div(bookStats.InitialValue).Sub(decimal.NewFromInt(1))
		}

		bookStats.MaxDrawdown = maxDrawdown(history)

		for _, tx := range result.TransactionsOf(state.Book) {
			bookStats.NumberOfTransactions++
			bookStats.TotalFees = bookStats.TotalFees.Add(tx.Fee)
		}

		stats.Books = append(stats.Books, bookStats)
	}

	return stats
}

// maxDrawdown is the largest fall from a running peak as a fraction of that peak.
// Non-positive peaks are skipped.
func maxDrawdown(history []types.BookValuation) decimal.Decimal {
	drawdown := decimal.Zero

	if len(history) == 0 {
		return drawdown
	}

	peak := history[0].Total

	for _, valuation := range history {
		if valuation.Total.GreaterThan(peak) {
			peak = valuation.Total
		}

		if !peak.IsPositive() {
			continue
		}

		if fall := peak.Sub(valuation.Total).Div(peak); fall.GreaterThan(drawdown) {
			drawdown = fall
		}
	}

	return drawdown
}
