package engine

import (
	"fmt"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-replay/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-replay/internal/fx"
	"github.com/rxtech-lab/argo-replay/internal/risk"
	"github.com/rxtech-lab/argo-replay/internal/strategy"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/internal/window"
	"github.com/rxtech-lab/argo-replay/mocks"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"
)

func decide(decision types.HookDecision) types.Hook {
	return types.NewHook(string(decision), func(types.HookContext) (types.HookDecision, error) {
		return decision, nil
	})
}

func (suite *RunnerTestSuite) TestExecutionTiming() {
	tests := []struct {
		name      string
		phase     types.SessionPhase
		atClose   bool
		timestamp time.Time
		executed  types.SessionPhase
		price     decimal.Decimal
	}{
		{name: "Open to next open", phase: types.PhaseOpen, atClose: false, timestamp: day(1), executed: types.PhaseOpen, price: decimal.NewFromInt(50)},
		{name: "Open to same close", phase: types.PhaseOpen, atClose: true, timestamp: day(0), executed: types.PhaseClose, price: decimal.NewFromInt(49)},
		{name: "Close to next open", phase: types.PhaseClose, atClose: false, timestamp: day(1), executed: types.PhaseOpen, price: decimal.NewFromInt(50)},
		{name: "Close to next close", phase: types.PhaseClose, atClose: true, timestamp: day(1), executed: types.PhaseClose, price: decimal.NewFromInt(51)},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			order := types.NewMarketOrder("GOOG", decimal.NewFromInt(10))
			order.ExecuteAtClose = tc.atClose

			onOpen, onClose := submitAt(0, tc.phase, order)
			result := suite.mustRun(suite.config(suite.strategy("s1", onOpen, onClose)))

			suite.Require().Len(result.Transactions, 1)
			tx := result.Transactions[0]
			suite.Equal(tc.timestamp, tx.Timestamp)
			suite.Equal(tc.executed, tx.Phase)
			suite.True(tx.Price.Equal(tc.price), "price %s", tx.Price)
		})
	}
}

func (suite *RunnerTestSuite) TestOpenExecutionsVisibleAtClose() {
	var cashAtClose decimal.Decimal

	order := types.NewMarketOrder("GOOG", decimal.NewFromInt(10))
	order.ExecuteAtClose = true

	s := suite.strategy("s1",
		func(ctx strategy.StepContext) error {
			if step(ctx) != 0 {
				return nil
			}

			_, err := ctx.Submit(order)

			return err
		},
		func(ctx strategy.StepContext) error {
			if step(ctx) == 0 {
				b, err := ctx.Book("")
				if err != nil {
					return err
				}

				cashAtClose = b.Cash()
			}

			return nil
		},
	)

	suite.mustRun(suite.config(s))

	// executed at the close before on_close ran
	suite.True(cashAtClose.Equal(decimal.NewFromInt(99510)))
}

func (suite *RunnerTestSuite) TestSizing() {
	tests := []struct {
		name      string
		order     *types.SimpleOrder
		positions map[string]decimal.Decimal
		expected  decimal.Decimal
	}{
		{
			name:     "Quantity",
			order:    &types.SimpleOrder{Asset: "GOOG", Size: decimal.NewFromInt(100), SizeType: types.OrderSizeTypeQuantity},
			expected: decimal.NewFromInt(100),
		},
		{
			name:     "Fractional quantity is truncated",
			order:    &types.SimpleOrder{Asset: "GOOG", Size: dec("10.7"), SizeType: types.OrderSizeTypeQuantity},
			expected: decimal.NewFromInt(10),
		},
		{
			name:     "Notional",
			order:    &types.SimpleOrder{Asset: "GOOG", Size: decimal.NewFromInt(1020), SizeType: types.OrderSizeTypeNotional},
			expected: decimal.NewFromInt(20),
		},
		{
			name:     "Negative notional",
			order:    &types.SimpleOrder{Asset: "GOOG", Size: decimal.NewFromInt(-1020), SizeType: types.OrderSizeTypeNotional},
			expected: decimal.NewFromInt(-20),
		},
		{
			name:      "Target position",
			order:     &types.SimpleOrder{Asset: "GOOG", Size: decimal.NewFromInt(30), SizeType: types.OrderSizeTypeTargetPosition},
			positions: map[string]decimal.Decimal{"GOOG": decimal.NewFromInt(10)},
			expected:  decimal.NewFromInt(20),
		},
		{
			name:     "Book percent",
			order:    &types.SimpleOrder{Asset: "AAPL", Size: decimal.NewFromInt(10), SizeType: types.OrderSizeTypeBookPercent},
			expected: decimal.NewFromInt(400),
		},
		{
			name:      "Target percent",
			order:     &types.SimpleOrder{Asset: "AAPL", Size: decimal.NewFromInt(10), SizeType: types.OrderSizeTypeTargetPercent},
			positions: map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(100)},
			expected:  decimal.NewFromInt(310),
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			onOpen, onClose := submitAt(0, types.PhaseClose, tc.order)

			config := suite.config(suite.strategy("s1", onOpen, onClose))
			config.Books[0].Positions = tc.positions

			result := suite.mustRun(config)

			suite.Require().Len(result.Transactions, 1)
			suite.True(result.Transactions[0].Quantity.Equal(tc.expected), "quantity %s", result.Transactions[0].Quantity)
		})
	}
}

func (suite *RunnerTestSuite) TestZeroQuantityExecutesWithoutTransaction() {
	order := &types.SimpleOrder{Asset: "GOOG", Size: decimal.NewFromInt(10), SizeType: types.OrderSizeTypeTargetPosition}
	order.Key = "flat"

	onOpen, onClose := submitAt(0, types.PhaseClose, order)

	config := suite.config(suite.strategy("s1", onOpen, onClose))
	config.Books[0].Positions = map[string]decimal.Decimal{"GOOG": decimal.NewFromInt(10)}

	result := suite.mustRun(config)

	suite.Empty(result.Transactions)
	suite.Equal(types.OrderStatusExecuted, result.Order("s1", "flat").Unwrap().Status)
}

func (suite *RunnerTestSuite) TestPercentOfWorthlessBookIsRejected() {
	order := &types.SimpleOrder{Asset: "GOOG", Size: decimal.NewFromInt(10), SizeType: types.OrderSizeTypeBookPercent}
	order.Key = "pct"

	onOpen, onClose := submitAt(0, types.PhaseClose, order)

	config := suite.config(suite.strategy("s1", onOpen, onClose))
	config.Books[0].Cash = decimal.Zero

	result := suite.mustRun(config)

	record := result.Order("s1", "pct").Unwrap()
	suite.Equal(types.OrderStatusRejected, record.Status)
	suite.Equal(types.OrderReasonInvalidQuantity, record.Reason)
}

func (suite *RunnerTestSuite) TestNonPositivePriceIsRejected() {
	rows := []types.MarketData{
		types.NewOHLCV(day(0), "GOOG", dec("10"), dec("11"), dec("9"), dec("10"), dec("100")),
		types.NewOHLCV(day(1), "GOOG", dec("0"), dec("11"), dec("0"), dec("10"), dec("100")),
	}

	frame, err := window.FromMarketData(rows)
	suite.Require().NoError(err)

	order := types.NewMarketOrder("GOOG", decimal.NewFromInt(1))
	order.Key = "zero"

	onOpen, onClose := submitAt(0, types.PhaseClose, order)

	config := suite.config(suite.strategy("s1", onOpen, onClose))
	config.Assets = []types.Asset{types.NewOHLCVAsset("GOOG", "USD")}
	config.Frame = frame

	result := suite.mustRun(config)

	record := result.Order("s1", "zero").Unwrap()
	suite.Equal(types.OrderStatusRejected, record.Status)
	suite.Equal(types.OrderReasonNonPositivePrice, record.Reason)
}

func (suite *RunnerTestSuite) TestCommission() {
	onOpen, onClose := submitAt(0, types.PhaseClose, types.NewMarketOrder("GOOG", decimal.NewFromInt(100)))

	config := suite.config(suite.strategy("s1", onOpen, onClose))
	config.Commission = commission_fee.NewPercentageCommissionFee(dec("0.001"))

	result := suite.mustRun(config)

	suite.Require().Len(result.Transactions, 1)
	suite.True(result.Transactions[0].Fee.Equal(decimal.NewFromInt(5)))
	suite.True(result.Transactions[0].CashAmount.Equal(decimal.NewFromInt(-5005)))
	suite.True(suite.finalBook(result, "Main").Cash.Equal(decimal.NewFromInt(94995)))
}

func (suite *RunnerTestSuite) TestHookDecisions() {
	tests := []struct {
		name     string
		decision types.HookDecision
		status   types.OrderStatus
		reason   string
	}{
		{name: "Reject", decision: types.HookReject, status: types.OrderStatusRejected, reason: types.OrderReasonHookRejected},
		{name: "Cancel", decision: types.HookCancel, status: types.OrderStatusCancelled, reason: types.OrderReasonHookCancelled},
		{name: "Proceed", decision: types.HookProceed, status: types.OrderStatusExecuted, reason: ""},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			order := types.NewMarketOrder("GOOG", decimal.NewFromInt(10))
			order.Key = "hooked"
			order.Hooks = []types.Hook{decide(tc.decision)}

			onOpen, onClose := submitAt(0, types.PhaseClose, order)
			result := suite.mustRun(suite.config(suite.strategy("s1", onOpen, onClose)))

			record := result.Order("s1", "hooked").Unwrap()
			suite.Equal(tc.status, record.Status)
			suite.Equal(tc.reason, record.Reason)
			suite.Equal(1, record.Attempts)

			if tc.status != types.OrderStatusExecuted {
				suite.Empty(result.Transactions)
				suite.True(suite.finalBook(result, "Main").Cash.Equal(decimal.NewFromInt(100000)))
			}
		})
	}
}

func (suite *RunnerTestSuite) TestHookContext() {
	var (
		seen                  types.HookContext
		beforeCash, afterCash decimal.Decimal
		beforeGOOG, afterGOOG decimal.Decimal
		total                 decimal.Decimal
	)

	order := types.NewMarketOrder("GOOG", decimal.NewFromInt(100))
	order.Key = "buy"
	order.Hooks = []types.Hook{types.NewHook("inspect", func(ctx types.HookContext) (types.HookDecision, error) {
		seen = ctx
		beforeCash, beforeGOOG = ctx.Before.Cash(), ctx.Before.Position("GOOG")
		afterCash, afterGOOG = ctx.After.Cash(), ctx.After.Position("GOOG")

		valuation, err := ctx.Valuer.Valuation(ctx.After)
		if err != nil {
			return types.HookReject, err
		}

		total = valuation.Total

		return types.HookProceed, nil
	})}

	onOpen, onClose := submitAt(0, types.PhaseClose, order)
	suite.mustRun(suite.config(suite.strategy("s1", onOpen, onClose)))

	suite.Equal(day(1), seen.Timestamp)
	suite.Equal(types.PhaseOpen, seen.Phase)
	suite.Equal("buy", seen.OrderKey)
	suite.Equal("s1", seen.Strategy)
	suite.True(beforeCash.Equal(decimal.NewFromInt(100000)))
	suite.True(beforeGOOG.IsZero())
	suite.True(afterCash.Equal(decimal.NewFromInt(95000)))
	suite.True(afterGOOG.Equal(decimal.NewFromInt(100)))
	suite.Require().Len(seen.Fills, 1)
	suite.True(seen.Fills[0].Price.Equal(decimal.NewFromInt(50)))
	suite.True(total.Equal(decimal.NewFromInt(100000)))
}

func (suite *RunnerTestSuite) TestHookFailures() {
	tests := []struct {
		name string
		hook types.Hook
	}{
		{
			name: "Error",
			hook: types.NewHook("error", func(types.HookContext) (types.HookDecision, error) {
				return types.HookProceed, fmt.Errorf("unavailable")
			}),
		},
		{
			name: "Panic",
			hook: types.NewHook("panic", func(types.HookContext) (types.HookDecision, error) {
				panic("boom")
			}),
		},
		{
			name: "Unknown decision",
			hook: decide(types.HookDecision("maybe")),
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			order := types.NewMarketOrder("GOOG", decimal.NewFromInt(10))
			order.Hooks = []types.Hook{tc.hook}

			onOpen, onClose := submitAt(0, types.PhaseClose, order)

			result, err := suite.run(suite.config(suite.strategy("s1", onOpen, onClose)))
			suite.Require().Error(err)
			suite.Equal(errors.ErrCodeHookFailed, errors.GetCode(err))
			suite.Require().NotNil(result)
			suite.Empty(result.Transactions)
			suite.Equal(1, result.StepsCompleted)
		})
	}
}

func (suite *RunnerTestSuite) TestMandateRejectsBasket() {
	orderHookCalled := false

	basket, err := types.NewWeightedBasket(
		[]string{"GOOG", "AAPL"},
		[]decimal.Decimal{decimal.NewFromInt(1), decimal.NewFromInt(1)},
		decimal.NewFromInt(100),
		types.OrderSizeTypeQuantity,
	)
	suite.Require().NoError(err)

	basket.Key = "basket"
	basket.Hooks = []types.Hook{types.NewHook("never", func(types.HookContext) (types.HookDecision, error) {
		orderHookCalled = true

		return types.HookProceed, nil
	})}

	onOpen, onClose := submitAt(0, types.PhaseClose, basket)

	config := suite.config(suite.strategy("s1", onOpen, onClose))
	config.Books[0].Mandates = []types.Hook{risk.MaxPosition("GOOG", decimal.NewFromInt(50))}

	result := suite.mustRun(config)

	suite.Empty(result.Transactions)
	suite.False(orderHookCalled)

	record := result.Order("s1", "basket").Unwrap()
	suite.Equal(types.OrderKindBasket, record.Kind)
	suite.Equal(types.OrderStatusRejected, record.Status)
	suite.Equal(types.OrderReasonMandateRejected, record.Reason)

	final := suite.finalBook(result, "Main")
	suite.True(final.Cash.Equal(decimal.NewFromInt(100000)))
	suite.Empty(final.Positions)
}

func (suite *RunnerTestSuite) TestNoBorrowingMandate() {
	s := suite.strategy("s1", nil, func(ctx strategy.StepContext) error {
		if step(ctx) != 0 {
			return nil
		}

		big := types.NewMarketOrder("GOOG", decimal.NewFromInt(3000))
		big.Key = "big"

		small := types.NewMarketOrder("GOOG", decimal.NewFromInt(1000))
		small.Key = "small"

		for _, order := range []types.Order{big, small} {
			if _, err := ctx.Submit(order); err != nil {
				return err
			}
		}

		return nil
	})

	config := suite.config(s)
	config.Books[0].Mandates = []types.Hook{risk.NoBorrowing()}

	result := suite.mustRun(config)

	suite.Equal(types.OrderStatusRejected, result.Order("s1", "big").Unwrap().Status)
	suite.Equal(types.OrderStatusExecuted, result.Order("s1", "small").Unwrap().Status)
	suite.True(suite.finalBook(result, "Main").Cash.Equal(decimal.NewFromInt(50000)))
}

func (suite *RunnerTestSuite) TestDeferredOrders() {
	suite.Run("Expires after valid for", func() {
		order := types.NewMarketOrder("GOOG", decimal.NewFromInt(10))
		order.Key = "wait"
		order.ValidFor = 2
		order.Hooks = []types.Hook{decide(types.HookDefer)}

		onOpen, onClose := submitAt(0, types.PhaseClose, order)
		result := suite.mustRun(suite.config(suite.strategy("s1", onOpen, onClose)))

		record := result.Order("s1", "wait").Unwrap()
		suite.Equal(types.OrderStatusExpired, record.Status)
		suite.Equal(types.OrderReasonValidityElapsed, record.Reason)
		suite.Equal(2, record.Attempts)
		suite.Equal(day(1), record.ResolvedAt)
		suite.Equal(types.PhaseClose, record.ResolvedPhase)
		suite.Empty(result.Transactions)
	})

	suite.Run("Retried at the next session", func() {
		attempts := 0

		order := types.NewMarketOrder("GOOG", decimal.NewFromInt(10))
		order.Key = "retry"
		order.Hooks = []types.Hook{types.NewHook("once", func(types.HookContext) (types.HookDecision, error) {
			attempts++
			if attempts == 1 {
				return types.HookDefer, nil
			}

			return types.HookProceed, nil
		})}

		onOpen, onClose := submitAt(0, types.PhaseClose, order)
		result := suite.mustRun(suite.config(suite.strategy("s1", onOpen, onClose)))

		suite.Require().Len(result.Transactions, 1)
		suite.Equal(types.PhaseClose, result.Transactions[0].Phase)
		suite.True(result.Transactions[0].Price.Equal(decimal.NewFromInt(51)))
		suite.Equal(2, result.Order("s1", "retry").Unwrap().Attempts)
	})

	suite.Run("Good till cancelled expires at run end", func() {
		order := types.NewMarketOrder("GOOG", decimal.NewFromInt(10))
		order.Key = "forever"
		order.Hooks = []types.Hook{decide(types.HookDefer)}

		onOpen, onClose := submitAt(0, types.PhaseClose, order)
		result := suite.mustRun(suite.config(suite.strategy("s1", onOpen, onClose)))

		record := result.Order("s1", "forever").Unwrap()
		suite.Equal(types.OrderStatusExpired, record.Status)
		suite.Equal(types.OrderReasonRunEnded, record.Reason)
		suite.Equal(6, record.Attempts)
		suite.Equal(day(3), record.ResolvedAt)
	})
}

func (suite *RunnerTestSuite) TestGoodTill() {
	order := types.NewMarketOrder("GOOG", decimal.NewFromInt(10))
	order.Key = "dated"
	order.ExecuteAtClose = true
	order.GoodTill = optional.Some(day(0).Add(12 * time.Hour))

	onOpen, onClose := submitAt(0, types.PhaseClose, order)
	result := suite.mustRun(suite.config(suite.strategy("s1", onOpen, onClose)))

	record := result.Order("s1", "dated").Unwrap()
	suite.Equal(types.OrderStatusExpired, record.Status)
	suite.Equal(types.OrderReasonValidityElapsed, record.Reason)
	suite.Equal(0, record.Attempts)
	suite.Equal(day(1), record.ResolvedAt)
	suite.Equal(types.PhaseOpen, record.ResolvedPhase)
}

func (suite *RunnerTestSuite) TestRunEndExpiresPending() {
	order := types.NewMarketOrder("GOOG", decimal.NewFromInt(10))
	order.Key = "late"

	onOpen, onClose := submitAt(3, types.PhaseClose, order)
	result := suite.mustRun(suite.config(suite.strategy("s1", onOpen, onClose)))

	record := result.Order("s1", "late").Unwrap()
	suite.Equal(types.OrderStatusExpired, record.Status)
	suite.Equal(types.OrderReasonRunEnded, record.Reason)
	suite.Equal(0, record.Attempts)
}

func (suite *RunnerTestSuite) TestCancel() {
	var unknownErr error

	s := suite.strategy("s1",
		func(ctx strategy.StepContext) error {
			if step(ctx) != 0 {
				return nil
			}

			order := types.NewMarketOrder("GOOG", decimal.NewFromInt(10))
			order.Key = "withdrawn"
			_, err := ctx.Submit(order)

			return err
		},
		func(ctx strategy.StepContext) error {
			if step(ctx) != 0 {
				return nil
			}

			unknownErr = ctx.Cancel("missing")

			return ctx.Cancel("withdrawn")
		},
	)

	result := suite.mustRun(suite.config(s))

	suite.Empty(result.Transactions)
	suite.Equal(errors.ErrCodeOrderNotFound, errors.GetCode(unknownErr))

	record := result.Order("s1", "withdrawn").Unwrap()
	suite.Equal(types.OrderStatusCancelled, record.Status)
	suite.Equal(types.OrderReasonCancelled, record.Reason)
	suite.Equal(day(1), record.ResolvedAt)
	suite.Equal(types.PhaseOpen, record.ResolvedPhase)
}

func (suite *RunnerTestSuite) TestCancelInSameCallback() {
	s := suite.strategy("s1", nil, func(ctx strategy.StepContext) error {
		if step(ctx) != 0 {
			return nil
		}

		key, err := ctx.Submit(types.NewMarketOrder("GOOG", decimal.NewFromInt(10)))
		if err != nil {
			return err
		}

		return ctx.Cancel(key)
	})

	result := suite.mustRun(suite.config(s))

	suite.Empty(result.Transactions)
	suite.Require().Len(result.Orders, 1)
	suite.Equal(types.OrderStatusCancelled, result.Orders[0].Status)
}

func (suite *RunnerTestSuite) TestReplaceByKey() {
	s := suite.strategy("s1",
		func(ctx strategy.StepContext) error {
			if step(ctx) != 0 {
				return nil
			}

			order := types.NewMarketOrder("GOOG", decimal.NewFromInt(10))
			order.Key = "k"
			_, err := ctx.Submit(order)

			return err
		},
		func(ctx strategy.StepContext) error {
			if step(ctx) != 0 {
				return nil
			}

			order := types.NewMarketOrder("GOOG", decimal.NewFromInt(7))
			order.Key = "k"
			_, err := ctx.Submit(order)

			return err
		},
	)

	result := suite.mustRun(suite.config(s))

	suite.Require().Len(result.Orders, 2)
	suite.Equal(types.OrderStatusCancelled, result.Orders[0].Status)
	suite.Equal(types.OrderReasonReplaced, result.Orders[0].Reason)
	suite.Equal(types.OrderStatusExecuted, result.Orders[1].Status)
	suite.Equal(result.Orders[1], result.Order("s1", "k").Unwrap())

	suite.Require().Len(result.Transactions, 1)
	suite.True(suite.finalBook(result, "Main").Positions["GOOG"].Equal(decimal.NewFromInt(7)))
}

func (suite *RunnerTestSuite) TestKeyOfResolvedOrderCannotBeReused() {
	var reuseErr error

	s := suite.strategy("s1", nil, func(ctx strategy.StepContext) error {
		order := types.NewMarketOrder("GOOG", decimal.NewFromInt(10))
		order.Key = "once"

		switch step(ctx) {
		case 0:
			_, err := ctx.Submit(order)

			return err
		case 1:
			_, reuseErr = ctx.Submit(order)
		}

		return nil
	})

	result := suite.mustRun(suite.config(s))

	suite.Equal(errors.ErrCodeInvalidOrder, errors.GetCode(reuseErr))
	suite.Len(result.Orders, 1)
	suite.Len(result.Transactions, 1)
}

func (suite *RunnerTestSuite) TestInvalidSubmissions() {
	duplicate := &types.BasketOrder{Legs: []types.Leg{
		{Asset: "GOOG", Size: decimal.NewFromInt(1), SizeType: types.OrderSizeTypeQuantity},
		{Asset: "GOOG", Size: decimal.NewFromInt(2), SizeType: types.OrderSizeTypeQuantity},
	}}

	unknownBook := types.NewMarketOrder("GOOG", decimal.NewFromInt(1))
	unknownBook.Book = "Nowhere"

	negativeValidity := types.NewMarketOrder("GOOG", decimal.NewFromInt(1))
	negativeValidity.ValidFor = -1

	tests := []struct {
		name  string
		order types.Order
		code  errors.ErrorCode
	}{
		{name: "Nil order", order: nil, code: errors.ErrCodeInvalidOrder},
		{name: "Unknown asset", order: types.NewMarketOrder("MSFT", decimal.NewFromInt(1)), code: errors.ErrCodeUnknownAsset},
		{name: "Unknown book", order: unknownBook, code: errors.ErrCodeUnknownBook},
		{name: "Duplicate basket asset", order: duplicate, code: errors.ErrCodeInvalidOrder},
		{name: "Negative validity", order: negativeValidity, code: errors.ErrCodeInvalidOrder},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			var submitErr error

			s := suite.strategy("s1", nil, func(ctx strategy.StepContext) error {
				if step(ctx) == 0 {
					_, submitErr = ctx.Submit(tc.order)
				}

				return nil
			})

			result := suite.mustRun(suite.config(s))

			suite.Equal(tc.code, errors.GetCode(submitErr))
			suite.Empty(result.Orders)
		})
	}
}

func (suite *RunnerTestSuite) TestPriority() {
	s := suite.strategy("s1", nil, func(ctx strategy.StepContext) error {
		if step(ctx) != 0 {
			return nil
		}

		for _, item := range []struct {
			key      string
			priority int
		}{{"low", 1}, {"high", 5}, {"mid", 5}} {
			order := types.NewMarketOrder("GOOG", decimal.NewFromInt(1))
			order.Key = item.key
			order.Priority = item.priority

			if _, err := ctx.Submit(order); err != nil {
				return err
			}
		}

		return nil
	})

	result := suite.mustRun(suite.config(s))

	keys := make([]string, len(result.Transactions))
	for i, tx := range result.Transactions {
		keys[i] = tx.OrderKey
	}

	// equal priorities keep submission order
	suite.Equal([]string{"high", "mid", "low"}, keys)
}

func (suite *RunnerTestSuite) TestFollowUpOrder() {
	order := types.NewMarketOrder("GOOG", decimal.NewFromInt(100))
	order.Key = "entry"
	order.OnExecuted = func(transactions []types.Transaction) []types.Order {
		exit := types.NewMarketOrder("GOOG", transactions[0].Quantity.Neg())
		exit.Key = "exit"

		return []types.Order{exit}
	}

	onOpen, onClose := submitAt(0, types.PhaseClose, order)
	result := suite.mustRun(suite.config(suite.strategy("s1", onOpen, onClose)))

	suite.Require().Len(result.Transactions, 2)
	exit := result.Transactions[1]
	suite.Equal("exit", exit.OrderKey)
	suite.Equal(day(1), exit.Timestamp)
	suite.Equal(types.PhaseClose, exit.Phase)
	suite.True(exit.Price.Equal(decimal.NewFromInt(51)))

	final := suite.finalBook(result, "Main")
	suite.True(final.Cash.Equal(decimal.NewFromInt(100100)))
	suite.Empty(final.Positions)
}

func (suite *RunnerTestSuite) TestFollowUpPanicIsStrategyError() {
	order := types.NewMarketOrder("GOOG", decimal.NewFromInt(1))
	order.OnExecuted = func([]types.Transaction) []types.Order {
		panic("boom")
	}

	onOpen, onClose := submitAt(0, types.PhaseClose, order)

	_, err := suite.run(suite.config(suite.strategy("s1", onOpen, onClose)))
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeStrategyRuntimeError, errors.GetCode(err))
}

func (suite *RunnerTestSuite) TestMultipleBooks() {
	order := types.NewMarketOrder("GOOG", decimal.NewFromInt(10))
	order.Book = "Side"

	onOpen, onClose := submitAt(0, types.PhaseClose, order)

	config := suite.config(suite.strategy("s1", onOpen, onClose))
	config.Books = append(config.Books, BookSetup{Name: "Side", Denomination: "USD", Cash: decimal.NewFromInt(5000)})

	result := suite.mustRun(config)

	suite.Require().Len(result.Transactions, 1)
	suite.Equal("Side", result.Transactions[0].Book)
	suite.True(suite.finalBook(result, "Main").Cash.Equal(decimal.NewFromInt(100000)))
	suite.True(suite.finalBook(result, "Side").Cash.Equal(decimal.NewFromInt(4500)))
	suite.Len(result.BookHistory, 8)
	suite.Len(result.HistoryOf("Side"), 4)
}

func (suite *RunnerTestSuite) TestForeignAsset() {
	rates, err := fx.NewStaticRates([]fx.Rate{{From: "EUR", To: "USD", Rate: dec("1.1")}})
	suite.Require().NoError(err)

	onOpen, onClose := submitAt(0, types.PhaseClose, types.NewMarketOrder("SAP", decimal.NewFromInt(10)))

	config := suite.config(suite.strategy("s1", onOpen, onClose))
	config.Assets = append(config.Assets, types.NewCloseAsset("SAP", "EUR"))
	config.FX = rates

	result := suite.mustRun(config)

	// the open of a close-only asset is its previous close
	suite.Require().Len(result.Transactions, 1)
	tx := result.Transactions[0]
	suite.True(tx.Price.Equal(decimal.NewFromInt(100)))
	suite.Equal("EUR", tx.Denomination)
	suite.True(tx.CashAmount.Equal(decimal.NewFromInt(-1100)))

	history := result.HistoryOf("Main")
	suite.True(history[1].Total.Equal(decimal.NewFromInt(100110)))
	suite.True(suite.finalBook(result, "Main").Cash.Equal(decimal.NewFromInt(98900)))
}

func (suite *RunnerTestSuite) TestFXProviderFailures() {
	tests := []struct {
		name   string
		err    error
		fatal  bool
		reason string
	}{
		{
			name:   "Missing rate rejects the order",
			err:    errors.New(errors.ErrCodeFXRateMissing, "no quote"),
			fatal:  false,
			reason: types.OrderReasonFXUnavailable,
		},
		{
			name:  "Provider failure is fatal",
			err:   errors.New(errors.ErrCodeDataSourceUnavailable, "rate service down"),
			fatal: true,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			provider := mocks.NewMockProvider(suite.ctrl)
			provider.EXPECT().CanConvert(gomock.Any(), gomock.Any()).Return(true).AnyTimes()
			provider.EXPECT().Convert(gomock.Any(), "EUR", "USD", gomock.Any()).Return(decimal.Zero, tc.err).AnyTimes()

			order := types.NewMarketOrder("SAP", decimal.NewFromInt(10))
			order.Key = "sap"

			onOpen, onClose := submitAt(0, types.PhaseClose, order)

			config := suite.config(suite.strategy("s1", onOpen, onClose))
			config.Assets = []types.Asset{types.NewCloseAsset("SAP", "EUR")}
			config.FX = provider

			result, err := suite.run(config)

			if tc.fatal {
				suite.Require().Error(err)
				suite.Equal(errors.ErrCodeDataSourceUnavailable, errors.GetCode(err))

				return
			}

			suite.Require().NoError(err)
			record := result.Order("s1", "sap").Unwrap()
			suite.Equal(types.OrderStatusRejected, record.Status)
			suite.Equal(tc.reason, record.Reason)
			suite.Empty(result.Transactions)
		})
	}
}
