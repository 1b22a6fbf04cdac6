package risk

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-replay/internal/book"
	"github.com/rxtech-lab/argo-replay/internal/fx"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type staticValuer struct {
	prices map[string]decimal.Decimal
}

func (v staticValuer) Valuation(view types.BookView) (types.BookValuation, error) {
	b := book.New(view.Name(), view.Denomination(), view.Cash(), view.Positions())

	return b.Valuation(time.Time{}, func(asset string) (decimal.Decimal, string, error) {
		price, ok := v.prices[asset]
		if !ok {
			return decimal.Zero, "", errors.NewMissingFieldError(asset, types.FieldClose, time.Time{})
		}

		return price, "USD", nil
	}, fx.NewIdentity())
}

type RiskTestSuite struct {
	suite.Suite
	valuer staticValuer
}

func TestRiskSuite(t *testing.T) {
	suite.Run(t, new(RiskTestSuite))
}

func (suite *RiskTestSuite) SetupTest() {
	suite.valuer = staticValuer{prices: map[string]decimal.Decimal{
		"GOOG": decimal.NewFromInt(50),
		"MSFT": decimal.NewFromInt(100),
	}}
}

// project builds a hook context for buying quantity of asset at the valuer's price.
func (suite *RiskTestSuite) project(before *book.Book, asset string, quantity int64) types.HookContext {
	price := suite.valuer.prices[asset]
	q := decimal.NewFromInt(quantity)
	fill := types.Fill{Asset: asset, Quantity: q, Price: price, Denomination: "USD", CashAmount: q.Mul(price).Neg()}

	after := before.Clone()
	suite.Require().NoError(after.Apply(types.Transaction{Book: before.Name(), Asset: asset, Quantity: q, CashAmount: fill.CashAmount}))

	return types.HookContext{
		Before: before,
		After:  after,
		Fills:  []types.Fill{fill},
		Valuer: suite.valuer,
	}
}

func (suite *RiskTestSuite) TestMaxPosition() {
	hook := MaxPosition("MSFT", decimal.NewFromInt(50))

	tests := []struct {
		name     string
		start    map[string]decimal.Decimal
		asset    string
		quantity int64
		expected types.HookDecision
	}{
		{name: "within limit", asset: "MSFT", quantity: 50, expected: types.HookProceed},
		{name: "above limit", asset: "MSFT", quantity: 100, expected: types.HookReject},
		{name: "short above limit", asset: "MSFT", quantity: -51, expected: types.HookReject},
		{name: "other asset", asset: "GOOG", quantity: 1000, expected: types.HookProceed},
		{
			name:     "reducing oversized position",
			start:    map[string]decimal.Decimal{"MSFT": decimal.NewFromInt(80)},
			asset:    "MSFT",
			quantity: -10,
			expected: types.HookProceed,
		},
		{
			name:     "growing oversized position",
			start:    map[string]decimal.Decimal{"MSFT": decimal.NewFromInt(80)},
			asset:    "MSFT",
			quantity: 1,
			expected: types.HookReject,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			before := book.New("Main", "USD", decimal.NewFromInt(1000000), tc.start)

			decision, err := hook.Check(suite.project(before, tc.asset, tc.quantity))
			suite.NoError(err)
			suite.Equal(tc.expected, decision)
		})
	}
}

func (suite *RiskTestSuite) TestMaxLeverage() {
	hook := MaxLeverage(decimal.NewFromInt(2))

	tests := []struct {
		name     string
		quantity int64
		expected types.HookDecision
	}{
		{name: "unlevered", quantity: 200, expected: types.HookProceed},
		{name: "exactly two times", quantity: 400, expected: types.HookProceed},
		{name: "above two times", quantity: 401, expected: types.HookReject},
		{name: "short exposure counts", quantity: -401, expected: types.HookReject},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			before := book.New("Main", "USD", decimal.NewFromInt(10000), nil)

			decision, err := hook.Check(suite.project(before, "GOOG", tc.quantity))
			suite.NoError(err)
			suite.Equal(tc.expected, decision)
		})
	}
}

func (suite *RiskTestSuite) TestMaxLeverageNeedsValuer() {
	before := book.New("Main", "USD", decimal.NewFromInt(10000), nil)
	ctx := suite.project(before, "GOOG", 1)
	ctx.Valuer = nil

	_, err := MaxLeverage(decimal.NewFromInt(1)).Check(ctx)
	suite.Error(err)
	suite.Equal(errors.ErrCodeHookFailed, errors.GetCode(err))
}

func (suite *RiskTestSuite) TestMaxLeverageNonPositiveEquity() {
	before := book.New("Main", "USD", decimal.NewFromInt(-100), nil)

	decision, err := MaxLeverage(decimal.NewFromInt(5)).Check(suite.project(before, "GOOG", 1))
	suite.NoError(err)
	suite.Equal(types.HookReject, decision)
}

func (suite *RiskTestSuite) TestNoShort() {
	hook := NoShort()
	before := book.New("Main", "USD", decimal.NewFromInt(10000), map[string]decimal.Decimal{"GOOG": decimal.NewFromInt(10)})

	decision, err := hook.Check(suite.project(before, "GOOG", -10))
	suite.NoError(err)
	suite.Equal(types.HookProceed, decision)

	decision, err = hook.Check(suite.project(before, "GOOG", -11))
	suite.NoError(err)
	suite.Equal(types.HookReject, decision)
}

func (suite *RiskTestSuite) TestNoBorrowing() {
	hook := NoBorrowing()
	before := book.New("Main", "USD", decimal.NewFromInt(5000), nil)

	decision, err := hook.Check(suite.project(before, "GOOG", 100))
	suite.NoError(err)
	suite.Equal(types.HookProceed, decision)

	decision, err = hook.Check(suite.project(before, "GOOG", 101))
	suite.NoError(err)
	suite.Equal(types.HookReject, decision)
}

func (suite *RiskTestSuite) TestMandateHook() {
	tests := []struct {
		name        string
		mandate     Mandate
		expectedErr bool
		hookName    string
	}{
		{name: "max position", mandate: Mandate{Type: MandateMaxPosition, Asset: "GOOG", Limit: decimal.NewFromInt(10)}, hookName: "max_position:GOOG"},
		{name: "max position without asset", mandate: Mandate{Type: MandateMaxPosition, Limit: decimal.NewFromInt(10)}, expectedErr: true},
		{name: "max position negative", mandate: Mandate{Type: MandateMaxPosition, Asset: "GOOG", Limit: decimal.NewFromInt(-1)}, expectedErr: true},
		{name: "max leverage", mandate: Mandate{Type: MandateMaxLeverage, Limit: decimal.NewFromInt(2)}, hookName: "max_leverage"},
		{name: "max leverage zero", mandate: Mandate{Type: MandateMaxLeverage}, expectedErr: true},
		{name: "no short", mandate: Mandate{Type: MandateNoShort}, hookName: "no_short"},
		{name: "no borrowing", mandate: Mandate{Type: MandateNoBorrowing}, hookName: "no_borrowing"},
		{name: "unknown", mandate: Mandate{Type: "vibes"}, expectedErr: true},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			hook, err := tc.mandate.Hook()
			if tc.expectedErr {
				suite.Error(err)
				suite.True(errors.IsConfigurationError(err))

				return
			}

			suite.NoError(err)
			suite.Equal(tc.hookName, hook.Name())
		})
	}
}
