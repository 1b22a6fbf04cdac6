package strategy

import (
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

const TypeBasketRebalance = "basket_rebalance"

var hundred = decimal.NewFromInt(100)

// BasketRebalance holds a fixed weight portfolio, rebalancing every few steps with
// one all-or-nothing basket order.
//
// Params: symbols (required), weights in percent of the book (equal split of 100),
// rebalance_every (20) steps, book (first book).
type BasketRebalance struct {
	name    string
	symbols []string
	weights []decimal.Decimal
	every   int
	book    string
	steps   int
}

func NewBasketRebalance(name string, params Params) (Strategy, error) {
	symbols, err := params.Strings("symbols", nil)
	if err != nil {
		return nil, err
	}

	if len(symbols) == 0 {
		return nil, errors.New(errors.ErrCodeMissingParameter, "basket_rebalance needs symbols")
	}

	equal := make([]decimal.Decimal, len(symbols))
	for i := range equal {
		equal[i] = hundred.Div(decimal.NewFromInt(int64(len(symbols))))
	}

	weights, err := params.Decimals("weights", equal)
	if err != nil {
		return nil, err
	}

	if len(weights) != len(symbols) {
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError, "%d symbols but %d weights", len(symbols), len(weights))
	}

	total := decimal.Zero
	for _, weight := range weights {
		if weight.IsNegative() {
			return nil, errors.New(errors.ErrCodeStrategyConfigError, "weights must not be negative")
		}

		total = total.Add(weight)
	}

	if total.GreaterThan(hundred) {
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError, "weights add up to %s%%", total.String())
	}

	every, err := params.Int("rebalance_every", 20)
	if err != nil {
		return nil, err
	}

	if every <= 0 {
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError, "rebalance_every must be positive, got %d", every)
	}

	book, err := params.String("book", "")
	if err != nil {
		return nil, err
	}

	return &BasketRebalance{
		name:    name,
		symbols: symbols,
		weights: weights,
		every:   every,
		book:    book,
	}, nil
}

func (s *BasketRebalance) Name() string {
	return s.name
}

func (s *BasketRebalance) Init(ctx InitContext) error {
	for _, symbol := range s.symbols {
		if _, ok := ctx.Data().Series(symbol, types.FieldClose); !ok {
			return errors.Newf(errors.ErrCodeDataNotFound, "no Close column for %s", symbol)
		}
	}

	return nil
}

func (s *BasketRebalance) OnOpen(StepContext) error {
	return nil
}

func (s *BasketRebalance) OnClose(ctx StepContext) error {
	step := s.steps
	s.steps++

	if step%s.every != 0 {
		return nil
	}

	basket, err := types.NewWeightedBasket(s.symbols, s.weights, decimal.NewFromInt(1), types.OrderSizeTypeTargetPercent)
	if err != nil {
		return err
	}

	basket.Book = s.book
	basket.Label = "rebalance"

	if _, err := ctx.Submit(basket); err != nil {
		return err
	}

	for _, symbol := range s.symbols {
		ctx.Mark(symbol, types.SignalTypeRebalance, "scheduled rebalance")
	}

	return nil
}
