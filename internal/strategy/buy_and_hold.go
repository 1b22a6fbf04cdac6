package strategy

import (
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

const TypeBuyAndHold = "buy_and_hold"

// BuyAndHold buys once and never trades again.
//
// Params: symbol (required), percent (100) of the book, or quantity units when set,
// at_open (false) to buy at the first step's close instead of the second step's open,
// book (first book).
type BuyAndHold struct {
	name      string
	symbol    string
	book      string
	size      decimal.Decimal
	sizeType  types.OrderSizeType
	atOpen    bool
	submitted bool
}

func NewBuyAndHold(name string, params Params) (Strategy, error) {
	symbol, err := params.String("symbol", "")
	if err != nil {
		return nil, err
	}

	if symbol == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "buy_and_hold needs a symbol")
	}

	size, err := params.Decimal("percent", decimal.NewFromInt(100))
	if err != nil {
		return nil, err
	}

	sizeType := types.OrderSizeTypeBookPercent

	if _, ok := params["quantity"]; ok {
		size, err = params.Decimal("quantity", decimal.Zero)
		if err != nil {
			return nil, err
		}

		sizeType = types.OrderSizeTypeQuantity
	}

	atOpen, err := params.Bool("at_open", false)
	if err != nil {
		return nil, err
	}

	book, err := params.String("book", "")
	if err != nil {
		return nil, err
	}

	return &BuyAndHold{
		name:     name,
		symbol:   symbol,
		book:     book,
		size:     size,
		sizeType: sizeType,
		atOpen:   atOpen,
	}, nil
}

func (s *BuyAndHold) Name() string {
	return s.name
}

func (s *BuyAndHold) Init(InitContext) error {
	return nil
}

func (s *BuyAndHold) OnOpen(ctx StepContext) error {
	if !s.atOpen || s.submitted {
		return nil
	}

	return s.buy(ctx, true)
}

func (s *BuyAndHold) OnClose(ctx StepContext) error {
	if s.atOpen || s.submitted {
		return nil
	}

	return s.buy(ctx, false)
}

func (s *BuyAndHold) buy(ctx StepContext, atClose bool) error {
	_, err := ctx.Submit(&types.SimpleOrder{
		OrderOptions: types.OrderOptions{Book: s.book, ExecuteAtClose: atClose, Label: "buy_and_hold"},
		Asset:        s.symbol,
		Size:         s.size,
		SizeType:     s.sizeType,
	})
	if err != nil {
		return err
	}

	s.submitted = true
	ctx.Mark(s.symbol, types.SignalTypeBuyLong, "initial purchase")

	return nil
}
