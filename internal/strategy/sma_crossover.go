package strategy

import (
	"github.com/rxtech-lab/argo-replay/internal/indicator"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const TypeSMACrossover = "sma_crossover"

// SMACrossover goes long when the short moving average of Close crosses above the
// long one and flattens when it crosses back below.
//
// Params: symbol (required), days_short (10), days_long (20), percent (100) of the
// book to invest on entry, book (first book).
type SMACrossover struct {
	name    string
	symbol  string
	book    string
	percent decimal.Decimal
	short   indicator.Indicator
	long    indicator.Indicator
}

func NewSMACrossover(name string, params Params) (Strategy, error) {
	symbol, err := params.String("symbol", "")
	if err != nil {
		return nil, err
	}

	if symbol == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "sma_crossover needs a symbol")
	}

	daysShort, err := params.Int("days_short", 10)
	if err != nil {
		return nil, err
	}

	daysLong, err := params.Int("days_long", 20)
	if err != nil {
		return nil, err
	}

	if daysShort >= daysLong {
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError, "days_short (%d) must be less than days_long (%d)", daysShort, daysLong)
	}

	short, err := indicator.NewMA(daysShort)
	if err != nil {
		return nil, err
	}

	long, err := indicator.NewMA(daysLong)
	if err != nil {
		return nil, err
	}

	percent, err := params.Decimal("percent", decimal.NewFromInt(100))
	if err != nil {
		return nil, err
	}

	book, err := params.String("book", "")
	if err != nil {
		return nil, err
	}

	return &SMACrossover{
		name:    name,
		symbol:  symbol,
		book:    book,
		percent: percent,
		short:   short,
		long:    long,
	}, nil
}

func (s *SMACrossover) Name() string {
	return s.name
}

func (s *SMACrossover) Init(ctx InitContext) error {
	closes, ok := ctx.Data().Series(s.symbol, types.FieldClose)
	if !ok {
		return errors.Newf(errors.ErrCodeDataNotFound, "no Close column for %s", s.symbol)
	}

	for _, ma := range []indicator.Indicator{s.short, s.long} {
		if err := ctx.Data().SetColumn(s.symbol, ma.Column(), ma.Compute(closes.Values())); err != nil {
			return err
		}
	}

	return nil
}

func (s *SMACrossover) OnOpen(StepContext) error {
	return nil
}

func (s *SMACrossover) OnClose(ctx StepContext) error {
	short := ctx.Data().Series(s.symbol, s.short.Column())
	long := ctx.Data().Series(s.symbol, s.long.Column())

	n := short.Len()
	if n < 2 {
		return nil
	}

	prevShort, prevLong, curShort, curLong := short.At(n-2), long.At(n-2), short.At(n-1), long.At(n-1)
	if !prevShort.Valid || !prevLong.Valid || !curShort.Valid || !curLong.Valid {
		return nil
	}

	book, err := ctx.Book(s.book)
	if err != nil {
		return err
	}

	position := book.Position(s.symbol)

	switch {
	case prevShort.Decimal.LessThanOrEqual(prevLong.Decimal) && curShort.Decimal.GreaterThan(curLong.Decimal) && position.IsZero():
		key, err := ctx.Submit(&types.SimpleOrder{
			OrderOptions: types.OrderOptions{Book: s.book, Label: "sma_cross_up"},
			Asset:        s.symbol,
			Size:         s.percent,
			SizeType:     types.OrderSizeTypeBookPercent,
		})
		if err != nil {
			return err
		}

		ctx.Mark(s.symbol, types.SignalTypeBuyLong, "short average crossed above long average")
		ctx.Logger().Debug("Entering position", zap.String("strategy", s.name), zap.String("order", key))
	case prevShort.Decimal.GreaterThanOrEqual(prevLong.Decimal) && curShort.Decimal.LessThan(curLong.Decimal) && position.IsPositive():
		key, err := ctx.Submit(&types.SimpleOrder{
			OrderOptions: types.OrderOptions{Book: s.book, Label: "sma_cross_down"},
			Asset:        s.symbol,
			Size:         decimal.Zero,
			SizeType:     types.OrderSizeTypeTargetPosition,
		})
		if err != nil {
			return err
		}

		ctx.Mark(s.symbol, types.SignalTypeSellLong, "short average crossed below long average")
		ctx.Logger().Debug("Closing position", zap.String("strategy", s.name), zap.String("order", key))
	}

	return nil
}
