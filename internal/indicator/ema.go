package indicator

import (
	"github.com/shopspring/decimal"
)

// EMA indicator implements Exponential Moving Average calculation.
type EMA struct {
	period int
}

// NewEMA creates a new EMA indicator over period rows.
func NewEMA(period int) (Indicator, error) {
	p, err := Config(period)
	if err != nil {
		return nil, err
	}

	return &EMA{period: p}, nil
}

// Name returns the name of the indicator.
func (e *EMA) Name() IndicatorType {
	return IndicatorTypeEMA
}

func (e *EMA) Column() string {
	return columnName("EMA", e.period)
}

// Compute seeds with the simple mean of the first period values, then applies
// EMA = price * alpha + EMA_prev * (1 - alpha) with alpha = 2 / (period + 1).
// A null input restarts the seed.
func (e *EMA) Compute(values []decimal.NullDecimal) []decimal.NullDecimal {
	result := make([]decimal.NullDecimal, len(values))
	alpha := decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(e.period + 1)))
	keep := decimal.NewFromInt(1).Sub(alpha)

	seed := decimal.Zero
	run := 0

	var ema decimal.Decimal

	for i, value := range values {
		if !value.Valid {
			seed = decimal.Zero
			run = 0

			continue
		}

		run++

		switch {
		case run < e.period:
			seed = seed.Add(value.Decimal)
		case run == e.period:
			ema = seed.Add(value.Decimal).Div(decimal.NewFromInt(int64(e.period)))
			result[i] = decimal.NewNullDecimal(ema)
		default:
			ema = value.Decimal.Mul(alpha).Add(ema.Mul(keep))
			result[i] = decimal.NewNullDecimal(ema)
		}
	}

	return result
}
