package indicator

import (
	"github.com/shopspring/decimal"
)

// MA indicator implements Simple Moving Average calculation.
type MA struct {
	period int
}

// NewMA creates a new MA indicator over period rows.
func NewMA(period int) (Indicator, error) {
	p, err := Config(period)
	if err != nil {
		return nil, err
	}

	return &MA{period: p}, nil
}

// Name returns the name of the indicator.
func (m *MA) Name() IndicatorType {
	return IndicatorTypeMA
}

func (m *MA) Column() string {
	return columnName("SMA", m.period)
}

// Compute calculates the rolling mean. A null input restarts the window.
func (m *MA) Compute(values []decimal.NullDecimal) []decimal.NullDecimal {
	result := make([]decimal.NullDecimal, len(values))
	period := decimal.NewFromInt(int64(m.period))

	sum := decimal.Zero
	run := 0

	for i, value := range values {
		if !value.Valid {
			sum = decimal.Zero
			run = 0

			continue
		}

		sum = sum.Add(value.Decimal)
		run++

		if run > m.period {
			sum = sum.Sub(values[i-m.period].Decimal)
		}

		if run >= m.period {
			result[i] = decimal.NewNullDecimal(sum.Div(period))
		}
	}

	return result
}
