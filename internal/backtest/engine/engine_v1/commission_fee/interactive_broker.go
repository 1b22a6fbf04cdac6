package commission_fee

import "github.com/shopspring/decimal"

// Fixed pricing of US stocks: a per share rate with a per order minimum, never more than
// a fixed share of the trade value.
var (
	interactiveBrokerPerShare = decimal.RequireFromString("0.005")
	interactiveBrokerMinimum  = decimal.NewFromInt(1)
	interactiveBrokerMaxRate  = decimal.RequireFromString("0.01")
)

type InteractiveBrokerCommissionFee struct {
}

func NewInteractiveBrokerCommissionFee() CommissionFee {
	return &InteractiveBrokerCommissionFee{}
}

// Calculate charges 0.005 per share, at least 1 and at most 1% of the trade value.
// An empty fill is free.
func (c *InteractiveBrokerCommissionFee) Calculate(quantity decimal.Decimal, price decimal.Decimal) decimal.Decimal {
	if quantity.IsZero() {
		return decimal.Zero
	}

	fee := decimal.Max(interactiveBrokerPerShare.Mul(quantity.Abs()), interactiveBrokerMinimum)

	return decimal.Min(fee, quantity.Mul(price).Abs().Mul(interactiveBrokerMaxRate))
}
