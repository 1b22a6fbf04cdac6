package commission_fee

import "github.com/shopspring/decimal"

// PercentageCommissionFee charges a fixed fraction of the traded notional.
type PercentageCommissionFee struct {
	rate decimal.Decimal
}

// NewPercentageCommissionFee creates a fee of rate * |quantity * price|. A rate of 0.001 is 10 basis points.
func NewPercentageCommissionFee(rate decimal.Decimal) CommissionFee {
	return &PercentageCommissionFee{rate: rate.Abs()}
}

func (c *PercentageCommissionFee) Calculate(quantity decimal.Decimal, price decimal.Decimal) decimal.Decimal {
	return quantity.Mul(price).Abs().Mul(c.rate)
}
