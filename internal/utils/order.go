package utils

import (
	"github.com/rxtech-lab/argo-replay/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/shopspring/decimal"
)

// RoundToDecimalPrecision truncates the quantity toward zero at the specified decimal precision.
func RoundToDecimalPrecision(quantity decimal.Decimal, decimalPrecision int32) decimal.Decimal {
	return quantity.Truncate(decimalPrecision)
}

// RoundPrice rounds a price half away from zero at the specified decimal precision.
func RoundPrice(price decimal.Decimal, decimalPrecision int32) decimal.Decimal {
	return price.Round(decimalPrecision)
}

// FloorDiv returns the largest multiple of 10^-precision not greater than |amount| / price,
// carrying the sign of amount.
func FloorDiv(amount, price decimal.Decimal, decimalPrecision int32) decimal.Decimal {
	if !price.IsPositive() || amount.IsZero() {
		return decimal.Zero
	}

	budget := amount.Abs()
	step := decimal.New(1, -decimalPrecision)

	quantity := RoundToDecimalPrecision(budget.Div(price), decimalPrecision)
	// Div rounds at DivisionPrecision, so the truncated quotient can overshoot by one step.
	for quantity.IsPositive() && quantity.Mul(price).GreaterThan(budget) {
		quantity = quantity.Sub(step)
	}

	if amount.IsNegative() {
		return quantity.Neg()
	}

	return quantity
}

// CalculateMaxQuantity calculates the maximum quantity whose cost including commission
// fits in budget, respecting decimal precision.
func CalculateMaxQuantity(budget, price decimal.Decimal, commissionFee commission_fee.CommissionFee, decimalPrecision int32) decimal.Decimal {
	// Handle edge cases
	if !price.IsPositive() || !budget.IsPositive() {
		return decimal.Zero
	}

	step := decimal.New(1, -decimalPrecision)
	maxQty := FloorDiv(budget, price, decimalPrecision)

	// Iteratively refine by accounting for fees
	for i := 0; i < 10 && maxQty.IsPositive(); i++ { // Usually converges quickly, limit iterations
		totalCost := maxQty.Mul(price).Add(commissionFee.Calculate(maxQty, price))
		if totalCost.LessThanOrEqual(budget) {
			return maxQty
		}

		// Adjust quantity down proportionally, at least one step
		adjusted := RoundToDecimalPrecision(maxQty.Mul(budget).Div(totalCost), decimalPrecision)
		if adjusted.GreaterThanOrEqual(maxQty) {
			adjusted = maxQty.Sub(step)
		}

		maxQty = adjusted
	}

	for maxQty.IsPositive() && maxQty.Mul(price).Add(commissionFee.Calculate(maxQty, price)).GreaterThan(budget) {
		maxQty = maxQty.Sub(step)
	}

	return decimal.Max(maxQty, decimal.Zero)
}

// CalculateOrderQuantityByPercentage sizes an order at percentage of value, 10 meaning 10%.
// The sign of percentage is the side of the order. Buys leave room for commission.
func CalculateOrderQuantityByPercentage(value, price decimal.Decimal, commissionFee commission_fee.CommissionFee, percentage decimal.Decimal, decimalPrecision int32) decimal.Decimal {
	target := value.Mul(percentage).Div(decimal.NewFromInt(100))
	if !target.IsPositive() {
		return FloorDiv(target, price, decimalPrecision)
	}

	return CalculateMaxQuantity(target, price, commissionFee, decimalPrecision)
}
