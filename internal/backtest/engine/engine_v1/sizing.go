package engine

import (
	"github.com/rxtech-lab/argo-replay/internal/book"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/internal/utils"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// resolveFills sizes and prices every leg against the book as of the immediately prior
// execution. Basket legs all see the same pre-basket state. A non-empty reason rejects
// the whole order.
func (rc *runContext) resolveFills(b *book.Book, order *pendingOrder) ([]types.Fill, string, error) {
	var bookValue *decimal.Decimal

	value := func() (decimal.Decimal, error) {
		if bookValue == nil {
			valuation, err := rc.Valuation(&bookView{book: b})
			if err != nil {
				return decimal.Zero, err
			}

			bookValue = &valuation.Total
		}

		return *bookValue, nil
	}

	fills := make([]types.Fill, 0, len(order.legs))

	for i, leg := range order.legs {
		price, asset, err := rc.priceAt(leg.Asset, rc.step, rc.phase)
		if err != nil {
			return nil, "", err
		}

		if !price.IsPositive() {
			return nil, types.OrderReasonNonPositivePrice, nil
		}

		quantity, reason, err := rc.size(b, leg, asset, price, value)
		if err != nil || reason != "" {
			return nil, reason, err
		}

		fill := types.Fill{
			Leg:          i,
			Asset:        leg.Asset,
			Quantity:     quantity,
			Price:        price,
			Denomination: asset.Denomination(),
			Fee:          decimal.Zero,
			CashAmount:   decimal.Zero,
		}

		if !quantity.IsZero() {
			cost, err := rc.convert(quantity.Mul(price), asset.Denomination(), b.Denomination())
			if err != nil || cost == nil {
				return nil, types.OrderReasonFXUnavailable, err
			}

			fee, err := rc.convert(rc.runner.commission.Calculate(quantity, price), asset.Denomination(), b.Denomination())
			if err != nil || fee == nil {
				return nil, types.OrderReasonFXUnavailable, err
			}

			fill.Fee = *fee
			fill.CashAmount = cost.Neg().Sub(*fee)
		}

		fills = append(fills, fill)
	}

	return fills, "", nil
}

// size turns a leg into a signed quantity truncated at the asset's precision.
func (rc *runContext) size(b *book.Book, leg types.Leg, asset types.Asset, price decimal.Decimal, value func() (decimal.Decimal, error)) (decimal.Decimal, string, error) {
	precision := asset.QuantityPrecision()
	held := b.Position(leg.Asset)

	switch leg.SizeType {
	case types.OrderSizeTypeQuantity:
		return utils.RoundToDecimalPrecision(leg.Size, precision), "", nil
	case types.OrderSizeTypeNotional:
		return utils.FloorDiv(leg.Size, price, precision), "", nil
	case types.OrderSizeTypeTargetPosition:
		return utils.RoundToDecimalPrecision(leg.Size.Sub(held), precision), "", nil
	case types.OrderSizeTypeBookPercent, types.OrderSizeTypeTargetPercent:
		total, reason, err := rc.assetValue(b, asset, value)
		if err != nil || reason != "" {
			return decimal.Zero, reason, err
		}

		if leg.SizeType == types.OrderSizeTypeBookPercent {
			return utils.CalculateOrderQuantityByPercentage(total, price, rc.runner.commission, leg.Size, precision), "", nil
		}

		desired := utils.FloorDiv(total.Mul(leg.Size).Div(hundred), price, precision)

		return desired.Sub(held), "", nil
	default:
		return decimal.Zero, "", errors.Newf(errors.ErrCodeInvalidOrder, "unknown size type %q", leg.SizeType)
	}
}

// assetValue is the book's total value in the asset's denomination. Books without a
// positive value cannot size percentage orders.
func (rc *runContext) assetValue(b *book.Book, asset types.Asset, value func() (decimal.Decimal, error)) (decimal.Decimal, string, error) {
	total, err := value()
	if err != nil {
		return decimal.Zero, "", err
	}

	if !total.IsPositive() {
		return decimal.Zero, types.OrderReasonInvalidQuantity, nil
	}

	converted, err := rc.convert(total, b.Denomination(), asset.Denomination())
	if err != nil || converted == nil {
		return decimal.Zero, types.OrderReasonFXUnavailable, err
	}

	return *converted, "", nil
}

// convert returns nil without an error when the provider has no rate. Other provider
// errors are fatal.
func (rc *runContext) convert(amount decimal.Decimal, from, to string) (*decimal.Decimal, error) {
	converted, err := rc.runner.fx.Convert(amount, from, to, rc.timestamp)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeFXRateMissing) {
			return nil, nil
		}

		return nil, err
	}

	return &converted, nil
}
