// Package risk provides the built-in pre-trade checks. They are used as book
// mandates, applied to every order targeting a book, or attached to single orders.
package risk

import (
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

type MandateType string

const (
	MandateMaxPosition MandateType = "max_position"
	MandateMaxLeverage MandateType = "max_leverage"
	MandateNoShort     MandateType = "no_short"
	MandateNoBorrowing MandateType = "no_borrowing"
)

var AllMandates = []any{
	MandateMaxPosition,
	MandateMaxLeverage,
	MandateNoShort,
	MandateNoBorrowing,
}

// MaxPosition rejects orders that would leave |position| of asset above limit.
// Orders reducing an already oversized position pass.
func MaxPosition(asset string, limit decimal.Decimal) types.Hook {
	return types.NewHook(string(MandateMaxPosition)+":"+asset, func(ctx types.HookContext) (types.HookDecision, error) {
		after := ctx.After.Position(asset).Abs()
		if after.LessThanOrEqual(limit) {
			return types.HookProceed, nil
		}

		if after.LessThan(ctx.Before.Position(asset).Abs()) {
			return types.HookProceed, nil
		}

		return types.HookReject, nil
	})
}

// MaxLeverage rejects orders that would leave gross exposure above limit times the
// book's net value. A book with no positive net value and any exposure is rejected.
func MaxLeverage(limit decimal.Decimal) types.Hook {
	return types.NewHook(string(MandateMaxLeverage), func(ctx types.HookContext) (types.HookDecision, error) {
		if ctx.Valuer == nil {
			return types.HookReject, errors.New(errors.ErrCodeHookFailed, "max_leverage needs a valuer")
		}

		valuation, err := ctx.Valuer.Valuation(ctx.After)
		if err != nil {
			return types.HookReject, err
		}

		exposure := valuation.GrossExposure()
		if exposure.IsZero() {
			return types.HookProceed, nil
		}

		if !valuation.Total.IsPositive() {
			return types.HookReject, nil
		}

		if exposure.GreaterThan(valuation.Total.Mul(limit)) {
			return types.HookReject, nil
		}

		return types.HookProceed, nil
	})
}

// NoShort rejects orders that leave a negative position in any asset they trade.
func NoShort() types.Hook {
	return types.NewHook(string(MandateNoShort), func(ctx types.HookContext) (types.HookDecision, error) {
		for _, fill := range ctx.Fills {
			if ctx.After.Position(fill.Asset).IsNegative() {
				return types.HookReject, nil
			}
		}

		return types.HookProceed, nil
	})
}

// NoBorrowing rejects orders that leave the book's cash negative. This is the
// "insufficient capacity" check.
func NoBorrowing() types.Hook {
	return types.NewHook(string(MandateNoBorrowing), func(ctx types.HookContext) (types.HookDecision, error) {
		if ctx.After.Cash().IsNegative() {
			return types.HookReject, nil
		}

		return types.HookProceed, nil
	})
}

// Mandate is the configuration of one book-level check.
type Mandate struct {
	Type  MandateType     `yaml:"type" json:"type" jsonschema:"title=Type,enum=max_position,enum=max_leverage,enum=no_short,enum=no_borrowing" validate:"required,oneof=max_position max_leverage no_short no_borrowing"`
	Asset string          `yaml:"asset,omitempty" json:"asset,omitempty" jsonschema:"title=Asset,description=Asset the max_position limit applies to"`
	Limit decimal.Decimal `yaml:"limit,omitempty" json:"limit,omitempty" jsonschema:"title=Limit,type=string,description=Position or leverage limit"`
}

// Hook builds the check a mandate describes.
func (m Mandate) Hook() (types.Hook, error) {
	switch m.Type {
	case MandateMaxPosition:
		if m.Asset == "" {
			return nil, errors.New(errors.ErrCodeInvalidConfiguration, "max_position mandate needs an asset")
		}

		if m.Limit.IsNegative() {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "max_position limit for %s must not be negative", m.Asset)
		}

		return MaxPosition(m.Asset, m.Limit), nil
	case MandateMaxLeverage:
		if !m.Limit.IsPositive() {
			return nil, errors.New(errors.ErrCodeInvalidConfiguration, "max_leverage limit must be positive")
		}

		return MaxLeverage(m.Limit), nil
	case MandateNoShort:
		return NoShort(), nil
	case MandateNoBorrowing:
		return NoBorrowing(), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown mandate type %q", m.Type)
	}
}
