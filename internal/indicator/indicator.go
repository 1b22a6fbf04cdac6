// Package indicator computes derived series from frame columns. Strategies attach
// the results to their own frame overlay during init.
package indicator

import (
	"fmt"

	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

type IndicatorType string

const (
	IndicatorTypeMA  IndicatorType = "ma"
	IndicatorTypeEMA IndicatorType = "ema"
)

// Indicator interface defines methods that any technical indicator must implement
type Indicator interface {
	// Name returns the name of the indicator
	Name() IndicatorType
	// Compute returns one value per input row. A row is null until the indicator
	// has seen period consecutive valid inputs.
	Compute(values []decimal.NullDecimal) []decimal.NullDecimal
	// Column is the field name the result is stored under, e.g. "SMA10".
	Column() string
}

// Config parses an indicator period from a strategy parameter.
func Config(params ...any) (int, error) {
	if len(params) != 1 {
		return 0, errors.New(errors.ErrCodeInvalidParameter, "Config expects 1 parameter: period (int)")
	}

	var period int

	switch p := params[0].(type) {
	case int:
		period = p
	case int64:
		period = int(p)
	case float64:
		period = int(p)
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidType, "invalid type for period parameter, expected int or float, got %T", params[0])
	}

	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "period must be a positive integer, got %d", period)
	}

	return period, nil
}

func columnName(prefix string, period int) string {
	return fmt.Sprintf("%s%d", prefix, period)
}
