package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketData is one long-format row of market data: every field of one symbol at one time.
type MarketData struct {
	Time   time.Time
	Symbol string
	Fields map[string]decimal.NullDecimal
}

// NewOHLCV builds a MarketData row with the standard bar fields.
func NewOHLCV(t time.Time, symbol string, open, high, low, closePrice, volume decimal.Decimal) MarketData {
	return MarketData{
		Time:   t,
		Symbol: symbol,
		Fields: map[string]decimal.NullDecimal{
			FieldOpen:   decimal.NewNullDecimal(open),
			FieldHigh:   decimal.NewNullDecimal(high),
			FieldLow:    decimal.NewNullDecimal(low),
			FieldClose:  decimal.NewNullDecimal(closePrice),
			FieldVolume: decimal.NewNullDecimal(volume),
		},
	}
}

// Get returns the value of field, invalid if absent.
func (m MarketData) Get(field string) decimal.NullDecimal {
	return m.Fields[field]
}
