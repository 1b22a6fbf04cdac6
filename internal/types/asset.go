package types

import (
	"time"

	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

// SessionPhase is one of the two points in a timestep at which orders execute.
type SessionPhase string

const (
	PhaseOpen  SessionPhase = "open"
	PhaseClose SessionPhase = "close"
)

// Standard price fields.
const (
	FieldOpen   = "Open"
	FieldHigh   = "High"
	FieldLow    = "Low"
	FieldClose  = "Close"
	FieldVolume = "Volume"
)

const (
	DefaultPricePrecision    int32 = 2
	DefaultQuantityPrecision int32 = 0
)

type AssetType string

const (
	AssetTypeOHLCV AssetType = "ohlcv"
	AssetTypeClose AssetType = "close"
)

// FieldReader gives assets access to the market data table when resolving prices.
type FieldReader interface {
	// Value returns the cell for (asset, field) at row. Missing columns and
	// out of range rows are returned as invalid.
	Value(asset, field string, row int) decimal.NullDecimal
	// Time returns the timestamp of row.
	Time(row int) time.Time
}

// Asset is anything with a reference price.
type Asset interface {
	// Name is the unique identifier of the asset within a run.
	Name() string
	// Denomination is the currency prices are quoted in.
	Denomination() string
	// Type returns the asset variant.
	Type() AssetType
	// RequiredFields lists the columns the data table must carry for this asset.
	RequiredFields() []string
	// AvailableAtOpen reports whether field is known at the open of its own timestep.
	AvailableAtOpen(field string) bool
	// ReferencePrice resolves the execution and valuation price at row for phase.
	ReferencePrice(data FieldReader, row int, phase SessionPhase) (decimal.Decimal, error)
	// PricePrecision is the number of decimal places prices are rounded to.
	PricePrecision() int32
	// QuantityPrecision is the number of decimal places quantities are truncated to.
	QuantityPrecision() int32
}

// AssetInfo holds the identity shared by every asset variant.
type AssetInfo struct {
	Symbol           string
	Currency         string
	PriceDecimals    int32
	QuantityDecimals int32
}

// NewAssetInfo returns an AssetInfo with the default precisions.
func NewAssetInfo(name, denomination string) AssetInfo {
	return AssetInfo{
		Symbol:           name,
		Currency:         denomination,
		PriceDecimals:    DefaultPricePrecision,
		QuantityDecimals: DefaultQuantityPrecision,
	}
}

func (a AssetInfo) Name() string {
	return a.Symbol
}

func (a AssetInfo) Denomination() string {
	return a.Currency
}

func (a AssetInfo) PricePrecision() int32 {
	return a.PriceDecimals
}

func (a AssetInfo) QuantityPrecision() int32 {
	return a.QuantityDecimals
}

// OHLCVAsset is a bar asset. It trades at Open during the open phase and at Close
// during the close phase. Only Open is known at the open.
type OHLCVAsset struct {
	AssetInfo
}

// NewOHLCVAsset creates an OHLCV asset with the default precisions.
func NewOHLCVAsset(name, denomination string) *OHLCVAsset {
	return &OHLCVAsset{AssetInfo: NewAssetInfo(name, denomination)}
}

func (a *OHLCVAsset) Type() AssetType {
	return AssetTypeOHLCV
}

func (a *OHLCVAsset) RequiredFields() []string {
	return []string{FieldOpen, FieldHigh, FieldLow, FieldClose, FieldVolume}
}

func (a *OHLCVAsset) AvailableAtOpen(field string) bool {
	return field == FieldOpen
}

func (a *OHLCVAsset) ReferencePrice(data FieldReader, row int, phase SessionPhase) (decimal.Decimal, error) {
	field := FieldClose
	if phase == PhaseOpen {
		field = FieldOpen
	}

	value := data.Value(a.Symbol, field, row)
	if !value.Valid {
		return decimal.Zero, errors.NewMissingFieldError(a.Symbol, field, data.Time(row))
	}

	return value.Decimal, nil
}

// CloseAsset only carries a closing price. During the open phase it is priced at
// the last close strictly before the current timestep.
type CloseAsset struct {
	AssetInfo
}

// NewCloseAsset creates a close-only asset with the default precisions.
func NewCloseAsset(name, denomination string) *CloseAsset {
	return &CloseAsset{AssetInfo: NewAssetInfo(name, denomination)}
}

func (a *CloseAsset) Type() AssetType {
	return AssetTypeClose
}

func (a *CloseAsset) RequiredFields() []string {
	return []string{FieldClose}
}

func (a *CloseAsset) AvailableAtOpen(string) bool {
	return false
}

func (a *CloseAsset) ReferencePrice(data FieldReader, row int, phase SessionPhase) (decimal.Decimal, error) {
	if phase == PhaseClose {
		value := data.Value(a.Symbol, FieldClose, row)
		if !value.Valid {
			return decimal.Zero, errors.NewMissingFieldError(a.Symbol, FieldClose, data.Time(row))
		}

		return value.Decimal, nil
	}

	for i := row - 1; i >= 0; i-- {
		if value := data.Value(a.Symbol, FieldClose, i); value.Valid {
			return value.Decimal, nil
		}
	}

	return decimal.Zero, errors.NewMissingFieldError(a.Symbol, FieldClose, data.Time(row))
}
