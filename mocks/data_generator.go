package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/shopspring/decimal"
)

// DataGenerator produces seeded geometric Brownian motion bars for replay fixtures.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a generator. The same seed always yields the same rows.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// SeriesConfig describes one generated instrument.
type SeriesConfig struct {
	Symbol       string
	Denomination string
	InitialPrice float64
	// Volatility is the standard deviation of the per bar return.
	Volatility float64
	// Drift is the mean per bar return.
	Drift float64
	// CloseOnly emits only the Close field, matching a close-only asset.
	CloseOnly bool
	// GapEvery drops every n-th bar of the series. Zero keeps every bar.
	GapEvery int
}

// GeneratorConfig configures a multi asset data set on one shared timeline.
type GeneratorConfig struct {
	Start    time.Time
	Interval time.Duration
	Count    int
	// PriceDecimals is the precision prices are rounded to.
	PriceDecimals int32
	Series        []SeriesConfig
}

// DailyConfig returns a year of daily OHLCV bars in USD for each symbol.
func DailyConfig(symbols ...string) GeneratorConfig {
	series := make([]SeriesConfig, len(symbols))
	for i, symbol := range symbols {
		series[i] = SeriesConfig{
			Symbol:       symbol,
			Denomination: "USD",
			InitialPrice: 100,
			Volatility:   0.02,
		}
	}

	return GeneratorConfig{
		Start:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:      24 * time.Hour,
		Count:         250,
		PriceDecimals: 2,
		Series:        series,
	}
}

// Generate returns long format rows ordered by time, then by series order.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.MarketData {
	prices := make([]float64, len(config.Series))
	for i, series := range config.Series {
		prices[i] = series.InitialPrice
	}

	rows := make([]types.MarketData, 0, config.Count*len(config.Series))

	for step := 0; step < config.Count; step++ {
		at := config.Start.Add(time.Duration(step) * config.Interval)

		for i, series := range config.Series {
			open := prices[i]
			closePrice := open * math.Exp(series.Drift+series.Volatility*g.rng.NormFloat64())
			prices[i] = closePrice

			high := math.Max(open, closePrice) * (1 + math.Abs(g.rng.NormFloat64())*series.Volatility/2)
			low := math.Min(open, closePrice) * (1 - math.Min(math.Abs(g.rng.NormFloat64())*series.Volatility/2, 0.5))
			volume := math.Round(10000 * (0.5 + g.rng.Float64()))

			if series.GapEvery > 0 && (step+1)%series.GapEvery == 0 {
				continue
			}

			if series.CloseOnly {
				rows = append(rows, types.MarketData{
					Time:   at,
					Symbol: series.Symbol,
					Fields: map[string]decimal.NullDecimal{
						types.FieldClose: decimal.NewNullDecimal(round(closePrice, config.PriceDecimals)),
					},
				})

				continue
			}

			rows = append(rows, types.NewOHLCV(at, series.Symbol,
				round(open, config.PriceDecimals),
				round(high, config.PriceDecimals),
				round(low, config.PriceDecimals),
				round(closePrice, config.PriceDecimals),
				decimal.NewFromFloat(volume),
			))
		}
	}

	return rows
}

// Assets returns the asset variant matching each generated series.
func (config GeneratorConfig) Assets() []types.Asset {
	assets := make([]types.Asset, len(config.Series))

	for i, series := range config.Series {
		if series.CloseOnly {
			assets[i] = types.NewCloseAsset(series.Symbol, series.Denomination)
		} else {
			assets[i] = types.NewOHLCVAsset(series.Symbol, series.Denomination)
		}
	}

	return assets
}

func round(value float64, decimals int32) decimal.Decimal {
	return decimal.NewFromFloat(value).Round(decimals)
}
