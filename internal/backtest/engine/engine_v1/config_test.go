package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-replay/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-replay/internal/fx"
	"github.com/rxtech-lab/argo-replay/internal/risk"
	"github.com/rxtech-lab/argo-replay/internal/strategy"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/internal/window"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

const testConfigYAML = `
start_time: 2024-01-01T00:00:00Z
end_time: 2024-03-01T00:00:00Z
broker: percentage
commission_rate: "0.001"
assets:
  - name: GOOG
    type: ohlcv
    denomination: USD
  - name: SAP
    type: close
    denomination: EUR
    price_precision: 3
    quantity_precision: 2
books:
  - name: Main
    denomination: USD
    initial_cash: 100000
    positions:
      GOOG: 10
    mandates:
      - type: max_position
        asset: GOOG
        limit: 500
      - type: no_borrowing
strategies:
  - name: hold
    type: buy_and_hold
    params:
      symbol: GOOG
      quantity: 5
fx_rates:
  - from: EUR
    to: USD
    rate: "1.1"
`

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) parse(content string) BacktestEngineV1Config {
	config := EmptyConfig()
	suite.Require().NoError(yaml.Unmarshal([]byte(content), &config))

	return config
}

func (suite *ConfigTestSuite) TestEmptyConfig() {
	config := EmptyConfig()

	suite.Equal(commission_fee.BrokerZero, config.Broker)
	suite.True(config.StartTime.IsNone())
	suite.True(config.EndTime.IsNone())
	suite.Empty(config.Assets)
	suite.Empty(config.Books)
}

func (suite *ConfigTestSuite) TestTestConfig() {
	startTime := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	endTime := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)

	config := TestConfig(startTime, endTime, commission_fee.BrokerInteractiveBroker)

	suite.Equal(commission_fee.BrokerInteractiveBroker, config.Broker)
	suite.Equal(startTime, config.StartTime.Unwrap())
	suite.Equal(endTime, config.EndTime.Unwrap())
	suite.Len(config.Assets, 1)
	suite.Len(config.Books, 1)
	suite.NoError(config.Validate())
}

func (suite *ConfigTestSuite) TestUnmarshalYAML() {
	config := suite.parse(testConfigYAML)

	suite.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), config.StartTime.Unwrap())
	suite.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), config.EndTime.Unwrap())
	suite.Equal(commission_fee.BrokerPercentage, config.Broker)
	suite.True(config.CommissionRate.Equal(decimal.RequireFromString("0.001")))

	suite.Require().Len(config.Assets, 2)
	suite.Equal(types.AssetTypeClose, config.Assets[1].Type)
	suite.Equal(int32(3), *config.Assets[1].PricePrecision)
	suite.Nil(config.Assets[0].PricePrecision)

	suite.Require().Len(config.Books, 1)
	suite.True(config.Books[0].InitialCash.Equal(decimal.NewFromInt(100000)))
	suite.True(config.Books[0].Positions["GOOG"].Equal(decimal.NewFromInt(10)))
	suite.Require().Len(config.Books[0].Mandates, 2)
	suite.Equal(risk.MandateMaxPosition, config.Books[0].Mandates[0].Type)

	suite.Require().Len(config.Strategies, 1)
	suite.Equal("GOOG", config.Strategies[0].Params["symbol"])

	suite.Require().Len(config.FXRates, 1)
	suite.True(config.FXRates[0].Rate.Equal(decimal.RequireFromString("1.1")))

	suite.NoError(config.Validate())
}

func (suite *ConfigTestSuite) TestUnmarshalDefaults() {
	config := suite.parse(`
assets:
  - name: GOOG
    type: ohlcv
    denomination: USD
books:
  - name: Main
    denomination: USD
    initial_cash: 1000
`)

	suite.Equal(commission_fee.BrokerZero, config.Broker)
	suite.True(config.StartTime.IsNone())
	suite.True(config.EndTime.IsNone())
	suite.NoError(config.Validate())
}

func (suite *ConfigTestSuite) TestMarshalYAML() {
	suite.Run("Round trip", func() {
		original := suite.parse(testConfigYAML)

		content, err := yaml.Marshal(original)
		suite.Require().NoError(err)

		parsed := suite.parse(string(content))
		suite.Equal(original.StartTime.Unwrap(), parsed.StartTime.Unwrap())
		suite.Equal(original.EndTime.Unwrap(), parsed.EndTime.Unwrap())
		suite.Equal(original.Broker, parsed.Broker)
		suite.True(original.CommissionRate.Equal(parsed.CommissionRate))
		suite.Equal(original.Assets, parsed.Assets)
		suite.Require().Len(parsed.Books, 1)
		suite.True(parsed.Books[0].InitialCash.Equal(decimal.NewFromInt(100000)))
		suite.Len(parsed.Books[0].Mandates, 2)
		suite.Equal(original.Strategies[0].Name, parsed.Strategies[0].Name)
		suite.NoError(parsed.Validate())
	})

	suite.Run("Unset times are omitted", func() {
		content, err := yaml.Marshal(EmptyConfig())
		suite.Require().NoError(err)
		suite.NotContains(string(content), "start_time")
		suite.NotContains(string(content), "end_time")
		suite.NotContains(string(content), "commission_rate")
	})

	suite.Run("Sample configuration is valid", func() {
		content, err := yaml.Marshal(SampleConfig())
		suite.Require().NoError(err)

		parsed := suite.parse(string(content))
		suite.NoError(parsed.Validate())
		suite.Equal("hold", parsed.Strategies[0].Name)
		suite.Equal(strategy.TypeBuyAndHold, parsed.Strategies[0].Type)
	})
}

func (suite *ConfigTestSuite) TestValidate() {
	tests := []struct {
		name    string
		mutate  func(c *BacktestEngineV1Config)
		errCode errors.ErrorCode
	}{
		{
			name:    "No assets",
			mutate:  func(c *BacktestEngineV1Config) { c.Assets = nil },
			errCode: errors.ErrCodeInvalidConfiguration,
		},
		{
			name:    "No books",
			mutate:  func(c *BacktestEngineV1Config) { c.Books = nil },
			errCode: errors.ErrCodeInvalidConfiguration,
		},
		{
			name:    "Unknown asset type",
			mutate:  func(c *BacktestEngineV1Config) { c.Assets[0].Type = "tick" },
			errCode: errors.ErrCodeInvalidConfiguration,
		},
		{
			name: "End before start",
			mutate: func(c *BacktestEngineV1Config) {
				c.StartTime, c.EndTime = c.EndTime, c.StartTime
			},
			errCode: errors.ErrCodeInvalidConfiguration,
		},
		{
			name:    "Unknown broker",
			mutate:  func(c *BacktestEngineV1Config) { c.Broker = "robinhood" },
			errCode: errors.ErrCodeInvalidConfiguration,
		},
		{
			name:    "Duplicate asset",
			mutate:  func(c *BacktestEngineV1Config) { c.Assets[1].Name = "GOOG" },
			errCode: errors.ErrCodeDuplicateAsset,
		},
		{
			name:    "Duplicate book",
			mutate:  func(c *BacktestEngineV1Config) { c.Books = append(c.Books, c.Books[0]) },
			errCode: errors.ErrCodeDuplicateBook,
		},
		{
			name:    "Duplicate strategy",
			mutate:  func(c *BacktestEngineV1Config) { c.Strategies = append(c.Strategies, c.Strategies[0]) },
			errCode: errors.ErrCodeDuplicateStrategy,
		},
		{
			name: "Position in unknown asset",
			mutate: func(c *BacktestEngineV1Config) {
				c.Books[0].Positions = map[string]decimal.Decimal{"MSFT": decimal.NewFromInt(1)}
			},
			errCode: errors.ErrCodeUnknownAsset,
		},
		{
			name:    "Mandate on unknown asset",
			mutate:  func(c *BacktestEngineV1Config) { c.Books[0].Mandates[0].Asset = "MSFT" },
			errCode: errors.ErrCodeUnknownAsset,
		},
		{
			name:    "Negative max position",
			mutate:  func(c *BacktestEngineV1Config) { c.Books[0].Mandates[0].Limit = decimal.NewFromInt(-1) },
			errCode: errors.ErrCodeInvalidConfiguration,
		},
		{
			name:    "Missing fx rate",
			mutate:  func(c *BacktestEngineV1Config) { c.FXRates = nil },
			errCode: errors.ErrCodeInvalidConfiguration,
		},
		{
			name:    "Non-positive fx rate",
			mutate:  func(c *BacktestEngineV1Config) { c.FXRates[0].Rate = decimal.Zero },
			errCode: errors.ErrCodeInvalidConfiguration,
		},
		{
			name:    "Incompatible engine version",
			mutate:  func(c *BacktestEngineV1Config) { c.EngineVersion = "0.1.0" },
			errCode: errors.ErrCodeVersionMismatch,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			config := suite.parse(testConfigYAML)
			tc.mutate(&config)

			err := config.Validate()
			suite.Require().Error(err)
			suite.Equal(tc.errCode, errors.GetCode(err))
			suite.True(errors.IsConfigurationError(err))
		})
	}
}

func (suite *ConfigTestSuite) TestBuilders() {
	config := suite.parse(testConfigYAML)

	assets, err := config.BuildAssets()
	suite.Require().NoError(err)
	suite.Require().Len(assets, 2)
	suite.Equal("SAP", assets[1].Name())
	suite.Equal("EUR", assets[1].Denomination())
	suite.Equal(int32(2), assets[1].QuantityPrecision())
	suite.Equal(types.DefaultPricePrecision, assets[0].PricePrecision())

	books, err := config.BuildBooks()
	suite.Require().NoError(err)
	suite.Require().Len(books, 1)
	suite.Len(books[0].Mandates, 2)

	provider, err := config.FXProvider()
	suite.Require().NoError(err)
	suite.True(provider.CanConvert("EUR", "USD"))
	suite.True(provider.CanConvert("USD", "EUR"))

	converted, err := provider.Convert(decimal.NewFromInt(100), "EUR", "USD", time.Time{})
	suite.Require().NoError(err)
	suite.True(converted.Equal(decimal.NewFromInt(110)))

	empty := EmptyConfig()

	identity, err := empty.FXProvider()
	suite.Require().NoError(err)
	suite.IsType(fx.NewIdentity(), identity)
}

func (suite *ConfigTestSuite) TestRunnerConfig() {
	config := suite.parse(testConfigYAML)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	frame, err := window.NewFrame([]time.Time{start, start.AddDate(0, 0, 1)})
	suite.Require().NoError(err)

	runnerConfig, err := config.RunnerConfig(frame, strategy.DefaultRegistry(), map[string]strategy.Params{
		"hold": {"quantity": 7},
	})
	suite.Require().NoError(err)
	suite.Len(runnerConfig.Assets, 2)
	suite.Len(runnerConfig.Books, 1)
	suite.Require().Len(runnerConfig.Strategies, 1)
	suite.Equal("hold", runnerConfig.Strategies[0].Strategy.Name())
	suite.Equal(7, runnerConfig.Strategies[0].Params["quantity"])
	suite.Equal("GOOG", runnerConfig.Strategies[0].Params["symbol"])

	// the configured params are not touched by overrides
	suite.Equal(5, config.Strategies[0].Params["quantity"])

	_, err = config.RunnerConfig(frame, strategy.DefaultRegistry(), map[string]strategy.Params{"ghost": {"x": 1}})
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeInvalidParameter, errors.GetCode(err))

	config.Strategies[0].Type = "martingale"
	_, err = config.RunnerConfig(frame, strategy.DefaultRegistry(), nil)
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeUnsupportedStrategy, errors.GetCode(err))
}

func (suite *ConfigTestSuite) TestWindow() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	index := make([]time.Time, 5)

	for i := range index {
		index[i] = start.AddDate(0, 0, i)
	}

	frame, err := window.NewFrame(index)
	suite.Require().NoError(err)

	config := EmptyConfig()

	same, err := config.Window(frame)
	suite.Require().NoError(err)
	suite.Equal(5, same.Len())

	config = TestConfig(start.AddDate(0, 0, 1), start.AddDate(0, 0, 3), commission_fee.BrokerZero)

	sliced, err := config.Window(frame)
	suite.Require().NoError(err)
	suite.Equal(3, sliced.Len())
	suite.True(sliced.Time(0).Equal(start.AddDate(0, 0, 1)))
}

func (suite *ConfigTestSuite) TestGenerateSchema() {
	config := EmptyConfig()

	schema, err := config.GenerateSchema()
	suite.Require().NoError(err)
	suite.Equal("backtest-engine-v1-config", schema.Title)
	suite.Equal("http://json-schema.org/draft-07/schema#", schema.Version)
	suite.Contains(schema.Required, "assets")
	suite.Contains(schema.Required, "books")

	raw, err := config.GenerateSchemaJSON()
	suite.Require().NoError(err)

	var parsed map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(raw), &parsed))

	properties, ok := parsed["properties"].(map[string]any)
	suite.Require().True(ok)

	broker, ok := properties["broker"].(map[string]any)
	suite.Require().True(ok)
	suite.ElementsMatch([]any{"interactive_broker", "zero_commission", "percentage"}, broker["enum"])

	startTime, ok := properties["start_time"].(map[string]any)
	suite.Require().True(ok)
	suite.Equal("date-time", startTime["format"])
}
