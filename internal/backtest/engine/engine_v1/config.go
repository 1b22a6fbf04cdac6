package engine

import (
	"encoding/json"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-replay/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-replay/internal/fx"
	"github.com/rxtech-lab/argo-replay/internal/risk"
	"github.com/rxtech-lab/argo-replay/internal/strategy"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/internal/version"
	"github.com/rxtech-lab/argo-replay/internal/window"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

type AssetConfig struct {
	Name              string          `yaml:"name" json:"name" jsonschema:"title=Name,description=Unique asset name matching the symbol column of the data" validate:"required"`
	Type              types.AssetType `yaml:"type" json:"type" jsonschema:"title=Type,enum=ohlcv,enum=close" validate:"required,oneof=ohlcv close"`
	Denomination      string          `yaml:"denomination" json:"denomination" jsonschema:"title=Denomination,description=Currency the asset is quoted in" validate:"required"`
	PricePrecision    *int32          `yaml:"price_precision,omitempty" json:"price_precision,omitempty" jsonschema:"title=Price Precision,minimum=0,maximum=16" validate:"omitempty,min=0,max=16"`
	QuantityPrecision *int32          `yaml:"quantity_precision,omitempty" json:"quantity_precision,omitempty" jsonschema:"title=Quantity Precision,minimum=0,maximum=16" validate:"omitempty,min=0,max=16"`
}

// Build creates the configured asset variant.
func (c AssetConfig) Build() (types.Asset, error) {
	info := types.NewAssetInfo(c.Name, c.Denomination)
	if c.PricePrecision != nil {
		info.PriceDecimals = *c.PricePrecision
	}

	if c.QuantityPrecision != nil {
		info.QuantityDecimals = *c.QuantityPrecision
	}

	switch c.Type {
	case types.AssetTypeOHLCV:
		return &types.OHLCVAsset{AssetInfo: info}, nil
	case types.AssetTypeClose:
		return &types.CloseAsset{AssetInfo: info}, nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown asset type %q for %s", c.Type, c.Name)
	}
}

type BookConfig struct {
	Name         string                     `yaml:"name" json:"name" jsonschema:"title=Name" validate:"required"`
	Denomination string                     `yaml:"denomination" json:"denomination" jsonschema:"title=Denomination" validate:"required"`
	InitialCash  decimal.Decimal            `yaml:"initial_cash" json:"initial_cash" jsonschema:"title=Initial Cash,type=string"`
	Positions    map[string]decimal.Decimal `yaml:"positions,omitempty" json:"positions,omitempty" jsonschema:"title=Initial Positions"`
	Mandates     []risk.Mandate             `yaml:"mandates,omitempty" json:"mandates,omitempty" jsonschema:"title=Mandates,description=Checks applied to every order targeting the book" validate:"dive"`
}

type StrategyConfig struct {
	Name   string          `yaml:"name" json:"name" jsonschema:"title=Name,description=Unique strategy name used as the order key prefix" validate:"required"`
	Type   string          `yaml:"type" json:"type" jsonschema:"title=Type,description=Registered strategy type" validate:"required"`
	Params strategy.Params `yaml:"params,omitempty" json:"params,omitempty" jsonschema:"title=Params,description=Passed to the strategy unvalidated"`
}

type BacktestEngineV1Config struct {
	EngineVersion  string                     `yaml:"engine_version,omitempty" json:"engine_version,omitempty" jsonschema:"title=Engine Version,description=Version or semver constraint the configuration was written for"`
	StartTime      optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start time of the replayed period"`
	EndTime        optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end time of the replayed period"`
	Broker         commission_fee.Broker      `yaml:"broker" json:"broker" jsonschema:"title=Broker,description=The broker to use for commission calculations"`
	CommissionRate decimal.Decimal            `yaml:"commission_rate,omitempty" json:"commission_rate,omitempty" jsonschema:"title=Commission Rate,type=string,description=Fraction of notional charged by the percentage broker"`
	Assets         []AssetConfig              `yaml:"assets" json:"assets" jsonschema:"title=Assets,required" validate:"required,min=1,dive"`
	Books          []BookConfig               `yaml:"books" json:"books" jsonschema:"title=Books,required" validate:"required,min=1,dive"`
	Strategies     []StrategyConfig           `yaml:"strategies" json:"strategies" jsonschema:"title=Strategies,description=Run in this order at every step" validate:"dive"`
	FXRates        []fx.Rate                  `yaml:"fx_rates,omitempty" json:"fx_rates,omitempty" jsonschema:"title=FX Rates" validate:"dive"`
}

// UnmarshalYAML implements custom unmarshaling for BacktestEngineV1Config
func (c *BacktestEngineV1Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type Config struct {
		EngineVersion  string                `yaml:"engine_version"`
		StartTime      *time.Time            `yaml:"start_time"`
		EndTime        *time.Time            `yaml:"end_time"`
		Broker         commission_fee.Broker `yaml:"broker"`
		CommissionRate decimal.Decimal       `yaml:"commission_rate"`
		Assets         []AssetConfig         `yaml:"assets"`
		Books          []BookConfig          `yaml:"books"`
		Strategies     []StrategyConfig      `yaml:"strategies"`
		FXRates        []fx.Rate             `yaml:"fx_rates"`
	}

	config := Config{Broker: commission_fee.BrokerZero}
	if err := unmarshal(&config); err != nil {
		return err
	}

	c.EngineVersion = config.EngineVersion
	c.StartTime = optional.None[time.Time]()
	c.EndTime = optional.None[time.Time]()

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	c.Broker = config.Broker
	c.CommissionRate = config.CommissionRate
	c.Assets = config.Assets
	c.Books = config.Books
	c.Strategies = config.Strategies
	c.FXRates = config.FXRates

	return nil
}

// MarshalYAML writes unset start and end times as absent keys.
func (c BacktestEngineV1Config) MarshalYAML() (interface{}, error) {
	type Config struct {
		EngineVersion  string                `yaml:"engine_version,omitempty"`
		StartTime      *time.Time            `yaml:"start_time,omitempty"`
		EndTime        *time.Time            `yaml:"end_time,omitempty"`
		Broker         commission_fee.Broker `yaml:"broker"`
		CommissionRate *decimal.Decimal      `yaml:"commission_rate,omitempty"`
		Assets         []AssetConfig         `yaml:"assets"`
		Books          []BookConfig          `yaml:"books"`
		Strategies     []StrategyConfig      `yaml:"strategies"`
		FXRates        []fx.Rate             `yaml:"fx_rates,omitempty"`
	}

	config := Config{
		EngineVersion: c.EngineVersion,
		Broker:        c.Broker,
		Assets:        c.Assets,
		Books:         c.Books,
		Strategies:    c.Strategies,
		FXRates:       c.FXRates,
	}

	if c.StartTime.IsSome() {
		start := c.StartTime.Unwrap()
		config.StartTime = &start
	}

	if c.EndTime.IsSome() {
		end := c.EndTime.Unwrap()
		config.EndTime = &end
	}

	if !c.CommissionRate.IsZero() {
		rate := c.CommissionRate
		config.CommissionRate = &rate
	}

	return config, nil
}

// Validate checks the configuration. Every failure is a configuration error.
func (c *BacktestEngineV1Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	if err := version.CheckVersionCompatibility(version.GetVersion(), c.EngineVersion); err != nil {
		return err
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && c.EndTime.Unwrap().Before(c.StartTime.Unwrap()) {
		return errors.New(errors.ErrCodeInvalidConfiguration, "end_time is before start_time")
	}

	switch c.Broker {
	case commission_fee.BrokerZero, commission_fee.BrokerInteractiveBroker, commission_fee.BrokerPercentage:
	default:
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown broker %q", c.Broker)
	}

	assets := make(map[string]struct{}, len(c.Assets))
	for _, asset := range c.Assets {
		if _, ok := assets[asset.Name]; ok {
			return errors.Newf(errors.ErrCodeDuplicateAsset, "duplicate asset %s", asset.Name)
		}

		assets[asset.Name] = struct{}{}
	}

	books := make(map[string]struct{}, len(c.Books))
	for _, book := range c.Books {
		if _, ok := books[book.Name]; ok {
			return errors.Newf(errors.ErrCodeDuplicateBook, "duplicate book %s", book.Name)
		}

		books[book.Name] = struct{}{}

		for asset := range book.Positions {
			if _, ok := assets[asset]; !ok {
				return errors.Newf(errors.ErrCodeUnknownAsset, "book %s holds unknown asset %s", book.Name, asset)
			}
		}

		for _, mandate := range book.Mandates {
			if mandate.Asset != "" {
				if _, ok := assets[mandate.Asset]; !ok {
					return errors.Newf(errors.ErrCodeUnknownAsset, "mandate %s of book %s names unknown asset %s",
						mandate.Type, book.Name, mandate.Asset)
				}
			}

			if _, err := mandate.Hook(); err != nil {
				return err
			}
		}
	}

	strategies := make(map[string]struct{}, len(c.Strategies))
	for _, s := range c.Strategies {
		if _, ok := strategies[s.Name]; ok {
			return errors.Newf(errors.ErrCodeDuplicateStrategy, "duplicate strategy %s", s.Name)
		}

		strategies[s.Name] = struct{}{}
	}

	provider, err := c.FXProvider()
	if err != nil {
		return err
	}

	for _, book := range c.Books {
		for _, asset := range c.Assets {
			if !provider.CanConvert(asset.Denomination, book.Denomination) {
				return errors.Newf(errors.ErrCodeInvalidConfiguration, "no fx rate from %s (asset %s) to %s (book %s)",
					asset.Denomination, asset.Name, book.Denomination, book.Name)
			}
		}
	}

	return nil
}

// BuildAssets creates the configured assets in order.
func (c *BacktestEngineV1Config) BuildAssets() ([]types.Asset, error) {
	assets := make([]types.Asset, 0, len(c.Assets))

	for _, config := range c.Assets {
		asset, err := config.Build()
		if err != nil {
			return nil, err
		}

		assets = append(assets, asset)
	}

	return assets, nil
}

// BuildBooks creates the book setups in order, mandates resolved to hooks.
func (c *BacktestEngineV1Config) BuildBooks() ([]BookSetup, error) {
	books := make([]BookSetup, 0, len(c.Books))

	for _, config := range c.Books {
		mandates := make([]types.Hook, 0, len(config.Mandates))

		for _, mandate := range config.Mandates {
			hook, err := mandate.Hook()
			if err != nil {
				return nil, err
			}

			mandates = append(mandates, hook)
		}

		books = append(books, BookSetup{
			Name:         config.Name,
			Denomination: config.Denomination,
			Cash:         config.InitialCash,
			Positions:    config.Positions,
			Mandates:     mandates,
		})
	}

	return books, nil
}

// FXProvider returns the identity provider, or a static rate table when rates are configured.
func (c *BacktestEngineV1Config) FXProvider() (fx.Provider, error) {
	if len(c.FXRates) == 0 {
		return fx.NewIdentity(), nil
	}

	return fx.NewStaticRates(c.FXRates)
}

// CommissionFee returns the configured broker's fee model.
func (c *BacktestEngineV1Config) CommissionFee() commission_fee.CommissionFee {
	return commission_fee.GetCommissionFeeHandler(c.Broker, c.CommissionRate)
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			if strings.Contains(t.String(), "commission_fee.Broker") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: commission_fee.AllBrokers,
				}
			}

			if t == reflect.TypeOf(decimal.Decimal{}) {
				return &jsonschema.Schema{
					Type:    "string",
					Pattern: `^-?[0-9]+(\.[0-9]+)?$`,
				}
			}

			return nil
		},
	}

	// Generate schema from BacktestEngineV1Config struct
	schema := reflector.Reflect(c)

	// Set schema metadata
	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// TestConfig returns a single book, single OHLCV asset configuration.
func TestConfig(startTime time.Time, endTime time.Time, broker commission_fee.Broker) BacktestEngineV1Config {
	return BacktestEngineV1Config{
		EngineVersion: "",
		StartTime:     optional.Some(startTime),
		EndTime:       optional.Some(endTime),
		Broker:        broker,
		Assets: []AssetConfig{
			{Name: "AAPL", Type: types.AssetTypeOHLCV, Denomination: "USD"},
		},
		Books: []BookConfig{
			{Name: "Main", Denomination: "USD", InitialCash: decimal.NewFromInt(10000)},
		},
	}
}

// EmptyConfig returns a BacktestEngineV1Config with default values
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		Broker:    commission_fee.BrokerZero,
		StartTime: optional.None[time.Time](),
		EndTime:   optional.None[time.Time](),
	}
}

// SampleConfig returns a minimal valid configuration: one asset, one book and a
// buy and hold strategy.
func SampleConfig() BacktestEngineV1Config {
	config := EmptyConfig()
	config.EngineVersion = version.GetVersion()
	config.Assets = []AssetConfig{
		{Name: "AAPL", Type: types.AssetTypeOHLCV, Denomination: "USD"},
	}
	config.Books = []BookConfig{
		{Name: "Main", Denomination: "USD", InitialCash: decimal.NewFromInt(100000)},
	}
	config.Strategies = []StrategyConfig{
		{Name: "hold", Type: strategy.TypeBuyAndHold, Params: strategy.Params{"symbol": "AAPL", "percent": 100}},
	}

	return config
}

// RunnerConfig builds a run setup: fresh assets, books and strategy instances over a shared
// frame. overrides are merged on top of the params of the strategy with the same name.
func (c *BacktestEngineV1Config) RunnerConfig(frame *window.Frame, registry strategy.Registry, overrides map[string]strategy.Params) (RunnerConfig, error) {
	assets, err := c.BuildAssets()
	if err != nil {
		return RunnerConfig{}, err
	}

	books, err := c.BuildBooks()
	if err != nil {
		return RunnerConfig{}, err
	}

	provider, err := c.FXProvider()
	if err != nil {
		return RunnerConfig{}, err
	}

	strategies := make([]StrategySetup, 0, len(c.Strategies))

	for _, config := range c.Strategies {
		params := config.Params.Merge(overrides[config.Name])

		s, err := registry.New(config.Type, config.Name, params)
		if err != nil {
			return RunnerConfig{}, err
		}

		strategies = append(strategies, StrategySetup{Strategy: s, Params: params})
	}

	for name := range overrides {
		if !slices.ContainsFunc(c.Strategies, func(s StrategyConfig) bool { return s.Name == name }) {
			return RunnerConfig{}, errors.Newf(errors.ErrCodeInvalidParameter, "params given for unknown strategy %s", name)
		}
	}

	return RunnerConfig{
		Assets:     assets,
		Books:      books,
		Strategies: strategies,
		Frame:      frame,
		FX:         provider,
		Commission: c.CommissionFee(),
	}, nil
}

// Window restricts frame to the configured start and end times.
func (c *BacktestEngineV1Config) Window(frame *window.Frame) (*window.Frame, error) {
	if c.StartTime.IsNone() && c.EndTime.IsNone() {
		return frame, nil
	}

	return frame.Slice(c.StartTime.TakeOr(time.Time{}), c.EndTime.TakeOr(time.Time{}))
}
