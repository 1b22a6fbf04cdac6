// Package backtest exposes the replay engine to strategies and tools written outside
// this module. Everything here is an alias of the engine's own types.
package backtest

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-replay/internal/backtest/engine"
	engine_v1 "github.com/rxtech-lab/argo-replay/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-replay/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/risk"
	"github.com/rxtech-lab/argo-replay/internal/strategy"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/internal/window"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Engine and run lifecycle.
type (
	Engine                  = engine.Engine
	LifecycleCallbacks      = engine.LifecycleCallbacks
	OnRunStartCallback      = engine.OnRunStartCallback
	OnRunEndCallback        = engine.OnRunEndCallback
	OnStepCallback          = engine.OnStepCallback
	OnOrderResolvedCallback = engine.OnOrderResolvedCallback
	Config                  = engine_v1.BacktestEngineV1Config
	SweepCase               = engine_v1.SweepCase
	SweepResult             = engine_v1.SweepResult
	DataSource              = datasource.DataSource
	Logger                  = logger.Logger
)

// Strategy authoring.
type (
	Strategy    = strategy.Strategy
	InitContext = strategy.InitContext
	StepContext = strategy.StepContext
	Params      = strategy.Params
	Factory     = strategy.Factory
	Registry    = strategy.Registry
	Frame       = window.Frame
	View        = window.View
	Series      = window.Series
	Column      = window.Column
)

// Orders, hooks and results.
type (
	Asset         = types.Asset
	SessionPhase  = types.SessionPhase
	MarketData    = types.MarketData
	Order         = types.Order
	OrderOptions  = types.OrderOptions
	SimpleOrder   = types.SimpleOrder
	BasketOrder   = types.BasketOrder
	Leg           = types.Leg
	OrderSizeType = types.OrderSizeType
	OrderStatus   = types.OrderStatus
	OrderRecord   = types.OrderRecord
	Hook          = types.Hook
	HookContext   = types.HookContext
	HookDecision  = types.HookDecision
	BookView      = types.BookView
	Transaction   = types.Transaction
	BookValuation = types.BookValuation
	BookState     = types.BookState
	SignalType    = types.SignalType
	RunResult     = types.RunResult
	RunStats      = types.RunStats
)

const (
	PhaseOpen  = types.PhaseOpen
	PhaseClose = types.PhaseClose

	OrderSizeTypeQuantity       = types.OrderSizeTypeQuantity
	OrderSizeTypeNotional       = types.OrderSizeTypeNotional
	OrderSizeTypeBookPercent    = types.OrderSizeTypeBookPercent
	OrderSizeTypeTargetPosition = types.OrderSizeTypeTargetPosition
	OrderSizeTypeTargetPercent  = types.OrderSizeTypeTargetPercent

	OrderStatusPending   = types.OrderStatusPending
	OrderStatusExecuted  = types.OrderStatusExecuted
	OrderStatusRejected  = types.OrderStatusRejected
	OrderStatusCancelled = types.OrderStatusCancelled
	OrderStatusExpired   = types.OrderStatusExpired

	HookProceed = types.HookProceed
	HookReject  = types.HookReject
	HookDefer   = types.HookDefer
	HookCancel  = types.HookCancel
)

// NewEngine creates a backtest engine that logs to log. A nil log creates a production
// logger when the engine is initialized.
func NewEngine(log *Logger) Engine {
	if log == nil {
		return engine_v1.NewBacktestEngineV1()
	}

	return engine_v1.NewBacktestEngineV1WithLogger(log)
}

func NewNopLogger() *Logger {
	return logger.NewNopLogger()
}

// ParseConfig reads and validates a YAML run configuration.
func ParseConfig(content string) (Config, error) {
	config := engine_v1.EmptyConfig()
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return config, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse configuration", err)
	}

	if err := config.Validate(); err != nil {
		return config, err
	}

	return config, nil
}

// NewRegistry creates a registry holding the built-in strategies. Register adds custom ones.
func NewRegistry() Registry {
	return strategy.DefaultRegistry()
}

// NewInMemoryDataSource serves rows already held in memory.
func NewInMemoryDataSource(rows []MarketData) DataSource {
	return datasource.NewInMemoryDataSource(rows)
}

// NewOHLCV builds a market data row with the standard bar fields.
func NewOHLCV(t time.Time, symbol string, open, high, low, closePrice, volume decimal.Decimal) MarketData {
	return types.NewOHLCV(t, symbol, open, high, low, closePrice, volume)
}

// NewFrame builds the time-indexed data window a sweep replays.
func NewFrame(rows []MarketData) (*Frame, error) {
	return window.FromMarketData(rows)
}

// NewMarketOrder creates an order for an absolute quantity of asset.
func NewMarketOrder(asset string, quantity decimal.Decimal) *SimpleOrder {
	return types.NewMarketOrder(asset, quantity)
}

// NewWeightedBasket creates a basket whose leg sizes are size * weight.
func NewWeightedBasket(assets []string, weights []decimal.Decimal, size decimal.Decimal, sizeType OrderSizeType) (*BasketOrder, error) {
	return types.NewWeightedBasket(assets, weights, size, sizeType)
}

// NewHook wraps fn as a pre-trade hook.
func NewHook(name string, fn func(ctx HookContext) (HookDecision, error)) Hook {
	return types.NewHook(name, fn)
}

// MaxPosition rejects orders that would leave |position| in asset above limit.
func MaxPosition(asset string, limit decimal.Decimal) Hook {
	return risk.MaxPosition(asset, limit)
}

// MaxLeverage rejects orders that would leave gross exposure above limit times the book value.
func MaxLeverage(limit decimal.Decimal) Hook {
	return risk.MaxLeverage(limit)
}

func NoShort() Hook {
	return risk.NoShort()
}

func NoBorrowing() Hook {
	return risk.NoBorrowing()
}

// Sweep runs config once per case over frame, at most concurrency runs at a time.
func Sweep(ctx context.Context, config Config, frame *Frame, registry Registry, cases []SweepCase, concurrency int) ([]SweepResult, error) {
	return engine_v1.Sweep(ctx, config, frame, registry, cases, concurrency, nil)
}

// ComputeRunStats summarises a run result. err is the error the run returned.
func ComputeRunStats(result *RunResult, err error) RunStats {
	return engine_v1.ComputeRunStats(result, err)
}
