package engine

import (
	"context"

	"github.com/rxtech-lab/argo-replay/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-replay/internal/strategy"
	"github.com/rxtech-lab/argo-replay/internal/types"
)

// Lifecycle callback types for a run.
// Callbacks returning an error abort the run with ErrCodeCallbackFailed.

// OnRunStartCallback is called after setup validation, before any strategy is initialized.
type OnRunStartCallback func(runID string, totalSteps int) error

// OnRunEndCallback is called when a run stops, err is nil when it completed.
type OnRunEndCallback func(runID string, err error)

// OnStepCallback is called after the valuation snapshot of each step.
type OnStepCallback func(current int, total int) error

// OnOrderResolvedCallback is called when an order reaches a terminal status.
type OnOrderResolvedCallback func(record types.OrderRecord)

// LifecycleCallbacks holds all lifecycle callback functions for the engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnRunStart      *OnRunStartCallback
	OnRunEnd        *OnRunEndCallback
	OnStep          *OnStepCallback
	OnOrderResolved *OnOrderResolvedCallback
}

//nolint:interfacebloat // Engine is a core interface that naturally requires multiple methods
type Engine interface {
	// Initialize the engine with the given YAML run configuration.
	Initialize(config string) error
	// SetDataPath sets the market data to replay. Parquet and CSV files are supported,
	// glob patterns load several files into one table.
	SetDataPath(path string) error
	// SetDataSource sets the data source the data path is read with.
	SetDataSource(dataSource datasource.DataSource) error
	// SetResultsFolder sets the output directory. Empty skips writing results.
	SetResultsFolder(folder string) error
	// SetRegistry replaces the strategy registry used to build configured strategies.
	SetRegistry(registry strategy.Registry) error
	// SetParams overrides the params of the configured strategy named name.
	SetParams(name string, params strategy.Params) error
	// AddStrategy appends a strategy instance after the configured ones.
	AddStrategy(s strategy.Strategy, params strategy.Params) error
	// Run replays the data through the strategies. A run that started returns its
	// result even when it fails. The context can be used to cancel the run between steps.
	Run(ctx context.Context, callbacks LifecycleCallbacks) (*types.RunResult, error)
	// GetConfigSchema returns the JSON schema of the run configuration.
	GetConfigSchema() (string, error)
}
