package engine

import (
	"context"
	"path/filepath"

	"github.com/rxtech-lab/argo-replay/internal/backtest/engine"
	"github.com/rxtech-lab/argo-replay/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/strategy"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/internal/writers"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type BacktestEngineV1 struct {
	config        BacktestEngineV1Config
	initialized   bool
	dataPath      string
	resultsFolder string
	log           *logger.Logger
	customLogger  bool
	datasource    datasource.DataSource
	registry      strategy.Registry
	overrides     map[string]strategy.Params
	extra         []StrategySetup
}

func NewBacktestEngineV1() engine.Engine {
	return &BacktestEngineV1{
		config:        EmptyConfig(),
		initialized:   false,
		dataPath:      "",
		resultsFolder: "",
		log:           logger.NewNopLogger(),
		customLogger:  false,
		datasource:    nil,
		registry:      strategy.DefaultRegistry(),
		overrides:     make(map[string]strategy.Params),
		extra:         nil,
	}
}

// NewBacktestEngineV1WithLogger creates an engine that logs to log instead of a new production logger.
func NewBacktestEngineV1WithLogger(log *logger.Logger) engine.Engine {
	b, _ := NewBacktestEngineV1().(*BacktestEngineV1)
	if log != nil {
		b.log = log
		b.customLogger = true
	}

	return b
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	parsed := EmptyConfig()
	if err := yaml.Unmarshal([]byte(config), &parsed); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse configuration", err)
	}

	if !b.customLogger {
		log, err := logger.NewLogger()
		if err != nil {
			return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create logger", err)
		}

		b.log = log
	}

	if err := parsed.Validate(); err != nil {
		b.log.Error("Invalid configuration", zap.Error(err))

		return err
	}

	b.config = parsed
	b.initialized = true

	b.log.Debug("Backtest engine initialized",
		zap.Int("assets", len(parsed.Assets)),
		zap.Int("books", len(parsed.Books)),
		zap.Int("strategies", len(parsed.Strategies)),
	)

	return nil
}

// SetDataPath implements engine.Engine.
func (b *BacktestEngineV1) SetDataPath(path string) error {
	absolute, err := filepath.Abs(path)
	if err != nil {
		b.log.Error("Failed to get absolute path",
			zap.String("path", path),
			zap.Error(err),
		)

		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid data path", err)
	}

	b.dataPath = absolute
	b.log.Debug("Data path set", zap.String("path", absolute))

	return nil
}

// SetDataSource implements engine.Engine.
func (b *BacktestEngineV1) SetDataSource(dataSource datasource.DataSource) error {
	b.datasource = dataSource

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder
	b.log.Debug("Results folder set", zap.String("folder", folder))

	return nil
}

// SetRegistry implements engine.Engine.
func (b *BacktestEngineV1) SetRegistry(registry strategy.Registry) error {
	if registry == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "nil strategy registry")
	}

	b.registry = registry

	return nil
}

// SetParams implements engine.Engine. Params for a strategy the configuration does not
// name are reported when the run starts.
func (b *BacktestEngineV1) SetParams(name string, params strategy.Params) error {
	b.overrides[name] = b.overrides[name].Merge(params)

	return nil
}

// splitOverrides merges the overrides naming an added strategy into its params and
// returns the rest for the configured strategies.
func (b *BacktestEngineV1) splitOverrides() (map[string]strategy.Params, []StrategySetup) {
	configured := make(map[string]strategy.Params, len(b.overrides))
	for name, params := range b.overrides {
		configured[name] = params
	}

	extra := make([]StrategySetup, len(b.extra))
	for i, setup := range b.extra {
		name := setup.Strategy.Name()
		if params, ok := b.overrides[name]; ok {
			setup.Params = setup.Params.Merge(params)
			delete(configured, name)
		}

		extra[i] = setup
	}

	return configured, extra
}

// AddStrategy implements engine.Engine.
func (b *BacktestEngineV1) AddStrategy(s strategy.Strategy, params strategy.Params) error {
	if s == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "nil strategy")
	}

	b.extra = append(b.extra, StrategySetup{Strategy: s, Params: params.Clone()})
	b.log.Debug("Strategy added",
		zap.String("strategy", s.Name()),
		zap.Int("total_strategies", len(b.config.Strategies)+len(b.extra)),
	)

	return nil
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (*types.RunResult, error) {
	if err := b.preRunCheck(); err != nil {
		return nil, err
	}

	if b.datasource == nil {
		ds, err := datasource.NewDataSource("", b.log)
		if err != nil {
			return nil, err
		}
		defer ds.Close()

		b.datasource = ds
		defer func() { b.datasource = nil }()
	}

	if b.dataPath != "" {
		if err := b.datasource.Initialize(b.dataPath); err != nil {
			b.log.Error("Failed to initialize data source", zap.String("path", b.dataPath), zap.Error(err))

			return nil, err
		}
	}

	frame, err := datasource.LoadFrame(b.datasource, b.config.StartTime, b.config.EndTime)
	if err != nil {
		return nil, err
	}

	configured, extra := b.splitOverrides()

	config, err := b.config.RunnerConfig(frame, b.registry, configured)
	if err != nil {
		return nil, err
	}

	config.Strategies = append(config.Strategies, extra...)
	config.Logger = b.log
	config.Callbacks = callbacks

	runner, err := NewRunner(config)
	if err != nil {
		return nil, err
	}

	result, runErr := runner.Run(ctx)

	if b.resultsFolder != "" && result != nil {
		if err := b.writeResults(result, runErr); err != nil {
			if runErr != nil {
				b.log.Error("Failed to write results of a failed run", zap.Error(err))

				return result, runErr
			}

			return result, err
		}
	}

	return result, runErr
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	schema, err := b.config.GenerateSchemaJSON()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to generate schema", err)
	}

	return schema, nil
}

func (b *BacktestEngineV1) writeResults(result *types.RunResult, runErr error) error {
	folder := getResultFolder(b.resultsFolder, b.dataPath, &b.config, result.RunID)

	writer, err := writers.NewResultWriter(b.log)
	if err != nil {
		return err
	}
	defer writer.Close()

	paths, err := writer.Write(result, folder)
	if err != nil {
		return err
	}

	stats := ComputeRunStats(result, runErr)
	stats.TransactionsFilePath = paths.Transactions
	stats.BookHistoryFilePath = paths.BookHistory
	stats.OrdersFilePath = paths.Orders
	stats.MarksFilePath = paths.Marks
	stats.DataPath = b.dataPath

	if err := types.WriteRunStats(filepath.Join(folder, "stats.yaml"), []types.RunStats{stats}); err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to write stats", err)
	}

	b.log.Info("Results written", zap.String("folder", folder))

	return nil
}

func (b *BacktestEngineV1) preRunCheck() error {
	if !b.initialized {
		b.log.Error("Engine not initialized")

		return errors.New(errors.ErrCodeBacktestInitFailed, "engine not initialized")
	}

	if len(b.config.Strategies)+len(b.extra) == 0 {
		b.log.Error("No strategies loaded")

		return errors.New(errors.ErrCodeBacktestNoStrategies, "no strategies loaded")
	}

	if b.datasource == nil && b.dataPath == "" {
		b.log.Error("No data source or data path set")

		return errors.New(errors.ErrCodeBacktestNoDatasource, "no data source or data path set")
	}

	return nil
}
