package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-replay/internal/backtest/engine"
	"github.com/rxtech-lab/argo-replay/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-replay/internal/book"
	"github.com/rxtech-lab/argo-replay/internal/fx"
	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/strategy"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/internal/window"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BookSetup is the starting state of one book.
type BookSetup struct {
	Name         string
	Denomination string
	Cash         decimal.Decimal
	Positions    map[string]decimal.Decimal
	// Mandates run before the hooks of every order targeting the book.
	Mandates []types.Hook
}

// StrategySetup is one strategy instance and its private params.
type StrategySetup struct {
	Strategy strategy.Strategy
	Params   strategy.Params
}

// RunnerConfig is everything a run needs.
type RunnerConfig struct {
	Assets     []types.Asset
	Books      []BookSetup
	Strategies []StrategySetup
	Frame      *window.Frame
	// FX defaults to the identity provider.
	FX fx.Provider
	// Commission defaults to zero commission.
	Commission commission_fee.CommissionFee
	// Logger defaults to a no-op logger.
	Logger    *logger.Logger
	Callbacks engine.LifecycleCallbacks
	// RunID defaults to a random UUID.
	RunID string
}

// Runner replays a data frame through strategies, executing their orders against books.
// A runner runs once.
type Runner struct {
	runID      string
	assets     []types.Asset
	assetIndex map[string]types.Asset
	books      []BookSetup
	bookIndex  map[string]int
	strategies []StrategySetup
	frame      *window.Frame
	available  window.OpenAvailability
	fx         fx.Provider
	commission commission_fee.CommissionFee
	log        *logger.Logger
	callbacks  engine.LifecycleCallbacks
	used       bool
}

// NewRunner validates the setup. Every failure is a configuration error raised before
// anything runs.
func NewRunner(config RunnerConfig) (*Runner, error) {
	if config.Frame == nil || config.Frame.Len() == 0 {
		return nil, errors.New(errors.ErrCodeBacktestNoDatasource, "no market data to replay")
	}

	if len(config.Books) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "no books configured")
	}

	r := &Runner{
		runID:      config.RunID,
		assets:     config.Assets,
		assetIndex: make(map[string]types.Asset, len(config.Assets)),
		books:      config.Books,
		bookIndex:  make(map[string]int, len(config.Books)),
		strategies: config.Strategies,
		frame:      config.Frame,
		available:  window.AvailabilityOf(config.Assets),
		fx:         config.FX,
		commission: config.Commission,
		log:        config.Logger,
		callbacks:  config.Callbacks,
		used:       false,
	}

	if r.runID == "" {
		r.runID = uuid.New().String()
	}

	if r.fx == nil {
		r.fx = fx.NewIdentity()
	}

	if r.commission == nil {
		r.commission = commission_fee.NewZeroCommissionFee()
	}

	if r.log == nil {
		r.log = logger.NewNopLogger()
	}

	for _, asset := range config.Assets {
		if asset == nil {
			return nil, errors.New(errors.ErrCodeInvalidConfiguration, "nil asset")
		}

		if _, ok := r.assetIndex[asset.Name()]; ok {
			return nil, errors.Newf(errors.ErrCodeDuplicateAsset, "duplicate asset %s", asset.Name())
		}

		r.assetIndex[asset.Name()] = asset
	}

	if err := config.Frame.ValidateAssets(config.Assets); err != nil {
		return nil, err
	}

	for i, setup := range config.Books {
		if setup.Name == "" || setup.Denomination == "" {
			return nil, errors.New(errors.ErrCodeInvalidConfiguration, "books need a name and a denomination")
		}

		if _, ok := r.bookIndex[setup.Name]; ok {
			return nil, errors.Newf(errors.ErrCodeDuplicateBook, "duplicate book %s", setup.Name)
		}

		r.bookIndex[setup.Name] = i

		for asset := range setup.Positions {
			if _, ok := r.assetIndex[asset]; !ok {
				return nil, errors.Newf(errors.ErrCodeUnknownAsset, "book %s holds unknown asset %s", setup.Name, asset)
			}
		}

		for _, asset := range config.Assets {
			if !r.fx.CanConvert(asset.Denomination(), setup.Denomination) {
				return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "no fx rate from %s (asset %s) to %s (book %s)",
					asset.Denomination(), asset.Name(), setup.Denomination, setup.Name)
			}
		}
	}

	names := make(map[string]struct{}, len(config.Strategies))
	for _, setup := range config.Strategies {
		if setup.Strategy == nil {
			return nil, errors.New(errors.ErrCodeInvalidConfiguration, "nil strategy")
		}

		name := setup.Strategy.Name()
		if name == "" {
			return nil, errors.New(errors.ErrCodeInvalidConfiguration, "strategies need a name")
		}

		if _, ok := names[name]; ok {
			return nil, errors.Newf(errors.ErrCodeDuplicateStrategy, "duplicate strategy %s", name)
		}

		names[name] = struct{}{}
	}

	return r, nil
}

// RunID identifies the run in logs and results.
func (r *Runner) RunID() string {
	return r.runID
}

// Run replays every timestep. A fatal error stops the run and is returned with the
// result accumulated so far.
func (r *Runner) Run(ctx context.Context) (result *types.RunResult, err error) {
	if r.used {
		return nil, errors.New(errors.ErrCodeBacktestStateNil, "runner already ran")
	}

	r.used = true
	rc := newRunContext(r)

	defer func() {
		result = rc.result()

		if err != nil {
			r.log.Error("Run stopped",
				zap.String("run_id", r.runID),
				zap.Int("steps_completed", rc.stepsCompleted),
				zap.Error(err),
			)
		} else {
			r.log.Info("Run completed",
				zap.String("run_id", r.runID),
				zap.Int("steps", rc.stepsCompleted),
				zap.Int("transactions", len(rc.transactions)),
				zap.Int("orders", len(rc.records)),
			)
		}

		if r.callbacks.OnRunEnd != nil {
			(*r.callbacks.OnRunEnd)(r.runID, err)
		}
	}()

	total := r.frame.Len()

	r.log.Info("Run started",
		zap.String("run_id", r.runID),
		zap.Int("steps", total),
		zap.Int("books", len(r.books)),
		zap.Int("strategies", len(r.strategies)),
	)

	if r.callbacks.OnRunStart != nil {
		if err := (*r.callbacks.OnRunStart)(r.runID, total); err != nil {
			return nil, errors.Wrap(errors.ErrCodeCallbackFailed, "on_run_start callback failed", err)
		}
	}

	if err := rc.valueInitialBooks(); err != nil {
		return nil, err
	}

	for i := range r.strategies {
		// the full-window handle stops working once init returns
		data := rc.overlays[i].Handle()
		err := r.callStrategy(i, "init", func(s strategy.Strategy) error {
			return s.Init(&initContext{rc: rc, index: i, data: data})
		})
		data.Seal()

		if err != nil {
			return nil, err
		}
	}

	for step := 0; step < total; step++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeRunCancelled, "run cancelled", err)
		}

		if err := r.runStep(rc, step); err != nil {
			return nil, err
		}

		if r.callbacks.OnStep != nil {
			if err := (*r.callbacks.OnStep)(step+1, total); err != nil {
				return nil, errors.Wrap(errors.ErrCodeCallbackFailed, "on_step callback failed", err)
			}
		}
	}

	rc.expireRemaining()

	return nil, nil
}

func (r *Runner) runStep(rc *runContext, step int) error {
	rc.step = step
	rc.timestamp = r.frame.Time(step)

	r.log.Debug("Processing timestep",
		zap.Int("step", step),
		zap.Time("timestamp", rc.timestamp),
	)

	for _, phase := range []types.SessionPhase{types.PhaseOpen, types.PhaseClose} {
		rc.phase = phase

		if err := rc.executeSession(); err != nil {
			return err
		}

		for i := range r.strategies {
			view, err := window.NewView(rc.overlays[i], step, phase, r.available)
			if err != nil {
				return err
			}

			sc := &stepContext{rc: rc, index: i, view: view}

			if err := r.callStrategy(i, "on_"+string(phase), func(s strategy.Strategy) error {
				if phase == types.PhaseOpen {
					return s.OnOpen(sc)
				}

				return s.OnClose(sc)
			}); err != nil {
				return err
			}

			rc.drain(i)
		}
	}

	if err := rc.snapshot(); err != nil {
		return err
	}

	rc.stepsCompleted = step + 1

	return nil
}

// callStrategy runs one strategy callback. Returned errors and panics become strategy errors.
func (r *Runner) callStrategy(index int, callback string, fn func(s strategy.Strategy) error) (err error) {
	s := r.strategies[index].Strategy

	defer func() {
		if recovered := recover(); recovered != nil {
			err = errors.Newf(errors.ErrCodeStrategyRuntimeError, "strategy %s panicked in %s: %v", s.Name(), callback, recovered)
		}
	}()

	if err := fn(s); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyRuntimeError, fmt.Sprintf("strategy %s failed in %s", s.Name(), callback), err)
	}

	return nil
}

func (r *Runner) newBooks() []*book.Book {
	books := make([]*book.Book, len(r.books))
	for i, setup := range r.books {
		books[i] = book.New(setup.Name, setup.Denomination, setup.Cash, setup.Positions)
	}

	return books
}
