package engine

import (
	"context"

	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/strategy"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/internal/window"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SweepCase overrides strategy params by strategy name for one run of a sweep.
type SweepCase map[string]strategy.Params

// SweepResult is the outcome of one run of a sweep.
type SweepResult struct {
	Index  int
	Case   SweepCase
	Result *types.RunResult
	// Err is the fatal error the run stopped with.
	Err error
}

// Sweep runs one independent run per case, at most concurrency at a time. Every run gets
// fresh books and strategy instances, the frame is shared read-only. A case that cannot
// be set up stops the sweep, a run failing is recorded in its result.
func Sweep(ctx context.Context, config BacktestEngineV1Config, frame *window.Frame, registry strategy.Registry, cases []SweepCase, concurrency int, log *logger.Logger) ([]SweepResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	frame, err := config.Window(frame)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	results := make([]SweepResult, len(cases))

	group, groupCtx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		group.SetLimit(concurrency)
	}

	for i, sweepCase := range cases {
		group.Go(func() error {
			runnerConfig, err := config.RunnerConfig(frame, registry, sweepCase)
			if err != nil {
				return err
			}

			runnerConfig.Logger = logger.NewNopLogger()

			runner, err := NewRunner(runnerConfig)
			if err != nil {
				return err
			}

			result, runErr := runner.Run(groupCtx)
			results[i] = SweepResult{Index: i, Case: sweepCase, Result: result, Err: runErr}

			log.WithRun(runner.RunID()).Debug("Sweep run finished",
				zap.Int("index", i),
				zap.Bool("failed", runErr != nil),
			)

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return results, err
	}

	return results, nil
}
