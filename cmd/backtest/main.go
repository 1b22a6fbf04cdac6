package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/rxtech-lab/argo-replay/internal/backtest/engine"
	engine_v1 "github.com/rxtech-lab/argo-replay/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/strategy"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/internal/version"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap/zapcore"
)

// parseParams groups "strategy.key=value" overrides by strategy name.
func parseParams(raw []string) (map[string]strategy.Params, error) {
	overrides := make(map[string]strategy.Params)

	for _, item := range raw {
		key, value, err := strategy.ParseOverride(item)
		if err != nil {
			return nil, err
		}

		name, param, ok := strings.Cut(key, ".")
		if !ok || name == "" || param == "" {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "parameter override %q is not strategy.key=value", item)
		}

		if overrides[name] == nil {
			overrides[name] = strategy.Params{}
		}

		overrides[name][param] = value
	}

	return overrides, nil
}

func newLogger(verbose bool) (*logger.Logger, error) {
	if verbose {
		return logger.NewLoggerWithLevel(zapcore.DebugLevel)
	}

	return logger.NewLoggerWithLevel(zapcore.WarnLevel)
}

// runAction loads the configuration, replays the data and prints a summary of the run.
func runAction(ctx context.Context, cmd *cli.Command) error {
	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}

	config, err := os.ReadFile(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	overrides, err := parseParams(cmd.StringSlice("param"))
	if err != nil {
		return err
	}

	log, err := newLogger(cmd.Bool("verbose"))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	backtest := engine_v1.NewBacktestEngineV1WithLogger(log)

	if err := backtest.Initialize(string(config)); err != nil {
		return err
	}

	for name, params := range overrides {
		if err := backtest.SetParams(name, params); err != nil {
			return err
		}
	}

	if err := backtest.SetDataPath(cmd.String("data")); err != nil {
		return err
	}

	if err := backtest.SetResultsFolder(cmd.String("results")); err != nil {
		return err
	}

	var bar *progressbar.ProgressBar

	onRunStart := engine.OnRunStartCallback(func(runID string, totalSteps int) error {
		if cmd.Bool("quiet") {
			return nil
		}

		bar = progressbar.NewOptions(totalSteps,
			progressbar.OptionSetDescription(fmt.Sprintf("Replaying %s", runID)),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWriter(out),
		)

		return nil
	})
	onStep := engine.OnStepCallback(func(current int, _ int) error {
		if bar == nil {
			return nil
		}

		return bar.Set(current)
	})
	onRunEnd := engine.OnRunEndCallback(func(string, error) {
		if bar != nil {
			_ = bar.Finish()
			fmt.Fprintln(out)
		}
	})

	result, runErr := backtest.Run(ctx, engine.LifecycleCallbacks{
		OnRunStart: &onRunStart,
		OnStep:     &onStep,
		OnRunEnd:   &onRunEnd,
	})
	if result != nil {
		printSummary(out, engine_v1.ComputeRunStats(result, runErr))
	}

	return runErr
}

func percent(fraction decimal.Decimal) string {
	return fraction.Shift(2).StringFixed(2) + "%"
}

func printSummary(out io.Writer, stats types.RunStats) {
	fmt.Fprintf(out, "Run %s: %d steps (%s to %s)\n", stats.ID, stats.StepsCompleted,
		stats.StartTime.Format("2006-01-02"), stats.EndTime.Format("2006-01-02"))

	for _, book := range stats.Books {
		fmt.Fprintf(out, "  %s: %s -> %s %s, return %s, max drawdown %s, %d transactions, fees %s\n",
			book.Book,
			book.InitialValue.StringFixed(2),
			book.FinalValue.StringFixed(2),
			book.Denomination,
			percent(book.TotalReturn),
			percent(book.MaxDrawdown),
			book.NumberOfTransactions,
			book.TotalFees.StringFixed(2),
		)
	}

	for _, status := range []types.OrderStatus{
		types.OrderStatusExecuted,
		types.OrderStatusRejected,
		types.OrderStatusCancelled,
		types.OrderStatusExpired,
	} {
		if count := stats.Orders[status]; count > 0 {
			fmt.Fprintf(out, "  orders %s: %d\n", status, count)
		}
	}

	if stats.Error != "" {
		fmt.Fprintf(out, "  stopped: %s\n", stats.Error)
	}
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	schema, err := engine_v1.NewBacktestEngineV1WithLogger(logger.NewNopLogger()).GetConfigSchema()
	if err != nil {
		return err
	}

	if output := cmd.String("output"); output != "" {
		if err := os.WriteFile(output, []byte(schema), 0644); err != nil {
			return fmt.Errorf("failed to write schema: %w", err)
		}

		return nil
	}

	_, err = fmt.Fprintln(cmd.Root().Writer, schema)

	return err
}

func versionAction(_ context.Context, cmd *cli.Command) error {
	_, err := fmt.Fprintln(cmd.Root().Writer, version.GetVersion())

	return err
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "Replay historical market data through trading strategies",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the strategies of a configuration over a data file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the YAML run configuration",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Path to the market data (parquet or csv, glob patterns allowed)",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "results",
						Aliases: []string{"r"},
						Usage:   "Directory the run results are written to. Empty skips writing",
						Value:   "results",
					},
					&cli.StringSliceFlag{
						Name:    "param",
						Aliases: []string{"p"},
						Usage:   "Strategy parameter override as `strategy.key=value`, repeatable",
					},
					&cli.BoolFlag{
						Name:    "verbose",
						Aliases: []string{"v"},
						Usage:   "Log at debug level",
					},
					&cli.BoolFlag{
						Name:    "quiet",
						Aliases: []string{"q"},
						Usage:   "Hide the progress bar",
					},
				},
				Action: runAction,
			},
			{
				Name:  "schema",
				Usage: "Print the JSON schema of the run configuration",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the schema to this file instead of stdout",
					},
				},
				Action: schemaAction,
			},
			{
				Name:   "version",
				Usage:  "Print the engine version",
				Action: versionAction,
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
