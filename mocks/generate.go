package mocks

//go:generate mockgen -destination=./mock_strategy.go -package=mocks github.com/rxtech-lab/argo-replay/internal/strategy Strategy
//go:generate mockgen -destination=./mock_datasource.go -package=mocks github.com/rxtech-lab/argo-replay/internal/backtest/engine/engine_v1/datasource DataSource
//go:generate mockgen -destination=./mock_fx.go -package=mocks github.com/rxtech-lab/argo-replay/internal/fx Provider
