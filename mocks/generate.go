package mocks

//go:generate mockgen -destination=./mock_datasource.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource DataSource
//go:generate mockgen -destination=./mock_entry_provider.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/strategy/entry Provider
//go:generate mockgen -destination=./mock_exit_policy.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/strategy/exit Policy,Evaluator
