//go:build wireinject
// +build wireinject

package di

import (
	"PulseTrade/pkg/config"
	"PulseTrade/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Market state
		ProvideAggregator,
		ProvideFeatureEngine,
		ProvideStrategy,
		ProvideGuard,

		// Risk and ledger
		ProvideRiskManager,
		ProvideEngine,

		// External services
		ProvideJournal,
		ProvideAdvisor,
		ProvideSettler,
		ProvideFeed,

		// Use cases
		ProvideEvaluator,
		ProvideCollector,

		// HTTP surface
		ProvideStatusHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
