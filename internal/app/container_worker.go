package app

import (
	"context"
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"github.com/mealbridge/service-surplus/internal/config"
	"github.com/mealbridge/service-surplus/internal/gateway/notify"
	"github.com/mealbridge/service-surplus/internal/logx"
	"github.com/mealbridge/service-surplus/internal/repository"
	"github.com/mealbridge/service-surplus/internal/scheduler"
	"github.com/mealbridge/service-surplus/internal/service/offers"
)

type sweeperIn struct {
	dig.In

	Repo        *repository.OfferRepo
	Machine     *offers.Machine
	Gateway     notify.Gateway
	Logger      logx.Logger
	Transitions *prometheus.CounterVec `name:"sweep_transitions_total"`
	Failures    *prometheus.CounterVec `name:"sweep_item_failures_total"`
	Cfg         *config.Config
}

func newSweeper(in sweeperIn) *scheduler.Sweeper {
	return scheduler.NewSweeper(in.Repo, in.Machine, in.Gateway, in.Logger,
		in.Transitions, in.Failures, in.Cfg.Lifecycle)
}

// MustBuildWorkerContainer builds the DI container for the sweep worker.
func MustBuildWorkerContainer(ctx context.Context) *dig.Container {
	container, err := buildWorkerContainer(ctx, connectDbWithRetry)
	if err != nil {
		log.Fatalf("failed to build worker container: %v", err)
	}
	return container
}

func buildWorkerContainer(
	ctx context.Context,
	dbConnect dbConnectFunc,
) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerDb(container, dbConnect); err != nil {
		return nil, fmt.Errorf("DB: %w", err)
	}
	if err := provideAll(container,
		repository.NewOfferRepo,
		offers.NewMachine,
		newNotifyGateway,
		newSweeper,
	); err != nil {
		return nil, fmt.Errorf("worker: %w", err)
	}
	return container, nil
}
