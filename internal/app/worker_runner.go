package app

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"github.com/mealbridge/service-surplus/internal/gateway/notify"
	"github.com/mealbridge/service-surplus/internal/logx"
	"github.com/mealbridge/service-surplus/internal/scheduler"
)

// WorkerRunner runs the lifecycle sweep worker.
type WorkerRunner struct {
	runFn func(*dig.Container) error
}

// NewWorkerRunner returns a new WorkerRunner.
func NewWorkerRunner() *WorkerRunner {
	return &WorkerRunner{runFn: runWorker}
}

// MustRun starts the sweeper using the provided DI container.
func (r *WorkerRunner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	panic(err)
}

func runWorker(container *dig.Container) error {
	return container.Invoke(workerRun)
}

func workerRun(
	ctx context.Context,
	pool *pgxpool.Pool,
	logger logx.Logger,
	gateway notify.Gateway,
	sweeper *scheduler.Sweeper,
) error {
	defer closeWorker(pool, logger, gateway)

	logger.Info("surplus-sweeper started")
	return sweeper.Run(ctx)
}

func closeWorker(pool *pgxpool.Pool, logger logx.Logger, gateway notify.Gateway) {
	if kg, ok := gateway.(*notify.KafkaGateway); ok {
		if err := kg.Close(); err != nil {
			logger.Error("kafka close error", logx.Any("err", err))
		}
	}
	if pool != nil {
		pool.Close()
	}
}
