package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"github.com/mealbridge/service-surplus/internal/config"
	"github.com/mealbridge/service-surplus/internal/gateway/notify"
	"github.com/mealbridge/service-surplus/internal/http/handlers"
	"github.com/mealbridge/service-surplus/internal/http/middleware/ratelimit"
	"github.com/mealbridge/service-surplus/internal/http/pprofserver"
	"github.com/mealbridge/service-surplus/internal/http/router"
	"github.com/mealbridge/service-surplus/internal/logx"
	"github.com/mealbridge/service-surplus/internal/repository"
	"github.com/mealbridge/service-surplus/internal/service/claims"
	"github.com/mealbridge/service-surplus/internal/service/offers"
	"github.com/mealbridge/service-surplus/internal/service/pickup"
)

// ContainerBuilder is a dig container builder.
type ContainerBuilder struct {
	dbConnect func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error)
	logFatalf func(string, ...interface{})
}

// NewContainerBuilder returns a new dig container builder.
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{
		dbConnect: connectDbWithRetry,
		logFatalf: log.Fatalf,
	}
}

// WithDBConnect sets the database connection function.
func (b *ContainerBuilder) WithDBConnect(
	fn func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error),
) *ContainerBuilder {
	if fn != nil {
		b.dbConnect = fn
	}
	return b
}

// WithLogFatalf sets the log.Fatalf function.
func (b *ContainerBuilder) WithLogFatalf(fn func(string, ...interface{})) *ContainerBuilder {
	if fn != nil {
		b.logFatalf = fn
	}
	return b
}

// MustBuild builds and returns a new dig container.
func (b *ContainerBuilder) MustBuild(ctx context.Context) *dig.Container {
	container, err := b.build(ctx)
	if err != nil {
		b.logFatalf("failed to build container: %v", err)
	}
	return container
}

func (b *ContainerBuilder) build(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerDb(container, b.dbConnect); err != nil {
		return nil, fmt.Errorf("DB: %w", err)
	}
	if err := registerService(container); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if err := registerHTTP(container); err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	return container, nil
}

// MustBuildContainer builds and returns a new dig container.
func MustBuildContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuild(ctx)
}

func provideAll(container *dig.Container, providers ...any) error {
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return fmt.Errorf("provide %T: %w", provider, err)
		}
	}
	return nil
}

func registerCore(container *dig.Container, ctx context.Context) error {
	return provideAll(container,
		func() context.Context { return ctx },
		func() *log.Logger { return log.Default() },
		config.Load,
		NewLogger,
		newMetrics,
	)
}

func registerDb(
	container *dig.Container,
	dbConnect func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error),
) error {
	providerDB := func(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
		if err := repository.Migrate(cfg.DB.DSN()); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return dbConnect(ctx, cfg.DB.DSN(), 10, time.Second)
	}
	return provideAll(container, providerDB)
}

type gatewayIn struct {
	dig.In

	Cfg      *config.Config
	Failures prometheus.Counter `name:"notify_failures_total"`
}

func newNotifyGateway(in gatewayIn) (notify.Gateway, error) {
	kg, err := notify.NewKafkaGateway(in.Cfg.Kafka.Brokers, in.Cfg.Kafka.Topic, in.Failures)
	if err != nil {
		return nil, err
	}
	if kg == nil {
		return notify.NopGateway{}, nil
	}
	return kg, nil
}

type claimServiceIn struct {
	dig.In

	Repo      *repository.OfferRepo
	Machine   *offers.Machine
	Gateway   notify.Gateway
	Conflicts prometheus.Counter `name:"claim_conflicts_total"`
	Logger    logx.Logger
	Timeout   time.Duration
}

func registerService(container *dig.Container) error {
	return provideAll(container,
		repository.NewOfferRepo,
		offers.NewMachine,
		newNotifyGateway,
		func() time.Duration { return 3 * time.Second },
		func(repo *repository.OfferRepo, logger logx.Logger, timeout time.Duration) *offers.Service {
			return offers.NewService(repo, logger, timeout)
		},
		func(in claimServiceIn) *claims.Service {
			return claims.NewService(in.Repo, in.Machine, in.Gateway, in.Conflicts, in.Logger, in.Timeout)
		},
		func(
			repo *repository.OfferRepo,
			machine *offers.Machine,
			gateway notify.Gateway,
			logger logx.Logger,
			cfg *config.Config,
			timeout time.Duration,
		) *pickup.Service {
			return pickup.NewService(repo, machine, gateway, logger,
				cfg.Lifecycle.EarlyTolerance, cfg.Lifecycle.LateTolerance, timeout)
		},
	)
}

func registerHTTP(container *dig.Container) error {
	serverProvider := func(cfg *config.Config, mux http.Handler) *http.Server {
		return &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}
	routerProvider := func(
		base *handlers.Handlers,
		offersH *handlers.OfferHandler,
		claimsH *handlers.ClaimsHandler,
		rl *ratelimit.Middleware,
		registry *prometheus.Registry,
	) http.Handler {
		return router.New(router.Deps{
			Base:      base,
			Offers:    offersH,
			Claims:    claimsH,
			RateLimit: rl,
			Registry:  registry,
		})
	}
	// nil when disabled so the runner can skip it
	pprofProvider := func(cfg *config.Config) *http.Server {
		if !cfg.Pprof.Enabled {
			return nil
		}
		return &http.Server{
			Addr: cfg.Pprof.Addr,
			Handler: pprofserver.Handler(pprofserver.Config{
				User: cfg.Pprof.User,
				Pass: cfg.Pprof.Pass,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	if err := container.Provide(pprofProvider, dig.Name("pprof_server")); err != nil {
		return fmt.Errorf("provide pprof server: %w", err)
	}
	return provideAll(container,
		handlers.New,
		handlers.NewOfferUsecase,
		handlers.NewOfferHandler,
		handlers.NewClaimUsecase,
		handlers.NewPickupUsecase,
		handlers.NewClaimsHandler,
		newRateLimitClock,
		newRateLimiter,
		newRateLimitMiddleware,
		routerProvider,
		serverProvider,
	)
}
