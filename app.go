package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/boltdb/bolt"
	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type AppProvider interface {
	Run() error
	Serve() func() error
	Stop(context.Context, context.Context) func() error
}

type cleanup struct {
	name string
	fn   func() error
}

type App struct {
	logger         *zap.Logger
	config         *Config
	server         *http.Server
	cleanups       []cleanup
	queueConsumers []func(context.Context) error
}

// NewApp provides an instance of App.
func NewApp(configFile, envFile string) (AppProvider, error) {
	config, err := LoadAndInitConfigs(configFile, envFile, GitCommit, GitTag, BuildTime)
	if err != nil {
		return nil, fmt.Errorf("failed to setup app configuration: %w", err)
	}

	clock := NewClock(config.IsProduction)
	logWriter := NewRSyncWriter(config, clock)
	logger, flusher := SetupLogging(config, logWriter, clock)

	app := &App{
		logger: logger,
		config: config,
		cleanups: []cleanup{
			{"logger", flusher},
			{"logs writer", logWriter.Close},
		},
	}

	storage, queue, err := app.setupStorage(context.Background())
	if err != nil {
		app.Clean()
		return nil, err
	}

	bookService := NewBookService(logger, clock, storage, queue)
	apiService := NewAPIHandler(
		logger,
		config,
		&Statistics{
			version:   config.GitTag,
			container: IsAppRunningInDocker(),
			started:   clock.Now(),
			runtime:   runtime.Version(),
			platform:  runtime.GOOS + "/" + runtime.GOARCH,
		},
		clock,
		NewIDsHandler(),
		bookService,
	)

	// Use git commit in case the tag is not set.
	if config.GitTag == "" {
		apiService.stats.version = config.GitCommit
	}

	catalogClient := NewCatalogClient(logger, &config.Catalog, &http.Client{Timeout: config.Catalog.RequestTimeout})
	catalogView, err := NewCatalogView(logger, catalogClient)
	if err != nil {
		app.Clean()
		return nil, err
	}

	// Build the map of middlewares stacks.
	middlewaresPublic, middlewaresOps := apiService.MiddlewaresStacks()

	// Configure the endpoints with their handlers and middlewares.
	router := apiService.SetupRoutes(httprouter.New(),
		&MiddlewareMap{
			public: middlewaresPublic.Chain,
			ops:    middlewaresOps.Chain,
		},
		catalogView,
	)

	app.server = &http.Server{
		Addr:           fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port),
		Handler:        TimeoutWrapper(router, config.Server.RequestTimeout),
		ReadTimeout:    config.Server.ReadTimeout,
		WriteTimeout:   config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // Max headers size : 1MB
		ConnContext:    SaveConnInContext,
	}
	return app, nil
}

// setupStorage opens the primary books storage selected by the engine. With
// mirroring on it also returns the redis queue and registers the consumer
// which replays the writes into boltdb.
func (app *App) setupStorage(ctx context.Context) (BookStorage, Queuer, error) {
	var (
		storage     BookStorage
		redisClient *redis.Client
		boltClient  *bolt.DB
		err         error
	)
	config := app.config

	needRedis := config.Storage.Engine == RedisEngine || config.Storage.MirrorEnable
	needBolt := config.Storage.Engine == BoltDBEngine || config.Storage.MirrorEnable

	if needRedis {
		redisClient, err = GetRedisClient(&config.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis server: %w", err)
		}
		app.cleanups = append([]cleanup{{"redis client", redisClient.Close}}, app.cleanups...)
	}

	if needBolt {
		boltClient, err = GetBoltDBClient(&config.BoltDB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open boltdb database: %w", err)
		}
		app.cleanups = append([]cleanup{{"boltdb client", boltClient.Close}}, app.cleanups...)
	}

	switch config.Storage.Engine {
	case RedisEngine:
		storage = NewRedisBookStorage(app.logger, redisClient)
	case BoltDBEngine:
		storage = NewBoltBookStorage(app.logger, &config.BoltDB, boltClient)
	case PostgresEngine:
		pool, perr := GetPostgresPool(ctx, &config.Postgres)
		if perr != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres server: %w", perr)
		}
		app.cleanups = append([]cleanup{{"postgres pool", func() error { pool.Close(); return nil }}}, app.cleanups...)
		storage = NewPostgresBookStorage(app.logger, pool)
	}

	if !config.Storage.MirrorEnable {
		return storage, nil, nil
	}
	if config.Storage.Engine == BoltDBEngine {
		app.logger.Warn("storage mirroring ignored since boltdb is the primary storage")
		return storage, nil, nil
	}

	queue := NewRedisQueue(redisClient)
	consumer := NewMirrorConsumer(app.logger, queue, NewBoltBookStorage(app.logger, &config.BoltDB, boltClient))
	app.queueConsumers = append(app.queueConsumers, func(ctx context.Context) error {
		return consumer.Consume(ctx, CreateQueue, UpdateQueue, DeleteQueue)
	})
	return storage, queue, nil
}

// Run starts the api web server and a goroutine which is responsible to stop it.
func (app *App) Run() error {
	defer app.Clean()
	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(nCtx)

	g.Go(app.ConsumeQueues(gCtx, g))
	g.Go(app.Serve())
	g.Go(app.Stop(nCtx, gCtx))

	err := g.Wait()
	app.logger.Info("api server stopped",
		zap.String("app.host", app.config.Server.Host),
		zap.String("app.port", app.config.Server.Port),
		zap.Error(err),
	)
	return err
}

// Clean calls all registered cleanups functions. The logger
// ones are registered first so they run last.
func (app *App) Clean() {
	for _, c := range app.cleanups {
		if err := c.fn(); err != nil && !errors.Is(err, redis.ErrClosed) {
			app.logger.Error("cleanup failed", zap.String("name", c.name), zap.Error(err))
		}
	}
}

// Serve starts the api web server. It returned error
// will be caught by the errorgroup.
func (app *App) Serve() func() error {
	return func() error {
		app.logger.Info("api server starting",
			zap.String("app.host", app.config.Server.Host),
			zap.String("app.port", app.config.Server.Port),
			zap.String("storage.engine", app.config.Storage.Engine),
			zap.Bool("storage.mirror", app.config.Storage.MirrorEnable),
		)
		err := app.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return err
	}
}

// Stop listens for the group context and triggers the server graceful shutdown.
// It states the reason of its call. We proceed with a brutal shutdown if the
// the graceful did not complete successfully. We explicitly return `nil` to
// allow the errorgroup catches only the `Serve` method result.
func (app *App) Stop(nCtx, gCtx context.Context) func() error {
	return func() error {
		<-gCtx.Done()

		if nCtx.Err() != nil {
			app.logger.Info("api server stopping. reason: requested to stop")
		} else {
			app.logger.Info("api server stopping. reason: errored at running")
		}

		sCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		err := app.server.Shutdown(sCtx)
		switch {
		case err == nil, errors.Is(err, http.ErrServerClosed):
			app.logger.Info("api server graceful shutdown succeeded")
		case errors.Is(err, context.DeadlineExceeded):
			app.logger.Info("api server graceful shutdown timed out")
		default:
			app.logger.Info("api server graceful shutdown failed", zap.Error(err))
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Info("api server going to force shutdown", zap.Error(app.server.Close()))
		}
		return nil
	}
}

// ConsumeQueues runs all queue consumers into separate controlled goroutines.
func (app *App) ConsumeQueues(gCtx context.Context, g *errgroup.Group) func() error {
	return func() error {
		for _, consume := range app.queueConsumers {
			consume := consume
			g.Go(func() error {
				return consume(gCtx)
			})
		}
		return nil
	}
}
