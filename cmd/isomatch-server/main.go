// Command isomatch-server stores subgraph isomorphism results reported by a
// matching engine and serves them over a REST API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/persistorai/isomatch/internal/api"
	"github.com/persistorai/isomatch/internal/config"
	"github.com/persistorai/isomatch/internal/db"
	"github.com/persistorai/isomatch/internal/db/migrations"
	"github.com/persistorai/isomatch/internal/dbpool"
	"github.com/persistorai/isomatch/internal/domain"
	"github.com/persistorai/isomatch/internal/graphdb"
	"github.com/persistorai/isomatch/internal/service"
	"github.com/persistorai/isomatch/internal/store"
	"github.com/persistorai/isomatch/internal/ws"
)

const shutdownTimeout = 15 * time.Second

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := run(log); err != nil {
		log.WithError(err).Fatal("isomatch-server exited")
	}
}

func run(log *logrus.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value(), cfg.DBMaxConns)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		return err
	}

	base := store.Base{Pool: pool, Log: log}

	resolver, graph, closeGraph, err := newResolver(cfg, base, log)
	if err != nil {
		return err
	}
	defer closeGraph()

	hub := ws.NewHub(log)

	events := store.NewEventStore(base)
	worker := service.NewEventWorker(events, log, 0)
	worker.SetPublisher(hub)

	matches := service.NewMatchService(resolver, store.NewRunStore(base), worker, log, cfg.MaxEmbeddings)

	// The registry write surface exists only when nodes resolve from Postgres.
	var nodes api.NodeRepository
	if registry, ok := resolver.(*store.NodeStore); ok {
		nodes = service.NewNodeService(registry, log)
	}

	handler := api.NewRouter(&api.RouterDeps{
		Log:          log,
		Pool:         pool,
		Graph:        graph,
		GraphBackend: resolver.Backend(),
		Matches:      matches,
		Nodes:        nodes,
		Events:       service.NewEventService(events, log),
		Hub:          hub,
		TenantLookup: &base,
		CORSOrigins:  cfg.CORSOrigins,
		Version:      config.Version,
	})

	apiServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr(),
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	bg := startBackground(worker, hub)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return serve(apiServer, log, "api") })
	g.Go(func() error { return serve(metricsServer, log, "metrics") })

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return errors.Join(apiServer.Shutdown(shutdownCtx), metricsServer.Shutdown(shutdownCtx))
	})

	err = g.Wait()

	// Handlers are done; flush queued events before the pool closes.
	bg.stop()

	return err
}

// background runs the event worker and the stream hub on contexts of their
// own. The hub outlives the worker: events flushed at shutdown reach stream
// clients before the shutdown frame.
type background struct {
	cancelWorker context.CancelFunc
	workerDone   chan struct{}
	cancelHub    context.CancelFunc
	hub          *ws.Hub
}

func startBackground(worker *service.EventWorker, hub *ws.Hub) *background {
	hubCtx, cancelHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})

	go func() {
		worker.Run(workerCtx)
		close(workerDone)
	}()

	return &background{
		cancelWorker: cancelWorker,
		workerDone:   workerDone,
		cancelHub:    cancelHub,
		hub:          hub,
	}
}

// stop drains the event queue, then drains the hub.
func (b *background) stop() {
	b.cancelWorker()
	<-b.workerDone

	b.cancelHub()
	<-b.hub.Done()
}

// newResolver picks the node resolver for the configured graph backend. graph
// is nil when nodes resolve through the Postgres pool.
func newResolver(
	cfg *config.Config,
	base store.Base,
	log *logrus.Logger,
) (resolver domain.NodeResolver, graph api.HealthChecker, closeFn func(), err error) {
	if cfg.GraphBackend != config.BackendNeo4j {
		return store.NewNodeStore(base), nil, func() {}, nil
	}

	neo, err := graphdb.NewNeo4jResolver(
		cfg.Neo4jURI,
		cfg.Neo4jUser,
		cfg.Neo4jPassword.Value(),
		cfg.Neo4jDatabase,
		cfg.Neo4jIDMode,
		log,
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connecting to neo4j: %w", err)
	}

	closeFn = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := neo.Close(ctx); err != nil {
			log.WithError(err).Warn("closing neo4j driver")
		}
	}

	return neo, neo, closeFn, nil
}

func serve(srv *http.Server, log *logrus.Logger, name string) error {
	log.WithFields(logrus.Fields{"server": name, "addr": srv.Addr}).Info("listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}

	return nil
}
