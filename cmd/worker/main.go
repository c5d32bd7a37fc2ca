package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	temporalclient "go.temporal.io/sdk/client"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/commerce-messaging/internal/activity"
	"github.com/edvin/commerce-messaging/internal/channel"
	"github.com/edvin/commerce-messaging/internal/config"
	"github.com/edvin/commerce-messaging/internal/db"
	"github.com/edvin/commerce-messaging/internal/events"
	"github.com/edvin/commerce-messaging/internal/logging"
	"github.com/edvin/commerce-messaging/internal/metrics"
	"github.com/edvin/commerce-messaging/internal/store"
	"github.com/edvin/commerce-messaging/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(prometheus.DefaultRegisterer, "worker", pool)

	dialOpts, err := cfg.TemporalClientOptions(logging.NewTemporalLogger(logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure temporal TLS")
	}
	if dialOpts.ConnectionOptions.TLS != nil {
		logger.Info().Msg("temporal mTLS enabled")
	}
	tc, err := temporalclient.Dial(dialOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		conn, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to message broker")
		}
		defer conn.Close()
		publisher = events.NewAMQPPublisher(conn, logger)
		logger.Info().Str("exchange", cfg.AMQPExchange).Msg("publishing invocation events")
	}

	dir := store.NewPostgresDirectory(pool).WithCredentialsKey(cfg.CredentialsKey)
	reg, err := worker.NewRegistry(cfg.TaskQueue, worker.Deps{
		Messaging:   activity.NewMessaging(channel.NewClient(cfg.ChannelAPIURL, cfg.ChannelAPITimeout), dir, logger),
		Lookup:      activity.NewLookup(dir, logger),
		Invocations: activity.NewInvocations(store.NewPostgresStore(pool), publisher, logger),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build worker registry")
	}
	w := worker.New(tc, cfg, reg, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx)
	})

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewWorkerServer(cfg.MetricsAddr, cfg.TaskQueue, map[string]metrics.Check{
			"database": pool.Ping,
			"temporal": func(ctx context.Context) error {
				_, err := tc.CheckHealth(ctx, &temporalclient.CheckHealthRequest{})
				return err
			},
		})
		g.Go(func() error {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped with error")
	}
	logger.Info().Msg("worker stopped")
}
