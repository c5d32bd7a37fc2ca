package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	temporalclient "go.temporal.io/sdk/client"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/commerce-messaging/internal/api"
	"github.com/edvin/commerce-messaging/internal/api/middleware"
	"github.com/edvin/commerce-messaging/internal/config"
	"github.com/edvin/commerce-messaging/internal/crypto"
	"github.com/edvin/commerce-messaging/internal/db"
	"github.com/edvin/commerce-messaging/internal/gateway"
	"github.com/edvin/commerce-messaging/internal/logging"
	"github.com/edvin/commerce-messaging/internal/metrics"
	"github.com/edvin/commerce-messaging/internal/store"
)

// maxRequestTime covers the longest synchronous wait a caller can ask for.
const maxRequestTime = 5*time.Minute + 15*time.Second

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "hash-api-key" {
		hashAPIKey(os.Args[2:])
		return
	}
	if len(os.Args) >= 2 && os.Args[1] == "seal-token" {
		sealToken(os.Args[2:])
		return
	}

	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("gateway"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(prometheus.DefaultRegisterer, "gateway", pool)

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

	gw := gateway.New(tc, store.NewPostgresStore(pool), gateway.Options{
		SyncWait:          cfg.SyncWaitTimeout,
		SettleDelay:       cfg.SettleDelay,
		FanOutConcurrency: cfg.FanOutConcurrency,
		Policies:          cfg.ActivityPolicies,
		DefaultOrgID:      cfg.DefaultOrgID,
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTPListenAddr,
		Handler:           api.NewServer(logger, gw, cfg),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      maxRequestTime,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting gateway server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gateway server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("gateway stopped with error")
	}
}

// hashAPIKey generates a new API key (or hashes one given with --key) and
// prints the digest to add to API_KEY_HASHES.
func hashAPIKey(args []string) {
	fs := flag.NewFlagSet("hash-api-key", flag.ExitOnError)
	key := fs.String("key", "", "Existing key to hash; a new key is generated when empty")
	fs.Parse(args)

	if *key == "" {
		b := make([]byte, 24)
		if _, err := rand.Read(b); err != nil {
			fmt.Fprintf(os.Stderr, "error: failed to generate key: %v\n", err)
			os.Exit(1)
		}
		*key = "msg_" + hex.EncodeToString(b)
		fmt.Printf("  Key:   %s\n", *key)
	}
	fmt.Printf("  Hash:  %s\n\n", middleware.HashAPIKey(*key))
	fmt.Printf("Add the hash to API_KEY_HASHES; the key itself is not stored.\n")
}

// sealToken encrypts a channel token with CREDENTIALS_KEY for storage in
// channel_credentials. With --new-key it prints a fresh key instead.
func sealToken(args []string) {
	fs := flag.NewFlagSet("seal-token", flag.ExitOnError)
	token := fs.String("token", "", "Channel token to encrypt")
	newKey := fs.Bool("new-key", false, "Generate a CREDENTIALS_KEY and exit")
	fs.Parse(args)

	if *newKey {
		key, err := crypto.GenerateKey()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(hex.EncodeToString(key))
		return
	}

	if *token == "" {
		fmt.Fprintln(os.Stderr, "error: --token is required")
		os.Exit(1)
	}
	key, err := crypto.ParseKey(os.Getenv("CREDENTIALS_KEY"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: CREDENTIALS_KEY: %v\n", err)
		os.Exit(1)
	}
	sealed, err := crypto.Encrypt([]byte(*token), key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(sealed)
}
