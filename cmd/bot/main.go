// Command bot runs the trading loops on top of the swap engine and serves
// health and Prometheus metrics.
//
// Usage:
//
//	bot --config config.toml
//	bot --use-memory --metrics-addr :9090
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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"solana-swap-engine/internal/balance"
	"solana-swap-engine/internal/bot"
	"solana-swap-engine/internal/config"
	"solana-swap-engine/internal/jupiter"
	"solana-swap-engine/internal/logging"
	"solana-swap-engine/internal/observability"
	"solana-swap-engine/internal/solana"
	"solana-swap-engine/internal/storage"
	chstore "solana-swap-engine/internal/storage/clickhouse"
	"solana-swap-engine/internal/storage/memory"
	"solana-swap-engine/internal/storage/migrations"
	pgstore "solana-swap-engine/internal/storage/postgres"
	"solana-swap-engine/internal/submit"
	"solana-swap-engine/internal/swap"
	"solana-swap-engine/internal/wallet"
)

func main() {
	configPath := flag.StringP("config", "c", "", "Path to TOML config file (empty: defaults and environment only)")
	useMemory := flag.Bool("use-memory", false, "Keep holdings, history and submissions in memory")
	metricsAddr := flag.String("metrics-addr", "", "Ops HTTP listen address (overrides config)")
	flag.Parse()

	if err := run(*configPath, *useMemory, *metricsAddr); err != nil {
		logrus.WithError(err).Fatal("bot exited")
	}
}

// stores groups the persistence used by the bot.
type stores struct {
	holdings    storage.HoldingStore
	history     storage.HistoryStore
	submissions storage.SubmissionStore
}

func run(configPath string, useMemory bool, metricsAddr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if metricsAddr != "" {
		cfg.Server.MetricsAddr = metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, logCloser, err := logging.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	keypair, err := wallet.Load(cfg.Wallet.PrivateKey, cfg.Wallet.KeypairPath)
	if err != nil {
		return fmt.Errorf("load wallet: %w", err)
	}
	if err := wallet.ValidateWalletAddress(keypair.Address()); err != nil {
		return err
	}
	logger.WithField("wallet", keypair.Address()).Info("wallet loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, closeStores, err := createStores(ctx, cfg, useMemory, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	rpc := solana.NewHTTPClient(cfg.RPC.Endpoint,
		solana.WithTimeout(cfg.RPC.Timeout.Duration),
		solana.WithMaxRetries(cfg.RPC.MaxRetries),
	)

	var ws solana.WSClient
	if cfg.RPC.WSEndpoint != "" {
		wsCfg := solana.DefaultWSConfig()
		wsCfg.Logger = logger
		wsClient, err := solana.NewWSClient(ctx, cfg.RPC.WSEndpoint, &wsCfg)
		if err != nil {
			// Confirmation still resolves through polling and the block height watcher.
			logger.WithError(err).Warn("websocket unavailable, continuing without subscriptions")
		} else {
			defer wsClient.Close()
			ws = wsClient
		}
	}

	ledger := solana.NewLedger(rpc, ws, &solana.LedgerConfig{
		Commitment:          solana.Commitment(cfg.RPC.Commitment),
		BlockHeightInterval: cfg.Submit.BlockHeightInterval.Duration,
		SkipPreflight:       true,
		Logger:              logger,
	})

	submitter := submit.NewSubmitter(ledger, &submit.Config{
		ResubmitInterval: cfg.Submit.ResubmitInterval.Duration,
		PollInterval:     cfg.Submit.PollInterval.Duration,
		Logger:           logger,
	})

	resolver := balance.NewResolver(ledger, &balance.Config{
		MaxAttempts: cfg.Balance.MaxAttempts,
		RetryDelay:  cfg.Balance.RetryDelay.Duration,
		Logger:      logger,
	})

	quoter := jupiter.NewClient(&jupiter.Config{
		BaseURL:                cfg.Jupiter.BaseURL,
		Timeout:                cfg.Jupiter.Timeout.Duration,
		RetryCount:             cfg.Jupiter.RetryCount,
		MaxPriorityFeeLamports: cfg.Jupiter.MaxPriorityFeeLamports,
		PriorityLevel:          cfg.Jupiter.PriorityLevel,
		Logger:                 logger,
	})

	pipeline := swap.NewPipeline(swap.Deps{
		Quoter:      quoter,
		Network:     ledger,
		Submitter:   submitter,
		Resolver:    resolver,
		Wallet:      keypair,
		Submissions: st.submissions,
	}, &swap.Config{
		PostCheckAttempts: cfg.Swap.PostCheckAttempts,
		PostCheckDelay:    cfg.Swap.PostCheckDelay.Duration,
		Logger:            logger,
	})

	runner := bot.NewRunner(pipeline, bot.HoldDecider{SellAfter: cfg.Bot.SellAfter.Duration}, st.holdings, st.history, bot.Config{
		BuyAmountSOL:    decimal.NewFromFloat(cfg.Bot.BuyAmountSOL),
		BuyInterval:     cfg.Bot.BuyInterval.Duration,
		SellInterval:    cfg.Bot.SellInterval.Duration,
		BuySlippageBps:  cfg.Bot.BuySlippageBps,
		SellSlippageBps: cfg.Bot.SellSlippageBps,
		Logger:          logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.MetricsAddr,
		Handler:           newOpsRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.WithField("addr", srv.Addr).Info("ops server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("ops server failed")
		}
	}()

	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig.String()).Info("shutting down")
			cancel()
		case <-done:
			return
		}

		// A second signal or a stuck shutdown forces the exit.
		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig.String()).Warn("forced shutdown")
			os.Exit(1)
		case <-time.After(cfg.Server.ShutdownTimeout.Duration):
			logger.Errorf("graceful shutdown timed out after %s", cfg.Server.ShutdownTimeout.Duration)
			os.Exit(1)
		case <-done:
		}
	}()

	runErr := runner.Run(ctx)
	close(done)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("ops server shutdown")
	}

	logger.Info("shutdown complete")
	return runErr
}

// newOpsRouter serves /health and /metrics.
func newOpsRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", observability.Handler())
	return r
}

// createStores opens the configured stores. Holdings and history go to
// PostgreSQL, submissions to ClickHouse; an empty DSN falls back to memory.
func createStores(ctx context.Context, cfg *config.Config, useMemory bool, logger logrus.FieldLogger) (*stores, func(), error) {
	st := &stores{
		holdings:    memory.NewHoldingStore(),
		history:     memory.NewHistoryStore(),
		submissions: memory.NewSubmissionStore(),
	}
	if useMemory {
		logger.Info("using in-memory stores")
		return st, func() {}, nil
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Postgres.DSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)

		if cfg.Postgres.RunMigrations {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("postgres migrations: %w", err)
			}
		}
		st.holdings = pgstore.NewHoldingStore(pool)
		st.history = pgstore.NewHistoryStore(pool)
	} else {
		logger.Warn("postgres dsn not set, holdings are kept in memory")
	}

	if cfg.ClickHouse.DSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		st.submissions = chstore.NewSubmissionStore(conn)
	}

	return st, cleanup, nil
}
