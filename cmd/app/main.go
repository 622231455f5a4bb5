// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"unzer-reconciler/internal/config"
	"unzer-reconciler/internal/domain/model"
	"unzer-reconciler/internal/domain/ports/adapter"
	payAdapters "unzer-reconciler/internal/infra/adapters/payment"
	"unzer-reconciler/internal/infra/api"
	pg "unzer-reconciler/internal/infra/db/postgres"
	"unzer-reconciler/internal/infra/logging"
	"unzer-reconciler/internal/infra/metrics"
	"unzer-reconciler/internal/infra/mq"
	red "unzer-reconciler/internal/infra/redis"
	"unzer-reconciler/internal/infra/sched"
	"unzer-reconciler/internal/infra/security"
	"unzer-reconciler/internal/infra/worker"
	"unzer-reconciler/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

const devEncryptionKey = "0123456789abcdef0123456789abcdef"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, dev keys)")
	mintFor := flag.String("mint-token", "", "print a checkout token for the given store code and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	auth := api.NewAuthManager(cfg.Security.JWTSecret, cfg.Redis.SessionTTL)
	if *mintFor != "" {
		tok, err := auth.Mint("dev-cli", *mintFor)
		if err != nil {
			logger.Fatal().Err(err).Msg("mint token")
		}
		fmt.Println(tok)
		return
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go reportPoolStats(ctx, pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	// ---- Encryption ----
	encKey := cfg.Security.EncryptionKey
	if encKey == "" {
		if !cfg.Runtime.Dev {
			logger.Fatal().Msg("security.encryption_key is required outside developer mode")
		}
		logger.Warn().Msg("security.encryption_key not set; using the insecure dev key")
		encKey = devEncryptionKey
	}
	encSvc, err := security.NewEncryptionService(encKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("encryption")
	}

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	orderRepo := pg.NewOrderRepo(pool)
	vaultRepo := pg.NewVaultRepo(pool, encSvc)
	sessions := red.NewSessionStore(redisClient)
	locker := red.NewLocker(redisClient)
	limiter := red.NewRateLimiter(redisClient)

	// ---- Events ----
	events, closeEvents := newPublisher(cfg.AMQP, logger)
	defer closeEvents()

	// ---- Provider ----
	gateway, err := payAdapters.NewUnzerGateway(payAdapters.Options{
		BaseURL:        cfg.Provider.BaseURL,
		Timeout:        cfg.Provider.Timeout,
		MaxRetries:     cfg.Provider.MaxRetries,
		BreakerTimeout: cfg.Provider.BreakerTimeout,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("unzer gateway")
	}

	// ---- Use cases ----
	stores := usecase.NewStoreDirectory(cfg.DefaultStore, storesFromConfig(cfg.Stores)...)
	reconcileUC := usecase.NewReconcileUseCase(orderRepo, tm, locker, events, cfg.Redis.LockTTL, logger)
	webhookUC := usecase.NewWebhookUseCase(stores, gateway, reconcileUC, logger)
	checkoutUC := usecase.NewCheckoutUseCase(stores, sessions, orderRepo, tm, cfg.Redis.SessionTTL, cfg.Provider.ThreatMetrixOrgID, logger)
	authorizeUC := usecase.NewAuthorizeUseCase(stores, orderRepo, vaultRepo, sessions, tm, gateway, events, logger)
	infoUC := usecase.NewPaymentInfoUseCase(stores, orderRepo, gateway, logger)
	sweepUC := usecase.NewPendingSweepUseCase(stores, orderRepo, gateway, reconcileUC)

	// ---- HTTP ----
	srv := api.NewServer(
		webhookUC, checkoutUC, authorizeUC, infoUC, auth, limiter,
		map[string]api.Pinger{"postgres": pool, "redis": redisClient},
		api.Options{RequestTimeout: cfg.HTTP.RequestTimeout, WebhookRateLimit: cfg.HTTP.WebhookRateLimit},
		logger,
	)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Pending payment sweeper ----
	workers := worker.NewPool(cfg.Scheduler.Workers, logger)
	workers.Start(ctx)
	sweeper := sched.NewPaymentSweeper(sweepUC, workers, cfg.Scheduler.StaleAfter, cfg.Scheduler.BatchSize, logger)
	runner := sched.NewRunner(ctx, logger)
	if err := runner.Add("pending-payment-sweep", cfg.Scheduler.ReconcileCron, func(ctx context.Context) { sweeper.Sweep(ctx) }); err != nil {
		logger.Fatal().Err(err).Msg("scheduler")
	}
	runner.Start()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	runner.Stop(shutdownCtx)
	cancel()
	workers.Stop()
}

func storesFromConfig(in []config.StoreConfig) []model.Store {
	out := make([]model.Store, 0, len(in))
	for _, s := range in {
		out = append(out, model.Store{
			Code:             s.Code,
			PublicKey:        s.PublicKey,
			PrivateKey:       s.PrivateKey,
			TransmitCurrency: model.ParseTransmitCurrency(s.TransmitCurrency),
			EnabledMethods:   s.EnabledMethods,
			ReturnURL:        s.ReturnURL,
		})
	}
	return out
}

// newPublisher connects to the broker, falling back to logging events when none is
// configured or it cannot be reached.
func newPublisher(cfg config.AMQPConfig, logger *zerolog.Logger) (adapter.EventPublisher, func()) {
	if cfg.URL == "" {
		logger.Info().Msg("amqp.url not set; payment events are logged only")
		return mq.NewLogPublisher(logger), func() {}
	}
	p, err := mq.NewProducer(cfg.URL, cfg.Exchange, logger)
	if err != nil {
		logger.Error().Err(err).Msg("amqp unavailable; payment events are logged only")
		return mq.NewLogPublisher(logger), func() {}
	}
	return p, p.Close
}

func reportPoolStats(ctx context.Context, pool *pgxpool.Pool) {
	t := time.NewTicker(15 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st := pool.Stat()
			metrics.SetDBPoolConns(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
		}
	}
}
