package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Overland-East-Bay/club-membership-engine/internal/adapters/httpapi"
	membalances "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/memory/balances"
	memclubrepo "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/memory/clubrepo"
	memevents "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/memory/events"
	memidempotency "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/memory/idempotency"
	memmembershiprepo "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/memory/membershiprepo"
	memuow "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/memory/uow"
	postgres "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/postgres"
	pgbalances "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/postgres/balances"
	pgevents "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/postgres/events"
	pgidempotency "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/postgres/idempotency"
	pguow "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/postgres/uow"
	"github.com/Overland-East-Bay/club-membership-engine/internal/app/clubs"
	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
	platformclock "github.com/Overland-East-Bay/club-membership-engine/internal/platform/clock"
	"github.com/Overland-East-Bay/club-membership-engine/internal/platform/config"
	"github.com/Overland-East-Bay/club-membership-engine/internal/platform/logging"
	balancesport "github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/balances"
	eventsport "github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/events"
	idempotencyport "github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/idempotency"
	uowport "github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/uow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("production")
		bootLogger.Fatal().Err(err).Msg("invalid config")
	}
	logger := logging.New(cfg.Server.AppEnv)

	var authMW func(http.Handler) http.Handler
	switch cfg.Server.AuthMode {
	case "dev":
		logger.Warn().Str("dev_account", cfg.Server.DevAccount).Msg("dev auth enabled")
		authMW = httpapi.NewDevAuthMiddleware(cfg.Server.SystemKey, cfg.Server.DevAccount)
	default:
		authMW = httpapi.NewHeaderAuthMiddleware(cfg.Server.SystemKey)
	}
	if cfg.Server.SystemKey == "" {
		logger.Warn().Msg("SYSTEM_KEY is empty; club creation is disabled")
	}

	clk := platformclock.NewSystemClock()

	var (
		runner    uowport.Runner
		eventLog  eventsport.Store
		idemStore idempotencyport.Store
		cleanup   func()
	)

	switch cfg.Server.StorageBackend {
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		pool, err := postgres.NewPool(ctx, cfg.Postgres.DatabaseURL, postgres.PoolOptions{
			MaxConns: cfg.Postgres.MaxConns,
			MinConns: cfg.Postgres.MinConns,
		})
		if err != nil {
			cancel()
			logger.Fatal().Err(err).Msg("invalid postgres config")
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			cancel()
			pool.Close()
			logger.Fatal().Err(err).Msg("migrate")
		}
		cancel()
		cleanup = pool.Close

		seedGenesis(logger, pgbalances.NewLedger(pool, cfg.ExistentialDeposit()), cfg.GenesisBalances())

		runner = pguow.NewRunner(pool, cfg.InitialClubID(), cfg.ExistentialDeposit())
		eventLog = pgevents.NewStore(pool)
		idemStore = pgidempotency.NewStore(pool, cfg.Server.IdempotencyTTL)
	default:
		rec := memevents.NewRecorder()
		ledger := membalances.NewLedger(cfg.ExistentialDeposit())
		seedGenesis(logger, ledger, cfg.GenesisBalances())
		runner = memuow.NewRunner(
			memclubrepo.NewRepo(cfg.InitialClubID()),
			memmembershiprepo.NewRepo(),
			ledger,
			rec,
		)
		eventLog = rec
		idemStore = memidempotency.NewStoreWithRetention(clk, cfg.Server.IdempotencyTTL)
	}

	if cleanup != nil {
		defer cleanup()
	}

	svc := clubs.NewService(runner, clk, cfg.Clubs(), logger)
	api := httpapi.NewServer(svc, eventLog, idemStore, logger.With().Str("component", "http").Logger())

	handler := httpapi.NewRouterWithOptions(
		api,
		httpapi.RouterOptions{AuthMiddleware: authMW},
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go serve(srv, logger, cfg, svc)

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
		os.Exit(1)
	}
}

// seedGenesis opens the configured starting accounts.
func seedGenesis(logger zerolog.Logger, s balancesport.Seeder, genesis map[domain.AccountID]domain.Balance) {
	if len(genesis) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := balancesport.ApplyGenesis(ctx, s, genesis); err != nil {
		logger.Fatal().Err(err).Msg("seed genesis balances")
	}
	logger.Info().Int("accounts", len(genesis)).Msg("genesis balances seeded")
}

func serve(srv *http.Server, logger zerolog.Logger, cfg config.Config, svc *clubs.Service) {
	logger.Info().
		Str("addr", srv.Addr).
		Str("storage", cfg.Server.StorageBackend).
		Str("escrow", string(svc.EscrowAccountID())).
		Msg("api listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("listen")
	}
}
