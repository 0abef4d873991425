package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gokatarajesh/battlestudy/internal/bot"
	"github.com/gokatarajesh/battlestudy/internal/config"
	"github.com/gokatarajesh/battlestudy/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/battlestudy/internal/db/sqlc"
	"github.com/gokatarajesh/battlestudy/internal/leaderboard"
	"github.com/gokatarajesh/battlestudy/internal/logging"
	"github.com/gokatarajesh/battlestudy/internal/match"
	"github.com/gokatarajesh/battlestudy/internal/question"
	"github.com/gokatarajesh/battlestudy/internal/server"
)

// Application aggregates shared infrastructure and the battle services.
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	telegram *bot.Client
	handler  *bot.Handler
	battles  *match.Service
	resync   *leaderboard.ResyncWorker
}

// New bootstraps the logger, Postgres, Redis, the question bank and the bot.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.LogLevel)
	logger.Info().Msg("starting application bootstrap")

	pool, err := pgxpool.New(ctx, fmt.Sprintf("%s pool_max_conns=%d", cfg.Postgres.DSN(), cfg.Postgres.MaxConns))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	bank, err := question.LoadBank(cfg.Game.CatalogPath, logger)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, err
	}

	queries := sqlcgen.New(pool)
	players := repository.NewPlayerRepository(queries)
	history := repository.NewQuestionHistoryRepository(queries)
	seen := question.NewSeenCache(redisClient, history, cfg.Game.SeenCacheTTL)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := match.NewMetrics(registry)

	leaderboardSvc := leaderboard.NewService(redisClient, players, logger, leaderboard.ServiceOptions{
		TopN:           cfg.Leaderboard.TopN,
		RedisKeyPrefix: cfg.Leaderboard.KeyPrefix,
	})

	var index match.Index
	switch cfg.Game.IndexBackend {
	case config.IndexRedis:
		index = match.NewRedisIndex(redisClient, cfg.Game.IndexTTL, logger)
	default:
		index = match.NewMemoryIndex()
	}

	telegram, err := bot.NewClient(bot.Options{
		Token:       cfg.Telegram.Token,
		Debug:       cfg.Telegram.Debug,
		PollTimeout: cfg.Telegram.PollTimeout,
	}, logger)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, err
	}

	battles := match.NewService(match.Deps{
		Bank:      bank,
		Seen:      seen,
		Ledger:    players,
		Notifier:  bot.NewNotifier(telegram.API()),
		Standings: leaderboardSvc,
		Index:     index,
		Metrics:   metrics,
	}, match.Options{
		Rules:             rulesFrom(cfg.Game),
		CountdownInterval: cfg.Game.CountdownInterval,
		RematchWindow:     cfg.Game.RematchWindow,
	}, logger)

	handler := bot.NewHandler(telegram.API(), battles, players, leaderboardSvc, logger)

	var resync *leaderboard.ResyncWorker
	if interval := cfg.Leaderboard.ResyncInterval; interval > 0 {
		resync = leaderboard.NewResyncWorker(leaderboardSvc, players, interval, cfg.Leaderboard.TopN, logger)
	}

	lbHTTPHandler := leaderboard.NewHTTPHandler(leaderboardSvc, logger)
	checks := []server.Check{server.PostgresCheck(pool), server.RedisCheck(redisClient)}
	apiServer := server.NewHTTPServer(cfg, logger, registry, checks, lbHTTPHandler.HandleGet)

	logger.Info().
		Str("index_backend", cfg.Game.IndexBackend).
		Str("catalog", cfg.Game.CatalogPath).
		Msg("application wired")

	return &Application{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		redis:    redisClient,
		http:     apiServer,
		telegram: telegram,
		handler:  handler,
		battles:  battles,
		resync:   resync,
	}, nil
}

func rulesFrom(g config.Game) match.Rules {
	return match.Rules{
		question.DifficultyEasy:   {Timeout: g.EasyTimeout, WinDelta: g.EasyWin, LoseDelta: g.EasyLose},
		question.DifficultyMedium: {Timeout: g.MediumTimeout, WinDelta: g.MediumWin, LoseDelta: g.MediumLose},
		question.DifficultyHard:   {Timeout: g.HardTimeout, WinDelta: g.HardWin, LoseDelta: g.HardLose},
	}
}

// Run starts the bot poller, the HTTP server and the workers, and waits for
// a termination signal or the first failure.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.telegram.Run(gctx, a.handler)
	})

	g.Go(func() error {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	if a.resync != nil {
		g.Go(func() error {
			if err := a.resync.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("leaderboard resync: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
		defer cancel()
		if err := a.http.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("http shutdown error")
		}
		return nil
	})

	err := g.Wait()

	a.battles.Close()
	a.pool.Close()
	if cerr := a.redis.Close(); cerr != nil {
		a.logger.Error().Err(cerr).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return err
}
