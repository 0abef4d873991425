package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Session index backends.
const (
	IndexMemory = "memory"
	IndexRedis  = "redis"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"battlestudy"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres    Postgres
	Redis       Redis
	Telegram    Telegram
	Game        Game
	Leaderboard Leaderboard
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN renders the keyword/value connection string understood by pgx.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// Redis holds cache and index configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Telegram configures the bot transport.
type Telegram struct {
	Token       string `env:"TELEGRAM_TOKEN,notEmpty"`
	Debug       bool   `env:"TELEGRAM_DEBUG" envDefault:"false"`
	PollTimeout int    `env:"TELEGRAM_POLL_TIMEOUT" envDefault:"60"`
}

// Game groups gameplay rules.
type Game struct {
	CatalogPath       string        `env:"QUESTIONS_PATH" envDefault:"configs/questions.json"`
	EasyTimeout       time.Duration `env:"EASY_TIMEOUT" envDefault:"60s"`
	EasyWin           int           `env:"EASY_WIN_DELTA" envDefault:"10"`
	EasyLose          int           `env:"EASY_LOSE_DELTA" envDefault:"-5"`
	MediumTimeout     time.Duration `env:"MEDIUM_TIMEOUT" envDefault:"180s"`
	MediumWin         int           `env:"MEDIUM_WIN_DELTA" envDefault:"25"`
	MediumLose        int           `env:"MEDIUM_LOSE_DELTA" envDefault:"-15"`
	HardTimeout       time.Duration `env:"HARD_TIMEOUT" envDefault:"300s"`
	HardWin           int           `env:"HARD_WIN_DELTA" envDefault:"50"`
	HardLose          int           `env:"HARD_LOSE_DELTA" envDefault:"-35"`
	RematchWindow     time.Duration `env:"REMATCH_WINDOW" envDefault:"20s"`
	CountdownInterval time.Duration `env:"COUNTDOWN_INTERVAL" envDefault:"1s"`
	IndexBackend      string        `env:"SESSION_INDEX_BACKEND" envDefault:"memory"`
	IndexTTL          time.Duration `env:"SESSION_INDEX_TTL" envDefault:"15m"`
	SeenCacheTTL      time.Duration `env:"SEEN_CACHE_TTL" envDefault:"1h"`
}

// Leaderboard governs the Redis mirror of player ratings.
type Leaderboard struct {
	ResyncInterval time.Duration `env:"LEADERBOARD_RESYNC_INTERVAL" envDefault:"5m"`
	TopN           int           `env:"LEADERBOARD_TOP" envDefault:"10"`
	KeyPrefix      string        `env:"LEADERBOARD_KEY_PREFIX" envDefault:"lb"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *App) validate() error {
	switch a.Game.IndexBackend {
	case IndexMemory, IndexRedis:
	default:
		return fmt.Errorf("SESSION_INDEX_BACKEND: unknown backend %q", a.Game.IndexBackend)
	}
	for name, d := range map[string]time.Duration{
		"EASY_TIMEOUT":       a.Game.EasyTimeout,
		"MEDIUM_TIMEOUT":     a.Game.MediumTimeout,
		"HARD_TIMEOUT":       a.Game.HardTimeout,
		"REMATCH_WINDOW":     a.Game.RematchWindow,
		"COUNTDOWN_INTERVAL": a.Game.CountdownInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if a.Game.IndexBackend == IndexRedis {
		longest := max(a.Game.EasyTimeout, a.Game.MediumTimeout, a.Game.HardTimeout)
		if a.Game.IndexTTL <= longest {
			return fmt.Errorf("SESSION_INDEX_TTL (%s) must exceed the longest tier timeout (%s)", a.Game.IndexTTL, longest)
		}
	}
	if a.Game.EasyLose > 0 || a.Game.MediumLose > 0 || a.Game.HardLose > 0 {
		return fmt.Errorf("lose deltas must not be positive")
	}
	return nil
}
