package main

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jgirmay/alif24/internal/achievements"
	"github.com/jgirmay/alif24/internal/ai"
	"github.com/jgirmay/alif24/internal/app"
	"github.com/jgirmay/alif24/internal/auth"
	"github.com/jgirmay/alif24/internal/common/health"
	"github.com/jgirmay/alif24/internal/common/metrics"
	"github.com/jgirmay/alif24/internal/common/middleware"
	"github.com/jgirmay/alif24/internal/content"
	"github.com/jgirmay/alif24/internal/leaderboard"
	"github.com/jgirmay/alif24/internal/notifications"
	"github.com/jgirmay/alif24/internal/rewards"
	"github.com/jgirmay/alif24/internal/students"
	"github.com/jgirmay/alif24/internal/users"
	"github.com/jgirmay/alif24/pkg/config"
)

// components is everything the router and shutdown path need.
type components struct {
	metrics *metrics.Metrics
	health  *health.HealthChecker
	guards  middleware.Guards
	modules *app.Registry
	hub     *notifications.Hub
	redis   *redis.Client
	log     *zap.Logger
}

func buildComponents(ctx context.Context, cfg *config.Config, db *gorm.DB, log *zap.Logger) *components {
	c := &components{
		metrics: metrics.New(),
		health:  health.NewHealthChecker(db, version),
		log:     log,
	}

	var cache *leaderboard.Cache
	if cfg.Redis.Enabled {
		c.redis = leaderboard.NewRedisClient(cfg.Redis)
		cache = leaderboard.NewCache(c.redis, cfg.Redis.TTL)
		c.health.AddCheck("redis", cache)
		log.Info("Leaderboard cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	c.hub = notifications.NewHub(c.metrics, log.Named("ws"))
	c.hub.Start(ctx)

	tokens := auth.NewTokenManager(cfg.Auth)
	authService := auth.NewService(db, tokens, auth.NewPasswordHasher(cfg.Auth.BcryptCost), log)
	c.guards = middleware.NewGuards(authService, middleware.NewRateLimits(cfg.RateLimit))

	userService := users.NewService(db, log)
	catalog := achievements.NewService(db, log)
	board := leaderboard.NewService(db, cache, log)
	inbox := notifications.NewService(db, c.hub, log)
	userService.Observe(board)

	engine := rewards.NewEngine(rewards.NewGormStore(db), log.Named("rewards"),
		rewards.WithMetrics(c.metrics),
		rewards.WithEvents(rewards.FanOut{board, notifications.NewRewardListener(inbox, log)}),
	)
	evaluator := achievements.NewEvaluator(db, catalog, engine, log)
	profiles := students.NewService(db, catalog, userService, log)

	// A nil *OpenAICompleter must not reach the interface.
	var completer ai.Completer
	if oc := ai.NewOpenAICompleter(cfg.AI); oc != nil {
		completer = oc
	} else {
		log.Warn("OPENAI_API_KEY not set, AI endpoints will answer 503")
	}

	c.modules = app.NewRegistry(log)
	c.modules.MustRegister("auth", "Registration, login and token refresh", auth.NewHandler(authService))
	c.modules.MustRegister("users", "Accounts and parent links", users.NewHandler(userService))
	c.modules.MustRegister("students", "Student profiles, progress and statistics", students.NewHandler(profiles, engine, evaluator))
	c.modules.MustRegister("content", "Subjects, lessons, games and activity", content.NewHandler(content.NewService(db, log), engine, evaluator, profiles, log))
	c.modules.MustRegister("achievements", "Achievement catalog", achievements.NewHandler(catalog))
	c.modules.MustRegister("leaderboard", "Student rankings", leaderboard.NewHandler(board))
	c.modules.MustRegister("notifications", "Inbox and live push", notifications.NewHandler(inbox, c.hub, log))
	c.modules.MustRegister("ai", "Generated lessons, quizzes and analysis", ai.NewHandler(ai.NewService(db, completer, log)))

	if err := board.Warm(ctx); err != nil {
		log.Warn("Leaderboard warm-up failed", zap.Error(err))
	}
	return c
}

func (c *components) close() {
	c.hub.Stop()
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.log.Warn("Failed to close redis client", zap.Error(err))
		}
	}
}

// logConfiguration prints the effective settings without secrets.
func logConfiguration(log *zap.Logger, cfg *config.Config) {
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr()),
		zap.String("db_type", cfg.Database.Type),
		zap.String("db", maskDSN(cfg.Database)),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Bool("redis", cfg.Redis.Enabled),
		zap.Bool("ai", cfg.AI.Enabled()),
		zap.String("cors_origin", cfg.Server.CORSOrigin),
	)
}

func maskDSN(d config.DatabaseConfig) string {
	if d.Type == "sqlite" {
		return d.Path
	}
	return d.User + ":***@" + d.Host + "/" + d.Name
}
