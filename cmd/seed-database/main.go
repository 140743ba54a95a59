package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/jgirmay/alif24/internal/auth"
	"github.com/jgirmay/alif24/internal/common/database"
	"github.com/jgirmay/alif24/internal/models"
	"github.com/jgirmay/alif24/internal/seed"
	"github.com/jgirmay/alif24/pkg/config"
	applogger "github.com/jgirmay/alif24/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := applogger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if err := db.AutoMigrate(models.All()...); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	summary, err := seed.Run(context.Background(), db, auth.NewPasswordHasher(cfg.Auth.BcryptCost), logger)
	if err != nil {
		logger.Fatal("Seeding failed", zap.Error(err))
	}
	logger.Info("Demo accounts use the shared password",
		zap.String("password", seed.DemoPassword),
		zap.Int("users_created", summary.Users),
	)
}
