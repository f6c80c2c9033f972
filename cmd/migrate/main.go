package main

import (
	"context"
	"flag"
	"os"

	"atelier-be/internal/config"
	"atelier-be/internal/db"
	"atelier-be/internal/logger"
	"atelier-be/internal/migrate"
	"atelier-be/migrations"

	"go.uber.org/zap"
)

func main() {
	mode := flag.String("mode", "up", "migration mode: up or down")
	flag.Parse()

	if err := run(context.Background(), *mode); err != nil {
		logger.L().Error("migration failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run(ctx context.Context, mode string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.AppEnv); err != nil {
		return err
	}

	database, err := db.NewDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	return migrate.Run(ctx, database, migrations.FS, mode)
}
