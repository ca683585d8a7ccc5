package main

import (
	"context"

	"github.com/joho/godotenv"

	"tienda-barrio/internal/config"
	"tienda-barrio/internal/db"
	"tienda-barrio/internal/logging"
	categoryrepo "tienda-barrio/internal/repository/category"
	productrepo "tienda-barrio/internal/repository/product"
	"tienda-barrio/internal/seed"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.FromEnv()
	if err != nil {
		bootLogger := logging.New(logging.Options{Service: "seed"})
		bootLogger.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(logging.Options{Service: "seed", Level: logging.ParseLevel(cfg.LogLevel), Format: cfg.LogFormat})

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, 2)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	if err := seed.Apply(ctx, productrepo.NewPostgres(pool, logger), categoryrepo.NewPostgres(pool), logger); err != nil {
		logger.Fatal().Err(err).Msg("seed apply")
	}
}
