package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"

	"tienda-barrio/internal/config"
	"tienda-barrio/internal/db"
	"tienda-barrio/internal/logging"
	"tienda-barrio/internal/migrate"
)

func main() {
	var (
		down    int
		version bool
	)
	flag.IntVar(&down, "down", 0, "Roll back this many migrations instead of applying")
	flag.BoolVar(&version, "version", false, "Print the current schema version and exit")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.FromEnv()
	if err != nil {
		bootLogger := logging.New(logging.Options{Service: "migrate"})
		bootLogger.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(logging.Options{Service: "migrate", Level: logging.ParseLevel(cfg.LogLevel), Format: cfg.LogFormat})

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, 2)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	switch {
	case version:
		v, dirty, ok, err := migrate.Version(ctx, pool)
		if err != nil {
			logger.Fatal().Err(err).Msg("read version")
		}
		if !ok {
			logger.Info().Msg("no migrations applied")
			os.Exit(0)
		}
		logger.Info().Uint("version", v).Bool("dirty", dirty).Msg("schema version")
	case down > 0:
		if err := migrate.Rollback(ctx, pool, down); err != nil {
			logger.Fatal().Err(err).Msg("rollback migrations")
		}
		logger.Info().Int("steps", down).Msg("migrations rolled back")
	default:
		if err := migrate.Apply(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
		logger.Info().Msg("migrations applied")
	}
}
