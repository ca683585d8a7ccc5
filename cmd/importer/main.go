package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"tienda-barrio/internal/cache"
	"tienda-barrio/internal/config"
	"tienda-barrio/internal/db"
	"tienda-barrio/internal/importer"
	"tienda-barrio/internal/logging"
	categoryrepo "tienda-barrio/internal/repository/category"
	productrepo "tienda-barrio/internal/repository/product"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to the catalog CSV")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := config.FromEnv()
	if err != nil {
		bootLogger := logging.New(logging.Options{Service: "importer"})
		bootLogger.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(logging.Options{Service: "importer", Level: logging.ParseLevel(cfg.LogLevel), Format: cfg.LogFormat})
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString, 2)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open file")
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, productrepo.NewPostgres(pool, logger), categoryrepo.NewPostgres(pool))

	start := time.Now()
	res, err := imp.Run(ctx)
	if err != nil {
		logger.Fatal().Err(err).Int("products_before_failure", res.Products).Msg("import failed")
	}

	// Drop cached listings so a running API serves the imported catalog.
	if cfg.RedisURL != "" {
		if client, err := cache.Connect(ctx, cfg.RedisURL); err != nil {
			logger.Warn().Err(err).Msg("connect redis for cache invalidation")
		} else {
			if err := cache.NewRedisCache(client, cfg.CatalogCacheTTL, nil).Invalidate(ctx); err != nil {
				logger.Warn().Err(err).Msg("invalidate catalog cache")
			}
			client.Close()
		}
	}

	fmt.Printf("Imported %d products (%d variants, %d new categories) in %s\n",
		res.Products, res.Variants, res.Categories, time.Since(start).Truncate(time.Millisecond))
}
