package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tienda-barrio/internal/cart"
	"tienda-barrio/internal/catalog"
	"tienda-barrio/internal/checkout"
	"tienda-barrio/internal/config"
	"tienda-barrio/internal/hours"
	"tienda-barrio/internal/logging"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.StorefrontFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := logging.New(logging.Options{
		Service: "storefront",
		Level:   logging.ParseLevel(cfg.LogLevel),
		Format:  cfg.LogFormat,
		Output:  os.Stderr,
	})

	dir := cfg.CartDir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			logger.Fatal().Err(err).Msg("resolve config dir")
		}
		dir = filepath.Join(base, "tienda-barrio")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var provider cart.Provider
	provider.Init(ctx, cart.NewFileStorage(dir), logger)

	loc := cfg.Location()
	client := catalog.NewClient(cfg.APIURL, cfg.APITimeout)
	a := &app{
		out:        os.Stdout,
		provider:   &provider,
		fetcher:    catalog.NewFetcher(client, logger),
		categories: client,
		gate:       hours.Gate{ClosingHour: cfg.ClosingHour, WarnWithin: cfg.WarnWithin()},
		now:        func() time.Time { return time.Now().In(loc) },
		launcher:   checkout.SystemLauncher{GOOS: runtime.GOOS},
		number:     cfg.WhatsAppNumber,
		logger:     logger,
	}
	if err := a.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
