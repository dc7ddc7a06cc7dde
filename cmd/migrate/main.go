package main

import (
	"context"
	"flag"
	"time"

	"github.com/jhoicas/mercado-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/mercado-ledger/internal/infrastructure/seed"
	"github.com/jhoicas/mercado-ledger/pkg/config"
	"github.com/jhoicas/mercado-ledger/pkg/logger"
)

func main() {
	withSeed := flag.Bool("seed", false, "cargar el vendedor de demostración después de migrar")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "migrate"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, log); err != nil {
		log.Fatal().Err(err).Msg("migración")
	}
	log.Info().Msg("esquema al día")

	if *withSeed {
		if err := seed.Demo(ctx, postgres.NewTxRunner(pool, cfg.Ledger)); err != nil {
			log.Fatal().Err(err).Msg("seed de demostración")
		}
		log.Info().Str("vendor_id", seed.DemoVendorID).Msg("vendedor de demostración cargado")
	}
}
