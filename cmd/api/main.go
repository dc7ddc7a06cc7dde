package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/text/language"

	"github.com/jhoicas/mercado-ledger/internal/application/catalog"
	"github.com/jhoicas/mercado-ledger/internal/application/inventory"
	"github.com/jhoicas/mercado-ledger/internal/application/ports"
	"github.com/jhoicas/mercado-ledger/internal/application/session"
	"github.com/jhoicas/mercado-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/mercado-ledger/internal/infrastructure/messaging"
	infrapdf "github.com/jhoicas/mercado-ledger/internal/infrastructure/pdf"
	"github.com/jhoicas/mercado-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/mercado-ledger/internal/infrastructure/seed"
	httpRouter "github.com/jhoicas/mercado-ledger/internal/interfaces/http"
	"github.com/jhoicas/mercado-ledger/pkg/config"
	"github.com/jhoicas/mercado-ledger/pkg/logger"
	"github.com/jhoicas/mercado-ledger/pkg/tracing"
)

// version se fija en el build con -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("version", version).
		Str("store", cfg.DB.Driver).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, cfg.App.Name, version)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar trazas")
	}

	// Store: PostgreSQL en producción, memoria para desarrollo local y demos.
	var txRunner ports.TxRunner
	switch cfg.DB.Driver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		if err := seed.Demo(ctx, store); err != nil {
			log.Fatal().Err(err).Msg("seed en memoria")
		}
		log.Warn().Str("vendor_id", seed.DemoVendorID).Msg("store en memoria: los datos se pierden al reiniciar")
		txRunner = store
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		txRunner = postgres.NewTxRunner(pool, cfg.Ledger)
	}

	ledgerUC := inventory.NewLedgerUseCase(txRunner, log)
	transferUC := inventory.NewTransferUseCase(txRunner, log)
	catalogUC := catalog.NewCreateProductUseCase(txRunner, log)

	// PDF: reporte Z de cierre de caja
	reportGenerator := infrapdf.NewSessionReportGenerator(language.Spanish, "$", time.Local)
	sessionUC := session.NewUseCase(txRunner, reportGenerator, log)

	// Kafka: eventos de venta del POS -> libro de stock
	listenerDone := make(chan struct{})
	if cfg.Kafka.Enabled() {
		listener := messaging.NewSalesListener(messaging.NewReader(cfg.Kafka), ledgerUC, log)
		go func() {
			defer close(listenerDone)
			if err := listener.Run(ctx); err != nil {
				log.Error().Err(err).Msg("consumidor de ventas finalizado")
			}
		}()
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("consumidor de ventas habilitado")
	} else {
		close(listenerDone)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.Observability(log))

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(cfg.HTTP.SwaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.HTTP.SwaggerFile,
			Path:     "docs",
			Title:    "Mercado Ledger API",
		}))
	} else {
		log.Warn().Str("file", cfg.HTTP.SwaggerFile).Msg("swagger deshabilitado: archivo no encontrado")
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		Catalog:     catalogUC,
		Ledger:      ledgerUC,
		Transfers:   transferUC,
		Sessions:    sessionUC,
		JWTSecret:   cfg.JWT.Secret,
		ServiceName: cfg.App.Name,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	select {
	case <-listenerDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("el consumidor de ventas no terminó a tiempo")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado de trazas")
	}

	log.Info().Msg("aplicación detenida")
}
