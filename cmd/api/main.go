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
	"github.com/jhoicas/inventario-conciliacion/internal/application/inventory"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/repository"
	"github.com/jhoicas/inventario-conciliacion/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-conciliacion/internal/infrastructure/metrics"
	"github.com/jhoicas/inventario-conciliacion/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/inventario-conciliacion/internal/interfaces/http"
	"github.com/jhoicas/inventario-conciliacion/pkg/config"
	"github.com/jhoicas/inventario-conciliacion/pkg/logger"
)

// storage puertos que dependen del driver elegido.
type storage struct {
	txRunner  inventory.TxRunner
	catalog   repository.CatalogRepository
	locations repository.ActorLocationRepository
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer store.close()

	prom := metrics.New("inventario")
	ledgerUC := inventory.NewLedgerUseCase(store.txRunner, store.catalog, prom, log.Component("ledger"))
	transferUC := inventory.NewTransferUseCase(store.txRunner, store.catalog, prom, log.Component("transfers"))
	correctionUC := inventory.NewCorrectionUseCase(store.txRunner, store.catalog, prom, log.Component("corrections"))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Inventario y Conciliación API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		LedgerUC:     ledgerUC,
		TransferUC:   transferUC,
		CorrectionUC: correctionUC,
		Locations:    store.locations,
		Metrics:      prom,
		MetricsPage:  prom.Handler(),
		JWTSecret:    cfg.JWT.Secret,
		JWTIssuer:    cfg.JWT.Issuer,
		OpTimeout:    cfg.Ledger.OpTimeout(),
		ServiceName:  cfg.App.Name,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		s := memory.NewStore(cfg.Ledger.TxRetries, log.Component("memory"))
		if err := seedDemo(s); err != nil {
			return nil, err
		}
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		return &storage{txRunner: s, catalog: s, locations: s, close: func() {}}, nil
	}

	if cfg.DB.Migrate {
		if err := postgres.Migrate(cfg.DB.ConnectionString(), log.Component("migrate")); err != nil {
			return nil, err
		}
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	return &storage{
		txRunner:  postgres.NewTxRunner(pool),
		catalog:   postgres.NewCatalogRepository(pool),
		locations: postgres.NewActorLocationRepository(pool),
		close:     pool.Close,
	}, nil
}
