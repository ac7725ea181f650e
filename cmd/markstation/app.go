package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agamariel/markstation/internal/auth"
	"github.com/agamariel/markstation/internal/config"
	"github.com/agamariel/markstation/internal/endpoints"
	"github.com/agamariel/markstation/internal/fiscal"
	"github.com/agamariel/markstation/internal/handlers"
	"github.com/agamariel/markstation/internal/logger"
	"github.com/agamariel/markstation/internal/migrations"
	"github.com/agamariel/markstation/internal/registry"
	"github.com/agamariel/markstation/internal/scan"
	"github.com/agamariel/markstation/internal/services"
	"github.com/agamariel/markstation/internal/station"
	"github.com/agamariel/markstation/internal/storage"
)

// App структура для управления станцией и её зависимостями.
type App struct {
	cfg    *config.Config
	logger *zap.SugaredLogger
	db     *sql.DB
	echo   *echo.Echo

	station   *station.Station
	pool      *endpoints.Pool
	refresher *endpoints.Refresher
	scanner   *scan.Reader
	port      *scan.Port

	// Handlers
	stationHandler  *handlers.StationHandler
	endpointHandler *handlers.EndpointHandler
	operatorHandler *handlers.OperatorHandler
}

// NewApp создаёт и инициализирует станцию.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*App, error) {
	app := &App{
		cfg:    cfg,
		logger: logger,
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initDependencies(ctx); err != nil {
		app.db.Close()
		return nil, fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	app.initServer()

	return app, nil
}

// initDatabase открывает базу заказов и выполняет миграции.
func (app *App) initDatabase(ctx context.Context) error {
	if app.cfg.DatabaseURI == "" {
		return fmt.Errorf("DATABASE_URI is required")
	}

	db, err := sql.Open("pgx", app.cfg.DatabaseURI)
	if err != nil {
		return fmt.Errorf("unable to open database connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return fmt.Errorf("unable to ping database: %w", err)
	}

	app.logger.Infow("running database migrations")
	migrations.SetLogger(app.logger)
	if err := migrations.Run(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	version, err := migrations.Version(db)
	if err != nil {
		db.Close()
		return err
	}
	app.logger.Infow("database ready", "migration_version", version)

	app.db = db
	return nil
}

// initDependencies собирает станцию: хранилища, реестр, кассу, сканер и handlers.
func (app *App) initDependencies(ctx context.Context) error {
	cfg := app.cfg

	// Storage layer
	orderStorage := storage.NewPostgresOrderStorage(app.db)
	operatorStorage := storage.NewPostgresOperatorStorage(app.db)

	// Реестр маркировки
	if cfg.RegistryAPIKey == "" {
		app.logger.Warnw("REGISTRY_API_KEY is not configured, mark codes will get unconfirmed verdicts")
	}
	app.pool = endpoints.NewPool(cfg.RegistryEndpoints, endpoints.NewHTTPProber(cfg.RegistryAPIKey), cfg.ProbeTimeout, app.logger)
	validator := registry.NewClient(app.pool, cfg.RegistryAPIKey, cfg.ValidateTimeout, app.logger)

	// Касса
	if cfg.FiscalAPIURL == "" {
		app.logger.Warnw("FISCAL_API_URL is not configured, receipts will be rejected")
	}
	submitter := fiscal.NewHTTPSubmitter(cfg.FiscalAPIURL, cfg.FiscalToken, 30*time.Second)
	gate := fiscal.NewGate(fiscal.Config{
		TaxPercent:    cfg.FiscalTaxPercent,
		TaxSystem:     cfg.FiscalTaxSystem,
		PaymentMethod: cfg.FiscalPaymentMethod,
		Cashier:       cfg.FiscalCashier,
	}, submitter, app.logger)

	app.station = station.New(orderStorage, validator, gate, 5*time.Second, app.logger)
	app.refresher = endpoints.NewRefresher(app.pool, app.station.OnEndpointsRefreshed, app.logger)

	// Сканер
	if cfg.ScannerPort != "" {
		port, err := scan.OpenPort(cfg.ScannerPort, cfg.ScannerBaudRate, scan.PollInterval)
		if err != nil {
			ports, _ := scan.Ports()
			return fmt.Errorf("failed to open scanner port (available: %v): %w", ports, err)
		}
		app.port = port
		app.scanner = scan.NewPortReader(port, app.logger)
		app.logger.Infow("scanner port opened", "port", cfg.ScannerPort, "baud", cfg.ScannerBaudRate)
	} else {
		app.scanner = scan.NewReader(os.Stdin, app.logger)
		app.logger.Infow("scanner port is not configured, reading scans from stdin")
	}

	// Операторы
	operatorService := services.NewOperatorService(operatorStorage, cfg.JWTSecret, cfg.TokenExpiration, app.logger)
	if err := operatorService.EnsureOperator(ctx, cfg.OperatorLogin, cfg.OperatorPassword); err != nil {
		return err
	}
	if cfg.JWTSecret == config.DefaultJWTSecret {
		app.logger.Warnw("JWT_SECRET is not configured, using the default secret")
	}

	// Handler layer
	app.stationHandler = handlers.NewStationHandler(app.station)
	app.endpointHandler = handlers.NewEndpointHandler(app.pool, app.refresher)
	app.operatorHandler = handlers.NewOperatorHandler(operatorService, cfg.TokenExpiration)

	return nil
}

// initServer настраивает маршруты интерфейса оператора.
func (app *App) initServer() {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(logger.RequestLogger(app.logger))
	e.Use(middleware.Recover())
	e.Use(middleware.Gzip())

	// Публичные маршруты
	e.POST("/api/operator/login", app.operatorHandler.Login)

	jwt := auth.JWTMiddleware(app.cfg.JWTSecret)
	e.POST("/api/operator/register", app.operatorHandler.Register, jwt)

	protected := e.Group("/api/station")
	protected.Use(jwt, middleware.BodyLimit("4K"))
	protected.GET("/state", app.stationHandler.State)
	protected.POST("/scan", app.stationHandler.Scan)
	protected.POST("/units/:index/select", app.stationHandler.Select)
	protected.POST("/units/:index/waive", app.stationHandler.Waive)
	protected.POST("/decision/confirm", app.stationHandler.Confirm)
	protected.POST("/decision/reject", app.stationHandler.Reject)
	protected.POST("/order/clear", app.stationHandler.Clear)
	protected.POST("/finalize", app.stationHandler.Finalize)
	protected.GET("/endpoints", app.endpointHandler.List)
	protected.POST("/endpoints/refresh", app.endpointHandler.Refresh)

	app.echo = e
}

// Start запускает цикл станции, проверку площадок, сканер и HTTP-сервер.
// Блокируется до отмены ctx или ошибки одного из компонентов.
func (app *App) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.station.Run(gctx)
	})

	app.refresher.Start(gctx)

	if app.port != nil {
		g.Go(func() error {
			if err := app.scanner.Run(gctx, app.station.Enqueue); err != nil {
				return fmt.Errorf("scanner stopped: %w", err)
			}
			return nil
		})
	} else {
		// Чтение stdin не прерывается отменой контекста, поэтому не входит в группу.
		go func() {
			if err := app.scanner.Run(gctx, app.station.Enqueue); err != nil {
				app.logger.Errorw("scanner stopped", "error", err)
			}
		}()
	}

	g.Go(func() error {
		app.logger.Infow("starting server", "address", app.cfg.RunAddress)
		if err := app.echo.Start(app.cfg.RunAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return app.echo.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown освобождает ресурсы станции. Вызывается после завершения Start.
func (app *App) Shutdown(ctx context.Context) error {
	app.logger.Infow("shutting down station")

	var errs []error
	if err := app.echo.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown server: %w", err))
	}
	if app.port != nil {
		if err := app.port.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close scanner port: %w", err))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	app.logger.Infow("station gracefully stopped")
	return nil
}
