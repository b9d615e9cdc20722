package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/altayar/tourism-backend/internal"
	bookingpg "github.com/altayar/tourism-backend/internal/booking/postgres"
	"github.com/altayar/tourism-backend/internal/core/events"
	"github.com/altayar/tourism-backend/internal/ledger"
	ledgerpg "github.com/altayar/tourism-backend/internal/ledger/postgres"
	membershippg "github.com/altayar/tourism-backend/internal/membership/postgres"
	orderpg "github.com/altayar/tourism-backend/internal/order/postgres"
	"github.com/altayar/tourism-backend/internal/payment"
	paymentpg "github.com/altayar/tourism-backend/internal/payment/postgres"
	"github.com/altayar/tourism-backend/internal/paymentgateway"
	"github.com/altayar/tourism-backend/internal/transport"
	"github.com/altayar/tourism-backend/internal/transport/rest"
	"github.com/altayar/tourism-backend/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	GormDB   *gorm.DB
	Router   *chi.Mux
	Logger   *slog.Logger
	EventBus *events.EventBus

	PaymentHandler *payment.Handler
	WebhookHandler *payment.WebhookHandler
	LedgerHandler  *ledger.Handler

	sandbox *paymentgateway.Sandbox
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB,
		deps.PaymentHandler, deps.WebhookHandler, deps.LedgerHandler, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if deps.sandbox != nil {
			deps.sandbox.Shutdown()
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)
	log := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// gorm rides on the same *sql.DB so health checks and repositories share
	// one pool.
	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm over pgx: %w", err)
	}

	eventBus := events.NewEventBus(log)

	deps := &Dependencies{
		Config:   config,
		Logger:   log,
		DB:       db,
		GormDB:   gormDB,
		Router:   chi.NewRouter(),
		EventBus: eventBus,
	}

	wirePayments(deps)
	return deps, nil
}

func wirePayments(deps *Dependencies) {
	cfg := deps.Config.Payment
	log := deps.Logger

	paymentRepo := paymentpg.NewPaymentRepository(deps.GormDB)
	webhookLogRepo := paymentpg.NewWebhookLogRepository(deps.GormDB)
	bookingRepo := bookingpg.NewBookingRepository(deps.GormDB)
	orderRepo := orderpg.NewOrderRepository(deps.GormDB)
	membershipRepo := membershippg.NewMembershipRepository(deps.GormDB)
	ledgerRepo := ledgerpg.NewLedgerRepository(deps.GormDB)
	uow := paymentpg.NewUnitOfWork(deps.GormDB)

	var gateway payment.GatewayClient
	if cfg.Provider == "sandbox" {
		sandbox := paymentgateway.NewSandbox(paymentgateway.SandboxConfig{
			WebhookURL: cfg.WebhookURL,
			VendorKey:  cfg.VendorKey,
		}, log)
		deps.sandbox = sandbox
		gateway = sandbox
	} else {
		gateway = paymentgateway.NewClient(cfg, log)
	}

	verifier := payment.NewSignatureVerifier(cfg.VendorKey)
	dispatcher := payment.NewDispatcher(log)
	processor := payment.NewWebhookProcessor(uow, webhookLogRepo, verifier, dispatcher, deps.EventBus, log)
	paymentService := payment.NewService(paymentRepo, bookingRepo, orderRepo, membershipRepo, gateway, cfg, log)
	ledgerService := ledger.NewService(ledgerRepo, log)

	payment.NewEventHandler(log).RegisterEventHandlers(deps.EventBus)

	baseHandler := transport.NewBaseHandler(log)
	deps.PaymentHandler = payment.NewHandler(baseHandler, paymentService)
	deps.WebhookHandler = payment.NewWebhookHandler(baseHandler, processor)
	deps.LedgerHandler = ledger.NewHandler(baseHandler, ledgerService)
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
