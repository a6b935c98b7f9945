package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appfees "github.com/shulepay/backend/internal/application/fees"
	appnotification "github.com/shulepay/backend/internal/application/notification"
	domainfees "github.com/shulepay/backend/internal/domain/fees"
	domainnotification "github.com/shulepay/backend/internal/domain/notification"
	"github.com/shulepay/backend/internal/domain/shared"
	"github.com/shulepay/backend/internal/infrastructure/auth"
	"github.com/shulepay/backend/internal/infrastructure/cache"
	"github.com/shulepay/backend/internal/infrastructure/config"
	"github.com/shulepay/backend/internal/infrastructure/event"
	"github.com/shulepay/backend/internal/infrastructure/gateway/mpesa"
	"github.com/shulepay/backend/internal/infrastructure/logger"
	"github.com/shulepay/backend/internal/infrastructure/notify"
	"github.com/shulepay/backend/internal/infrastructure/persistence"
	"github.com/shulepay/backend/internal/infrastructure/scheduler"
	"github.com/shulepay/backend/internal/interfaces/http/handler"
	"github.com/shulepay/backend/internal/interfaces/http/router"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	zl, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = zl.Sync() }()

	zl.Info("starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version))

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database,
		logger.NewGormLogger(zl, logger.MapGormLogLevel(cfg.Log.Level)))
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	// Repositories
	termRepo := persistence.NewGormTermRepository(db.DB)
	structureRepo := persistence.NewGormFeeStructureRepository(db.DB)
	overrideRepo := persistence.NewGormFeeOverrideRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	arrearsRepo := persistence.NewGormArrearsRepository(db.DB)
	txnRepo := persistence.NewGormMobileMoneyTransactionRepository(db.DB)
	studentRepo := persistence.NewGormStudentRepository(db.DB)
	notificationRepo := persistence.NewGormNotificationRepository(db.DB)
	txManager := persistence.NewGormTxManager(db.DB)

	// Event bus
	bus := event.NewInMemoryEventBus(zl)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := bus.Start(ctx); err != nil {
		zl.Fatal("failed to start event bus", zap.Error(err))
	}

	// Idempotency store: redis when reachable, in-memory otherwise
	var idempotency shared.IdempotencyStore
	redisStore, err := cache.NewRedisIdempotencyStore(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		zl.Warn("redis unavailable, using in-memory idempotency store", zap.Error(err))
		memStore := cache.NewInMemoryIdempotencyStore()
		defer func() { _ = memStore.Close() }()
		idempotency = memStore
	} else {
		defer func() { _ = redisStore.Close() }()
		idempotency = redisStore
	}

	matcher, err := domainfees.NewInvoiceMatcher(decimal.NewFromFloat(cfg.Matching.Tolerance))
	if err != nil {
		zl.Fatal("invalid matching tolerance", zap.Error(err))
	}

	// Application services
	catalogService := appfees.NewCatalogService(termRepo, structureRepo, overrideRepo, studentRepo, zl)
	generationService := appfees.NewInvoiceGenerationService(
		termRepo, structureRepo, overrideRepo, invoiceRepo, studentRepo, bus, zl)
	paymentService := appfees.NewPaymentService(invoiceRepo, paymentRepo, arrearsRepo, txManager, bus, zl)
	arrearsService := appfees.NewArrearsService(invoiceRepo, arrearsRepo, txManager, bus, zl)
	mobileMoneyService := appfees.NewMobileMoneyService(
		txnRepo, studentRepo, invoiceRepo, paymentService, matcher, idempotency, bus, zl)

	// Notification dispatch: SMS when configured, log sink otherwise
	var smsSender domainnotification.Sender
	if cfg.Notify.SMSEnabled {
		smsSender, err = notify.NewSMSSender(notify.SMSConfig{
			BaseURL:     cfg.Notify.SMSBaseURL,
			APIKey:      cfg.Notify.SMSAPIKey,
			SenderID:    cfg.Notify.SMSSenderID,
			SendTimeout: cfg.Notify.SendTimeout,
		}, zl)
		if err != nil {
			zl.Fatal("failed to configure SMS sender", zap.Error(err))
		}
	} else {
		smsSender = notify.NewLogSender(domainnotification.ChannelSMS, zl)
	}
	dispatcher := appnotification.NewDispatcher(notificationRepo, studentRepo,
		[]domainnotification.Sender{smsSender}, zl)
	bus.Subscribe(
		event.NewIdempotentHandler(dispatcher, idempotency, shared.DefaultIdempotencyConfig(), zl),
		dispatcher.EventTypes()...)

	// Daraja client, only when credentials are configured
	var mpesaClient *mpesa.Client
	if cfg.Mpesa.ConsumerKey != "" {
		mpesaClient, err = mpesa.NewClient(mpesa.Config{
			BaseURL:        cfg.Mpesa.BaseURL,
			ConsumerKey:    cfg.Mpesa.ConsumerKey,
			ConsumerSecret: cfg.Mpesa.ConsumerSecret,
			ShortCode:      cfg.Mpesa.ShortCode,
			Passkey:        cfg.Mpesa.Passkey,
			CallbackURL:    cfg.Mpesa.CallbackURL,
			RequestTimeout: cfg.Mpesa.RequestTimeout,
		}, zl)
		if err != nil {
			zl.Fatal("failed to configure mpesa client", zap.Error(err))
		}
	} else {
		zl.Warn("mpesa credentials not configured, STK push disabled")
	}

	jwtService := auth.NewJWTService(cfg.JWT)

	engine := router.New(cfg, jwtService, router.Handlers{
		Health:  handler.NewHealthHandler(db, version, zl),
		Catalog: handler.NewCatalogHandler(catalogService, zl),
		Invoice: handler.NewInvoiceHandler(generationService, paymentService, zl),
		Arrears: handler.NewArrearsHandler(arrearsService, zl),
		Mpesa: handler.NewMpesaHandler(
			mobileMoneyService, paymentService, mpesaClient, cfg.Mpesa.CallbackSecret, zl),
	}, zl)

	// Daily arrears sweep
	arrearsScheduler := scheduler.NewArrearsScheduler(
		scheduler.Config{
			Enabled:       cfg.Scheduler.Enabled,
			CheckInterval: cfg.Scheduler.CheckInterval,
			JobTimeout:    cfg.Scheduler.JobTimeout,
		},
		arrearsService,
		scheduler.NewGormSchoolSource(db.DB),
		scheduler.NewJobRepository(db.DB),
		zl,
	)
	if err := arrearsScheduler.Start(ctx); err != nil {
		zl.Fatal("failed to start arrears scheduler", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		zl.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("http server shutdown failed", zap.Error(err))
	}
	if err := arrearsScheduler.Stop(shutdownCtx); err != nil {
		zl.Error("scheduler shutdown failed", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		zl.Error("event bus shutdown failed", zap.Error(err))
	}

	zl.Info("server stopped")
	os.Exit(0)
}
