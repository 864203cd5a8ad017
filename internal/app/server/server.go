package server

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"hrpay/internal/domain/attendance"
	"hrpay/internal/domain/audit"
	"hrpay/internal/domain/directory"
	"hrpay/internal/domain/loans"
	"hrpay/internal/domain/notifications"
	"hrpay/internal/domain/payroll"
	"hrpay/internal/platform/config"
	"hrpay/internal/platform/crypto"
	"hrpay/internal/platform/db"
	"hrpay/internal/platform/email"
	"hrpay/internal/platform/jobs"
	"hrpay/internal/platform/logger"
	"hrpay/internal/platform/metrics"
	"hrpay/internal/platform/rules"
	"hrpay/internal/platform/seed"
	"hrpay/internal/transport/http/api"
	payrollhandler "hrpay/internal/transport/http/handlers/payroll"
	"hrpay/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	Logger  *zap.Logger
	Router  http.Handler
	Payroll *payroll.Service

	pool    *pgxpool.Pool
	jobs    *jobs.Queue
	metrics *metrics.Collector
	closers []func() error
}

// Run loads configuration, serves until SIGINT or SIGTERM, then drains.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, OutputPath: cfg.LogOutput})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	app, err := New(ctx, cfg, log)
	if err != nil {
		stop()
		return err
	}
	defer func() {
		stop()
		app.Close()
	}()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("payroll server listening", zap.String("addr", cfg.Addr), zap.String("env", cfg.Environment))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// New wires the payroll service and its collaborators. Background workers
// stop when ctx is done.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	app := &App{Config: cfg, Logger: log, metrics: metrics.New()}

	set, err := rules.Load(cfg.RulesFile)
	if err != nil {
		return nil, err
	}
	ruleSet := set.Rules
	if cfg.DefaultPayFrequency != "" {
		ruleSet.DefaultFrequency = payroll.Frequency(cfg.DefaultPayFrequency)
	}
	if cfg.SemiMonthlyDeductionPolicy != "" {
		ruleSet.SemiMonthlyPolicy = payroll.SemiMonthlyPolicy(cfg.SemiMonthlyDeductionPolicy)
	}
	log.Info("rule set loaded",
		zap.String("ruleSetVersion", ruleSet.RuleSetVersion),
		zap.String("deductionTableVersion", ruleSet.Deductions.Version),
		zap.String("holidayCalendarVersion", ruleSet.HolidayCalendarVersion),
		zap.String("semiMonthlyPolicy", string(ruleSet.SemiMonthlyPolicy)),
	)

	sealer, err := crypto.New(cfg.SignatureSealKey)
	if err != nil {
		return nil, err
	}
	if !sealer.Configured() {
		log.Warn("SIGNATURE_SEAL_KEY not set; signature artifacts are stored unsealed")
	}

	dir := directory.NewStore()
	att := attendance.NewStore()
	att.SetCalendar(ruleSet.HolidayCalendarVersion, set.Holidays)
	book := loans.NewBook()
	summary, err := seed.LoadFile(cfg.SeedFile, seed.Targets{Directory: dir, Attendance: att, Loans: book})
	if err != nil {
		return nil, err
	}
	log.Info("seed applied",
		zap.Int("employees", summary.Employees),
		zap.Int("loans", summary.Loans),
		zap.Int("attendance", summary.Attendance),
	)

	var auditStore audit.Store = audit.NewMemoryStore()
	var idempotency middleware.IdempotencyStore = middleware.NewMemoryIdempotencyStore()
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		app.pool = pool
		if cfg.RunMigrations {
			applied, err := db.Migrate(ctx, pool, db.Migrations())
			if err != nil {
				pool.Close()
				return nil, err
			}
			log.Info("migrations applied", zap.Strings("versions", applied))
		}
		auditStore = audit.NewPgStore(pool)
		idempotency = middleware.NewPgIdempotencyStore(pool)
	}
	auditSvc := audit.New(auditStore, log.Named("audit"))

	app.jobs = jobs.New(log, cfg.JobQueueSize)
	app.jobs.Start(ctx, cfg.JobWorkers)

	inbox := notifications.NewInbox()
	outbound := notifications.Multi{notifications.NewLogDispatcher(log)}
	if brokers := notifications.ParseBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		kafka := notifications.NewKafkaDispatcher(notifications.NewKafkaWriter(brokers), cfg.KafkaTopic)
		outbound = append(outbound, kafka)
		app.closers = append(app.closers, kafka.Close)
		log.Info("kafka notifications enabled", zap.Strings("brokers", brokers), zap.String("topic", cfg.KafkaTopic))
	}
	if email.Enabled(cfg) {
		outbound = append(outbound, notifications.NewEmailDispatcher(email.New(cfg), dir, cfg.EmailFrom))
	}
	notifier := notifications.New(notifications.Multi{inbox, notifications.NewAsync(outbound, app.jobs)}, log.Named("notifications"))

	app.Payroll = payroll.NewService(payroll.NewStore(), ruleSet, dir, att, book, payroll.Options{
		Notifier: notifier,
		Auditor:  auditSvc,
		Sealer:   sealer,
		Counter:  app.metrics,
		Logger:   log.Named("payroll"),
	})

	handler := payrollhandler.NewHandler(app.Payroll, inbox, auditSvc, cfg.PayslipDir, log)
	app.Router = app.routes(handler, idempotency)
	return app, nil
}

func (a *App) routes(handler *payrollhandler.Handler, idempotency middleware.IdempotencyStore) http.Handler {
	cfg := a.Config
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer(a.Logger))
	router.Use(middleware.Logger(a.Logger, a.metrics))
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret, a.Logger))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if a.pool != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := a.pool.Ping(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			snapshot := a.metrics.Snapshot()
			for k, v := range a.jobs.Stats() {
				snapshot[k] = v
			}
			api.Success(w, snapshot, middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute, middleware.WithLogger(a.Logger)))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute, middleware.WithLogger(a.Logger)))
		r.Use(middleware.Idempotency(idempotency))
		handler.RegisterRoutes(r)
	})
	return router
}

// Close releases outbound connections and waits for queued jobs. The
// caller cancels the context passed to New first.
func (a *App) Close() {
	if a.jobs != nil {
		a.jobs.Wait()
	}
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.Logger.Warn("close failed", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
