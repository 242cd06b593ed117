package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"paycore/internal/domain/audit"
	"paycore/internal/domain/auth"
	"paycore/internal/domain/cycle"
	"paycore/internal/domain/disbursement"
	"paycore/internal/domain/payroll"
	"paycore/internal/domain/salary"
	"paycore/internal/domain/statutory"
	"paycore/internal/domain/tax"
	"paycore/internal/platform/config"
	"paycore/internal/platform/crypto"
	"paycore/internal/platform/db"
	"paycore/internal/platform/documents"
	"paycore/internal/platform/jobs"
	"paycore/internal/platform/metrics"
	"paycore/internal/platform/notify"
	"paycore/internal/platform/payrail"
	"paycore/internal/transport/http/api"
	audithandler "paycore/internal/transport/http/handlers/audit"
	cyclehandler "paycore/internal/transport/http/handlers/cycle"
	disbursementhandler "paycore/internal/transport/http/handlers/disbursement"
	jobshandler "paycore/internal/transport/http/handlers/jobs"
	payrollhandler "paycore/internal/transport/http/handlers/payroll"
	salaryhandler "paycore/internal/transport/http/handlers/salary"
	taxhandler "paycore/internal/transport/http/handlers/tax"
	"paycore/internal/transport/http/middleware"
)

// PayrailActor is recorded on transitions reported by the payment rail.
const PayrailActor = "system:payrail"

type App struct {
	Config        config.Config
	DB            *pgxpool.Pool
	Router        http.Handler
	Metrics       *metrics.Collector
	Payrail       *payrail.Simulator
	Jobs          *jobs.Service
	Disbursements *disbursement.Service

	cancel      context.CancelFunc
	closeNotify func() error
}

// New wires stores, services and routes. Background workers start here and
// stop on Close.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	master, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	bankKey, err := master.Derive(crypto.PurposeBankAccounts)
	if err != nil {
		return nil, err
	}
	docKey, err := master.Derive(crypto.PurposeDocuments)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Metrics: metrics.New()}
	var st stores
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		st = memoryStores()
	default:
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		app.DB = pool
		if cfg.RunMigrations {
			if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrations: %w", err)
			}
		}
		st = postgresStores(pool, bankKey)
	}
	if cfg.RunSeed {
		if err := seedDemo(ctx, st, time.Now().UTC()); err != nil {
			app.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	recorder := audit.NewRecorder(st.Audit, nil)
	calc := statutory.NewCalculator(statutoryConfig(cfg))
	docs := documents.New(cfg.DocumentsDir, docKey)

	salarySvc := salary.NewService(st.Salary, calc, recorder, nil)
	taxSvc := tax.NewService(st.Tax, recorder, nil)
	payrollSvc := payroll.NewService(payroll.Deps{
		Store:          st.Payrolls,
		Employees:      st.Employees,
		Structures:     salarySvc,
		Attendance:     st.Attendance,
		Tax:            taxSvc,
		Documents:      docs,
		Calculator:     calc,
		Audit:          recorder,
		ApprovalLevels: cfg.PayrollApprovalLevels,
	})
	cycleSvc := cycle.NewService(cycle.Deps{
		Store:          st.Cycles,
		Roster:         st.Employees,
		Payrolls:       payrollSvc,
		Audit:          recorder,
		Observer:       app.Metrics,
		ApprovalLevels: cfg.CycleApprovalLevels,
		Concurrency:    cfg.CycleConcurrency,
	})

	notifier, closeNotify := notify.New(cfg)
	app.closeNotify = closeNotify
	app.Payrail = payrail.NewSimulator(cfg.PayrailFailureRate, cfg.PayrailSettleDelay, uint64(time.Now().UnixNano()))
	app.Disbursements = disbursement.NewService(disbursement.Deps{
		Store:        st.Disbursements,
		Payrolls:     payrollSvc,
		Employees:    st.Employees,
		Rail:         app.Payrail,
		Notifier:     notifier,
		Audit:        recorder,
		Observer:     app.Metrics,
		MaxRetries:   cfg.DisbursementMaxRetries,
		RetryBackoff: cfg.DisbursementRetryBackoff,
		Concurrency:  cfg.BatchConcurrency,
	})
	app.Payrail.OnSettle(func(ctx context.Context, id string, up disbursement.StatusUpdate) error {
		_, err := app.Disbursements.UpdatePaymentStatus(ctx, id, up, PayrailActor)
		return err
	})

	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	app.cancel = cancel
	app.Jobs = jobs.New(st.Runs, app.Disbursements, cfg.RetrySweepInterval)
	app.Jobs.Start(bg)

	perms := auth.StaticPermissions{}
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(app.Metrics))
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if app.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := app.DB.Ping(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.MoneyMovementRateLimit(cfg.RateLimitPerMinute, time.Minute))

		r.With(middleware.RequirePermission(auth.PermAuditRead, perms)).Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, app.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})

		salaryhandler.NewHandler(salarySvc, perms).RegisterRoutes(r)
		taxhandler.NewHandler(taxSvc, st.Employees, docs, perms).RegisterRoutes(r)
		payrollhandler.NewHandler(payrollSvc, docs, perms).RegisterRoutes(r)
		cyclehandler.NewHandler(cycleSvc, perms).RegisterRoutes(r)
		disbursementhandler.NewHandler(app.Disbursements, perms, st.Idempotency).RegisterRoutes(r)
		jobshandler.NewHandler(app.Jobs, perms).RegisterRoutes(r)
		audithandler.NewHandler(recorder, perms).RegisterRoutes(r)
	})

	app.Router = router
	return app, nil
}

// Close stops background work, lets in-flight settlements land and releases
// connections.
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.Payrail != nil {
		a.Payrail.Wait()
	}
	if a.closeNotify != nil {
		if err := a.closeNotify(); err != nil {
			slog.Warn("notifier close failed", "err", err)
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// statutoryConfig overlays the configured rates on the statutory defaults.
// Zero values keep the default.
func statutoryConfig(cfg config.Config) statutory.Config {
	sc := statutory.DefaultConfig()
	if !cfg.PFRate.IsZero() {
		sc.PFRate = cfg.PFRate
	}
	if cfg.PFWageCeiling > 0 {
		sc.PFWageCeiling = cfg.PFWageCeiling
	}
	if cfg.ESIGrossCeiling > 0 {
		sc.ESIGrossCeiling = cfg.ESIGrossCeiling
	}
	if !cfg.ESIEmployeeRate.IsZero() {
		sc.ESIEmployeeRate = cfg.ESIEmployeeRate
	}
	if !cfg.ESIEmployerRate.IsZero() {
		sc.ESIEmployerRate = cfg.ESIEmployerRate
	}
	if cfg.PTDefaultState != "" {
		sc.DefaultState = cfg.PTDefaultState
	}
	return sc
}

func Run() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutdown failed", "err", err)
		}
	}()

	slog.Info("payroll server listening", "addr", cfg.Addr, "storage", cfg.StorageDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "err", err)
	}
}
