// Package api implements app.Runner for the referral ledger API server.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apphttp "github.com/angelcrypto/referral-ledger/pkg/app/http"
	"github.com/angelcrypto/referral-ledger/pkg/auth"
	"github.com/angelcrypto/referral-ledger/pkg/config"
	"github.com/angelcrypto/referral-ledger/pkg/ledgerstore"
	"github.com/angelcrypto/referral-ledger/pkg/pgutil"
	reconcilerpkg "github.com/angelcrypto/referral-ledger/pkg/reconciler"
	referralservice "github.com/angelcrypto/referral-ledger/pkg/referral/service"
	"github.com/angelcrypto/referral-ledger/pkg/userstore"
)

const defaultRequestTimeout = 60

// Server holds cfg to init the api server.
type Server struct {
	cfg *config.Config
}

// NewServer initializes new api server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("api server config is nil")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting referral ledger API server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() { _ = db.Close() }()

	logger.Info("Connected to database",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database),
	)

	userStore := userstore.NewStore(db)
	ledgerStore := ledgerstore.NewStore(db)

	ledgerService := referralservice.NewService(
		userStore,
		ledgerStore,
		cfg.Referral.RewardTable(),
		cfg.Referral.InviteBaseURL,
		cfg.Referral.StoreTimeout,
		logger,
	)
	loggedService := referralservice.NewLog(ledgerService, logger)

	stopSettlement := s.startPeriodicSettlement(ledgerService, logger)
	// Safety net; the explicit call after ServeAndWait handles the normal path.
	defer stopSettlement()

	router := s.setupRouter(loggedService, logger)

	err = apphttp.ServeAndWait(ctx, router, logger, &cfg.Server)

	// Stop background work before the deferred DB close kicks in.
	stopSettlement()

	return err
}

func (s *Server) startPeriodicSettlement(
	settler reconcilerpkg.Settler,
	logger *zap.Logger,
) func() {
	if s.cfg.Reconciliation.Interval <= 0 {
		return func() {}
	}

	rec := reconcilerpkg.New(settler, s.cfg.Reconciliation.BatchSize, logger)
	rec.Start(s.cfg.Reconciliation.Interval)

	// Return stopper for deterministic shutdown ordering.
	return func() { rec.Stop() }
}

func (s *Server) setupRouter(
	ledgerService referralservice.Service,
	logger *zap.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Second * defaultRequestTimeout))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if s.cfg.Monitoring.Enabled {
		r.Handle("/metrics", promhttp.Handler())
		logger.Info("Metrics enabled", zap.String("path", "/metrics"))
	}

	validator := auth.NewJWTValidator(s.cfg.Auth.AdminJWTSecret, s.cfg.Auth.Issuer)
	if validator.IsConfigured() {
		logger.Info("Admin JWT auth enabled for diagnostics endpoints")
	} else {
		logger.Warn("Admin JWT auth not configured; diagnostics endpoints are open")
	}

	referralservice.RegisterRoutes(r, ledgerService, logger, validator.Middleware)

	return r
}
