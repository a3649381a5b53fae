// Package remittance implements app.Runner for the remittance ledger API
// server process: a thin wrapper holding the loaded config whose Run()
// does all the wiring and blocks on apphttp.ServeAndWait.
package remittance

import (
	"context"
	"errors"
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

	"github.com/chainsafe/remittance-ledger/internal/metrics"
	apphttp "github.com/chainsafe/remittance-ledger/pkg/app/http"
	"github.com/chainsafe/remittance-ledger/pkg/auth"
	"github.com/chainsafe/remittance-ledger/pkg/authz"
	"github.com/chainsafe/remittance-ledger/pkg/config"
	"github.com/chainsafe/remittance-ledger/pkg/ledger"
	"github.com/chainsafe/remittance-ledger/pkg/nonce"
	"github.com/chainsafe/remittance-ledger/pkg/oracle"
	"github.com/chainsafe/remittance-ledger/pkg/pgutil"
	"github.com/chainsafe/remittance-ledger/pkg/registry"
	"github.com/chainsafe/remittance-ledger/pkg/service"
	"github.com/chainsafe/remittance-ledger/pkg/snapshot"
	"github.com/chainsafe/remittance-ledger/pkg/transport/httpapi"
)

const defaultRequestTimeout = 60 * time.Second

// Server holds the loaded config needed to start the remittance ledger.
type Server struct {
	cfg   *config.Config
	owner string
}

// NewServer constructs a Server. owner is the principal allowed to call
// the owner-only operations (set_remittance_canister, subscribe_to_dc,
// subscribe_to_pdc).
func NewServer(cfg *config.Config, owner string) *Server {
	return &Server{cfg: cfg, owner: owner}
}

// Run wires every component (oracle, nonce source, ledger, registries,
// authorizer, snapshot store) and serves HTTP until the process receives
// SIGINT/SIGTERM, saving a final snapshot before it returns.
func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("remittance server config is nil")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting remittance ledger",
		zap.String("environment", string(cfg.Remittance.Environment)),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect snapshot database: %w", err)
	}
	defer func() { _ = db.Close() }()

	store := snapshot.NewStore(db)

	l := ledger.New()
	subs := registry.New()
	dcs := registry.NewDCRegistry()

	restoreStart := time.Now()
	if err := store.Restore(ctx, l, subs, dcs); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	metrics.SnapshotDuration.WithLabelValues("restore").Observe(time.Since(restoreStart).Seconds())
	logger.Info("Restored ledger snapshot")

	seed := os.Getenv(cfg.Remittance.SeedEnv)
	if seed == "" {
		return fmt.Errorf("oracle seed not set: env=%s", cfg.Remittance.SeedEnv)
	}
	localOracle, err := oracle.NewLocalOracle([]byte(seed))
	if err != nil {
		return fmt.Errorf("create signing oracle: %w", err)
	}

	nonces, err := nonce.New()
	if err != nil {
		return fmt.Errorf("create nonce source: %w", err)
	}

	az := authz.New(l, localOracle, nonces, oracle.KeyID(cfg.Remittance.KeyID()), cfg.Remittance.DerivationPath)
	svc := service.New(l, subs, dcs, az, service.UnixNanoClock, s.owner, logger)

	var jwtValidator *auth.JWTValidator
	if cfg.JWT.JWKSURL != "" {
		jwtValidator = auth.NewJWTValidator(cfg.JWT.JWKSURL, cfg.JWT.Issuer, cfg.JWT.Audience)
	}

	var hmacKey string
	if cfg.JWT.UsesHMAC() {
		hmacKey = os.Getenv(cfg.JWT.HMACKeyEnv)
		if hmacKey == "" {
			return fmt.Errorf("jwt hmac secret not set: env=%s", cfg.JWT.HMACKeyEnv)
		}
	}

	if cfg.Monitoring.Enabled {
		go serveMetrics(ctx, cfg.Monitoring.MetricsPort, logger)
	}

	router := s.setupRouter(svc, jwtValidator, hmacKey, logger)

	serveErr := apphttp.ServeAndWait(ctx, router, logger, &cfg.Server)

	saveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	saveStart := time.Now()
	if err := store.Save(saveCtx, l, subs, dcs); err != nil {
		logger.Error("Failed to save final snapshot", zap.Error(err))
	} else {
		metrics.SnapshotDuration.WithLabelValues("save").Observe(time.Since(saveStart).Seconds())
		logger.Info("Saved ledger snapshot")
	}

	return serveErr
}

func (s *Server) setupRouter(svc *service.Service, jwtValidator *auth.JWTValidator, hmacKey string, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultRequestTimeout))
	r.Use(httpapi.RequestIDMiddleware)

	r.Get("/health", httpapi.Health)

	httpapi.RegisterRoutes(r, svc, jwtValidator, hmacKey, logger)

	return r
}

// serveMetrics exposes the Prometheus registry on its own port so the
// scrape surface stays off the public API listener. Errors are logged,
// not fatal: losing metrics must not take the ledger down.
func serveMetrics(ctx context.Context, port int, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Metrics server listening", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server error", zap.Error(err))
	}
}
