package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"

	"github.com/2beens/pushups/internal/auth"
	"github.com/2beens/pushups/internal/config"
	"github.com/2beens/pushups/internal/db"
	"github.com/2beens/pushups/internal/geoip"
	"github.com/2beens/pushups/internal/middleware"
	"github.com/2beens/pushups/internal/pushups/days"
	"github.com/2beens/pushups/internal/pushups/entries"
	"github.com/2beens/pushups/internal/quotes"
	"github.com/2beens/pushups/internal/telemetry/metrics"
	"github.com/2beens/pushups/internal/telemetry/tracing"
	"github.com/2beens/pushups/internal/users"
	"github.com/2beens/pushups/pkg"
)

const sessionsCleanupInterval = 8 * time.Hour

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server

	config        *config.Config
	dbPool        *pgxpool.Pool
	geoIp         *geoip.Api
	quotesService *quotes.Service
	normalizer    *days.Normalizer

	redisClient  *redis.Client
	loginChecker *auth.LoginChecker
	authService  *auth.Service

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()

	cancelCleanup context.CancelFunc
}

type NewServerParams struct {
	Config                  *config.Config
	IpInfoAPIKey            string
	PostgresPassword        string
	RedisPassword           string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	normalizer, err := days.NewNormalizer(cfg.DefaultTimezone, time.Now)
	if err != nil {
		return nil, fmt.Errorf("new day normalizer: %w", err)
	}

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		DBUser:         cfg.PostgresUser,
		DBPassword:     params.PostgresPassword,
		SSLMode:        cfg.PostgresSSLMode,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	if cfg.PostgresMigrate {
		if err := db.Migrate(ctx, dbPool, true); err != nil {
			dbPool.Close()
			return nil, fmt.Errorf("migrate db: %w", err)
		}
		log.Debugln("db schema migrated")
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": cfg.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("pushups", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "pushups-backend", rdb)
	if err != nil {
		return nil, err
	}

	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   10 * time.Second,
	}

	ipInfoToken := params.IpInfoAPIKey
	if !cfg.GeoIPEnabled {
		ipInfoToken = ""
	}
	geoIp, err := geoip.NewApi(geoip.ApiParams{
		Token:       ipInfoToken,
		HTTPClient:  tracedHttpClient,
		RedisClient: rdb,
	})
	if err != nil {
		return nil, fmt.Errorf("new geo ip api: %w", err)
	}

	quotesManager, err := quotes.NewManagerFromFile(cfg.QuotesCsvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create quote manager: %w", err)
	}

	return &Server{
		config:        cfg,
		dbPool:        dbPool,
		geoIp:         geoIp,
		quotesService: quotes.NewService(quotesManager, tracedHttpClient, cfg.QuotesApiURL),
		normalizer:    normalizer,

		redisClient:  rdb,
		authService:  auth.NewAuthService(cfg.SessionTTL(), rdb),
		loginChecker: auth.NewLoginChecker(cfg.SessionTTL(), rdb),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("pushups-router"))

	r.HandleFunc("/", handleRoot).Methods("GET", "POST", "OPTIONS").Name("root")

	quotesHandler := quotes.NewHandler(s.quotesService)
	quotesHandler.SetupRoutes(r)

	usersRepo := users.NewRepo(s.dbPool)
	usersHandler := users.NewHandler(users.NewService(usersRepo, s.authService, s.metricsManager))
	usersHandler.SetupRoutes(
		r,
		redis_rate.NewLimiter(s.redisClient),
		s.metricsManager,
		s.config.LoginRateLimitAllowedPerMin,
	)

	entriesRepo := entries.NewRepo(s.dbPool)
	entriesService := entries.NewService(entries.ServiceParams{
		Users:          usersRepo,
		Entries:        entriesRepo,
		Reconciler:     entries.NewReconciler(entriesRepo),
		Orchestrator:   entries.NewOrchestrator(usersRepo, entriesRepo, s.normalizer, s.metricsManager),
		Normalizer:     s.normalizer,
		GeoTimezone:    s.geoIp,
		MetricsManager: s.metricsManager,
	})
	entries.NewHandler(entriesService).SetupRoutes(r)

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "DELETE", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.loginChecker)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest(middleware.DefaultMaxBodyBytes))

	return r
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, "I'm OK, thanks ;)")
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      s.routerSetup(),
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	cleanupCtx, cancel := context.WithCancel(ctx)
	s.cancelCleanup = cancel
	go s.authService.RunCleanup(cleanupCtx, sessionsCleanupInterval)

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	if s.cancelCleanup != nil {
		s.cancelCleanup()
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	var shutdownErr error
	if s.httpServer != nil {
		shutdownErr = multierr.Append(shutdownErr, s.httpServer.Shutdown(ctx))
		log.Warnln("server shut down")
	}
	if s.metricsHttpServer != nil {
		shutdownErr = multierr.Append(shutdownErr, s.metricsHttpServer.Shutdown(ctx))
		log.Warnln("metrics server shut down")
	}

	if s.otelShutdown != nil {
		s.otelShutdown()
		log.Trace("otel shut down ...")
	}

	if s.redisClient != nil {
		shutdownErr = multierr.Append(shutdownErr, s.redisClient.Close())
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	for _, err := range multierr.Errors(shutdownErr) {
		log.Errorf(" >>> graceful shutdown: %s", err)
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
