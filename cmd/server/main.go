package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appcrm "github.com/CSRAutomation/sofia-salesforce-api/internal/application/crm"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/infrastructure/config"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/infrastructure/logger"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/infrastructure/salesforce"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/infrastructure/telemetry"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/interfaces/http/handler"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/interfaces/http/middleware"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting CRM gateway",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Initialize tracing
	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Environment:       cfg.App.Env,
		CRMAPIVersion:     cfg.Salesforce.APIVersion,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	// Salesforce adapter. The session is established on the first request.
	sfConfig := &salesforce.Config{
		APIVersion:     cfg.Salesforce.APIVersion,
		LoginURL:       cfg.Salesforce.LoginURL,
		RequestTimeout: cfg.Salesforce.RequestTimeout,
		AssertionTTL:   cfg.Salesforce.AssertionTTL,
		ReauthOnExpiry: cfg.Salesforce.ReauthOnExpiry,
		Breaker: salesforce.BreakerConfig{
			Enabled:          cfg.Salesforce.AuthBreaker.Enabled,
			FailureThreshold: cfg.Salesforce.AuthBreaker.FailureThreshold,
			OpenTimeout:      cfg.Salesforce.AuthBreaker.OpenTimeout,
		},
	}
	credentials := salesforce.StaticCredentials{
		Username:      cfg.Salesforce.Username,
		ConsumerKey:   cfg.Salesforce.ConsumerKey,
		PrivateKeyPEM: cfg.Salesforce.PrivateKeyContent,
		Domain:        cfg.Salesforce.Domain,
	}
	httpClient := &http.Client{Timeout: cfg.Salesforce.RequestTimeout}

	authenticator := salesforce.NewJWTBearerAuthenticator(sfConfig, credentials, httpClient)
	connections := salesforce.NewConnectionManager(authenticator, sfConfig, log)
	gateway := salesforce.NewClient(connections, sfConfig, httpClient, log)

	// Application services
	reconciler := appcrm.NewReconciler(gateway, appcrm.ReconcilerConfig{
		InitialDelay: cfg.Reconciliation.InitialDelay,
		PollInterval: cfg.Reconciliation.PollInterval,
		MaxAttempts:  cfg.Reconciliation.MaxAttempts,
		Budget:       cfg.Reconciliation.Budget,
	}, log)
	contactService := appcrm.NewContactService(gateway, reconciler, log)
	caseService := appcrm.NewCaseService(gateway, log)

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	securityConfig := middleware.DefaultSecurityConfig()
	securityConfig.HSTSEnabled = cfg.HTTP.HSTSEnabled

	engine.Use(
		middleware.RequestID(),
		middleware.Tracing(cfg.Telemetry.ServiceName, tp.IsEnabled()),
		middleware.SpanEnricher(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(securityConfig),
		middleware.CORS(corsConfig),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	stopLimiter := make(chan struct{})
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst, 10*time.Minute)
		go limiter.Run(stopLimiter)
		engine.Use(middleware.RateLimit(limiter))
		log.Info("Rate limiting enabled",
			zap.Float64("rps", cfg.HTTP.RateLimitRPS),
			zap.Int("burst", cfg.HTTP.RateLimitBurst),
		)
	}

	r := router.NewRouter(engine, router.WithBasePath(cfg.HTTP.BasePath))
	r.RegisterGateway(router.Handlers{
		Contact:  handler.NewContactHandler(contactService),
		Casework: handler.NewCaseworkHandler(caseService),
		System:   handler.NewSystemHandler(cfg.App.Name, version, connections),
	})
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting",
			zap.String("addr", srv.Addr),
			zap.String("base_path", r.BasePath()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")
	close(stopLimiter)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := tp.Shutdown(ctx); err != nil {
		log.Error("Failed to flush traces", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
