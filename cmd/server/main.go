package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"authgate/internal/clock"
	"authgate/internal/config"
	"authgate/internal/db"
	"authgate/internal/events"
	"authgate/internal/gate"
	gatehandler "authgate/internal/gate/handler"
	healthhandler "authgate/internal/health/handler"
	"authgate/internal/observability"
	"authgate/internal/security"
	"authgate/internal/server"
	"authgate/internal/session"
	"authgate/internal/store"
	otelsetup "authgate/internal/telemetry/otel"
	"authgate/internal/throttle"
	"authgate/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	logger := observability.NewLogger()

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Env); err != nil {
		log.Fatalf("sentry: %v", err)
	}
	defer observability.FlushSentry()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, "authgate", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	emitter, err := events.NewKafkaEmitter(cfg.KafkaBrokersList(), cfg.AuthEventsTopic)
	if err != nil {
		log.Fatalf("events: %v", err)
	}
	if emitter != nil {
		defer emitter.Close()
	}

	clk := clock.System()
	thr := throttle.New(cfg.MaxAttemptsPerWindow, cfg.Window(), cfg.Lockout(), clk)
	signer := security.NewTokenProvider([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())

	// the emitter is nil when Kafka is unconfigured; the gate treats that
	// as events disabled
	var gateEmitter events.Emitter
	if emitter != nil {
		gateEmitter = emitter
	}
	g := gate.New(
		store.NewPostgres(conn),
		thr,
		session.NewRegistry(cfg.MaxConcurrentSessions),
		token.NewIssuer(signer, cfg.RefreshTTL()),
		gate.NewCredentialVerifier(security.NewHasher(cfg.BcryptCost)),
		clk,
		gateEmitter,
	)

	sweeper := throttle.NewSweeper(thr, cfg.SweepInterval(), cfg.Retention())
	go sweeper.Run(ctx)

	router := server.NewRouter(server.Deps{
		Auth:   gatehandler.New(g, logger, cfg.AccessTTL(), cfg.RefreshTTL(), cfg.Env == "production"),
		Health: healthhandler.New(conn),
		Tokens: signer,
		Logger: logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if emitter != nil {
		// let in-flight async event emits drain before telemetry teardown
		time.Sleep(events.ShutdownDrainDuration)
	}
	log.Println("HTTP server stopped")
}
