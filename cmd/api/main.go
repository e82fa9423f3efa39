package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"example.com/sabzgam/internal/accrual"
	"example.com/sabzgam/internal/api"
	"example.com/sabzgam/internal/auth"
	"example.com/sabzgam/internal/catalog"
	"example.com/sabzgam/internal/config"
	"example.com/sabzgam/internal/domain"
	"example.com/sabzgam/internal/outbox"
	"example.com/sabzgam/internal/persistence/memory"
	persistence "example.com/sabzgam/internal/persistence/postgres"
	httptransport "example.com/sabzgam/internal/transport/http"
)

func main() {
	cfg := config.Load()

	accrualCfg, err := cfg.Accrual()
	if err != nil {
		log.Fatalf("invalid walking configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		repo       domain.WalletRepository
		dispatcher *outbox.Dispatcher
	)
	if cfg.PostgresURL == "" {
		log.Printf("POSTGRES_URL not set, using in-memory wallet store")
		repo = memory.NewRepository(cfg.InitialWalletRial)
	} else {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()

		repo = persistence.NewRepository(pool, cfg.InitialWalletRial)

		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()

		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(outbox.NewPostgresStore(pool), producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
		go dispatcher.Start(ctx)
	}

	service := domain.NewService(repo, catalog.New())

	sessionLogger := log.New(os.Stdout, "[accrual] ", log.LstdFlags|log.Lmicroseconds)
	sessions, err := accrual.NewManager(accrualCfg,
		accrual.WithMaxSessionsPerUser(cfg.MaxSessionsPerUser),
		accrual.WithSessionObserver(service.SessionObserver(sessionLogger)),
		accrual.WithManagerLogger(sessionLogger),
	)
	if err != nil {
		log.Fatalf("failed to create session manager: %v", err)
	}

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	api.NewHandler(sessions, service).RegisterRoutes(router)

	authMiddleware := auth.NewMiddleware(
		auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer},
		auth.SkipPaths("/healthz", "/metrics"),
	)
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Location"},
	})
	requestLogger := log.New(os.Stdout, "[http] ", log.LstdFlags)

	server := httptransport.NewServer(
		httptransport.DefaultServerConfig(cfg.HTTPAddress),
		corsMiddleware.Handler(api.LogRequests(requestLogger, authMiddleware.Wrap(router))),
	)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("sabzgam api listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	log.Println("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	// Stop tickers before the dispatcher so the last credits and walks reach the outbox.
	recorded, err := service.RecordClosedWalks(shutdownCtx, sessions.CloseAll())
	if err != nil {
		log.Printf("recording walks at shutdown: %v", err)
	}
	log.Printf("recorded %d walks from sessions open at shutdown", recorded)
	cancel()
	if dispatcher != nil {
		dispatcher.Wait()
	}
}
