package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"example.com/sabzgam/internal/config"
	"example.com/sabzgam/internal/consumer"
	httptransport "example.com/sabzgam/internal/transport/http"
)

func main() {
	cfg := config.Load()
	if cfg.PostgresURL == "" {
		log.Fatal("POSTGRES_URL is required for the event-log consumer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	eventLog := consumer.NewEventLogHandler(pool)
	totals := consumer.ActivityTotals{}
	router := consumer.NewRouter().
		Route(eventLog, eventLog.EventTypes()...).
		Route(totals, totals.EventTypes()...)

	// One group member subscribed to every topic keeps a user's wallet and
	// walk events flowing through the same process.
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		GroupID:        cfg.ConsumerGroupID,
		GroupTopics:    cfg.ConsumerTopics,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})
	defer reader.Close()

	metricsSrv := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.MetricsAddress), promhttp.Handler())
	go func() {
		log.Printf("consumer metrics listening on %s", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server error: %v", err)
		}
	}()

	logger := log.New(os.Stdout, "[consumer] ", log.LstdFlags|log.Lmicroseconds)
	logger.Printf("reading %v as group %s", cfg.ConsumerTopics, cfg.ConsumerGroupID)
	if err := consumer.NewProcessor(reader, router, consumer.WithLogger(logger)).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("processor stopped: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}
}
