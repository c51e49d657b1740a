package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"GeoStream/internal/config"
	"GeoStream/internal/engine/session"
	"GeoStream/internal/model"
	"GeoStream/internal/notification"
	"GeoStream/internal/notify"
	"GeoStream/internal/query"
	"GeoStream/internal/sink"
	"GeoStream/internal/source"

	"github.com/gorilla/mux"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	flag.Parse()

	log.Println("Starting gs-engine...")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// Chunk source and progress observer share the NATS bus.
	opener, err := source.NewNATSOpener(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to create chunk source: %v", err)
	}
	defer opener.Close()

	observer, err := notify.NewNATSObserver(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to create progress observer: %v", err)
	}
	defer observer.Close()

	writers := sink.NewWriters(cfg.Writers)
	log.Printf("Initialized %d result writer(s).", len(writers))

	var notifier model.Notifier
	if cfg.SMTP.Host != "" {
		notifier = notification.NewEmailNotifier(cfg.SMTP)
		log.Println("Email failure notifier enabled.")
	}

	svc, err := session.NewService(cfg.Engine, opener, observer, writers, notifier)
	if err != nil {
		log.Fatalf("Failed to create session service: %v", err)
	}

	// A stored-result querier is only available when a ClickHouse writer
	// is configured; the control API degrades gracefully without one.
	var querier query.Querier
	for _, writerDef := range cfg.Writers {
		if writerDef.Enabled && writerDef.Type == "clickhouse" {
			querier, err = query.NewClickHouseQuerier(writerDef.ClickHouse)
			if err != nil {
				log.Fatalf("Failed to create querier: %v", err)
			}
			break
		}
	}

	apiHandler := &APIHandler{svc: svc, querier: querier}
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/stream/start", apiHandler.startStreamHandler).Methods("POST")
	r.HandleFunc("/api/v1/stream/cancel", apiHandler.cancelStreamHandler).Methods("POST")
	r.HandleFunc("/api/v1/sessions", apiHandler.listSessionsHandler).Methods("GET")
	r.HandleFunc("/api/v1/sessions/{id}", apiHandler.getSessionHandler).Methods("GET")
	r.HandleFunc("/api/v1/healthz", apiHandler.healthHandler).Methods("GET")

	server := &http.Server{
		Addr:    cfg.API.ListenAddr,
		Handler: r,
	}

	go func() {
		log.Printf("Control API starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	// Wait for a shutdown signal for graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutdown signal received...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("API server forced to shutdown: %v", err)
	}

	svc.Stop()
	log.Println("Shutdown complete.")
}
