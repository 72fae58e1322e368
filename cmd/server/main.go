package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tanveerk/finhub/internal/api"
	"github.com/tanveerk/finhub/internal/api/handlers"
	"github.com/tanveerk/finhub/internal/chat"
	"github.com/tanveerk/finhub/internal/extract"
	"github.com/tanveerk/finhub/internal/llm"
	"github.com/tanveerk/finhub/internal/logger"
	"github.com/tanveerk/finhub/internal/pdftext"
	"github.com/tanveerk/finhub/internal/store"
	"github.com/tanveerk/finhub/internal/upload"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	// Parse command-line flags
	var (
		port      = flag.String("port", envOr("PORT", "8080"), "HTTP server port (or set PORT env)")
		dbPath    = flag.String("db", envOr("DB_PATH", "data/finhub.db"), "SQLite database path (or set DB_PATH env)")
		uploadDir = flag.String("upload-dir", envOr("UPLOAD_DIR", "data/uploads"), "Directory for uploaded statements (or set UPLOAD_DIR env)")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	if os.Getenv("OPENROUTER_API_KEY") == "" {
		log.Warn().Msg("OPENROUTER_API_KEY is not set - extraction and chat will fail until configured")
	}

	// Open database
	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *dbPath).Msg("Failed to open database")
	}
	defer st.Close()

	if err := st.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply schema")
	}

	// Model client shared by extraction and chat
	client := llm.NewOpenRouterClient(llm.NewModelConfig(st))

	// Ingestion wizard
	uploadSvc := upload.NewService(
		st,
		pdftext.New(),
		extract.NewExtractor(client, log),
		extract.NewCategorizer(client, log),
		*uploadDir,
		log,
	)

	// Chat orchestrator
	orchestrator := chat.NewOrchestrator(st, client, chat.NewRegistry(st), log)

	router := api.NewRouter(api.Deps{
		Auth:     handlers.NewAuthHandler(st, log),
		Ops:      handlers.NewOpsHandler(uploadSvc, log),
		AI:       handlers.NewAIHandler(orchestrator, st, log),
		Catalog:  handlers.NewCatalogHandler(st, log),
		Sessions: st,
		Log:      log,
	})

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Expired sessions are purged in the background for as long as the
	// process runs.
	purgeCtx, cancelPurge := context.WithCancel(context.Background())
	defer cancelPurge()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-purgeCtx.Done():
				return
			case <-ticker.C:
				if err := st.PurgeExpiredSessions(purgeCtx); err != nil {
					log.Warn().Err(err).Msg("Session purge failed")
				}
			}
		}
	}()

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Str("db", *dbPath).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancelPurge()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
