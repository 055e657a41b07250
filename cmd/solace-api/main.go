package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	httpadapter "github.com/PabloGalante/solace-api/internal/adapters/http"
	"github.com/PabloGalante/solace-api/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/solace-api/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/solace-api/internal/adapters/storage/memory"
	"github.com/PabloGalante/solace-api/internal/app/conversation"
	journalapp "github.com/PabloGalante/solace-api/internal/app/journal"
	"github.com/PabloGalante/solace-api/internal/app/prompt"
	"github.com/PabloGalante/solace-api/internal/config"
	"github.com/PabloGalante/solace-api/internal/domain"
	"github.com/PabloGalante/solace-api/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := observability.Logger()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded, using system environment only", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := observability.SetLevel(cfg.LogLevel); err != nil {
		log.Warn("ignoring log level", "error", err)
	}

	if err := run(ctx, cfg); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := observability.Logger()

	// Choose between mock and Gemini
	var llmClient domain.ModelGateway
	if cfg.UseMockLLM {
		log.Info("using mock LLM client")
		llmClient = llm.NewMockLLM()
	} else {
		gw, err := llm.NewGeminiGateway(ctx, llm.GeminiConfig{
			APIKey:    cfg.GeminiAPIKey,
			Project:   cfg.GCPProjectID,
			Location:  cfg.GCPLocation,
			ModelName: cfg.ModelName,
		})
		if err != nil {
			return err
		}
		log.Info("using Gemini LLM client", "model", cfg.ModelName)
		llmClient = gw
	}

	// Storage: Firestore or Memory
	var store domain.ProfileStore
	switch cfg.StorageBackend {
	case config.StorageFirestore:
		fsStore, err := firestorestore.NewStore(ctx, cfg.GCPProjectID, cfg.FirestoreCredentials)
		if err != nil {
			return err
		}
		defer fsStore.Close()

		log.Info("using Firestore storage", "project", cfg.GCPProjectID)
		store = fsStore
	default:
		log.Info("using in-memory storage")
		store = memstore.NewProfileStore()
	}

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	chats := conversation.NewManager(store, llmClient, conversation.Options{
		CloseSummary: cfg.CloseSummary,
		Metrics:      metrics,
	})
	journalSvc := journalapp.NewService(store, llmClient,
		prompt.LoadCorrelationExamples(cfg.CorrelationExamplesPath), metrics)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpadapter.NewServer(chats, journalSvc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("Solace API listening", "addr", srv.Addr, "mode", cfg.Mode)
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		observability.Logger().Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
