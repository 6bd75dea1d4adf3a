// chatpad - local-first chat companion data server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/chatpad/internal/api"
	"github.com/ashureev/chatpad/internal/assistant"
	"github.com/ashureev/chatpad/internal/chat"
	"github.com/ashureev/chatpad/internal/config"
	"github.com/ashureev/chatpad/internal/middleware"
	"github.com/ashureev/chatpad/internal/profile"
	"github.com/ashureev/chatpad/internal/state"
	"github.com/ashureev/chatpad/internal/storage"
	"github.com/ashureev/chatpad/internal/task"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "ephemeral", cfg.Ephemeral())

	// Initialize storage.
	var store storage.Store
	if cfg.Ephemeral() {
		store = storage.NewMemory()
	} else {
		sqliteStore, err := storage.NewSQLite(cfg.DBPath)
		if err != nil {
			slog.Error("Failed to initialize storage", "error", err)
			os.Exit(1)
		}
		store = sqliteStore
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close storage", "error", closeErr)
		}
	}()

	if err := store.Ping(context.Background()); err != nil {
		slog.Error("Storage health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Storage ready")

	// Initialize services, one logical owner per collection.
	chatSvc := chat.NewService(store)
	taskSvc := task.NewService(store)
	profileSvc := profile.NewService(store, chatSvc, taskSvc)

	// Initialize state containers and eagerly fill them.
	conversations := state.NewConversationState(chatSvc)
	tasks := state.NewTaskState(taskSvc)
	profileState := state.NewProfileState(profileSvc)

	startupCtx := context.Background()
	conversations.Load(startupCtx)
	tasks.Load(startupCtx)
	profileState.Load(startupCtx)

	settings := profileSvc.Settings(startupCtx)
	slog.Info("State containers loaded", "onboarded", settings.Onboarded)

	provider := assistant.NewLocalProvider(assistant.Config{
		Enabled:    cfg.Assistant.Enabled,
		ThinkPause: cfg.Assistant.ThinkPause,
		JitterMax:  cfg.Assistant.JitterMax,
	})
	if !provider.Available() {
		slog.Info("Assistant replies disabled (ASSISTANT_ENABLED=false)")
	}

	handler := api.NewHandler(conversations, tasks, profileState, chatSvc, taskSvc, profileSvc, provider)
	streamHandler := api.NewStreamHandler(conversations, tasks, profileState)

	// Setup router.
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.FrontendURL))

	handler.RegisterRoutes(r)
	r.Get("/ws/state", streamHandler.ServeHTTP)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // WebSocket stream stays open indefinitely
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
