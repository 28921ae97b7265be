package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"tubechat/backend/features/chat"
	"tubechat/backend/features/stats"
	"tubechat/backend/features/video"
	"tubechat/backend/internal/adapter/completion"
	"tubechat/backend/internal/adapter/embedding"
	wstore "tubechat/backend/internal/adapter/weaviate"
	"tubechat/backend/internal/config"
	"tubechat/backend/internal/logger"
	"tubechat/backend/internal/middleware"
	"tubechat/backend/internal/retrieval"
	"tubechat/backend/internal/vector"
	"tubechat/backend/internal/youtube"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
)

// completerAdapter narrows the concrete streaming client to the interface the
// chat service consumes.
type completerAdapter struct {
	client *completion.Client
}

func (a completerAdapter) Stream(ctx context.Context, messages []completion.Message) (chat.Relay, error) {
	return a.client.Stream(ctx, messages)
}

func main() {
	// Initialize structured logger
	log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(log)

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// 2. Weaviate Connection & Schema
	wCfg := weaviate.Config{
		Host:   cfg.WeaviateHost,
		Scheme: cfg.WeaviateScheme,
	}
	wClient, err := weaviate.NewClient(wCfg)
	if err != nil {
		slog.Error("failed to create weaviate client", "error", err)
		os.Exit(1)
	}

	wAdapter := vector.NewWeaviateClientAdapter(wClient)

	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
	for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
		if err := vector.EnsureSchema(context.Background(), wAdapter); err == nil {
			slog.Info("weaviate schema ensured")
			break
		}
		slog.Warn("failed to ensure weaviate schema, retrying...", "attempt", i+1, "error", err)
		time.Sleep(retryDelay)
	}

	if err := vector.EnsureSchema(context.Background(), wAdapter); err != nil {
		slog.Error("failed to ensure weaviate schema after retries", "error", err)
		os.Exit(1)
	}

	// 3. Adapters
	vecStore := wstore.NewStore(wClient)
	embedder := embedding.NewClient(cfg.InferenceAPIKey, cfg.InferenceBaseURL, cfg.EmbeddingModel)
	completer := completion.NewClient(cfg.InferenceBaseURL, cfg.InferenceAPIKey, cfg.ChatModel)
	ytClient := youtube.NewClient(cfg.YouTubeBaseURL)

	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}

	// 4. Services & Handlers
	retrievalService := retrieval.NewService(embedder, vecStore, queryLogger)

	videoService := video.NewService(ytClient, embedder, vecStore, cfg.ChunkSize, cfg.ChunkOverlap)
	videoHandler := video.NewHandler(videoService)

	chatService := chat.NewService(retrievalService, completerAdapter{client: completer}, cfg.RetrievalTopK)
	chatHandler := chat.NewHandler(chatService)

	statsHandler := stats.NewHandler(vecStore)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	http.Handle("POST /api/video/process", middleware.CorrelationID(enableCORS(videoHandler.Process)))
	http.Handle("OPTIONS /api/video/process", middleware.CorrelationID(enableCORS(videoHandler.Process)))
	http.Handle("POST /api/chat", middleware.CorrelationID(enableCORS(chatHandler.Chat)))
	http.Handle("OPTIONS /api/chat", middleware.CorrelationID(enableCORS(chatHandler.Chat)))
	http.Handle("GET /api/stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))
	http.Handle("OPTIONS /api/stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	slog.Info("server starting", "port", cfg.ServerPort)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.ServerPort), nil); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
