package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"vrlearn.app/beacon/common/arangodb"
	"vrlearn.app/beacon/common/id"
	"vrlearn.app/beacon/common/llm"
	"vrlearn.app/beacon/common/logger"
	"vrlearn.app/beacon/common/otel"
	"vrlearn.app/beacon/core/config"
	"vrlearn.app/beacon/core/db"
	"vrlearn.app/beacon/internal/http/middleware"
	httprouter "vrlearn.app/beacon/internal/http/router"
	"vrlearn.app/beacon/internal/ranker"
	"vrlearn.app/beacon/internal/retriever"
	"vrlearn.app/beacon/internal/service"
	"vrlearn.app/beacon/internal/skillindex"
	"vrlearn.app/beacon/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "beacon starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	graph, err := arangodb.New(arangodb.Config{
		URL:      cfg.ArangoDB.URL,
		Username: cfg.ArangoDB.Username,
		Password: cfg.ArangoDB.Password,
		Database: cfg.ArangoDB.Database,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create arangodb client", "error", err)
		os.Exit(1)
	}
	if err := graph.Connect(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to connect to knowledge graph", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "knowledge graph connected", "database", cfg.ArangoDB.Database)

	skills := skillindex.New(skillindex.Config{
		URL:           cfg.Typesense.URL,
		APIKey:        cfg.Typesense.APIKey,
		Collection:    cfg.Typesense.Collection,
		MinSimilarity: cfg.Typesense.MinSimilarity,
	})
	slog.InfoContext(ctx, "skill index configured", "collection", cfg.Typesense.Collection)

	ret := retriever.New(graph, skills, retriever.Config{
		BridgeMinSimilarity: cfg.Typesense.MinSimilarity,
	})

	var closers []func() error
	closers = append(closers, graph.Close)

	var llmClient llm.Client
	if cfg.RankerLLM.Enabled() {
		llmClient, err = llm.New(llm.Config{
			APIKey:  cfg.RankerLLM.APIKey,
			BaseURL: cfg.RankerLLM.BaseURL,
			Model:   cfg.RankerLLM.Model,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to create llm client", "error", err)
			os.Exit(1)
		}
		slog.InfoContext(ctx, "ranker llm enabled", "model", cfg.RankerLLM.Model)
	} else {
		slog.InfoContext(ctx, "ranker llm disabled (no api key)")
	}

	var events store.RankEventStore
	if cfg.DB.Enabled() {
		database, err := db.New(ctx, cfg.DB)
		if err != nil {
			slog.ErrorContext(ctx, "failed to connect to database", "error", err)
			os.Exit(1)
		}
		events = store.NewRankEventStore(database)
		closers = append(closers, func() error {
			database.Close()
			return nil
		})
		slog.InfoContext(ctx, "rank event audit log enabled")
	}

	rnk := ranker.New(llmClient, events, ranker.Config{
		MaxTokens: cfg.RankerLLM.MaxTokens,
		Timeout:   cfg.RankerLLM.Timeout,
	})

	var cache *service.Cache
	if cfg.Cache.Enabled() {
		cache, err = service.NewCache(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		closers = append(closers, cache.Close)
		slog.InfoContext(ctx, "result cache enabled", "ttl", cfg.Cache.TTL)
	}

	recs := service.New(ret, rnk, cache, closers...)
	defer recs.Close()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, recs)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, recs service.RecommendationService) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, recs)

	return router
}

const banner = `
██████╗ ███████╗ █████╗  ██████╗ ██████╗ ███╗   ██╗
██╔══██╗██╔════╝██╔══██╗██╔════╝██╔═══██╗████╗  ██║
██████╔╝█████╗  ███████║██║     ██║   ██║██╔██╗ ██║
██╔══██╗██╔══╝  ██╔══██║██║     ██║   ██║██║╚██╗██║
██████╔╝███████╗██║  ██║╚██████╗╚██████╔╝██║ ╚████║
╚═════╝ ╚══════╝╚═╝  ╚═╝ ╚═════╝ ╚═════╝ ╚═╝  ╚═══╝
`
