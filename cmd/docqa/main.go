package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"docqa/internal/api"
	"docqa/internal/config"
	"docqa/internal/rag/dal"
	"docqa/internal/rag/embeddings"
	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/llms"
	"docqa/internal/rag/pipeline"
	"docqa/internal/rag/splitters"
	"docqa/internal/rag/storages/vectorstore"
	"docqa/internal/service"
	"docqa/pkg/circuitbreaker"
	pkghttp "docqa/pkg/http"
	"docqa/pkg/logger"
)

// embeddingCacheSize bounds the query/chunk embedding memoization.
const embeddingCacheSize = 2048

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New(cfg.App.Name)
	appLogger.Info("logger initialized")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	embedService, err := embeddings.NewModel(cfg.RAG.Embedding)
	if err != nil {
		appLogger.Fatal("failed to create embedding model: " + err.Error())
	}
	embedder, err := embeddings.NewCached(embedService, embeddingCacheSize, 0)
	if err != nil {
		appLogger.Fatal("failed to create embedding cache: " + err.Error())
	}

	documents, index, err := buildStores(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("failed to initialize stores: " + err.Error())
	}

	llmClient, err := llms.NewClient(ctx, cfg.RAG.LLM)
	if err != nil {
		appLogger.Fatal("failed to create llm client: " + err.Error())
	}
	generator := llms.NewResilient(llmClient, circuitbreaker.New(5, 2, 30*time.Second))

	splitter, err := splitters.NewSentenceSplitter(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		appLogger.Fatal("invalid chunking configuration: " + err.Error())
	}

	svc, err := service.NewDocQAService(
		pipeline.NewIndexingPipeline(splitter, embedder, index, documents, appLogger),
		pipeline.NewRetrievalPipeline(embedder, index, cfg.RAG.TopK, cfg.RAG.SimilarityThreshold, appLogger),
		pipeline.NewQAPipeline(generator, cfg.RAG.MaxContextChars, appLogger),
		documents,
		index,
		appLogger,
	)
	if err != nil {
		appLogger.Fatal("failed to create service: " + err.Error())
	}
	defer svc.Close()

	router, err := api.NewRouter(api.NewAPI(svc, cfg.Server.MaxUploadSize, appLogger), cfg.Server)
	if err != nil {
		appLogger.Fatal("failed to build router: " + err.Error())
	}

	srv := pkghttp.NewServer(router, pkghttp.WithAddress(cfg.Server.Addr))
	go func() {
		appLogger.Info("starting server on " + srv.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("server failed: " + err.Error())
		}
	}()

	<-ctx.Done()
	appLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("graceful shutdown failed")
	}
}

// buildStores constructs the document catalog and vector index for the
// configured backend. Postgres carries the catalog whenever it is
// configured; the memory backend can run entirely without external
// services.
func buildStores(ctx context.Context, cfg *config.AppConfig, appLogger *logger.Logger) (interfaces.DocumentStore, interfaces.VectorIndex, error) {
	dim := cfg.RAG.Embedding.Dimension

	switch cfg.RAG.VectorBackend {
	case "pgvector":
		db, err := openPostgres(cfg.Databases.Postgres)
		if err != nil {
			return nil, nil, err
		}
		documents, err := dal.NewDocumentDAL(db)
		if err != nil {
			return nil, nil, err
		}
		index, err := vectorstore.NewPgvectorIndex(db, dim)
		if err != nil {
			return nil, nil, err
		}
		return documents, index, nil

	case "milvus":
		documents, err := buildCatalog(cfg, appLogger)
		if err != nil {
			return nil, nil, err
		}
		index, err := vectorstore.NewMilvusIndex(ctx, cfg.Databases.Milvus, dim, appLogger)
		if err != nil {
			return nil, nil, err
		}
		return documents, index, nil

	case "memory":
		documents, err := buildCatalog(cfg, appLogger)
		if err != nil {
			return nil, nil, err
		}
		return documents, vectorstore.NewMemoryIndex(dim), nil

	default:
		return nil, nil, fmt.Errorf("unknown vector backend: %s", cfg.RAG.VectorBackend)
	}
}

// buildCatalog prefers Postgres for the document catalog and falls
// back to the in-memory store when no database is configured.
func buildCatalog(cfg *config.AppConfig, appLogger *logger.Logger) (interfaces.DocumentStore, error) {
	if cfg.Databases.Postgres.Host == "" {
		appLogger.Warn("no postgres configured, document catalog is in-memory and not persisted")
		return dal.NewMemoryDocumentStore(), nil
	}
	db, err := openPostgres(cfg.Databases.Postgres)
	if err != nil {
		return nil, err
	}
	return dal.NewDocumentDAL(db)
}

func openPostgres(cfg config.PostgresConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}
	return db, nil
}
