package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	httpadapter "bridgesim/internal/adapter/http"
	openaillm "bridgesim/internal/adapter/llm/openai"
	"bridgesim/internal/adapter/llm/scripted"
	metricsinmem "bridgesim/internal/adapter/metrics/inmemory"
	gormrepo "bridgesim/internal/adapter/repo/gorm"
	"bridgesim/internal/adapter/repo/memory"
	"bridgesim/internal/app/episode"
	"bridgesim/internal/app/ports"
	"bridgesim/internal/app/replay"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	archive, txManager := mustBuildArchive(logger)
	decider := mustBuildDecider(logger)
	kpiRecorder := metricsinmem.NewRecorder()

	manager := episode.NewManager(episode.Deps{
		Archive: archive,
		Tx:      txManager,
		Decider: decider,
		Metrics: kpiRecorder,
		Logger:  logger,
		Now:     time.Now,
	})

	h := httpadapter.Handler{
		Episodes: manager,
		ReplayUC: replay.UseCase{Archive: archive},
		KPI:      kpiRecorder,
	}

	addr := envOr("BRIDGESIM_ADDR", ":8080")
	s := server.Default(server.WithHostPorts(addr))
	h.RegisterRoutes(s)

	log.Printf("bridgesim server listening on %s", addr)
	s.Spin()
}

func mustBuildArchive(logger *slog.Logger) (ports.ArchiveRepository, ports.TxManager) {
	dsn := strings.TrimSpace(os.Getenv("BRIDGESIM_DB_DSN"))
	if dsn == "" {
		logger.Warn("BRIDGESIM_DB_DSN not set, archiving to process memory")
		store := memory.NewStore()
		return memory.NewArchiveRepo(store), memory.NewTxManager()
	}

	db, err := gormrepo.OpenPostgres(dsn)
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	migrationsDir := envOr("BRIDGESIM_MIGRATIONS_DIR", "./migrations")
	if err := gormrepo.ApplyMigrations(context.Background(), db, migrationsDir); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}
	return gormrepo.NewArchiveRepo(db), gormrepo.NewTxManager(db)
}

func mustBuildDecider(logger *slog.Logger) ports.DecisionProvider {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		logger.Warn("OPENAI_API_KEY not set, agents run on the scripted idle provider")
		return scripted.NewProvider(nil)
	}

	provider, err := openaillm.NewProvider(openaillm.Config{
		APIKey:  apiKey,
		BaseURL: strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		Model:   strings.TrimSpace(os.Getenv("OPENAI_MODEL")),
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("build openai provider: %v", err)
	}
	return provider
}

func envOr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}
