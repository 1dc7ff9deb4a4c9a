package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/hackpal/internal/config"
	"github.com/sandevgo/hackpal/internal/core"
	"github.com/sandevgo/hackpal/internal/providers/llm"
	"github.com/sandevgo/hackpal/internal/providers/mcp"
	"github.com/sandevgo/hackpal/internal/providers/rag"
	"github.com/sandevgo/hackpal/internal/providers/tools"
	"github.com/sandevgo/hackpal/internal/service/command"
	"github.com/sandevgo/hackpal/internal/service/knowledge"
	"github.com/sandevgo/hackpal/internal/service/memory"
	"github.com/sandevgo/hackpal/internal/service/responder"
	"github.com/sandevgo/hackpal/internal/service/router"
	"github.com/sandevgo/hackpal/internal/service/session"
	"github.com/sandevgo/hackpal/internal/storage/dynamo"
	"github.com/sandevgo/hackpal/internal/storage/inmem"
	"github.com/sandevgo/hackpal/internal/storage/sqlite"
	"github.com/sandevgo/hackpal/pkg/log"
	"github.com/sandevgo/hackpal/pkg/srv"
)

// App holds the wired core shared by every transport.
type App struct {
	AppCfg       *config.AppConfig
	Orchestrator *session.Orchestrator
	Commands     *command.Router
	// Services are started before and shut down after the transports.
	Services []srv.Service
}

type stores struct {
	turns     core.TurnStore
	passages  core.PassageStore
	knowledge core.KnowledgeStore
}

func NewApp(ctx context.Context) *App {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// init env
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	providerCfg := config.NewProviderConfig(ctx)
	ragCfg := config.NewRAGConfig(ctx)

	// 2. Storage
	st, db, err := initStorage(ctx, appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	if db != nil {
		services = append(services, srv.NewCleanup(db.Close))
	}

	// 3. AI Provider
	provider, err := llm.NewProvider(ctx, providerCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize LLM provider")
	}
	ai := llm.NewGuard(provider, appCfg.ProviderTimeout, appCfg.ProviderRetries)

	// 4. Embeddings and document ingestion
	embedder, err := rag.NewEmbeddingModel(ctx, ragCfg, providerCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize embedding model")
	}
	ingester := knowledge.NewIngester(rag.NewExtractor(), embedder, st.passages, rag.NewChunkerConfig(ragCfg))
	registry := knowledge.NewRegistry(ingester, st.knowledge, embedder, st.passages)

	// 5. MCP & Tools
	toolbox := mcp.NewToolbox(appCfg.GetMCPConfigPath(), tools.Defaults()...)
	services = append(services, toolbox)

	// 6. Responders and routing
	catalog, err := responder.NewCatalog(ai, toolbox, responder.Options{
		RetrievalLimit: appCfg.RetrievalLimit,
		MaxToolRounds:  appCfg.MaxToolRounds,
		HistoryWindow:  appCfg.GetContextWindowSize(),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build responder team")
	}

	rt, err := router.New(newClassifier(ctx, appCfg, ai), catalog, appCfg.RetrievalLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build router")
	}

	// 7. Session orchestration
	tempDir, err := initTempDir(appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare upload directory")
	}
	mem := memory.NewMemory(st.turns, appCfg.GetContextWindowSize())
	orch := session.NewOrchestrator(registry, rt, mem, tempDir)

	commands := command.NewRouter(providerCfg, orch, registry, catalog.Names(), toolbox)

	return &App{
		AppCfg:       appCfg,
		Orchestrator: orch,
		Commands:     commands,
		Services:     services,
	}
}

// initStorage keeps knowledge bases in SQLite unless everything lives in
// memory. HISTORY_BACKEND only decides where turns go.
func initStorage(ctx context.Context, cfg *config.AppConfig) (stores, *sql.DB, error) {
	if cfg.HistoryBackend == config.HistoryBackendMemory {
		mem := inmem.New()
		return stores{turns: mem, passages: mem, knowledge: mem}, nil, nil
	}

	db, err := sqlite.NewDB(ctx, cfg.GetDatabasePath())
	if err != nil {
		return stores{}, nil, err
	}
	kr := sqlite.NewKnowledgeRepo(db)
	st := stores{passages: kr, knowledge: kr}

	switch cfg.HistoryBackend {
	case config.HistoryBackendSQLite:
		st.turns = sqlite.NewTurnsRepo(db)
	case config.HistoryBackendDynamoDB:
		turns, err := dynamo.NewFromConfig(ctx, config.NewDynamoConfig(ctx))
		if err != nil {
			_ = db.Close()
			return stores{}, nil, err
		}
		st.turns = turns
	default:
		_ = db.Close()
		return stores{}, nil, fmt.Errorf("unknown history backend %q", cfg.HistoryBackend)
	}

	log.FromCtx(ctx).Info().Str("backend", cfg.HistoryBackend).Msg("storage ready")
	return st, db, nil
}

func newClassifier(ctx context.Context, cfg *config.AppConfig, ai core.AIProvider) router.Classifier {
	if cfg.RouterMode == config.RouterModeModel {
		return router.NewModelClassifier(ai)
	}
	if cfg.RouterMode != config.RouterModeRules {
		log.FromCtx(ctx).Warn().Str("mode", cfg.RouterMode).Msg("unknown router mode, using rules")
	}
	return router.NewRuleClassifier()
}

func initTempDir(cfg *config.AppConfig) (string, error) {
	dir := cfg.TempDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "hackpal")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

// initEnv loads <runtime>/.env and then ./.env. Variables already set in
// the environment win, and the first file to set a key keeps it.
func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)

	for _, envFile := range []string{filepath.Join(runtimePath, ".env"), ".env"} {
		if _, err := os.Stat(envFile); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}

		if err := godotenv.Load(envFile); err != nil {
			logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
			return err
		}

		logger.Debug().Str("path", envFile).Msg("loaded .env file")
	}
	return nil
}
