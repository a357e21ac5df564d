package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/finbot/internal/config"
	"github.com/sandevgo/finbot/internal/core"
	"github.com/sandevgo/finbot/internal/providers/llm"
	"github.com/sandevgo/finbot/internal/providers/search"
	"github.com/sandevgo/finbot/internal/service/dialog"
	"github.com/sandevgo/finbot/internal/service/extract"
	"github.com/sandevgo/finbot/internal/service/history"
	"github.com/sandevgo/finbot/internal/service/pending"
	"github.com/sandevgo/finbot/internal/service/report"
	"github.com/sandevgo/finbot/internal/storage/sheets"
	"github.com/sandevgo/finbot/internal/storage/sqlite"
	"github.com/sandevgo/finbot/internal/transport/telegram"
	"github.com/sandevgo/finbot/pkg/log"
	"github.com/sandevgo/finbot/pkg/srv"
)

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// init env
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)

	// 2. Storage
	db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	services = append(services, srv.NewCleanup(db.Close))
	turnsRepo := sqlite.NewTurnsRepo(db)

	ledger, err := sheets.NewLedger(ctx, config.NewSheetsConfig(ctx))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize ledger")
	}

	// 3. AI providers
	completer := initCompleter(ctx)
	searcher := search.NewDuckDuckGo(config.NewSearchConfig(ctx))

	// 4. Dialogue services
	hist, err := history.NewStore(turnsRepo)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize history store")
	}

	orch := dialog.New(
		completer,
		searcher,
		hist,
		extract.New(completer),
		pending.New(),
		ledger,
	)

	// 5. Reports
	reporter := report.New(ledger)

	// 6. Transport
	bot, err := telegram.NewBot(ctx, config.NewTelegramConfig(ctx), orch, reporter, searcher)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize telegram bot")
	}
	services = append(services, bot)

	return services
}

// initCompleter assembles the provider fallback chain in priority order. At
// least one provider must be configured.
func initCompleter(ctx context.Context) core.Completer {
	var providers []llm.Provider

	if cfg := config.NewGeminiConfig(ctx); cfg.Enabled() {
		providers = append(providers, llm.Provider{
			Name:      "gemini",
			Completer: llm.NewGemini(cfg.BaseURL, cfg.APIKey, cfg.Model),
		})
	}

	if cfg := config.NewFallbackConfig(ctx); cfg.Enabled() {
		providers = append(providers, llm.Provider{
			Name:      "fallback",
			Completer: llm.NewOpenAICompatible(cfg.BaseURL, cfg.APIKey, cfg.Model),
		})
	}

	chain, err := llm.NewChain(providers...)
	if err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to initialize completion providers")
	}
	return chain
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
