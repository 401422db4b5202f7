package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/telegram-carbon-bot/internal/api"
	"github.com/raine/telegram-carbon-bot/internal/bot"
	"github.com/raine/telegram-carbon-bot/internal/challenge"
	"github.com/raine/telegram-carbon-bot/internal/config"
	"github.com/raine/telegram-carbon-bot/internal/digest"
	"github.com/raine/telegram-carbon-bot/internal/llm"
	"github.com/raine/telegram-carbon-bot/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	logFileName = "telegram-carbon-bot.log"
	// demoDelay makes demo answers feel like a real model call
	demoDelay = 1200 * time.Millisecond
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Try to load existing .env file
	config.LoadEnvFile()

	// Check if required config is missing
	if missing := config.CheckRequired(); len(missing) > 0 {
		if config.IsInteractiveTerminal() {
			if !config.RunSetupWizard() {
				config.WaitOnWindows()
				os.Exit(1)
			}
		} else {
			// Non-interactive (systemd, docker, etc.) - fail with clear error
			config.FatalWithWait("missing required config: %s", strings.Join(missing, ", "))
		}
	}

	// JOURNAL_STREAM is set by systemd when running as a service.
	// Skip file logging under systemd, journald handles it.
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			config.FatalWithWait("failed to open log file: %v", err)
		}
		defer logFile.Close()

		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))

		log.Info().Str("logFile", logFileName).Msg("logging to file")
	}

	cfg, err := config.Load()
	if err != nil {
		config.FatalWithWait("%v", err)
	}

	tg, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		config.FatalWithWait("failed to initialize telegram bot: %v", err)
	}
	tg.Debug = false
	log.Info().Str("username", tg.Self.UserName).Msg("authorized on account")

	// Register bot commands for Telegram's command menu
	bot.RegisterCommands(tg)

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		config.FatalWithWait("failed to initialize store: %v", err)
	}
	defer store.Close()
	log.Info().Str("dbPath", cfg.DBPath).Msg("store initialized")

	catalog, err := challenge.LoadCatalog(cfg.ChallengesFile)
	if err != nil {
		config.FatalWithWait("failed to load challenges: %v", err)
	}
	log.Info().Int("challenges", len(catalog.All())).Str("file", cfg.ChallengesFile).Msg("challenge catalog loaded")

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	analyzer, err := newReceiptAnalyzer(ctx, cfg, store)
	if err != nil {
		config.FatalWithWait("failed to initialize receipt analyzer: %v", err)
	}

	b := bot.NewBot(tg, store, analyzer, catalog, cfg.AdminID)
	b.SetOpenRegistration(cfg.OpenRegistration)
	defer b.Shutdown()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runBot(ctx, tg, b)
	})

	if cfg.DigestEnabled {
		digestService := digest.NewService(store, tg)
		g.Go(func() error {
			digestService.Run(ctx)
			return nil
		})
	}

	if cfg.HTTPAddr != "" {
		server := api.NewServer(api.Config{AllowedOrigins: cfg.AllowedOrigins}, analyzer, catalog)
		g.Go(func() error {
			return server.Run(ctx, cfg.HTTPAddr)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

// newReceiptAnalyzer picks Gemini, then OpenAI, wrapped with the SQLite
// cache. Without an API key receipts are answered with demo data.
func newReceiptAnalyzer(ctx context.Context, cfg *config.Config, store *storage.SQLiteStore) (llm.ReceiptAnalyzer, error) {
	switch {
	case cfg.GeminiAPIKey != "":
		gemini, err := llm.NewGeminiAnalyzer(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("gemini receipt analyzer initialized with caching")
		return llm.NewCachedAnalyzer(gemini, store), nil
	case cfg.OpenAIAPIKey != "":
		log.Info().Msg("openai receipt analyzer initialized with caching")
		return llm.NewCachedAnalyzer(llm.NewOpenAIAnalyzer(cfg.OpenAIAPIKey), store), nil
	default:
		log.Warn().Msg("no vision API key set, answering receipts with demo data")
		return llm.NewDemoAnalyzer(demoDelay), nil
	}
}

func runBot(ctx context.Context, tg *tgbotapi.BotAPI, b *bot.Bot) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := tg.GetUpdatesChan(updateConfig)

	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping bot update loop")
			tg.StopReceivingUpdates()
			log.Info().Msg("waiting for active handlers to finish")
			wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				log.Warn().Msg("updates channel closed")
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}
