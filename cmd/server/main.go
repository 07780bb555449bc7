package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	relaybot "github.com/RichardoC/gemini-relay/internal/bot"
	"github.com/RichardoC/gemini-relay/internal/config"
	"github.com/RichardoC/gemini-relay/internal/db"
	"github.com/RichardoC/gemini-relay/internal/history"
	"github.com/RichardoC/gemini-relay/internal/llm"
	"github.com/RichardoC/gemini-relay/internal/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:          "gemini-relay",
		Short:        "Relay Telegram messages to a generative AI model",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, envFile)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "optional KEY=value file; the environment overrides it")
	return cmd
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func run(ctx context.Context, envFile string) error {
	bootLogger, _ := zap.NewProduction()
	defer bootLogger.Sync()

	cfg, err := config.Load(envFile)
	if err != nil {
		bootLogger.Fatal("invalid configuration", zap.Error(err), zap.String("envFile", envFile))
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		bootLogger.Fatal("invalid LOG_LEVEL", zap.Error(err), zap.String("level", cfg.LogLevel))
	}
	defer logger.Sync()

	store, closeStore, err := newStore(cfg)
	if err != nil {
		logger.Fatal("failed to initialize history store",
			zap.Error(err),
			zap.String("backend", cfg.HistoryBackend))
	}
	defer closeStore()

	client, err := llm.NewClient(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize completion client",
			zap.Error(err),
			zap.String("provider", cfg.Provider))
	}

	m := metrics.New()
	responder := llm.New(client, store, logger, llm.Options{
		SystemPrompt: cfg.SystemPrompt,
		Timeout:      cfg.RequestTimeout,
		Metrics:      m,
	})
	handler := relaybot.NewHandler(responder, m, logger, cfg.MaxMessageLength)

	b, err := bot.New(cfg.TelegramToken,
		bot.WithDefaultHandler(handler.Handle),
		bot.WithNotAsyncHandlers(),
		bot.WithWorkers(1),
		bot.WithErrorsHandler(func(err error) {
			logger.Error("telegram error", zap.Error(err))
		}),
	)
	if err != nil {
		logger.Fatal("failed to initialize Telegram bot", zap.Error(err))
	}

	if cfg.MetricsAddr != "" {
		srv := newMetricsServer(cfg.MetricsAddr, m)
		go func() {
			logger.Info("Starting metrics server", zap.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("Starting bot",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model()),
		zap.String("history", cfg.HistoryBackend),
		zap.Int("historyExchanges", cfg.HistoryExchanges))
	b.Start(ctx)
	handler.Wait()
	logger.Info("Bot stopped")
	return nil
}

func newStore(cfg config.Config) (history.Store, func(), error) {
	if cfg.HistoryBackend == config.BackendSQLite {
		database, err := db.New(db.MemoryDSN, cfg.HistoryExchanges)
		if err != nil {
			return nil, nil, err
		}
		return database, func() { database.Close() }, nil
	}
	return history.NewMemoryStore(cfg.HistoryExchanges), func() {}, nil
}

func newMetricsServer(addr string, m *metrics.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
