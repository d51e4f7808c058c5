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

	"github.com/caarlos0/env/v9"

	"github.com/dlukyanov/gemini-slack-bot/pkg/api/handler"
	"github.com/dlukyanov/gemini-slack-bot/pkg/attachment"
	"github.com/dlukyanov/gemini-slack-bot/pkg/auth"
	"github.com/dlukyanov/gemini-slack-bot/pkg/dispatch"
	"github.com/dlukyanov/gemini-slack-bot/pkg/gemini"
	"github.com/dlukyanov/gemini-slack-bot/pkg/history"
	"github.com/dlukyanov/gemini-slack-bot/pkg/logger"
	"github.com/dlukyanov/gemini-slack-bot/pkg/prompt"
	"github.com/dlukyanov/gemini-slack-bot/pkg/render"
	"github.com/dlukyanov/gemini-slack-bot/pkg/repository"
	"github.com/dlukyanov/gemini-slack-bot/pkg/service"
	"github.com/dlukyanov/gemini-slack-bot/pkg/slackapi"
	"github.com/dlukyanov/gemini-slack-bot/pkg/workers"
)

type Config struct {
	SlackBotToken       string        `env:"SLACK_BOT_TOKEN,required"`
	GeminiAPIKey        string        `env:"GEMINI_API_KEY,required"`
	ModelName           string        `env:"MODEL_NAME" envDefault:"gemini-2.5-flash"`
	AllowedWorkspaceIDs []string      `env:"ALLOWED_SLACK_WORKSPACES" envSeparator:" "`
	Addr                string        `env:"ADDR" envDefault:":8080"`
	ModelTimeout        time.Duration `env:"MODEL_TIMEOUT" envDefault:"90s"`
	HistoryPageSize     int           `env:"HISTORY_PAGE_SIZE" envDefault:"50"`
	MaxContextTurns     int           `env:"MAX_CONTEXT_TURNS" envDefault:"30"`
	MaxContextBytes     int           `env:"MAX_CONTEXT_BYTES" envDefault:"33554432"`
	MessageChunkLimit   int           `env:"MESSAGE_CHUNK_LIMIT" envDefault:"3000"`
	DedupRetention      time.Duration `env:"DEDUP_RETENTION" envDefault:"15m"`
}

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, logger.DefaultOptions)))

	if err := runMain(); err != nil {
		slog.Error("shutting down due to error", logger.Err(err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func runMain() error {
	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case s := <-sigCh:
			slog.Info("shutting down due to signal", "signal", s.String())
			cancelFn()
		case <-ctx.Done():
		}
	}()

	workerGroup, err := setupServices(ctx)
	if err != nil {
		return err
	}

	return workerGroup.Run(ctx)
}

func setupServices(ctx context.Context) (service.Group, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing env config: %w", err)
	}

	slackClient, err := slackapi.NewClient(cfg.SlackBotToken)
	if err != nil {
		return nil, fmt.Errorf("creating slack client: %w", err)
	}

	modelClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.ModelName, cfg.ModelTimeout)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	authenticator := auth.NewAuthenticator(cfg.AllowedWorkspaceIDs)
	eventRegistry := repository.NewProcessedEventsRepository(cfg.DedupRetention)

	dispatcher := dispatch.NewDispatcher(
		authenticator,
		eventRegistry,
		history.NewResolver(slackClient, cfg.HistoryPageSize),
		prompt.NewBuilder(
			attachment.NewNormalizer(slackClient, nil),
			cfg.MaxContextTurns,
			cfg.MaxContextBytes,
		),
		modelClient,
		render.NewFormatter(cfg.MessageChunkLimit),
		slackClient,
	)

	eventsHandler := handler.NewEvents(authenticator, dispatcher)
	healthHandler := handler.NewHealth()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /slack/events", eventsHandler.HandleEvent)
	mux.HandleFunc("GET /healthz", healthHandler.Check)
	mux.HandleFunc("GET /{$}", healthHandler.Check)

	var workerGroup service.Group

	server, err := workers.NewHTTPServer(cfg.Addr, mux)
	if err != nil {
		return nil, fmt.Errorf("creating http server: %w", err)
	}
	workerGroup = append(workerGroup, server)

	return workerGroup, nil
}
