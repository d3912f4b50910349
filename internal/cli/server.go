package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"quizroom-service/internal/app"
	"quizroom-service/internal/config"
	"quizroom-service/internal/domain"
	"quizroom-service/internal/infra/memory"
	pgloader "quizroom-service/internal/infra/postgres"
	redisinfra "quizroom-service/internal/infra/redis"
	transport "quizroom-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz room server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.BankLoader = memory.NewStaticBankLoader(sampleBanks())
	if pool != nil {
		loader = pgloader.NewBankLoader(pool)
	}

	bankID := cfg.Quiz.Bank
	if bankID == "" {
		bankID = "bank-1"
	}
	bankTTL := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	var banks app.BankRepository
	if redisClient != nil {
		banks = redisinfra.NewBankRepository(redisClient, loader, bankTTL)
	} else {
		banks = memory.NewBankRepository(loader, bankTTL)
	}

	var registry app.RoomRegistry
	if redisClient != nil {
		registry = redisinfra.NewRoomRegistry(redisClient, redisTTL)
	} else {
		registry = memory.NewRoomRegistry()
	}

	hub := transport.NewHub(logger)
	service := app.NewRoomService(app.RoomServiceConfig{
		Registry: registry,
		Banks:    banks,
		BankID:   bankID,
		Sink:     hub,
		Settings: gameSettings(cfg),
		Logger:   logger,
	})
	wsHandler := transport.NewWSHandler(service, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info().Str("port", finalPort).Msg("starting quiz room service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info().Msg("shutting down server...")
	case <-ctx.Done():
		logger.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func gameSettings(cfg config.Config) app.Settings {
	s := app.DefaultSettings()
	if cfg.Game.MinPlayers > 0 {
		s.MinPlayers = cfg.Game.MinPlayers
	}
	if cfg.Game.MaxPlayers > 0 {
		s.MaxPlayers = cfg.Game.MaxPlayers
	}
	s.QuestionTimer = config.Duration(cfg.Game.QuestionTimer, s.QuestionTimer)
	s.TimerBuffer = config.Duration(cfg.Game.TimerBuffer, s.TimerBuffer)
	s.GraceDelay = config.Duration(cfg.Game.GraceDelay, s.GraceDelay)
	return s
}

// sampleBanks provides a small built-in question bank; configure Postgres to
// serve authored content in production.
func sampleBanks() map[string]domain.QuestionBank {
	return map[string]domain.QuestionBank{
		"bank-1": {
			ID: "bank-1",
			Questions: []domain.Question{
				{
					Kind:    domain.MultipleChoice,
					Prompt:  "Data presented as <b>numbers</b> is called...",
					Options: []string{"Qualitative", "Quantitative", "Descriptive", "Narrative"},
					Answer:  "Quantitative",
				},
				{
					Kind:    domain.MultipleChoice,
					Prompt:  "A word with the <b>opposite</b> meaning is called a...",
					Options: []string{"Synonym", "Antonym", "Homonym", "Acronym"},
					Answer:  "Antonym",
				},
				{
					Kind:   domain.FreeText,
					Prompt: "The most effective medium for promoting goods is...",
					Answer: "Advertising",
				},
				{
					Kind:    domain.TrueFalse,
					Prompt:  "A closing section must contain a restatement of the thesis.",
					Options: []string{"True", "False"},
					Answer:  "True",
				},
			},
		},
	}
}
