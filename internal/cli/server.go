package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"live-quiz-service/internal/config"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/engine"
	"live-quiz-service/internal/infra/memory"
	pgstore "live-quiz-service/internal/infra/postgres"
	redisstore "live-quiz-service/internal/infra/redis"
	"live-quiz-service/internal/logger"
	transport "live-quiz-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the live quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Init()
			defer logger.Sync()
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgstore.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo engine.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var results engine.ResultsWriter
	if pool != nil {
		results = pgstore.NewResultsStore(pool)
	} else {
		results = memory.NewResultsStore()
	}

	var pinSink engine.PinSink
	if redisClient != nil {
		pinSink = redisstore.NewPinBoard(redisClient, redisTTL)
	}

	eng := engine.New(engine.Config{
		MaxSessions:   cfg.Game.MaxSessions,
		PinDigits:     cfg.Game.PinDigits,
		AllowLateJoin: cfg.Game.AllowLateJoin,
		BaseScore:     cfg.Game.BaseScore,
		MaxScore:      cfg.Game.MaxScore,
	}, quizRepo, results, pinSink)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewGameHandler(eng).Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting live quiz service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes seeds the no-database demo mode; production deployments
// load quizzes from Postgres.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:          "quiz-1",
			Title:       "Capitals of Europe",
			Description: "A short warm-up round",
			Questions: []domain.Question{
				{
					Prompt: "What is the capital of France?",
					Time:   20,
					Type:   domain.QuestionABCD,
					Choices: []domain.Choice{
						{Answer: "Berlin"},
						{Answer: "Paris", Right: true},
						{Answer: "Madrid"},
					},
				},
				{
					Prompt: "Type the capital of Italy",
					Time:   20,
					Type:   domain.QuestionText,
					Texts:  []domain.TextKey{{Answer: "Rome", CaseSensitive: false}},
				},
				{
					Prompt: "Guess the population of Berlin (millions)",
					Time:   15,
					Type:   domain.QuestionRange,
					Range:  &domain.RangeKey{Min: 0, Max: 10, MinCorrect: 3, MaxCorrect: 4},
				},
			},
		},
	}
}
