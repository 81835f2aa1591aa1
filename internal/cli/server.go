package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"quiz-progress-service/internal/app"
	"quiz-progress-service/internal/auth"
	"quiz-progress-service/internal/config"
	"quiz-progress-service/internal/domain"
	"quiz-progress-service/internal/infra/file"
	"quiz-progress-service/internal/infra/memory"
	"quiz-progress-service/internal/infra/postgres"
	redisinfra "quiz-progress-service/internal/infra/redis"
	"quiz-progress-service/internal/infra/sqlite"
	"quiz-progress-service/internal/infra/trivia"
	"quiz-progress-service/internal/logging"
	"quiz-progress-service/internal/reporting"
	transport "quiz-progress-service/internal/transport/http"
)

const serviceName = "quiz-progress"

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the progress server",
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

	logger := logging.NewLogger(serviceName, cfg.Log.Level)
	slog.SetDefault(logger)
	ctx = logging.WithLogger(ctx, logger)

	flush, err := reporting.Init(cfg.Sentry.DSN, cfg.Sentry.Environment)
	if err != nil {
		return fmt.Errorf("init sentry: %w", err)
	}
	defer flush()

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
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	factory, closeStorage, err := progressStorageFactory(cfg, redisClient)
	if err != nil {
		return err
	}
	defer closeStorage()

	registry := app.NewProgressRegistry(
		factory,
		config.TTLDuration(cfg.Progress.IdleTTL, 30*time.Minute),
		func(userID string) app.FailureHandler { return reporting.StorageFailure(userID) },
	)
	defer registry.Close()

	triviaClient := trivia.NewClient(
		cfg.Trivia.BaseURL,
		config.TTLDuration(cfg.Trivia.Timeout, 10*time.Second),
		trivia.WithMinInterval(config.TTLDuration(cfg.Trivia.MinInterval, trivia.DefaultMinInterval)),
	)
	cacheTTL := config.TTLDuration(cfg.Trivia.CacheTTL, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	var questions app.QuestionSource
	if redisClient != nil {
		questions = redisinfra.NewQuestionCache(redisClient, triviaClient, cacheTTL)
	} else {
		questions = memory.NewQuestionCache(triviaClient, cacheTTL)
	}

	var (
		profiles     app.ProfileRepository
		catalog      app.QuizCatalog
		attempts     app.AttemptRepository
		achievements app.AchievementRepository
	)
	if pool != nil {
		profiles = postgres.NewProfileRepository(pool)
		catalog = postgres.NewQuizCatalog(pool)
		attempts = postgres.NewAttemptRepository(pool)
		achievements = postgres.NewAchievementRepository(pool)
	} else {
		profiles = memory.NewProfileRepository()
		catalog = memory.NewQuizCatalog(sampleQuizzes()...)
		attempts = memory.NewAttemptRepository()
		achievements = memory.NewAchievementRepository()
	}

	verifier, err := auth.NewVerifier(auth.Config{
		Mode:     auth.Mode(cfg.Auth.Mode),
		Secret:   cfg.Auth.Secret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
	})
	if err != nil {
		return err
	}
	var revocations auth.Revocations
	if redisClient != nil {
		revocations = redisinfra.NewRevocations(redisClient)
	} else {
		memRevocations := auth.NewMemoryRevocations()
		defer memRevocations.Stop()
		revocations = memRevocations
	}

	defaultAmount := cfg.Trivia.DefaultAmount
	if defaultAmount == 0 {
		defaultAmount = app.DefaultQuestionAmount
	}
	router := transport.NewRouter(transport.Services{
		Progress:              registry,
		Quizzes:               app.NewQuizService(questions, catalog, attempts, registry),
		Profiles:              app.NewProfileService(profiles, achievements, attempts, registry),
		Verifier:              verifier,
		Revocations:           revocations,
		DefaultQuestionAmount: defaultAmount,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info("starting progress service", "port", finalPort, "backend", cfg.Progress.Backend, "auth", cfg.Auth.Mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// progressStorageFactory selects where per-user progress entries live. The
// returned close function releases backend resources.
func progressStorageFactory(cfg config.Config, redisClient *redis.Client) (app.StorageFactory, func() error, error) {
	noClose := func() error { return nil }
	switch cfg.Progress.Backend {
	case config.BackendRedis:
		if redisClient == nil {
			return nil, nil, errors.New("progress backend redis requires redis.addr")
		}
		return func(userID string) app.ProgressStorage {
			return redisinfra.NewProgressStorage(redisClient, userID)
		}, noClose, nil
	case config.BackendFile:
		root := cfg.Progress.Dir
		return func(userID string) app.ProgressStorage {
			return file.UserStorage(root, userID)
		}, noClose, nil
	case config.BackendSQLite:
		dsn, err := sqliteDSN(cfg)
		if err != nil {
			return nil, nil, err
		}
		db, err := sqlite.Open(dsn)
		if err != nil {
			return nil, nil, err
		}
		return func(userID string) app.ProgressStorage {
			return db.Storage(userID)
		}, db.Close, nil
	default:
		storages := memory.NewProgressStorageSet()
		return func(userID string) app.ProgressStorage {
			return storages.For(userID)
		}, noClose, nil
	}
}

// sqliteDSN defaults to progress.db in the progress directory, creating it.
func sqliteDSN(cfg config.Config) (string, error) {
	if cfg.Progress.DSN != "" {
		return cfg.Progress.DSN, nil
	}
	dir := cfg.Progress.Dir
	if dir == "" {
		dir = file.DefaultDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create progress dir: %w", err)
	}
	return filepath.Join(dir, "progress.db"), nil
}

// sampleQuizzes seeds the in-memory catalog when no database is configured.
func sampleQuizzes() []domain.Quiz {
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tenMinutes := 600
	return []domain.Quiz{
		{
			ID:          "everyday-phrasal-verbs",
			Title:       "Everyday phrasal verbs",
			Description: "Pick the phrasal verb that fits the sentence.",
			Difficulty:  string(domain.DifficultyEasy),
			XPReward:    50,
			IsPublished: true,
			CreatedAt:   created,
		},
		{
			ID:          "tricky-tenses",
			Title:       "Tricky tenses",
			Description: "Perfect and continuous forms under time pressure.",
			Difficulty:  string(domain.DifficultyHard),
			XPReward:    150,
			TimeLimit:   &tenMinutes,
			IsPublished: true,
			CreatedAt:   created.Add(24 * time.Hour),
		},
	}
}
