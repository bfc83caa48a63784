package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"amt-quiz-service/internal/config"
	"amt-quiz-service/internal/domain"
	"amt-quiz-service/internal/infra/memory"
	pginfra "amt-quiz-service/internal/infra/postgres"
	redisinfra "amt-quiz-service/internal/infra/redis"
	"amt-quiz-service/internal/quiz"
	transport "amt-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleBanks())
	if pool != nil {
		loader = pginfra.NewQuestionLoader(pool)
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var questions quiz.QuestionRepository
	if redisClient != nil {
		questions = redisinfra.NewQuestionRepository(redisClient, loader, questionTTL)
	} else {
		questions = memory.NewQuestionRepository(loader, questionTTL)
	}

	var sessions quiz.SessionRepository
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	var reporter quiz.ResultReporter = memory.NewResultReporter()
	if pool != nil {
		reporter = pginfra.NewResultReporter(pool)
	}

	tick := config.TTLDuration(cfg.Timer.Tick, time.Second)
	service := quiz.NewQuizServiceWithTick(sessions, questions, reporter, tick)
	wsHandler := transport.NewWSHandler(service)

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
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleBanks provides a minimal question set so the service runs without
// Postgres; production deployments load banks from the database.
func sampleBanks() map[string][]domain.Question {
	return map[string][]domain.Question{
		"powerplant-ignition": {
			{
				ID:   1,
				Text: "What type of magneto ignition supplies the high voltage for the spark plugs?",
				Options: map[domain.OptionLabel]string{
					domain.OptionA: "Low-tension magneto with transformer coils",
					domain.OptionB: "High-tension magneto",
					domain.OptionC: "Battery ignition coil",
					domain.OptionD: "Capacitor discharge unit",
				},
				CorrectOption: domain.OptionB,
				Explanation:   "A high-tension magneto generates the spark voltage directly in its secondary winding.",
			},
			{
				ID:   2,
				Text: "Spark plug fouling caused by lead deposits is most likely after",
				Options: map[domain.OptionLabel]string{
					domain.OptionA: "Prolonged idling at low engine temperature",
					domain.OptionB: "Full-power climb",
					domain.OptionC: "Cruise at best economy",
					domain.OptionD: "Shutdown with mixture at idle cutoff",
				},
				CorrectOption: domain.OptionA,
			},
			{
				ID:   3,
				Text: "Ignition switch grounding wires are called",
				Options: map[domain.OptionLabel]string{
					domain.OptionA: "B leads",
					domain.OptionB: "T leads",
					domain.OptionC: "P leads",
					domain.OptionD: "S leads",
				},
				CorrectOption: domain.OptionC,
			},
		},
	}
}
