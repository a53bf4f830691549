package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/engine"
	pgstore "live-quiz-service/internal/infra/postgres"
	pgmigrations "live-quiz-service/internal/infra/postgres/migrations"
	redisstore "live-quiz-service/internal/infra/redis"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestFullGameEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuiz(t, ctx, pgURL, sampleQuiz())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	quizRepo := redisstore.NewQuizRepository(redisClient, pgstore.NewQuizLoader(pool), 5*time.Minute)
	results := pgstore.NewResultsStore(pool)
	pinBoard := redisstore.NewPinBoard(redisClient, 5*time.Minute)
	eng := engine.New(engine.Config{}, quizRepo, results, pinBoard)

	session, err := eng.CreateSession(ctx, "quiz-1", "host-1", false)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if mirrored, err := pinBoard.Lookup(ctx, session.Pin()); err != nil || mirrored != session.ID() {
		t.Fatalf("expected pin mirrored in redis, got %q, %v", mirrored, err)
	}

	if _, err := session.Join("alice", "s1", true, ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := session.Join("bob", "s2", true, ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := session.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := session.AdvanceQuestion(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}

	record, err := session.SubmitAnswer("alice", 0, domain.AnswerPayload{Answer: "Paris"}, 4000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !record.Right || record.Score <= 0 {
		t.Fatalf("expected scored correct answer, got %+v", record)
	}

	finished, err := session.AdvanceQuestion(ctx)
	if err != nil {
		t.Fatalf("final advance: %v", err)
	}
	if !finished {
		t.Fatalf("expected game to finish")
	}

	finalized, ok := session.Results()
	if !ok {
		t.Fatalf("expected finalized results")
	}

	var playerCount int
	var raw []byte
	err = pool.QueryRow(ctx, `SELECT player_count, data FROM game_results WHERE id=$1`, finalized.ID).Scan(&playerCount, &raw)
	if err != nil {
		t.Fatalf("query results row: %v", err)
	}
	if playerCount != 2 {
		t.Fatalf("expected player_count 2, got %d", playerCount)
	}
	var persisted domain.GameResults
	if err := json.Unmarshal(raw, &persisted); err != nil {
		t.Fatalf("unmarshal persisted results: %v", err)
	}
	if persisted.PlayerScores["alice"] != record.Score || persisted.PlayerScores["bob"] != 0 {
		t.Fatalf("unexpected persisted scores: %+v", persisted.PlayerScores)
	}

	eng.Destroy(session.ID())
	if _, err := pinBoard.Lookup(ctx, session.Pin()); err == nil {
		t.Fatalf("expected pin removed from redis after destroy")
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuiz(t *testing.T, ctx context.Context, dsn string, quiz domain.Quiz) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(quiz)
	if err != nil {
		t.Fatalf("marshal quiz: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO quizzes (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, quiz.ID, string(data)); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:          "quiz-1",
		Title:       "Capitals",
		Description: "European capitals warm-up",
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
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
