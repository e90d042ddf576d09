package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"ecoquest-quiz-service/internal/app"
	"ecoquest-quiz-service/internal/domain"
	"ecoquest-quiz-service/internal/infra/memory"
	"ecoquest-quiz-service/internal/infra/postgres"
	infraredis "ecoquest-quiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestQuizStoreOnPostgres(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	applied, err := postgres.Migrate(ctx, pgURL)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("expected one migration applied, got %v", applied)
	}
	if again, err := postgres.Migrate(ctx, pgURL); err != nil || len(again) != 0 {
		t.Fatalf("second migrate must be a no-op, got %v err=%v", again, err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	repo := memory.NewCachedRepository(postgres.NewCollectionStore(pool), time.Minute)
	store := app.NewQuizStore(repo, app.StoreOptions{Demo: true})

	dup, found, err := store.DuplicateQuiz(ctx, "quiz_climate_basics")
	if err != nil || !found {
		t.Fatalf("duplicate: found=%v err=%v", found, err)
	}

	// A fresh instance without the cache reads what was written.
	fresh := app.NewQuizStore(postgres.NewCollectionStore(pool), app.StoreOptions{})
	got, ok := fresh.Quiz(ctx, dup.ID)
	if !ok || got.Title != "Climate Change Basics (Copy)" {
		t.Fatalf("expected duplicate persisted, got %+v ok=%v", got, ok)
	}
	if n := len(fresh.Courses(ctx)); n != 4 {
		t.Fatalf("expected seeded courses persisted, got %d", n)
	}
}

func TestChangeFeedBetweenInstances(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	requireDocker(t)

	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	clientA, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	clientB, _ := redisClientFromURL(redisURL)

	storeA := app.NewQuizStore(infraredis.NewCollectionStore(clientA), app.StoreOptions{})
	storeB := app.NewQuizStore(infraredis.NewCollectionStore(clientB), app.StoreOptions{})
	if err := storeA.Load(ctx); err != nil {
		t.Fatalf("load a: %v", err)
	}
	if err := storeB.Load(ctx); err != nil {
		t.Fatalf("load b: %v", err)
	}

	feedA := infraredis.NewChangeFeed(clientA, "a", nil)
	feedB := infraredis.NewChangeFeed(clientB, "b", nil)
	updatesA, cancelA := storeA.Subscribe()
	defer cancelA()
	go feedA.Forward(ctx, updatesA)

	received := make(chan struct{}, 1)
	go func() {
		_ = feedB.Listen(ctx, func(evt domain.QuizzesUpdated) {
			storeB.ApplyRemote(ctx, evt)
			received <- struct{}{}
		})
	}()
	waitForSubscriber(t, ctx, clientA)

	created, err := storeA.CreateQuiz(ctx, domain.Quiz{Title: "Mangroves"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for remote update")
	}
	if q, ok := storeB.Quiz(ctx, created.ID); !ok || q.Title != "Mangroves" {
		t.Fatalf("expected instance b to see the quiz, got %+v ok=%v", q, ok)
	}
}

func waitForSubscriber(t *testing.T, ctx context.Context, client *goredis.Client) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		counts, err := client.PubSubNumSub(ctx, infraredis.ChangesChannel).Result()
		if err == nil && counts[infraredis.ChangesChannel] > 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("change feed subscriber did not register")
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "ecoquest", "POSTGRES_PASSWORD": "ecoquest", "POSTGRES_DB": "ecoquest"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
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
	dsn := fmt.Sprintf("postgres://ecoquest:ecoquest@%s:%s/ecoquest?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(context.Background())
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
		_ = container.Terminate(context.Background())
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
