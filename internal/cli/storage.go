package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ecoquest-quiz-service/internal/app"
	"ecoquest-quiz-service/internal/config"
	"ecoquest-quiz-service/internal/infra/memory"
	"ecoquest-quiz-service/internal/infra/postgres"
	redisstore "ecoquest-quiz-service/internal/infra/redis"
	"ecoquest-quiz-service/internal/infra/sqlite"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// backend is an opened collection repository plus what it holds open.
type backend struct {
	repo  app.CollectionRepository
	redis *redis.Client
	close func()
}

// openBackend connects the configured storage. Durable backends are fronted by a
// read-through cache.
func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	b := &backend{close: func() {}}
	var durable memory.Backend

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		b.repo = memory.NewCollectionStore()
		return b, nil
	case config.BackendSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		durable = store
		b.close = func() { store.Close() }
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		durable = redisstore.NewCollectionStore(client)
		b.redis = client
		b.close = func() { client.Close() }
	case config.BackendPostgres:
		applied, err := postgres.Migrate(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		if len(applied) > 0 {
			slog.Info("migrations applied", "migrations", applied)
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		durable = postgres.NewCollectionStore(pool)
		b.close = pool.Close
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	ttl := config.TTLDuration(cfg.Cache.TTL, 10*time.Minute)
	b.repo = memory.NewCachedRepository(durable, ttl)
	slog.Info("storage ready", "backend", cfg.Storage.Backend, "cacheTTL", ttl)
	return b, nil
}

func newQuizStore(cfg config.Config, repo app.CollectionRepository) *app.QuizStore {
	return app.NewQuizStore(repo, app.StoreOptions{
		Demo:     cfg.Quiz.Demo,
		AuthorID: cfg.Quiz.AuthorID,
		Logger:   slog.Default().With("component", "quiz-store"),
	})
}
