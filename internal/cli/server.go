package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecoquest-quiz-service/internal/domain"
	redisstore "ecoquest-quiz-service/internal/infra/redis"
	transport "ecoquest-quiz-service/internal/transport/http"
	"github.com/spf13/cobra"
)

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			b, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.close()

			store := newQuizStore(cfg, b.repo)
			if err := store.Load(ctx); err != nil {
				slog.Warn("initial quiz load failed, retrying on first request", "error", err)
			}

			if b.redis != nil {
				feed := redisstore.NewChangeFeed(b.redis, domain.GenerateID("instance"), slog.Default())
				updates, cancel := store.Subscribe()
				defer cancel()
				go feed.Forward(ctx, updates)
				go func() {
					err := feed.Listen(ctx, func(evt domain.QuizzesUpdated) { store.ApplyRemote(ctx, evt) })
					if err != nil {
						slog.Warn("quiz change feed stopped", "error", err)
					}
				}()
			}

			server := &http.Server{
				Addr: ":" + cfg.Server.Port,
				Handler: transport.NewRouter(store, transport.RouterOptions{
					AllowedOrigins: cfg.Server.AllowedOrigins,
					AuthorID:       cfg.Quiz.AuthorID,
					Logger:         slog.Default().With("component", "http"),
				}),
				ReadTimeout: 15 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("starting quiz service", "addr", server.Addr, "storage", cfg.Storage.Backend, "demo", cfg.Quiz.Demo)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
				slog.Info("shutting down server")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}
