package cli

import (
	"log/slog"

	"ecoquest-quiz-service/internal/infra/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply Postgres schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applied, err := postgres.Migrate(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				slog.Info("no new migrations")
				return nil
			}
			slog.Info("migrations applied", "migrations", applied)
			return nil
		},
	}
}
