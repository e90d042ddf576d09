package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"ecoquest-quiz-service/internal/app"
	"ecoquest-quiz-service/internal/config"
	"ecoquest-quiz-service/internal/domain"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var quizID, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a quiz as a JSON document",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := openStore(cmd, false)
			if err != nil {
				return err
			}
			defer closeFn()

			export, found, err := store.ExportQuiz(cmd.Context(), quizID)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%w: %s", domain.ErrQuizNotFound, quizID)
			}

			if output == "-" {
				_, err = cmd.OutOrStdout().Write(append(export.Data, '\n'))
				return err
			}
			path := output
			if path == "" {
				path = export.Filename
			} else if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
				path = filepath.Join(path, export.Filename)
			}
			if err := os.WriteFile(path, export.Data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			slog.Info("quiz exported", "quizId", quizID, "path", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&quizID, "id", "", "quiz to export")
	cmd.Flags().StringVar(&output, "output", "", "file or directory to write; - for stdout")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Store an exported quiz document as a new draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}

			store, closeFn, err := openStore(cmd, true)
			if err != nil {
				return err
			}
			defer closeFn()

			quiz, err := store.ImportQuiz(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %q as %s\n", quiz.Title, quiz.ID)
			return nil
		},
	}
}

func newCoursesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "courses",
		Short: "List the course catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := openStore(cmd, false)
			if err != nil {
				return err
			}
			defer closeFn()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCODE\tNAME")
			for _, c := range store.Courses(cmd.Context()) {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Code, c.Name)
			}
			return tw.Flush()
		},
	}
}

// errNotPersisted rejects writes that would be lost when the process exits.
var errNotPersisted = errors.New("the memory backend keeps nothing after exit; choose --storage sqlite, redis or postgres")

func openStore(cmd *cobra.Command, durable bool) (*app.QuizStore, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if durable && cfg.Storage.Backend == config.BackendMemory {
		return nil, nil, errNotPersisted
	}
	b, err := openBackend(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return newQuizStore(cfg, b.repo), b.close, nil
}
