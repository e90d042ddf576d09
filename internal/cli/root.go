package cli

import (
	"log/slog"
	"os"
	"strings"

	"ecoquest-quiz-service/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfigPath = "config/config.yaml"

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ecoquest",
		Short:        "EcoQuest quiz authoring and scoring service",
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", defaultConfigPath, "path to YAML config")
	flags.String("port", "", "port to listen on")
	flags.Bool("demo", true, "seed sample quizzes when none are stored")
	flags.String("storage", "", "storage backend: memory, sqlite, redis or postgres")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")

	cmd.AddCommand(newStartCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newCoursesCmd())
	return cmd
}

// viperForCmd binds a command's flags and ECOQUEST_* environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("ECOQUEST")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"sqlite-path", "redis-addr", "redis-password", "postgres-url", "author-id"} {
		_ = v.BindEnv(key)
	}
	return v
}

// loadConfig reads the YAML file and applies flag and environment overrides, then
// configures logging from the result.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	v := viperForCmd(cmd)

	optional := !v.IsSet("config")
	cfg, err := config.Load(v.GetString("config"), optional)
	if err != nil {
		return cfg, err
	}

	if v.IsSet("port") {
		cfg.Server.Port = v.GetString("port")
	}
	if v.IsSet("demo") {
		cfg.Quiz.Demo = v.GetBool("demo")
	}
	if v.IsSet("storage") {
		cfg.Storage.Backend = v.GetString("storage")
	}
	if v.IsSet("log-level") {
		cfg.Log.Level = v.GetString("log-level")
	}
	if v.IsSet("log-format") {
		cfg.Log.Format = v.GetString("log-format")
	}
	if v.IsSet("sqlite-path") {
		cfg.SQLite.Path = v.GetString("sqlite-path")
	}
	if v.IsSet("redis-addr") {
		cfg.Redis.Addr = v.GetString("redis-addr")
	}
	if v.IsSet("redis-password") {
		cfg.Redis.Password = v.GetString("redis-password")
	}
	if v.IsSet("postgres-url") {
		cfg.Postgres.URL = v.GetString("postgres-url")
	}
	if v.IsSet("author-id") {
		cfg.Quiz.AuthorID = v.GetString("author-id")
	}

	setupLogging(cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setupLogging(cfg config.Config) {
	var logLevel slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}
