package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pavelanni/examreport/internal/enrich"
	appI18n "github.com/pavelanni/examreport/internal/i18n"
	"github.com/pavelanni/examreport/internal/llm"
	"github.com/pavelanni/examreport/internal/service"
	"github.com/pavelanni/examreport/internal/stats"
	"github.com/pavelanni/examreport/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: could not load .env:", err)
	}
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "examreport",
		Short: "Exam result analysis and AI-assisted class reports",
	}

	serve := serveCmd()
	root.AddCommand(serve, ingestCmd(), reportCmd(), exportCmd(), usersCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `examreport --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLogFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addStoreFlags(f *pflag.FlagSet) {
	f.String("db", "examreport.db", "SQLite database path")
	f.String("redis-url", "", "Redis URL; with --db it caches datasets, alone it stores them (e.g. redis://localhost:6379/0)")
	f.Duration("redis-ttl", 0, "Expiry of Redis dataset keys (0 = never)")
	f.String("store", "sqlite", "Dataset store (sqlite, redis)")
	f.StringP("user", "u", "default", "User whose dataset to use")
}

func addLLMFlags(f *pflag.FlagSet) {
	def := llm.DefaultConfig()
	f.String("llm-provider", def.Provider, "AI provider (openai, gemini, mock)")
	f.String("llm-url", "", "OpenAI-compatible API base URL (openai provider only)")
	f.String("llm-key", "", "API key for the AI provider")
	f.String("llm-model", def.ModelName, "Model name")
	f.Float64("llm-temperature", def.ResponseTemperature, "Sampling temperature")
	f.Int("llm-max-prompt-chars", def.MaxPromptChars, "Truncate prompts longer than this (0 = no limit)")
	f.Duration("llm-timeout", def.Timeout, "Timeout of a single AI call")
}

func addColumnFlags(f *pflag.FlagSet) {
	def := stats.DefaultColumns()
	f.StringSlice("student-column", def.StudentLabels, "Header substrings identifying the student column")
	f.StringSlice("score-column", def.ScoreLabels, "Header substrings identifying the score column")
	f.StringSlice("summary-row", def.SummaryRowMarkers, "Student cell values marking the summary row")
	f.String("correct-mark", def.Correct, "Cell mark for a correct answer")
	f.String("incorrect-mark", def.Incorrect, "Cell mark for an incorrect answer")
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
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
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("EXAMREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examreport")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examreport")
	v.AddConfigPath("/etc/examreport")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func llmConfig(v *viper.Viper) llm.Config {
	return llm.Config{
		Provider:            strings.ToLower(strings.TrimSpace(v.GetString("llm-provider"))),
		APIKey:              v.GetString("llm-key"),
		ModelName:           v.GetString("llm-model"),
		BaseURL:             v.GetString("llm-url"),
		ResponseTemperature: v.GetFloat64("llm-temperature"),
		MaxPromptChars:      v.GetInt("llm-max-prompt-chars"),
		Timeout:             v.GetDuration("llm-timeout"),
	}
}

func columns(v *viper.Viper) stats.Columns {
	return stats.Columns{
		StudentLabels:     v.GetStringSlice("student-column"),
		ScoreLabels:       v.GetStringSlice("score-column"),
		SummaryRowMarkers: v.GetStringSlice("summary-row"),
		Correct:           strings.ToUpper(strings.TrimSpace(v.GetString("correct-mark"))),
		Incorrect:         strings.ToUpper(strings.TrimSpace(v.GetString("incorrect-mark"))),
	}
}

// openStore builds the configured dataset store.
func openStore(ctx context.Context, v *viper.Viper) (store.DocumentStore, error) {
	redisURL := v.GetString("redis-url")
	switch strings.ToLower(v.GetString("store")) {
	case "redis":
		if redisURL == "" {
			return nil, errors.New("--store=redis requires --redis-url")
		}
		rs, err := store.NewRedis(ctx, redisURL, v.GetDuration("redis-ttl"))
		if err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}
		slog.Info("using redis dataset store")
		return rs, nil
	case "sqlite", "":
	default:
		return nil, fmt.Errorf("unknown store %q", v.GetString("store"))
	}

	db, err := store.NewSQLite(v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if redisURL == "" {
		return db, nil
	}
	rs, err := store.NewRedis(ctx, redisURL, v.GetDuration("redis-ttl"))
	if err != nil {
		slog.Warn("redis unavailable, continuing without dataset cache", "error", err)
		return db, nil
	}
	slog.Info("using redis dataset cache in front of sqlite")
	return store.NewCached(db, rs), nil
}

// newGenerator creates the AI client and checks the endpoint when it can.
func newGenerator(ctx context.Context, v *viper.Viper) (llm.Generator, error) {
	cfg := llmConfig(v)
	gen, err := llm.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}
	if p, ok := gen.(llm.Pinger); ok {
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := p.Ping(pingCtx); err != nil {
			slog.Warn("LLM health check failed, AI analysis may be unavailable", "error", err)
		} else {
			slog.Info("LLM endpoint OK", "provider", cfg.Provider, "model", cfg.ModelName)
		}
	}
	return gen, nil
}

// newService wires the store, the optional AI client and the service.
// The returned close function releases the store.
func newService(ctx context.Context, v *viper.Viper, withAI bool) (*service.Service, func(), error) {
	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return nil, nil, fmt.Errorf("init i18n: %w", err)
	}

	st, err := openStore(ctx, v)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if err := st.Close(); err != nil {
			slog.Error("close store", "error", err)
		}
	}

	var enricher *enrich.Enricher
	if withAI {
		gen, err := newGenerator(ctx, v)
		if err != nil {
			closeStore()
			return nil, nil, err
		}
		enricher = enrich.New(gen)
	}
	return service.New(st, enricher, service.WithColumns(columns(v))), closeStore, nil
}
