package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/kvexam/papergen/internal/archive"
	"github.com/kvexam/papergen/internal/builder"
	"github.com/kvexam/papergen/internal/handler"
	appI18n "github.com/kvexam/papergen/internal/i18n"
	"github.com/kvexam/papergen/internal/llm"
	"github.com/kvexam/papergen/internal/session"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "papergen",
		Short: "Question paper generator for CBSE classes 9-12",
	}

	serve := serveCmd()
	root.AddCommand(serve, archiveCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `papergen --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the paper wizard HTTP server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("archive-db", "papergen.db", "SQLite archive path (empty disables the archive)")
	f.String("llm-url", "https://generativelanguage.googleapis.com/v1beta/openai/", "OpenAI-compatible API base URL")
	f.String("llm-key", "", "API key; when unset the built-in sample generator is used")
	f.String("llm-model", "gemini-2.5-flash", "Model name")
	f.StringP("lang", "l", "en", "Document language (en, hi)")
	f.String("access-password", "", "Shared access password (or set PAPERGEN_ACCESS_PASSWORD); empty runs open")
	f.Bool("secure-cookies", true, "Set Secure flag on the access cookie")
	f.Duration("sweep-interval", time.Hour, "How often idle sessions are swept")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect archived papers",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List archived papers as JSON",
		RunE:  runArchiveList,
	}
	list.Flags().String("archive-db", "papergen.db", "SQLite archive path")
	list.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	list.Flags().String("log-format", "text", "Log format (text, json)")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one archived paper as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runArchiveShow,
	}
	show.Flags().String("archive-db", "papergen.db", "SQLite archive path")
	show.Flags().StringP("output", "o", "-", "Output file path (- for stdout)")
	show.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	show.Flags().String("log-format", "text", "Log format (text, json)")

	cmd.AddCommand(list, show)
	return cmd
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

	v.SetEnvPrefix("PAPERGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("papergen")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/papergen")
	v.AddConfigPath("/etc/papergen")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	gen, err := selectGenerator(cmd.Context(), v)
	if err != nil {
		return err
	}

	var arch *archive.Store
	if path := v.GetString("archive-db"); path != "" {
		arch, err = archive.New(path)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer arch.Close()
	}

	cfg := handler.Config{SecureCookies: v.GetBool("secure-cookies")}
	if password := v.GetString("access-password"); password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash access password: %w", err)
		}
		cfg.AccessPasswordHash = string(hash)
	}

	registry := session.NewRegistry()
	go func() {
		interval := v.GetDuration("sweep-interval")
		for range time.Tick(interval) {
			if removed := registry.Sweep(); removed > 0 {
				slog.Info("swept idle sessions", "removed", removed, "remaining", registry.Len())
			}
		}
	}()

	h := handler.New(registry, gen, arch, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"archive_db", v.GetString("archive-db"),
		"auth", cfg.AccessPasswordHash != "",
	)
	return http.ListenAndServe(addr, r)
}

// selectGenerator wires the live gateway when an API key is configured and
// silently falls back to the built-in sample generator otherwise.
func selectGenerator(ctx context.Context, v *viper.Viper) (builder.Generator, error) {
	apiKey := v.GetString("llm-key")
	if apiKey == "" {
		slog.Info("no API key configured, using built-in sample generator")
		return llm.NewMock(), nil
	}

	client := llm.New(v.GetString("llm-url"), apiKey, v.GetString("llm-model"))
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	return client, nil
}

func runArchiveList(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	arch, err := archive.New(v.GetString("archive-db"))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer arch.Close()

	summaries, err := arch.List()
	if err != nil {
		return fmt.Errorf("list archive: %w", err)
	}

	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func runArchiveShow(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid archive id %q", args[0])
	}

	arch, err := archive.New(v.GetString("archive-db"))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer arch.Close()

	entry, err := arch.Get(id)
	if err != nil {
		return fmt.Errorf("load archive entry: %w", err)
	}
	if entry == nil {
		return fmt.Errorf("no archived paper with id %d", id)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)
	return nil
}
