package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	_ "time/tzdata" // America/Sao_Paulo в образах без системной tzdata

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "doubot",
	Short: "Monitor the Diário Oficial da União and deliver a daily digest",
	Long: `doubot searches the DOU portal for the configured phrases, enriches
every new publication, filters it by edition and organization and delivers
the digest by email and Telegram.

Without a subcommand it performs a single run.`,
	SilenceUsage: true,
	RunE:         runDigest,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "path to the YAML config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default LOG_LEVEL or info)")
	addRunFlags(rootCmd)
}

func main() {
	// .env необязателен: в CI секреты приходят из окружения
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// newLogger создаёт текстовый slog-логгер; флаг важнее LOG_LEVEL.
func newLogger(envLevel string) *slog.Logger {
	level := logLevel
	if level == "" {
		level = envLevel
	}
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}
