package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/findologic/plugin-shopware-5-sub000/internal/app"
	"github.com/findologic/plugin-shopware-5-sub000/internal/config"
	"github.com/findologic/plugin-shopware-5-sub000/pkg/logger"
)

var (
	envFiles []string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "searchctl",
	Short:         "Operate the shop search bridge",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files loaded before the environment is read")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger() *slog.Logger {
	return logger.NewTerminal(logLevel, os.Stderr)
}

func loadConfig() (*config.Config, error) {
	var existing []string
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	cfg, err := config.LoadWithDotenv(existing...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// withApp loads the config, wires the application and closes it after fn.
func withApp(fn func(a *app.App, cfg *config.Config, log *slog.Logger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger()

	a, err := app.NewApp(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("close application", slog.String("error", err.Error()))
		}
	}()
	return fn(a, cfg, log)
}
