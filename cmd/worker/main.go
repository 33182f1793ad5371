package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/address-matcher/app/config"
	"github.com/address-matcher/app/services"
	"github.com/address-matcher/internal/bootstrap"
	"github.com/address-matcher/internal/gazetteer"
	"github.com/address-matcher/internal/parser"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app is the state shared by every subcommand, built before each run.
type app struct {
	settings *bootstrap.Settings
	cfg      *config.PipelineCfg
	logger   *zap.Logger
}

func (a *app) parser() *parser.AddressParser {
	return bootstrap.NewParser(a.settings, a.cfg, gazetteer.Default(), nil, a.logger)
}

// batchCache opens the sqlite batch cache; failures only disable it.
func (a *app) batchCache() *services.BatchCacheService {
	if a.settings.BatchCachePath == "" {
		return nil
	}
	bc, err := services.NewBatchCacheService(a.settings.BatchCachePath, a.logger)
	if err != nil {
		a.logger.Warn("Batch cache disabled", zap.Error(err))
		return nil
	}
	return bc
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var configPath, settingsPath, logLevel string

	root := &cobra.Command{
		Use:           "worker",
		Short:         "Turkish address normalization, parsing and matching",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := bootstrap.LoadSettings(settingsPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				s.LogLevel = logLevel
			}
			if configPath != "" {
				s.PipelineConfig = configPath
			}
			logger, err := bootstrap.NewLogger(s.Env, s.LogLevel)
			if err != nil {
				return err
			}
			cfg, err := bootstrap.LoadPipeline(s.PipelineConfig)
			if err != nil {
				return err
			}
			a.settings, a.cfg, a.logger = s, cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "pipeline YAML (defaults when missing)")
	root.PersistentFlags().StringVar(&settingsPath, "settings", "", "app settings YAML")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		newNormalizeCmd(a),
		newParseCmd(a),
		newMatchCmd(a),
		newEvalCmd(a),
		newSubmitCmd(a),
		newPreviewCmd(a),
		newSynthCmd(a),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
