// Command seed loads the province and district gazetteer into Meilisearch.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/address-matcher/app/services"
	"github.com/address-matcher/internal/bootstrap"
	"github.com/address-matcher/internal/gazetteer"
	"github.com/address-matcher/internal/search"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	var (
		settingsPath  string
		gazetteerPath string
		exportPath    string
		dryRun        bool
	)

	cmd := &cobra.Command{
		Use:           "seed",
		Short:         "Seed the admin_units search index from the gazetteer",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := bootstrap.LoadSettings(settingsPath)
			if err != nil {
				return err
			}
			logger, err := bootstrap.NewLogger(s.Env, s.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			gaz, err := loadGazetteer(gazetteerPath)
			if err != nil {
				return err
			}
			p, d := gaz.Stats()
			logger.Info("Gazetteer loaded", zap.Int("provinces", p), zap.Int("districts", d))

			if exportPath != "" {
				if err := exportUnits(exportPath, search.AdminUnitsFromGazetteer(gaz)); err != nil {
					return err
				}
				logger.Info("Admin units exported", zap.String("path", exportPath))
			}

			var seeder services.GazetteerSeeder
			if !dryRun {
				s.SearchEnabled = true
				searcher, err := bootstrap.NewSearcher(s, logger)
				if err != nil {
					return fmt.Errorf("meilisearch: %w", err)
				}
				seeder = searcher
			}

			resp, err := services.NewAdminService(nil, gaz, seeder, logger).SeedGazetteer(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d units in %dms\n", resp.Message, resp.UnitsProcessed, resp.ProcessingTimeMs)
			return nil
		},
	}

	cmd.Flags().StringVar(&settingsPath, "settings", "", "app settings file (default ./config/app.yaml)")
	cmd.Flags().StringVar(&gazetteerPath, "gazetteer", "", "gazetteer YAML (default embedded)")
	cmd.Flags().StringVar(&exportPath, "export", "", "also write the admin units as JSON to this path")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate only, do not touch the index")
	return cmd
}

func loadGazetteer(path string) (*gazetteer.Gazetteer, error) {
	if path == "" {
		return gazetteer.Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gazetteer: %w", err)
	}
	return gazetteer.Load(b)
}

func exportUnits(path string, units any) error {
	b, err := json.MarshalIndent(units, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal admin units: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
}
