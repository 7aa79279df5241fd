// Command server runs the series HTTP API. Configuration comes from
// config.yaml (or $CHEMO_CONFIG) and CHEMO_* environment variables.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/keyaloding/nasa-space-apps/internal/app"
	"github.com/keyaloding/nasa-space-apps/internal/config"
	"github.com/keyaloding/nasa-space-apps/pkg/contracts"
)

func main() {
	if err := newServerCmd().Execute(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newServerCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Serve aggregated hourly series over HTTP",
		Version:       contracts.GetFullVersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				if err := os.Setenv(config.EnvPrefix+"_CONFIG", configPath); err != nil {
					return fmt.Errorf("set config path: %w", err)
				}
			}
			application, err := app.NewApplication()
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return application.Run()
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	return cmd
}
