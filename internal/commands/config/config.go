package config

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	internalconfig "github.com/AD7six/chart-refresh-updater/internal/config"
)

// NewConfigCmd returns a cobra command that displays current configuration.
func NewConfigCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show effective configuration",
		Long:  "Shows the resolved configuration as ENV_VAR: value pairs followed by the dashboards to update.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := internalconfig.Load(&internalconfig.Overrides{ConfigFile: configFile})
			if err != nil {
				return err
			}

			displaySettings(cmd.OutOrStdout(), settings)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "f", "", "Config file (.json, .yaml, .yml or .toml)")

	return cmd
}

// displaySettings prints each setting as "ENV_VAR: value", then one line per dashboard
func displaySettings(w io.Writer, s internalconfig.Settings) {
	// Required
	fmt.Fprintf(w, "%s: %s\n", internalconfig.EnvAPIKey, maskSecret(s.APIKey))
	fmt.Fprintf(w, "%s: %s (%s)\n", internalconfig.EnvRegion, s.Region, s.Region.Endpoint())

	// Optional
	fmt.Fprintf(w, "%s: %s\n", internalconfig.EnvConfigFile, s.ConfigFile)
	fmt.Fprintf(w, "%s: %s\n", internalconfig.EnvBackupDir, s.BackupDir)
	// HTTP_TIMEOUT is in seconds
	fmt.Fprintf(w, "%s: %d\n", internalconfig.EnvHTTPTimeout, int(s.HTTPTimeout.Seconds()))
	fmt.Fprintf(w, "%s: %d\n", internalconfig.EnvHTTPMaxBodySize, s.HTTPMaxBodySize)
	fmt.Fprintf(w, "%s: %d\n", internalconfig.EnvConcurrency, s.Concurrency)
	fmt.Fprintf(w, "%s: %g\n", internalconfig.EnvRequestsPerSecond, s.RequestsPerSecond)

	fmt.Fprintf(w, "Dashboards (%d):\n", len(s.Dashboards))
	for _, d := range s.Dashboards {
		fmt.Fprintf(w, "  %s: %dms\n", d.GUID, d.RefreshRate)
	}
}

// maskSecret masks all but the last 4 characters of a secret.
func maskSecret(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
