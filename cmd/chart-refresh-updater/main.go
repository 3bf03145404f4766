package main

import (
	"github.com/spf13/cobra"

	"github.com/AD7six/chart-refresh-updater/internal/commands/config"
	"github.com/AD7six/chart-refresh-updater/internal/commands/update"
	"github.com/AD7six/chart-refresh-updater/internal/commands/version"
)

func main() {
	// Running without a subcommand performs the update
	root := update.NewUpdateCmd()
	root.Use = "chart-refresh-updater"
	root.Short = "Bulk update chart refresh rates on New Relic dashboards"
	root.Version = version.Version

	root.AddCommand(update.NewUpdateCmd())
	root.AddCommand(config.NewConfigCmd())
	root.AddCommand(version.NewVersionCmd())

	cobra.CheckErr(root.Execute())
}
