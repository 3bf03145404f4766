package update

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AD7six/chart-refresh-updater/internal/backup"
	"github.com/AD7six/chart-refresh-updater/internal/config"
	"github.com/AD7six/chart-refresh-updater/internal/logging"
	"github.com/AD7six/chart-refresh-updater/internal/nerdgraph"
	"github.com/AD7six/chart-refresh-updater/internal/updater"
)

// newClient builds the NerdGraph client for a run. Tests point it elsewhere.
var newClient = func(s config.Settings) (updater.DashboardClient, error) {
	return nerdgraph.NewFromSettings(s, nerdgraph.WithLogger(logging.Logger))
}

type options struct {
	configFile  string
	backupDir   string
	noBackup    bool
	debug       bool
	concurrency int
	timeout     int
}

// NewUpdateCmd returns the command that applies the configured refresh rates.
func NewUpdateCmd() *cobra.Command {
	return newUpdateCmd(&options{})
}

func newUpdateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update chart refresh rates on the configured dashboards",
		Long: "Fetches each configured dashboard, writes a local backup, sets the refresh rate\n" +
			"of every widget and saves the dashboard. A failing dashboard does not stop the\n" +
			"others; the command exits non-zero if any dashboard failed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "f", "", "Config file (.json, .yaml, .yml or .toml, default config.json or $CONFIG_FILE)")
	flags.StringVar(&opts.backupDir, "backup-dir", "", "Directory for dashboard backups (default $BACKUP_DIR or the working directory)")
	flags.BoolVar(&opts.noBackup, "no-backup", false, "Skip writing backups before updating")
	flags.BoolVarP(&opts.debug, "debug", "d", false, "Enable debug logging, including API payloads")
	flags.IntVar(&opts.concurrency, "concurrency", 1, "Number of dashboards to process in parallel")
	flags.IntVar(&opts.timeout, "timeout", 30, "HTTP request timeout in seconds")

	return cmd
}

func runUpdate(cmd *cobra.Command, opts *options) error {
	overrides := overridesFromFlags(cmd, opts)

	settings, err := config.Load(overrides)
	if err != nil {
		return err
	}
	// Usage is only useful for flag mistakes
	cmd.SilenceUsage = true

	if settings.Debug {
		logging.InitLogger("debug")
	} else {
		logging.InitLogger("")
	}
	logger := logging.Logger

	logger.Info("starting update",
		"dashboards", len(settings.Dashboards),
		"region", settings.Region,
		"config", settings.ConfigFile,
		"concurrency", settings.Concurrency)

	client, err := newClient(settings)
	if err != nil {
		return err
	}

	uopts := []updater.Option{
		updater.WithConcurrency(settings.Concurrency),
		updater.WithLogger(logger),
	}
	if settings.BackupEnabled {
		logger.Info("backups enabled", "dir", settings.BackupDir)
		uopts = append(uopts, updater.WithBackups(backup.NewWriter(settings.BackupDir)))
	} else {
		logger.Warn("backups disabled, dashboards will be modified without a local copy")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary := updater.New(client, uopts...).Run(ctx, settings.Dashboards)
	summary.Report(logger)
	return summary.Err()
}

// overridesFromFlags only carries flags that were set on the command line so
// that environment and file values still apply otherwise.
func overridesFromFlags(cmd *cobra.Command, opts *options) *config.Overrides {
	flags := cmd.Flags()
	o := &config.Overrides{
		ConfigFile: opts.configFile,
		NoBackup:   opts.noBackup,
		Debug:      opts.debug,
	}
	if flags.Changed("backup-dir") {
		o.BackupDir = &opts.backupDir
	}
	if flags.Changed("concurrency") {
		o.Concurrency = &opts.concurrency
	}
	if flags.Changed("timeout") {
		o.HTTPTimeout = &opts.timeout
	}
	return o
}
