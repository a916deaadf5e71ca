package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/farmaciaslf/medisync/pkg/logging"
)

// Execute runs the medisync CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "medisync",
		Short:   "Pharmacy catalog sync",
		Version: a.version,
		Long: `Medisync reconciles the Mediven supplier inventory with the pharmacy's
Shopify storefront.

A run snapshots both catalogs, computes a reconciliation plan (create,
update, archive) and executes it as batched mutations. The plan is
persisted, so each phase can also be run on its own.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.PersistentFlags().BoolVarP(&a.config.Verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	rootCmd.PersistentFlags().BoolVar(&a.config.NoColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&a.config.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")

	rootCmd.PersistentFlags().BoolVar(&a.config.Simulate, "simulate", a.config.Simulate, "plan and persist without writing to the store")
	rootCmd.PersistentFlags().BoolVar(&a.config.DeleteMissing, "delete-missing", a.config.DeleteMissing, "archive products missing from the supplier feed")

	rootCmd.SetVersionTemplate("medisync {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	verbose := mustGetBool(cmd, "verbose")
	quiet := mustGetBool(cmd, "quiet")
	noColor := mustGetBool(cmd, "no-color")
	logLevel := mustGetString(cmd, "log-level")

	a.config.UpdateFromFlags(verbose, quiet, noColor, logLevel)

	logger := NewLogger(a.config)
	a.logger = &logger
	logging.SetDefault(logger)

	return nil
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Pipeline commands
	rootCmd.AddCommand(a.NewSyncCommand())
	rootCmd.AddCommand(a.NewPlanCommand())
	rootCmd.AddCommand(a.NewApplyCommand())

	// Phase commands
	rootCmd.AddCommand(a.NewArchiveCommand())
	rootCmd.AddCommand(a.NewUpdateCommand())
	rootCmd.AddCommand(a.NewCreateCommand())
	rootCmd.AddCommand(a.NewRemoveTaxCommand())

	// Utility commands
	rootCmd.AddCommand(a.NewExportSKUsCommand())
	rootCmd.AddCommand(a.NewUnlockCommand())
	rootCmd.AddCommand(a.NewVersionCommand())
}

// ExitOnError is a helper that prints an error and exits with status 1.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
