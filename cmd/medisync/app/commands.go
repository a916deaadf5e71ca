package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/farmaciaslf/medisync"
	"github.com/farmaciaslf/medisync/pkg/constants"
	"github.com/farmaciaslf/medisync/pkg/engine"
	"github.com/farmaciaslf/medisync/pkg/state"
)

// NewSyncCommand creates the full-pipeline command.
func (a *App) NewSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run the full pipeline: plan, apply, clear taxes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			syncer, err := a.Syncer()
			if err != nil {
				return err
			}

			summary, err := syncer.Sync(cmd.Context())
			if err != nil {
				return err
			}

			if summary.Simulated {
				a.logger.Info().Msg("Simulation finished, review the persisted plan")
				a.printPlanSummary(summary.State)
				return nil
			}

			a.printResult(summary.Result)
			return nil
		},
	}
}

// NewPlanCommand creates the plan-only command.
func (a *App) NewPlanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Snapshot both catalogs and persist the reconciliation plan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			syncer, err := a.Syncer()
			if err != nil {
				return err
			}

			st, err := syncer.Plan(cmd.Context())
			if err != nil {
				return err
			}

			a.printPlanSummary(st)
			return nil
		},
	}
}

// NewApplyCommand creates the command executing the persisted plan.
func (a *App) NewApplyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Execute the persisted plan (archive, update, create)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			syncer, err := a.Syncer()
			if err != nil {
				return err
			}

			result, err := syncer.Apply(cmd.Context())
			if err != nil {
				return err
			}

			a.printResult(result)
			return nil
		},
	}
}

// NewArchiveCommand creates the archive-phase command.
func (a *App) NewArchiveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Archive the products the persisted plan marks for removal",
		RunE:  a.phaseRunE(medisync.PhaseArchive),
	}
}

// NewUpdateCommand creates the update-phase command.
func (a *App) NewUpdateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Push the title, status and price changes from the persisted plan",
		RunE:  a.phaseRunE(medisync.PhaseUpdate),
	}
}

// NewCreateCommand creates the create-phase command.
func (a *App) NewCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create the products the persisted plan marks as missing",
		RunE:  a.phaseRunE(medisync.PhaseCreate),
	}
}

// phaseRunE builds the shared runner for single-phase commands.
func (a *App) phaseRunE(phase medisync.Phase) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		syncer, err := a.Syncer()
		if err != nil {
			return err
		}

		result, err := syncer.Apply(cmd.Context(), phase)
		if err != nil {
			return err
		}

		a.printResult(result)
		return nil
	}
}

// NewRemoveTaxCommand creates the tax-clearing command.
func (a *App) NewRemoveTaxCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-tax",
		Short: "Mark every taxable variant in the store tax-free",
		RunE: func(cmd *cobra.Command, _ []string) error {
			syncer, err := a.Syncer()
			if err != nil {
				return err
			}

			totals, err := syncer.RemoveTax(cmd.Context())
			if err != nil {
				return err
			}

			a.logger.Info().
				Int("cleared", totals.OK).
				Int("errors", totals.Errors).
				Int("skipped", totals.Skipped).
				Msg("Tax pass finished")
			return nil
		},
	}
}

// NewExportSKUsCommand creates the SKU export command.
func (a *App) NewExportSKUsCommand() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export-skus",
		Short: "Export the syncable supplier SKUs as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			syncer, err := a.Syncer()
			if err != nil {
				return err
			}

			skus, err := syncer.ExportSKUs(cmd.Context())
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(skus, "", "  ")
			if err != nil {
				return err
			}

			if outputPath == "" {
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			return os.WriteFile(outputPath, data, constants.FilePermissions)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "f", "", "write the SKU list to a file instead of stdout")
	return cmd
}

// NewUnlockCommand creates the stale-lock clearing command.
func (a *App) NewUnlockCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Force-clear a stale sync lock left by a dead run",
		RunE: func(_ *cobra.Command, _ []string) error {
			syncer, err := a.Syncer()
			if err != nil {
				return err
			}

			cleared, err := syncer.Unlock()
			if err != nil {
				return err
			}

			if cleared {
				a.logger.Info().Msg("Stale lock cleared")
			} else {
				a.logger.Info().Msg("No lock present")
			}
			return nil
		},
	}
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "medisync %s (commit %s, built %s)\n", a.version, a.commit, a.date)
			return nil
		},
	}
}

// printPlanSummary logs the headline numbers of a computed plan.
func (a *App) printPlanSummary(st *state.SyncState) {
	a.logger.Info().
		Str("mode", st.Mode).
		Int("supplier", st.MedivenCount).
		Int("destination", st.ShopifyCount).
		Int("create", len(st.ToCreate)).
		Int("update", len(st.ToUpdate)).
		Int("archive", len(st.ToArchive)).
		Msg("Plan persisted")
}

// printResult logs the outcome of an apply cycle.
func (a *App) printResult(result *engine.Result) {
	a.logger.Info().
		Int("archived", result.Archived.OK).
		Int("archive_errors", result.Archived.Errors).
		Int("updated", result.Updated.OK).
		Int("update_errors", result.Updated.Errors).
		Int("created", result.Created.OK).
		Int("create_errors", result.Created.Errors).
		Msg("Apply finished")
}
