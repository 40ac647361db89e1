package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Guizzs26/scorebook-sync/internal/models"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replay pending actions against the score API (sync now)",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := cur.syncer.SyncPending(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connectivity, backlog and conflict counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := cur.manager.Status(ctx, cur.probe.Probe(ctx))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), st)
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List pending actions in replay order",
	RunE: func(cmd *cobra.Command, args []string) error {
		actions, err := cur.manager.Actions().ListPending(cmd.Context())
		if err != nil {
			return err
		}
		if actions == nil {
			actions = []models.PendingAction{}
		}
		return printJSON(cmd.OutOrStdout(), actions)
	},
}

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List recorded conflicts",
	RunE: func(cmd *cobra.Command, args []string) error {
		recs, err := cur.manager.Conflicts().List(cmd.Context())
		if err != nil {
			return err
		}
		if recs == nil {
			recs = []models.ConflictRecord{}
		}
		return printJSON(cmd.OutOrStdout(), recs)
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <matchId> <KeepLocal|KeepServer|Discard|ManualRequired>",
	Short: "Tag the conflicts of a match with a resolution",
	Long:  "Tags conflict records only. Pending actions are neither replayed nor dropped.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := cur.manager.Conflicts().Resolve(cmd.Context(), args[0], models.Resolution(args[1]))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d conflict record(s) tagged %s\n", n, args[1])
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear offline data: pending actions, snapshots, conflicts and last sync time",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("refusing to clear offline data without --yes")
		}
		return cur.manager.ClearAll(cmd.Context())
	},
}

func init() {
	clearCmd.Flags().Bool("yes", false, "confirm that unsynced actions will be lost")
	rootCmd.AddCommand(syncCmd, statusCmd, pendingCmd, conflictsCmd, resolveCmd, clearCmd)
}
