package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ballCmd = &cobra.Command{
	Use:   "ball <matchId> <fields-json>",
	Short: "Record a delivery offline",
	Example: `  scorequeue ball M1 '{"runs":4,"bowlerName":"jimmy anderson","batsmanName":"ms dhoni"}'
  scorequeue ball M1 '{"isWicket":true,"wicketType":"caught"}'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := parseFields(args[1])
		if err != nil {
			return err
		}
		id, err := cur.manager.RecordBallAdded(cmd.Context(), args[0], fields)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <matchId> <fields-json>",
	Short: "Record a partial match update offline",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := parseFields(args[1])
		if err != nil {
			return err
		}
		id, err := cur.manager.RecordMatchUpdated(cmd.Context(), args[0], fields)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create <fields-json>",
	Short: "Create a match offline under a local id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := parseFields(args[0])
		if err != nil {
			return err
		}
		actionID, matchID, err := cur.manager.RecordMatchCreated(cmd.Context(), fields)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]string{"actionId": actionID, "matchId": matchID})
	},
}

var showCmd = &cobra.Command{
	Use:   "show <matchId>",
	Short: "Print the cached match snapshot and its balls",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		match, ok, err := cur.manager.Snapshots().GetMatch(ctx, args[0])
		if err != nil {
			return err
		}
		balls, err := cur.manager.Snapshots().GetBalls(ctx, args[0])
		if err != nil {
			return err
		}
		out := map[string]any{"balls": balls}
		if ok {
			out["match"] = match
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh <matchId>",
	Short: "Replace the cached snapshot with the score API's copy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := cur.manager.RefreshMatch(cmd.Context(), cur.client, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), doc)
	},
}

func init() {
	rootCmd.AddCommand(ballCmd, updateCmd, createCmd, showCmd, refreshCmd)
}
