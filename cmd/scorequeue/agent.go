package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Guizzs26/scorebook-sync/internal/control"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Serve the local control surface (sync now, clear, status, metrics)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cur.cfg.ControlAddr
		}

		srv := control.NewServer(cur.manager, cur.syncer, cur.probe, cur.logger)
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	agentCmd.Flags().String("addr", "", "listen address (default CONTROL_ADDR)")
	rootCmd.AddCommand(agentCmd)
}
