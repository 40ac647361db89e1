package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Guizzs26/scorebook-sync/internal/broker"
	"github.com/Guizzs26/scorebook-sync/internal/commentary"
	"github.com/Guizzs26/scorebook-sync/internal/models"
	"github.com/Guizzs26/scorebook-sync/pkg/infra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [matchId]",
	Short: "Follow live match events from the broker",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		matchID := ""
		if len(args) == 1 {
			matchID = args[0]
		}
		out := cmd.OutOrStdout()
		logger := cur.logger

		backoff := infra.NewBackoff(1*time.Second, 30*time.Second, 2.0)
		for ctx.Err() == nil {
			consumer, err := broker.NewMatchEventConsumer(cur.cfg.RabbitMQURL, matchID, logger)
			if err != nil {
				logger.Error("RabbitMQ connection failed, retrying", "attempt", backoff.Attempts()+1, "error", err)
				if !backoff.Wait(ctx) {
					return nil
				}
				continue
			}
			backoff.Reset()

			err = consumer.Listen(ctx, func(ev models.MatchEvent) {
				fmt.Fprintln(out, describe(ev))
			})
			consumer.Close()
			if err != nil {
				logger.Warn("Match event stream lost", "error", err)
			}
		}
		return nil
	},
}

func describe(ev models.MatchEvent) string {
	ts := ev.Timestamp.Local().Format("15:04:05")
	switch ev.Type {
	case models.EventBallAdded:
		text, _ := ev.Data["commentary"].(string)
		if text == "" {
			text = commentary.ForBall(ev.Data)
		}
		return fmt.Sprintf("%s [%s] %s", ts, ev.MatchID, text)
	case models.EventMatchCreated:
		return fmt.Sprintf("%s [%s] match created", ts, ev.MatchID)
	default:
		return fmt.Sprintf("%s [%s] %s %v", ts, ev.MatchID, ev.Type, map[string]any(ev.Data))
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
