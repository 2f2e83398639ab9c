package main

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/2beens/pushups/internal/pushups/days"
	"github.com/2beens/pushups/internal/pushups/entries"
	"github.com/2beens/pushups/internal/telemetry/metrics"
	"github.com/2beens/pushups/internal/users"
)

func newRecomputeCmd(opts *rootOptions) *cobra.Command {
	var (
		userID   int
		timezone string
	)

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute stored streaks from the entry history",
		Long: `Recompute rebuilds current and longest streaks from every entry.
Without --user-id all users are recomputed, each in their profile timezone
unless --timezone is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			normalizer, err := days.NewNormalizer(cfg.DefaultTimezone, time.Now)
			if err != nil {
				return err
			}

			metricsManager := metrics.NewManager("pushups", "cli", nil)
			usersRepo := users.NewRepo(pool)
			entriesRepo := entries.NewRepo(pool)
			orchestrator := entries.NewOrchestrator(usersRepo, entriesRepo, normalizer, metricsManager)

			if userID > 0 {
				state, err := orchestrator.Recompute(ctx, userID, timezone)
				if err != nil {
					return fmt.Errorf("recompute user %d: %w", userID, err)
				}
				log.Infof("user %d: current streak %d, longest streak %d", userID, state.Current, state.Longest)
				return nil
			}

			service := entries.NewService(entries.ServiceParams{
				Users:          usersRepo,
				Entries:        entriesRepo,
				Orchestrator:   orchestrator,
				Normalizer:     normalizer,
				MetricsManager: metricsManager,
			})
			recomputed, err := service.RecomputeAll(ctx, timezone)
			if err != nil {
				return fmt.Errorf("recompute all: %w", err)
			}
			log.Infof("recomputed streaks of %d users", recomputed)
			return nil
		},
	}

	cmd.Flags().IntVar(&userID, "user-id", 0, "recompute only this user")
	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA timezone used to derive today (default: profile timezone)")

	return cmd
}
