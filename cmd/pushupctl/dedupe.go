package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/2beens/pushups/internal/db"
	"github.com/2beens/pushups/internal/maintenance"
)

func newDedupeDaysCmd(opts *rootOptions) *cobra.Command {
	var (
		dryRun        bool
		addConstraint bool
	)

	cmd := &cobra.Command{
		Use:   "dedupe-days",
		Short: "Collapse duplicate entries of the same user and day",
		Long: `dedupe-days keeps the earliest entry of every (user, day) pair with the
max count and the OR of goal met, and deletes the others. Run it on legacy
data before adding the one entry per day constraint.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			sqlDB, err := maintenance.OpenDB(db.ConnString(dbParams(cfg)))
			if err != nil {
				return err
			}
			defer func() {
				if err := sqlDB.Close(); err != nil {
					log.Warnf("close db: %s", err)
				}
			}()

			report, err := maintenance.NewDeduper(sqlDB).Run(ctx, dryRun)
			if err != nil {
				return fmt.Errorf("dedupe: %w", err)
			}

			for _, g := range report.Groups {
				log.Infof("user %d, day %s: %d entries -> keep %s (count %d, goal met %t)",
					g.UserID, g.Day, len(g.IDs), g.IDs[0], g.Count, g.GoalMet)
			}
			if dryRun {
				log.Infof("dry run: %d duplicate groups, %d entries would be removed", len(report.Groups), report.Removed)
				return nil
			}
			log.Infof("%d duplicate groups, %d entries removed", len(report.Groups), report.Removed)

			if !addConstraint {
				return nil
			}

			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.Migrate(ctx, pool, true); err != nil {
				return fmt.Errorf("add constraint: %w", err)
			}
			log.Infoln("one entry per day constraint in place")
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only report duplicates")
	cmd.Flags().BoolVar(&addConstraint, "add-constraint", false, "add the (user_id, day) unique constraint afterwards")

	return cmd
}
