package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/pushups/internal/pushups/days"
)

const duplicateGroupsQuery = `
	SELECT user_id, day, array_agg(id::text ORDER BY created_at, id), max(count), bool_or(goal_met)
	FROM pushup_entry
	GROUP BY user_id, day
	HAVING count(*) > 1
	ORDER BY user_id, day`

// DuplicateGroup is a set of entries sharing one (user, day) key. The first
// id is the one kept.
type DuplicateGroup struct {
	UserID  int
	Day     days.Day
	IDs     []string
	Count   int
	GoalMet bool
}

type Report struct {
	Groups  []DuplicateGroup
	Removed int64
}

// Deduper collapses legacy duplicate entries so the (user_id, day) unique
// constraint can be added. It runs on database/sql with the lib/pq driver,
// outside the pgx pool the service uses.
type Deduper struct {
	db *sql.DB
}

func NewDeduper(db *sql.DB) *Deduper {
	return &Deduper{
		db: db,
	}
}

func OpenDB(connString string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

// Run keeps the earliest entry of every duplicate group, sets its count to the
// group max and goal_met to the OR of the group, and deletes the rest, all in
// one transaction. With dryRun nothing is changed.
func (d *Deduper) Run(ctx context.Context, dryRun bool) (_ *Report, err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err == nil && !dryRun {
			err = tx.Commit()
			return
		}
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			log.Errorf("dedupe rollback: %s", rollbackErr)
		}
	}()

	groups, err := duplicateGroups(ctx, tx)
	if err != nil {
		return nil, err
	}

	report := &Report{Groups: groups}
	if dryRun {
		for _, g := range groups {
			report.Removed += int64(len(g.IDs) - 1)
		}
		return report, nil
	}

	for _, g := range groups {
		if _, err := tx.ExecContext(ctx,
			`UPDATE pushup_entry SET count = $1, goal_met = $2 WHERE id = $3`,
			g.Count, g.GoalMet, g.IDs[0],
		); err != nil {
			return nil, fmt.Errorf("update kept entry %s: %w", g.IDs[0], err)
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM pushup_entry WHERE id::text = ANY($1)`,
			pq.Array(g.IDs[1:]),
		)
		if err != nil {
			return nil, fmt.Errorf("delete duplicates of %s: %w", g.IDs[0], err)
		}
		removed, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		report.Removed += removed

		log.Debugf("user %d, day %s: kept %s, removed %d", g.UserID, g.Day, g.IDs[0], removed)
	}

	return report, nil
}

func duplicateGroups(ctx context.Context, tx *sql.Tx) ([]DuplicateGroup, error) {
	rows, err := tx.QueryContext(ctx, duplicateGroupsQuery)
	if err != nil {
		return nil, fmt.Errorf("query duplicates: %w", err)
	}
	defer rows.Close()

	var groups []DuplicateGroup
	for rows.Next() {
		var (
			g   DuplicateGroup
			day time.Time
			ids pq.StringArray
		)
		if err := rows.Scan(&g.UserID, &day, &ids, &g.Count, &g.GoalMet); err != nil {
			return nil, fmt.Errorf("scan duplicate group: %w", err)
		}
		g.Day = days.FromDate(day)
		g.IDs = ids
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate duplicates: %w", err)
	}

	return groups, nil
}
