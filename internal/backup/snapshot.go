package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/2beens/pushups/internal/pushups/entries"
	"github.com/2beens/pushups/internal/users"
)

type usersLister interface {
	ListAll(ctx context.Context) ([]users.User, error)
}

type entriesLister interface {
	ListAll(ctx context.Context, userID int) ([]entries.Entry, error)
}

// Snapshot is the backup file content. Password hashes never leave the db.
type Snapshot struct {
	CreatedAt time.Time    `json:"createdAt"`
	Users     []UserBackup `json:"users"`
}

type UserBackup struct {
	User    users.User      `json:"user"`
	Entries []entries.Entry `json:"entries"`
}

func BuildSnapshot(ctx context.Context, userList usersLister, entryList entriesLister, now time.Time) (*Snapshot, error) {
	all, err := userList.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	snapshot := &Snapshot{
		CreatedAt: now.UTC(),
		Users:     make([]UserBackup, 0, len(all)),
	}
	for _, u := range all {
		userEntries, err := entryList.ListAll(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("list entries of user %d: %w", u.ID, err)
		}
		if userEntries == nil {
			userEntries = []entries.Entry{}
		}
		u.PasswordHash = ""
		snapshot.Users = append(snapshot.Users, UserBackup{
			User:    u,
			Entries: userEntries,
		})
	}

	return snapshot, nil
}
