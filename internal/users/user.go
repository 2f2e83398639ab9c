package users

import (
	"time"

	"github.com/2beens/pushups/internal/pushups/streaks"
)

type User struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	DailyGoal     int       `json:"dailyGoal"`
	Timezone      string    `json:"timezone"`
	CurrentStreak int       `json:"currentStreak"`
	LongestStreak int       `json:"longestStreak"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (u *User) Streaks() streaks.State {
	return streaks.State{
		Current: u.CurrentStreak,
		Longest: u.LongestStreak,
	}
}

type Registration struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	DailyGoal int    `json:"dailyGoal"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileUpdate holds optional changes, nil fields are left as they are.
type ProfileUpdate struct {
	Name      *string `json:"name,omitempty"`
	DailyGoal *int    `json:"dailyGoal,omitempty"`
	Timezone  *string `json:"timezone,omitempty"`
}

type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}
