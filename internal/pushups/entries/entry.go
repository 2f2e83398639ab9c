package entries

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/2beens/pushups/internal/pushups/days"
	"github.com/2beens/pushups/internal/pushups/streaks"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrStorage      = errors.New("storage failure")
)

// Entry is the one record a user has for a calendar day.
type Entry struct {
	ID        string    `json:"id"`
	UserID    int       `json:"userId"`
	Day       days.Day  `json:"date"`
	Count     int       `json:"count"`
	GoalMet   bool      `json:"goalMet"`
	CreatedAt time.Time `json:"createdAt"`
}

// EntryFields are the mutable parts of an entry.
type EntryFields struct {
	Count   int
	GoalMet bool
}

// MaxCount is the largest count the INTEGER column holds.
const MaxCount = math.MaxInt32

func validateCount(count *int) error {
	switch {
	case count == nil:
		return fmt.Errorf("%w: count missing", ErrInvalidInput)
	case *count < 0:
		return fmt.Errorf("%w: negative count %d", ErrInvalidInput, *count)
	case *count > MaxCount:
		return fmt.Errorf("%w: count %d above %d", ErrInvalidInput, *count, MaxCount)
	}
	return nil
}

// GoalMet is evaluated against the goal in force at write time.
func GoalMet(count, dailyGoal int) bool {
	return count >= dailyGoal
}

func History(entries []Entry) []streaks.DayStatus {
	history := make([]streaks.DayStatus, 0, len(entries))
	for _, e := range entries {
		history = append(history, streaks.DayStatus{
			Day:     e.Day,
			GoalMet: e.GoalMet,
		})
	}
	return history
}

type SubmitRequest struct {
	Date     string `json:"date,omitempty"`
	Count    *int   `json:"count"`
	Timezone string `json:"-"`
	ClientIP string `json:"-"`
}

type UpdateRequest struct {
	Count    *int   `json:"count"`
	Timezone string `json:"-"`
	ClientIP string `json:"-"`
}

// DeleteRequest carries the same timezone hints as a submit.
type DeleteRequest struct {
	Timezone string
	ClientIP string
}

// Result is what every mutation returns: the touched entry and the freshly
// recomputed streaks.
type Result struct {
	Entry            *Entry `json:"entry,omitempty"`
	CurrentStreak    int    `json:"currentStreak"`
	LongestStreak    int    `json:"longestStreak"`
	Created          bool   `json:"created"`
	TimezoneFallback bool   `json:"timezoneFallback"`
}

type ListResponse struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
}
