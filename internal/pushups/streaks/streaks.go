package streaks

import (
	"sort"

	"github.com/2beens/pushups/internal/pushups/days"
)

// DayStatus is one recorded day of history.
type DayStatus struct {
	Day     days.Day
	GoalMet bool
}

type State struct {
	Current int `json:"currentStreak"`
	Longest int `json:"longestStreak"`
}

// Compute derives the current and longest streak from the full history.
//
// Duplicate days are collapsed with OR. The current streak counts
// consecutive met days ending today, or ending yesterday when today has no
// record yet. Days after today only count towards the longest streak.
func Compute(history []DayStatus, today days.Day) State {
	metByDay := make(map[days.Day]bool, len(history))
	for _, h := range history {
		metByDay[h.Day] = metByDay[h.Day] || h.GoalMet
	}

	current := currentStreak(metByDay, today)
	longest := longestStreak(metByDay)
	if current > longest {
		longest = current
	}

	return State{
		Current: current,
		Longest: longest,
	}
}

func currentStreak(metByDay map[days.Day]bool, today days.Day) int {
	cursor := today
	if _, recorded := metByDay[today]; !recorded {
		cursor = today.AddDays(-1)
	}

	streak := 0
	for {
		met, recorded := metByDay[cursor]
		if !recorded || !met {
			return streak
		}
		streak++
		cursor = cursor.AddDays(-1)
	}
}

func longestStreak(metByDay map[days.Day]bool) int {
	recorded := make([]days.Day, 0, len(metByDay))
	for d := range metByDay {
		recorded = append(recorded, d)
	}
	sort.Slice(recorded, func(i, j int) bool {
		return recorded[i] < recorded[j]
	})

	longest, run := 0, 0
	for i, d := range recorded {
		switch {
		case !metByDay[d]:
			run = 0
		case i > 0 && run > 0 && recorded[i-1] == d.AddDays(-1):
			run++
		default:
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	return longest
}
