package ticket

import "telegram-tap-game/internal/pkg/daily"

// NextStreak returns the streak after a visit on today, given the last
// recorded visit day. A repeat visit on the same day leaves the streak
// unchanged, a visit on the day after the last one extends it, and a
// gap of two or more days (or no prior visit) restarts it at 1.
func NextStreak(lastVisitDay, today string, currentStreak int) int {
	switch {
	case lastVisitDay == today && currentStreak >= 1:
		return currentStreak
	case daily.IsYesterday(lastVisitDay, today) && currentStreak >= 1:
		return currentStreak + 1
	default:
		return 1
	}
}
