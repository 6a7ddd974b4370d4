// Package ticket implements the pure ticket-allowance rules of the game
// economy: base allowance, visit-streak bonus, referral bonus and the
// friend-count bonus tier. Everything here is deterministic and free of
// I/O so both the repository transactions and the display paths compute
// allowances the same way.
package ticket

// BaseAllowance is the number of tickets every player gets per day
// before any bonuses.
const BaseAllowance = 5

// FriendsPerBonusTicket is the number of mutual friends needed for one
// bonus ticket.
const FriendsPerBonusTicket = 2

// StreakBonus returns the bonus tickets earned from a visit streak.
// The first day of a streak earns nothing; every consecutive day after
// that earns one ticket.
func StreakBonus(currentStreak int) int {
	if currentStreak <= 1 {
		return 0
	}
	return currentStreak - 1
}

// FriendBonus returns the bonus tickets derived from the mutual-friend
// count: one ticket per two friends.
func FriendBonus(friendCount int) int {
	if friendCount < 0 {
		return 0
	}
	return friendCount / FriendsPerBonusTicket
}

// Allowance computes the daily maximum ticket count from the three
// bonus inputs. The result is always at least BaseAllowance.
func Allowance(currentStreak, ticketsFromInvites, friendCount int) int {
	bonus := StreakBonus(currentStreak) + ticketsFromInvites + FriendBonus(friendCount)
	if bonus < 0 {
		bonus = 0
	}
	return BaseAllowance + bonus
}

// NextBonusInfo describes the friend-bonus tier a player is in and how
// far they are from the next one. Used for display only.
type NextBonusInfo struct {
	TicketsAtCurrentCount int
	FriendsNeededForNext  int
}

// FriendBonusInfo returns the current friend-bonus tier and the number
// of additional friends needed to reach the next tier.
func FriendBonusInfo(friendCount int) NextBonusInfo {
	if friendCount < 0 {
		friendCount = 0
	}
	return NextBonusInfo{
		TicketsAtCurrentCount: FriendBonus(friendCount),
		FriendsNeededForNext:  FriendsPerBonusTicket - friendCount%FriendsPerBonusTicket,
	}
}
