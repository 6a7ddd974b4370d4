// Property-based tests for the ticket allowance rules.
package ticket

import (
	"testing"

	"pgregory.net/rapid"
)

// TestFriendBonusTierProperty verifies FriendBonus(2k) == FriendBonus(2k+1) == k
// and that the bonus is monotone non-decreasing in the friend count.
func TestFriendBonusTierProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		k := rapid.IntRange(0, 10000).Draw(t, "k")

		if got := FriendBonus(2 * k); got != k {
			t.Fatalf("FriendBonus(%d) = %d, want %d", 2*k, got, k)
		}
		if got := FriendBonus(2*k + 1); got != k {
			t.Fatalf("FriendBonus(%d) = %d, want %d", 2*k+1, got, k)
		}
	})
}

func TestFriendBonusMonotoneProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 10000).Draw(t, "n")
		if FriendBonus(n+1) < FriendBonus(n) {
			t.Fatalf("FriendBonus decreased from %d to %d at n=%d",
				FriendBonus(n), FriendBonus(n+1), n)
		}
	})
}

// TestAllowanceFloorProperty verifies the allowance never drops below the
// base allowance and that every bonus term contributes non-negatively.
func TestAllowanceFloorProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		streak := rapid.IntRange(1, 5000).Draw(t, "streak")
		invites := rapid.IntRange(0, 5000).Draw(t, "invites")
		friends := rapid.IntRange(0, 5000).Draw(t, "friends")

		got := Allowance(streak, invites, friends)
		if got < BaseAllowance {
			t.Fatalf("Allowance(%d, %d, %d) = %d, below base %d",
				streak, invites, friends, got, BaseAllowance)
		}

		want := BaseAllowance + StreakBonus(streak) + invites + FriendBonus(friends)
		if got != want {
			t.Fatalf("Allowance(%d, %d, %d) = %d, want %d",
				streak, invites, friends, got, want)
		}
	})
}

// TestAllowanceDeterministicProperty verifies the calculator is pure:
// the same inputs always yield the same allowance.
func TestAllowanceDeterministicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		streak := rapid.IntRange(1, 1000).Draw(t, "streak")
		invites := rapid.IntRange(0, 1000).Draw(t, "invites")
		friends := rapid.IntRange(0, 1000).Draw(t, "friends")

		first := Allowance(streak, invites, friends)
		second := Allowance(streak, invites, friends)
		if first != second {
			t.Fatalf("Allowance not deterministic: %d then %d", first, second)
		}
	})
}

func TestStreakBonusExcludesFirstDay(t *testing.T) {
	cases := []struct {
		streak int
		want   int
	}{
		{1, 0},
		{2, 1},
		{7, 6},
		{0, 0},
	}
	for _, c := range cases {
		if got := StreakBonus(c.streak); got != c.want {
			t.Errorf("StreakBonus(%d) = %d, want %d", c.streak, got, c.want)
		}
	}
}

func TestFriendBonusInfo(t *testing.T) {
	info := FriendBonusInfo(0)
	if info.TicketsAtCurrentCount != 0 || info.FriendsNeededForNext != 2 {
		t.Errorf("FriendBonusInfo(0) = %+v", info)
	}

	info = FriendBonusInfo(3)
	if info.TicketsAtCurrentCount != 1 || info.FriendsNeededForNext != 1 {
		t.Errorf("FriendBonusInfo(3) = %+v", info)
	}

	info = FriendBonusInfo(4)
	if info.TicketsAtCurrentCount != 2 || info.FriendsNeededForNext != 2 {
		t.Errorf("FriendBonusInfo(4) = %+v", info)
	}
}
