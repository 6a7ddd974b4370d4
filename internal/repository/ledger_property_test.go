// Package repository provides data access layer implementations.
// Property-based tests for the ticket ledger debit logic, run against a
// pure in-memory model of the per-account ledger row.
package repository

import (
	"testing"

	"pgregory.net/rapid"
)

// LedgerState is a pure model of one account's daily ticket ledger: the
// plays consumed so far and the allowance they are checked against. It
// mirrors the decision consumeOnce makes under the row lock.
type LedgerState struct {
	PlaysToday    int
	MaxPlaysToday int
	Day           string
}

// NewLedgerState creates a ledger for the given day and allowance.
func NewLedgerState(day string, maxPlays int) *LedgerState {
	return &LedgerState{Day: day, MaxPlaysToday: maxPlays}
}

// Debit consumes one play for the given day. A day change resets the
// consumed count before the allowance check. Returns false when the
// allowance is exhausted.
func (s *LedgerState) Debit(day string) bool {
	if s.Day != day {
		s.Day = day
		s.PlaysToday = 0
	}
	if s.PlaysToday >= s.MaxPlaysToday {
		return false
	}
	s.PlaysToday++
	return true
}

// Remaining returns the plays left for the ledger's current day.
func (s *LedgerState) Remaining() int {
	return s.MaxPlaysToday - s.PlaysToday
}

// TestLedgerDebitCeilingProperty tests that for any allowance, exactly
// that many debits succeed on one day and every further attempt fails
// without changing state.
func TestLedgerDebitCeilingProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxPlays := rapid.IntRange(1, 20).Draw(rt, "maxPlays")
		attempts := rapid.IntRange(maxPlays, maxPlays+15).Draw(rt, "attempts")

		state := NewLedgerState("2026-08-31", maxPlays)

		var consumed int
		for i := 0; i < attempts; i++ {
			if state.Debit("2026-08-31") {
				consumed++
			}
		}

		if consumed != maxPlays {
			rt.Fatalf("Expected exactly %d debits to succeed, got %d", maxPlays, consumed)
		}
		if state.PlaysToday != maxPlays {
			rt.Fatalf("PlaysToday should equal the allowance after exhaustion: expected %d, got %d",
				maxPlays, state.PlaysToday)
		}
		if state.Remaining() != 0 {
			rt.Fatalf("Remaining should be 0 after exhaustion, got %d", state.Remaining())
		}

		// Repeated attempts after exhaustion must not move the counter.
		if state.Debit("2026-08-31") {
			rt.Fatalf("Debit should fail when the allowance is exhausted")
		}
		if state.PlaysToday != maxPlays {
			rt.Fatalf("Failed debit must not change PlaysToday: expected %d, got %d",
				maxPlays, state.PlaysToday)
		}
	})
}

// TestLedgerDebitExactlyOneProperty tests that each successful debit
// moves the counter by exactly 1.
func TestLedgerDebitExactlyOneProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxPlays := rapid.IntRange(1, 100).Draw(rt, "maxPlays")
		state := NewLedgerState("2026-08-31", maxPlays)

		before := state.PlaysToday
		if !state.Debit("2026-08-31") {
			rt.Fatalf("Debit should succeed while plays remain")
		}
		if state.PlaysToday != before+1 {
			rt.Fatalf("Debit should increase PlaysToday by exactly 1: before=%d, after=%d",
				before, state.PlaysToday)
		}
	})
}

// TestLedgerDayRolloverProperty tests that a day change grants a fresh
// budget regardless of how much of the previous day's was spent.
func TestLedgerDayRolloverProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxPlays := rapid.IntRange(1, 20).Draw(rt, "maxPlays")
		spent := rapid.IntRange(0, maxPlays).Draw(rt, "spent")

		state := NewLedgerState("2026-08-30", maxPlays)
		for i := 0; i < spent; i++ {
			if !state.Debit("2026-08-30") {
				rt.Fatalf("Debit %d should succeed within the allowance", i)
			}
		}

		if !state.Debit("2026-08-31") {
			rt.Fatalf("First debit of a new day should always succeed")
		}
		if state.PlaysToday != 1 {
			rt.Fatalf("New day should reset the counter before debiting: got %d", state.PlaysToday)
		}
		if state.Remaining() != maxPlays-1 {
			rt.Fatalf("Remaining after the first debit of a new day: expected %d, got %d",
				maxPlays-1, state.Remaining())
		}
	})
}

// TestLedgerRolloverHappensOnceProperty tests that the reset is tied to
// the day value, not to the number of attempts: debits within one day
// never reset the counter a second time.
func TestLedgerRolloverHappensOnceProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxPlays := rapid.IntRange(2, 20).Draw(rt, "maxPlays")
		state := NewLedgerState("2026-08-30", maxPlays)

		debits := rapid.IntRange(2, maxPlays).Draw(rt, "debits")
		for i := 0; i < debits; i++ {
			if !state.Debit("2026-08-31") {
				rt.Fatalf("Debit %d should succeed within the allowance", i)
			}
		}

		if state.PlaysToday != debits {
			rt.Fatalf("Counter should accumulate within one day: expected %d, got %d",
				debits, state.PlaysToday)
		}
	})
}

// TestLedgerIndependentAccountsProperty tests that accounts hold
// independent ledgers.
func TestLedgerIndependentAccountsProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		aliceMax := rapid.IntRange(1, 10).Draw(rt, "aliceMax")
		bobMax := rapid.IntRange(1, 10).Draw(rt, "bobMax")

		alice := NewLedgerState("2026-08-31", aliceMax)
		bob := NewLedgerState("2026-08-31", bobMax)

		alice.Debit("2026-08-31")

		if bob.PlaysToday != 0 {
			rt.Fatalf("Bob's ledger should be unaffected by Alice's debit: got %d", bob.PlaysToday)
		}
		if alice.PlaysToday != 1 {
			rt.Fatalf("Alice's ledger should hold the debit: got %d", alice.PlaysToday)
		}
	})
}
