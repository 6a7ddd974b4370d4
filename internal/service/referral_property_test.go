// Package service provides business logic implementations.
// Property-based tests for invite token parsing.
package service

import (
	"errors"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// TestInviteTokenRoundTripProperty tests that any valid referrer ID
// survives the build-then-parse round trip.
func TestInviteTokenRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		referrerID := rapid.Int64Range(1, 1<<62).Draw(rt, "referrerID")

		token := InviteToken(referrerID)
		parsed, err := ParseInviteToken(token)
		if err != nil {
			rt.Fatalf("Round trip failed for id %d: %v", referrerID, err)
		}
		if parsed != referrerID {
			rt.Fatalf("Round trip mismatch: built from %d, parsed %d", referrerID, parsed)
		}
	})
}

// TestInviteTokenRejectsGarbageProperty tests that arbitrary strings
// without the token prefix never parse.
func TestInviteTokenRejectsGarbageProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		payload := rapid.String().Draw(rt, "payload")
		if strings.HasPrefix(payload, "ref_") {
			payload = "x" + payload
		}

		_, err := ParseInviteToken(payload)
		if !errors.Is(err, ErrBadInviteToken) {
			rt.Fatalf("Expected ErrBadInviteToken for %q, got %v", payload, err)
		}
	})
}

// TestInviteTokenRejectsNonPositiveProperty tests that tokens carrying
// zero or negative IDs are rejected. Telegram user IDs are positive.
func TestInviteTokenRejectsNonPositiveProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		id := rapid.Int64Range(-1<<62, 0).Draw(rt, "id")

		_, err := ParseInviteToken(InviteToken(id))
		if !errors.Is(err, ErrBadInviteToken) {
			rt.Fatalf("Expected ErrBadInviteToken for id %d, got %v", id, err)
		}
	})
}

// TestInviteTokenRejectsNonNumericSuffixProperty tests that a correct
// prefix with a non-numeric payload still fails.
func TestInviteTokenRejectsNonNumericSuffixProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		suffix := rapid.StringMatching(`[a-zA-Z_]{1,20}`).Draw(rt, "suffix")

		_, err := ParseInviteToken("ref_" + suffix)
		if !errors.Is(err, ErrBadInviteToken) {
			rt.Fatalf("Expected ErrBadInviteToken for suffix %q, got %v", suffix, err)
		}
	})
}
