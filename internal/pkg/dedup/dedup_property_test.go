// Property-based tests for the message dedup cache.
package dedup

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

// TestDedupFirstSeenProperty verifies that any fresh (chat, message)
// pair is reported unseen exactly once and seen on every repeat within
// the window.
func TestDedupFirstSeenProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chatID := rapid.Int64Range(-1_000_000, 1_000_000).Draw(t, "chatID")
		messageID := rapid.IntRange(1, 1_000_000).Draw(t, "messageID")
		repeats := rapid.IntRange(1, 10).Draw(t, "repeats")

		cache, err := New(128, time.Minute)
		if err != nil {
			t.Fatalf("New: %v", err)
		}

		if cache.Seen(chatID, messageID) {
			t.Fatal("fresh message reported as seen")
		}
		for i := 0; i < repeats; i++ {
			if !cache.Seen(chatID, messageID) {
				t.Fatalf("repeat %d not reported as seen", i)
			}
		}
	})
}

// TestDedupBoundedProperty verifies the cache never exceeds its size
// bound no matter how many distinct messages pass through.
func TestDedupBoundedProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.IntRange(1, 64).Draw(t, "size")
		messages := rapid.IntRange(1, 500).Draw(t, "messages")

		cache, err := New(size, time.Minute)
		if err != nil {
			t.Fatalf("New: %v", err)
		}

		for i := 0; i < messages; i++ {
			cache.Seen(1, i)
		}
		if cache.Len() > size {
			t.Fatalf("cache grew to %d entries, bound is %d", cache.Len(), size)
		}
	})
}

func TestDedupWindowExpiry(t *testing.T) {
	cache, err := New(16, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	current := time.Unix(1_000_000, 0)
	cache.now = func() time.Time { return current }

	if cache.Seen(1, 1) {
		t.Fatal("fresh message reported as seen")
	}

	current = current.Add(30 * time.Second)
	if !cache.Seen(1, 1) {
		t.Fatal("message inside window not reported as seen")
	}

	current = current.Add(2 * time.Minute)
	if cache.Seen(1, 1) {
		t.Fatal("expired entry still reported as seen")
	}
}
