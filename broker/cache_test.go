package broker

import (
	"sync"
	"testing"
	"time"
)

func TestSeenCache_MarkAndSeen(t *testing.T) {
	cache := NewSeenCache(time.Hour)

	if cache.Seen("m1") {
		t.Error("Seen(m1) = true before marking, want false")
	}

	cache.MarkSeen("m1")
	if !cache.Seen("m1") {
		t.Error("Seen(m1) = false after marking, want true")
	}
	if cache.Seen("m2") {
		t.Error("Seen(m2) = true, want false")
	}
}

func TestSeenCache_PrunesExpiredOnAccess(t *testing.T) {
	cache := NewSeenCache(time.Hour)

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	cache.MarkSeen("old")
	current = current.Add(30 * time.Minute)
	cache.MarkSeen("young")

	// Within retention for both.
	if !cache.Seen("old") || !cache.Seen("young") {
		t.Fatal("entries missing within retention window")
	}

	// 61 minutes after "old" was marked: only "young" survives.
	current = current.Add(31 * time.Minute)
	if cache.Seen("old") {
		t.Error("Seen(old) = true past retention, want false")
	}
	if !cache.Seen("young") {
		t.Error("Seen(young) = false within retention, want true")
	}
	if got := cache.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestSeenCache_DefaultRetention(t *testing.T) {
	cache := NewSeenCache(0)
	if cache.retention != defaultSeenRetention {
		t.Errorf("retention = %v, want %v", cache.retention, defaultSeenRetention)
	}
}

func TestSeenCache_ConcurrentAccess(t *testing.T) {
	cache := NewSeenCache(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := string(rune('a'+n)) + string(rune('0'+j%10))
				cache.MarkSeen(id)
				cache.Seen(id)
			}
		}(i)
	}
	wg.Wait()

	if cache.Len() == 0 {
		t.Error("Len() = 0 after concurrent marking")
	}
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	r := newRegistry()

	r.register("TopCash", nil)
	if replaced := r.register("TopCash", nil); !replaced {
		t.Error("register() replaced = false on second registration, want true")
	}

	if _, exists := r.get("TopCash"); !exists {
		t.Error("get(TopCash) = false, want true")
	}
	if _, exists := r.get("Recon"); exists {
		t.Error("get(Recon) = true, want false")
	}

	r.register("Recon", nil)
	intents := r.intents()
	if len(intents) != 2 {
		t.Fatalf("len(intents()) = %d, want 2", len(intents))
	}
	if intents[0] != "Recon" || intents[1] != "TopCash" {
		t.Errorf("intents() = %v, want sorted [Recon TopCash]", intents)
	}
}
