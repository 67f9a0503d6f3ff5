package main

import "testing"

func TestSetGetRoundTrip(t *testing.T) {
	s := newStore(3)
	if ok := s.set([]byte("a"), []byte("1"), 0, 100); !ok {
		t.Fatalf("set returned false")
	}
	v, ok := s.get([]byte("a"), 100)
	if !ok || string(v) != "1" {
		t.Fatalf("get = %q, %v; want 1, true", v, ok)
	}
}

func TestKeyCaseInsensitive(t *testing.T) {
	s := newStore(3)
	s.set([]byte("Key"), []byte("v"), 0, 0)
	if _, ok := s.get([]byte("KEY"), 0); !ok {
		t.Fatalf("expected case-insensitive match")
	}
	if _, ok := s.get([]byte("key"), 0); !ok {
		t.Fatalf("expected case-insensitive match")
	}
}

func TestSetRejectsOutOfRangeLengths(t *testing.T) {
	s := newStore(3)
	if s.set([]byte(""), []byte("v"), 0, 0) {
		t.Fatalf("empty key should be rejected")
	}
	if s.set([]byte("k"), []byte(""), 0, 0) {
		t.Fatalf("empty value should be rejected")
	}
	longKey := make([]byte, maxKeyLen+1)
	for i := range longKey {
		longKey[i] = 'x'
	}
	if s.set(longKey, []byte("v"), 0, 0) {
		t.Fatalf("oversized key should be rejected")
	}
}

func TestCapacityBound(t *testing.T) {
	s := newStore(3)
	for i, k := range []string{"a", "b", "c", "d", "e"} {
		s.set([]byte(k), []byte{byte('0' + i)}, 0, 0)
		if s.liveCount() > s.capacity {
			t.Fatalf("live count %d exceeds capacity %d after inserting %s", s.liveCount(), s.capacity, k)
		}
	}
	if s.liveCount() != 3 {
		t.Fatalf("liveCount = %d, want 3", s.liveCount())
	}
}

// TestLRUEvictionOrder checks that GET a refreshes a's recency, so the
// subsequent SET d evicts b, not a.
func TestLRUEvictionOrder(t *testing.T) {
	s := newStore(3)
	s.set([]byte("a"), []byte("1"), 0, 0)
	s.set([]byte("b"), []byte("2"), 0, 0)
	s.set([]byte("c"), []byte("3"), 0, 0)

	if v, ok := s.get([]byte("a"), 0); !ok || string(v) != "1" {
		t.Fatalf("get a = %q, %v", v, ok)
	}

	s.set([]byte("d"), []byte("4"), 0, 0)

	if _, ok := s.get([]byte("b"), 0); ok {
		t.Fatalf("b should have been evicted as LRU")
	}
	if _, ok := s.get([]byte("a"), 0); !ok {
		t.Fatalf("a should still be present")
	}
	if _, ok := s.get([]byte("c"), 0); !ok {
		t.Fatalf("c should still be present")
	}
	if _, ok := s.get([]byte("d"), 0); !ok {
		t.Fatalf("d should still be present")
	}
}

// TestColdInsertEvictsPreviousResident covers the capacity-1 edge
// case: a cold insert evicts the previously resident entry, never the
// one just inserted.
func TestColdInsertEvictsPreviousResident(t *testing.T) {
	s := newStore(1)
	s.set([]byte("a"), []byte("1"), 0, 0)
	s.set([]byte("b"), []byte("2"), 0, 0)

	if _, ok := s.get([]byte("a"), 0); ok {
		t.Fatalf("a should have been evicted")
	}
	v, ok := s.get([]byte("b"), 0)
	if !ok || string(v) != "2" {
		t.Fatalf("b should survive the cold insert, got %q, %v", v, ok)
	}
}

func TestRecencyHeadOnAccess(t *testing.T) {
	s := newStore(3)
	s.set([]byte("a"), []byte("1"), 0, 0)
	s.set([]byte("b"), []byte("2"), 0, 0)

	if s.entries[s.recHead].keyLen == 0 || string(s.entries[s.recHead].key[:s.entries[s.recHead].keyLen]) != "b" {
		t.Fatalf("expected b at recency head after its set")
	}

	s.get([]byte("a"), 0)
	if string(s.entries[s.recHead].key[:s.entries[s.recHead].keyLen]) != "a" {
		t.Fatalf("expected a at recency head after get")
	}
}

func TestTTLExpiry(t *testing.T) {
	s := newStore(3)
	s.set([]byte("k"), []byte("v"), 1, 100)

	if _, ok := s.get([]byte("k"), 100); !ok {
		t.Fatalf("entry should be live before expiry")
	}
	if _, ok := s.get([]byte("k"), 101); ok {
		t.Fatalf("entry should be expired at now == expiry")
	}
	if s.liveCount() != 0 {
		t.Fatalf("expired entry should be reclaimed, liveCount = %d", s.liveCount())
	}
}

func TestTTLFullyReplacesOnUpdate(t *testing.T) {
	s := newStore(3)
	s.set([]byte("k"), []byte("v1"), 100, 0)
	s.set([]byte("k"), []byte("v2"), 0, 0)

	e := &s.entries[s.slots[hashKey([]byte("k"))]]
	if e.expiry != 0 {
		t.Fatalf("TTL should be replaced (never-expire), got expiry=%d", e.expiry)
	}
}

func TestIdempotentDelete(t *testing.T) {
	s := newStore(3)
	s.set([]byte("k"), []byte("v"), 0, 0)

	first := s.delete([]byte("k"))
	second := s.delete([]byte("k"))
	if !first {
		t.Fatalf("first delete of a live key should report removal")
	}
	if second {
		t.Fatalf("second delete of an already-gone key should report no-op")
	}
	if s.liveCount() != 0 {
		t.Fatalf("liveCount = %d, want 0", s.liveCount())
	}
}

func TestEvictionAndExpirationCounters(t *testing.T) {
	s := newStore(1)
	s.set([]byte("a"), []byte("1"), 0, 0)
	s.set([]byte("b"), []byte("2"), 0, 0)
	if s.evictions != 1 {
		t.Fatalf("evictions = %d, want 1", s.evictions)
	}

	s2 := newStore(3)
	s2.set([]byte("k"), []byte("v"), 1, 100)
	s2.get([]byte("k"), 101)
	if s2.expirations != 1 {
		t.Fatalf("expirations = %d, want 1", s2.expirations)
	}

	s2.delete([]byte("nonexistent"))
	if s2.evictions != 0 {
		t.Fatalf("plain delete must not count as an eviction")
	}
}

func TestIndexRecencyParity(t *testing.T) {
	s := newStore(5)
	keys := []string{"a", "b", "c", "d"}
	for _, k := range keys {
		s.set([]byte(k), []byte("v"), 0, 0)
	}
	s.delete([]byte("b"))

	inRecency := map[string]bool{}
	for idx := s.recHead; idx != -1; idx = s.entries[idx].recNext {
		e := s.entries[idx]
		inRecency[string(e.key[:e.keyLen])] = true
	}

	inIndex := map[string]bool{}
	for _, slot := range s.slots {
		for idx := slot; idx != -1; idx = s.entries[idx].next {
			e := s.entries[idx]
			inIndex[string(e.key[:e.keyLen])] = true
		}
	}

	if len(inRecency) != len(inIndex) {
		t.Fatalf("recency set %v and index set %v differ in size", inRecency, inIndex)
	}
	for k := range inRecency {
		if !inIndex[k] {
			t.Fatalf("key %q on recency list but not reachable via index", k)
		}
	}
}
