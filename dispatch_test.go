package main

import "testing"

func TestDispatchSetGet(t *testing.T) {
	st := newStore(3)

	if got := dispatch(st, parseCommand([]byte("SET a 1")), 0); string(got) != "OK\n" {
		t.Fatalf("SET reply = %q, want OK\\n", got)
	}
	if got := dispatch(st, parseCommand([]byte("GET a")), 0); string(got) != "1\n" {
		t.Fatalf("GET reply = %q, want 1\\n", got)
	}
}

func TestDispatchGetMissing(t *testing.T) {
	st := newStore(3)
	got := dispatch(st, parseCommand([]byte("GET missing")), 0)
	if string(got) != "Key not found\n" {
		t.Fatalf("got %q", got)
	}
}

func TestDispatchUnknownVerbNoReply(t *testing.T) {
	st := newStore(3)
	got := dispatch(st, parseCommand([]byte("PING a")), 0)
	if got != nil {
		t.Fatalf("expected no reply for unknown verb, got %q", got)
	}
}

func TestDispatchMalformed(t *testing.T) {
	st := newStore(3)
	got := dispatch(st, parseCommand([]byte("set")), 0)
	if string(got) != "ERROR malformed\n" {
		t.Fatalf("got %q", got)
	}
}

func TestDispatchSetMissingValue(t *testing.T) {
	st := newStore(3)
	got := dispatch(st, parseCommand([]byte("SET x")), 0)
	if string(got) != "ERROR: SET needs key and value\n" {
		t.Fatalf("got %q", got)
	}
}

func TestDispatchDelAlwaysSucceeds(t *testing.T) {
	st := newStore(3)
	got := dispatch(st, parseCommand([]byte("DEL nonexistent")), 0)
	if string(got) != "DELETED\n" {
		t.Fatalf("got %q", got)
	}
}

// TestScenarioLRUEvictionViaDispatch exercises a GET-then-evict
// sequence end to end, through the dispatcher rather than the store
// directly: GET a refreshes a, so the trailing SET d evicts b.
func TestScenarioLRUEvictionViaDispatch(t *testing.T) {
	st := newStore(3)
	lines := []string{"SET a 1", "SET b 2", "SET c 3", "GET a", "SET d 4", "GET b"}
	want := []string{"OK\n", "OK\n", "OK\n", "1\n", "OK\n", "Key not found\n"}

	for i, line := range lines {
		got := dispatch(st, parseCommand([]byte(line)), 0)
		if string(got) != want[i] {
			t.Fatalf("line %d (%q): got %q, want %q", i, line, got, want[i])
		}
	}
}

// TestScenarioTTLExpiry checks that an EX-qualified SET expires after
// its TTL elapses.
func TestScenarioTTLExpiry(t *testing.T) {
	st := newStore(3)

	got := dispatch(st, parseCommand([]byte("SET k v EX 1")), 1000)
	if string(got) != "OK\n" {
		t.Fatalf("got %q", got)
	}

	got = dispatch(st, parseCommand([]byte("GET k")), 1002)
	if string(got) != "Key not found\n" {
		t.Fatalf("got %q, want expiry", got)
	}
}

// TestScenarioMalformedThenShortSet runs a malformed SET with no
// space, then a SET with only a key, then a DEL of a nonexistent key.
func TestScenarioMalformedThenShortSet(t *testing.T) {
	st := newStore(3)

	if got := dispatch(st, parseCommand([]byte("SET")), 0); string(got) != "ERROR malformed\n" {
		t.Fatalf("got %q", got)
	}
	if got := dispatch(st, parseCommand([]byte("SET x")), 0); string(got) != "ERROR: SET needs key and value\n" {
		t.Fatalf("got %q", got)
	}
	if got := dispatch(st, parseCommand([]byte("DEL nonexistent")), 0); string(got) != "DELETED\n" {
		t.Fatalf("got %q", got)
	}
}
