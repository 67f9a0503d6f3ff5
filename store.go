package main

// newStore allocates an empty indexed store (hash index + recency
// list + entry arena) with the given capacity.
func newStore(capacity int) *store {
	st := &store{capacity: capacity, recHead: -1, recTail: -1}
	for i := range st.slots {
		st.slots[i] = -1
	}
	return st
}

func toLowerASCII(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

// equalFoldASCII compares two byte strings case-insensitively,
// ASCII-only.
func equalFoldASCII(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if toLowerASCII(a[i]) != toLowerASCII(b[i]) {
			return false
		}
	}
	return true
}

// hashKey computes the slot for key using a byte-wise multiplicative
// hash (seed 5381, step h*33+byte) over the lowercased key bytes.
func hashKey(key []byte) uint32 {
	h := uint32(5381)
	for _, b := range key {
		h = h*33 + uint32(toLowerASCII(b))
	}
	return h % hashSlots
}

// alloc returns an arena index for a new entry, reusing a freed slot
// when one is available.
func (s *store) alloc() int32 {
	if n := len(s.free); n > 0 {
		idx := s.free[n-1]
		s.free = s.free[:n-1]
		return idx
	}
	s.entries = append(s.entries, entry{})
	return int32(len(s.entries) - 1)
}

func (s *store) recAddHead(idx int32) {
	e := &s.entries[idx]
	e.recPrev = -1
	e.recNext = s.recHead
	if s.recHead != -1 {
		s.entries[s.recHead].recPrev = idx
	}
	s.recHead = idx
	if s.recTail == -1 {
		s.recTail = idx
	}
}

func (s *store) recRemove(idx int32) {
	e := &s.entries[idx]
	if e.recPrev != -1 {
		s.entries[e.recPrev].recNext = e.recNext
	} else {
		s.recHead = e.recNext
	}
	if e.recNext != -1 {
		s.entries[e.recNext].recPrev = e.recPrev
	} else {
		s.recTail = e.recPrev
	}
	e.recPrev = -1
	e.recNext = -1
}

func (s *store) recMoveToHead(idx int32) {
	if s.recHead == idx {
		return
	}
	s.recRemove(idx)
	s.recAddHead(idx)
}

// unlinkFromChain removes idx from its hash-chain slot by walking the
// chain.
func (s *store) unlinkFromChain(idx int32) {
	slot := s.entries[idx].slot
	cur := s.slots[slot]
	prev := int32(-1)
	for cur != -1 {
		if cur == idx {
			if prev == -1 {
				s.slots[slot] = s.entries[cur].next
			} else {
				s.entries[prev].next = s.entries[cur].next
			}
			return
		}
		prev = cur
		cur = s.entries[cur].next
	}
}

// removeEntry fully destroys a live entry: unlinks it from its hash
// chain and the recency list, then returns its arena slot to the free
// list.
func (s *store) removeEntry(idx int32) {
	s.unlinkFromChain(idx)
	s.recRemove(idx)
	s.entries[idx].inUse = false
	s.entries[idx].slot = -1
	s.free = append(s.free, idx)
	s.count--
}

// find walks the chain at key's slot for a case-insensitive match.
func (s *store) find(key []byte) (idx int32, slot uint32) {
	slot = hashKey(key)
	cur := s.slots[slot]
	for cur != -1 {
		e := &s.entries[cur]
		if equalFoldASCII(e.key[:e.keyLen], key) {
			return cur, slot
		}
		cur = e.next
	}
	return -1, slot
}

// set validates lengths, updates in place (value + TTL fully replaces,
// never additive) and moves to the recency head on a match, otherwise
// inserts and, if that pushes the live count over capacity, evicts the
// recency tail -- strictly after the new entry is linked in, so a cold
// C=1 insert evicts the previous resident, never the new entry.
// Returns false (a no-op) when key/value length is out of [1,63].
func (s *store) set(key, value []byte, ttl int, now int64) bool {
	if len(key) < 1 || len(key) > maxKeyLen || len(value) < 1 || len(value) > maxValueLen {
		return false
	}

	if idx, _ := s.find(key); idx != -1 {
		e := &s.entries[idx]
		copy(e.value[:], value)
		e.valLen = uint8(len(value))
		if ttl > 0 {
			e.expiry = now + int64(ttl)
		} else {
			e.expiry = 0
		}
		s.recMoveToHead(idx)
		return true
	}

	slot := hashKey(key)
	idx := s.alloc()
	e := &s.entries[idx]
	copy(e.key[:], key)
	e.keyLen = uint8(len(key))
	copy(e.value[:], value)
	e.valLen = uint8(len(value))
	if ttl > 0 {
		e.expiry = now + int64(ttl)
	} else {
		e.expiry = 0
	}
	e.inUse = true
	e.slot = int32(slot)
	e.next = s.slots[slot]
	s.slots[slot] = idx
	s.recAddHead(idx)
	s.count++

	if s.count > s.capacity {
		if victim := s.recTail; victim != -1 {
			s.removeEntry(victim)
			s.evictions++
		}
	}
	return true
}

// get performs lazy TTL reclaim on access and moves a live hit to the
// recency head. The returned slice is a copy, safe for the caller to
// hold onto after further store mutations.
func (s *store) get(key []byte, now int64) ([]byte, bool) {
	idx, _ := s.find(key)
	if idx == -1 {
		return nil, false
	}
	e := &s.entries[idx]
	if e.expiry != 0 && now >= e.expiry {
		s.removeEntry(idx)
		s.expirations++
		return nil, false
	}
	out := make([]byte, e.valLen)
	copy(out, e.value[:e.valLen])
	s.recMoveToHead(idx)
	return out, true
}

// delete is idempotent and always succeeds. Returns whether an entry
// was actually removed; the dispatcher ignores it, since the protocol
// reply is DELETED either way.
func (s *store) delete(key []byte) bool {
	idx, _ := s.find(key)
	if idx == -1 {
		return false
	}
	s.removeEntry(idx)
	return true
}

// liveCount reports the current number of live entries.
func (s *store) liveCount() int {
	return s.count
}
