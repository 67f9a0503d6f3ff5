package main

import (
	"github.com/rs/zerolog"
)

// Protocol limits.
const (
	maxKeyLen   = 63
	maxValueLen = 63
	hashSlots   = 1024
)

// entry is one arena slot. It is simultaneously a hash-chain node
// (next) and a recency-list node (recPrev/recNext); the arena owns the
// storage and every structure above it holds only indices, never
// pointers, so there is no aliasing or cycle hazard.
type entry struct {
	key     [maxKeyLen]byte
	keyLen  uint8
	value   [maxValueLen]byte
	valLen  uint8
	expiry  int64 // unix seconds; 0 means never
	inUse   bool
	slot    int32 // which hash-chain this entry is threaded on
	next    int32 // hash chain
	recPrev int32 // recency list
	recNext int32
}

// store is the indexed key-value table: hash index + recency list +
// entry arena, all owned by one value rather than module-level state.
type store struct {
	slots       [hashSlots]int32 // chain heads, -1 = empty
	entries     []entry
	free        []int32 // reusable arena slots
	recHead     int32   // most-recently-used
	recTail     int32   // least-recently-used
	count       int
	capacity    int
	evictions   int64 // cumulative, capacity-triggered tail removals
	expirations int64 // cumulative, lazy-TTL reclaims on access
}

// connection is per-client reactor state: fixed read/write buffers and
// the outbound queue's cursor pair.
type connection struct {
	fd       int
	rbuf     []byte
	rlen     int
	wbuf     []byte
	wfilled  int
	wsent    int
	writable bool // currently registered for EPOLLOUT
	closing  bool
}

// readiness interest bits, independent of any particular poller ABI.
const (
	interestRead  = 1 << 0
	interestWrite = 1 << 1
)

// Server is the reactor: one poller, the connection table, the store,
// and the ambient stack (stats, logger, config) it reports through.
type Server struct {
	cfg      *Config
	log      zerolog.Logger
	listenFD int
	poller   *poller
	conns    map[int]*connection
	store    *store
	stats    *Stats
	running  bool
}
