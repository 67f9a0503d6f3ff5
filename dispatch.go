package main

// Exact reply strings for the wire protocol.
var (
	replyOK        = []byte("OK\n")
	replyNotFound  = []byte("Key not found\n")
	replyDeleted   = []byte("DELETED\n")
	replyMalformed = []byte("ERROR malformed\n")
	replySetArgs   = []byte("ERROR: SET needs key and value\n")
)

// dispatch executes one parsed command against the store and returns
// the exact reply bytes to enqueue. A nil reply means the verb is
// unrecognized, and nothing is sent back for it at all.
func dispatch(st *store, c command, now int64) []byte {
	if c.malformed {
		return replyMalformed
	}

	switch c.verb {
	case "SET":
		if len(c.key) == 0 || len(c.value) == 0 ||
			len(c.key) > maxKeyLen || len(c.value) > maxValueLen {
			return replySetArgs
		}
		st.set(c.key, c.value, c.ttl, now)
		return replyOK

	case "GET":
		if len(c.key) == 0 {
			return replyNotFound
		}
		v, ok := st.get(c.key, now)
		if !ok {
			return replyNotFound
		}
		return append(append([]byte{}, v...), '\n')

	case "DEL":
		if len(c.key) == 0 {
			return replyDeleted
		}
		st.delete(c.key)
		return replyDeleted

	default:
		return nil
	}
}
