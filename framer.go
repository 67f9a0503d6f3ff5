package main

import (
	"bytes"
	"strconv"
)

// command is one parsed command record. verb is upper-cased; malformed
// is set when the record has no first space.
type command struct {
	verb      string
	key       []byte
	value     []byte
	ttl       int
	malformed bool
}

// nextRecord scans buf[:n] for the first newline. It returns the
// record bytes (without the newline) and how many bytes (record +
// newline) the caller should remove from the buffer. found is false
// if no full record is available yet.
func nextRecord(buf []byte, n int) (line []byte, consumed int, found bool) {
	idx := bytes.IndexByte(buf[:n], '\n')
	if idx < 0 {
		return nil, 0, false
	}
	return buf[:idx], idx + 1, true
}

// parseCommand runs a two-space scan over line: the first space
// terminates the verb, the second (if any) terminates the key and
// begins the value. Within the value, the exact substring " EX "
// introduces a decimal TTL in seconds; any parse failure of the TTL
// yields ttl = 0 (never expires).
func parseCommand(line []byte) command {
	sp1 := bytes.IndexByte(line, ' ')
	if sp1 < 0 {
		return command{malformed: true}
	}

	verb := line[:sp1]
	rest := line[sp1+1:]

	var key, value []byte
	if sp2 := bytes.IndexByte(rest, ' '); sp2 >= 0 {
		key = rest[:sp2]
		value = rest[sp2+1:]
	} else {
		key = rest
	}

	ttl := 0
	if value != nil {
		if exIdx := bytes.Index(value, []byte(" EX ")); exIdx >= 0 {
			ttlBytes := value[exIdx+4:]
			value = value[:exIdx]
			if v, err := strconv.Atoi(string(ttlBytes)); err == nil {
				ttl = v
			}
		}
	}

	return command{
		verb:  string(bytes.ToUpper(verb)),
		key:   key,
		value: value,
		ttl:   ttl,
	}
}
