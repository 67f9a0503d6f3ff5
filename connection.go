package main

import (
	"errors"

	"golang.org/x/sys/unix"
)

// errOutputOverflow is returned by enqueue when a reply would not fit
// in the connection's fixed write buffer. The caller must tear the
// connection down without sending a reply.
var errOutputOverflow = errors.New("output buffer overflow")

func newConnection(fd int, bufSize int) *connection {
	return &connection{
		fd:   fd,
		rbuf: make([]byte, bufSize),
		wbuf: make([]byte, bufSize),
	}
}

// enqueue appends b to the connection's write buffer. It never
// truncates: if the bytes don't fit, it returns errOutputOverflow and
// leaves the buffer unchanged.
func (c *connection) enqueue(b []byte) error {
	if c.wfilled+len(b) > len(c.wbuf) {
		return errOutputOverflow
	}
	copy(c.wbuf[c.wfilled:], b)
	c.wfilled += len(b)
	return nil
}

// hasPending reports whether there are unsent bytes queued.
func (c *connection) hasPending() bool {
	return c.wsent < c.wfilled
}

// fillFromSocket performs one non-blocking read into the unused tail
// of the read buffer. The caller must not invoke this once the buffer
// is already full. It returns the number of bytes read; err is nil,
// unix.EAGAIN (caller should stop and keep waiting), or a fatal
// transport error. n == 0, err == nil means the peer sent EOF.
func (c *connection) fillFromSocket() (int, error) {
	n, err := unix.Read(c.fd, c.rbuf[c.rlen:])
	if err != nil {
		return 0, err
	}
	c.rlen += n
	return n, nil
}

// drainToSocket issues non-blocking sends from wsent toward wfilled.
// It returns true once every queued byte has been sent, at which
// point both cursors are reset to zero.
func (c *connection) drainToSocket() (done bool, err error) {
	for c.wsent < c.wfilled {
		n, werr := unix.Write(c.fd, c.wbuf[c.wsent:c.wfilled])
		if n > 0 {
			c.wsent += n
		}
		if werr != nil {
			if werr == unix.EAGAIN {
				return false, nil
			}
			return false, werr
		}
		if n == 0 {
			return false, nil
		}
	}
	c.wsent = 0
	c.wfilled = 0
	return true, nil
}

// shiftBuffer removes the first n bytes (one consumed record plus its
// newline) from the read buffer by left-shifting the remainder.
func (c *connection) shiftBuffer(n int) {
	copy(c.rbuf, c.rbuf[n:c.rlen])
	c.rlen -= n
}
